package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"

	"github.com/google/subcommands"
)

type readCmd struct {
	mailbox string
	page    int
}

func (*readCmd) Name() string {
	return "read"
}

func (*readCmd) Synopsis() string {
	return "print the plain text body of a message"
}

func (*readCmd) Usage() string {
	return `read [flags] <index>:
	print the text of the message at index on the page, as listed by headers
`
}

func (r *readCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.mailbox, "mailbox", "", "mailbox to select instead of the configured one")
	f.IntVar(&r.page, "page", 0, "page number, 0 is the newest")
}

func (r *readCmd) Execute(
	ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usage("index required")
	}
	index, err := strconv.Atoi(f.Arg(0))
	if err != nil || index < 0 {
		return usage("index must be a non-negative number")
	}
	if r.page < 0 {
		return usage("page must not be negative")
	}

	s, err := openSession(ctx, r.mailbox)
	if err != nil {
		return fatal("Couldn't open mailbox", err)
	}
	defer s.close()

	if _, err := gotoPage(s.manager, r.page); err != nil {
		return fatal("FETCH failed", err)
	}
	body, err := s.manager.Body(index)
	if err != nil {
		return fatal("Couldn't read message", err)
	}

	fmt.Printf("From: %s <%s>\n", body.From.Name, body.From.Email)
	fmt.Printf("Subject: %s\n\n", body.Subject)
	fmt.Println(body.Text)
	return subcommands.ExitSuccess
}
