package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"
)

type mailboxesCmd struct{}

func (*mailboxesCmd) Name() string {
	return "mailboxes"
}

func (*mailboxesCmd) Synopsis() string {
	return "list mailboxes on the server"
}

func (*mailboxesCmd) Usage() string {
	return `mailboxes:
	list mailbox names, marking those that cannot be selected
`
}

func (*mailboxesCmd) SetFlags(*flag.FlagSet) {}

func (*mailboxesCmd) Execute(
	ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession(ctx, "")
	if err != nil {
		return fatal("Couldn't open mailbox", err)
	}
	defer s.close()

	mailboxes, err := s.manager.Mailboxes(ctx)
	if err != nil {
		return fatal("LIST failed", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, mb := range mailboxes {
		note := ""
		if !mb.Selectable {
			note = "(not selectable)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", mb.DisplayName, mb.Name, note)
	}
	if err := w.Flush(); err != nil {
		return fatal("Write failed", err)
	}
	return subcommands.ExitSuccess
}
