package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"

	"github.com/brandon/termmail/internal/email"
	"github.com/brandon/termmail/pkg/types"
)

type headersCmd struct {
	mailbox string
	page    int
	output  string
}

func (*headersCmd) Name() string {
	return "headers"
}

func (*headersCmd) Synopsis() string {
	return "list one page of message headers, newest first"
}

func (*headersCmd) Usage() string {
	return `headers [flags]:
	list the headers on a page of the mailbox; page 0 holds the newest messages
`
}

func (h *headersCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&h.mailbox, "mailbox", "", "mailbox to select instead of the configured one")
	f.IntVar(&h.page, "page", 0, "page number, 0 is the newest")
	f.StringVar(&h.output, "output", "text", "output format: text or json")
}

func (h *headersCmd) Execute(
	ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if h.page < 0 {
		return usage("page must not be negative")
	}
	if h.output != "text" && h.output != "json" {
		return usage("output must be text or json")
	}

	s, err := openSession(ctx, h.mailbox)
	if err != nil {
		return fatal("Couldn't open mailbox", err)
	}
	defer s.close()

	page, err := gotoPage(s.manager, h.page)
	if err != nil {
		return fatal("FETCH failed", err)
	}

	if h.output == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(page); err != nil {
			return fatal("Write failed", err)
		}
		return subcommands.ExitSuccess
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, m := range page.Messages {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", m.Index, readMark(m), sender(m.From), m.Subject)
	}
	if err := w.Flush(); err != nil {
		return fatal("Write failed", err)
	}
	if page.Exhausted && len(page.Messages) < page.PageSize {
		fmt.Fprintln(os.Stderr, "(end of mailbox)")
	}
	return subcommands.ExitSuccess
}

// gotoPage advances from the newest page to page n.
func gotoPage(m *email.Manager, n int) (*types.Page, error) {
	page, err := m.CurrentPage()
	for i := 0; i < n && err == nil; i++ {
		page, err = m.NextPage()
	}
	return page, err
}

func readMark(m types.MessageSummary) string {
	if m.Read {
		return " "
	}
	return "N"
}

func sender(a types.Address) string {
	if a.Name != "" {
		return a.Name
	}
	return a.Email
}
