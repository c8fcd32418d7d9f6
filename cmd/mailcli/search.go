package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/subcommands"

	"github.com/brandon/termmail/internal/store"
)

type searchCmd struct {
	opts store.SearchOptions
}

func (*searchCmd) Name() string {
	return "search"
}

func (*searchCmd) Synopsis() string {
	return "search archived headers offline"
}

func (*searchCmd) Usage() string {
	return `search [flags] [query]:
	search headers recorded while browsing; requires TERMMAIL_ARCHIVE_PATH
	exit status will be 1 if no matches were found, otherwise 0
`
}

func (c *searchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.opts.Sender, "sender", "", "sender name or address substring")
	f.StringVar(&c.opts.Subject, "subject", "", "subject substring")
	f.StringVar(&c.opts.Mailbox, "mailbox", "", "restrict to this mailbox")
	f.IntVar(&c.opts.Limit, "limit", 0, "maximum results (default 100)")
}

func (c *searchCmd) Execute(
	ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	c.opts.Query = strings.Join(f.Args(), " ")
	if c.opts.Query == "" && c.opts.Sender == "" && c.opts.Subject == "" && c.opts.Mailbox == "" {
		return usage("query or filter required")
	}

	logger := newLogger()
	cfg, err := loadConfig(logger)
	if err != nil {
		return fatal("Couldn't load configuration", err)
	}
	if cfg.ArchivePath == "" {
		return usage("TERMMAIL_ARCHIVE_PATH is not set")
	}

	archive, err := store.Open(cfg.ArchivePath, logger)
	if err != nil {
		return fatal("Couldn't open archive", err)
	}
	defer archive.Close()

	results, err := archive.Search(ctx, c.opts)
	if err != nil {
		return fatal("Search failed", err)
	}
	if len(results) == 0 {
		return subcommands.ExitFailure
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, r := range results {
		from := r.SenderName
		if from == "" {
			from = r.SenderEmail
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", r.Mailbox, r.Seq, from, r.Subject)
	}
	if err := w.Flush(); err != nil {
		return fatal("Write failed", err)
	}
	return subcommands.ExitSuccess
}
