package main

import (
	"context"
	"flag"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"

	"github.com/brandon/termmail/internal/email"
)

// addressList collects repeated or comma-separated address flags.
type addressList []string

func (a *addressList) String() string {
	return strings.Join(*a, ",")
}

func (a *addressList) Set(value string) error {
	for _, addr := range strings.Split(value, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			*a = append(*a, addr)
		}
	}
	return nil
}

var _ flag.Value = &addressList{}

type sendCmd struct {
	to      addressList
	cc      addressList
	bcc     addressList
	subject string
}

func (*sendCmd) Name() string {
	return "send"
}

func (*sendCmd) Synopsis() string {
	return "send a plain text email read from stdin"
}

func (*sendCmd) Usage() string {
	return `send -to <addr> -subject <subject> [flags] < body.txt:
	send the text on stdin as the message body
`
}

func (c *sendCmd) SetFlags(f *flag.FlagSet) {
	f.Var(&c.to, "to", "recipient address (repeatable, comma-separated)")
	f.Var(&c.cc, "cc", "CC address (repeatable, comma-separated)")
	f.Var(&c.bcc, "bcc", "BCC address (repeatable, comma-separated)")
	f.StringVar(&c.subject, "subject", "", "message subject")
}

func (c *sendCmd) Execute(
	ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if len(c.to)+len(c.cc)+len(c.bcc) == 0 {
		return usage("at least one recipient required")
	}
	if c.subject == "" {
		return usage("subject required")
	}

	body, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fatal("Couldn't read body", err)
	}

	logger := newLogger()
	cfg, err := loadConfig(logger)
	if err != nil {
		return fatal("Couldn't load configuration", err)
	}

	// Sending needs no IMAP session.
	account := email.NewAccount(cfg, logger)
	err = account.Send(ctx, &email.EmailMessage{
		To:      c.to,
		Cc:      c.cc,
		Bcc:     c.bcc,
		Subject: c.subject,
		Body:    string(body),
	})
	if err != nil {
		return fatal("Send failed", err)
	}

	logger.WithFields(logrus.Fields{
		"recipients": len(c.to) + len(c.cc) + len(c.bcc),
	}).Info("Sent email")
	return subcommands.ExitSuccess
}
