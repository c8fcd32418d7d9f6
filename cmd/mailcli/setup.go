package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"

	"github.com/brandon/termmail/internal/config"
	"github.com/brandon/termmail/internal/credential"
)

type passwordCmd struct {
	smtp   bool
	delete bool
}

func (*passwordCmd) Name() string {
	return "password"
}

func (*passwordCmd) Synopsis() string {
	return "store an account password in the keyring"
}

func (*passwordCmd) Usage() string {
	return `password [-smtp] [-delete] < password.txt:
	store the first line of stdin as the IMAP (or SMTP) password
`
}

func (c *passwordCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.smtp, "smtp", false, "store the SMTP password instead of the IMAP one")
	f.BoolVar(&c.delete, "delete", false, "remove the stored password")
}

func (c *passwordCmd) Execute(
	_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	key := config.IMAPPasswordKey
	if c.smtp {
		key = config.SMTPPasswordKey
	}

	ring, err := credential.Open()
	if err != nil {
		return fatal("Couldn't open keyring", err)
	}

	if c.delete {
		if err := ring.Delete(key); err != nil {
			return fatal("Couldn't delete password", err)
		}
		return subcommands.ExitSuccess
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return fatal("Couldn't read password", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return usage("password must not be empty")
	}
	if err := ring.Set(key, password); err != nil {
		return fatal("Couldn't store password", err)
	}
	return subcommands.ExitSuccess
}

type envCmd struct{}

func (*envCmd) Name() string {
	return "env"
}

func (*envCmd) Synopsis() string {
	return "describe the configuration environment variables"
}

func (*envCmd) Usage() string {
	return `env:
	print every TERMMAIL_ variable with its default
`
}

func (*envCmd) SetFlags(*flag.FlagSet) {}

func (*envCmd) Execute(
	context.Context, *flag.FlagSet, ...interface{}) subcommands.ExitStatus {
	if err := config.Usage(os.Stdout); err != nil {
		return fatal("Couldn't print usage", err)
	}
	return subcommands.ExitSuccess
}
