// Package main implements a command line client for an IMAP/SMTP account
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"

	"github.com/brandon/termmail/internal/config"
	"github.com/brandon/termmail/internal/credential"
	"github.com/brandon/termmail/internal/email"
	"github.com/brandon/termmail/internal/store"
)

var verbose = flag.Bool("v", false, "log protocol activity to stderr")

func main() {
	subcommands.ImportantFlag("v")

	// Setup standard helpers
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&envCmd{}, "")

	subcommands.Register(&mailboxesCmd{}, "mail")
	subcommands.Register(&headersCmd{}, "mail")
	subcommands.Register(&readCmd{}, "mail")
	subcommands.Register(&sendCmd{}, "mail")
	subcommands.Register(&searchCmd{}, "archive")
	subcommands.Register(&passwordCmd{}, "setup")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

// loadConfig reads the environment, filling passwords from the keyring when
// one is available.
func loadConfig(logger *logrus.Logger) (*config.Root, error) {
	var secrets config.SecretSource
	if ring, err := credential.Open(); err != nil {
		logger.WithError(err).Debug("Keyring unavailable")
	} else {
		secrets = ring
	}

	cfg, err := config.LoadConfig(secrets)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// session is an open manager plus the archive it records into.
type session struct {
	manager *email.Manager
	archive *store.Store
	logger  *logrus.Logger
}

func openSession(ctx context.Context, mailbox string) (*session, error) {
	logger := newLogger()
	cfg, err := loadConfig(logger)
	if err != nil {
		return nil, err
	}
	if mailbox != "" {
		cfg.Mailbox = mailbox
	}

	s := &session{logger: logger}
	var archive email.Archive
	if cfg.ArchivePath != "" {
		if s.archive, err = store.Open(cfg.ArchivePath, logger); err != nil {
			return nil, err
		}
		archive = s.archive
	}

	s.manager = email.NewManager(cfg, archive, logger)
	if err := s.manager.Open(ctx); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

func (s *session) close() {
	if s.manager != nil {
		if err := s.manager.Close(); err != nil {
			s.logger.WithError(err).Warn("Failed to log out")
		}
	}
	if s.archive != nil {
		if err := s.archive.Close(); err != nil {
			s.logger.WithError(err).Warn("Failed to close archive")
		}
	}
}

func fatal(msg string, err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	return subcommands.ExitFailure
}

func usage(msg string) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, msg)
	return subcommands.ExitUsageError
}
