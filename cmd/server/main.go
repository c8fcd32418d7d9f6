// Package main serves the mailbox over the Model Context Protocol on stdio
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/brandon/termmail/internal/config"
	"github.com/brandon/termmail/internal/credential"
	"github.com/brandon/termmail/internal/email"
	"github.com/brandon/termmail/internal/mcp"
	"github.com/brandon/termmail/internal/store"
	"github.com/brandon/termmail/internal/tools"
)

var (
	version     = "dev"
	showVersion = flag.Bool("version", false, "Show version information")
	help        = flag.Bool("help", false, "Displays help on flags and env variables")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("termmail-server version %s\n", version)
		os.Exit(0)
	}
	if *help {
		flag.Usage()
		fmt.Fprintln(os.Stderr, "")
		if err := config.Usage(os.Stderr); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(0)
	}

	// Stdout carries the protocol, so logs go to stderr.
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stderr)

	var secrets config.SecretSource
	if ring, err := credential.Open(); err != nil {
		logger.WithError(err).Warn("Keyring unavailable, passwords must come from the environment")
	} else {
		secrets = ring
	}

	cfg, err := config.LoadConfig(secrets)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	logger.WithField("version", version).Info("Starting termmail server")

	var (
		archive      email.Archive
		searchSource tools.Archive
	)
	if cfg.ArchivePath != "" {
		headerStore, err := store.Open(cfg.ArchivePath, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to open header archive")
		}
		defer headerStore.Close()
		archive, searchSource = headerStore, headerStore
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := email.NewManager(cfg, archive, logger)
	if err := manager.Open(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to open mailbox")
	}
	defer func() {
		if err := manager.Close(); err != nil {
			logger.WithError(err).Warn("Failed to log out")
		}
	}()

	server := mcp.NewServer(tools.NewRegistry(manager, searchSource, logger), version, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Run(ctx, os.Stdin, os.Stdout)
	}()

	select {
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received shutdown signal")
	case err := <-errChan:
		if err != nil {
			logger.WithError(err).Error("Server error")
		}
	}
	cancel()

	logger.Info("Shutting down termmail server")
}
