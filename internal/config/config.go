package config

import (
	"crypto/tls"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	prefix      = "termmail"
	tableFormat = `termmail is configured via the environment. The following environment
variables can be used:

KEY	DEFAULT	REQUIRED	DESCRIPTION
{{range .}}{{usage_key .}}	{{usage_default .}}	{{usage_required .}}	{{usage_description .}}
{{end}}`

	// Keyring keys consulted when a password is not set in the environment.
	IMAPPasswordKey = "imap-password"
	SMTPPasswordKey = "smtp-password"
)

// Root wraps all other configurations.
type Root struct {
	LogLevel    string        `required:"true" default:"info" split_words:"true" desc:"trace, debug, info, warn or error"`
	PageSize    int           `required:"true" default:"20" split_words:"true" desc:"Headers per page"`
	BatchSize   int           `required:"true" default:"20" split_words:"true" desc:"Minimum headers fetched per round trip"`
	Timeout     time.Duration `default:"0s" desc:"Per-command network deadline, 0 waits forever"`
	ArchivePath string        `split_words:"true" desc:"SQLite header archive, empty disables archiving"`
	Mailbox     string        `required:"true" default:"INBOX" desc:"Mailbox selected on start"`
	IMAP        IMAP
	SMTP        SMTP
}

// IMAP contains the IMAP account configuration.
type IMAP struct {
	Host               string `required:"true" desc:"IMAP server host"`
	Port               int    `required:"true" default:"993" desc:"IMAP server TLS port"`
	Username           string `required:"true" desc:"IMAP login"`
	Password           string `desc:"IMAP password, read from the keyring when empty"`
	InsecureSkipVerify bool   `split_words:"true" desc:"Skip TLS certificate verification"`
}

// SMTP contains the SMTP account configuration.
type SMTP struct {
	Host               string `required:"true" desc:"SMTP server host"`
	Port               int    `required:"true" default:"465" desc:"SMTP server TLS port"`
	Username           string `desc:"SMTP login, defaults to the IMAP login"`
	Password           string `desc:"SMTP password, read from the keyring when empty"`
	InsecureSkipVerify bool   `split_words:"true" desc:"Skip TLS certificate verification"`
}

// SecretSource looks up stored passwords.
type SecretSource interface {
	Get(key string) (string, error)
}

// Process loads and parses configuration from the environment.
func Process() (*Root, error) {
	c := &Root{}
	if err := envconfig.Process(prefix, c); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	if c.SMTP.Username == "" {
		c.SMTP.Username = c.IMAP.Username
	}
	return c, nil
}

// LoadConfig processes the environment and fills empty passwords from
// secrets. A nil secrets leaves them empty.
func LoadConfig(secrets SecretSource) (*Root, error) {
	c, err := Process()
	if err != nil {
		return nil, err
	}
	if err := c.ResolvePasswords(secrets); err != nil {
		return nil, err
	}
	return c, nil
}

// ResolvePasswords fills empty passwords from secrets.
func (c *Root) ResolvePasswords(secrets SecretSource) error {
	if secrets == nil {
		return nil
	}
	if c.IMAP.Password == "" {
		password, err := secrets.Get(IMAPPasswordKey)
		if err != nil {
			return fmt.Errorf("IMAP password not set and not in keyring: %w", err)
		}
		c.IMAP.Password = password
	}
	if c.SMTP.Password == "" {
		password, err := secrets.Get(SMTPPasswordKey)
		if err != nil {
			// One account password commonly serves both protocols.
			password = c.IMAP.Password
		}
		c.SMTP.Password = password
	}
	return nil
}

// Validate validates the configuration
func (c *Root) Validate() error {
	if c.IMAP.Host == "" {
		return fmt.Errorf("IMAP host is required")
	}
	if c.SMTP.Host == "" {
		return fmt.Errorf("SMTP host is required")
	}
	if c.IMAP.Port < 1 || c.IMAP.Port > 65535 {
		return fmt.Errorf("invalid IMAP port: %d", c.IMAP.Port)
	}
	if c.SMTP.Port < 1 || c.SMTP.Port > 65535 {
		return fmt.Errorf("invalid SMTP port: %d", c.SMTP.Port)
	}
	if c.IMAP.Username == "" {
		return fmt.Errorf("IMAP username is required")
	}
	if c.IMAP.Password == "" {
		return fmt.Errorf("IMAP password is required")
	}
	if c.PageSize < 1 {
		return fmt.Errorf("page size must be at least 1")
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch size must be at least 1")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

// TLSConfig returns the client TLS configuration for the IMAP server.
func (c IMAP) TLSConfig() *tls.Config {
	return tlsConfig(c.Host, c.InsecureSkipVerify)
}

// TLSConfig returns the client TLS configuration for the SMTP server.
func (c SMTP) TLSConfig() *tls.Config {
	return tlsConfig(c.Host, c.InsecureSkipVerify)
}

func tlsConfig(host string, insecure bool) *tls.Config {
	return &tls.Config{
		ServerName:         host,
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: insecure, //nolint:gosec
	}
}

// Usage writes the envconfig usage table to w.
func Usage(w io.Writer) error {
	tabs := tabwriter.NewWriter(w, 1, 0, 4, ' ', 0)
	if err := envconfig.Usagef(prefix, &Root{}, tabs, tableFormat); err != nil {
		return fmt.Errorf("unable to parse env config: %w", err)
	}
	return tabs.Flush()
}
