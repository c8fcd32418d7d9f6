package tools

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/brandon/termmail/internal/email"
)

// SendEmailTool sends a new plain text email
type SendEmailTool struct {
	mailer Mailer
	logger *logrus.Logger
}

// NewSendEmailTool creates a new send email tool
func NewSendEmailTool(mailer Mailer, logger *logrus.Logger) *SendEmailTool {
	return &SendEmailTool{
		mailer: mailer,
		logger: logger,
	}
}

// Name returns the tool name
func (t *SendEmailTool) Name() string {
	return "send_email"
}

// Description returns the tool description
func (t *SendEmailTool) Description() string {
	return "Send a plain text email with optional CC and BCC"
}

// InputSchema returns the JSON schema for tool inputs
func (t *SendEmailTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"to":  addressSchema("Recipient address(es), comma-separated or an array"),
			"cc":  addressSchema("Optional: CC recipients"),
			"bcc": addressSchema("Optional: BCC recipients"),
			"subject": map[string]interface{}{
				"type":        "string",
				"description": "Email subject",
			},
			"body": map[string]interface{}{
				"type":        "string",
				"description": "Plain text body",
			},
		},
		"required": []string{"to", "subject"},
	}
}

// Execute executes the tool
func (t *SendEmailTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	msg := &email.EmailMessage{
		Subject: stringParam(params, "subject"),
	}
	msg.Body, _ = params["body"].(string)

	var err error
	if msg.To, err = addressParam(params, "to"); err != nil {
		return nil, err
	}
	if len(msg.To) == 0 {
		return nil, fmt.Errorf("to is required")
	}
	if msg.Cc, err = addressParam(params, "cc"); err != nil {
		return nil, err
	}
	if msg.Bcc, err = addressParam(params, "bcc"); err != nil {
		return nil, err
	}
	if msg.Subject == "" {
		return nil, fmt.Errorf("subject is required")
	}

	if err := t.mailer.Send(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	t.logger.WithFields(logrus.Fields{
		"recipients": len(msg.To) + len(msg.Cc) + len(msg.Bcc),
	}).Info("Sent email")

	return map[string]interface{}{
		"success": true,
		"message": "Email sent successfully",
	}, nil
}
