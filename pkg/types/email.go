package types

import "time"

// Address is one mailbox address of a header field
type Address struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// MessageSummary represents one header on a page of the message list
type MessageSummary struct {
	Index   int       `json:"index"`
	Seq     uint32    `json:"seq"`
	Subject string    `json:"subject"`
	From    Address   `json:"from"`
	To      []Address `json:"to,omitempty"`
	Cc      []Address `json:"cc,omitempty"`
	Bcc     []Address `json:"bcc,omitempty"`
	Read    bool      `json:"read"`
}

// Page represents the current page of the selected mailbox
type Page struct {
	Mailbox   string           `json:"mailbox"`
	Page      int              `json:"page"`
	PageSize  int              `json:"page_size"`
	Exhausted bool             `json:"exhausted"`
	Messages  []MessageSummary `json:"messages"`
}

// MessageBody represents the plain text of one message
type MessageBody struct {
	Seq     uint32  `json:"seq"`
	Subject string  `json:"subject"`
	From    Address `json:"from"`
	Text    string  `json:"text"`
}

// EmailSummary represents an archived header (for search results)
type EmailSummary struct {
	ID          int64     `json:"id"`
	Mailbox     string    `json:"mailbox"`
	Seq         uint32    `json:"seq"`
	Subject     string    `json:"subject"`
	SenderName  string    `json:"sender_name"`
	SenderEmail string    `json:"sender_email"`
	Recipients  string    `json:"recipients,omitempty"`
	Read        bool      `json:"read"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// Mailbox represents an email folder/mailbox
type Mailbox struct {
	Name        string     `json:"name"`
	DisplayName string     `json:"display_name"`
	Selectable  bool       `json:"selectable"`
	HasChildren bool       `json:"has_children"`
	LastSynced  *time.Time `json:"last_synced,omitempty"`
}
