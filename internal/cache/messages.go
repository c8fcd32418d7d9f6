// Package cache holds the paginated, lazily extended view of a mailbox's
// message headers.
package cache

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/brandon/termmail/internal/imap"
)

const (
	DefaultPageSize  = 20
	DefaultBatchSize = 20
)

// ErrIndexOutOfRange is returned by GetBody for an index outside the
// current page.
var ErrIndexOutOfRange = errors.New("cache: index out of range")

// Fetcher is the part of an IMAP session the cache reads from.
type Fetcher interface {
	MessageCount() (uint32, error)
	FetchHeaders(r imap.SeqRange) ([]imap.MessageHeader, error)
	ReadEmailText(id uint32) (string, error)
}

// Recorder receives every batch of headers the cache appends.
type Recorder interface {
	RecordHeaders(mailbox string, headers []imap.MessageHeader) error
}

// Options configures a MessageCache.
type Options struct {
	PageSize int
	// BatchSize is the minimum number of headers fetched per round trip.
	// A page that needs more fetches exactly what it needs.
	BatchSize int
	Mailbox   string
	Recorder  Recorder
	Logger    *logrus.Logger
}

// MessageCache pages through a mailbox newest first. Headers are fetched on
// demand and only ever appended, so the cached sequence stays in strictly
// descending sequence-number order.
type MessageCache struct {
	fetcher  Fetcher
	recorder Recorder
	logger   *logrus.Logger
	mailbox  string

	pageSize  int
	batchSize int
	page      int

	headers []imap.MessageHeader
	// boundary is one above the highest sequence number not yet fetched.
	boundary  uint32
	seeded    bool
	exhausted bool
}

// NewMessageCache creates an empty cache over f.
func NewMessageCache(f Fetcher, opts Options) *MessageCache {
	if opts.PageSize < 1 {
		opts.PageSize = DefaultPageSize
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	return &MessageCache{
		fetcher:   f,
		recorder:  opts.Recorder,
		logger:    opts.Logger,
		mailbox:   opts.Mailbox,
		pageSize:  opts.PageSize,
		batchSize: opts.BatchSize,
	}
}

// CurrentPage returns the headers of the current page, fetching older
// batches until the page is full or the mailbox is exhausted. The last page
// may be short, and a page past the end is empty.
func (c *MessageCache) CurrentPage() ([]imap.MessageHeader, error) {
	start := c.page * c.pageSize
	end := start + c.pageSize

	for len(c.headers) < end && !c.exhausted {
		if err := c.fetchBatch(end - len(c.headers)); err != nil {
			return nil, err
		}
	}

	if start >= len(c.headers) {
		return []imap.MessageHeader{}, nil
	}
	if end > len(c.headers) {
		end = len(c.headers)
	}
	page := make([]imap.MessageHeader, end-start)
	copy(page, c.headers[start:end])
	return page, nil
}

// NextPage moves to the next older page.
func (c *MessageCache) NextPage() {
	c.page++
}

// PrevPage moves to the next newer page, stopping at the first.
func (c *MessageCache) PrevPage() {
	if c.page > 0 {
		c.page--
	}
}

// Page returns the zero-based current page number.
func (c *MessageCache) Page() int {
	return c.page
}

// PageSize returns the number of headers per page.
func (c *MessageCache) PageSize() int {
	return c.pageSize
}

// Len returns the number of cached headers.
func (c *MessageCache) Len() int {
	return len(c.headers)
}

// Exhausted reports whether the oldest message has been fetched.
func (c *MessageCache) Exhausted() bool {
	return c.exhausted
}

// GetBody returns the plain text of the message at index on the current
// page.
func (c *MessageCache) GetBody(index int) (string, error) {
	page, err := c.CurrentPage()
	if err != nil {
		return "", err
	}
	if index < 0 || index >= len(page) {
		return "", fmt.Errorf("%w: %d (page has %d)", ErrIndexOutOfRange, index, len(page))
	}
	return c.fetcher.ReadEmailText(page[index].ID)
}

// fetchBatch fetches the next older run of at least need headers. A failed
// fetch leaves the cache untouched.
func (c *MessageCache) fetchBatch(need int) error {
	if !c.seeded {
		count, err := c.fetcher.MessageCount()
		if err != nil {
			return fmt.Errorf("failed to get message count: %w", err)
		}
		c.boundary = count + 1
		c.seeded = true
	}
	if c.boundary <= 1 {
		c.exhausted = true
		return nil
	}

	n := uint32(c.batchSize)
	if uint32(need) > n {
		n = uint32(need)
	}
	stop := c.boundary - 1
	start := uint32(1)
	if stop > n {
		start = stop - n + 1
	}

	r := imap.Between(start, stop)
	batch, err := c.fetcher.FetchHeaders(r)
	if err != nil {
		return fmt.Errorf("failed to fetch headers %s: %w", r, err)
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].ID > batch[j].ID })

	c.headers = append(c.headers, batch...)
	c.boundary = start
	c.exhausted = start == 1

	c.logger.WithFields(logrus.Fields{
		"mailbox": c.mailbox,
		"range":   r.String(),
		"count":   len(batch),
	}).Debug("Extended message cache")

	if c.recorder != nil && len(batch) > 0 {
		if err := c.recorder.RecordHeaders(c.mailbox, batch); err != nil {
			c.logger.WithError(err).WithField("mailbox", c.mailbox).Warn("Failed to record headers")
		}
	}
	return nil
}
