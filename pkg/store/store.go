// Package store persists message records and uploaded attachments as
// individual files under a configurable root, keyed by generated identifiers.
// Messages are wrapped in a JSON envelope carrying the storage key and the
// store time; attachments are copied verbatim under a generated-id filename.
package store

import (
	"context"
	"io"
	"time"

	"github.com/dmitrymomot/mailroom/pkg/message"
)

// Store is the persistence boundary of the message pipeline. Keys are opaque;
// the flat-file implementation can be swapped for an embedded store without
// touching the validator or delivery logic.
type Store interface {
	// Put persists a message under a freshly generated key and returns the key.
	// Keys are never reused, so an existing record is never overwritten.
	Put(ctx context.Context, msg *message.Message) (string, error)

	// Get retrieves a stored message by key. Returns ErrNotFound for missing
	// or unreadable records.
	Get(ctx context.Context, key string) (*message.Message, error)

	// List enumerates stored message summaries in filesystem order, applying
	// the optional domain filter and offset/limit. Callers that need
	// chronological order must re-sort.
	List(ctx context.Context, opts ListOptions) ([]Summary, error)

	// Delete removes a stored message record. The attachments it references
	// are left in place.
	Delete(ctx context.Context, key string) error

	// PutAttachment copies an uploaded file into the attachment store under a
	// generated id, preserving the original filename's extension.
	PutAttachment(ctx context.Context, originalName string, r io.Reader, size int64, contentType string) (*Attachment, error)

	// Cleanup deletes messages whose creation timestamp is older than the
	// retention window. Best effort: individual delete failures are skipped.
	// Returns the number of records deleted.
	Cleanup(ctx context.Context, retention time.Duration) (int, error)

	// ClearAll removes every stored message and attachment, returning the
	// counts of each.
	ClearAll(ctx context.Context) (messages, attachments int, err error)

	// Stats sums record counts and file sizes across both stores.
	Stats(ctx context.Context) (*Stats, error)
}

// ListOptions filters and pages List results.
type ListOptions struct {
	Domain string // exact match, empty for all
	Limit  int    // defaults to DefaultListLimit when <= 0
	Offset int
}

// Summary is the listing projection of a stored message.
type Summary struct {
	StorageKey string `json:"storage_key"`
	StoredAt   string `json:"stored_at"`
	MessageID  string `json:"message_id"`
	Domain     string `json:"domain"`
	From       string `json:"from"`
	To         string `json:"to"`
	Subject    string `json:"subject"`
	Timestamp  int64  `json:"timestamp"`
}

// Attachment describes a file copied into the attachment store. It is owned
// by the message that references it, but retention cleanup of the message
// does not cascade here; only ClearAll removes both.
type Attachment struct {
	ID           string `json:"attachment_id"`
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
	Size         int64  `json:"size"`
	ContentType  string `json:"type"`
	Path         string `json:"path"`
}

// Stats aggregates storage usage.
type Stats struct {
	TotalMessages    int     `json:"total_messages"`
	TotalAttachments int     `json:"total_attachments"`
	TotalSizeBytes   int64   `json:"total_size_bytes"`
	TotalSizeMB      float64 `json:"total_size_mb"`
	StoragePath      string  `json:"storage_path"`
}

// envelope is the on-disk JSON wrapper around a stored message.
type envelope struct {
	StorageKey string           `json:"storage_key"`
	StoredAt   string           `json:"stored_at"`
	Message    *message.Message `json:"message"`
}
