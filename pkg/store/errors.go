package store

import "errors"

// Sentinel errors for storage operations.
var (
	// ErrNotFound indicates the key does not exist or the record is unreadable.
	ErrNotFound = errors.New("store: message not found")

	// ErrAttachmentNotFound indicates no attachment exists for the id.
	ErrAttachmentNotFound = errors.New("store: attachment not found")

	// ErrWriteFailed indicates a filesystem write could not complete.
	ErrWriteFailed = errors.New("store: write failed")
)
