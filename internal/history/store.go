// Package history defines the interface and implementations for FormDrop's
// upload ledger, which records the outcome of every processed file. The
// ledger lives outside the uploads directory so the persisted namespace
// stays a flat directory of nothing but uploaded files.
package history

import (
	"context"
	"time"
)

// Upload outcome values recorded in the ledger.
const (
	StatusUploaded = "uploaded"
	StatusRejected = "rejected"
)

// UploadRecord is one per-file outcome: what the client sent, what it was
// stored as (for accepted files), and why it was rejected (for refused ones).
type UploadRecord struct {
	ID           string
	Filename     string
	StoredName   string
	ContentType  string
	SizeBytes    int64
	Status       string
	ErrorMessage string
	CreatedAt    time.Time
}

// Store is the upload ledger interface. Implementations must be safe for
// concurrent use; requests record outcomes independently.
type Store interface {
	// RecordUpload appends one outcome to the ledger.
	RecordUpload(ctx context.Context, rec *UploadRecord) error

	// ListUploads returns the most recent outcomes, newest first, at most
	// limit entries. A non-positive limit applies the implementation default.
	ListUploads(ctx context.Context, limit int) ([]UploadRecord, error)

	// Close releases any backing resources.
	Close() error
}
