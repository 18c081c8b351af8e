package history

import (
	"context"
	"sync"
	"time"

	"github.com/formdrop/formdrop/internal/uid"
)

// defaultListLimit bounds ListUploads when the caller passes no limit.
const defaultListLimit = 100

// MemoryStore is an in-memory ledger for tests and metrics-free deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	records []UploadRecord
}

// NewMemoryStore creates an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) RecordUpload(ctx context.Context, rec *UploadRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recCopy := *rec
	if recCopy.ID == "" {
		recCopy.ID = uid.New()
	}
	if recCopy.CreatedAt.IsZero() {
		recCopy.CreatedAt = time.Now().UTC()
	}
	s.records = append(s.records, recCopy)
	return nil
}

func (s *MemoryStore) ListUploads(ctx context.Context, limit int) ([]UploadRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = defaultListLimit
	}

	// Newest first.
	out := make([]UploadRecord, 0, min(limit, len(s.records)))
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
