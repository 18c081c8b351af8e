// Package storage implements the uploads namespace: a flat directory of
// persisted files on the local filesystem.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/formdrop/formdrop/internal/uid"
)

// ErrNameTaken is returned by Save when the target name already exists in
// the namespace. A concurrent request may have published the same resolved
// name between the advisory probe and the write; the caller reacts by
// retrying with the next dedup candidate.
var ErrNameTaken = errors.New("upload name already taken")

// LocalStore persists uploaded files as a flat directory: no subdirectories,
// no metadata sidecar files. Writes are crash-safe and race-free: data goes
// to a temp file, is fsynced, and is then published onto the final name with
// an atomic create-if-absent link, so two concurrent requests can never
// silently overwrite each other.
type LocalStore struct {
	// Dir is the uploads directory all files are stored directly under.
	Dir string
}

// NewLocalStore creates a LocalStore rooted at the given directory.
// It creates the directory and the temp directory if they do not exist.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating uploads directory %q: %w", dir, err)
	}
	// Create the .tmp directory for atomic writes.
	if err := os.MkdirAll(filepath.Join(dir, ".tmp"), 0o755); err != nil {
		return nil, fmt.Errorf("creating temp directory: %w", err)
	}
	return &LocalStore{Dir: dir}, nil
}

// CleanTempFiles removes all files in the .tmp directory. This is called on
// startup as part of crash-only recovery. Any temp files left behind indicate
// incomplete writes from a previous crash.
func (s *LocalStore) CleanTempFiles() error {
	tmpDir := filepath.Join(s.Dir, ".tmp")
	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading temp directory: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			os.Remove(filepath.Join(tmpDir, entry.Name()))
		}
	}
	return nil
}

// Exists reports whether a file with the given name is present in the
// namespace. The answer is advisory: only Save's exclusive publish is
// authoritative under concurrency.
func (s *LocalStore) Exists(name string) (bool, error) {
	if err := validName(name); err != nil {
		return false, err
	}
	info, err := os.Stat(filepath.Join(s.Dir, name))
	if err == nil {
		return !info.IsDir(), nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("checking %q: %w", name, err)
}

// Save writes body to the namespace under name. The data is written to a
// temp file and fsynced first, then published with os.Link, which fails if
// the target already exists. On a lost publish race Save returns
// ErrNameTaken and leaves the namespace untouched.
func (s *LocalStore) Save(ctx context.Context, name string, body []byte) error {
	if err := validName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tmpPath := s.tempPath()
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	if _, err := tmpFile.Write(body); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing upload data: %w", err)
	}

	// Fsync before publish to guarantee durability.
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("syncing temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	// Atomic create-if-absent publish: link fails with EEXIST if the name
	// was taken since the advisory probe.
	err = os.Link(tmpPath, filepath.Join(s.Dir, name))
	os.Remove(tmpPath)
	if err != nil {
		if os.IsExist(err) {
			return ErrNameTaken
		}
		return fmt.Errorf("publishing upload %q: %w", name, err)
	}
	return nil
}

// HealthCheck verifies that the uploads directory is accessible.
func (s *LocalStore) HealthCheck(ctx context.Context) error {
	_, err := os.Stat(s.Dir)
	return err
}

// tempPath returns a unique temporary file path in the .tmp directory.
func (s *LocalStore) tempPath() string {
	return filepath.Join(s.Dir, ".tmp", "tmp-"+uid.New())
}

// validName rejects names that would escape the flat namespace. Resolved
// names are already sanitized; this guards direct callers.
func validName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid upload name %q", name)
	}
	return nil
}
