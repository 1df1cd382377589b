// Package uploads stores publish-time attachments and hands back a stable,
// externally reachable URL plus the sanitized original filename. Backends:
// local filesystem (served by this process) and S3.
package uploads

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// MaxBytes is the attachment size limit.
const MaxBytes = 10 << 20 // 10 MiB

var (
	// ErrTooLarge is returned when an attachment exceeds MaxBytes.
	ErrTooLarge = errors.New("uploads: attachment exceeds 10 MiB limit")
	// ErrBadFilename is returned when the original filename contains
	// disallowed characters even after sanitization.
	ErrBadFilename = errors.New("uploads: disallowed filename")
)

// Store saves one attachment and returns its public URL and display name.
type Store interface {
	Save(ctx context.Context, r io.Reader, originalName string) (url, name string, err error)
}

var filenameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// SanitizeFilename reduces a client-supplied filename to a safe display
// name: path components are dropped, spaces become underscores, and
// anything outside [A-Za-z0-9._-] is rejected.
func SanitizeFilename(name string) (string, error) {
	name = filepath.Base(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "_")
	if name == "." || name == ".." || !filenameRe.MatchString(name) {
		return "", ErrBadFilename
	}
	return name, nil
}

// readLimited drains r up to MaxBytes, failing on oversized input.
func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

// storageKey prefixes the sanitized name with a short random component so
// repeated uploads of the same filename never collide.
func storageKey(clean string) string {
	return uuid.New().String()[:8] + "-" + clean
}

// LocalStore writes attachments under a directory that the HTTP server
// exposes at /uploads/.
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore creates the upload directory if needed. baseURL is the
// public address of this service.
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the directory attachments are written to.
func (s *LocalStore) Dir() string { return s.dir }

// Save stores the attachment on disk and returns its served URL.
func (s *LocalStore) Save(ctx context.Context, r io.Reader, originalName string) (string, string, error) {
	clean, err := SanitizeFilename(originalName)
	if err != nil {
		return "", "", err
	}
	data, err := readLimited(r)
	if err != nil {
		return "", "", err
	}

	stored := storageKey(clean)
	if err := os.WriteFile(filepath.Join(s.dir, stored), data, 0o644); err != nil {
		return "", "", err
	}
	return s.baseURL + "/uploads/" + stored, clean, nil
}
