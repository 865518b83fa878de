// Package storage abstracts the object store that holds uploaded
// payment receipts. The service layer only sees the Store
// interface; deployments that outgrow local disk can swap in a
// bucket-backed implementation without touching the booking flow.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store persists an uploaded object and returns a URL under which
// it can later be retrieved.
type Store interface {
	Save(ctx context.Context, filename string, r io.Reader) (url string, err error)
}

// DiskStore writes objects to a local directory and serves them
// under BaseURL. Object keys are random UUIDs so an uploaded
// filename can never traverse outside Dir or collide with another
// user's receipt.
type DiskStore struct {
	Dir     string
	BaseURL string
}

func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{Dir: dir, BaseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Save streams r to disk under a fresh UUID key, keeping only the
// original file extension.
func (s *DiskStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	key := uuid.New().String() + ext
	path := filepath.Join(s.Dir, key)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create receipt file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write receipt file: %w", err)
	}
	return s.BaseURL + "/" + key, nil
}
