package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ObjectStore is the contract for storing verification documents.
// References are opaque strings; callers must not parse them.
type ObjectStore interface {
	Store(ctx context.Context, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, ref string) error
}

// DiskStore stores objects on the local filesystem under a base directory
type DiskStore struct {
	baseDir string
}

// NewDiskStore creates a disk-backed object store rooted at baseDir
func NewDiskStore(baseDir string) (*DiskStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}
	return &DiskStore{baseDir: baseDir}, nil
}

// Store writes the object and returns its reference
func (s *DiskStore) Store(ctx context.Context, data []byte, contentType string) (string, error) {
	name := uuid.New().String() + extensionFor(contentType)
	path := filepath.Join(s.baseDir, name)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to store object: %w", err)
	}

	return name, nil
}

// Delete removes a stored object. Deleting a missing object is not an error.
func (s *DiskStore) Delete(ctx context.Context, ref string) error {
	// Refs are bare file names; reject anything trying to escape baseDir.
	if filepath.Base(ref) != ref {
		return fmt.Errorf("invalid object reference: %s", ref)
	}

	err := os.Remove(filepath.Join(s.baseDir, ref))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "application/pdf":
		return ".pdf"
	}
	return ""
}
