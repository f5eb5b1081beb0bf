// Package media stores uploaded story images and serves them back.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jon4hz/wanderlust/internal/config"
)

var (
	// ErrObjectNotFound is returned when the store has no object for a key.
	ErrObjectNotFound = errors.New("object not found")
	// ErrInsufficientSpace is returned when the local store is running out of disk.
	ErrInsufficientSpace = errors.New("insufficient storage space")
)

// Object is a stored image opened for reading. The caller must close Body.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
	ModTime     time.Time
}

// ObjectInfo describes a stored object without opening it.
type ObjectInfo struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// Storage is a flat key value store for image bytes.
type Storage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]ObjectInfo, error)
}

// NewStorage creates the storage backend selected in the config.
func NewStorage(ctx context.Context, cfg *config.MediaConfig) (Storage, error) {
	switch cfg.Backend {
	case config.MediaBackendS3:
		return NewS3Storage(ctx, cfg.S3)
	case config.MediaBackendLocal, "":
		return NewLocalStorage(cfg.Local)
	default:
		return nil, fmt.Errorf("unknown media backend %q", cfg.Backend)
	}
}
