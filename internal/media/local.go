package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/jon4hz/wanderlust/internal/config"
	"github.com/shirou/gopsutil/v3/disk"
)

// LocalStorage keeps objects as files in a single directory.
type LocalStorage struct {
	dir          string
	minFreeSpace uint64
	freeSpace    func(ctx context.Context, path string) (uint64, error)
}

var _ Storage = (*LocalStorage)(nil)

// NewLocalStorage creates the upload directory if needed.
func NewLocalStorage(cfg *config.LocalStorageConfig) (*LocalStorage, error) {
	if cfg == nil || cfg.Dir == "" {
		return nil, errors.New("local storage directory is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStorage{
		dir:          cfg.Dir,
		minFreeSpace: cfg.MinFreeSpace,
		freeSpace:    diskFreeSpace,
	}, nil
}

func diskFreeSpace(ctx context.Context, path string) (uint64, error) {
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}

func (l *LocalStorage) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return "", ErrObjectNotFound
	}
	return filepath.Join(l.dir, key), nil
}

func (l *LocalStorage) Put(ctx context.Context, key string, data []byte, _ string) error {
	target, err := l.path(key)
	if err != nil {
		return fmt.Errorf("invalid key %q", key)
	}

	if l.minFreeSpace > 0 {
		free, err := l.freeSpace(ctx, l.dir)
		if err != nil {
			log.Warn("Failed to check free disk space", "dir", l.dir, "error", err)
		} else if free < l.minFreeSpace+uint64(len(data)) {
			log.Error("Refusing upload, disk almost full",
				"free", humanize.IBytes(free),
				"required", humanize.IBytes(l.minFreeSpace))
			return ErrInsufficientSpace
		}
	}

	tmp, err := os.CreateTemp(l.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck,gosec
		return fmt.Errorf("failed to write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write upload: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil { //nolint:gosec
		return err
	}
	return os.Rename(tmp.Name(), target)
}

func (l *LocalStorage) Get(_ context.Context, key string) (*Object, error) {
	p, err := l.path(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close() //nolint:errcheck,gosec
		return nil, err
	}
	if info.IsDir() {
		f.Close() //nolint:errcheck,gosec
		return nil, ErrObjectNotFound
	}

	return &Object{
		Body:        f,
		ContentType: ContentTypeByKey(key),
		Size:        info.Size(),
		ModTime:     info.ModTime(),
	}, nil
}

func (l *LocalStorage) Delete(_ context.Context, key string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrObjectNotFound
		}
		return err
	}
	return nil
}

func (l *LocalStorage) List(_ context.Context) ([]ObjectInfo, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, err
	}

	objects := make([]ObjectInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		objects = append(objects, ObjectInfo{
			Key:     entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return objects, nil
}
