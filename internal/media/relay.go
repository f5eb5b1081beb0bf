package media

import (
	"context"
	"errors"
	"io"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/ccoveille/go-safecast"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/jon4hz/wanderlust/internal/apperr"
	"github.com/jon4hz/wanderlust/internal/config"
)

var validKey = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Relay accepts image uploads, hands them to the storage and serves them back.
type Relay struct {
	store     Storage
	cfg       *config.Config
	maxSize   int64
	maxWidth  int
	maxHeight int
	maxPixels int64
}

// NewRelay creates a new media relay on top of store.
func NewRelay(store Storage, cfg *config.Config) *Relay {
	return &Relay{
		store:     store,
		cfg:       cfg,
		maxSize:   cfg.Media.MaxUploadSize,
		maxWidth:  cfg.Media.MaxWidth,
		maxHeight: cfg.Media.MaxHeight,
		maxPixels: cfg.Media.MaxPixels,
	}
}

// Storage returns the underlying object store.
func (r *Relay) Storage() Storage {
	return r.store
}

// Upload stores an image and returns its public reference.
// Both the declared and the sniffed content type must be supported images.
func (r *Relay) Upload(ctx context.Context, body io.Reader, declaredType, filename string) (string, error) {
	if !IsAllowedType(declaredType) {
		return "", apperr.Validation("Only image files are allowed")
	}

	data, err := io.ReadAll(io.LimitReader(body, r.maxSize+1))
	if err != nil {
		return "", apperr.Validation("Unable to read upload")
	}
	if len(data) == 0 {
		return "", apperr.Validation("No file uploaded")
	}
	if int64(len(data)) > r.maxSize {
		return "", apperr.Validation("File is too large")
	}

	contentType, ext, ok := DetectImage(data)
	if !ok {
		log.Debug("Rejected upload", "filename", filename, "declared", declaredType, "detected", contentType)
		return "", apperr.Validation("Only image files are allowed")
	}

	if err := checkPixels(data, r.maxPixels); err != nil {
		if errors.Is(err, errTooManyPixels) {
			return "", apperr.Validation("Image dimensions are too large")
		}
		log.Debug("Rejected upload", "filename", filename, "error", err)
		return "", apperr.Validation("Invalid image file")
	}

	if scaled, resized, err := downscale(data, ext, r.maxWidth, r.maxHeight); err != nil {
		log.Warn("Failed to downscale image, storing original", "filename", filename, "error", err)
	} else if resized {
		log.Debug("Downscaled image", "filename", filename, "before", len(data), "after", len(scaled))
		data = scaled
	}

	key := uuid.NewString() + ext
	if err := r.store.Put(ctx, key, data, contentType); err != nil {
		return "", apperr.Upstream("Unable to upload image", err)
	}

	size, _ := safecast.Convert[uint64](len(data))
	log.Info("Image uploaded", "key", key, "filename", filename, "size", humanize.Bytes(size))

	return r.cfg.UploadURL(key), nil
}

// Read opens the referenced image.
func (r *Relay) Read(ctx context.Context, reference string) (*Object, error) {
	key, err := KeyFromReference(reference)
	if err != nil {
		return nil, apperr.NotFound("Image not found")
	}

	obj, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, apperr.NotFound("Image not found")
		}
		return nil, apperr.Upstream("Unable to read image", err)
	}
	return obj, nil
}

// Delete removes the referenced image.
func (r *Relay) Delete(ctx context.Context, reference string) error {
	if strings.TrimSpace(reference) == "" {
		return apperr.Validation("Invalid input")
	}

	key, err := KeyFromReference(reference)
	if err != nil {
		return apperr.NotFound("Image not found")
	}

	if err := r.store.Delete(ctx, key); err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return apperr.NotFound("Image not found")
		}
		return apperr.Upstream("Unable to delete image", err)
	}

	log.Info("Image deleted", "key", key)
	return nil
}

// KeyFromReference extracts the object key from a full upload URL or a bare key.
// Only the base name is used, so references can never point outside the store.
func KeyFromReference(reference string) (string, error) {
	reference = strings.TrimSpace(reference)
	if u, err := url.Parse(reference); err == nil {
		reference = u.Path
	}

	key := path.Base(reference)
	if !validKey.MatchString(key) {
		return "", ErrObjectNotFound
	}
	return key, nil
}
