package media

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"
)

// ImageReferences lists the image references currently attached to stories.
type ImageReferences interface {
	GetStoryImageURLs(ctx context.Context) ([]string, error)
}

// SweepResult summarizes a janitor run.
type SweepResult struct {
	Scanned int
	Removed int
	Freed   int64
}

// Janitor removes uploads that no story references.
type Janitor struct {
	store       Storage
	refs        ImageReferences
	gracePeriod time.Duration
	now         func() time.Time
}

// NewJanitor creates a new janitor. Objects younger than gracePeriod are kept,
// since an upload is attached to its story only after it was stored.
func NewJanitor(store Storage, refs ImageReferences, gracePeriod time.Duration) *Janitor {
	return &Janitor{
		store:       store,
		refs:        refs,
		gracePeriod: gracePeriod,
		now:         time.Now,
	}
}

// Sweep deletes every orphaned object older than the grace period.
func (j *Janitor) Sweep(ctx context.Context) (*SweepResult, error) {
	urls, err := j.refs.GetStoryImageURLs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load image references: %w", err)
	}

	referenced := lo.SliceToMap(
		lo.FilterMap(urls, func(u string, _ int) (string, bool) {
			key, err := KeyFromReference(u)
			return key, err == nil
		}),
		func(key string) (string, struct{}) { return key, struct{}{} },
	)

	objects, err := j.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}

	result := &SweepResult{Scanned: len(objects)}
	cutoff := j.now().Add(-j.gracePeriod)

	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if _, ok := referenced[obj.Key]; ok {
			continue
		}
		if obj.ModTime.After(cutoff) {
			continue
		}

		if err := j.store.Delete(ctx, obj.Key); err != nil {
			if !errors.Is(err, ErrObjectNotFound) {
				log.Warn("Failed to remove orphaned upload", "key", obj.Key, "error", err)
			}
			continue
		}
		log.Debug("Removed orphaned upload", "key", obj.Key, "age", j.now().Sub(obj.ModTime).Round(time.Second))
		result.Removed++
		result.Freed += obj.Size
	}

	return result, nil
}
