// Package story implements the travel story operations on top of the database.
package story

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jon4hz/wanderlust/internal/apperr"
	"github.com/jon4hz/wanderlust/internal/database"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// FeedCache caches the shared story feed.
type FeedCache interface {
	Get(ctx context.Context) ([]database.Story, bool)
	Generation() uint64
	Set(ctx context.Context, gen uint64, stories []database.Story)
	Invalidate(ctx context.Context)
}

// Input holds the mutable fields of a story.
type Input struct {
	Title           string
	Text            string
	VisitedLocation []string
	VisitedDate     time.Time
	ImageURL        string
}

// Service implements the story operations.
type Service struct {
	db              database.DB
	cache           FeedCache
	defaultImageURL string
}

// NewService creates a new story service. cache may be nil.
func NewService(db database.DB, cache FeedCache, defaultImageURL string) *Service {
	return &Service{
		db:              db,
		cache:           cache,
		defaultImageURL: defaultImageURL,
	}
}

// Create stores a new story owned by ownerID.
func (s *Service) Create(ctx context.Context, ownerID uint, in Input) (*database.Story, error) {
	in = in.normalize()
	if !in.complete() || in.ImageURL == "" {
		return nil, apperr.Validation("All fields are required")
	}

	story := &database.Story{
		AuthorID: ownerID,
	}
	in.apply(story)

	if err := s.db.CreateStory(ctx, story); err != nil {
		return nil, apperr.Upstream("Unable to create travel story", err)
	}
	s.invalidate(ctx)

	log.Debug("Story created", "id", story.ID, "author", ownerID)
	return story, nil
}

// ListAll returns every story, favourites first.
func (s *Service) ListAll(ctx context.Context) ([]database.Story, error) {
	var gen uint64
	if s.cache != nil {
		if stories, ok := s.cache.Get(ctx); ok {
			return stories, nil
		}
		gen = s.cache.Generation()
	}

	stories, err := s.db.GetAllStories(ctx)
	if err != nil {
		return nil, apperr.Upstream("Unable to fetch the stories", err)
	}

	if s.cache != nil {
		s.cache.Set(ctx, gen, stories)
	}
	return stories, nil
}

// Edit overwrites the mutable fields of a story owned by ownerID.
// An empty image falls back to the default image.
func (s *Service) Edit(ctx context.Context, ownerID, storyID uint, in Input) (*database.Story, error) {
	in = in.normalize()
	if !in.complete() {
		return nil, apperr.Validation("All fields are required")
	}
	if in.ImageURL == "" {
		in.ImageURL = s.defaultImageURL
	}

	story, err := s.assertOwner(ctx, ownerID, storyID)
	if err != nil {
		return nil, err
	}

	in.apply(story)
	if err := s.db.UpdateStory(ctx, story); err != nil {
		return nil, apperr.Upstream("Unable to update travel story", err)
	}
	s.invalidate(ctx)

	return story, nil
}

// Delete removes a story owned by ownerID.
func (s *Service) Delete(ctx context.Context, ownerID, storyID uint) error {
	if _, err := s.assertOwner(ctx, ownerID, storyID); err != nil {
		return err
	}

	if err := s.db.DeleteStory(ctx, storyID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("Travel story not found")
		}
		return apperr.Upstream("Unable to delete travel story", err)
	}
	s.invalidate(ctx)

	log.Debug("Story deleted", "id", storyID, "author", ownerID)
	return nil
}

// SetFavourite sets the favourite flag of any existing story.
func (s *Service) SetFavourite(ctx context.Context, storyID uint, isFavourite bool) (*database.Story, error) {
	if err := s.db.SetStoryFavourite(ctx, storyID, isFavourite); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Story not found")
		}
		return nil, apperr.Upstream("Unable to update story favourite status", err)
	}
	s.invalidate(ctx)

	story, err := s.db.GetStoryByID(ctx, storyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Story not found")
		}
		return nil, apperr.Upstream("Unable to update story favourite status", err)
	}
	return story, nil
}

// Search returns the stories of ownerID matching query in title, text or locations.
func (s *Service) Search(ctx context.Context, ownerID uint, query string) ([]database.Story, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.Validation("Query is required")
	}

	stories, err := s.db.SearchStories(ctx, ownerID, query)
	if err != nil {
		return nil, apperr.Upstream("Unable to search", err)
	}
	return stories, nil
}

// assertOwner loads the story if it exists and belongs to ownerID.
// A story owned by someone else is reported as not found.
func (s *Service) assertOwner(ctx context.Context, ownerID, storyID uint) (*database.Story, error) {
	story, err := s.db.GetStoryByIDAndAuthor(ctx, storyID, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Travel story not found")
		}
		return nil, apperr.Upstream("Unable to load travel story", err)
	}
	return story, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

func (in Input) normalize() Input {
	in.Title = strings.TrimSpace(in.Title)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.VisitedLocation = lo.Compact(lo.Map(in.VisitedLocation, func(l string, _ int) string {
		return strings.TrimSpace(l)
	}))
	return in
}

func (in Input) complete() bool {
	return in.Title != "" &&
		strings.TrimSpace(in.Text) != "" &&
		len(in.VisitedLocation) > 0 &&
		!in.VisitedDate.IsZero()
}

func (in Input) apply(story *database.Story) {
	story.Title = in.Title
	story.Text = in.Text
	story.VisitedLocation = in.VisitedLocation
	story.VisitedDate = in.VisitedDate
	story.ImageURL = in.ImageURL
}
