package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Story is a travel story owned by exactly one user.
type Story struct {
	gorm.Model
	Title           string    `gorm:"not null"`
	Text            string    `gorm:"column:story;type:text;not null"`
	VisitedLocation []string  `gorm:"serializer:json;type:text"`
	VisitedDate     time.Time `gorm:"not null"`
	ImageURL        string
	IsFavourite     bool `gorm:"not null;default:false;index"`
	AuthorID        uint `gorm:"not null;index"`
	Author          User `gorm:"foreignKey:AuthorID"`

	// lowercased copies of Title and Text, kept in sync by BeforeSave
	TitleFold string `gorm:"column:title_fold;type:text" json:"-"`
	TextFold  string `gorm:"column:story_fold;type:text" json:"-"`
}

// FoldText is the case folding applied to searchable text and search queries.
// SQL LOWER() only folds ASCII on SQLite, so folding happens in Go on both sides.
func FoldText(s string) string {
	return strings.ToLower(s)
}

func (s *Story) BeforeSave(_ *gorm.DB) error {
	s.TitleFold = FoldText(s.Title)
	s.TextFold = FoldText(s.Text)
	return nil
}

// Stats holds aggregate numbers about the stored data.
type Stats struct {
	Users           int64
	Stories         int64
	FavouriteCount  int64
	LatestStoryTime *time.Time
}

// feedOrder sorts favourites first, newest first otherwise.
func feedOrder(db *gorm.DB) *gorm.DB {
	return db.Order("is_favourite DESC").Order("created_at DESC").Order("id DESC")
}

func publicAuthor(db *gorm.DB) *gorm.DB {
	return db.Select("id", "username", "email")
}

func (c *Client) CreateStory(ctx context.Context, story *Story) error {
	if err := c.db.WithContext(ctx).Omit(clause.Associations).Create(story).Error; err != nil {
		log.Error("failed to create story", "error", err)
		return err
	}
	return nil
}

func (c *Client) GetStoryByID(ctx context.Context, id uint) (*Story, error) {
	var story Story
	if err := c.db.WithContext(ctx).First(&story, id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("failed to get story by ID", "error", err)
		}
		return nil, err
	}
	return &story, nil
}

func (c *Client) GetStoryByIDAndAuthor(ctx context.Context, id, authorID uint) (*Story, error) {
	var story Story
	if err := c.db.WithContext(ctx).Where("id = ? AND author_id = ?", id, authorID).First(&story).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("failed to get story by ID and author", "error", err)
		}
		return nil, err
	}
	return &story, nil
}

func (c *Client) GetAllStories(ctx context.Context) ([]Story, error) {
	var stories []Story
	if err := c.db.WithContext(ctx).
		Preload("Author", publicAuthor).
		Scopes(feedOrder).
		Find(&stories).Error; err != nil {
		log.Error("failed to get all stories", "error", err)
		return nil, err
	}
	return stories, nil
}

// UpdateStory overwrites all columns of the story, zero values included.
func (c *Client) UpdateStory(ctx context.Context, story *Story) error {
	if err := c.db.WithContext(ctx).Omit(clause.Associations).Save(story).Error; err != nil {
		log.Error("failed to update story", "error", err)
		return err
	}
	return nil
}

func (c *Client) SetStoryFavourite(ctx context.Context, id uint, isFavourite bool) error {
	result := c.db.WithContext(ctx).Model(&Story{}).Where("id = ?", id).Update("is_favourite", isFavourite)
	if result.Error != nil {
		log.Error("failed to update story favourite", "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteStory removes the story permanently.
func (c *Client) DeleteStory(ctx context.Context, id uint) error {
	result := c.db.WithContext(ctx).Unscoped().Delete(&Story{}, id)
	if result.Error != nil {
		log.Error("failed to delete story", "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SearchStories returns the author's stories whose title or text contains query
// case-insensitively, or whose location list contains query exactly.
func (c *Client) SearchStories(ctx context.Context, authorID uint, query string) ([]Story, error) {
	like := "%" + escapeLike(FoldText(query)) + "%"

	locationMatch := "EXISTS (SELECT 1 FROM json_each(stories.visited_location) WHERE json_each.value = ?)"
	if c.isPostgres() {
		locationMatch = "jsonb_exists(stories.visited_location::jsonb, ?)"
	}

	var stories []Story
	if err := c.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Where(c.db.
			Where(`title_fold LIKE ? ESCAPE '\'`, like).
			Or(`story_fold LIKE ? ESCAPE '\'`, like).
			Or(locationMatch, query)).
		Preload("Author", publicAuthor).
		Scopes(feedOrder).
		Find(&stories).Error; err != nil {
		log.Error("failed to search stories", "error", err)
		return nil, err
	}
	return stories, nil
}

func (c *Client) GetStoryImageURLs(ctx context.Context) ([]string, error) {
	var urls []string
	if err := c.db.WithContext(ctx).Model(&Story{}).Where("image_url <> ''").Pluck("image_url", &urls).Error; err != nil {
		log.Error("failed to get story image urls", "error", err)
		return nil, err
	}
	return urls, nil
}

func (c *Client) GetStats(ctx context.Context) (*Stats, error) {
	var stats Stats
	db := c.db.WithContext(ctx)

	if err := db.Model(&User{}).Count(&stats.Users).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&Story{}).Count(&stats.Stories).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&Story{}).Where("is_favourite = ?", true).Count(&stats.FavouriteCount).Error; err != nil {
		return nil, err
	}

	var latest Story
	err := db.Order("created_at DESC").First(&latest).Error
	switch {
	case err == nil:
		stats.LatestStoryTime = &latest.CreatedAt
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	return &stats, nil
}

// backfillFoldColumns fills the search columns of rows written before they existed.
func backfillFoldColumns(db *gorm.DB) error {
	var stories []Story
	return db.Where("title_fold IS NULL OR story_fold IS NULL").
		FindInBatches(&stories, 100, func(_ *gorm.DB, _ int) error {
			for _, story := range stories {
				if err := db.Model(&Story{}).Where("id = ?", story.ID).UpdateColumns(map[string]any{
					"title_fold": FoldText(story.Title),
					"story_fold": FoldText(story.Text),
				}).Error; err != nil {
					return err
				}
			}
			return nil
		}).Error
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
