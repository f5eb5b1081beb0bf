package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"github.com/jon4hz/wanderlust/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DB is the persistence interface used by the services.
type DB interface {
	// Users
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id uint) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// Stories
	CreateStory(ctx context.Context, story *Story) error
	GetStoryByID(ctx context.Context, id uint) (*Story, error)
	GetStoryByIDAndAuthor(ctx context.Context, id, authorID uint) (*Story, error)
	GetAllStories(ctx context.Context) ([]Story, error)
	UpdateStory(ctx context.Context, story *Story) error
	SetStoryFavourite(ctx context.Context, id uint, isFavourite bool) error
	DeleteStory(ctx context.Context, id uint) error
	SearchStories(ctx context.Context, authorID uint, query string) ([]Story, error)
	GetStoryImageURLs(ctx context.Context) ([]string, error)

	// Statistics
	GetStats(ctx context.Context) (*Stats, error)

	Ping(ctx context.Context) error
	Close() error
}

var _ DB = (*Client)(nil) // Ensure Client implements DB

// Client wraps the gorm.DB instance.
type Client struct {
	db *gorm.DB
}

// New creates a new database connection and performs migrations.
func New(cfg *config.DatabaseConfig) (*Client, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DatabaseDriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	default:
		if dir := filepath.Dir(cfg.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dialector = sqlite.Open(cfg.Path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newLogger(),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err := db.AutoMigrate(
		&User{},
		&Story{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := backfillFoldColumns(db); err != nil {
		return nil, fmt.Errorf("failed to backfill search columns: %w", err)
	}

	return &Client{db: db}, nil
}

// Ping checks that the database is reachable.
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (c *Client) isPostgres() bool {
	return c.db.Dialector.Name() == "postgres"
}
