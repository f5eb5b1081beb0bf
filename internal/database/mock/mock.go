package mock

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jon4hz/wanderlust/internal/database"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

var _ database.DB = (*MockDB)(nil)

// MockDB is a mock implementation of database.DB for testing.
type MockDB struct {
	mu sync.RWMutex

	// User storage
	users      map[uint]*database.User
	nextUserID uint

	// Story storage
	stories     map[uint]*database.Story
	nextStoryID uint

	// Error simulation
	CreateUserError            error
	GetUserByIDError           error
	GetUserByEmailError        error
	CreateStoryError           error
	GetStoryByIDError          error
	GetStoryByIDAndAuthorError error
	GetAllStoriesError         error
	UpdateStoryError           error
	SetStoryFavouriteError     error
	DeleteStoryError           error
	SearchStoriesError         error
	GetStoryImageURLsError     error
	GetStatsError              error
	PingError                  error

	// GetAllStoriesCalls counts how often the feed was read from storage.
	GetAllStoriesCalls int
}

// NewMockDB creates a new MockDB instance.
func NewMockDB() *MockDB {
	return &MockDB{
		users:       make(map[uint]*database.User),
		nextUserID:  1,
		stories:     make(map[uint]*database.Story),
		nextStoryID: 1,
	}
}

// Reset clears all data and errors from the mock database.
func (m *MockDB) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.users = make(map[uint]*database.User)
	m.nextUserID = 1
	m.stories = make(map[uint]*database.Story)
	m.nextStoryID = 1

	m.CreateUserError = nil
	m.GetUserByIDError = nil
	m.GetUserByEmailError = nil
	m.CreateStoryError = nil
	m.GetStoryByIDError = nil
	m.GetStoryByIDAndAuthorError = nil
	m.GetAllStoriesError = nil
	m.UpdateStoryError = nil
	m.SetStoryFavouriteError = nil
	m.DeleteStoryError = nil
	m.SearchStoriesError = nil
	m.GetStoryImageURLsError = nil
	m.GetStatsError = nil
	m.PingError = nil
	m.GetAllStoriesCalls = 0
}

// User operations

func (m *MockDB) CreateUser(ctx context.Context, user *database.User) error {
	if m.CreateUserError != nil {
		return m.CreateUserError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}

	now := time.Now()
	user.ID = m.nextUserID
	user.CreatedAt = now
	user.UpdatedAt = now
	m.nextUserID++

	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *MockDB) GetUserByID(ctx context.Context, id uint) (*database.User, error) {
	if m.GetUserByIDError != nil {
		return nil, m.GetUserByIDError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	u := *user
	return &u, nil
}

func (m *MockDB) GetUserByEmail(ctx context.Context, email string) (*database.User, error) {
	if m.GetUserByEmailError != nil {
		return nil, m.GetUserByEmailError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.users {
		if user.Email == email {
			u := *user
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// Story operations

func (m *MockDB) CreateStory(ctx context.Context, story *database.Story) error {
	if m.CreateStoryError != nil {
		return m.CreateStoryError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[story.AuthorID]; !ok {
		return gorm.ErrForeignKeyViolated
	}

	now := time.Now()
	story.ID = m.nextStoryID
	story.CreatedAt = now
	story.UpdatedAt = now
	m.nextStoryID++

	stored := *story
	stored.Author = database.User{}
	m.stories[story.ID] = &stored
	return nil
}

func (m *MockDB) GetStoryByID(ctx context.Context, id uint) (*database.Story, error) {
	if m.GetStoryByIDError != nil {
		return nil, m.GetStoryByIDError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	story, ok := m.stories[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	s := *story
	return &s, nil
}

func (m *MockDB) GetStoryByIDAndAuthor(ctx context.Context, id, authorID uint) (*database.Story, error) {
	if m.GetStoryByIDAndAuthorError != nil {
		return nil, m.GetStoryByIDAndAuthorError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	story, ok := m.stories[id]
	if !ok || story.AuthorID != authorID {
		return nil, gorm.ErrRecordNotFound
	}
	s := *story
	return &s, nil
}

func (m *MockDB) GetAllStories(ctx context.Context) ([]database.Story, error) {
	m.mu.Lock()
	m.GetAllStoriesCalls++
	m.mu.Unlock()

	if m.GetAllStoriesError != nil {
		return nil, m.GetAllStoriesError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.collect(func(*database.Story) bool { return true }), nil
}

func (m *MockDB) UpdateStory(ctx context.Context, story *database.Story) error {
	if m.UpdateStoryError != nil {
		return m.UpdateStoryError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.stories[story.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}

	story.CreatedAt = existing.CreatedAt
	story.UpdatedAt = time.Now()
	stored := *story
	stored.Author = database.User{}
	m.stories[story.ID] = &stored
	return nil
}

func (m *MockDB) SetStoryFavourite(ctx context.Context, id uint, isFavourite bool) error {
	if m.SetStoryFavouriteError != nil {
		return m.SetStoryFavouriteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	story, ok := m.stories[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	story.IsFavourite = isFavourite
	story.UpdatedAt = time.Now()
	return nil
}

func (m *MockDB) DeleteStory(ctx context.Context, id uint) error {
	if m.DeleteStoryError != nil {
		return m.DeleteStoryError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.stories[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.stories, id)
	return nil
}

func (m *MockDB) SearchStories(ctx context.Context, authorID uint, query string) ([]database.Story, error) {
	if m.SearchStoriesError != nil {
		return nil, m.SearchStoriesError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := database.FoldText(query)
	return m.collect(func(s *database.Story) bool {
		if s.AuthorID != authorID {
			return false
		}
		return strings.Contains(database.FoldText(s.Title), needle) ||
			strings.Contains(database.FoldText(s.Text), needle) ||
			lo.Contains(s.VisitedLocation, query)
	}), nil
}

func (m *MockDB) GetStoryImageURLs(ctx context.Context) ([]string, error) {
	if m.GetStoryImageURLsError != nil {
		return nil, m.GetStoryImageURLsError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	urls := lo.FilterMap(lo.Values(m.stories), func(s *database.Story, _ int) (string, bool) {
		return s.ImageURL, s.ImageURL != ""
	})
	return urls, nil
}

// Statistics

func (m *MockDB) GetStats(ctx context.Context) (*database.Stats, error) {
	if m.GetStatsError != nil {
		return nil, m.GetStatsError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &database.Stats{
		Users:   int64(len(m.users)),
		Stories: int64(len(m.stories)),
	}
	for _, s := range m.stories {
		if s.IsFavourite {
			stats.FavouriteCount++
		}
		if stats.LatestStoryTime == nil || s.CreatedAt.After(*stats.LatestStoryTime) {
			created := s.CreatedAt
			stats.LatestStoryTime = &created
		}
	}
	return stats, nil
}

func (m *MockDB) Ping(ctx context.Context) error {
	return m.PingError
}

func (m *MockDB) Close() error {
	return nil
}

// collect returns copies of all matching stories with their author attached,
// in feed order. The caller must hold the read lock.
func (m *MockDB) collect(match func(*database.Story) bool) []database.Story {
	stories := make([]database.Story, 0, len(m.stories))
	for _, s := range m.stories {
		if !match(s) {
			continue
		}
		story := *s
		if author, ok := m.users[s.AuthorID]; ok {
			story.Author = database.User{
				Model:    gorm.Model{ID: author.ID},
				Username: author.Username,
				Email:    author.Email,
			}
		}
		stories = append(stories, story)
	}

	slices.SortFunc(stories, func(a, b database.Story) int {
		if a.IsFavourite != b.IsFavourite {
			if a.IsFavourite {
				return -1
			}
			return 1
		}
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return int(b.ID) - int(a.ID)
	})
	return stories
}
