package story

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jon4hz/wanderlust/internal/apperr"
	"github.com/jon4hz/wanderlust/internal/cache"
	"github.com/jon4hz/wanderlust/internal/config"
	"github.com/jon4hz/wanderlust/internal/database"
	"github.com/jon4hz/wanderlust/internal/database/mock"
	"github.com/stretchr/testify/suite"
)

const defaultImage = "http://localhost:3000/assets/wanderlust.jpeg"

type ServiceTestSuite struct {
	suite.Suite
	db      *mock.MockDB
	service *Service
	ctx     context.Context
	alice   uint
	bob     uint
}

func (s *ServiceTestSuite) SetupTest() {
	s.db = mock.NewMockDB()
	s.ctx = context.Background()
	s.service = NewService(s.db, cache.NewFeedCache(&config.CacheConfig{
		Type: config.CacheTypeMemory,
		TTL:  time.Minute,
	}), defaultImage)

	alice := &database.User{Email: "alice@x.io", Username: "alice", Password: "hash"}
	bob := &database.User{Email: "bob@x.io", Username: "bob", Password: "hash"}
	s.Require().NoError(s.db.CreateUser(s.ctx, alice))
	s.Require().NoError(s.db.CreateUser(s.ctx, bob))
	s.alice, s.bob = alice.ID, bob.ID
}

func input(title string, locations ...string) Input {
	return Input{
		Title:           title,
		Text:            "A story about " + title,
		VisitedLocation: locations,
		VisitedDate:     time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		ImageURL:        "http://localhost:3000/uploads/" + title + ".png",
	}
}

func (s *ServiceTestSuite) create(owner uint, title string, locations ...string) *database.Story {
	story, err := s.service.Create(s.ctx, owner, input(title, locations...))
	s.Require().NoError(err)
	return story
}

func (s *ServiceTestSuite) TestCreate() {
	story := s.create(s.alice, "Rome", "Italy", "  ")
	s.NotZero(story.ID)
	s.Equal(s.alice, story.AuthorID)
	s.Equal([]string{"Italy"}, story.VisitedLocation)
	s.False(story.IsFavourite)
}

func (s *ServiceTestSuite) TestCreate_Validation() {
	tests := []struct {
		name   string
		modify func(*Input)
	}{
		{name: "missing title", modify: func(in *Input) { in.Title = " " }},
		{name: "missing text", modify: func(in *Input) { in.Text = "" }},
		{name: "missing locations", modify: func(in *Input) { in.VisitedLocation = nil }},
		{name: "blank locations", modify: func(in *Input) { in.VisitedLocation = []string{"", " "} }},
		{name: "missing date", modify: func(in *Input) { in.VisitedDate = time.Time{} }},
		{name: "missing image", modify: func(in *Input) { in.ImageURL = "" }},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			in := input("Rome", "Italy")
			tt.modify(&in)
			_, err := s.service.Create(s.ctx, s.alice, in)
			s.ErrorIs(err, apperr.ErrValidation)
		})
	}
}

func (s *ServiceTestSuite) TestListAll_FavouritesFirst() {
	rome := s.create(s.alice, "Rome", "Italy")
	s.create(s.bob, "Oslo", "Norway")
	s.create(s.alice, "Lima", "Peru")

	_, err := s.service.SetFavourite(s.ctx, rome.ID, true)
	s.Require().NoError(err)

	stories, err := s.service.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(stories, 3)
	s.Equal(rome.ID, stories[0].ID)
	s.Equal("alice", stories[0].Author.Username)

	seenNonFavourite := false
	for _, st := range stories {
		if !st.IsFavourite {
			seenNonFavourite = true
		} else {
			s.False(seenNonFavourite, "favourite after non-favourite")
		}
	}
}

func (s *ServiceTestSuite) TestListAll_Cache() {
	s.create(s.alice, "Rome", "Italy")

	_, err := s.service.ListAll(s.ctx)
	s.Require().NoError(err)
	_, err = s.service.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, s.db.GetAllStoriesCalls)

	s.create(s.bob, "Oslo", "Norway")
	stories, err := s.service.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Len(stories, 2)
	s.Equal(2, s.db.GetAllStoriesCalls)
}

func (s *ServiceTestSuite) TestListAll_StoreFailure() {
	s.db.GetAllStoriesError = errors.New("connection refused")
	_, err := s.service.ListAll(s.ctx)
	s.ErrorIs(err, apperr.ErrUpstream)
}

func (s *ServiceTestSuite) TestEdit_Ownership() {
	story := s.create(s.alice, "Rome", "Italy")

	_, err := s.service.Edit(s.ctx, s.bob, story.ID, input("Hijacked", "Nowhere"))
	s.ErrorIs(err, apperr.ErrNotFound)

	_, err = s.service.Edit(s.ctx, s.alice, 999, input("Missing", "Nowhere"))
	s.ErrorIs(err, apperr.ErrNotFound)

	edited, err := s.service.Edit(s.ctx, s.alice, story.ID, input("Roma", "Italy", "Vatican"))
	s.Require().NoError(err)
	s.Equal("Roma", edited.Title)

	stories, err := s.service.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(stories, 1)
	s.Equal("Roma", stories[0].Title)
	s.Equal([]string{"Italy", "Vatican"}, stories[0].VisitedLocation)
}

func (s *ServiceTestSuite) TestEdit_DefaultImage() {
	story := s.create(s.alice, "Rome", "Italy")

	in := input("Rome", "Italy")
	in.ImageURL = ""
	edited, err := s.service.Edit(s.ctx, s.alice, story.ID, in)
	s.Require().NoError(err)
	s.Equal(defaultImage, edited.ImageURL)
}

func (s *ServiceTestSuite) TestEdit_Validation() {
	story := s.create(s.alice, "Rome", "Italy")
	in := input("", "Italy")
	_, err := s.service.Edit(s.ctx, s.alice, story.ID, in)
	s.ErrorIs(err, apperr.ErrValidation)
}

func (s *ServiceTestSuite) TestDelete() {
	story := s.create(s.alice, "Rome", "Italy")

	err := s.service.Delete(s.ctx, s.bob, story.ID)
	s.ErrorIs(err, apperr.ErrNotFound)

	s.Require().NoError(s.service.Delete(s.ctx, s.alice, story.ID))

	err = s.service.Delete(s.ctx, s.alice, story.ID)
	s.ErrorIs(err, apperr.ErrNotFound)

	stories, err := s.service.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Empty(stories)
}

func (s *ServiceTestSuite) TestSetFavourite_AnyCaller() {
	story := s.create(s.alice, "Rome", "Italy")

	updated, err := s.service.SetFavourite(s.ctx, story.ID, true)
	s.Require().NoError(err)
	s.True(updated.IsFavourite)

	updated, err = s.service.SetFavourite(s.ctx, story.ID, false)
	s.Require().NoError(err)
	s.False(updated.IsFavourite)

	_, err = s.service.SetFavourite(s.ctx, 999, true)
	s.ErrorIs(err, apperr.ErrNotFound)
}

func (s *ServiceTestSuite) TestSearch() {
	trip := s.create(s.alice, "Paris trip", "France")
	exact := s.create(s.alice, "Weekend", "paris")
	s.create(s.alice, "Holiday", "Paris, France")
	s.create(s.bob, "Paris again", "paris")

	stories, err := s.service.Search(s.ctx, s.alice, "paris")
	s.Require().NoError(err)

	ids := make([]uint, 0, len(stories))
	for _, st := range stories {
		ids = append(ids, st.ID)
	}
	s.ElementsMatch([]uint{trip.ID, exact.ID}, ids)

	stories, err = s.service.Search(s.ctx, s.alice, "Tokyo")
	s.Require().NoError(err)
	s.Empty(stories)

	_, err = s.service.Search(s.ctx, s.alice, "  ")
	s.ErrorIs(err, apperr.ErrValidation)
}

func (s *ServiceTestSuite) TestSearch_NonASCII() {
	story := s.create(s.alice, "ÉTÉ À MÜNCHEN", "Germany")

	for _, query := range []string{"été", "münchen", "ÉTÉ"} {
		stories, err := s.service.Search(s.ctx, s.alice, query)
		s.Require().NoError(err, query)
		s.Require().Len(stories, 1, query)
		s.Equal(story.ID, stories[0].ID)
	}
}

// blockingDB pauses GetAllStories after the read until released.
type blockingDB struct {
	*mock.MockDB
	read    chan struct{}
	release chan struct{}
}

func (b *blockingDB) GetAllStories(ctx context.Context) ([]database.Story, error) {
	stories, err := b.MockDB.GetAllStories(ctx)
	if b.read != nil {
		close(b.read)
		b.read = nil
		<-b.release
	}
	return stories, err
}

func (s *ServiceTestSuite) TestListAll_EditDuringRead() {
	story := s.create(s.alice, "Old", "Italy")

	db := &blockingDB{MockDB: s.db, read: make(chan struct{}), release: make(chan struct{})}
	read := db.read
	service := NewService(db, cache.NewFeedCache(&config.CacheConfig{
		Type: config.CacheTypeMemory,
		TTL:  time.Minute,
	}), defaultImage)

	done := make(chan []database.Story)
	go func() {
		stories, err := service.ListAll(s.ctx)
		s.NoError(err)
		done <- stories
	}()

	<-read
	_, err := service.Edit(s.ctx, s.alice, story.ID, input("New", "Italy"))
	s.Require().NoError(err)
	close(db.release)

	stale := <-done
	s.Require().Len(stale, 1)
	s.Equal("Old", stale[0].Title)

	stories, err := service.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(stories, 1)
	s.Equal("New", stories[0].Title)
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}
