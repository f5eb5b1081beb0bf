package models

import (
	"github.com/jon4hz/wanderlust/internal/config"
	"github.com/jon4hz/wanderlust/internal/database"
	"github.com/jon4hz/wanderlust/internal/gravatar"
	"github.com/samber/lo"
)

// ToUser converts a database.User to its public profile. The password hash is never copied.
func ToUser(u *database.User, cfg *config.GravatarConfig) User {
	return User{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		AvatarURL: gravatar.AvatarURL(u.Email, cfg),
		CreatedAt: u.CreatedAt,
	}
}

// ToStory converts a database.Story for clients.
// The author is only included when it was loaded with the story.
func ToStory(s *database.Story, cfg *config.GravatarConfig) Story {
	item := Story{
		ID:              s.ID,
		Title:           s.Title,
		Story:           s.Text,
		VisitedLocation: s.VisitedLocation,
		VisitedDate:     s.VisitedDate,
		ImageURL:        s.ImageURL,
		IsFavourite:     s.IsFavourite,
		AuthorID:        s.AuthorID,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}

	if item.VisitedLocation == nil {
		item.VisitedLocation = []string{}
	}

	if s.Author.ID != 0 {
		item.Author = &Author{
			ID:        s.Author.ID,
			Username:  s.Author.Username,
			AvatarURL: gravatar.AvatarURL(s.Author.Email, cfg),
		}
	}

	return item
}

// ToStories converts a slice of database.Story. The result is never nil.
func ToStories(stories []database.Story, cfg *config.GravatarConfig) []Story {
	return lo.Map(stories, func(s database.Story, _ int) Story {
		return ToStory(&s, cfg)
	})
}
