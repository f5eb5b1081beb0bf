package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jon4hz/wanderlust/internal/config"
	"github.com/jon4hz/wanderlust/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestEpochMillis_UnmarshalJSON(t *testing.T) {
	want := time.UnixMilli(1718000000000).UTC()

	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{name: "number", input: `1718000000000`, want: want},
		{name: "numeric string", input: `"1718000000000"`, want: want},
		{name: "rfc3339", input: `"2024-06-10T06:13:20Z"`, want: want},
		{name: "null", input: `null`},
		{name: "empty string", input: `""`},
		{name: "zero", input: `0`},
		{name: "garbage", input: `"next tuesday"`, wantErr: true},
		{name: "exponent", input: `1.718e12`, want: want},
		{name: "nan string", input: `"NaN"`, wantErr: true},
		{name: "infinity string", input: `"Inf"`, wantErr: true},
		{name: "huge exponent", input: `1e30`, wantErr: true},
		{name: "past year 9999", input: `253402300800000`, wantErr: true},
		{name: "int64 overflow", input: `"99999999999999999999"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got EpochMillis
			err := json.Unmarshal([]byte(tt.input), &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got.Time), "got %s", got.Time)
		})
	}
}

func TestStoryRequest_Decode(t *testing.T) {
	var req StoryRequest
	err := json.Unmarshal([]byte(`{
		"title": "Kyoto",
		"story": "Temples everywhere.",
		"visitedLocation": ["Kyoto", "Nara"],
		"visitedDate": 1718000000000,
		"imageUrl": "http://localhost:3000/uploads/a.png"
	}`), &req)
	require.NoError(t, err)

	assert.Equal(t, "Kyoto", req.Title)
	assert.Equal(t, []string{"Kyoto", "Nara"}, req.VisitedLocation)
	assert.False(t, req.VisitedDate.IsZero())
}

func TestToStory(t *testing.T) {
	gravatar := &config.GravatarConfig{Enabled: true}

	s := database.Story{
		Model:    gorm.Model{ID: 3},
		Title:    "Oslo",
		Text:     "Cold.",
		AuthorID: 7,
		Author:   database.User{Model: gorm.Model{ID: 7}, Username: "alice", Email: "alice@example.com", Password: "hash"},
	}

	item := ToStory(&s, gravatar)
	assert.Equal(t, "Cold.", item.Story)
	assert.Equal(t, []string{}, item.VisitedLocation)
	require.NotNil(t, item.Author)
	assert.Equal(t, "alice", item.Author.Username)
	assert.Contains(t, item.Author.AvatarURL, "https://www.gravatar.com/avatar/")

	data, err := json.Marshal(item)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hash")
	assert.NotContains(t, string(data), "alice@example.com")

	s.Author = database.User{}
	assert.Nil(t, ToStory(&s, gravatar).Author)

	assert.NotNil(t, ToStories(nil, gravatar))
}

func TestToUser(t *testing.T) {
	u := database.User{Model: gorm.Model{ID: 1}, Username: "bob", Email: "bob@example.com", Password: "hash"}

	item := ToUser(&u, &config.GravatarConfig{})
	assert.Equal(t, uint(1), item.ID)
	assert.Empty(t, item.AvatarURL)

	data, err := json.Marshal(item)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hash")
}
