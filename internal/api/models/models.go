package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Author is the public identity of a story owner.
type Author struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// User is the profile returned to the authenticated user.
type User struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Story is a travel story as seen by clients.
type Story struct {
	ID              uint      `json:"id"`
	Title           string    `json:"title"`
	Story           string    `json:"story"`
	VisitedLocation []string  `json:"visitedLocation"`
	VisitedDate     time.Time `json:"visitedDate"`
	ImageURL        string    `json:"imageUrl"`
	IsFavourite     bool      `json:"isFavourite"`
	AuthorID        uint      `json:"authorId"`
	Author          *Author   `json:"author,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// StoryRequest is the body of the add and edit story routes.
type StoryRequest struct {
	Title           string      `json:"title"`
	Story           string      `json:"story"`
	VisitedLocation []string    `json:"visitedLocation"`
	VisitedDate     EpochMillis `json:"visitedDate"`
	ImageURL        string      `json:"imageUrl"`
}

// FavouriteRequest is the body of PUT /favourite-story/:id.
type FavouriteRequest struct {
	IsFavourite *bool `json:"isFavourite"`
}

// EpochMillis is a point in time sent as milliseconds since the Unix epoch,
// either as a JSON number or as a numeric string. RFC 3339 strings are accepted too.
// Zero, null and the empty string leave the time unset.
type EpochMillis struct {
	time.Time
}

// maxEpochMillis is the last millisecond of the year 9999.
const maxEpochMillis = 253402300799999

func (e *EpochMillis) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		e.Time = time.Time{}
		return nil
	}

	var raw string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	} else {
		raw = string(data)
	}
	raw = strings.TrimSpace(raw)

	if raw == "" {
		e.Time = time.Time{}
		return nil
	}

	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return e.setMillis(ms, raw)
	}
	// exponent forms such as 1.7e12 are valid JSON numbers
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > maxEpochMillis {
			return fmt.Errorf("date %q is out of range", raw)
		}
		return e.setMillis(int64(f), raw)
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return fmt.Errorf("invalid date %q", raw)
	}
	e.Time = t.UTC()
	return nil
}

func (e *EpochMillis) setMillis(ms int64, raw string) error {
	if ms > maxEpochMillis || ms < -maxEpochMillis {
		return fmt.Errorf("date %q is out of range", raw)
	}
	if ms == 0 {
		e.Time = time.Time{}
		return nil
	}
	e.Time = time.UnixMilli(ms).UTC()
	return nil
}
