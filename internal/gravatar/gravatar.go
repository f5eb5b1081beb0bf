package gravatar

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jon4hz/wanderlust/internal/config"
	"github.com/samber/lo"
)

const baseURL = "https://www.gravatar.com/avatar/"

var (
	defaultImages = []string{"404", "mp", "identicon", "monsterid", "wavatar", "retro", "robohash", "blank"}
	ratings       = []string{"g", "pg", "r", "x"}
)

// AvatarURL returns the Gravatar URL for an email address.
// Returns an empty string if Gravatar is disabled or email is empty.
func AvatarURL(email string, cfg *config.GravatarConfig) string {
	if cfg == nil || !cfg.Enabled {
		return ""
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return ""
	}

	hash := sha256.Sum256([]byte(email))
	avatar := baseURL + hex.EncodeToString(hash[:])

	params := url.Values{}
	if cfg.DefaultImage != "" {
		params.Add("d", cfg.DefaultImage)
	}
	if cfg.Rating != "" {
		params.Add("r", cfg.Rating)
	}
	if cfg.Size > 0 {
		params.Add("s", strconv.Itoa(cfg.Size))
	}

	if len(params) > 0 {
		avatar += "?" + params.Encode()
	}
	return avatar
}

// Validate checks the Gravatar options against the values the service accepts.
func Validate(cfg *config.GravatarConfig) error {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	if cfg.DefaultImage != "" && !lo.Contains(defaultImages, cfg.DefaultImage) {
		return fmt.Errorf("invalid gravatar default image %q, must be one of %s", cfg.DefaultImage, strings.Join(defaultImages, ", "))
	}
	if cfg.Rating != "" && !lo.Contains(ratings, cfg.Rating) {
		return fmt.Errorf("invalid gravatar rating %q, must be one of %s", cfg.Rating, strings.Join(ratings, ", "))
	}
	if cfg.Size != 0 && (cfg.Size < 1 || cfg.Size > 2048) {
		return fmt.Errorf("invalid gravatar size %d, must be between 1 and 2048", cfg.Size)
	}
	return nil
}
