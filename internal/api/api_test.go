package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jon4hz/wanderlust/internal/api/models"
	"github.com/jon4hz/wanderlust/internal/auth"
	"github.com/jon4hz/wanderlust/internal/cache"
	"github.com/jon4hz/wanderlust/internal/config"
	"github.com/jon4hz/wanderlust/internal/database"
	"github.com/jon4hz/wanderlust/internal/media"
	"github.com/jon4hz/wanderlust/internal/story"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

type sessionResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	ID      uint   `json:"id"`
}

type storyResponse struct {
	Message string       `json:"message"`
	Story   models.Story `json:"story"`
}

type storiesResponse struct {
	Message       string         `json:"message"`
	TravelStories []models.Story `json:"travelStories"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type APITestSuite struct {
	suite.Suite
	db     *database.Client
	server *Server
}

func (s *APITestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
}

func (s *APITestSuite) SetupTest() {
	dir := s.T().TempDir()
	cfg := &config.Config{
		Listen:    ":0",
		ServerURL: "http://localhost:3000",
		CORS:      &config.CORSConfig{AllowedOrigins: []string{"http://localhost:5173"}},
		Database: &config.DatabaseConfig{
			Driver: config.DatabaseDriverSQLite,
			Path:   filepath.Join(dir, "wanderlust.db"),
		},
		Auth: &config.AuthConfig{
			JWTSecret:  "test-secret",
			TokenTTL:   time.Hour,
			BcryptCost: bcrypt.MinCost,
		},
		Media: &config.MediaConfig{
			Backend:       config.MediaBackendLocal,
			MaxUploadSize: 1 << 20,
			DefaultImage:  "wanderlust.jpeg",
			Local:         &config.LocalStorageConfig{Dir: filepath.Join(dir, "uploads")},
		},
		Cache:    &config.CacheConfig{Type: config.CacheTypeMemory, TTL: time.Minute},
		Email:    &config.EmailConfig{},
		Gravatar: &config.GravatarConfig{},
	}

	db, err := database.New(cfg.Database)
	s.Require().NoError(err)
	s.db = db

	store, err := media.NewLocalStorage(cfg.Media.Local)
	s.Require().NoError(err)

	authService := auth.NewService(db, cfg, nil)
	stories := story.NewService(db, cache.NewFeedCache(cfg.Cache), cfg.DefaultImageURL())

	server, err := New(cfg, db, authService, stories, media.NewRelay(store, cfg), true)
	s.Require().NoError(err)
	s.server = server
}

func (s *APITestSuite) TearDownTest() {
	s.NoError(s.db.Close())
}

func (s *APITestSuite) request(method, target string, body any, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.serve(req)
}

func (s *APITestSuite) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.server.Handler().ServeHTTP(w, req)
	return w
}

func (s *APITestSuite) decode(w *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (s *APITestSuite) register(username, email string) sessionResponse {
	w := s.request(http.MethodPost, "/register", gin.H{
		"username": username,
		"email":    email,
		"password": "s3cret-pass",
	}, "")
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var resp sessionResponse
	s.decode(w, &resp)
	s.Require().NotEmpty(resp.Token)
	s.Require().NotZero(resp.ID)
	return resp
}

func (s *APITestSuite) createStory(token, title string, locations ...string) models.Story {
	w := s.request(http.MethodPost, "/add-travelstory", storyBody(title, locations...), token)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var resp storyResponse
	s.decode(w, &resp)
	return resp.Story
}

func storyBody(title string, locations ...string) gin.H {
	return gin.H{
		"title":           title,
		"story":           "We walked for hours.",
		"visitedLocation": locations,
		"visitedDate":     "1718000000000",
		"imageUrl":        "http://localhost:3000/uploads/photo.png",
	}
}

func (s *APITestSuite) TestRegisterAndLogin() {
	alice := s.register("Alice Joseph", "Alice@Example.com")

	w := s.request(http.MethodPost, "/register", gin.H{
		"username": "Other", "email": "alice@example.com", "password": "x",
	}, "")
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.request(http.MethodPost, "/register", gin.H{"email": "bob@example.com"}, "")
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.request(http.MethodPost, "/login", gin.H{"email": "alice@example.com", "password": "wrong"}, "")
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.request(http.MethodPost, "/login", gin.H{"email": "alice@example.com"}, "")
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.request(http.MethodPost, "/login", gin.H{"email": "alice@example.com", "password": "s3cret-pass"}, "")
	s.Require().Equal(http.StatusOK, w.Code)
	var login sessionResponse
	s.decode(w, &login)
	s.Equal("Login Successfull", login.Message)

	w = s.request(http.MethodGet, "/get-users", nil, login.Token)
	s.Require().Equal(http.StatusOK, w.Code)
	s.NotContains(w.Body.String(), "password")
	s.NotContains(w.Body.String(), "Password")

	var me struct {
		User models.User `json:"user"`
	}
	s.decode(w, &me)
	s.Equal(alice.ID, me.User.ID)
	s.Equal("alice@example.com", me.User.Email)
	s.Equal("Alice Joseph", me.User.Username)
}

func (s *APITestSuite) TestAuthHeaders() {
	w := s.request(http.MethodGet, "/get-allstory", nil, "")
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.request(http.MethodGet, "/get-allstory", nil, "not-a-token")
	s.Equal(http.StatusForbidden, w.Code)

	var resp messageResponse
	s.decode(w, &resp)
	s.Equal("Invalid or expired token", resp.Message)
}

func (s *APITestSuite) TestOwnershipFlow() {
	alice := s.register("Alice", "alice@example.com")
	bob := s.register("Bob", "bob@example.com")

	created := s.createStory(alice.Token, "Paris trip", "Paris")
	s.Equal(alice.ID, created.AuthorID)
	s.True(time.UnixMilli(1718000000000).Equal(created.VisitedDate), created.VisitedDate)

	target := fmt.Sprintf("/edit-story/%d", created.ID)
	w := s.request(http.MethodPut, target, storyBody("Bob was here", "Paris"), bob.Token)
	s.Equal(http.StatusNotFound, w.Code)

	w = s.request(http.MethodDelete, fmt.Sprintf("/delete-story/%d", created.ID), nil, bob.Token)
	s.Equal(http.StatusNotFound, w.Code)

	w = s.request(http.MethodPut, target, storyBody("Paris in spring", "Paris"), alice.Token)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = s.request(http.MethodGet, "/get-allstory", nil, bob.Token)
	s.Require().Equal(http.StatusOK, w.Code)
	var feed storiesResponse
	s.decode(w, &feed)
	s.Require().Len(feed.TravelStories, 1)
	s.Equal("Paris in spring", feed.TravelStories[0].Title)
	s.Require().NotNil(feed.TravelStories[0].Author)
	s.Equal("Alice", feed.TravelStories[0].Author.Username)

	w = s.request(http.MethodDelete, fmt.Sprintf("/delete-story/%d", created.ID), nil, alice.Token)
	s.Equal(http.StatusOK, w.Code)

	w = s.request(http.MethodGet, "/get-allstory", nil, alice.Token)
	s.decode(w, &feed)
	s.Empty(feed.TravelStories)
	s.NotNil(feed.TravelStories)
}

func (s *APITestSuite) TestStoryValidation() {
	alice := s.register("Alice", "alice@example.com")

	body := storyBody("No image", "Rome")
	body["imageUrl"] = ""
	w := s.request(http.MethodPost, "/add-travelstory", body, alice.Token)
	s.Equal(http.StatusBadRequest, w.Code)

	body = storyBody("No date", "Rome")
	delete(body, "visitedDate")
	w = s.request(http.MethodPost, "/add-travelstory", body, alice.Token)
	s.Equal(http.StatusBadRequest, w.Code)

	created := s.createStory(alice.Token, "Rome", "Rome")
	body = storyBody("Rome again", "Rome")
	body["imageUrl"] = ""
	w = s.request(http.MethodPut, fmt.Sprintf("/edit-story/%d", created.ID), body, alice.Token)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var resp storyResponse
	s.decode(w, &resp)
	s.Equal("http://localhost:3000/assets/wanderlust.jpeg", resp.Story.ImageURL)

	w = s.request(http.MethodPut, "/edit-story/abc", storyBody("x", "y"), alice.Token)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *APITestSuite) TestFavourite() {
	alice := s.register("Alice", "alice@example.com")
	bob := s.register("Bob", "bob@example.com")

	first := s.createStory(alice.Token, "Lisbon", "Lisbon")
	s.createStory(alice.Token, "Porto", "Porto")

	target := fmt.Sprintf("/favourite-story/%d", first.ID)
	w := s.request(http.MethodPut, target, gin.H{}, bob.Token)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.request(http.MethodPut, target, gin.H{"isFavourite": true}, bob.Token)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var resp storyResponse
	s.decode(w, &resp)
	s.True(resp.Story.IsFavourite)

	w = s.request(http.MethodGet, "/get-allstory", nil, alice.Token)
	var feed storiesResponse
	s.decode(w, &feed)
	s.Require().Len(feed.TravelStories, 2)
	s.Equal("Lisbon", feed.TravelStories[0].Title)

	w = s.request(http.MethodPut, "/favourite-story/9999", gin.H{"isFavourite": true}, bob.Token)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *APITestSuite) TestSearch() {
	alice := s.register("Alice", "alice@example.com")
	bob := s.register("Bob", "bob@example.com")

	s.createStory(alice.Token, "Paris trip", "France")
	s.createStory(alice.Token, "City break", "paris")
	s.createStory(alice.Token, "Wine country", "Paris, France")
	s.createStory(bob.Token, "Paris with Bob", "Paris")

	w := s.request(http.MethodGet, "/search?query=", nil, alice.Token)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.request(http.MethodGet, "/search?query=paris", nil, alice.Token)
	s.Require().Equal(http.StatusOK, w.Code)
	var found storiesResponse
	s.decode(w, &found)

	titles := make([]string, 0, len(found.TravelStories))
	for _, st := range found.TravelStories {
		titles = append(titles, st.Title)
	}
	s.ElementsMatch([]string{"Paris trip", "City break"}, titles)

	w = s.request(http.MethodGet, "/search?query=tokyo", nil, alice.Token)
	s.Require().Equal(http.StatusOK, w.Code)
	var empty storiesResponse
	s.decode(w, &empty)
	s.Equal("No stories found", empty.Message)
	s.NotNil(empty.TravelStories)
	s.Empty(empty.TravelStories)
}

func multipartImage(s *APITestSuite, filename, contentType string, data []byte) *http.Request {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, filename))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	s.Require().NoError(err)
	_, err = part.Write(data)
	s.Require().NoError(err)
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/image-upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func testPNG(s *APITestSuite) []byte {
	var buf bytes.Buffer
	s.Require().NoError(png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func (s *APITestSuite) TestImageUpload() {
	alice := s.register("Alice", "alice@example.com")

	req := multipartImage(s, "notes.txt", "text/plain", []byte("hello there"))
	req.Header.Set("Authorization", "Bearer "+alice.Token)
	w := s.serve(req)
	s.Equal(http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/image-upload", strings.NewReader(""))
	req.Header.Set("Authorization", "Bearer "+alice.Token)
	w = s.serve(req)
	s.Equal(http.StatusBadRequest, w.Code)

	req = multipartImage(s, "beach.png", "image/png", testPNG(s))
	req.Header.Set("Authorization", "Bearer "+alice.Token)
	w = s.serve(req)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var uploaded struct {
		ImageURL string `json:"imageUrl"`
	}
	s.decode(w, &uploaded)
	s.True(strings.HasPrefix(uploaded.ImageURL, "http://localhost:3000/uploads/"))

	path := strings.TrimPrefix(uploaded.ImageURL, "http://localhost:3000")
	w = s.request(http.MethodGet, path, nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("image/png", w.Header().Get("Content-Type"))
	s.Equal(testPNG(s), w.Body.Bytes())

	w = s.request(http.MethodDelete, "/delete-image?imageUrl="+uploaded.ImageURL, nil, "")
	s.Equal(http.StatusOK, w.Code)

	w = s.request(http.MethodDelete, "/delete-image?imageUrl="+uploaded.ImageURL, nil, "")
	s.Equal(http.StatusNotFound, w.Code)

	w = s.request(http.MethodDelete, "/delete-image", nil, "")
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.request(http.MethodGet, path, nil, "")
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *APITestSuite) TestPublicRoutes() {
	w := s.request(http.MethodGet, "/healthz", nil, "")
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"status":"ok"}`, w.Body.String())

	w = s.request(http.MethodGet, "/assets/wanderlust.jpeg", nil, "")
	s.Equal(http.StatusOK, w.Code)
	s.Equal("image/jpeg", w.Header().Get("Content-Type"))

	req := httptest.NewRequest(http.MethodOptions, "/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type, Authorization")
	w = s.serve(req)
	s.Equal(http.StatusNoContent, w.Code)
	s.Equal("http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}
