// Package auth registers users, checks their credentials and issues identity tokens.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jon4hz/wanderlust/internal/apperr"
	"github.com/jon4hz/wanderlust/internal/config"
	"github.com/jon4hz/wanderlust/internal/database"
	"github.com/jon4hz/wanderlust/internal/notify/email"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// WelcomeSender delivers the welcome email of a new user.
type WelcomeSender interface {
	SendWelcome(welcome email.Welcome) error
}

// Session is the result of a successful register or login.
type Session struct {
	Token  string
	UserID uint
}

// Service implements registration, login and token checks.
type Service struct {
	db         database.DB
	tokens     *TokenIssuer
	bcryptCost int
	mailer     WelcomeSender
	appURL     string
}

// NewService creates a new auth service. mailer may be nil.
func NewService(db database.DB, cfg *config.Config, mailer WelcomeSender) *Service {
	return &Service{
		db:         db,
		tokens:     NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		bcryptCost: cfg.Auth.BcryptCost,
		mailer:     mailer,
		appURL:     cfg.ServerURL,
	}
}

// Register creates a new user and returns a token for it.
func (s *Service) Register(ctx context.Context, username, emailAddr, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	emailAddr = normalizeEmail(emailAddr)
	if username == "" || emailAddr == "" || password == "" {
		return nil, apperr.Validation("Invalid input")
	}

	if _, err := s.db.GetUserByEmail(ctx, emailAddr); err == nil {
		return nil, apperr.Validation("User already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Upstream("Unable to create user", err)
	}

	hash, err := HashPassword(password, s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, apperr.Validation("Password is too long")
		}
		return nil, apperr.Upstream("Unable to create user", err)
	}

	user := &database.User{
		Email:    emailAddr,
		Username: username,
		Password: hash,
	}
	if err := s.db.CreateUser(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Validation("User already exists")
		}
		return nil, apperr.Upstream("Unable to create user", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, apperr.Upstream("Unable to create user", err)
	}

	log.Info("User registered", "id", user.ID, "username", user.Username)
	s.sendWelcome(user)

	return &Session{Token: token, UserID: user.ID}, nil
}

// Login checks the credentials and returns a token for the matching user.
func (s *Service) Login(ctx context.Context, emailAddr, password string) (*Session, error) {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || password == "" {
		return nil, apperr.Validation("Invalid input")
	}

	user, err := s.db.GetUserByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Authentication("Incorrect credentials", nil)
		}
		return nil, apperr.Upstream("Unable to login", err)
	}

	if !CheckPassword(user.Password, password) {
		log.Debug("Password mismatch", "user", user.ID)
		return nil, apperr.Authentication("Incorrect credentials", nil)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, apperr.Upstream("Unable to login", err)
	}
	return &Session{Token: token, UserID: user.ID}, nil
}

// Authenticate verifies the token and returns the caller's user id.
func (s *Service) Authenticate(token string) (uint, error) {
	if token == "" {
		return 0, apperr.Authentication("Authorization token missing or invalid", nil)
	}
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return 0, apperr.Authentication("Invalid or expired token", err)
	}
	return userID, nil
}

// GetUser returns the user behind an authenticated id.
func (s *Service) GetUser(ctx context.Context, id uint) (*database.User, error) {
	user, err := s.db.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Authentication("Unauthorized", nil)
		}
		return nil, apperr.Upstream("Unable to fetch user", err)
	}
	return user, nil
}

func (s *Service) sendWelcome(user *database.User) {
	if s.mailer == nil {
		return
	}
	welcome := email.Welcome{
		Username:     user.Username,
		Email:        user.Email,
		AppURL:       s.appURL,
		RegisteredAt: time.Now(),
	}
	go func() {
		if err := s.mailer.SendWelcome(welcome); err != nil {
			log.Warn("Failed to send welcome email", "user", user.ID, "error", err)
		}
	}()
}

func normalizeEmail(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
