package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"log/slog"

	"github.com/tidylist/api/internal/crypto"
	"github.com/tidylist/api/internal/domain"
	"github.com/tidylist/api/internal/repository"
	"github.com/tidylist/api/internal/token"
)

var (
	// ErrEmailTaken signals a duplicate registration attempt.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned for both unknown email and wrong
	// password so login responses never reveal which accounts exist.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidToken covers every token failure sub-cause at the
	// request boundary.
	ErrInvalidToken = errors.New("invalid token")
	// ErrValidation marks malformed input; wrapped errors carry the
	// field detail.
	ErrValidation = errors.New("invalid input")
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

// Service handles registration, login and bearer-token authorization.
type Service struct {
	users  repository.UserRepository
	tokens *token.Manager
	logger *slog.Logger
}

// New constructs a Service.
func New(users repository.UserRepository, tokens *token.Manager, logger *slog.Logger) Service {
	return Service{users: users, tokens: tokens, logger: logger}
}

// Register creates a new account. The email must not be in use; the
// password is stored only as a bcrypt hash.
func (s Service) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	if err := validateRegistration(name, email, password); err != nil {
		return nil, err
	}
	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	hash, err := crypto.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		// Lost the race against a concurrent registration.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Login verifies credentials and returns a signed bearer token.
func (s Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if !crypto.VerifyPassword(user.PasswordHash, password) {
		return "", ErrInvalidCredentials
	}
	tok, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", err
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return tok, nil
}

// Authorize validates a bearer token and resolves the calling user. The
// user lookup also catches subjects that no longer exist.
func (s Service) Authorize(ctx context.Context, tok string) (*domain.User, error) {
	userID, err := s.tokens.Verify(tok)
	if err != nil {
		s.logger.Warn("token rejected", "error", err)
		return nil, ErrInvalidToken
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}

func validateRegistration(name, email, password string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: name must be provided", ErrValidation)
	case len(name) > 255:
		return fmt.Errorf("%w: name must be at most 255 characters", ErrValidation)
	case email == "":
		return fmt.Errorf("%w: email must be provided", ErrValidation)
	case !emailPattern.MatchString(email):
		return fmt.Errorf("%w: email must be a valid address", ErrValidation)
	case len(password) < 8:
		return fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	case len(password) > 72:
		return fmt.Errorf("%w: password must be at most 72 characters", ErrValidation)
	}
	return nil
}
