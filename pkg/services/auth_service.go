package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dskvich/ai-chat-server/pkg/domain"
)

type UserRepository interface {
	SaveUser(ctx context.Context, user domain.User) error
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	FindUserByLogin(ctx context.Context, usernameOrEmail string) (domain.User, error)
	UsernameTaken(ctx context.Context, username, excludeUserID string) (bool, error)
	EmailTaken(ctx context.Context, email, excludeUserID string) (bool, error)
	SaveSession(ctx context.Context, session domain.Session) error
	GetSession(ctx context.Context, token string) (domain.Session, error)
	DeleteSession(ctx context.Context, token string) error
}

const (
	minUsernameLen = 3
	minPasswordLen = 6
)

type authService struct {
	users      UserRepository
	sessionTTL time.Duration
}

func NewAuthService(users UserRepository, sessionTTL time.Duration) *authService {
	return &authService{
		users:      users,
		sessionTTL: sessionTTL,
	}
}

func (s *authService) Register(ctx context.Context, username, email, password, fullName string) (domain.Profile, error) {
	if len(username) < minUsernameLen {
		return domain.Profile{}, domain.NewValidationError(fmt.Sprintf("username must be at least %d characters", minUsernameLen))
	}
	if len(password) < minPasswordLen {
		return domain.Profile{}, domain.NewValidationError(fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}
	if !strings.Contains(email, "@") {
		return domain.Profile{}, domain.NewValidationError("invalid email address")
	}

	if taken, err := s.users.UsernameTaken(ctx, username, ""); err != nil {
		return domain.Profile{}, fmt.Errorf("checking username: %w", err)
	} else if taken {
		return domain.Profile{}, domain.NewValidationError("username already exists")
	}
	if taken, err := s.users.EmailTaken(ctx, email, ""); err != nil {
		return domain.Profile{}, fmt.Errorf("checking email: %w", err)
	} else if taken {
		return domain.Profile{}, domain.NewValidationError("email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("hashing password: %w", err)
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		FullName:     fullName,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
		IsActive:     true,
	}
	if err := s.users.SaveUser(ctx, user); err != nil {
		return domain.Profile{}, fmt.Errorf("saving user: %w", err)
	}
	return user.Profile(), nil
}

// Login returns a fresh session token. Unknown user and wrong password are
// indistinguishable in the returned error.
func (s *authService) Login(ctx context.Context, usernameOrEmail, password string) (domain.Profile, string, error) {
	user, err := s.users.FindUserByLogin(ctx, usernameOrEmail)
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.Profile{}, "", domain.ErrInvalidCredentials
	}
	if err != nil {
		return domain.Profile{}, "", fmt.Errorf("finding user: %w", err)
	}

	if !user.IsActive {
		return domain.Profile{}, "", domain.ErrAccountInactive
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return domain.Profile{}, "", domain.ErrInvalidCredentials
	}

	now := time.Now()
	user.LastLogin = &now
	if err := s.users.SaveUser(ctx, user); err != nil {
		return domain.Profile{}, "", fmt.Errorf("updating last login: %w", err)
	}

	session := domain.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.users.SaveSession(ctx, session); err != nil {
		return domain.Profile{}, "", fmt.Errorf("saving session: %w", err)
	}
	return user.Profile(), session.Token, nil
}

func (s *authService) Logout(ctx context.Context, token string) error {
	return s.users.DeleteSession(ctx, token)
}

// Verify resolves a session token to a user profile. An expired session is
// purged and reported the same way as an unknown token.
func (s *authService) Verify(ctx context.Context, token string) (domain.Profile, error) {
	if token == "" {
		return domain.Profile{}, domain.ErrSessionExpired
	}

	session, err := s.users.GetSession(ctx, token)
	if err != nil {
		return domain.Profile{}, err
	}

	if session.Expired(time.Now()) {
		if err := s.users.DeleteSession(ctx, token); err != nil {
			return domain.Profile{}, fmt.Errorf("purging expired session: %w", err)
		}
		return domain.Profile{}, domain.ErrSessionExpired
	}

	user, err := s.users.GetUserByID(ctx, session.UserID)
	if err != nil {
		return domain.Profile{}, err
	}
	return user.Profile(), nil
}

func (s *authService) UpdateProfile(ctx context.Context, userID, fullName, email string) (domain.Profile, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return domain.Profile{}, err
	}

	if fullName != "" {
		user.FullName = fullName
	}
	if email != "" {
		if !strings.Contains(email, "@") {
			return domain.Profile{}, domain.NewValidationError("invalid email address")
		}
		if taken, err := s.users.EmailTaken(ctx, email, userID); err != nil {
			return domain.Profile{}, fmt.Errorf("checking email: %w", err)
		} else if taken {
			return domain.Profile{}, domain.NewValidationError("email already in use")
		}
		user.Email = email
	}

	if err := s.users.SaveUser(ctx, user); err != nil {
		return domain.Profile{}, fmt.Errorf("saving user: %w", err)
	}
	return user.Profile(), nil
}

func (s *authService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)) != nil {
		return domain.ErrInvalidCredentials
	}
	if len(newPassword) < minPasswordLen {
		return domain.NewValidationError(fmt.Sprintf("new password must be at least %d characters", minPasswordLen))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	user.PasswordHash = string(hash)

	if err := s.users.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("saving user: %w", err)
	}
	return nil
}
