package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dskvich/ai-chat-server/pkg/domain"
)

const (
	usersFileName    = "users.json"
	sessionsFileName = "sessions.json"
)

// fileUserRepository persists accounts and auth sessions as two JSON maps,
// the same write-through pattern as the conversation store. All operations
// run under one mutex; account traffic is peripheral and low-volume.
type fileUserRepository struct {
	mu           sync.Mutex
	usersFile    string
	sessionsFile string
}

func NewFileUserRepository(dir string) (*fileUserRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating users dir: %w", err)
	}
	return &fileUserRepository{
		usersFile:    filepath.Join(dir, usersFileName),
		sessionsFile: filepath.Join(dir, sessionsFileName),
	}, nil
}

func (r *fileUserRepository) SaveUser(ctx context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := loadMap[domain.User](r.usersFile)
	if err != nil {
		return err
	}
	users[user.ID] = user
	return saveMap(r.usersFile, users)
}

func (r *fileUserRepository) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := loadMap[domain.User](r.usersFile)
	if err != nil {
		return domain.User{}, err
	}
	user, ok := users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

// FindUserByLogin matches username or email, case-insensitively.
func (r *fileUserRepository) FindUserByLogin(ctx context.Context, usernameOrEmail string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := loadMap[domain.User](r.usersFile)
	if err != nil {
		return domain.User{}, err
	}

	needle := strings.ToLower(usernameOrEmail)
	for _, user := range users {
		if strings.ToLower(user.Username) == needle || strings.ToLower(user.Email) == needle {
			return user, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

// UsernameTaken and EmailTaken check case-insensitive uniqueness, excluding
// the given user id so profile updates can keep an unchanged value.
func (r *fileUserRepository) UsernameTaken(ctx context.Context, username, excludeUserID string) (bool, error) {
	return r.taken(func(u domain.User) string { return u.Username }, username, excludeUserID)
}

func (r *fileUserRepository) EmailTaken(ctx context.Context, email, excludeUserID string) (bool, error) {
	return r.taken(func(u domain.User) string { return u.Email }, email, excludeUserID)
}

func (r *fileUserRepository) taken(field func(domain.User) string, value, excludeUserID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := loadMap[domain.User](r.usersFile)
	if err != nil {
		return false, err
	}

	needle := strings.ToLower(value)
	for _, user := range users {
		if user.ID == excludeUserID {
			continue
		}
		if strings.ToLower(field(user)) == needle {
			return true, nil
		}
	}
	return false, nil
}

func (r *fileUserRepository) SaveSession(ctx context.Context, session domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, err := loadMap[domain.Session](r.sessionsFile)
	if err != nil {
		return err
	}
	sessions[session.Token] = session
	return saveMap(r.sessionsFile, sessions)
}

func (r *fileUserRepository) GetSession(ctx context.Context, token string) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, err := loadMap[domain.Session](r.sessionsFile)
	if err != nil {
		return domain.Session{}, err
	}
	session, ok := sessions[token]
	if !ok {
		return domain.Session{}, domain.ErrSessionExpired
	}
	return session, nil
}

// DeleteSession is idempotent.
func (r *fileUserRepository) DeleteSession(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, err := loadMap[domain.Session](r.sessionsFile)
	if err != nil {
		return err
	}
	if _, ok := sessions[token]; !ok {
		return nil
	}
	delete(sessions, token)
	return saveMap(r.sessionsFile, sessions)
}

func loadMap[T any](path string) (map[string]T, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]T), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}

	m := make(map[string]T)
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return m, nil
}

func saveMap[T any](path string, m map[string]T) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing %s: %w", filepath.Base(path), err)
	}
	return nil
}
