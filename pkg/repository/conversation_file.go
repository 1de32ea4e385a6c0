package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dskvich/ai-chat-server/pkg/domain"
	"github.com/dskvich/ai-chat-server/pkg/logger"
)

// fileConversationRepository keeps one JSON record per session under dir,
// with an in-memory cache layered above. Writes go through to disk before the
// cache is updated, so the cache never diverges from the persisted form.
type fileConversationRepository struct {
	dir string

	mu    sync.RWMutex
	cache map[string]*domain.Conversation

	locks *keyedMutex
}

func NewFileConversationRepository(dir string) (*fileConversationRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating conversations dir: %w", err)
	}
	return &fileConversationRepository{
		dir:   dir,
		cache: make(map[string]*domain.Conversation),
		locks: newKeyedMutex(),
	}, nil
}

func (r *fileConversationRepository) GetOrCreate(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	unlock := r.locks.Lock(sessionID)
	defer unlock()

	conv, err := r.load(sessionID)
	if err == nil {
		return cloneConversation(conv), nil
	}
	if !errors.Is(err, domain.ErrConversationNotFound) {
		return nil, err
	}

	conv = domain.NewConversation(sessionID)
	if err := r.persist(conv); err != nil {
		return nil, err
	}
	return cloneConversation(conv), nil
}

// Append adds a message to the conversation, creating it when needed, and
// returns the updated conversation. The per-session lock makes the
// read-modify-write atomic; generation never happens under this lock.
func (r *fileConversationRepository) Append(ctx context.Context, sessionID string, msg domain.Message) (*domain.Conversation, error) {
	unlock := r.locks.Lock(sessionID)
	defer unlock()

	conv, err := r.load(sessionID)
	if errors.Is(err, domain.ErrConversationNotFound) {
		conv = domain.NewConversation(sessionID)
	} else if err != nil {
		return nil, err
	}

	// Mutate a copy, never the cached object: if the disk write fails the
	// cache must keep serving exactly what the durable record holds.
	conv = cloneConversation(conv)
	conv.AppendMessage(msg)

	if err := r.persist(conv); err != nil {
		return nil, err
	}
	return cloneConversation(conv), nil
}

func (r *fileConversationRepository) Get(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	unlock := r.locks.Lock(sessionID)
	defer unlock()

	conv, err := r.load(sessionID)
	if err != nil {
		return nil, err
	}
	return cloneConversation(conv), nil
}

// ListMetadata takes a point-in-time snapshot of all persisted records,
// most recently updated first. Records that fail to parse are skipped and
// logged, never fatal to the listing.
func (r *fileConversationRepository) ListMetadata(ctx context.Context) ([]domain.ConversationMetadata, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("reading conversations dir: %w", err)
	}

	metas := make([]domain.ConversationMetadata, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		conv, err := r.readFile(filepath.Join(r.dir, entry.Name()))
		if err != nil {
			slog.WarnContext(ctx, "skipping unreadable conversation record", "file", entry.Name(), logger.Err(err))
			continue
		}
		metas = append(metas, conv.Meta())
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}

// Delete is idempotent: removing an unknown session is not an error.
func (r *fileConversationRepository) Delete(ctx context.Context, sessionID string) error {
	unlock := r.locks.Lock(sessionID)
	defer unlock()

	r.mu.Lock()
	delete(r.cache, sessionID)
	r.mu.Unlock()

	if err := os.Remove(r.path(sessionID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing conversation record: %w", err)
	}
	return nil
}

// ClearAll removes every persisted record, each under its per-session lock so
// an in-flight Append cannot re-persist a record after its wipe.
func (r *fileConversationRepository) ClearAll(ctx context.Context) error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("reading conversations dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if err := r.Delete(ctx, strings.TrimSuffix(entry.Name(), ".json")); err != nil {
			return err
		}
	}
	return nil
}

// load returns the cached conversation or reads it from disk.
func (r *fileConversationRepository) load(sessionID string) (*domain.Conversation, error) {
	r.mu.RLock()
	conv, ok := r.cache[sessionID]
	r.mu.RUnlock()
	if ok {
		return conv, nil
	}

	conv, err := r.readFile(r.path(sessionID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrConversationNotFound
		}
		return nil, err
	}

	r.mu.Lock()
	r.cache[sessionID] = conv
	r.mu.Unlock()
	return conv, nil
}

// persist writes through: the record hits disk first, then the cache.
func (r *fileConversationRepository) persist(conv *domain.Conversation) error {
	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling conversation: %w", err)
	}

	path := r.path(conv.SessionID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing conversation record: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing conversation record: %w", err)
	}

	r.mu.Lock()
	r.cache[conv.SessionID] = conv
	r.mu.Unlock()
	return nil
}

func (r *fileConversationRepository) readFile(path string) (*domain.Conversation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var conv domain.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("parsing conversation record: %w", err)
	}
	return &conv, nil
}

func (r *fileConversationRepository) path(sessionID string) string {
	return filepath.Join(r.dir, sessionID+".json")
}

// cloneConversation copies the record so callers cannot mutate the cache
// behind the store's back; all mutation goes through Append.
func cloneConversation(conv *domain.Conversation) *domain.Conversation {
	clone := *conv
	clone.Messages = append([]domain.Message(nil), conv.Messages...)
	clone.Metadata = make(map[string]any, len(conv.Metadata))
	for k, v := range conv.Metadata {
		clone.Metadata[k] = v
	}
	return &clone
}
