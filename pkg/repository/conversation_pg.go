package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dskvich/ai-chat-server/pkg/domain"
	"github.com/dskvich/ai-chat-server/pkg/logger"
)

// pgConversationRepository stores one JSONB record per session. Listings are
// served off an indexed updated_at column instead of a directory scan.
type pgConversationRepository struct {
	db    *sql.DB
	locks *keyedMutex
}

func NewPgConversationRepository(db *sql.DB) *pgConversationRepository {
	return &pgConversationRepository{
		db:    db,
		locks: newKeyedMutex(),
	}
}

func (r *pgConversationRepository) GetOrCreate(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	unlock := r.locks.Lock(sessionID)
	defer unlock()

	conv, err := r.fetch(ctx, sessionID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, domain.ErrConversationNotFound) {
		return nil, err
	}

	conv = domain.NewConversation(sessionID)
	if err := r.upsert(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (r *pgConversationRepository) Append(ctx context.Context, sessionID string, msg domain.Message) (*domain.Conversation, error) {
	unlock := r.locks.Lock(sessionID)
	defer unlock()

	conv, err := r.fetch(ctx, sessionID)
	if errors.Is(err, domain.ErrConversationNotFound) {
		conv = domain.NewConversation(sessionID)
	} else if err != nil {
		return nil, err
	}

	conv.AppendMessage(msg)

	if err := r.upsert(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (r *pgConversationRepository) Get(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	return r.fetch(ctx, sessionID)
}

func (r *pgConversationRepository) ListMetadata(ctx context.Context) ([]domain.ConversationMetadata, error) {
	const query = `
		SELECT payload
		FROM conversations
		ORDER BY updated_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	var metas []domain.ConversationMetadata
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning conversation row: %w", err)
		}

		var conv domain.Conversation
		if err := json.Unmarshal(payload, &conv); err != nil {
			slog.WarnContext(ctx, "skipping unparsable conversation record", logger.Err(err))
			continue
		}
		metas = append(metas, conv.Meta())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversation rows: %w", err)
	}

	if metas == nil {
		metas = []domain.ConversationMetadata{}
	}
	return metas, nil
}

func (r *pgConversationRepository) Delete(ctx context.Context, sessionID string) error {
	unlock := r.locks.Lock(sessionID)
	defer unlock()

	const query = `DELETE FROM conversations WHERE session_id = $1`
	if _, err := r.db.ExecContext(ctx, query, sessionID); err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}
	return nil
}

func (r *pgConversationRepository) ClearAll(ctx context.Context) error {
	const query = `DELETE FROM conversations`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("clearing conversations: %w", err)
	}
	return nil
}

func (r *pgConversationRepository) fetch(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	const query = `
		SELECT payload
		FROM conversations
		WHERE session_id = $1
	`

	var payload []byte
	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching conversation: %w", err)
	}

	var conv domain.Conversation
	if err := json.Unmarshal(payload, &conv); err != nil {
		return nil, fmt.Errorf("parsing conversation record: %w", err)
	}
	return &conv, nil
}

func (r *pgConversationRepository) upsert(ctx context.Context, conv *domain.Conversation) error {
	payload, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("marshaling conversation: %w", err)
	}

	const query = `
		INSERT INTO conversations (session_id, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id)
		DO UPDATE SET
			payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.ExecContext(ctx, query, conv.SessionID, payload, conv.CreatedAt, conv.UpdatedAt); err != nil {
		return fmt.Errorf("saving conversation: %w", err)
	}
	return nil
}
