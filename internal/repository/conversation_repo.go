// Package repository provides data access for persisted conversations
// and their turns.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nlq-workbench/client/internal/model"
)

// Store is the narrow persistence surface the session consumer depends
// on. The query session itself has no persistence dependency; the
// consumer loads history on startup and saves it as turns complete.
type Store interface {
	Load(ctx context.Context) ([]*model.Conversation, error)
	Save(ctx context.Context, conversations []*model.Conversation) error
}

// ConversationRepository provides data access for conversations.
// It implements Store.
type ConversationRepository struct {
	db *sql.DB
}

// NewConversationRepository creates a new ConversationRepository.
func NewConversationRepository(db *sql.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Create inserts a new conversation into the database.
func (r *ConversationRepository) Create(ctx context.Context, conv *model.Conversation) error {
	query := `
		INSERT INTO conversations (id, title, provider_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		conv.ID,
		conv.Title,
		conv.ProviderID,
		conv.CreatedAt,
		conv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	return nil
}

// GetByID retrieves a conversation by its ID, including its turns in
// creation order.
func (r *ConversationRepository) GetByID(ctx context.Context, id string) (*model.Conversation, error) {
	query := `
		SELECT id, title, provider_id, created_at, updated_at
		FROM conversations
		WHERE id = ?
	`

	conv := &model.Conversation{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&conv.ID,
		&conv.Title,
		&conv.ProviderID,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, model.ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	turns, err := r.ListTurns(ctx, id)
	if err != nil {
		return nil, err
	}
	conv.Turns = turns

	return conv, nil
}

// List retrieves all conversations, most recently updated first. Turns
// are not populated; use GetByID for the full thread.
func (r *ConversationRepository) List(ctx context.Context) ([]*model.Conversation, error) {
	query := `
		SELECT id, title, provider_id, created_at, updated_at
		FROM conversations
		ORDER BY updated_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var conversations []*model.Conversation
	for rows.Next() {
		conv := &model.Conversation{}
		err := rows.Scan(
			&conv.ID,
			&conv.Title,
			&conv.ProviderID,
			&conv.CreatedAt,
			&conv.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conversations = append(conversations, conv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}

	return conversations, nil
}

// Delete removes a conversation and, via the cascade, its turns.
func (r *ConversationRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM conversations WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return model.ErrConversationNotFound
	}

	return nil
}

// Rename updates the title of a conversation.
func (r *ConversationRepository) Rename(ctx context.Context, id, title string) error {
	query := `
		UPDATE conversations
		SET title = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, title, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to rename conversation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return model.ErrConversationNotFound
	}

	return nil
}

// AppendTurn inserts a completed turn and touches the parent
// conversation's updated_at.
func (r *ConversationRepository) AppendTurn(ctx context.Context, turn *model.Turn) error {
	query := `
		INSERT INTO turns (id, conversation_id, query, generated_query, confidence_score, validation_status, iterations, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		turn.ID,
		turn.ConversationID,
		turn.Query,
		turn.GeneratedQuery,
		turn.ConfidenceScore,
		turn.ValidationStatus,
		turn.Iterations,
		turn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append turn: %w", err)
	}

	touch := `UPDATE conversations SET updated_at = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, touch, turn.CreatedAt, turn.ConversationID); err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}

	return nil
}

// ListTurns retrieves all turns of a conversation in creation order.
func (r *ConversationRepository) ListTurns(ctx context.Context, conversationID string) ([]*model.Turn, error) {
	query := `
		SELECT id, conversation_id, query, generated_query, confidence_score, validation_status, iterations, created_at
		FROM turns
		WHERE conversation_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	defer rows.Close()

	var turns []*model.Turn
	for rows.Next() {
		turn := &model.Turn{}
		err := rows.Scan(
			&turn.ID,
			&turn.ConversationID,
			&turn.Query,
			&turn.GeneratedQuery,
			&turn.ConfidenceScore,
			&turn.ValidationStatus,
			&turn.Iterations,
			&turn.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turns = append(turns, turn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating turns: %w", err)
	}

	return turns, nil
}

// CountTurns returns the number of turns in a conversation.
func (r *ConversationRepository) CountTurns(ctx context.Context, conversationID string) (int, error) {
	query := `SELECT COUNT(*) FROM turns WHERE conversation_id = ?`

	var count int
	err := r.db.QueryRowContext(ctx, query, conversationID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count turns: %w", err)
	}

	return count, nil
}

// Exists checks if a conversation exists.
func (r *ConversationRepository) Exists(ctx context.Context, id string) (bool, error) {
	query := `SELECT 1 FROM conversations WHERE id = ? LIMIT 1`

	var exists int
	err := r.db.QueryRowContext(ctx, query, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check conversation existence: %w", err)
	}

	return true, nil
}

// Load implements Store: it returns every conversation with its turns.
func (r *ConversationRepository) Load(ctx context.Context) ([]*model.Conversation, error) {
	conversations, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	for _, conv := range conversations {
		turns, err := r.ListTurns(ctx, conv.ID)
		if err != nil {
			return nil, err
		}
		conv.Turns = turns
	}

	return conversations, nil
}

// Save implements Store: it upserts the given conversations and any
// turns not yet persisted. Existing rows are left in place; Save never
// deletes history.
func (r *ConversationRepository) Save(ctx context.Context, conversations []*model.Conversation) error {
	for _, conv := range conversations {
		exists, err := r.Exists(ctx, conv.ID)
		if err != nil {
			return err
		}
		if !exists {
			if err := r.Create(ctx, conv); err != nil {
				return err
			}
		}

		persisted, err := r.ListTurns(ctx, conv.ID)
		if err != nil {
			return err
		}
		known := make(map[string]bool, len(persisted))
		for _, turn := range persisted {
			known[turn.ID] = true
		}

		for _, turn := range conv.Turns {
			if known[turn.ID] {
				continue
			}
			if err := r.AppendTurn(ctx, turn); err != nil {
				return err
			}
		}
	}

	return nil
}
