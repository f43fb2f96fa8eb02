package contact

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// PostgresSink stores contact messages in the contact_messages table.
type PostgresSink struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

func NewPostgresSink(db *sql.DB, logger *zap.SugaredLogger) *PostgresSink {
	return &PostgresSink{db: db, logger: logger}
}

func (s *PostgresSink) Save(ctx context.Context, msg *Message) error {
	query := `
		INSERT INTO contact_messages (id, name, email, message, consent, page_url, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := s.db.ExecContext(ctx, query,
		msg.ID,
		msg.Name,
		msg.Email,
		msg.Message,
		msg.Consent,
		msg.PageURL,
		msg.UserAgent,
		msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store contact message: %w", err)
	}

	if s.logger != nil {
		s.logger.Debugw("Stored contact message", "id", msg.ID)
	}
	return nil
}

// Recent returns the newest messages, newest first. Used by the admin
// listing endpoint.
func (s *PostgresSink) Recent(ctx context.Context, limit int) ([]*Message, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, name, email, message, consent, page_url, user_agent, created_at
		FROM contact_messages
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query contact messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var msg Message
		var createdAt time.Time
		if err := rows.Scan(
			&msg.ID,
			&msg.Name,
			&msg.Email,
			&msg.Message,
			&msg.Consent,
			&msg.PageURL,
			&msg.UserAgent,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan contact message: %w", err)
		}
		msg.CreatedAt = createdAt.UTC()
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return messages, nil
}

func (s *PostgresSink) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresSink) Name() string { return "postgres" }
