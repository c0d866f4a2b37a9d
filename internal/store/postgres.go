package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/samarthnaikk/ychat20/internal/message"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres opens a PostgreSQL store and runs migrations.
func NewPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &PostgresStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *PostgresStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			full_name TEXT NOT NULL DEFAULT '',
			bio TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id BIGSERIAL PRIMARY KEY,
			sender_id BIGINT NOT NULL REFERENCES users(id),
			receiver_id BIGINT NOT NULL REFERENCES users(id),
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			read_at TIMESTAMPTZ,
			CHECK (sender_id <> receiver_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_sender_receiver
			ON messages(sender_id, receiver_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_receiver_unread
			ON messages(receiver_id) WHERE read_at IS NULL`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

// Ping verifies database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Append persists a new message and returns it with the assigned id and
// creation timestamp.
func (s *PostgresStore) Append(ctx context.Context, senderID, receiverID int64, content string) (*message.ChatMessage, error) {
	const q = `
		INSERT INTO messages (sender_id, receiver_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, sender_id, receiver_id, content, created_at`

	msg := &message.ChatMessage{}
	err := s.db.QueryRowContext(ctx, q, senderID, receiverID, content).Scan(
		&msg.ID, &msg.SenderID, &msg.ReceiverID, &msg.Content, &msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: append: %v", ErrUnavailable, err)
	}
	return msg, nil
}

// Query returns messages between userA and userB in either direction, most
// recent first. Ties on created_at break on id so the order is total.
func (s *PostgresStore) Query(ctx context.Context, userA, userB int64, limit, offset int) ([]*message.ChatMessage, error) {
	const q = `
		SELECT id, sender_id, receiver_id, content, created_at, read_at
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`

	rows, err := s.db.QueryContext(ctx, q, userA, userB, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var msgs []*message.ChatMessage
	for rows.Next() {
		msg := &message.ChatMessage{}
		var readAt sql.NullTime
		if err := rows.Scan(&msg.ID, &msg.SenderID, &msg.ReceiverID, &msg.Content, &msg.CreatedAt, &readAt); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrUnavailable, err)
		}
		if readAt.Valid {
			t := readAt.Time
			msg.ReadAt = &t
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", ErrUnavailable, err)
	}
	return msgs, nil
}

// MarkRead sets read_at on the given messages where receiverID is the
// recipient and the message is still unread. Returns the ids actually marked.
func (s *PostgresStore) MarkRead(ctx context.Context, messageIDs []int64, receiverID int64) ([]int64, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(messageIDs))
	args := make([]interface{}, 0, len(messageIDs)+1)
	for i, id := range messageIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args = append(args, id)
	}
	args = append(args, receiverID)

	q := fmt.Sprintf(`
		UPDATE messages
		SET read_at = NOW()
		WHERE id IN (%s) AND receiver_id = $%d AND read_at IS NULL
		RETURNING id`, strings.Join(placeholders, ", "), len(messageIDs)+1)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: mark read: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var marked []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrUnavailable, err)
		}
		marked = append(marked, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", ErrUnavailable, err)
	}
	return marked, nil
}

// UserExists reports whether a user id resolves to a known user.
func (s *PostgresStore) UserExists(ctx context.Context, userID int64) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`

	var exists bool
	if err := s.db.QueryRowContext(ctx, q, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("%w: user exists: %v", ErrUnavailable, err)
	}
	return exists, nil
}
