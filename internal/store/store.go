// Package store provides durable persistence for chat messages and user
// lookups. It ships a PostgreSQL implementation for production and an
// in-memory implementation for tests.
package store

import (
	"context"
	"errors"

	"github.com/samarthnaikk/ychat20/internal/message"
)

// ErrUnavailable is returned when the backing store cannot serve a request.
var ErrUnavailable = errors.New("message store unavailable")

// Store is the durable message log. Append is the durability boundary of a
// send: once it returns, the message is recoverable via Query regardless of
// delivery outcome.
type Store interface {
	// Append persists a new message and returns it with the store-assigned
	// id and creation timestamp.
	Append(ctx context.Context, senderID, receiverID int64, content string) (*message.ChatMessage, error)

	// Query returns messages exchanged between userA and userB in either
	// direction, most recent first, windowed by limit and offset.
	Query(ctx context.Context, userA, userB int64, limit, offset int) ([]*message.ChatMessage, error)

	// MarkRead sets the read timestamp on the given messages, but only for
	// unread messages addressed to receiverID. Returns the ids actually marked.
	MarkRead(ctx context.Context, messageIDs []int64, receiverID int64) ([]int64, error)

	// UserExists reports whether a user id resolves to a known user.
	UserExists(ctx context.Context, userID int64) (bool, error)

	// Ping verifies store connectivity.
	Ping(ctx context.Context) error

	// Close releases store resources.
	Close() error
}
