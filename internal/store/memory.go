package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/samarthnaikk/ychat20/internal/message"
)

// MemoryStore implements Store with an in-process message log. It mirrors the
// PostgreSQL ordering semantics and is used in tests and local development.
type MemoryStore struct {
	mu     sync.RWMutex
	msgs   []*message.ChatMessage
	users  map[int64]bool
	nextID int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		users:  make(map[int64]bool),
		nextID: 1,
	}
}

// AddUser registers a user id so UserExists resolves it.
func (s *MemoryStore) AddUser(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = true
}

// Append persists a new message with the next sequential id.
func (s *MemoryStore) Append(ctx context.Context, senderID, receiverID int64, content string) (*message.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := &message.ChatMessage{
		ID:         s.nextID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}
	s.nextID++
	s.msgs = append(s.msgs, msg)

	// Return a copy so callers cannot mutate the stored record.
	out := *msg
	return &out, nil
}

// Query returns messages between userA and userB in either direction, most
// recent first, with id as the tiebreak.
func (s *MemoryStore) Query(ctx context.Context, userA, userB int64, limit, offset int) ([]*message.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*message.ChatMessage
	for _, m := range s.msgs {
		if (m.SenderID == userA && m.ReceiverID == userB) ||
			(m.SenderID == userB && m.ReceiverID == userA) {
			out := *m
			matched = append(matched, &out)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

// MarkRead sets ReadAt on unread messages addressed to receiverID.
func (s *MemoryStore) MarkRead(ctx context.Context, messageIDs []int64, receiverID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[int64]bool, len(messageIDs))
	for _, id := range messageIDs {
		wanted[id] = true
	}

	now := time.Now().UTC()
	var marked []int64
	for _, m := range s.msgs {
		if wanted[m.ID] && m.ReceiverID == receiverID && m.ReadAt == nil {
			t := now
			m.ReadAt = &t
			marked = append(marked, m.ID)
		}
	}
	return marked, nil
}

// UserExists reports whether the user id was registered via AddUser.
func (s *MemoryStore) UserExists(ctx context.Context, userID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[userID], nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
