// Package history serves paginated chat history between two users.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/samarthnaikk/ychat20/internal/constants"
	"github.com/samarthnaikk/ychat20/internal/message"
	"github.com/samarthnaikk/ychat20/internal/metrics"
)

// ErrUserNotFound is returned when the requested conversation partner does
// not exist.
var ErrUserNotFound = errors.New("user not found")

// MessageReader is the store surface the history service needs.
type MessageReader interface {
	Query(ctx context.Context, userA, userB int64, limit, offset int) ([]*message.ChatMessage, error)
	MarkRead(ctx context.Context, messageIDs []int64, receiverID int64) ([]int64, error)
	UserExists(ctx context.Context, userID int64) (bool, error)
}

// Page is one window of a conversation, oldest message first.
type Page struct {
	Messages []*message.ChatMessage `json:"messages"`
	Limit    int                    `json:"limit"`
	Offset   int                    `json:"offset"`
	Total    int                    `json:"total"`
}

// Service answers history and read-receipt requests.
type Service struct {
	store  MessageReader
	logger *zap.SugaredLogger
}

// New creates a history service.
func New(store MessageReader, logger *zap.SugaredLogger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

// GetChatHistory returns one page of the conversation between requesterID and
// otherID. The store yields the most recent window; the page is reversed so
// messages read chronologically. Total is the size of the returned page, not
// the full conversation.
func (s *Service) GetChatHistory(ctx context.Context, requesterID, otherID int64, limit, offset int) (*Page, error) {
	start := time.Now()
	defer func() {
		metrics.HistoryRequestDuration.Observe(time.Since(start).Seconds())
	}()

	if limit <= 0 {
		limit = constants.DefaultHistoryLimit
	}
	if offset < 0 {
		offset = constants.DefaultHistoryOffset
	}

	exists, err := s.store.UserExists(ctx, otherID)
	if err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	msgs, err := s.store.Query(ctx, requesterID, otherID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	// The store returns most recent first; reverse in place so the page
	// reads oldest to newest.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	if msgs == nil {
		msgs = []*message.ChatMessage{}
	}

	return &Page{
		Messages: msgs,
		Limit:    limit,
		Offset:   offset,
		Total:    len(msgs),
	}, nil
}

// MarkMessagesRead marks the given messages as read by readerID and returns
// the ids actually updated. Messages not addressed to readerID, or already
// read, are skipped silently.
func (s *Service) MarkMessagesRead(ctx context.Context, messageIDs []int64, readerID int64) ([]int64, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}

	marked, err := s.store.MarkRead(ctx, messageIDs, readerID)
	if err != nil {
		return nil, fmt.Errorf("mark read: %w", err)
	}

	s.logger.Debugw("Messages marked read",
		"reader_id", readerID,
		"requested", len(messageIDs),
		"marked", len(marked))
	return marked, nil
}
