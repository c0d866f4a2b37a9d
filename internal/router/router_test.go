package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	chaterrors "github.com/samarthnaikk/ychat20/internal/errors"
	"github.com/samarthnaikk/ychat20/internal/message"
	"github.com/samarthnaikk/ychat20/internal/registry"
	"github.com/samarthnaikk/ychat20/internal/store"
)

// failingStore rejects every append.
type failingStore struct{}

func (failingStore) Append(ctx context.Context, senderID, receiverID int64, content string) (*message.ChatMessage, error) {
	return nil, fmt.Errorf("%w: connection refused", store.ErrUnavailable)
}

// recordingConn captures pushed payloads.
type recordingConn struct {
	sent   [][]byte
	reject bool
}

func (c *recordingConn) SafeSend(payload []byte) bool {
	if c.reject {
		return false
	}
	c.sent = append(c.sent, payload)
	return true
}

func (c *recordingConn) Close() error { return nil }

func newTestRouter(t *testing.T, st MessageStore) (*Router, *registry.Registry) {
	t.Helper()
	reg := registry.New()
	return New(st, reg, zap.NewNop().Sugar()), reg
}

func TestDeliverToOnlineReceiver(t *testing.T) {
	mem := store.NewMemory()
	r, reg := newTestRouter(t, mem)

	receiver := &recordingConn{}
	reg.Register(2, receiver)

	msg, err := r.Deliver(context.Background(), 1, 2, "hello")
	require.NoError(t, err)
	assert.Equal(t, int64(1), msg.ID)
	assert.Equal(t, "hello", msg.Content)

	require.Len(t, receiver.sent, 1)
	var frame map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(receiver.sent[0], &frame))

	var frameType string
	require.NoError(t, json.Unmarshal(frame["type"], &frameType))
	assert.Equal(t, "message", frameType)

	// The pushed copy must be the persisted message, ids and all.
	var pushed message.ChatMessage
	require.NoError(t, json.Unmarshal(frame["message"], &pushed))
	assert.Equal(t, msg.ID, pushed.ID)
	assert.Equal(t, msg.SenderID, pushed.SenderID)
	assert.Equal(t, msg.ReceiverID, pushed.ReceiverID)
	assert.Equal(t, msg.Content, pushed.Content)
}

func TestDeliverToOfflineReceiver(t *testing.T) {
	mem := store.NewMemory()
	r, _ := newTestRouter(t, mem)

	msg, err := r.Deliver(context.Background(), 1, 2, "hello")
	require.NoError(t, err)
	require.NotNil(t, msg)

	// The message is durable even though nobody was pushed to.
	stored, err := mem.Query(context.Background(), 1, 2, 50, 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, msg.ID, stored[0].ID)
}

func TestDeliverStoreFailure(t *testing.T) {
	r, reg := newTestRouter(t, failingStore{})

	receiver := &recordingConn{}
	reg.Register(2, receiver)

	msg, err := r.Deliver(context.Background(), 1, 2, "hello")
	require.Error(t, err)
	assert.Nil(t, msg)

	// Persistence failure must abort the send entirely: no push happens.
	assert.Empty(t, receiver.sent)

	var chatErr *chaterrors.ChatError
	require.True(t, errors.As(err, &chatErr))
	assert.Equal(t, chaterrors.CategoryService, chatErr.Category)
	assert.Equal(t, "Failed to send message", chatErr.Message)
	assert.True(t, errors.Is(err, store.ErrUnavailable))
}

func TestDeliverPushFailureDoesNotFailSend(t *testing.T) {
	mem := store.NewMemory()
	r, reg := newTestRouter(t, mem)

	receiver := &recordingConn{reject: true}
	reg.Register(2, receiver)

	msg, err := r.Deliver(context.Background(), 1, 2, "hello")
	require.NoError(t, err)
	require.NotNil(t, msg)

	stored, err := mem.Query(context.Background(), 1, 2, 50, 0)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}
