// Package router implements persist-then-deliver routing of chat messages.
// A send is durable once the store accepts it; delivery to an online receiver
// is best-effort and never affects the sender's acknowledgement.
package router

import (
	"context"

	"go.uber.org/zap"

	chaterrors "github.com/samarthnaikk/ychat20/internal/errors"
	"github.com/samarthnaikk/ychat20/internal/message"
	"github.com/samarthnaikk/ychat20/internal/metrics"
	"github.com/samarthnaikk/ychat20/internal/registry"
	"github.com/samarthnaikk/ychat20/internal/util"
)

// MessageStore is the persistence surface the router needs.
type MessageStore interface {
	Append(ctx context.Context, senderID, receiverID int64, content string) (*message.ChatMessage, error)
}

// ConnectionLookup resolves a user id to a live connection.
type ConnectionLookup interface {
	Lookup(userID int64) (registry.Conn, bool)
}

// Router persists messages and pushes them to online receivers.
type Router struct {
	store    MessageStore
	registry ConnectionLookup
	logger   *zap.SugaredLogger
}

// New creates a router.
func New(st MessageStore, reg ConnectionLookup, logger *zap.SugaredLogger) *Router {
	return &Router{
		store:    st,
		registry: reg,
		logger:   logger,
	}
}

// Deliver persists a message and, if the receiver has a live connection,
// pushes it. Persistence failure aborts the send; push failure does not.
// The returned message carries the store-assigned id and timestamp.
func (r *Router) Deliver(ctx context.Context, senderID, receiverID int64, content string) (*message.ChatMessage, error) {
	msg, err := r.store.Append(ctx, senderID, receiverID, content)
	if err != nil {
		metrics.StoreErrors.Inc()
		util.LogError(r.logger, "router", "persist message", err,
			"sender_id", senderID,
			"receiver_id", receiverID)
		return nil, chaterrors.ErrStoreUnavailable(err)
	}

	metrics.MessagesSent.Inc()
	r.push(receiverID, msg)
	return msg, nil
}

// push attempts a best-effort delivery to the receiver's live connection.
// Failures are logged and counted, never returned.
func (r *Router) push(receiverID int64, msg *message.ChatMessage) {
	conn, ok := r.registry.Lookup(receiverID)
	if !ok {
		r.logger.Debugw("Receiver offline, message stored only",
			"receiver_id", receiverID,
			"message_id", msg.ID)
		return
	}

	payload, err := util.MarshalJSON(message.NewPushFrame(msg))
	if err != nil {
		metrics.DeliveryFailures.Inc()
		util.LogError(r.logger, "router", "marshal push frame",
			chaterrors.NewDeliveryError("cannot encode push frame", err),
			"receiver_id", receiverID,
			"message_id", msg.ID)
		return
	}

	if !conn.SafeSend(payload) {
		metrics.DeliveryFailures.Inc()
		util.LogError(r.logger, "router", "push message to online receiver",
			chaterrors.NewDeliveryError("receiver send buffer full or closing", nil),
			"receiver_id", receiverID,
			"message_id", msg.ID)
		return
	}

	metrics.MessagesDelivered.Inc()
	r.logger.Debugw("Message pushed to receiver",
		"receiver_id", receiverID,
		"message_id", msg.ID)
}
