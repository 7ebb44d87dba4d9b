// Package outbox appends outgoing messages to a conversation.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/matheus3301/pingme/internal/bus"
	"github.com/matheus3301/pingme/internal/chat"
	"github.com/matheus3301/pingme/internal/docstore"
	"github.com/matheus3301/pingme/internal/metrics"
)

var (
	// ErrEmptyText rejects blank messages.
	ErrEmptyText = errors.New("outbox: empty message")
	// ErrNoConversation rejects a send with no peer selected.
	ErrNoConversation = errors.New("outbox: no conversation selected")
)

// Sender writes new messages with status sent and a store-assigned timestamp.
type Sender struct {
	store   docstore.Store
	bus     *bus.Bus
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewSender creates a new outbox sender.
func NewSender(store docstore.Store, b *bus.Bus, m *metrics.Metrics, logger *zap.Logger) *Sender {
	return &Sender{
		store:   store,
		bus:     b,
		metrics: m,
		logger:  logger.Named("outbox"),
	}
}

// Validate reports why text cannot be sent to peer, if it cannot.
func Validate(peer, text string) error {
	if peer == "" {
		return ErrNoConversation
	}
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	return nil
}

// Send appends text from self to peer. Invalid input is rejected without
// touching the store.
func (s *Sender) Send(ctx context.Context, self, peer, text string) (docstore.Ref, error) {
	if err := Validate(peer, text); err != nil {
		return docstore.Ref{}, err
	}

	ref, err := s.store.Add(ctx, chat.MessagesPath(self, peer), chat.NewMessageFields(self, peer, text))
	s.metrics.Write(metrics.Outbox, err)
	if err != nil {
		s.logger.Warn("failed to send message", zap.String("peer", peer), zap.Error(err))
		return docstore.Ref{}, fmt.Errorf("send to %s: %w", peer, err)
	}
	s.metrics.MessageSent()

	s.logger.Info("message sent", zap.String("peer", peer), zap.String("msg_id", ref.ID))
	s.bus.Emit(bus.KindMessageSent, SentEvent{Peer: peer, ID: ref.ID})
	return ref, nil
}

// SentEvent is the payload of message.sent events.
type SentEvent struct {
	Peer string
	ID   string
}
