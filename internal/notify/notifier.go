// Package notify queues outbound chat messages in the journal outbox and
// delivers them at a bounded rate.
package notify

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Queue is the write side of the outbox.
type Queue interface {
	QueueOutbox(clientMsgID, chatJID, body string) error
}

// Notifier enqueues messages for the Sender.
type Notifier struct {
	queue  Queue
	logger *zap.Logger
}

// NewNotifier builds a Notifier over q.
func NewNotifier(q Queue, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{queue: q, logger: logger}
}

// Enqueue queues each body as its own message to chatJID, in order. It
// stops at the first failure.
func (n *Notifier) Enqueue(chatJID string, bodies ...string) error {
	for _, body := range bodies {
		id := uuid.NewString()
		if err := n.queue.QueueOutbox(id, chatJID, body); err != nil {
			n.logger.Error("failed to queue message", zap.String("chat_jid", chatJID), zap.Error(err))
			return err
		}
		n.logger.Debug("message queued", zap.String("client_msg_id", id), zap.String("chat_jid", chatJID))
	}
	return nil
}
