package notify

import (
	"context"
	"time"

	"github.com/matheus3301/wpp-harvest/internal/bus"
	"github.com/matheus3301/wpp-harvest/internal/journal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultMaxAttempts bounds delivery retries per message.
const DefaultMaxAttempts = 3

const pollInterval = 500 * time.Millisecond

// TextSender delivers one text message.
type TextSender interface {
	SendText(ctx context.Context, jid string, text string) (serverMsgID string, err error)
}

// Outbox is the delivery side of the journal outbox.
type Outbox interface {
	PendingOutbox() ([]journal.OutboxEntry, error)
	MarkOutboxSending(clientMsgID string) error
	MarkOutboxSent(clientMsgID, serverMsgID string) error
	MarkOutboxFailed(clientMsgID, errMsg string, retry bool) error
	RequeueSending() (int64, error)
}

// Delivery is the payload of notify.sent and notify.failed.
type Delivery struct {
	ClientMsgID string `json:"client_msg_id"`
	ChatJID     string `json:"chat_jid"`
	ServerMsgID string `json:"server_msg_id,omitempty"`
	Error       string `json:"error,omitempty"`
	Attempts    int    `json:"attempts"`
	Final       bool   `json:"final"`
}

// NewLimiter paces sends at perMinute with the given burst. A non-positive
// rate disables pacing.
func NewLimiter(perMinute, burst int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(perMinute)/60), burst)
}

// Sender drains the outbox through a TextSender.
type Sender struct {
	outbox      Outbox
	sender      TextSender
	bus         *bus.Bus
	limiter     *rate.Limiter
	logger      *zap.Logger
	maxAttempts int
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewSender builds a Sender. A nil limiter means no pacing.
func NewSender(outbox Outbox, sender TextSender, b *bus.Bus, limiter *rate.Limiter, logger *zap.Logger) *Sender {
	if limiter == nil {
		limiter = NewLimiter(0, 0)
	}
	return &Sender{
		outbox:      outbox,
		sender:      sender,
		bus:         b,
		limiter:     limiter,
		logger:      logger,
		maxAttempts: DefaultMaxAttempts,
	}
}

// Start requeues messages interrupted by a previous shutdown and begins
// polling.
func (s *Sender) Start(ctx context.Context) {
	if n, err := s.outbox.RequeueSending(); err != nil {
		s.logger.Warn("failed to requeue interrupted messages", zap.Error(err))
	} else if n > 0 {
		s.logger.Info("requeued interrupted messages", zap.Int64("count", n))
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.loop(ctx)
}

// Stop ends the loop and waits for the in-flight batch.
func (s *Sender) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *Sender) loop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.processPending(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Sender) processPending(ctx context.Context) {
	pending, err := s.outbox.PendingOutbox()
	if err != nil {
		s.logger.Error("failed to read outbox", zap.Error(err))
		return
	}

	for _, entry := range pending {
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}
		s.deliver(ctx, entry)
	}
}

func (s *Sender) deliver(ctx context.Context, entry journal.OutboxEntry) {
	log := s.logger.With(zap.String("client_msg_id", entry.ClientMsgID), zap.String("chat_jid", entry.ChatJID))

	if err := s.outbox.MarkOutboxSending(entry.ClientMsgID); err != nil {
		log.Error("failed to mark sending", zap.Error(err))
		return
	}
	attempts := entry.Attempts + 1

	serverMsgID, err := s.sender.SendText(ctx, entry.ChatJID, entry.Body)
	if err != nil {
		retry := attempts < s.maxAttempts
		log.Warn("send failed", zap.Error(err), zap.Int("attempts", attempts), zap.Bool("retry", retry))
		if merr := s.outbox.MarkOutboxFailed(entry.ClientMsgID, err.Error(), retry); merr != nil {
			log.Error("failed to mark failed", zap.Error(merr))
		}
		s.bus.Emit(bus.KindNotifyFailed, Delivery{
			ClientMsgID: entry.ClientMsgID,
			ChatJID:     entry.ChatJID,
			Error:       err.Error(),
			Attempts:    attempts,
			Final:       !retry,
		})
		return
	}

	if err := s.outbox.MarkOutboxSent(entry.ClientMsgID, serverMsgID); err != nil {
		log.Error("failed to mark sent", zap.Error(err))
	}
	log.Info("message sent", zap.String("server_msg_id", serverMsgID))
	s.bus.Emit(bus.KindNotifySent, Delivery{
		ClientMsgID: entry.ClientMsgID,
		ChatJID:     entry.ChatJID,
		ServerMsgID: serverMsgID,
		Attempts:    attempts,
		Final:       true,
	})
}
