package wa

import (
	"context"

	"github.com/matheus3301/wpp-harvest/internal/bus"
	"github.com/matheus3301/wpp-harvest/internal/status"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"
)

// LIDResolver maps linked identities to phone-number JIDs.
type LIDResolver interface {
	ResolveLID(ctx context.Context, jid types.JID) types.JID
}

// EventHandler turns whatsmeow events into bus events and drives the
// connection state machine. It never touches the store; the harvest engine
// consumes what it publishes.
type EventHandler struct {
	bus       *bus.Bus
	machine   *status.Machine
	resolver  LIDResolver
	logger    *zap.Logger
	ignoreOwn bool
}

// NewEventHandler builds a handler. resolver may be nil.
func NewEventHandler(b *bus.Bus, machine *status.Machine, resolver LIDResolver, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		bus:       b,
		machine:   machine,
		resolver:  resolver,
		logger:    logger,
		ignoreOwn: true,
	}
}

// SetIgnoreOwn controls whether the account's own group messages count as
// sightings.
func (h *EventHandler) SetIgnoreOwn(ignore bool) {
	h.ignoreOwn = ignore
}

// Handle is registered with the whatsmeow client.
func (h *EventHandler) Handle(rawEvt any) {
	switch evt := rawEvt.(type) {
	case *events.Message:
		h.handleMessage(evt)
	case *events.Connected:
		h.logger.Info("WhatsApp connected")
		switch h.machine.Current() {
		case status.Booting, status.AuthRequired, status.Reconnecting, status.Error:
			_ = h.machine.Transition(status.Connecting)
		}
		_ = h.machine.Transition(status.Online)
		h.bus.Emit(bus.KindConnected, nil)
	case *events.Disconnected:
		h.logger.Warn("WhatsApp disconnected")
		_ = h.machine.Transition(status.Reconnecting)
		h.bus.Emit(bus.KindDisconnected, nil)
	case *events.LoggedOut:
		h.logger.Warn("WhatsApp logged out", zap.String("reason", evt.Reason.String()))
		_ = h.machine.Transition(status.AuthRequired)
		h.bus.Emit("session.logged_out", evt.Reason.String())
	case *events.StreamReplaced:
		h.logger.Error("session replaced by another client")
		_ = h.machine.Transition(status.Error)
	}
}

func (h *EventHandler) handleMessage(evt *events.Message) {
	if evt.Info.IsFromMe && (h.ignoreOwn || !evt.Info.IsGroup) {
		return
	}
	if s, ok := ParseSighting(evt, h.resolve); ok {
		h.bus.Emit(bus.KindGroupMessage, s)
		return
	}
	if req, ok := ParseCommand(evt, h.resolve); ok {
		h.logger.Debug("command received",
			zap.String("command", req.Name),
			zap.String("issuer", req.IssuerID))
		h.bus.Emit(bus.KindCommand, req)
	}
}

func (h *EventHandler) resolve(jid types.JID) types.JID {
	if h.resolver == nil {
		return jid
	}
	return h.resolver.ResolveLID(context.Background(), jid)
}
