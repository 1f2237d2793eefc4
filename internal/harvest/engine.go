// Package harvest turns platform events into store writes: senders seen in
// tracked groups become contacts, and private commands are routed and
// answered.
package harvest

import (
	"context"
	"errors"
	"fmt"

	"github.com/matheus3301/wpp-harvest/internal/bus"
	"github.com/matheus3301/wpp-harvest/internal/command"
	"github.com/matheus3301/wpp-harvest/internal/journal"
	"github.com/matheus3301/wpp-harvest/internal/reply"
	"github.com/matheus3301/wpp-harvest/internal/store"
	"github.com/matheus3301/wpp-harvest/internal/wa"
	"go.uber.org/zap"
)

// ActionHarvest is the audit action for contact inserts.
const ActionHarvest = "harvest"

// ErrUntracked is returned for sightings in groups nobody added.
var ErrUntracked = fmt.Errorf("group not tracked: %w", store.ErrNotFound)

// Enqueuer queues outbound messages.
type Enqueuer interface {
	Enqueue(chatJID string, bodies ...string) error
}

// SightingResult is the payload of harvest.sighting.
type SightingResult struct {
	UserID  string `json:"user_id"`
	GroupID string `json:"group_id"`
	Outcome string `json:"outcome"`
}

// CommandResult is the payload of harvest.command.
type CommandResult struct {
	Command  string `json:"command"`
	IssuerID string `json:"issuer_id"`
	Outcome  string `json:"outcome"`
	Reason   string `json:"reason,omitempty"`
}

// Engine consumes wa.* events from the bus.
type Engine struct {
	store        *store.Store
	router       *command.Router
	out          Enqueuer
	audit        command.Auditor
	bus          *bus.Bus
	logger       *zap.Logger
	notifyAdmins bool

	cancel context.CancelFunc
	done   chan struct{}
}

// NewEngine creates an engine. out and audit may be nil.
func NewEngine(st *store.Store, router *command.Router, out Enqueuer, audit command.Auditor, b *bus.Bus, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:        st,
		router:       router,
		out:          out,
		audit:        audit,
		bus:          b,
		logger:       logger,
		notifyAdmins: true,
	}
}

// SetNotifyAdmins toggles the new-contact notice to group admins.
func (e *Engine) SetNotifyAdmins(on bool) {
	e.notifyAdmins = on
}

// Start subscribes to inbound platform events. The subscription is
// unbounded: bursts queue up instead of being dropped.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	e.done = make(chan struct{})
	ch, unsub := e.bus.SubscribeUnbounded("wa.")

	go func() {
		defer close(e.done)
		defer unsub()
		for {
			select {
			case evt := <-ch:
				e.handleEvent(ctx, evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the subscription and waits for the event in progress.
func (e *Engine) Stop() {
	if e.cancel == nil {
		return
	}
	e.cancel()
	<-e.done
}

func (e *Engine) handleEvent(ctx context.Context, evt bus.Event) {
	switch evt.Kind {
	case bus.KindGroupMessage:
		s, ok := evt.Payload.(store.Sighting)
		if !ok {
			return
		}
		_, _ = e.Harvest(s)
	case bus.KindCommand:
		req, ok := evt.Payload.(command.Request)
		if !ok {
			return
		}
		e.HandleCommand(ctx, req)
	}
}

// Harvest records the sender of a group message. Blacklisted, already
// known and untracked outcomes are reported as errors but are routine.
func (e *Engine) Harvest(s store.Sighting) (store.Contact, error) {
	log := e.logger.With(zap.String("user_id", s.UserID), zap.String("group_id", s.GroupID))

	c, err := e.harvest(s)
	e.bus.Emit(bus.KindSightingDone, SightingResult{
		UserID:  s.UserID,
		GroupID: s.GroupID,
		Outcome: store.OutcomeOf(err).String(),
	})

	switch {
	case err == nil:
		log.Info("contact harvested", zap.String("name", c.DisplayName()))
		e.record(c.ID, c.GroupID, nil)
		e.afterInsert(c)
	case errors.Is(err, ErrUntracked):
	case errors.Is(err, store.ErrAlreadyExists):
		log.Debug("contact already known")
	case errors.Is(err, store.ErrBlacklisted):
		log.Info("blacklisted user skipped")
	default:
		log.Error("contact insert failed", zap.Error(err))
		e.record(s.UserID, s.GroupID, err)
	}
	return c, err
}

func (e *Engine) harvest(s store.Sighting) (store.Contact, error) {
	if s.UserID == "" || !e.store.IsTracked(s.GroupID) {
		return store.Contact{}, ErrUntracked
	}
	if s.GroupTitle == "" {
		if g, err := e.store.Group(s.GroupID); err == nil {
			s.GroupTitle = g.Title
		}
	}
	return e.store.InsertContact(s.Contact(), s.Aliases...)
}

func (e *Engine) afterInsert(c store.Contact) {
	if _, err := e.store.RecomputeStats(); err != nil {
		e.logger.Warn("stats recompute failed", zap.Error(err))
	}
	e.bus.Emit(bus.KindContactAdded, c)

	if !e.notifyAdmins || e.out == nil {
		return
	}
	admins, err := e.store.GroupAdmins(c.GroupID)
	if err != nil {
		e.logger.Warn("cannot load group admins", zap.String("group_id", c.GroupID), zap.Error(err))
		return
	}
	body := reply.ContactAdded(c)
	for adminID := range admins {
		if err := e.out.Enqueue(wa.ChatJID(adminID), body); err != nil {
			e.logger.Warn("admin notice not queued", zap.String("admin_id", adminID), zap.Error(err))
		}
	}
}

func (e *Engine) record(userID, groupID string, err error) {
	if e.audit == nil {
		return
	}
	entry := journal.AuditEntry{
		ActorID:  userID,
		Action:   ActionHarvest,
		TargetID: groupID,
		Outcome:  store.OutcomeOf(err).String(),
	}
	if err != nil {
		entry.Detail = err.Error()
	}
	if aerr := e.audit.Record(entry); aerr != nil {
		e.logger.Warn("audit write failed", zap.Error(aerr))
	}
}

// HandleCommand runs a private command and queues the reply to its chat.
func (e *Engine) HandleCommand(ctx context.Context, req command.Request) command.Result {
	res := e.router.Handle(ctx, req)
	e.bus.Emit(bus.KindCommandDone, CommandResult{
		Command:  req.Name,
		IssuerID: req.IssuerID,
		Outcome:  res.Outcome.String(),
		Reason:   string(res.Reason),
	})

	if e.out == nil || req.ReplyTo == "" {
		return res
	}
	if err := e.out.Enqueue(req.ReplyTo, reply.Format(res)...); err != nil {
		e.logger.Error("reply not queued",
			zap.String("command", req.Name),
			zap.String("reply_to", req.ReplyTo),
			zap.Error(err))
	}
	return res
}
