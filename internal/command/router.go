// Package command routes chat commands to the administrative operations of
// the harvester and reports structured results.
package command

import (
	"context"
	"strings"

	"github.com/matheus3301/wpp-harvest/internal/store"
	"go.uber.org/zap"
)

// Gate decides whether a user may run administrative commands.
type Gate interface {
	IsAuthorizedAdmin(userID any) bool
}

// Router dispatches parsed requests.
type Router struct {
	svc    *Service
	gate   Gate
	logger *zap.Logger
}

// NewRouter builds a router. A nil gate falls back to the service's store.
func NewRouter(svc *Service, gate Gate, logger *zap.Logger) *Router {
	if gate == nil {
		gate = svc.Store()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{svc: svc, gate: gate, logger: logger}
}

// gated lists commands that require IsAuthorizedAdmin.
var gated = map[string]bool{
	Contacts:      true,
	Blacklist:     true,
	BlacklistList: true,
	Unblacklist:   true,
	Stats:         true,
	RemoveGroup:   true,
	RemoveContact: true,
}

// IsGated reports whether name requires an authorized admin.
func IsGated(name string) bool {
	return gated[name]
}

// Handle runs one request. It never panics on bad input and never returns
// an error; failures are reported through Result.Outcome.
func (r *Router) Handle(ctx context.Context, req Request) Result {
	if gated[req.Name] && !r.gate.IsAuthorizedAdmin(req.IssuerID) {
		r.logger.Info("command refused",
			zap.String("command", req.Name),
			zap.String("issuer", req.IssuerID))
		r.svc.Deny(req.IssuerID, req.Name)
		return Result{Command: req.Name, Outcome: store.OutcomeUnauthorized}
	}

	res := r.dispatch(ctx, req)
	res.Command = req.Name
	res.Issuer = req.Issuer

	if res.Outcome == store.OutcomeStoreFailure {
		r.logger.Error("command failed", zap.String("command", req.Name), zap.String("issuer", req.IssuerID))
	}
	return res
}

func (r *Router) dispatch(ctx context.Context, req Request) Result {
	switch req.Name {
	case Start, Help:
		return Result{Outcome: store.OutcomeSuccess}

	case AddGroup:
		arg, err := singleArg(req.Args)
		if err != nil {
			return resultOf(req.Name, err)
		}
		g, err := r.svc.AddGroup(ctx, req.IssuerID, req.Issuer, arg)
		res := resultOf(req.Name, err)
		if g.ID != "" {
			res.Group = &g
		}
		return res

	case Groups:
		groups, err := r.svc.MyGroups(req.IssuerID)
		res := resultOf(req.Name, err)
		res.Groups = groups
		return res

	case Contacts:
		contacts, err := r.svc.ListContacts(req.IssuerID)
		res := resultOf(req.Name, err)
		res.Contacts = contacts
		return res

	case BlacklistList:
		entries, err := r.svc.ListBlacklist(req.IssuerID)
		res := resultOf(req.Name, err)
		res.Blacklist = entries
		return res

	case Blacklist:
		arg, err := singleArg(req.Args)
		if err != nil {
			return resultOf(req.Name, err)
		}
		entry, err := r.svc.BlacklistUser(req.IssuerID, arg)
		res := resultOf(req.Name, err)
		if entry.ID != "" {
			res.Entry = &entry
		}
		return res

	case Unblacklist:
		arg, err := singleArg(req.Args)
		if err != nil {
			return resultOf(req.Name, err)
		}
		entry, err := r.svc.Unblacklist(req.IssuerID, arg)
		res := resultOf(req.Name, err)
		if err == nil {
			res.Entry = &entry
		}
		return res

	case RemoveGroup:
		arg, err := singleArg(req.Args)
		if err != nil {
			return resultOf(req.Name, err)
		}
		g, err := r.svc.RemoveGroup(req.IssuerID, arg)
		res := resultOf(req.Name, err)
		if err == nil {
			res.Group = &g
		}
		return res

	case RemoveContact:
		arg, err := singleArg(req.Args)
		if err != nil {
			return resultOf(req.Name, err)
		}
		c, err := r.svc.RemoveContact(req.IssuerID, arg)
		res := resultOf(req.Name, err)
		if err == nil {
			res.Contact = &c
		}
		return res

	case Stats:
		st, err := r.svc.Stats(req.IssuerID)
		res := resultOf(req.Name, err)
		if err == nil {
			res.Stats = &st
		}
		return res
	}

	return Result{Outcome: store.OutcomeInvalid, Reason: ReasonUnknownCommand}
}

func singleArg(args string) (string, error) {
	fields := strings.Fields(args)
	if len(fields) != 1 {
		return "", ErrUsage
	}
	return fields[0], nil
}
