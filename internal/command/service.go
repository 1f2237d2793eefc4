package command

import (
	"context"
	"errors"
	"strings"

	"github.com/matheus3301/wpp-harvest/internal/journal"
	"github.com/matheus3301/wpp-harvest/internal/store"
	"go.uber.org/zap"
)

// OperatorID is the audit actor for calls made through the control socket.
const OperatorID = "operator"

// Auditor records administrative actions.
type Auditor interface {
	Record(e journal.AuditEntry) error
}

// Service implements the administrative operations shared by chat commands
// and the control socket. Authorization is the caller's job; every call is
// audited.
type Service struct {
	store  *store.Store
	groups GroupResolver
	audit  Auditor
	logger *zap.Logger
}

// NewService builds a Service. groups and audit may be nil.
func NewService(st *store.Store, groups GroupResolver, audit Auditor, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, groups: groups, audit: audit, logger: logger}
}

// Store exposes the underlying store for read-only callers.
func (s *Service) Store() *store.Store {
	return s.store
}

func (s *Service) record(actor, action, target string, err error) {
	if s.audit == nil {
		return
	}
	e := journal.AuditEntry{
		ActorID:  actor,
		Action:   action,
		TargetID: target,
		Outcome:  auditOutcome(err),
	}
	if err != nil && store.OutcomeOf(err) == store.OutcomeStoreFailure {
		e.Detail = err.Error()
	}
	if aerr := s.audit.Record(e); aerr != nil {
		s.logger.Warn("audit write failed", zap.String("action", action), zap.Error(aerr))
	}
}

func (s *Service) refreshStats() {
	if _, err := s.store.RecomputeStats(); err != nil {
		s.logger.Warn("stats recompute failed", zap.Error(err))
	}
}

// Deny records a refused command.
func (s *Service) Deny(actor, action string) {
	s.record(actor, action, "", store.ErrUnauthorized)
}

// AddGroup starts tracking the group behind ref and makes the caller one of
// its admins. The account itself must administer the group.
func (s *Service) AddGroup(ctx context.Context, actor string, profile store.AdminEntry, ref string) (store.Group, error) {
	g, err := s.addGroup(ctx, actor, profile, ref)
	s.record(actor, AddGroup, g.ID, err)
	return g, err
}

func (s *Service) addGroup(ctx context.Context, actor string, profile store.AdminEntry, ref string) (store.Group, error) {
	if strings.TrimSpace(ref) == "" || strings.TrimSpace(actor) == "" {
		return store.Group{}, ErrUsage
	}
	if s.groups == nil {
		return store.Group{}, ErrGroupUnavailable
	}
	info, err := s.groups.ResolveGroup(ctx, ref)
	if err != nil {
		s.logger.Info("group lookup failed", zap.String("ref", ref), zap.Error(err))
		if !errors.Is(err, ErrGroupUnavailable) {
			err = errors.Join(ErrGroupUnavailable, err)
		}
		return store.Group{}, err
	}
	if !info.SelfIsAdmin {
		return store.Group{ID: info.ID, Title: info.Title}, ErrNotGroupAdmin
	}

	g, err := s.store.InsertGroup(store.Group{
		ID:               info.ID,
		Title:            info.Title,
		Username:         info.Username,
		ParticipantCount: info.ParticipantCount,
	})
	if err != nil {
		return g, err
	}

	profile.AddedDate = g.AddedDate
	if err := s.store.GrantAdmin(g.ID, actor, profile); err != nil {
		return g, err
	}
	s.logger.Info("group added",
		zap.String("group_id", g.ID),
		zap.String("title", g.Title),
		zap.String("admin", actor))
	s.refreshStats()
	return g, nil
}

// MyGroups lists the tracked groups the caller administers.
func (s *Service) MyGroups(actor string) ([]store.Group, error) {
	groups, err := s.myGroups(actor)
	s.record(actor, Groups, "", err)
	return groups, err
}

func (s *Service) myGroups(actor string) ([]store.Group, error) {
	ids, err := s.store.AdminGroups(actor)
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	return s.store.SortedGroups(ids...)
}

// ListGroups lists every tracked group.
func (s *Service) ListGroups(actor string) ([]store.Group, error) {
	groups, err := s.store.SortedGroups()
	s.record(actor, Groups, "", err)
	return groups, err
}

// ListContacts lists every harvested contact.
func (s *Service) ListContacts(actor string) ([]store.Contact, error) {
	contacts, err := s.store.SortedContacts()
	s.record(actor, Contacts, "", err)
	return contacts, err
}

// ListBlacklist lists every blacklisted user.
func (s *Service) ListBlacklist(actor string) ([]store.BlacklistEntry, error) {
	entries, err := s.store.SortedBlacklist()
	s.record(actor, BlacklistList, "", err)
	return entries, err
}

// ListAdmins returns the whole admin roster.
func (s *Service) ListAdmins(actor string) (store.Admins, error) {
	admins, err := s.store.Admins()
	s.record(actor, "list_admins", "", err)
	return admins, err
}

// BlacklistUser blacklists a harvested contact found by id, @username or
// +phone. Users never harvested cannot be blacklisted.
func (s *Service) BlacklistUser(actor, ref string) (store.BlacklistEntry, error) {
	entry, err := s.blacklistUser(ref)
	s.record(actor, Blacklist, entry.ID, err)
	return entry, err
}

func (s *Service) blacklistUser(ref string) (store.BlacklistEntry, error) {
	if kind, _ := store.ParseUserRef(ref); kind == store.RefInvalid {
		return store.BlacklistEntry{}, ErrUsage
	}
	c, err := s.store.FindContact(ref)
	if errors.Is(err, store.ErrNotFound) {
		return store.BlacklistEntry{}, ErrNotHarvested
	}
	if err != nil {
		return store.BlacklistEntry{}, err
	}
	entry, err := s.store.InsertBlacklistEntry(store.BlacklistEntryFor(c))
	if err != nil {
		return entry, err
	}
	s.logger.Info("user blacklisted", zap.String("user_id", entry.ID))
	s.refreshStats()
	return entry, nil
}

// Unblacklist lifts a blacklist entry by user id.
func (s *Service) Unblacklist(actor, userID string) (store.BlacklistEntry, error) {
	entry, err := removeByID(s, userID, s.store.RemoveBlacklistEntry)
	s.record(actor, Unblacklist, store.NormalizeID(userID), err)
	return entry, err
}

// RemoveGroup stops tracking a group. Its contacts and admin roster stay.
func (s *Service) RemoveGroup(actor, groupID string) (store.Group, error) {
	g, err := removeByID(s, groupID, s.store.RemoveGroup)
	s.record(actor, RemoveGroup, store.NormalizeID(groupID), err)
	return g, err
}

// RemoveContact deletes a harvested contact. The user may be harvested again.
func (s *Service) RemoveContact(actor, userID string) (store.Contact, error) {
	c, err := removeByID(s, userID, s.store.RemoveContact)
	s.record(actor, RemoveContact, store.NormalizeID(userID), err)
	return c, err
}

func removeByID[T any](s *Service, id string, remove func(any) (T, error)) (T, error) {
	var zero T
	if store.NormalizeID(id) == "" {
		return zero, ErrUsage
	}
	v, err := remove(id)
	if err == nil {
		s.refreshStats()
	}
	return v, err
}

// GrantAdmin adds a user to the roster of a tracked group.
func (s *Service) GrantAdmin(actor, groupID, userID string, profile store.AdminEntry) error {
	err := s.grantAdmin(groupID, userID, profile)
	s.record(actor, "grant_admin", store.NormalizeID(groupID)+"/"+store.NormalizeID(userID), err)
	return err
}

func (s *Service) grantAdmin(groupID, userID string, profile store.AdminEntry) error {
	if store.NormalizeID(groupID) == "" || store.NormalizeID(userID) == "" {
		return ErrUsage
	}
	if _, err := s.store.Group(groupID); err != nil {
		return err
	}
	profile.AddedDate = ""
	return s.store.GrantAdmin(groupID, userID, profile)
}

// RevokeAdmin removes a user from a group's roster.
func (s *Service) RevokeAdmin(actor, groupID, userID string) error {
	err := s.store.RevokeAdmin(groupID, userID)
	s.record(actor, "revoke_admin", store.NormalizeID(groupID)+"/"+store.NormalizeID(userID), err)
	return err
}

// Stats recomputes and returns the statistics.
func (s *Service) Stats(actor string) (store.Stats, error) {
	st, err := s.store.RecomputeStats()
	s.record(actor, Stats, "", err)
	return st, err
}

// CachedStats returns the stored statistics without recomputing.
func (s *Service) CachedStats() (store.Stats, error) {
	return s.store.Stats()
}
