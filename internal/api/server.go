package api

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/matheus3301/wpp-harvest/internal/bus"
	"github.com/matheus3301/wpp-harvest/internal/command"
	"github.com/matheus3301/wpp-harvest/internal/journal"
	"github.com/matheus3301/wpp-harvest/internal/status"
	"github.com/matheus3301/wpp-harvest/internal/store"
	"github.com/matheus3301/wpp-harvest/internal/wa"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// Account is the platform session behind the daemon.
type Account interface {
	PhoneNumber() string
	StartQRAuth(ctx context.Context) (<-chan wa.PairEvent, error)
}

// Journal is the read side of the audit trail and outbox.
type Journal interface {
	RecentAudit(limit int) ([]journal.AuditEntry, error)
	OutboxCounts() (map[string]int64, error)
}

// AdminService implements AdminServer. Callers on the socket are trusted
// operators and are audited as command.OperatorID.
type AdminService struct {
	session   string
	startedAt time.Time
	svc       *command.Service
	machine   *status.Machine
	account   Account
	journal   Journal
	bus       *bus.Bus
	logger    *zap.Logger
}

var _ AdminServer = (*AdminService)(nil)

// NewAdminService builds the service. account and j may be nil.
func NewAdminService(session string, svc *command.Service, machine *status.Machine, account Account, j Journal, b *bus.Bus, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{
		session:   session,
		startedAt: time.Now(),
		svc:       svc,
		machine:   machine,
		account:   account,
		journal:   j,
		bus:       b,
		logger:    logger,
	}
}

func (s *AdminService) Status(_ context.Context, _ *Empty) (*StatusResponse, error) {
	resp := &StatusResponse{
		Session:       s.session,
		Status:        string(s.machine.Current()),
		StatusSinceMs: s.machine.Since().UnixMilli(),
		UptimeMs:      time.Since(s.startedAt).Milliseconds(),
		DroppedEvents: s.bus.Dropped(),
	}
	if s.account != nil {
		resp.PhoneNumber = s.account.PhoneNumber()
	}
	if st, err := s.svc.CachedStats(); err == nil {
		resp.Stats = st
	}
	if s.journal != nil {
		if counts, err := s.journal.OutboxCounts(); err == nil {
			resp.Outbox = counts
		}
	}
	return resp, nil
}

func (s *AdminService) ListGroups(_ context.Context, _ *Empty) (*GroupsResponse, error) {
	groups, err := s.svc.ListGroups(command.OperatorID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &GroupsResponse{Groups: groups}, nil
}

func (s *AdminService) ListContacts(_ context.Context, _ *Empty) (*ContactsResponse, error) {
	contacts, err := s.svc.ListContacts(command.OperatorID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ContactsResponse{Contacts: contacts}, nil
}

func (s *AdminService) ListBlacklist(_ context.Context, _ *Empty) (*BlacklistResponse, error) {
	entries, err := s.svc.ListBlacklist(command.OperatorID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &BlacklistResponse{Entries: entries}, nil
}

func (s *AdminService) ListAdmins(_ context.Context, _ *Empty) (*AdminsResponse, error) {
	admins, err := s.svc.ListAdmins(command.OperatorID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &AdminsResponse{Admins: admins}, nil
}

func (s *AdminService) GetStats(_ context.Context, req *StatsRequest) (*StatsResponse, error) {
	var (
		st  store.Stats
		err error
	)
	if req.Refresh {
		st, err = s.svc.Stats(command.OperatorID)
	} else {
		st, err = s.svc.CachedStats()
	}
	if err != nil {
		return nil, toStatus(err)
	}
	return &StatsResponse{Stats: st}, nil
}

func (s *AdminService) AddBlacklist(_ context.Context, req *RefRequest) (*EntryResponse, error) {
	entry, err := s.svc.BlacklistUser(command.OperatorID, req.Ref)
	if err != nil {
		return nil, toStatus(err)
	}
	return &EntryResponse{Entry: entry}, nil
}

func (s *AdminService) RemoveBlacklist(_ context.Context, req *IDRequest) (*EntryResponse, error) {
	entry, err := s.svc.Unblacklist(command.OperatorID, req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &EntryResponse{Entry: entry}, nil
}

func (s *AdminService) RemoveContact(_ context.Context, req *IDRequest) (*ContactResponse, error) {
	c, err := s.svc.RemoveContact(command.OperatorID, req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ContactResponse{Contact: c}, nil
}

func (s *AdminService) RemoveGroup(_ context.Context, req *IDRequest) (*GroupResponse, error) {
	g, err := s.svc.RemoveGroup(command.OperatorID, req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &GroupResponse{Group: g}, nil
}

func (s *AdminService) GrantAdmin(_ context.Context, req *AdminRequest) (*Empty, error) {
	profile := store.AdminEntry{Username: req.Username, FirstName: req.FirstName, LastName: req.LastName}
	if err := s.svc.GrantAdmin(command.OperatorID, req.GroupID, req.UserID, profile); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

func (s *AdminService) RevokeAdmin(_ context.Context, req *AdminRequest) (*Empty, error) {
	if err := s.svc.RevokeAdmin(command.OperatorID, req.GroupID, req.UserID); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

func (s *AdminService) RecentAudit(_ context.Context, req *AuditRequest) (*AuditResponse, error) {
	if s.journal == nil {
		return nil, grpcstatus.Error(codes.Unavailable, "journal not available")
	}
	entries, err := s.journal.RecentAudit(req.Limit)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "read audit: %v", err)
	}
	return &AuditResponse{Entries: entries}, nil
}

func (s *AdminService) WatchEvents(req *WatchRequest, stream grpc.ServerStreamingServer[Event]) error {
	ch, unsub := s.bus.Subscribe(req.Namespace, 256)
	defer unsub()

	for {
		select {
		case evt := <-ch:
			payload, err := json.Marshal(evt.Payload)
			if err != nil {
				s.logger.Debug("event payload not encodable", zap.String("kind", evt.Kind), zap.Error(err))
				payload = nil
			}
			if err := stream.Send(&Event{
				ID:           evt.ID,
				Kind:         evt.Kind,
				OccurredAtMs: evt.Timestamp.UnixMilli(),
				Payload:      payload,
			}); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}

func (s *AdminService) Pair(_ *Empty, stream grpc.ServerStreamingServer[PairEvent]) error {
	if s.account == nil {
		return grpcstatus.Error(codes.Unavailable, "adapter not initialized")
	}
	events, err := s.account.StartQRAuth(stream.Context())
	if errors.Is(err, wa.ErrAlreadyPaired) {
		return grpcstatus.Error(codes.FailedPrecondition, err.Error())
	}
	if err != nil {
		return grpcstatus.Errorf(codes.Internal, "start pairing: %v", err)
	}
	for evt := range events {
		if err := stream.Send(&PairEvent{Type: evt.Type, QRCode: evt.QRCode, Message: evt.Message}); err != nil {
			return err
		}
	}
	return nil
}

// toStatus maps an operation error to a gRPC status by outcome.
func toStatus(err error) error {
	var code codes.Code
	switch store.OutcomeOf(err) {
	case store.OutcomeSuccess:
		return nil
	case store.OutcomeAlreadyExists:
		code = codes.AlreadyExists
	case store.OutcomeNotFound:
		code = codes.NotFound
	case store.OutcomeUnauthorized:
		code = codes.PermissionDenied
	case store.OutcomeBlacklisted:
		code = codes.FailedPrecondition
	case store.OutcomeInvalid:
		code = codes.InvalidArgument
	default:
		code = codes.Internal
	}
	return grpcstatus.Error(code, err.Error())
}
