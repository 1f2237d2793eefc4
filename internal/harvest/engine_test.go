package harvest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/wpp-harvest/internal/bus"
	"github.com/matheus3301/wpp-harvest/internal/command"
	"github.com/matheus3301/wpp-harvest/internal/docstore"
	"github.com/matheus3301/wpp-harvest/internal/journal"
	"github.com/matheus3301/wpp-harvest/internal/store"
	"go.uber.org/zap"
)

type queued struct {
	ChatJID string
	Body    string
}

type memQueue struct {
	mu   sync.Mutex
	msgs []queued
}

func (q *memQueue) Enqueue(chatJID string, bodies ...string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, b := range bodies {
		q.msgs = append(q.msgs, queued{ChatJID: chatJID, Body: b})
	}
	return nil
}

func (q *memQueue) all() []queued {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]queued(nil), q.msgs...)
}

type memAuditor struct {
	mu      sync.Mutex
	entries []journal.AuditEntry
}

func (m *memAuditor) Record(e journal.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

type fixture struct {
	store   *store.Store
	backend *docstore.MemoryBackend
	queue   *memQueue
	audit   *memAuditor
	bus     *bus.Bus
	engine  *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := docstore.NewMemoryBackend()
	st := store.New(backend, zap.NewNop(), store.WithClock(func() time.Time {
		return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	}))
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}
	if _, err := st.InsertGroup(store.Group{ID: "120363000001", Title: "Buyers", ParticipantCount: 12}); err != nil {
		t.Fatal(err)
	}
	if err := st.GrantAdmin("120363000001", "5511900000001", store.AdminEntry{FirstName: "Ana"}); err != nil {
		t.Fatal(err)
	}

	f := &fixture{
		store:   st,
		backend: backend,
		queue:   &memQueue{},
		audit:   &memAuditor{},
		bus:     bus.New(),
	}
	svc := command.NewService(st, nil, f.audit, zap.NewNop())
	router := command.NewRouter(svc, nil, zap.NewNop())
	f.engine = NewEngine(st, router, f.queue, f.audit, f.bus, zap.NewNop())
	return f
}

func phone(s string) *string { return &s }

func sighting(userID, groupID string) store.Sighting {
	return store.Sighting{
		UserID:    userID,
		FirstName: "Bruno",
		Phone:     phone("+" + userID),
		GroupID:   groupID,
	}
}

func TestHarvestNewContact(t *testing.T) {
	f := newFixture(t)
	ch, unsub := f.bus.Subscribe("harvest.", 10)
	defer unsub()

	c, err := f.engine.Harvest(sighting("5511988887777", "120363000001"))
	if err != nil {
		t.Fatal(err)
	}
	if c.GroupTitle != "Buyers" {
		t.Errorf("group_title = %q, want Buyers", c.GroupTitle)
	}

	stats, err := f.store.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalContacts != 1 || stats.GroupsStats[0].ContactsCount != 1 {
		t.Errorf("stats not recomputed: %+v", stats)
	}

	msgs := f.queue.all()
	if len(msgs) != 1 || msgs[0].ChatJID != "5511900000001@s.whatsapp.net" {
		t.Fatalf("queued = %+v, want one notice to the group admin", msgs)
	}
	if !strings.Contains(msgs[0].Body, "Bruno") || !strings.Contains(msgs[0].Body, "Buyers") {
		t.Errorf("notice = %q", msgs[0].Body)
	}

	kinds := map[string]bool{}
	for range 2 {
		kinds[(<-ch).Kind] = true
	}
	if !kinds[bus.KindSightingDone] || !kinds[bus.KindContactAdded] {
		t.Errorf("events = %v", kinds)
	}
	if len(f.audit.entries) != 1 || f.audit.entries[0].Action != ActionHarvest {
		t.Errorf("audit = %+v", f.audit.entries)
	}
}

func TestHarvestIsIdempotent(t *testing.T) {
	f := newFixture(t)
	first, err := f.engine.Harvest(sighting("5511988887777", "120363000001"))
	if err != nil {
		t.Fatal(err)
	}

	again := sighting("5511988887777", "120363000001")
	again.FirstName = "Renamed"
	got, err := f.engine.Harvest(again)
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
	if got.FirstName != first.FirstName {
		t.Errorf("first write should win, got %q", got.FirstName)
	}
	if len(f.queue.all()) != 1 {
		t.Errorf("duplicate sighting should not notify again")
	}
}

func TestHarvestResolvedIdentityIsNotHarvestedTwice(t *testing.T) {
	f := newFixture(t)
	lid := store.Sighting{UserID: "3917077286968@lid", FirstName: "Bruno", GroupID: "120363000001"}
	if _, err := f.engine.Harvest(lid); err != nil {
		t.Fatal(err)
	}

	resolved := sighting("5511988887777", "120363000001")
	resolved.Aliases = []string{"3917077286968@lid"}
	got, err := f.engine.Harvest(resolved)
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
	if got.ID != "5511988887777" {
		t.Errorf("contact id = %q, want the phone number", got.ID)
	}

	contacts, err := f.store.Contacts()
	if err != nil {
		t.Fatal(err)
	}
	if len(contacts) != 1 {
		t.Errorf("got %d contacts, want 1", len(contacts))
	}
	if len(f.queue.all()) != 1 {
		t.Errorf("re-keyed contact should not notify again")
	}
}

func TestHarvestSkipsBlacklisted(t *testing.T) {
	f := newFixture(t)
	if _, err := f.store.InsertBlacklistEntry(store.BlacklistEntry{ID: "5511988887777"}); err != nil {
		t.Fatal(err)
	}
	before := f.backend.Writes(store.ContactsCollection)

	_, err := f.engine.Harvest(sighting("5511988887777", "120363000001"))
	if !errors.Is(err, store.ErrBlacklisted) {
		t.Fatalf("err = %v, want ErrBlacklisted", err)
	}
	if f.backend.Writes(store.ContactsCollection) != before {
		t.Error("contacts written for a blacklisted user")
	}
	if len(f.queue.all()) != 0 {
		t.Error("blacklisted user should not trigger a notice")
	}
}

func TestHarvestIgnoresUntrackedGroups(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Harvest(sighting("5511988887777", "999"))
	if !errors.Is(err, ErrUntracked) {
		t.Fatalf("err = %v, want ErrUntracked", err)
	}
	ok, _ := f.store.HasContact("5511988887777")
	if ok {
		t.Error("contact from an untracked group was stored")
	}
}

func TestHarvestStoreFailureIsAudited(t *testing.T) {
	f := newFixture(t)
	f.backend.FailWrites(store.ContactsCollection, errors.New("disk full"))

	_, err := f.engine.Harvest(sighting("5511988887777", "120363000001"))
	if store.OutcomeOf(err) != store.OutcomeStoreFailure {
		t.Fatalf("outcome = %v, want store failure", store.OutcomeOf(err))
	}
	if len(f.audit.entries) != 1 || f.audit.entries[0].Detail == "" {
		t.Errorf("audit = %+v", f.audit.entries)
	}
}

func TestNotifyAdminsDisabled(t *testing.T) {
	f := newFixture(t)
	f.engine.SetNotifyAdmins(false)
	if _, err := f.engine.Harvest(sighting("5511988887777", "120363000001")); err != nil {
		t.Fatal(err)
	}
	if len(f.queue.all()) != 0 {
		t.Error("notice queued with notifications disabled")
	}
}

func TestHandleCommandQueuesReply(t *testing.T) {
	f := newFixture(t)

	res := f.engine.HandleCommand(context.Background(), command.Request{
		IssuerID: "5511900000001",
		ReplyTo:  "5511900000001@s.whatsapp.net",
		Name:     command.Stats,
	})
	if res.Outcome != store.OutcomeSuccess {
		t.Fatalf("outcome = %v", res.Outcome)
	}
	msgs := f.queue.all()
	if len(msgs) != 1 || msgs[0].ChatJID != "5511900000001@s.whatsapp.net" {
		t.Fatalf("queued = %+v", msgs)
	}

	res = f.engine.HandleCommand(context.Background(), command.Request{
		IssuerID: "5511977776666",
		ReplyTo:  "5511977776666@s.whatsapp.net",
		Name:     command.Contacts,
	})
	if res.Outcome != store.OutcomeUnauthorized {
		t.Errorf("outcome = %v, want unauthorized", res.Outcome)
	}
	if len(f.queue.all()) != 2 {
		t.Error("refusal should still be answered")
	}
}

func TestEngineConsumesBusEvents(t *testing.T) {
	f := newFixture(t)
	done, unsub := f.bus.Subscribe(bus.KindSightingDone, 1)
	defer unsub()

	f.engine.Start(context.Background())
	defer f.engine.Stop()

	f.bus.Emit(bus.KindGroupMessage, sighting("5511988887777", "120363000001"))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sighting not processed")
	}
	ok, err := f.store.HasContact("5511988887777")
	if err != nil || !ok {
		t.Errorf("contact not stored: ok=%v err=%v", ok, err)
	}
}

func TestEngineHarvestsBurstWithoutLoss(t *testing.T) {
	f := newFixture(t)

	f.engine.Start(context.Background())
	defer f.engine.Stop()

	// Well past any fixed subscriber buffer, published faster than the
	// engine can write.
	const n = 600
	for i := 0; i < n; i++ {
		f.bus.Emit(bus.KindGroupMessage, sighting(fmt.Sprintf("5511977%06d", i), "120363000001"))
	}

	deadline := time.Now().Add(20 * time.Second)
	for {
		contacts, err := f.store.Contacts()
		if err != nil {
			t.Fatal(err)
		}
		if len(contacts) == n {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("harvested %d contacts, want %d", len(contacts), n)
		}
		time.Sleep(20 * time.Millisecond)
	}
	if got := f.bus.Dropped(); got != 0 {
		t.Errorf("bus dropped %d events", got)
	}
}
