package journal

import (
	"path/filepath"
	"testing"
	"time"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)

	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 2 {
		t.Errorf("version = %d, want 2 (init + outbox attempts)", result.Version)
	}
}

func TestAuditRecordAndRecent(t *testing.T) {
	db := testDB(t)
	base := time.UnixMilli(1_700_000_000_000)

	entries := []AuditEntry{
		{OccurredAt: base, ActorID: "1", Action: "blacklist", TargetID: "9", Outcome: "success"},
		{OccurredAt: base.Add(time.Second), ActorID: "2", Action: "contacts", Outcome: "unauthorized"},
		{OccurredAt: base.Add(2 * time.Second), ActorID: "operator", Action: "remove_group", TargetID: "100", Outcome: "not_found"},
	}
	for _, e := range entries {
		if err := db.Record(e); err != nil {
			t.Fatal(err)
		}
	}

	got, err := db.RecentAudit(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	if got[0].Action != "remove_group" || got[1].Action != "contacts" {
		t.Errorf("order = [%s %s], want [remove_group contacts]", got[0].Action, got[1].Action)
	}
	if !got[0].OccurredAt.Equal(base.Add(2 * time.Second)) {
		t.Errorf("occurred_at = %v", got[0].OccurredAt)
	}
}

func TestRecordStampsTime(t *testing.T) {
	db := testDB(t)
	before := time.Now().Add(-time.Second)
	if err := db.Record(AuditEntry{Action: "stats", Outcome: "success"}); err != nil {
		t.Fatal(err)
	}
	got, err := db.RecentAudit(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].OccurredAt.Before(before) {
		t.Errorf("got %+v, want a fresh timestamp", got)
	}
}

func TestOutboxLifecycle(t *testing.T) {
	db := testDB(t)

	if err := db.QueueOutbox("c1", "123@s.whatsapp.net", "hello"); err != nil {
		t.Fatal(err)
	}
	if err := db.QueueOutbox("c2", "123@s.whatsapp.net", "again"); err != nil {
		t.Fatal(err)
	}

	pending, err := db.PendingOutbox()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 || pending[0].ClientMsgID != "c1" {
		t.Fatalf("pending = %+v, want c1 first of 2", pending)
	}

	if err := db.MarkOutboxSending("c1"); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkOutboxSent("c1", "srv1"); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkOutboxSending("c2"); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkOutboxFailed("c2", "timeout", true); err != nil {
		t.Fatal(err)
	}

	pending, err = db.PendingOutbox()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].ClientMsgID != "c2" || pending[0].Attempts != 1 {
		t.Fatalf("pending = %+v, want c2 requeued after 1 attempt", pending)
	}

	if err := db.MarkOutboxSending("c2"); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkOutboxFailed("c2", "timeout", false); err != nil {
		t.Fatal(err)
	}

	counts, err := db.OutboxCounts()
	if err != nil {
		t.Fatal(err)
	}
	if counts[OutboxSent] != 1 || counts[OutboxFailed] != 1 || counts[OutboxQueued] != 0 {
		t.Errorf("counts = %v", counts)
	}
}

func TestRequeueSending(t *testing.T) {
	db := testDB(t)
	if err := db.QueueOutbox("c1", "chat", "x"); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkOutboxSending("c1"); err != nil {
		t.Fatal(err)
	}

	n, err := db.RequeueSending()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("requeued %d, want 1", n)
	}
	pending, _ := db.PendingOutbox()
	if len(pending) != 1 {
		t.Errorf("got %d pending, want 1", len(pending))
	}
}
