package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matheus3301/wpp-harvest/internal/bus"
	"github.com/matheus3301/wpp-harvest/internal/harvest"
	"github.com/matheus3301/wpp-harvest/internal/notify"
	"github.com/matheus3301/wpp-harvest/internal/status"
	"github.com/matheus3301/wpp-harvest/internal/store"
	"github.com/matheus3301/wpp-harvest/internal/watch"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fixedStats struct {
	stats store.Stats
	err   error
}

func (f fixedStats) Stats() (store.Stats, error) { return f.stats, f.err }

func TestObserveCountsEvents(t *testing.T) {
	m := New(nil, nil, nil)

	events := []bus.Event{
		bus.NewEvent(bus.KindSightingDone, harvest.SightingResult{Outcome: "success"}),
		bus.NewEvent(bus.KindSightingDone, harvest.SightingResult{Outcome: "already_exists"}),
		bus.NewEvent(bus.KindSightingDone, harvest.SightingResult{Outcome: "already_exists"}),
		bus.NewEvent(bus.KindContactAdded, store.Contact{ID: "1"}),
		bus.NewEvent(bus.KindCommandDone, harvest.CommandResult{Command: "stats", Outcome: "unauthorized"}),
		bus.NewEvent(bus.KindNotifySent, notify.Delivery{Final: true}),
		bus.NewEvent(bus.KindNotifyFailed, notify.Delivery{}),
		bus.NewEvent(bus.KindNotifyFailed, notify.Delivery{Final: true}),
		bus.NewEvent(bus.KindStoreFailure, StoreFailure{Collection: "contacts"}),
		bus.NewEvent(bus.KindExternalWrite, watch.ExternalWrite{Collection: "groups", Op: "write"}),
		bus.NewEvent(bus.KindStatusChanged, status.StatusChange{From: status.Connecting, To: status.Online}),
	}
	for _, e := range events {
		m.Observe(e)
	}

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"sightings success", testutil.ToFloat64(m.sightings.WithLabelValues("success")), 1},
		{"sightings already_exists", testutil.ToFloat64(m.sightings.WithLabelValues("already_exists")), 2},
		{"contacts added", testutil.ToFloat64(m.contactsAdded), 1},
		{"commands", testutil.ToFloat64(m.commands.WithLabelValues("stats", "unauthorized")), 1},
		{"notify sent", testutil.ToFloat64(m.notifications.WithLabelValues("sent")), 1},
		{"notify retry", testutil.ToFloat64(m.notifications.WithLabelValues("retry")), 1},
		{"notify failed", testutil.ToFloat64(m.notifications.WithLabelValues("failed")), 1},
		{"store failures", testutil.ToFloat64(m.storeFailures.WithLabelValues("contacts")), 1},
		{"external writes", testutil.ToFloat64(m.externalWrites.WithLabelValues("groups")), 1},
		{"status changes", testutil.ToFloat64(m.statusChanges.WithLabelValues("ONLINE")), 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestStartConsumesBus(t *testing.T) {
	b := bus.New()
	m := New(nil, b, nil)
	m.Start(context.Background(), b)

	deadline := time.Now().Add(2 * time.Second)
	for testutil.ToFloat64(m.contactsAdded) == 0 && time.Now().Before(deadline) {
		b.Emit(bus.KindContactAdded, store.Contact{ID: "1"})
		time.Sleep(10 * time.Millisecond)
	}
	m.Stop()

	if testutil.ToFloat64(m.contactsAdded) == 0 {
		t.Fatal("contact_added event not counted")
	}
}

func TestRoutes(t *testing.T) {
	b := bus.New()
	m := New(fixedStats{stats: store.Stats{TotalContacts: 5, TotalGroups: 2, Blacklisted: 1}}, b, nil)
	var healthy atomic.Bool
	healthy.Store(true)
	srv := httptest.NewServer(m.Routes(func() (string, bool) {
		if healthy.Load() {
			return "ONLINE", true
		}
		return "AUTH_REQUIRED", false
	}))
	defer srv.Close()

	body := get(t, srv.URL+"/metrics", http.StatusOK)
	for _, want := range []string{"harvest_contacts 5", "harvest_groups 2", "harvest_blacklisted 1", "harvest_bus_dropped_events_total 0"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}

	if got := get(t, srv.URL+"/healthz", http.StatusOK); strings.TrimSpace(got) != "ONLINE" {
		t.Errorf("healthz = %q", got)
	}
	healthy.Store(false)
	get(t, srv.URL+"/healthz", http.StatusServiceUnavailable)
}

func TestTotalsOnStatsFailure(t *testing.T) {
	m := New(fixedStats{err: errors.New("unreadable")}, nil, nil)
	srv := httptest.NewServer(m.Routes(nil))
	defer srv.Close()

	if body := get(t, srv.URL+"/metrics", http.StatusOK); !strings.Contains(body, "harvest_contacts 0") {
		t.Error("unreadable stats should report zero")
	}
}

func get(t *testing.T, url string, wantCode int) string {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != wantCode {
		t.Fatalf("GET %s = %d, want %d", url, resp.StatusCode, wantCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}
