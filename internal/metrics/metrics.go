// Package metrics exposes harvester counters to Prometheus. Counters are
// driven by bus events; totals are read from the stats document on scrape.
package metrics

import (
	"context"

	"github.com/matheus3301/wpp-harvest/internal/bus"
	"github.com/matheus3301/wpp-harvest/internal/harvest"
	"github.com/matheus3301/wpp-harvest/internal/notify"
	"github.com/matheus3301/wpp-harvest/internal/status"
	"github.com/matheus3301/wpp-harvest/internal/store"
	"github.com/matheus3301/wpp-harvest/internal/watch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const namespace = "harvest"

// StatsSource reads the last computed statistics.
type StatsSource interface {
	Stats() (store.Stats, error)
}

// StoreFailure is the payload of store.failure.
type StoreFailure struct {
	Collection string `json:"collection"`
}

// Metrics owns a private registry.
type Metrics struct {
	registry *prometheus.Registry
	logger   *zap.Logger

	sightings      *prometheus.CounterVec
	contactsAdded  prometheus.Counter
	commands       *prometheus.CounterVec
	storeFailures  *prometheus.CounterVec
	notifications  *prometheus.CounterVec
	externalWrites *prometheus.CounterVec
	statusChanges  *prometheus.CounterVec

	cancel context.CancelFunc
	done   chan struct{}
}

// New registers every collector. stats and b may be nil.
func New(stats StatsSource, b *bus.Bus, logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		logger:   logger,
		sightings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sightings_total",
			Help:      "Group message senders processed, by outcome.",
		}, []string{"outcome"}),
		contactsAdded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contacts_added_total",
			Help:      "Contacts inserted since start.",
		}),
		commands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Chat commands handled, by command and outcome.",
		}, []string{"command", "outcome"}),
		storeFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_failures_total",
			Help:      "Failed collection reads or writes, by collection.",
		}, []string{"collection"}),
		notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Outbound message attempts, by result.",
		}, []string{"result"}),
		externalWrites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "external_writes_total",
			Help:      "Collection files changed by another process, by collection.",
		}, []string{"collection"}),
		statusChanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_changes_total",
			Help:      "Connection state transitions, by target state.",
		}, []string{"to"}),
	}

	if b != nil {
		f.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_dropped_events_total",
			Help:      "Bus deliveries skipped because a subscriber was full.",
		}, func() float64 { return float64(b.Dropped()) })
	}
	if stats != nil {
		m.registerTotals(f, stats)
	}
	return m
}

func (m *Metrics) registerTotals(f promauto.Factory, src StatsSource) {
	read := func(pick func(store.Stats) int) func() float64 {
		return func() float64 {
			st, err := src.Stats()
			if err != nil {
				return 0
			}
			return float64(pick(st))
		}
	}
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "contacts",
		Help:      "Total contacts at the last stats recompute.",
	}, read(func(s store.Stats) int { return s.TotalContacts }))
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "groups",
		Help:      "Tracked groups at the last stats recompute.",
	}, read(func(s store.Stats) int { return s.TotalGroups }))
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "blacklisted",
		Help:      "Blacklisted users at the last stats recompute.",
	}, read(func(s store.Stats) int { return s.Blacklisted }))
}

// Registry returns the registry to serve.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Start counts events from b until Stop.
func (m *Metrics) Start(ctx context.Context, b *bus.Bus) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	ch, unsub := b.Subscribe("", 512)

	go func() {
		defer close(m.done)
		defer unsub()
		for {
			select {
			case evt := <-ch:
				m.Observe(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends event counting.
func (m *Metrics) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
}

// Observe updates counters for one event.
func (m *Metrics) Observe(evt bus.Event) {
	switch p := evt.Payload.(type) {
	case harvest.SightingResult:
		m.sightings.WithLabelValues(p.Outcome).Inc()
	case harvest.CommandResult:
		m.commands.WithLabelValues(p.Command, p.Outcome).Inc()
	case notify.Delivery:
		result := "sent"
		if evt.Kind == bus.KindNotifyFailed {
			result = "retry"
			if p.Final {
				result = "failed"
			}
		}
		m.notifications.WithLabelValues(result).Inc()
	case StoreFailure:
		m.storeFailures.WithLabelValues(p.Collection).Inc()
	case watch.ExternalWrite:
		m.externalWrites.WithLabelValues(p.Collection).Inc()
	case store.Contact:
		if evt.Kind == bus.KindContactAdded {
			m.contactsAdded.Inc()
		}
	case status.StatusChange:
		m.statusChanges.WithLabelValues(string(p.To)).Inc()
	}
}
