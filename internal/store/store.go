// Package store holds the harvester's durable state: five JSON collections
// (groups, contacts, blacklist, admins, stats) and the operations on them.
//
// Every operation is a whole-document load-modify-save through docstore.
// Writes to one collection are serialized inside this process; there are no
// transactions across collections, so Stats can lag behind the others until
// the next RecomputeStats.
package store

import (
	"errors"
	"sync"
	"time"

	"github.com/matheus3301/wpp-harvest/internal/docstore"
	"go.uber.org/zap"
)

const (
	addedDateLayout  = "2006-01-02 15:04:05"
	lastUpdateLayout = "02.01.2006 15:04"
)

// Store is the handle on all five collections.
type Store struct {
	groups    *docstore.Collection[Groups]
	contacts  *docstore.Collection[Contacts]
	blacklist *docstore.Collection[Blacklist]
	admins    *docstore.Collection[Admins]
	stats     *docstore.Collection[Stats]

	logger    *zap.Logger
	now       func() time.Time
	onFailure func(collection string)
	statsMu   sync.Mutex
}

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces time.Now for date stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithFailureHook is called with the collection name whenever a read or
// write of that collection fails.
func WithFailureHook(fn func(collection string)) Option {
	return func(s *Store) { s.onFailure = fn }
}

// New builds a store over the given backend.
func New(backend docstore.Backend, logger *zap.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		groups: docstore.NewCollection(backend, GroupsCollection, emptyGroups,
			docstore.WithValidate(func(g Groups) bool { return g != nil })),
		contacts: docstore.NewCollection(backend, ContactsCollection, emptyContacts,
			docstore.WithValidate(func(c Contacts) bool { return c != nil })),
		blacklist: docstore.NewCollection(backend, BlacklistCollection, emptyBlacklist,
			docstore.WithValidate(func(b Blacklist) bool { return b != nil })),
		admins: docstore.NewCollection(backend, AdminsCollection, emptyAdmins,
			docstore.WithValidate(func(a Admins) bool { return a != nil })),
		stats:  docstore.NewCollection(backend, StatsCollection, emptyStats),
		logger: logger,
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Init creates every collection that does not exist yet with its default
// empty shape.
func (s *Store) Init() error {
	inits := []struct {
		name string
		fn   func() (bool, error)
	}{
		{GroupsCollection, s.groups.Init},
		{ContactsCollection, s.contacts.Init},
		{BlacklistCollection, s.blacklist.Init},
		{AdminsCollection, s.admins.Init},
		{StatsCollection, s.stats.Init},
	}
	for _, in := range inits {
		created, err := in.fn()
		if err != nil {
			return s.ioErr(in.name, "init", err)
		}
		if created {
			s.logger.Info("collection created with defaults", zap.String("collection", in.name))
		}
	}
	return nil
}

func (s *Store) stamp() string {
	return s.now().Format(addedDateLayout)
}

func (s *Store) ioErr(collection, op string, err error) error {
	s.logger.Error("collection I/O failed",
		zap.String("collection", collection),
		zap.String("op", op),
		zap.Error(err))
	if s.onFailure != nil {
		s.onFailure(collection)
	}
	return &IOError{Collection: collection, Op: op, Err: err}
}

// loadDoc reads a collection, tolerating missing and malformed documents.
func loadDoc[T any](s *Store, c *docstore.Collection[T]) (T, error) {
	doc, err := c.Load()
	if err == nil {
		return doc, nil
	}
	if docstore.Recoverable(err) {
		if errors.Is(err, docstore.ErrMalformed) {
			s.logger.Warn("collection malformed, using empty default",
				zap.String("collection", c.Name()), zap.Error(err))
		} else {
			s.logger.Debug("collection missing, using empty default",
				zap.String("collection", c.Name()))
		}
		return doc, nil
	}
	return doc, s.ioErr(c.Name(), "read", err)
}

// updateDoc runs a locked load-modify-save. Errors returned by fn pass
// through untouched; load and save failures become IOError.
func updateDoc[T any](s *Store, c *docstore.Collection[T], fn func(doc *T) error) error {
	var fnErr error
	err := c.Update(func(doc *T) error {
		fnErr = fn(doc)
		return fnErr
	})
	if err == nil {
		return nil
	}
	if fnErr != nil {
		return fnErr
	}
	return s.ioErr(c.Name(), "update", err)
}

// removeKey deletes one entry of a keyed collection and returns it.
func removeKey[V any, M ~map[string]V](s *Store, c *docstore.Collection[M], id string) (V, error) {
	var removed V
	err := updateDoc(s, c, func(doc *M) error {
		v, ok := (*doc)[id]
		if !ok {
			return ErrNotFound
		}
		removed = v
		delete(*doc, id)
		return nil
	})
	return removed, err
}
