// Package docstore persists named JSON documents. Each document is read and
// written whole; there is no partial update.
package docstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrMissing means the document does not exist yet.
	ErrMissing = errors.New("document missing")
	// ErrMalformed means the document exists but does not decode.
	ErrMalformed = errors.New("document malformed")
	// ErrNoChange can be returned from an Update callback to skip the write.
	ErrNoChange = errors.New("no change")
)

// Recoverable reports whether a Load error left a usable default document.
func Recoverable(err error) bool {
	return errors.Is(err, ErrMissing) || errors.Is(err, ErrMalformed)
}

// Collection is a typed handle on one named document.
type Collection[T any] struct {
	name     string
	backend  Backend
	defaults func() T
	valid    func(T) bool

	mu sync.Mutex
}

// Option customizes a Collection.
type Option[T any] func(*Collection[T])

// WithValidate marks decoded documents failing fn as malformed,
// e.g. a JSON null decoded into a nil map.
func WithValidate[T any](fn func(T) bool) Option[T] {
	return func(c *Collection[T]) { c.valid = fn }
}

// NewCollection returns a handle on the named document. defaults builds the
// empty shape returned when the document is absent or unreadable as JSON.
func NewCollection[T any](backend Backend, name string, defaults func() T, opts ...Option[T]) *Collection[T] {
	c := &Collection[T]{name: name, backend: backend, defaults: defaults}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Name returns the collection name.
func (c *Collection[T]) Name() string {
	return c.name
}

// Load reads the whole document. When the document is missing or malformed
// the default shape is returned together with ErrMissing or ErrMalformed;
// any other error comes with the default shape as well but is not recoverable.
func (c *Collection[T]) Load() (T, error) {
	data, err := c.backend.Read(c.name)
	if err != nil {
		if isNotExist(err) {
			return c.defaults(), fmt.Errorf("%s: %w", c.name, ErrMissing)
		}
		return c.defaults(), fmt.Errorf("read %s: %w", c.name, err)
	}

	doc := c.defaults()
	if err := json.Unmarshal(data, &doc); err != nil {
		return c.defaults(), fmt.Errorf("%s: %w: %v", c.name, ErrMalformed, err)
	}
	if c.valid != nil && !c.valid(doc) {
		return c.defaults(), fmt.Errorf("%s: %w: unexpected shape", c.name, ErrMalformed)
	}
	return doc, nil
}

// Save overwrites the whole document.
func (c *Collection[T]) Save(doc T) error {
	data, err := Encode(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.name, err)
	}
	if err := c.backend.Write(c.name, data); err != nil {
		return fmt.Errorf("write %s: %w", c.name, err)
	}
	return nil
}

// Update runs one load-modify-save cycle while holding the collection lock.
// Missing or malformed documents start from the default shape. If fn returns
// ErrNoChange nothing is written and Update returns nil; any other error from
// fn aborts without writing.
func (c *Collection[T]) Update(fn func(doc *T) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc, err := c.Load()
	if err != nil && !Recoverable(err) {
		return err
	}
	if err := fn(&doc); err != nil {
		if errors.Is(err, ErrNoChange) {
			return nil
		}
		return err
	}
	return c.Save(doc)
}

// View runs fn on a freshly loaded document while holding the collection
// lock, so it never observes a half-finished Update from this process.
func (c *Collection[T]) View(fn func(doc T) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc, err := c.Load()
	if err != nil && !Recoverable(err) {
		return err
	}
	return fn(doc)
}

// Init writes the default document if none exists yet.
func (c *Collection[T]) Init() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.backend.Read(c.name)
	if err == nil {
		return false, nil
	}
	if !isNotExist(err) {
		return false, fmt.Errorf("read %s: %w", c.name, err)
	}
	if err := c.Save(c.defaults()); err != nil {
		return false, err
	}
	return true, nil
}

// Encode renders a document the way it is stored on disk: UTF-8, four-space
// indentation, no HTML escaping, trailing newline.
func Encode(doc any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
