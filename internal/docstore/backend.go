package docstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Backend stores raw collection documents by name.
// Read must return an error matching fs.ErrNotExist for absent documents.
type Backend interface {
	Read(name string) ([]byte, error)
	Write(name string, data []byte) error
}

// FileBackend keeps one <name>.json file per collection in a single directory.
type FileBackend struct {
	dir string

	mu     sync.Mutex
	writes map[string]time.Time
}

// NewFileBackend creates the directory if needed and returns a backend rooted there.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileBackend{dir: dir, writes: make(map[string]time.Time)}, nil
}

// Dir returns the data directory.
func (b *FileBackend) Dir() string {
	return b.dir
}

// Path returns the file path of the named collection.
func (b *FileBackend) Path(name string) string {
	return filepath.Join(b.dir, name+".json")
}

func (b *FileBackend) Read(name string) ([]byte, error) {
	return os.ReadFile(b.Path(name))
}

// Write replaces the document atomically: the bytes go to a temp file in the
// same directory which is synced and renamed over the target.
func (b *FileBackend) Write(name string, data []byte) error {
	tmp, err := os.CreateTemp(b.dir, "."+name+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		cleanup()
		return err
	}

	b.mu.Lock()
	b.writes[name] = time.Now()
	b.mu.Unlock()

	if err := os.Rename(tmpName, b.Path(name)); err != nil {
		cleanup()
		return err
	}
	return nil
}

// LastWrite reports when this backend last wrote the named collection.
func (b *FileBackend) LastWrite(name string) (time.Time, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.writes[name]
	return t, ok
}

// MemoryBackend is an in-process Backend used by tests.
type MemoryBackend struct {
	mu        sync.Mutex
	docs      map[string][]byte
	failWrite map[string]error
	failRead  map[string]error
	writes    map[string]int
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		docs:      make(map[string][]byte),
		failWrite: make(map[string]error),
		failRead:  make(map[string]error),
		writes:    make(map[string]int),
	}
}

func (m *MemoryBackend) Read(name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failRead[name]; err != nil {
		return nil, err
	}
	data, ok := m.docs[name]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", name, fs.ErrNotExist)
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryBackend) Write(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failWrite[name]; err != nil {
		return err
	}
	m.docs[name] = append([]byte(nil), data...)
	m.writes[name]++
	return nil
}

// Put stores raw bytes for a collection, bypassing encoding.
func (m *MemoryBackend) Put(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[name] = append([]byte(nil), data...)
}

// Raw returns the stored bytes for a collection.
func (m *MemoryBackend) Raw(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.docs[name]
	return data, ok
}

// Writes returns how many successful writes the collection received.
func (m *MemoryBackend) Writes(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes[name]
}

// FailWrites makes every write of the collection fail with err. A nil err clears it.
func (m *MemoryBackend) FailWrites(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failWrite, name)
		return
	}
	m.failWrite[name] = err
}

// FailReads makes every read of the collection fail with err. A nil err clears it.
func (m *MemoryBackend) FailReads(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failRead, name)
		return
	}
	m.failRead[name] = err
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
