package docstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc map[string]entry

type entry struct {
	Title string  `json:"title"`
	Count int     `json:"count"`
	Note  *string `json:"note"`
}

func newDoc() doc { return doc{} }

func notNil(d doc) bool { return d != nil }

func TestRoundTripFileBackend(t *testing.T) {
	b, err := NewFileBackend(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	c := NewCollection(b, "groups", newDoc, WithValidate(notNil))

	note := "ünïcode <b>"
	want := doc{
		"100": {Title: "Test", Count: 3, Note: &note},
		"200": {Title: "Other"},
	}
	require.NoError(t, c.Save(want))

	got, err := c.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	raw, err := os.ReadFile(b.Path("groups"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "    \"100\": {")
	assert.Contains(t, string(raw), "ünïcode <b>")

	info, err := os.Stat(b.Path("groups"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	_, ok := b.LastWrite("groups")
	assert.True(t, ok)
}

func TestLoadMissingReturnsDefault(t *testing.T) {
	c := NewCollection(NewMemoryBackend(), "contacts", newDoc)

	got, err := c.Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissing)
	assert.True(t, Recoverable(err))
	assert.Equal(t, doc{}, got)
}

func TestLoadMalformedReturnsDefault(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"truncated", `{"1": {"title": `},
		{"wrong type", `[1, 2, 3]`},
		{"null", `null`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMemoryBackend()
			m.Put("contacts", []byte(tt.raw))
			c := NewCollection(m, "contacts", newDoc, WithValidate(notNil))

			got, err := c.Load()
			assert.ErrorIs(t, err, ErrMalformed)
			assert.True(t, Recoverable(err))
			assert.Equal(t, doc{}, got)
		})
	}
}

func TestLoadReadFailureIsNotRecoverable(t *testing.T) {
	m := NewMemoryBackend()
	m.FailReads("contacts", errors.New("permission denied"))
	c := NewCollection(m, "contacts", newDoc)

	_, err := c.Load()
	require.Error(t, err)
	assert.False(t, Recoverable(err))
}

func TestUpdateWritesOnce(t *testing.T) {
	m := NewMemoryBackend()
	c := NewCollection(m, "groups", newDoc)

	err := c.Update(func(d *doc) error {
		(*d)["1"] = entry{Title: "one"}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, m.Writes("groups"))

	err = c.Update(func(d *doc) error { return ErrNoChange })
	require.NoError(t, err)
	assert.Equal(t, 1, m.Writes("groups"), "ErrNoChange must skip the write")

	boom := errors.New("boom")
	err = c.Update(func(d *doc) error {
		(*d)["2"] = entry{Title: "two"}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := c.Load()
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestUpdateWriteFailureLeavesDocument(t *testing.T) {
	m := NewMemoryBackend()
	c := NewCollection(m, "groups", newDoc)
	require.NoError(t, c.Save(doc{"1": {Title: "one"}}))

	m.FailWrites("groups", errors.New("disk full"))
	err := c.Update(func(d *doc) error {
		delete(*d, "1")
		return nil
	})
	require.Error(t, err)

	m.FailWrites("groups", nil)
	got, err := c.Load()
	require.NoError(t, err)
	assert.Contains(t, got, "1")
}

func TestInitCreatesOnlyWhenAbsent(t *testing.T) {
	m := NewMemoryBackend()
	c := NewCollection(m, "admins", newDoc)

	created, err := c.Init()
	require.NoError(t, err)
	assert.True(t, created)

	raw, ok := m.Raw("admins")
	require.True(t, ok)
	assert.Equal(t, "{}\n", string(raw))

	require.NoError(t, c.Save(doc{"5": {Title: "keep"}}))
	created, err = c.Init()
	require.NoError(t, err)
	assert.False(t, created)

	got, err := c.Load()
	require.NoError(t, err)
	assert.Contains(t, got, "5")
}
