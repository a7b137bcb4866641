package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string   `json:"name"`
	Stars int      `json:"stars"`
	Tags  []string `json:"tags"`
}

type fakeClock struct {
	current time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.current
}

func (c *fakeClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}

// brokenStorage fails every call like a disabled or full storage
type brokenStorage struct{}

func (brokenStorage) GetItem(string) ([]byte, error) { return nil, errors.New("storage disabled") }
func (brokenStorage) SetItem(string, []byte) error   { return errors.New("quota exceeded") }
func (brokenStorage) RemoveItem(string) error        { return errors.New("storage disabled") }

func newTestStore(t *testing.T) (*Store, *FileStorage, *fakeClock) {
	storage, err := NewFileStorage(afero.NewMemMapFs(), "cache")
	require.NoError(t, err)

	clock := &fakeClock{current: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	return NewStore(storage, WithClock(clock.Now)), storage, clock
}

func TestStoreRoundTrip(t *testing.T) {
	store, _, _ := newTestStore(t)
	value := payload{Name: "portfolio", Stars: 12, Tags: []string{"web", "go"}}

	store.Set("github_data_test", value)

	var got payload
	assert.True(t, store.Get("github_data_test", time.Millisecond, &got))
	assert.Equal(t, value, got)
}

func TestStoreExpiry(t *testing.T) {
	tests := []struct {
		name     string
		elapsed  time.Duration
		maxAge   time.Duration
		expected bool
	}{
		{name: "fresh", elapsed: 59 * time.Minute, maxAge: time.Hour, expected: true},
		{name: "exactly at threshold", elapsed: time.Hour, maxAge: time.Hour, expected: false},
		{name: "stale", elapsed: 2 * time.Hour, maxAge: time.Hour, expected: false},
		{name: "stale but inside fallback window", elapsed: 2 * time.Hour, maxAge: 24 * time.Hour, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _, clock := newTestStore(t)
			store.Set("key", payload{Name: "a"})

			clock.Advance(tt.elapsed)

			var got payload
			assert.Equal(t, tt.expected, store.Get("key", tt.maxAge, &got))
		})
	}
}

func TestStoreRemovesStaleEntry(t *testing.T) {
	store, storage, clock := newTestStore(t)
	store.Set("key", payload{Name: "a"})

	clock.Advance(2 * time.Hour)

	var got payload
	assert.False(t, store.Get("key", time.Hour, &got))

	// the entry is physically gone, even a wide threshold does not see it anymore
	_, err := storage.GetItem("key")
	assert.Error(t, err)
	assert.False(t, store.Get("key", 48*time.Hour, &got))
}

func TestStoreCorruptedEntry(t *testing.T) {
	store, storage, _ := newTestStore(t)
	require.NoError(t, storage.SetItem("key", []byte("{not json")))

	var got payload
	assert.False(t, store.Get("key", time.Hour, &got))

	_, err := storage.GetItem("key")
	assert.Error(t, err, "corrupted entry must be removed")
}

func TestStoreOverwrite(t *testing.T) {
	store, _, clock := newTestStore(t)
	store.Set("key", payload{Name: "first"})

	clock.Advance(30 * time.Minute)
	store.Set("key", payload{Name: "second"})

	clock.Advance(45 * time.Minute)

	var got payload
	assert.True(t, store.Get("key", time.Hour, &got), "timestamp is refreshed on overwrite")
	assert.Equal(t, "second", got.Name)
}

func TestStoreMissingKey(t *testing.T) {
	store, _, _ := newTestStore(t)

	var got payload
	assert.False(t, store.Get("missing", time.Hour, &got))
}

func TestStoreFailsSoft(t *testing.T) {
	store := NewStore(brokenStorage{})

	assert.NotPanics(t, func() {
		store.Set("key", payload{Name: "a"})
	})

	var got payload
	assert.False(t, store.Get("key", time.Hour, &got))
}

func TestFileStorageSanitizesKeys(t *testing.T) {
	fs := afero.NewMemMapFs()
	storage, err := NewFileStorage(fs, "cache")
	require.NoError(t, err)

	require.NoError(t, storage.SetItem("../github data", []byte("x")))

	exists, err := afero.Exists(fs, "cache/.._github_data.json")
	require.NoError(t, err)
	assert.True(t, exists)

	value, err := storage.GetItem("../github data")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), value)

	assert.NoError(t, storage.RemoveItem("../github data"))
	assert.NoError(t, storage.RemoveItem("../github data"), "removing twice is fine")
}
