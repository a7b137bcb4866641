package cache

import (
	"errors"
	"os"
	"time"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

// envelope is what is physically written for every key
type envelope struct {
	Payload         json.RawMessage `json:"payload"`
	WrittenAtMillis int64           `json:"writtenAtMillis"`
}

// Store is a time bounded cache in front of a Storage.
// Every failure is absorbed: a broken storage behaves like an empty cache
type Store struct {
	storage Storage
	now     func() time.Time
}

type Option func(*Store)

// WithClock replaces time.Now, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(storage Storage, opts ...Option) *Store {
	s := &Store{
		storage: storage,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Get decodes the payload stored under key into out if it was written less than maxAge ago.
// Stale or unreadable entries are removed and reported as absent
func (s *Store) Get(key string, maxAge time.Duration, out any) bool {
	raw, err := s.storage.GetItem(key)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.WithError(err).WithField("key", key).Warning("unable to read cache entry. cache ignored")
		}
		return false
	}

	var entry envelope
	if err := json.Unmarshal(raw, &entry); err != nil {
		log.WithError(err).WithField("key", key).Warning("corrupted cache entry. removed")
		s.remove(key)
		return false
	}

	age := s.now().Sub(time.UnixMilli(entry.WrittenAtMillis))
	if age >= maxAge {
		log.WithFields(log.Fields{
			"key":    key,
			"age":    age.String(),
			"maxAge": maxAge.String(),
		}).Debug("stale cache entry. removed")

		s.remove(key)
		return false
	}

	if err := json.Unmarshal(entry.Payload, out); err != nil {
		log.WithError(err).WithField("key", key).Warning("cache payload does not match the expected shape. removed")
		s.remove(key)
		return false
	}

	return true
}

// Set overwrites the entry for key with payload stamped with the current time
func (s *Store) Set(key string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.WithError(err).WithField("key", key).Warning("unable to encode cache payload. not cached")
		return
	}

	raw, err := json.Marshal(envelope{Payload: data, WrittenAtMillis: s.now().UnixMilli()})
	if err != nil {
		log.WithError(err).WithField("key", key).Warning("unable to encode cache entry. not cached")
		return
	}

	if err := s.storage.SetItem(key, raw); err != nil {
		log.WithError(err).WithField("key", key).Warning("unable to write cache entry. not cached")
	}
}

func (s *Store) remove(key string) {
	if err := s.storage.RemoveItem(key); err != nil {
		log.WithError(err).WithField("key", key).Warning("unable to remove cache entry")
	}
}
