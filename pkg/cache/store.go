package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"f1replaybot/log"
	"f1replaybot/pkg/telemetry"
)

const DefaultPath = "./f1replay-cache.db"

// Entry is a cached payload and the time it was fetched from the backend.
type Entry struct {
	Payload   *telemetry.Payload
	FetchedAt time.Time
}

// Store keeps fetched payloads in sqlite, keyed by lookup key.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening cache %s", path)
	}
	if _, err = db.Exec(buildCreateCacheTable()); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "initializing cache")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Close()
}

func (s *Store) Get(key telemetry.LookupKey) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query, read := buildSelectEntryCommand()
	rows, err := s.db.Query(query, key.String())
	if err != nil {
		return Entry{}, false, errors.Wrap(err, "reading cache")
	}
	return read(rows)
}

func (s *Store) Put(key telemetry.LookupKey, p *telemetry.Payload, fetchedAt time.Time) error {
	body, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "encoding payload")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(buildUpsertEntryCommand(), key.String(), string(body), fetchedAt.Unix())
	return errors.Wrap(err, "writing cache")
}

// Purge deletes the entries fetched before olderThan.
func (s *Store) Purge(olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(buildPurgeCommand(), olderThan.Unix())
	if err != nil {
		return 0, errors.Wrap(err, "purging cache")
	}
	return res.RowsAffected()
}

func (s *Store) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query, read := buildListKeysCommand()
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, errors.Wrap(err, "listing cache")
	}
	return read(rows)
}

// Fetcher is the source a CachingFetcher falls back to.
type Fetcher interface {
	Fetch(ctx context.Context, key telemetry.LookupKey) (*telemetry.Payload, error)
}

type (
	CachingFetcher struct {
		store *Store
		next  Fetcher
		ttl   time.Duration
		now   func() time.Time
		l     *log.Logger
	}
	Option func(*CachingFetcher)
)

// NewCachingFetcher serves payloads younger than ttl from store. A ttl of
// zero keeps entries forever.
func NewCachingFetcher(store *Store, next Fetcher, ttl time.Duration, opts ...Option) *CachingFetcher {
	f := &CachingFetcher{
		store: store,
		next:  next,
		ttl:   ttl,
		now:   time.Now,
		l:     log.Default().Named("cache"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func WithClock(now func() time.Time) Option {
	return func(f *CachingFetcher) {
		f.now = now
	}
}

func WithLogger(l *log.Logger) Option {
	return func(f *CachingFetcher) {
		f.l = l
	}
}

// Fetch never fails because of the cache: read and write errors are logged
// and the backend result is returned as is.
func (f *CachingFetcher) Fetch(ctx context.Context, key telemetry.LookupKey) (*telemetry.Payload, error) {
	entry, ok, err := f.store.Get(key)
	switch {
	case err != nil:
		f.l.Warn("cache read failed", log.String("key", key.String()), log.ErrorField(err))
	case ok && f.fresh(entry):
		f.l.Debug("cache hit", log.String("key", key.String()))
		return entry.Payload, nil
	}

	p, err := f.next.Fetch(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := f.store.Put(key, p, f.now()); err != nil {
		f.l.Warn("cache write failed", log.String("key", key.String()), log.ErrorField(err))
	}
	return p, nil
}

func (f *CachingFetcher) fresh(e Entry) bool {
	return f.ttl <= 0 || f.now().Sub(e.FetchedAt) < f.ttl
}
