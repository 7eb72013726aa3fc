package tasks

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	joraerrors "thoreinstein.com/jora/pkg/errors"
)

// CacheKey is the cache entry holding the last ranked task list.
const CacheKey = "tasks_data"

// DefaultCacheTTL is how long a cached task list is served before refetching.
const DefaultCacheTTL = 24 * time.Hour

// Cache is a byte-oriented key-value store that remembers when each entry
// was written.
type Cache interface {
	Get(key string) (value []byte, storedAt time.Time, ok bool, err error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// Ranker produces a ranked task list. *Pipeline implements it.
type Ranker interface {
	EnrichAndRank(ctx context.Context) ([]Task, error)
}

// Listing is a ranked task list together with the time it was fetched.
type Listing struct {
	Tasks     []Task
	FetchedAt time.Time
	FromCache bool
}

// UpdatedAgo describes the age of the listing, e.g. "Updated 5 minutes ago".
func (l *Listing) UpdatedAgo(now time.Time) string {
	if l == nil || l.FetchedAt.IsZero() {
		return ""
	}
	return "Updated " + humanize.RelTime(l.FetchedAt, now, "ago", "from now")
}

// Service serves ranked task lists, memoizing them in a Cache.
type Service struct {
	ranker  Ranker
	cache   Cache
	ttl     time.Duration
	now     func() time.Time
	verbose bool
	logger  *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock overrides the clock used for cache freshness checks.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// WithServiceLogger sets the logger used for debug output.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a Service. A nil cache disables memoization and a
// non-positive ttl selects DefaultCacheTTL.
func NewService(ranker Ranker, cache Cache, ttl time.Duration, verbose bool, opts ...ServiceOption) *Service {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	s := &Service{
		ranker:  ranker,
		cache:   cache,
		ttl:     ttl,
		now:     time.Now,
		verbose: verbose,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return s
}

// List returns the ranked task list. A fresh cached list is returned as-is
// unless refresh is set, in which case the cache entry is dropped first.
// Cache failures never fail the call; they only force a refetch.
func (s *Service) List(ctx context.Context, refresh bool) (*Listing, error) {
	if refresh {
		s.Invalidate()
	} else if listing, ok := s.cached(); ok {
		return listing, nil
	}

	ranked, err := s.ranker.EnrichAndRank(ctx)
	if err != nil {
		return nil, err
	}

	listing := &Listing{Tasks: ranked, FetchedAt: s.now()}
	s.store(ranked)
	return listing, nil
}

// Invalidate drops the cached task list.
func (s *Service) Invalidate() {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(CacheKey); err != nil {
		s.logDebug("cache delete failed", "error", err)
	}
}

func (s *Service) cached() (*Listing, bool) {
	if s.cache == nil {
		return nil, false
	}

	data, storedAt, ok, err := s.cache.Get(CacheKey)
	if err != nil {
		s.logDebug("cache read failed", "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	if s.now().Sub(storedAt) > s.ttl {
		s.logDebug("cached task list expired", "stored_at", storedAt)
		s.Invalidate()
		return nil, false
	}

	var ranked []Task
	if err := json.Unmarshal(data, &ranked); err != nil {
		s.logDebug("cached task list unreadable", "error", joraerrors.Wrap(err, "decoding cache entry"))
		return nil, false
	}
	for i := range ranked {
		if ranked[i].ReviewEvents == nil {
			ranked[i].ReviewEvents = []ReviewEvent{}
		}
	}

	return &Listing{Tasks: ranked, FetchedAt: storedAt, FromCache: true}, true
}

func (s *Service) store(ranked []Task) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(ranked)
	if err != nil {
		s.logDebug("encoding task list failed", "error", err)
		return
	}
	if err := s.cache.Set(CacheKey, data); err != nil {
		s.logDebug("cache write failed", "error", err)
	}
}

func (s *Service) logDebug(msg string, args ...any) {
	if s.verbose && s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
