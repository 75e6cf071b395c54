// Package services holds the polling engine: which poll a user sees next,
// the interaction ledger that moves coins and energy, poll construction and
// the opinion analytics, plus the smaller user-facing features around them.
package services

import (
	"context"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/troydota/api.opinion.komodohype.dev/metrics"
	"github.com/troydota/api.opinion.komodohype.dev/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	DefaultCandidateLimit = 50
	DefaultCandidateTTL   = time.Hour
)

// Cache is the key/value store holding candidate queues. Any Get error,
// including a miss, makes the engine recompute from the store.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type Publisher interface {
	Publish(ctx context.Context, channel, payload string) error
}

type Service struct {
	store     store.Store
	cache     Cache
	miss      error
	keepTTL   time.Duration
	publisher Publisher
	limit     int
	ttl       time.Duration
	now       func() time.Time
}

type Option func(*Service)

// WithCacheSemantics tells the service which error the cache returns on a miss
// and which expiration keeps the current TTL.
func WithCacheSemantics(miss error, keepTTL time.Duration) Option {
	return func(s *Service) {
		s.miss = miss
		s.keepTTL = keepTTL
	}
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithCandidateLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.limit = n
		}
	}
}

func WithCandidateTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.ttl = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(st store.Store, cache Cache, opts ...Option) *Service {
	s := &Service{
		store:   st,
		cache:   cache,
		keepTTL: -1,
		limit:   DefaultCandidateLimit,
		ttl:     DefaultCandidateTTL,
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// transaction runs fn as one unit of work and turns whatever it fails with
// into an *Error.
func (s *Service) transaction(ctx context.Context, operation string, fn func(ctx context.Context, tx store.Repository) error) error {
	start := time.Now()
	err := s.store.Transaction(ctx, fn)
	metrics.ObserveTransaction(operation, start, err)
	return wrap(err)
}
