// Package gallery holds the album and photo rules: ownership checks,
// cascade deletes, cover photo upkeep, user sync and the read surface.
package gallery

import (
	"context"
	"math/rand"
	"time"

	"memoria/store"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// URLResolver turns a storage key into a URL a client can fetch
type URLResolver interface {
	URL(ctx context.Context, key string) (string, error)
}

// Reaper deletes stored bytes once no record points at them
type Reaper interface {
	Enqueue(keys ...string)
}

type Service struct {
	st      store.Store
	urls    URLResolver
	reaper  Reaper
	now     func() time.Time
	shuffle func(n int, swap func(i, j int))
}

func New(st store.Store, urls URLResolver, reaper Reaper) *Service {
	return &Service{
		st:      st,
		urls:    urls,
		reaper:  reaper,
		now:     time.Now,
		shuffle: rand.Shuffle,
	}
}

func (s *Service) millis() int64 {
	return s.now().UnixMilli()
}

func (s *Service) reap(keys []string) {
	if s.reaper != nil && len(keys) > 0 {
		s.reaper.Enqueue(keys...)
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
