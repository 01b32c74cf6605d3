package processing

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

var reaperOutcomes = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "memoria_reaper_blobs_total",
		Help: "Blobs handled by the reaper by outcome",
	},
	[]string{"outcome"},
)

// RefCounter tells how many photos still point at a storage key
type RefCounter interface {
	CountStorageRefs(ctx context.Context, key string) (int64, error)
}

type Deleter interface {
	Delete(ctx context.Context, key string) error
}

// Reaper deletes stored bytes in the background after their photos are gone
type Reaper struct {
	keys    chan string
	refs    RefCounter
	storage Deleter
	timeout time.Duration
}

func NewReaper(storage Deleter, refs RefCounter, size int) *Reaper {
	return &Reaper{
		keys:    make(chan string, size),
		refs:    refs,
		storage: storage,
		timeout: 30 * time.Second,
	}
}

// Enqueue never blocks. Keys that do not fit in the buffer are dropped.
func (r *Reaper) Enqueue(keys ...string) {
	for _, key := range keys {
		select {
		case r.keys <- key:
		default:
			reaperOutcomes.WithLabelValues("dropped").Inc()
			log.Warn().Str("key", key).Msg("Reaper queue full, blob left behind")
		}
	}
}

// Start consumes the queue until ctx is done
func (r *Reaper) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case key := <-r.keys:
			r.reap(ctx, key)
		}
	}
}

func (r *Reaper) reap(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	n, err := r.refs.CountStorageRefs(ctx, key)
	if err != nil {
		reaperOutcomes.WithLabelValues("failed").Inc()
		log.Error().Err(err).Str("key", key).Msg("Reaper cannot count references")
		return
	}
	if n > 0 {
		reaperOutcomes.WithLabelValues("kept").Inc()
		log.Debug().Str("key", key).Int64("refs", n).Msg("Blob still referenced, kept")
		return
	}
	if err = r.storage.Delete(ctx, key); err != nil {
		reaperOutcomes.WithLabelValues("failed").Inc()
		log.Error().Err(err).Str("key", key).Msg("Reaper cannot delete blob")
		return
	}
	reaperOutcomes.WithLabelValues("deleted").Inc()
	log.Debug().Str("key", key).Msg("Blob deleted")
}
