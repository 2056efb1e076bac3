package event

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vegasarees/storefront/internal/store"
)

const (
	// DefaultBuffer is the relay queue length.
	DefaultBuffer = 1024

	publishTimeout = 5 * time.Second
)

var relayDropped = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storefront_event_relay_dropped_total",
		Help: "Store events dropped because the relay queue was full",
	},
	[]string{"kind"},
)

type job struct {
	sessionID string
	event     store.Event
}

// Relay forwards ItemAdded and SearchRecorded events from session stores to
// Kafka. Store listeners only enqueue; Run publishes from its own goroutine,
// so a slow broker never blocks a mutation. When the queue is full the event
// is dropped.
type Relay struct {
	producer *Producer
	queue    chan job
	logger   *slog.Logger
}

// NewRelay creates a Relay with a queue of buffer events.
func NewRelay(producer *Producer, buffer int, logger *slog.Logger) *Relay {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Relay{
		producer: producer,
		queue:    make(chan job, buffer),
		logger:   logger,
	}
}

// Attach subscribes the relay to s. It has the store.OpenHook signature.
func (r *Relay) Attach(sessionID string, s *store.Store) {
	s.Subscribe(func(ev store.Event) {
		switch ev.Kind {
		case store.ItemAdded, store.SearchRecorded:
		default:
			return
		}
		select {
		case r.queue <- job{sessionID: sessionID, event: ev}:
		default:
			relayDropped.WithLabelValues(string(ev.Kind)).Inc()
			r.logger.Warn("event relay queue full, dropping event",
				slog.String("kind", string(ev.Kind)),
				slog.String("session_id", sessionID),
			)
		}
	})
}

// Run publishes queued events until ctx is done, then publishes whatever is
// still queued and returns.
func (r *Relay) Run(ctx context.Context) {
	for {
		select {
		case j := <-r.queue:
			r.publish(j)
		case <-ctx.Done():
			r.drain()
			return
		}
	}
}

func (r *Relay) drain() {
	for {
		select {
		case j := <-r.queue:
			r.publish(j)
		default:
			return
		}
	}
}

func (r *Relay) publish(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	var err error
	switch j.event.Kind {
	case store.ItemAdded:
		err = r.producer.PublishItemAdded(ctx, j.sessionID, j.event)
	case store.SearchRecorded:
		err = r.producer.PublishSearchRecorded(ctx, j.sessionID, j.event.Query)
	}
	if err != nil {
		r.logger.Error("failed to relay store event",
			slog.String("kind", string(j.event.Kind)),
			slog.String("session_id", j.sessionID),
			slog.String("error", err.Error()),
		)
	}
}
