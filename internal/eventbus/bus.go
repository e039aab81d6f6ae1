// Package eventbus is the "a mutation occurred" broadcast. Views subscribe by
// name and refetch their own data when an event arrives; emitters publish after
// a mutation has been confirmed by the server.
//
// Delivery is synchronous and in-process: Publish returns after every local
// subscriber ran. A Forwarder (see RedisBridge) can carry events to other
// processes, and Deliver injects events received from them.
package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// MutationOccurred carries no payload beyond "something changed, refetch".
// Source names the emitter (e.g. "transacciones", "usuarios") so subscribers
// can ignore unrelated changes if they want to.
type MutationOccurred struct {
	ID     uuid.UUID `json:"id"`
	Source string    `json:"source"`
	At     time.Time `json:"at"`
	// Origin identifies the process that emitted the event.
	Origin string `json:"origin,omitempty"`
}

// Handler processes a mutation event.
type Handler func(ctx context.Context, evt MutationOccurred)

// Forwarder carries locally published events to other processes.
type Forwarder interface {
	Forward(ctx context.Context, evt MutationOccurred) error
}

type namedHandler struct {
	id      uint64
	name    string
	handler Handler
}

// Bus is safe for concurrent use.
type Bus struct {
	mu          sync.RWMutex
	subscribers []namedHandler
	nextID      uint64
	forwarder   Forwarder
	origin      string
}

// New creates an empty bus with a random origin id.
func New() *Bus {
	return &Bus{origin: uuid.NewString()}
}

// Origin returns the id stamped on events published by this bus.
func (b *Bus) Origin() string { return b.origin }

// SetForwarder installs (or with nil removes) the cross-process forwarder.
func (b *Bus) SetForwarder(f Forwarder) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.forwarder = f
}

// Subscribe registers a named handler and returns a function that removes it.
func (b *Bus) Subscribe(name string, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subscribers = append(b.subscribers, namedHandler{id: id, name: name, handler: h})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subscribers {
				if s.id == id {
					b.subscribers = append(b.subscribers[:i:i], b.subscribers[i+1:]...)
					return
				}
			}
		})
	}
}

// PublishMutation announces a confirmed mutation. Fire-and-forget: forwarder
// failures are logged, never returned.
func (b *Bus) PublishMutation(ctx context.Context, source string) {
	evt := MutationOccurred{
		ID:     uuid.New(),
		Source: source,
		At:     time.Now().UTC(),
		Origin: b.origin,
	}
	b.Deliver(ctx, evt)

	b.mu.RLock()
	fwd := b.forwarder
	b.mu.RUnlock()
	if fwd != nil {
		if err := fwd.Forward(ctx, evt); err != nil {
			log.Warn().Err(err).Str("source", source).Msg("eventbus: forward failed")
		}
	}
}

// Deliver dispatches evt to the local subscribers only.
func (b *Bus) Deliver(ctx context.Context, evt MutationOccurred) {
	b.mu.RLock()
	subs := make([]namedHandler, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.RUnlock()

	for _, s := range subs {
		b.dispatch(ctx, s, evt)
	}
}

func (b *Bus) dispatch(ctx context.Context, s namedHandler, evt MutationOccurred) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("subscriber", s.name).Interface("panic", r).Msg("eventbus: handler panic")
		}
	}()
	s.handler(ctx, evt)
}

// LogSubscriber logs every event; useful as the only subscriber on the server.
func LogSubscriber(_ context.Context, evt MutationOccurred) {
	log.Info().
		Str("event_id", evt.ID.String()).
		Str("source", evt.Source).
		Str("origin", evt.Origin).
		Msg("mutation")
}
