// Package events fans out ledger events to in-process subscribers.
package events

import (
	"reflect"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// DefaultBufferSize is the channel capacity of a subscription unless configured otherwise.
const DefaultBufferSize = 64

// Reporter delivers events to subscribers without ever blocking the reporting side. Events are
// dropped for a subscriber whose buffer is full.
type Reporter struct {
	logger *zap.Logger

	mu   sync.RWMutex
	subs map[reflect.Type]map[*subscription]struct{}
}

// NewReporter creates a Reporter.
func NewReporter(logger *zap.Logger) *Reporter {
	return &Reporter{
		logger: logger,
		subs:   map[reflect.Type]map[*subscription]struct{}{},
	}
}

type subscription struct {
	send    func(any) bool
	dropped atomic.Int64
}

// Subscription receives events of a single type.
type Subscription[T any] struct {
	reporter *Reporter
	typ      reflect.Type
	sub      *subscription
	ch       chan T
	once     sync.Once
}

// Out returns the channel with events. It is closed after Close.
func (s *Subscription[T]) Out() <-chan T {
	return s.ch
}

// Dropped returns the number of events that were not delivered because the buffer was full.
func (s *Subscription[T]) Dropped() int {
	return int(s.sub.dropped.Load())
}

// Close stops delivery and closes the channel.
func (s *Subscription[T]) Close() {
	s.once.Do(func() {
		s.reporter.mu.Lock()
		defer s.reporter.mu.Unlock()
		delete(s.reporter.subs[s.typ], s.sub)
		close(s.ch)
	})
}

// Subscribe registers a subscriber for events of type T. A nil reporter returns nil.
func Subscribe[T any](r *Reporter, size int) *Subscription[T] {
	if r == nil {
		return nil
	}
	if size <= 0 {
		size = DefaultBufferSize
	}
	ch := make(chan T, size)
	s := &Subscription[T]{
		reporter: r,
		typ:      reflect.TypeFor[T](),
		ch:       ch,
		sub: &subscription{send: func(ev any) bool {
			select {
			case ch <- ev.(T):
				return true
			default:
				return false
			}
		}},
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.subs[s.typ] == nil {
		r.subs[s.typ] = map[*subscription]struct{}{}
	}
	r.subs[s.typ][s.sub] = struct{}{}
	return s
}

// Emit delivers ev to every subscriber of its type. A nil reporter drops the event.
func Emit[T any](r *Reporter, ev T) {
	if r == nil {
		return
	}
	typ := reflect.TypeFor[T]()
	r.mu.RLock()
	defer r.mu.RUnlock()
	for sub := range r.subs[typ] {
		if !sub.send(ev) {
			dropped := sub.dropped.Add(1)
			r.logger.Debug("subscriber is full, event dropped",
				zap.Stringer("type", typ),
				zap.Int64("dropped", dropped),
			)
		}
	}
}
