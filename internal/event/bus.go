// Package event is the in-process notification bus that lets the provider,
// syncer, and franchise index feed the catalog without importing it.
package event

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Type identifies a category of event.
type Type string

// Known event types.
const (
	// GamesDiscovered carries provider search results that may be new to
	// the catalog.
	GamesDiscovered Type = "games.discovered"

	// SyncCompleted reports the outcome of a catalog refresh run.
	SyncCompleted Type = "sync.completed"

	// FranchiseReloaded announces that the franchise token file was re-read.
	FranchiseReloaded Type = "franchise.reloaded"
)

// Event is one notification. Data carries event-specific fields.
type Event struct {
	Type      Type           `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Handler processes one event. Handlers run on the bus goroutine and should
// hand off anything slow.
type Handler func(Event)

// Bus fans events out to subscribers from a buffered channel. Publish never
// blocks: when the buffer is full the event is dropped and counted.
type Bus struct {
	ch     chan Event
	logger *slog.Logger
	done   chan struct{}

	mu      sync.RWMutex
	subs    map[Type][]Handler
	stopped bool

	dropped atomic.Int64
}

// NewBus creates a bus whose channel holds bufSize pending events.
func NewBus(logger *slog.Logger, bufSize int) *Bus {
	if bufSize <= 0 {
		bufSize = 256
	}
	return &Bus{
		ch:     make(chan Event, bufSize),
		subs:   make(map[Type][]Handler),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Subscribe registers a handler for events of type t.
func (b *Bus) Subscribe(t Type, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[t] = append(b.subs[t], h)
}

// Publish enqueues an event, stamping it if the caller did not. Events that
// do not fit in the buffer are dropped with a warning.
func (b *Bus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	select {
	case b.ch <- e:
	default:
		n := b.dropped.Add(1)
		b.logger.Warn("event bus full, dropping event",
			slog.String("type", string(e.Type)),
			slog.Int64("dropped_total", n))
	}
}

// Start consumes the channel and delivers events until Stop is called, then
// drains whatever is still buffered before returning. Run it in a goroutine.
func (b *Bus) Start() {
	for {
		select {
		case e := <-b.ch:
			b.deliver(e)
		case <-b.done:
			for {
				select {
				case e := <-b.ch:
					b.deliver(e)
				default:
					return
				}
			}
		}
	}
}

// Stop tells the bus to finish delivering buffered events and return. Safe
// to call more than once.
func (b *Bus) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.stopped {
		b.stopped = true
		close(b.done)
	}
}

func (b *Bus) deliver(e Event) {
	b.mu.RLock()
	handlers := b.subs[e.Type]
	b.mu.RUnlock()

	for _, h := range handlers {
		b.safely(e, h)
	}
}

// safely runs one handler, containing any panic so the remaining
// subscribers still see the event.
func (b *Bus) safely(e Event, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				slog.String("type", string(e.Type)),
				slog.Any("panic", r))
		}
	}()
	h(e)
}
