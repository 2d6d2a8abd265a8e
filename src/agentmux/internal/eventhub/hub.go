// Package eventhub fans daemon events out to every subscribed connection.
package eventhub

import (
	"sync"

	"github.com/agentmux/agentmux/src/agentmux/entity"
	tally "github.com/uber-go/tally/v4"
	"go.uber.org/config"
	"go.uber.org/fx"
)

const (
	_configKeyBuffer = "daemon.eventBuffer"
	_defaultBuffer   = 256
)

// Module provides the shared event hub.
var Module = fx.Provide(New)

// Hub is a broadcast channel of DaemonEvents.
// Publish never blocks: a subscriber whose buffer is full misses the event and its lag count grows.
type Hub interface {
	entity.EventSink
	// Subscribe registers a new receiver of every event published from now on.
	Subscribe() Subscription
	// SubscriberCount returns the number of live subscriptions.
	SubscriberCount() int
	// Close ends every subscription. Later publishes are dropped.
	Close()
}

// Subscription is one receiver of a Hub.
type Subscription interface {
	// Events is closed when the subscription or the hub is closed.
	Events() <-chan entity.DaemonEvent
	// Lagged returns how many events this subscriber missed because its buffer was full.
	Lagged() uint64
	Close()
}

// Params define values to be used by the hub.
type Params struct {
	fx.In

	Config    config.Provider
	Lifecycle fx.Lifecycle
	Stats     tally.Scope
}

type hub struct {
	mu     sync.RWMutex
	subs   map[*subscription]struct{}
	buffer int
	closed bool
	stats  tally.Scope
}

// New creates a hub sized from daemon.eventBuffer and closes it when the application stops.
func New(p Params) (Hub, error) {
	buffer := _defaultBuffer
	if v := p.Config.Get(_configKeyBuffer); v.HasValue() {
		if err := v.Populate(&buffer); err != nil {
			return nil, err
		}
	}

	h := NewHub(buffer, p.Stats)
	p.Lifecycle.Append(fx.StopHook(h.Close))
	return h, nil
}

// NewHub creates a hub whose subscribers buffer up to buffer events.
func NewHub(buffer int, stats tally.Scope) Hub {
	if buffer <= 0 {
		buffer = _defaultBuffer
	}
	return &hub{
		subs:   make(map[*subscription]struct{}),
		buffer: buffer,
		stats:  stats.SubScope("events"),
	}
}

func (h *hub) Emit(event entity.DaemonEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}
	h.stats.Counter("published").Inc(1)
	for s := range h.subs {
		s.deliver(event, h.stats)
	}
}

func (h *hub) Subscribe() Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := &subscription{
		hub: h,
		ch:  make(chan entity.DaemonEvent, h.buffer),
	}
	if h.closed {
		close(s.ch)
		s.closed = true
		return s
	}
	h.subs[s] = struct{}{}
	h.stats.Gauge("subscribers").Update(float64(len(h.subs)))
	return s
}

func (h *hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for s := range h.subs {
		s.closeLocked()
	}
	h.subs = make(map[*subscription]struct{})
	h.stats.Gauge("subscribers").Update(0)
}

func (h *hub) remove(s *subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[s]; !ok {
		return
	}
	delete(h.subs, s)
	s.closeLocked()
	h.stats.Gauge("subscribers").Update(float64(len(h.subs)))
}

type subscription struct {
	hub *hub
	ch  chan entity.DaemonEvent

	mu     sync.Mutex
	lagged uint64
	closed bool
}

// deliver is called with the hub read lock held, so the channel cannot be closed concurrently.
func (s *subscription) deliver(event entity.DaemonEvent, stats tally.Scope) {
	select {
	case s.ch <- event:
	default:
		s.mu.Lock()
		s.lagged++
		s.mu.Unlock()
		stats.Counter("lagged").Inc(1)
	}
}

func (s *subscription) Events() <-chan entity.DaemonEvent {
	return s.ch
}

func (s *subscription) Lagged() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lagged
}

func (s *subscription) Close() {
	s.hub.remove(s)
}

// closeLocked is called with the hub write lock held.
func (s *subscription) closeLocked() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}
