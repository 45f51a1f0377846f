// Package events fans session events out to subscribers such as the websocket stream.
package events

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Topics published by a session.
const (
	TopicDecision   = "decision"
	TopicTransition = "transition"
	TopicActive     = "active"
	TopicConfig     = "config"
	// TopicAll subscribes to every topic.
	TopicAll = "*"
)

// Event is one published message.
type Event struct {
	Topic   string    `json:"topic"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload"`
}

// Option configures a Hub.
type Option func(*hubConfig)

type hubConfig struct {
	bufferSize int
	logger     *slog.Logger
}

// WithBufferSize sets the publish queue capacity.
func WithBufferSize(size int) Option {
	return func(cfg *hubConfig) {
		cfg.bufferSize = size
	}
}

// WithLogger sets a structured logger for dropped events and handler panics.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *hubConfig) {
		cfg.logger = logger
	}
}

type subscription struct {
	id      int64
	topic   string
	handler func(Event)
}

// Hub delivers events on a single goroutine, in publish order. Publish never blocks:
// when the queue is full the event is dropped and counted.
type Hub struct {
	cfg     hubConfig
	queue   chan Event
	done    chan struct{}
	wg      sync.WaitGroup
	closed  atomic.Bool
	nextID  atomic.Int64
	dropped atomic.Int64

	mu   sync.RWMutex
	subs map[int64]subscription
}

// NewHub starts the delivery goroutine.
func NewHub(opts ...Option) *Hub {
	cfg := hubConfig{bufferSize: 256}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.bufferSize <= 0 {
		cfg.bufferSize = 256
	}
	h := &Hub{
		cfg:   cfg,
		queue: make(chan Event, cfg.bufferSize),
		done:  make(chan struct{}),
		subs:  map[int64]subscription{},
	}
	h.wg.Add(1)
	go h.loop()
	return h
}

// Publish enqueues an event for topic.
func (h *Hub) Publish(topic string, payload any) {
	if h == nil || h.closed.Load() {
		return
	}
	evt := Event{Topic: topic, At: time.Now(), Payload: payload}
	select {
	case h.queue <- evt:
	case <-h.done:
	default:
		h.dropped.Add(1)
		if h.cfg.logger != nil {
			h.cfg.logger.Warn("event dropped", "topic", topic)
		}
	}
}

// Subscribe registers handler for topic (or TopicAll) and returns an unsubscribe func.
func (h *Hub) Subscribe(topic string, handler func(Event)) func() {
	id := h.nextID.Add(1)
	h.mu.Lock()
	h.subs[id] = subscription{id: id, topic: topic, handler: handler}
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Close drains queued events and stops delivery. It is idempotent.
func (h *Hub) Close() {
	if h == nil || !h.closed.CompareAndSwap(false, true) {
		return
	}
	close(h.done)
	h.wg.Wait()
}

func (h *Hub) loop() {
	defer h.wg.Done()
	for {
		select {
		case evt := <-h.queue:
			h.deliver(evt)
		case <-h.done:
			for {
				select {
				case evt := <-h.queue:
					h.deliver(evt)
				default:
					return
				}
			}
		}
	}
}

func (h *Hub) deliver(evt Event) {
	h.mu.RLock()
	targets := make([]subscription, 0, len(h.subs))
	for _, sub := range h.subs {
		if sub.topic == evt.Topic || sub.topic == TopicAll {
			targets = append(targets, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range targets {
		h.call(sub, evt)
	}
}

func (h *Hub) call(sub subscription, evt Event) {
	defer func() {
		if r := recover(); r != nil && h.cfg.logger != nil {
			h.cfg.logger.Error("event handler panicked", "topic", evt.Topic, "panic", r)
		}
	}()
	sub.handler(evt)
}
