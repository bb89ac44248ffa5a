// ABOUTME: In-memory fan-out of relay deliveries to connected runtime streams.
// ABOUTME: Non-blocking publish; slow subscribers lose messages instead of stalling pushes.

package relay

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const (
	// subscriberBufferSize is the channel buffer for each subscriber.
	subscriberBufferSize = 64
)

// Kind identifies what a hub Message carries.
type Kind string

const (
	// KindPush is a service push; Handle and Payload are set.
	KindPush Kind = "push"
	// KindNavigate is a deep-link navigation; URL is set.
	KindNavigate Kind = "navigate"
)

// Message is one item delivered to runtime subscribers.
type Message struct {
	Kind    Kind
	Handle  Handle
	Payload string
	URL     string
}

// Hub provides in-memory pub/sub between the relay and runtime streams.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]chan Message // subID -> ch
	closed      bool
	logger      *slog.Logger
}

// NewHub creates a hub. Pass nil logger for default.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subscribers: make(map[string]chan Message),
		logger:      logger.With("component", "hub"),
	}
}

// Subscribe registers a subscriber and returns its channel and ID.
// The subscription is removed when ctx is cancelled. Subscribing to a closed
// hub returns an already-closed channel.
func (h *Hub) Subscribe(ctx context.Context) (<-chan Message, string) {
	subID := uuid.New().String()
	ch := make(chan Message, subscriberBufferSize)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, subID
	}
	h.subscribers[subID] = ch
	total := len(h.subscribers)
	h.mu.Unlock()

	h.logger.Debug("subscriber added", "sub_id", subID, "total_subscribers", total)

	go func() {
		<-ctx.Done()
		h.Unsubscribe(subID)
	}()

	return ch, subID
}

// PublishPush fans a push out to all subscribers. Its signature matches
// DeliverFunc so it can be installed directly on a Relay.
func (h *Hub) PublishPush(handle Handle, payload string) {
	h.publish(Message{Kind: KindPush, Handle: handle, Payload: payload})
}

// PublishNavigate fans a deep-link navigation out to all subscribers.
func (h *Hub) PublishNavigate(url string) {
	h.publish(Message{Kind: KindNavigate, URL: url})
}

func (h *Hub) publish(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	// Sends happen under the read lock so Unsubscribe cannot close a channel
	// mid-send; every send is non-blocking.
	for id, ch := range h.subscribers {
		select {
		case ch <- msg:
		default:
			h.logger.Debug("dropped message for slow subscriber",
				"sub_id", id,
				"kind", string(msg.Kind))
		}
	}
}

// SubscriberCount returns the number of connected subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Unsubscribe removes a subscription and closes its channel.
func (h *Hub) Unsubscribe(subID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch, ok := h.subscribers[subID]
	if !ok {
		return
	}
	delete(h.subscribers, subID)
	close(ch)

	h.logger.Debug("subscriber removed", "sub_id", subID)
}

// Close closes all subscriber channels. Later subscriptions receive a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subscribers {
		close(ch)
		delete(h.subscribers, id)
	}
	h.closed = true

	h.logger.Debug("hub closed")
}
