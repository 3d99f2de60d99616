package sync

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/multierr"

	"github.com/engineering-resilient-systems-on-aws/AvailableTrade/logging"
)

var (
	// ErrBroadcasterClosed is returned when subscribing to or broadcasting on a closed broadcaster.
	ErrBroadcasterClosed = errors.New("broadcaster is closed")

	// metricBroadcastDropped counts messages a subscriber missed because its channel was full.
	metricBroadcastDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "availabletrade_broadcast_dropped_total",
		Help: "The number of messages dropped because a subscriber channel was full.",
	}, []string{"subscriber"})
)

// ChannelBroadcaster fans a message of type T out to any number of named subscribers.
//
// The broadcaster owns the subscriber channels. Delivery never blocks: a subscriber whose buffer is full
// misses the message, and the miss is logged and counted.
type ChannelBroadcaster[T any] struct {
	mut sync.RWMutex

	l *slog.Logger

	// buffer is the capacity of each subscriber channel.
	buffer int

	subscribers map[string]chan T

	closed bool
}

// NewChannelBroadcaster creates a broadcaster whose subscriber channels hold up to buffer messages.
func NewChannelBroadcaster[T any](l *slog.Logger, buffer int) *ChannelBroadcaster[T] {
	if buffer < 1 {
		buffer = 1
	}

	return &ChannelBroadcaster[T]{
		l:           l,
		buffer:      buffer,
		subscribers: make(map[string]chan T),
	}
}

// Subscribe registers a subscriber and returns the channel it receives messages on. The channel is closed
// by Unsubscribe or Close.
func (b *ChannelBroadcaster[T]) Subscribe(name string) (<-chan T, error) {
	b.mut.Lock()
	defer b.mut.Unlock()

	if b.closed {
		return nil, ErrBroadcasterClosed
	}

	if _, exists := b.subscribers[name]; exists {
		return nil, fmt.Errorf("subscriber %s already exists", name)
	}

	ch := make(chan T, b.buffer)
	b.subscribers[name] = ch
	return ch, nil
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *ChannelBroadcaster[T]) Unsubscribe(name string) {
	b.mut.Lock()
	defer b.mut.Unlock()

	ch, exists := b.subscribers[name]
	if !exists {
		b.l.Warn("subscriber does not exist, skipping removal",
			slog.String(logging.KeySubscriber, name),
		)
		return
	}

	delete(b.subscribers, name)
	close(ch)
}

// Broadcast delivers msg to every subscriber that has room for it. The returned error lists the
// subscribers that missed the message.
func (b *ChannelBroadcaster[T]) Broadcast(msg T) error {
	b.mut.RLock()
	defer b.mut.RUnlock()

	if b.closed {
		return ErrBroadcasterClosed
	}

	var broadcastErrs error
	for name, ch := range b.subscribers {
		select {
		case ch <- msg:
		default:
			metricBroadcastDropped.WithLabelValues(name).Inc()
			broadcastErrs = multierr.Append(broadcastErrs, fmt.Errorf("subscriber %s is full, skipping message", name))
		}
	}

	if broadcastErrs != nil {
		b.l.Error("errors occurred while broadcasting message",
			slog.Any(logging.KeyError, broadcastErrs),
		)
	}

	return broadcastErrs
}

// Len returns the number of subscribers.
func (b *ChannelBroadcaster[T]) Len() int {
	b.mut.RLock()
	defer b.mut.RUnlock()
	return len(b.subscribers)
}

// Close closes every subscriber channel. Later calls to Subscribe and Broadcast fail.
func (b *ChannelBroadcaster[T]) Close() {
	b.mut.Lock()
	defer b.mut.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for name, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, name)
	}
}
