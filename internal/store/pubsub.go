package store

import (
	"context"
	"sync"
)

// Message mirrors redis.Message for the in-memory pub/sub path.
type Message struct {
	Channel string
	Payload string
}

// Subscription is the in-memory counterpart of redis.PubSub. Messages are
// delivered on a buffered channel; slow consumers drop messages rather than
// block publishers.
type Subscription struct {
	channels map[string]bool
	msgChan  chan *Message
	closeCh  chan struct{}
	closed   bool
	mu       sync.RWMutex
}

func newSubscription(channels []string) *Subscription {
	channelSet := make(map[string]bool, len(channels))
	for _, ch := range channels {
		channelSet[ch] = true
	}

	return &Subscription{
		channels: channelSet,
		msgChan:  make(chan *Message, 100),
		closeCh:  make(chan struct{}),
	}
}

// Channel returns the stream of delivered messages. It is closed when the
// subscription is closed.
func (s *Subscription) Channel() <-chan *Message {
	return s.msgChan
}

func (s *Subscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.closeCh)
		close(s.msgChan)
	}
	return nil
}

func (s *Subscription) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *Subscription) deliver(msg *Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed || !s.channels[msg.Channel] {
		return
	}

	select {
	case s.msgChan <- msg:
	default:
		// Buffer full; drop instead of blocking the publisher.
	}
}

// PubSubHub fans out published messages to in-memory subscribers. It stands
// in for Redis pub/sub when the cache runs without a Redis backend.
type PubSubHub struct {
	subscribers map[string][]*Subscription
	mu          sync.RWMutex
}

func NewPubSubHub() *PubSubHub {
	return &PubSubHub{
		subscribers: make(map[string][]*Subscription),
	}
}

// Subscribe registers a new subscription for the given channels. The
// subscription is torn down when ctx is cancelled or Close is called.
func (h *PubSubHub) Subscribe(ctx context.Context, channels ...string) *Subscription {
	sub := newSubscription(channels)

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, channel := range channels {
		h.subscribers[channel] = append(h.subscribers[channel], sub)
	}

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.closeCh:
		}

		h.mu.Lock()
		defer h.mu.Unlock()

		for _, channel := range channels {
			subs := h.subscribers[channel]
			for i, candidate := range subs {
				if candidate == sub {
					h.subscribers[channel] = append(subs[:i], subs[i+1:]...)
					break
				}
			}
			if len(h.subscribers[channel]) == 0 {
				delete(h.subscribers, channel)
			}
		}
	}()

	return sub
}

// Publish delivers payload to every live subscriber of channel.
func (h *PubSubHub) Publish(channel, payload string) {
	h.mu.RLock()
	subs := make([]*Subscription, len(h.subscribers[channel]))
	copy(subs, h.subscribers[channel])
	h.mu.RUnlock()

	if len(subs) == 0 {
		return
	}

	msg := &Message{Channel: channel, Payload: payload}
	for _, sub := range subs {
		if !sub.isClosed() {
			sub.deliver(msg)
		}
	}
}
