package contact

import (
	"context"
	"sync"
)

// Sink persists accepted contact messages.
type Sink interface {
	Save(ctx context.Context, msg *Message) error
	Ping(ctx context.Context) error
	Name() string
}

// MemorySink keeps messages in process memory. Dev default; everything is
// lost on restart.
type MemorySink struct {
	mu       sync.Mutex
	messages []*Message
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Save(_ context.Context, msg *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *msg
	s.messages = append(s.messages, &copied)
	return nil
}

func (s *MemorySink) Ping(context.Context) error { return nil }

func (s *MemorySink) Name() string { return "memory" }

// Messages returns a snapshot of everything saved so far.
func (s *MemorySink) Messages() []*Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Message, len(s.messages))
	copy(out, s.messages)
	return out
}
