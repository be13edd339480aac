// Package memory provides an in-memory mail sender for tests and the
// demo backend. Sent messages are kept for inspection.
package memory

import (
	"context"
	"sync"

	"fatture/internal/mail"
)

type Sender struct {
	mu   sync.Mutex
	sent []mail.Message
}

var _ mail.Sender = (*Sender)(nil)

func New() *Sender {
	return &Sender{}
}

func (s *Sender) Send(_ context.Context, msg mail.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

// Sent returns a copy of all messages sent so far.
func (s *Sender) Sent() []mail.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]mail.Message, len(s.sent))
	copy(out, s.sent)
	return out
}
