package mail

import "context"

// Message is one outbound e-mail.
type Message struct {
	From    string
	To      string
	ReplyTo string
	Subject string
	Body    string
}

// Sender is the port for outbound e-mail adapters.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
