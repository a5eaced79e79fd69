// Package mail delivers rendered pages to readers.
package mail

import (
	"context"
	"errors"
)

// ErrRejected marks a send the provider refused outright. Retrying it cannot succeed.
var ErrRejected = errors.New("message rejected by mail provider")

// Message is one outgoing email. HTML is sent as given; callers own any escaping.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers a message. A nil error means the provider accepted it.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
