// Package mail composes and delivers outbound notification email.
package mail

import (
	"context"
	"fmt"
)

// Sender delivers a single plain-text message to one recipient.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// DeliveryError reports a failure to hand a message to the mail server.
type DeliveryError struct {
	Recipient string
	Stage     string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("mail delivery to %s failed at %s: %v", e.Recipient, e.Stage, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
