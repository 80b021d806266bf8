package mailer

import (
	"context"
	"fmt"
)

// Mailer sends one rendered email to one recipient. Implementations report a
// binary accepted/rejected outcome; transport-level retry is the provider's
// concern, not the caller's.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// SendError wraps a provider failure with enough context to log. Callers do
// not branch on the underlying provider error; any send failure triggers the
// same nack-and-requeue policy.
type SendError struct {
	Provider string
	Err      error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("%s send failed: %v", e.Provider, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}
