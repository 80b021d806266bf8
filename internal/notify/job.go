package notify

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind selects the template pair used for a notification job.
type Kind string

const (
	KindPurchase Kind = "purchase"
	KindCancel   Kind = "cancel"
)

// QueueName is the durable work queue carrying notification jobs.
const QueueName = "emailQueue"

var (
	// ErrInvalidPayload is returned when a job payload is malformed or
	// missing required fields
	ErrInvalidPayload = errors.New("invalid job payload")

	// ErrUnknownJobKind is returned for a job kind with no template pair
	ErrUnknownJobKind = errors.New("unknown job kind")
)

// LineItem is one purchased product line carried in a job.
type LineItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Image    string  `json:"image,omitempty"`
}

// Job is the unit of notification work placed on the queue. A Job is
// immutable once published; the consumer must tolerate redelivery of the
// same Job after a failed attempt.
type Job struct {
	Kind       Kind       `json:"type"`
	BuyerEmail string     `json:"buyerEmail"`
	BuyerName  string     `json:"buyerName"`
	OwnerEmail string     `json:"ownerEmail"`
	OwnerName  string     `json:"ownerName"`
	Items      []LineItem `json:"items"`
	TotalPrice float64    `json:"totalPrice"`
}

// Validate checks the structural invariants of a job. TotalPrice is trusted
// as sent and never checked against the item sum.
func (j *Job) Validate() error {
	switch j.Kind {
	case KindPurchase, KindCancel:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJobKind, j.Kind)
	}

	if j.BuyerEmail == "" {
		return fmt.Errorf("%w: buyerEmail is required", ErrInvalidPayload)
	}

	if j.OwnerEmail == "" {
		return fmt.Errorf("%w: ownerEmail is required", ErrInvalidPayload)
	}

	if len(j.Items) == 0 {
		return fmt.Errorf("%w: items must be non-empty", ErrInvalidPayload)
	}

	for i, item := range j.Items {
		if item.Name == "" {
			return fmt.Errorf("%w: items[%d].name is required", ErrInvalidPayload, i)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("%w: items[%d].quantity must be >= 1", ErrInvalidPayload, i)
		}
		if item.Price < 0 {
			return fmt.Errorf("%w: items[%d].price must be >= 0", ErrInvalidPayload, i)
		}
	}

	return nil
}

// Encode serializes a job into its wire payload. Invalid jobs fail fast on
// the producer side instead of poisoning the queue.
func Encode(job *Job) ([]byte, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	return body, nil
}

// Decode deserializes and validates a wire payload. Any failure here marks
// the delivery as a poison message on the consumer side.
func Decode(body []byte) (*Job, error) {
	var job Job
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	if err := job.Validate(); err != nil {
		return nil, err
	}

	return &job, nil
}
