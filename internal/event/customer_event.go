package event

import (
	"context"
	"time"
)

const (
	RoutingKeyCustomerRegistered = "customer.registered"
	RoutingKeyCustomerUpdated    = "customer.updated"
	RoutingKeyCustomerDeleted    = "customer.deleted"
)

type CustomerEventPayload struct {
	CustomerID int64  `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Age        int    `json:"age"`
}

type CustomerEvent struct {
	Timestamp time.Time            `json:"timestamp"`
	Payload   CustomerEventPayload `json:"payload"`
}

// Publisher emits customer lifecycle notifications. Callers treat failures as
// non-fatal.
type Publisher interface {
	PublishCustomerRegistered(ctx context.Context, event CustomerEvent) error
	PublishCustomerUpdated(ctx context.Context, event CustomerEvent) error
	PublishCustomerDeleted(ctx context.Context, event CustomerEvent) error
	Close() error
}

type NoopPublisher struct{}

var _ Publisher = NoopPublisher{}

func (NoopPublisher) PublishCustomerRegistered(context.Context, CustomerEvent) error { return nil }

func (NoopPublisher) PublishCustomerUpdated(context.Context, CustomerEvent) error { return nil }

func (NoopPublisher) PublishCustomerDeleted(context.Context, CustomerEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }
