// Package events publishes ride lifecycle records to an external stream.
package events

import (
	"context"

	"ridehub/internal/models"
)

// Publisher writes ride lifecycle events. Publishing is best-effort; callers
// log failures and never roll back a transition because of them.
type Publisher interface {
	Publish(ctx context.Context, event models.RideEvent) error
	Close() error
}

type noopPublisher struct{}

// NewNoopPublisher returns a Publisher that discards events.
func NewNoopPublisher() Publisher { return noopPublisher{} }

func (noopPublisher) Publish(ctx context.Context, event models.RideEvent) error { return nil }

func (noopPublisher) Close() error { return nil }
