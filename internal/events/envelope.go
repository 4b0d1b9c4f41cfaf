// Package events moves domain events between this service and the broker:
// it publishes club events and consumes identity events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"club-recruitment-service/internal/domain"
)

type correlationKey struct{}

// WithCorrelationID attaches a correlation id that every event published
// under ctx will carry.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the id attached to ctx, if any.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// Envelope builds the wire envelope for one event.
type Envelope struct {
	Source   string
	Metadata domain.EventMetadata
	Now      func() time.Time
}

// Build wraps data into an event. A missing correlation id is generated.
func (e Envelope) Build(ctx context.Context, eventType string, data any) (domain.Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return domain.Event{}, fmt.Errorf("failed to encode %s payload: %w", eventType, err)
	}
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	correlationID := CorrelationID(ctx)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	return domain.Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Source:        e.Source,
		Timestamp:     now().UTC(),
		CorrelationID: correlationID,
		Data:          raw,
		Metadata:      e.Metadata,
	}, nil
}

// Decode parses an envelope from a message body.
func Decode(body []byte) (domain.Event, error) {
	var ev domain.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return domain.Event{}, fmt.Errorf("failed to decode event envelope: %w", err)
	}
	return ev, nil
}
