package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"club-recruitment-service/internal/domain"
	"club-recruitment-service/internal/service"
)

var (
	// ErrMalformed marks an event that can never be processed.
	ErrMalformed = errors.New("malformed event")
	// ErrUnknownEvent marks an event type this service does not handle.
	ErrUnknownEvent = errors.New("unknown event type")
)

// IdentityTypes are the routing keys bound to the identity queue.
var IdentityTypes = []string{
	domain.EventIdentityCreated,
	domain.EventIdentityUpdated,
	domain.EventIdentityDeleted,
}

// IdentityHandler applies identity events to the cached applicant data.
type IdentityHandler struct {
	identities service.IdentityService
}

func NewIdentityHandler(identities service.IdentityService) *IdentityHandler {
	return &IdentityHandler{identities: identities}
}

func (h *IdentityHandler) Handle(ctx context.Context, ev domain.Event) error {
	switch ev.Type {
	case domain.EventIdentityCreated, domain.EventIdentityUpdated, domain.EventIdentityDeleted:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type)
	}
	if ev.Timestamp.IsZero() {
		return fmt.Errorf("%w: %s without timestamp", ErrMalformed, ev.Type)
	}
	var data domain.IdentityEventData
	if err := json.Unmarshal(ev.Data, &data); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if data.UserID == "" {
		return fmt.Errorf("%w: %s without user id", ErrMalformed, ev.Type)
	}

	if ev.Type == domain.EventIdentityDeleted {
		return h.identities.RemoveIdentity(ctx, data.UserID, ev.Timestamp)
	}
	return h.identities.ApplyIdentity(ctx, data.UserID, data.Identity(), ev.Timestamp)
}
