package service

import (
	"context"

	"club-recruitment-service/internal/domain"
	"club-recruitment-service/internal/logger"
	"club-recruitment-service/internal/repository"
)

type permissionGate struct {
	appRepo repository.ApplicationRepository
}

func NewPermissionGate(appRepo repository.ApplicationRepository) PermissionGate {
	return &permissionGate{appRepo: appRepo}
}

// HasRole is true iff the actor holds an active membership with one of roles.
// Lookup failures count as false.
func (g *permissionGate) HasRole(ctx context.Context, clubID, actorID string, roles ...domain.MemberRole) bool {
	if actorID == "" {
		return false
	}
	ok, err := g.appRepo.HasRole(ctx, clubID, actorID, roles)
	if err != nil {
		logger.Error("Role lookup failed", "clubID", clubID, "actorID", actorID, "error", err)
		return false
	}
	return ok
}

func (g *permissionGate) Require(ctx context.Context, clubID, actorID string, roles ...domain.MemberRole) error {
	if !g.HasRole(ctx, clubID, actorID, roles...) {
		return domain.NewPermissionDenied("insufficient permissions for this club")
	}
	return nil
}
