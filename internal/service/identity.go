package service

import (
	"context"
	"fmt"
	"time"

	"club-recruitment-service/internal/domain"
	"club-recruitment-service/internal/logger"
	"club-recruitment-service/internal/repository"
)

// identityService keeps the cached applicant identity in sync. The event
// timestamp in unix nanoseconds is the identity version, so replays and
// out-of-order deliveries converge on the newest event.
type identityService struct {
	appRepo repository.ApplicationRepository
	stats   StatisticsAggregator
	now     func() time.Time
}

func NewIdentityService(appRepo repository.ApplicationRepository, stats StatisticsAggregator) IdentityService {
	return &identityService{appRepo: appRepo, stats: stats, now: time.Now}
}

func (s *identityService) ApplyIdentity(ctx context.Context, userID string, identity domain.Identity, at time.Time) error {
	if userID == "" {
		return domain.NewValidationError("identity event without user id")
	}
	n, err := s.appRepo.ApplyIdentity(ctx, userID, identity, at.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to apply identity: %w", err)
	}
	logger.Info("Identity applied", "userID", userID, "records", n)
	return nil
}

func (s *identityService) RemoveIdentity(ctx context.Context, userID string, at time.Time) error {
	if userID == "" {
		return domain.NewValidationError("identity event without user id")
	}
	campaignIDs, err := s.appRepo.RemoveByIdentity(ctx, userID, domain.ReasonIdentityDeleted, at.UnixNano(), s.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to remove identity: %w", err)
	}
	for _, id := range campaignIDs {
		s.stats.Recompute(ctx, id)
	}
	logger.Info("Identity removed", "userID", userID, "campaigns", len(campaignIDs))
	return nil
}
