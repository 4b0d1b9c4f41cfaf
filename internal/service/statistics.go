package service

import (
	"context"
	"fmt"

	"club-recruitment-service/internal/domain"
	"club-recruitment-service/internal/logger"
	"club-recruitment-service/internal/repository"
)

type statisticsAggregator struct {
	campaignRepo repository.CampaignRepository
	appRepo      repository.ApplicationRepository
}

func NewStatisticsAggregator(campaignRepo repository.CampaignRepository, appRepo repository.ApplicationRepository) StatisticsAggregator {
	return &statisticsAggregator{campaignRepo: campaignRepo, appRepo: appRepo}
}

// Recompute refreshes the snapshot of one campaign. A failure leaves the
// previous snapshot in place until the next recompute or reconciliation.
func (a *statisticsAggregator) Recompute(ctx context.Context, campaignID string) {
	stats, err := a.appRepo.CountByCampaign(ctx, campaignID)
	if err != nil {
		logger.Error("Failed to count applications", "campaignID", campaignID, "error", err)
		return
	}
	if err := a.campaignRepo.UpdateStatistics(ctx, campaignID, stats); err != nil {
		logger.Error("Failed to store campaign statistics", "campaignID", campaignID, "error", err)
		return
	}
	logger.Debug("Campaign statistics updated", "campaignID", campaignID,
		"total", stats.Total, "pending", stats.Pending, "approved", stats.Approved, "rejected", stats.Rejected)
}

func (a *statisticsAggregator) ReconcileAll(ctx context.Context) (int, error) {
	logger.EnterMethod("statisticsAggregator.ReconcileAll")
	ids, err := a.campaignRepo.ListIDsByStatus(ctx,
		domain.CampaignStatusDraft, domain.CampaignStatusPublished, domain.CampaignStatusPaused)
	if err != nil {
		logger.ExitMethodWithError("statisticsAggregator.ReconcileAll", err)
		return 0, fmt.Errorf("failed to list campaigns: %w", err)
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		a.Recompute(ctx, id)
	}
	logger.ExitMethod("statisticsAggregator.ReconcileAll", "campaigns", len(ids))
	return len(ids), nil
}
