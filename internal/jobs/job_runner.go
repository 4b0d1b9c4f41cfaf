package jobs

import (
	"context"
	"time"

	"club-recruitment-service/internal/config"
	"club-recruitment-service/internal/logger"
	"club-recruitment-service/internal/service"
)

// Job names accepted by the cronjob binary's -run-once flag.
const (
	JobCompleteExpiredCampaigns = "complete-expired-campaigns"
	JobReconcileStatistics      = "reconcile-statistics"
	JobAll                      = "all"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	services *Services
	config   *config.Config
	now      func() time.Time
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Campaigns  service.CampaignService
	Statistics service.StatisticsAggregator
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(services *Services, cfg *config.Config) *JobRunner {
	return &JobRunner{
		services: services,
		config:   cfg,
		now:      time.Now,
	}
}

// Config returns the configuration the runner was built with.
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}

// CompleteExpiredCampaigns moves published and paused campaigns whose end
// date has passed to completed.
func (jr *JobRunner) CompleteExpiredCampaigns() {
	jr.runWithRecovery("CompleteExpiredCampaigns", func() {
		n, err := jr.services.Campaigns.CompleteExpired(context.Background(), jr.now().UTC())
		if err != nil {
			logger.Error("Failed to complete expired campaigns", "completed", n, "error", err)
			return
		}
		logger.Info("Completed expired campaigns", "count", n)
	})
}

// ReconcileStatistics recomputes the statistics snapshot of every campaign
// still accepting changes.
func (jr *JobRunner) ReconcileStatistics() {
	jr.runWithRecovery("ReconcileStatistics", func() {
		n, err := jr.services.Statistics.ReconcileAll(context.Background())
		if err != nil {
			logger.Error("Failed to reconcile statistics", "error", err)
			return
		}
		logger.Info("Reconciled campaign statistics", "campaigns", n)
	})
}

// RunAll runs every job once (for manual execution)
func (jr *JobRunner) RunAll() {
	jr.CompleteExpiredCampaigns()
	jr.ReconcileStatistics()
}

// RunOnce runs the named job and reports whether the name was known.
func (jr *JobRunner) RunOnce(name string) bool {
	switch name {
	case JobCompleteExpiredCampaigns:
		jr.CompleteExpiredCampaigns()
	case JobReconcileStatistics:
		jr.ReconcileStatistics()
	case JobAll:
		jr.RunAll()
	default:
		return false
	}
	return true
}
