package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"club-recruitment-service/internal/domain"
	"club-recruitment-service/internal/logger"
	"club-recruitment-service/internal/repository"
)

const campaignColumns = `id, club_id, title, description, requirements, questions, start_date, end_date,
	max_applications, status, total_applications, pending_applications, approved_applications,
	rejected_applications, statistics_updated_at, created_by, created_at, updated_at`

type campaignRepository struct {
	db *sql.DB
}

func NewCampaignRepository(db *sql.DB) repository.CampaignRepository {
	return &campaignRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (*domain.Campaign, error) {
	var (
		c            domain.Campaign
		requirements []byte
		questions    []byte
		maxApps      sql.NullInt64
		statsAt      sql.NullTime
	)
	err := row.Scan(&c.ID, &c.ClubID, &c.Title, &c.Description, &requirements, &questions,
		&c.StartDate, &c.EndDate, &maxApps, &c.Status,
		&c.Statistics.Total, &c.Statistics.Pending, &c.Statistics.Approved, &c.Statistics.Rejected,
		&statsAt, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(requirements) > 0 {
		if err := json.Unmarshal(requirements, &c.Requirements); err != nil {
			return nil, fmt.Errorf("failed to decode requirements: %w", err)
		}
	}
	if len(questions) > 0 {
		if err := json.Unmarshal(questions, &c.Questions); err != nil {
			return nil, fmt.Errorf("failed to decode questions: %w", err)
		}
	}
	if maxApps.Valid {
		n := int(maxApps.Int64)
		c.MaxApplications = &n
	}
	if statsAt.Valid {
		c.Statistics.LastUpdated = statsAt.Time
	}
	return &c, nil
}

func encodeCampaignJSON(c *domain.Campaign) (string, string, error) {
	requirements := c.Requirements
	if requirements == nil {
		requirements = []string{}
	}
	questions := c.Questions
	if questions == nil {
		questions = []domain.Question{}
	}
	reqJSON, err := json.Marshal(requirements)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode requirements: %w", err)
	}
	qJSON, err := json.Marshal(questions)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode questions: %w", err)
	}
	return string(reqJSON), string(qJSON), nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func (r *campaignRepository) Create(ctx context.Context, c *domain.Campaign) error {
	reqJSON, qJSON, err := encodeCampaignJSON(c)
	if err != nil {
		return err
	}
	query := `INSERT INTO campaigns (id, club_id, title, description, requirements, questions, start_date, end_date,
	          max_applications, status, created_by, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	logger.DatabaseCall("insert", "campaigns", "id", c.ID)
	res, err := r.db.ExecContext(ctx, query, c.ID, c.ClubID, c.Title, c.Description, reqJSON, qJSON,
		c.StartDate.UTC(), c.EndDate.UTC(), nullInt(c.MaxApplications), c.Status, c.CreatedBy,
		c.CreatedAt.UTC(), c.UpdatedAt.UTC())
	if err != nil {
		logger.DatabaseResult("insert", 0, err)
		if isUniqueViolation(err) {
			return domain.NewConflict("campaign already exists")
		}
		return err
	}
	n, _ := res.RowsAffected()
	logger.DatabaseResult("insert", n, nil)
	return nil
}

func (r *campaignRepository) GetByID(ctx context.Context, id string) (*domain.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`
	c, err := scanCampaign(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFoundOr(err, "campaign")
	}
	return c, nil
}

func (r *campaignRepository) Update(ctx context.Context, c *domain.Campaign) error {
	reqJSON, qJSON, err := encodeCampaignJSON(c)
	if err != nil {
		return err
	}
	query := `UPDATE campaigns SET title = $1, description = $2, requirements = $3, questions = $4,
	          start_date = $5, end_date = $6, max_applications = $7, updated_at = $8
	          WHERE id = $9 AND status = $10`
	res, err := r.db.ExecContext(ctx, query, c.Title, c.Description, reqJSON, qJSON,
		c.StartDate.UTC(), c.EndDate.UTC(), nullInt(c.MaxApplications), c.UpdatedAt.UTC(),
		c.ID, domain.CampaignStatusDraft)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return r.missOrConflict(ctx, c.ID, "campaign is no longer a draft")
	}
	return nil
}

func (r *campaignRepository) UpdateStatus(ctx context.Context, id string, from, to domain.CampaignStatus) (*domain.Campaign, error) {
	query := `UPDATE campaigns SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, to, nowUTC(), id, from)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, r.missOrConflict(ctx, id, fmt.Sprintf("campaign is no longer %s", from))
	}
	return r.GetByID(ctx, id)
}

func (r *campaignRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM campaigns WHERE id = $1 AND status = $2`, id, domain.CampaignStatusDraft)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return r.missOrConflict(ctx, id, "only draft campaigns can be deleted")
	}
	return nil
}

// missOrConflict explains why a guarded write matched no row.
func (r *campaignRepository) missOrConflict(ctx context.Context, id, conflict string) error {
	var exists int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM campaigns WHERE id = $1`, id).Scan(&exists)
	if err != nil {
		return err
	}
	if exists == 0 {
		return domain.NewNotFound("campaign not found")
	}
	return domain.NewConflict(conflict)
}

func (r *campaignRepository) ListByClub(ctx context.Context, clubID string, status domain.CampaignStatus, page, pageSize int32) ([]domain.Campaign, int32, error) {
	where := `WHERE club_id = $1`
	args := []any{clubID}
	if status != "" {
		where += ` AND status = $2`
		args = append(args, status)
	}
	return r.list(ctx, where, args, page, pageSize)
}

func (r *campaignRepository) ListPublished(ctx context.Context, clubID string, page, pageSize int32) ([]domain.Campaign, int32, error) {
	where := `WHERE status IN ($1, $2, $3)`
	args := []any{domain.CampaignStatusPublished, domain.CampaignStatusPaused, domain.CampaignStatusCompleted}
	if clubID != "" {
		where += ` AND club_id = $4`
		args = append(args, clubID)
	}
	return r.list(ctx, where, args, page, pageSize)
}

func (r *campaignRepository) list(ctx context.Context, where string, args []any, page, pageSize int32) ([]domain.Campaign, int32, error) {
	var total int32
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM campaigns `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM campaigns %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		campaignColumns, where, n+1, n+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, pageSize, offset(page, pageSize))...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	campaigns, err := collectCampaigns(rows)
	if err != nil {
		return nil, 0, err
	}
	return campaigns, total, nil
}

func (r *campaignRepository) ListExpired(ctx context.Context, now time.Time) ([]domain.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE status IN ($1, $2) AND end_date < $3 ORDER BY end_date`
	rows, err := r.db.QueryContext(ctx, query, domain.CampaignStatusPublished, domain.CampaignStatusPaused, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCampaigns(rows)
}

func (r *campaignRepository) ListIDsByStatus(ctx context.Context, statuses ...domain.CampaignStatus) ([]string, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	args := make([]any, len(statuses))
	for i, s := range statuses {
		args[i] = s
	}
	query := `SELECT id FROM campaigns WHERE status IN (` + placeholders(1, len(statuses)) + `) ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *campaignRepository) UpdateStatistics(ctx context.Context, id string, stats domain.CampaignStatistics) error {
	query := `UPDATE campaigns SET total_applications = $1, pending_applications = $2, approved_applications = $3,
	          rejected_applications = $4, statistics_updated_at = $5 WHERE id = $6`
	res, err := r.db.ExecContext(ctx, query, stats.Total, stats.Pending, stats.Approved, stats.Rejected,
		stats.LastUpdated.UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NewNotFound("campaign not found")
	}
	return nil
}

func collectCampaigns(rows *sql.Rows) ([]domain.Campaign, error) {
	var campaigns []domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, rows.Err()
}
