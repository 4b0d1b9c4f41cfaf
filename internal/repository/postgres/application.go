package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"club-recruitment-service/internal/domain"
	"club-recruitment-service/internal/logger"
	"club-recruitment-service/internal/repository"
)

const applicationColumns = `id, club_id, campaign_id, user_id, user_email, user_full_name, user_picture_url,
	identity_version, answers, message, role, status, approver_id, approved_at, status_reason,
	submitted_at, updated_at`

// lockCampaign takes the campaign row lock that serializes capacity checks.
// It is a no-op write so it behaves the same on Postgres and SQLite.
const lockCampaign = `UPDATE campaigns SET updated_at = updated_at WHERE id = $1`

type applicationRepository struct {
	db *sql.DB
}

func NewApplicationRepository(db *sql.DB) repository.ApplicationRepository {
	return &applicationRepository{db: db}
}

func scanApplication(row rowScanner) (*domain.Application, error) {
	var (
		a          domain.Application
		campaignID sql.NullString
		approverID sql.NullString
		approvedAt sql.NullTime
		answers    []byte
	)
	err := row.Scan(&a.ID, &a.ClubID, &campaignID, &a.ApplicantID, &a.Applicant.Email, &a.Applicant.FullName,
		&a.Applicant.PictureURL, &a.IdentityVersion, &answers, &a.Message, &a.Role, &a.Status,
		&approverID, &approvedAt, &a.StatusReason, &a.SubmittedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if campaignID.Valid {
		a.CampaignID = &campaignID.String
	}
	if approverID.Valid {
		a.ApproverID = &approverID.String
	}
	if approvedAt.Valid {
		t := approvedAt.Time
		a.ApprovedAt = &t
	}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &a.Answers); err != nil {
			return nil, fmt.Errorf("failed to decode answers: %w", err)
		}
	}
	return &a, nil
}

func encodeAnswers(answers []domain.Answer) (string, error) {
	if answers == nil {
		answers = []domain.Answer{}
	}
	b, err := json.Marshal(answers)
	if err != nil {
		return "", fmt.Errorf("failed to encode answers: %w", err)
	}
	return string(b), nil
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: v.UTC(), Valid: true}
}

func (r *applicationRepository) Create(ctx context.Context, app *domain.Application, maxApplications *int) error {
	answers, err := encodeAnswers(app.Answers)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	if app.CampaignID != nil {
		if err := lockAndCheckCapacity(ctx, tx, *app.CampaignID, maxApplications,
			domain.ApplicationStatusPending, domain.ApplicationStatusActive); err != nil {
			return err
		}
	}

	if err := inheritIdentity(ctx, tx, app); err != nil {
		return err
	}

	query := `INSERT INTO applications (id, club_id, campaign_id, user_id, user_email, user_full_name, user_picture_url,
	          identity_version, answers, message, role, status, submitted_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	logger.DatabaseCall("insert", "applications", "id", app.ID)
	_, err = tx.ExecContext(ctx, query, app.ID, app.ClubID, nullString(app.CampaignID), app.ApplicantID,
		app.Applicant.Email, app.Applicant.FullName, app.Applicant.PictureURL, app.IdentityVersion,
		answers, app.Message, app.Role, app.Status, app.SubmittedAt.UTC(), app.UpdatedAt.UTC())
	if err != nil {
		logger.DatabaseResult("insert", 0, err)
		if isUniqueViolation(err) {
			return domain.NewConflict("an open application or membership already exists for this club")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit application: %w", err)
	}
	logger.DatabaseResult("insert", 1, nil)
	return nil
}

// inheritIdentity copies the newest identity cached on the applicant's other
// records so a new record never starts behind them and a late identity event
// cannot overwrite it with older data.
func inheritIdentity(ctx context.Context, tx *sql.Tx, app *domain.Application) error {
	query := `SELECT user_email, user_full_name, user_picture_url, identity_version FROM applications
	          WHERE user_id = $1 AND identity_version > $2 ORDER BY identity_version DESC LIMIT 1`
	var identity domain.Identity
	var version int64
	err := tx.QueryRowContext(ctx, query, app.ApplicantID, app.IdentityVersion).
		Scan(&identity.Email, &identity.FullName, &identity.PictureURL, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read cached identity: %w", err)
	}
	app.Applicant = identity
	app.IdentityVersion = version
	return nil
}

// lockAndCheckCapacity locks the campaign row and fails with Conflict when
// the records in the given statuses already reach maxApplications.
func lockAndCheckCapacity(ctx context.Context, tx *sql.Tx, campaignID string, maxApplications *int, statuses ...domain.ApplicationStatus) error {
	res, err := tx.ExecContext(ctx, lockCampaign, campaignID)
	if err != nil {
		return fmt.Errorf("failed to lock campaign: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NewNotFound("campaign not found")
	}
	if maxApplications == nil {
		return nil
	}

	args := []any{campaignID}
	for _, s := range statuses {
		args = append(args, s)
	}
	query := `SELECT COUNT(*) FROM applications WHERE campaign_id = $1 AND status IN (` +
		placeholders(2, len(statuses)) + `)`
	var count int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return fmt.Errorf("failed to count applications: %w", err)
	}
	if count >= *maxApplications {
		return domain.NewConflict("campaign has reached its maximum number of applications")
	}
	return nil
}

func (r *applicationRepository) GetByID(ctx context.Context, id string) (*domain.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`
	a, err := scanApplication(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFoundOr(err, "application")
	}
	return a, nil
}

func (r *applicationRepository) FindOpen(ctx context.Context, clubID, userID string) (*domain.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications
	          WHERE club_id = $1 AND user_id = $2 AND status IN ($3, $4)`
	a, err := scanApplication(r.db.QueryRowContext(ctx, query, clubID, userID,
		domain.ApplicationStatusPending, domain.ApplicationStatusActive))
	if err != nil {
		return nil, notFoundOr(err, "membership")
	}
	return a, nil
}

func (r *applicationRepository) UpdateSubmission(ctx context.Context, app *domain.Application) error {
	answers, err := encodeAnswers(app.Answers)
	if err != nil {
		return err
	}
	query := `UPDATE applications SET answers = $1, message = $2, updated_at = $3 WHERE id = $4 AND status = $5`
	res, err := r.db.ExecContext(ctx, query, answers, app.Message, app.UpdatedAt.UTC(), app.ID, domain.ApplicationStatusPending)
	if err != nil {
		return err
	}
	return expectOne(res, "application is no longer pending")
}

func (r *applicationRepository) Transition(ctx context.Context, app *domain.Application, from domain.ApplicationStatus) error {
	query := `UPDATE applications SET status = $1, role = $2, approver_id = $3, approved_at = $4, status_reason = $5,
	          updated_at = $6 WHERE id = $7 AND status = $8`
	logger.DatabaseCall("update", "applications", "id", app.ID, "from", from, "to", app.Status)
	res, err := r.db.ExecContext(ctx, query, app.Status, app.Role, nullString(app.ApproverID),
		nullTime(app.ApprovedAt), app.StatusReason, app.UpdatedAt.UTC(), app.ID, from)
	if err != nil {
		logger.DatabaseResult("update", 0, err)
		return err
	}
	return expectOne(res, fmt.Sprintf("application is no longer %s", from))
}

func (r *applicationRepository) Approve(ctx context.Context, app *domain.Application, maxApplications *int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	if app.CampaignID != nil {
		if err := lockAndCheckCapacity(ctx, tx, *app.CampaignID, maxApplications, domain.ApplicationStatusActive); err != nil {
			return err
		}
	}

	query := `UPDATE applications SET status = $1, role = $2, approver_id = $3, approved_at = $4, updated_at = $5
	          WHERE id = $6 AND status = $7`
	logger.DatabaseCall("update", "applications", "id", app.ID, "to", domain.ApplicationStatusActive)
	res, err := tx.ExecContext(ctx, query, domain.ApplicationStatusActive, app.Role, nullString(app.ApproverID),
		nullTime(app.ApprovedAt), app.UpdatedAt.UTC(), app.ID, domain.ApplicationStatusPending)
	if err != nil {
		logger.DatabaseResult("update", 0, err)
		if isUniqueViolation(err) {
			return domain.NewConflict("user already has an active membership in this club")
		}
		return err
	}
	if err := expectOne(res, "application is no longer pending"); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit approval: %w", err)
	}
	app.Status = domain.ApplicationStatusActive
	return nil
}

func (r *applicationRepository) CountByCampaign(ctx context.Context, campaignID string) (domain.CampaignStatistics, error) {
	query := `SELECT COUNT(*),
	          COALESCE(SUM(CASE WHEN status = $1 THEN 1 ELSE 0 END), 0),
	          COALESCE(SUM(CASE WHEN approved_at IS NOT NULL THEN 1 ELSE 0 END), 0),
	          COALESCE(SUM(CASE WHEN status = $2 THEN 1 ELSE 0 END), 0)
	          FROM applications WHERE campaign_id = $3`
	var stats domain.CampaignStatistics
	err := r.db.QueryRowContext(ctx, query, domain.ApplicationStatusPending, domain.ApplicationStatusRejected, campaignID).
		Scan(&stats.Total, &stats.Pending, &stats.Approved, &stats.Rejected)
	if err != nil {
		return domain.CampaignStatistics{}, err
	}
	stats.LastUpdated = nowUTC()
	return stats, nil
}

func (r *applicationRepository) ListByCampaign(ctx context.Context, campaignID string, status domain.ApplicationStatus, page, pageSize int32) ([]domain.Application, int32, error) {
	where := `WHERE campaign_id = $1`
	args := []any{campaignID}
	if status != "" {
		where += ` AND status = $2`
		args = append(args, status)
	}

	var total int32
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM applications `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM applications %s ORDER BY submitted_at, id LIMIT $%d OFFSET $%d`,
		applicationColumns, where, n+1, n+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, pageSize, offset(page, pageSize))...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	apps, err := collectApplications(rows)
	if err != nil {
		return nil, 0, err
	}
	return apps, total, nil
}

func (r *applicationRepository) ListByApplicant(ctx context.Context, userID string) ([]domain.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE user_id = $1 ORDER BY submitted_at DESC, id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectApplications(rows)
}

func (r *applicationRepository) HasRole(ctx context.Context, clubID, userID string, roles []domain.MemberRole) (bool, error) {
	if len(roles) == 0 {
		return false, nil
	}
	args := []any{clubID, userID, domain.ApplicationStatusActive}
	for _, role := range roles {
		args = append(args, role)
	}
	query := `SELECT COUNT(*) FROM applications WHERE club_id = $1 AND user_id = $2 AND status = $3 AND role IN (` +
		placeholders(4, len(roles)) + `)`
	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *applicationRepository) ApplyIdentity(ctx context.Context, userID string, identity domain.Identity, version int64) (int64, error) {
	query := `UPDATE applications SET user_email = $1, user_full_name = $2, user_picture_url = $3, identity_version = $4
	          WHERE user_id = $5 AND identity_version < $6`
	logger.DatabaseCall("update", "applications", "user_id", userID, "version", version)
	res, err := r.db.ExecContext(ctx, query, identity.Email, identity.FullName, identity.PictureURL, version, userID, version)
	if err != nil {
		logger.DatabaseResult("update", 0, err)
		return 0, err
	}
	n, err := res.RowsAffected()
	logger.DatabaseResult("update", n, err)
	return n, err
}

func (r *applicationRepository) RemoveByIdentity(ctx context.Context, userID, reason string, version int64, at time.Time) ([]string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	rows, err := tx.QueryContext(ctx, `SELECT DISTINCT campaign_id FROM applications
	          WHERE user_id = $1 AND status IN ($2, $3) AND campaign_id IS NOT NULL`,
		userID, domain.ApplicationStatusPending, domain.ApplicationStatusActive)
	if err != nil {
		return nil, err
	}
	var campaignIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		campaignIDs = append(campaignIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `UPDATE applications SET status = $1, status_reason = $2, updated_at = $3
	          WHERE user_id = $4 AND status IN ($5, $6)`,
		domain.ApplicationStatusRemoved, reason, at.UTC(), userID,
		domain.ApplicationStatusPending, domain.ApplicationStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to remove records: %w", err)
	}
	_, err = tx.ExecContext(ctx, `UPDATE applications SET identity_version = $1 WHERE user_id = $2 AND identity_version < $3`,
		version, userID, version)
	if err != nil {
		return nil, fmt.Errorf("failed to advance identity version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit identity removal: %w", err)
	}
	return campaignIDs, nil
}

// expectOne turns a guarded update that matched no row into Conflict.
func expectOne(res sql.Result, conflict string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NewConflict(conflict)
	}
	return nil
}

func collectApplications(rows *sql.Rows) ([]domain.Application, error) {
	var apps []domain.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, *a)
	}
	return apps, rows.Err()
}
