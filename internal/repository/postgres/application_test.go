package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"club-recruitment-service/internal/domain"
)

func pendingApplication(now time.Time) *domain.Application {
	campaignID := "camp-1"
	return &domain.Application{
		ID:          "app-1",
		ClubID:      "club-1",
		CampaignID:  &campaignID,
		ApplicantID: "user-2",
		Applicant:   domain.Identity{Email: "ada@example.com", FullName: "Ada"},
		Answers:     []domain.Answer{{QuestionID: "q1", Value: "yes"}},
		Status:      domain.ApplicationStatusPending,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
}

func TestApplicationRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewApplicationRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 9, 2, 9, 0, 0, 0, time.UTC)
	max := 2

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE campaigns SET updated_at = updated_at").
			WithArgs("camp-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM applications WHERE campaign_id = \\$1 AND status IN \\(\\$2, \\$3\\)").
			WithArgs("camp-1", "pending", "active").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery("SELECT user_email, user_full_name, user_picture_url, identity_version FROM applications").
			WithArgs("user-2", int64(0)).
			WillReturnRows(sqlmock.NewRows([]string{"user_email", "user_full_name", "user_picture_url", "identity_version"}))
		mock.ExpectExec("INSERT INTO applications").
			WithArgs("app-1", "club-1", "camp-1", "user-2", "ada@example.com", "Ada", "", int64(0),
				`[{"question_id":"q1","value":"yes"}]`, "", "", "pending", now, now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, repo.Create(ctx, pendingApplication(now), &max))
	})

	t.Run("InheritsNewerIdentity", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE campaigns SET updated_at = updated_at").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT user_email, user_full_name, user_picture_url, identity_version FROM applications").
			WithArgs("user-2", int64(0)).
			WillReturnRows(sqlmock.NewRows([]string{"user_email", "user_full_name", "user_picture_url", "identity_version"}).
				AddRow("ada@club.example", "Ada L.", "https://img/ada.png", int64(500)))
		mock.ExpectExec("INSERT INTO applications").
			WithArgs("app-1", "club-1", "camp-1", "user-2", "ada@club.example", "Ada L.", "https://img/ada.png", int64(500),
				`[{"question_id":"q1","value":"yes"}]`, "", "", "pending", now, now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		app := pendingApplication(now)
		require.NoError(t, repo.Create(ctx, app, nil))
		assert.Equal(t, int64(500), app.IdentityVersion)
		assert.Equal(t, "ada@club.example", app.Applicant.Email)
	})

	t.Run("CapacityReached", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE campaigns SET updated_at = updated_at").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM applications").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		mock.ExpectRollback()

		err := repo.Create(ctx, pendingApplication(now), &max)
		assert.True(t, errors.Is(err, domain.ErrConflict))
	})

	t.Run("DuplicateOpenRecord", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE campaigns SET updated_at = updated_at").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT user_email, user_full_name, user_picture_url, identity_version FROM applications").
			WillReturnRows(sqlmock.NewRows([]string{"user_email", "user_full_name", "user_picture_url", "identity_version"}))
		mock.ExpectExec("INSERT INTO applications").
			WillReturnError(&pq.Error{Code: pqUniqueViolation})
		mock.ExpectRollback()

		err := repo.Create(ctx, pendingApplication(now), nil)
		assert.True(t, errors.Is(err, domain.ErrConflict))
	})

	t.Run("UnknownCampaign", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE campaigns SET updated_at = updated_at").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.Create(ctx, pendingApplication(now), &max)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepository_Approve(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewApplicationRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 9, 3, 9, 0, 0, 0, time.UTC)
	max := 3

	app := pendingApplication(now)
	approver := "mgr-1"
	app.Role = domain.MemberRoleMember
	app.ApproverID = &approver
	app.ApprovedAt = &now

	t.Run("CapacityRecheckFails", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE campaigns SET updated_at = updated_at").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM applications WHERE campaign_id = \\$1 AND status IN \\(\\$2\\)").
			WithArgs("camp-1", "active").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
		mock.ExpectRollback()

		err := repo.Approve(ctx, app, &max)
		assert.True(t, errors.Is(err, domain.ErrConflict))
	})

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE campaigns SET updated_at = updated_at").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM applications").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		mock.ExpectExec("UPDATE applications SET status = \\$1, role = \\$2").
			WithArgs("active", "member", "mgr-1", now, now, "app-1", "pending").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.Approve(ctx, app, &max))
		assert.Equal(t, domain.ApplicationStatusActive, app.Status)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepository_TransitionLostRace(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewApplicationRepository(db)
	now := time.Date(2026, 9, 3, 9, 0, 0, 0, time.UTC)
	app := pendingApplication(now)
	app.Status = domain.ApplicationStatusRejected

	mock.ExpectExec("UPDATE applications SET status").
		WithArgs("rejected", "", nil, nil, "", now, "app-1", "pending").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.Transition(context.Background(), app, domain.ApplicationStatusPending)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepository_CountByCampaign(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewApplicationRepository(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\),").
		WithArgs("pending", "rejected", "camp-1").
		WillReturnRows(sqlmock.NewRows([]string{"total", "pending", "approved", "rejected"}).AddRow(6, 3, 2, 1))

	stats, err := repo.CountByCampaign(context.Background(), "camp-1")
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Total)
	assert.Equal(t, 3, stats.Pending)
	assert.Equal(t, 2, stats.Approved)
	assert.Equal(t, 1, stats.Rejected)
	assert.False(t, stats.LastUpdated.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepository_HasRole(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewApplicationRepository(db)
	roles := []domain.MemberRole{domain.MemberRoleClubManager, domain.MemberRoleOrganizer}

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM applications WHERE club_id = \\$1 AND user_id = \\$2 AND status = \\$3 AND role IN \\(\\$4, \\$5\\)").
		WithArgs("club-1", "user-1", "active", "club_manager", "organizer").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	ok, err := repo.HasRole(context.Background(), "club-1", "user-1", roles)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.HasRole(context.Background(), "club-1", "user-1", nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepository_ApplyIdentity(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewApplicationRepository(db)
	identity := domain.Identity{Email: "new@example.com", FullName: "New Name"}

	mock.ExpectExec("UPDATE applications SET user_email").
		WithArgs("new@example.com", "New Name", "", int64(42), "user-2", int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.ApplyIdentity(context.Background(), "user-2", identity, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
