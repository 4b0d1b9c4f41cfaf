package postgres

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"club-recruitment-service/internal/domain"
)

// newSQLiteStore opens a migrated embedded database seeded with one club.
func newSQLiteStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "club.db")
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite"

	db, err := Open(ctx, DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(ctx, db, DriverSQLite))
	_, err = db.ExecContext(ctx, `INSERT INTO clubs (id, name) VALUES ($1, $2)`, "club-1", "Chess")
	require.NoError(t, err)
	return NewStore(db)
}

func seedCampaign(t *testing.T, s *Store, max *int) *domain.Campaign {
	t.Helper()
	now := time.Now().UTC()
	c := &domain.Campaign{
		ID:              uuid.NewString(),
		ClubID:          "club-1",
		Title:           "Spring intake",
		Questions:       []domain.Question{{ID: "q1", Prompt: "Why?", Type: domain.QuestionTypeText, Required: true}},
		StartDate:       now.Add(-time.Hour),
		EndDate:         now.Add(48 * time.Hour),
		MaxApplications: max,
		Status:          domain.CampaignStatusPublished,
		CreatedBy:       "mgr-1",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, s.CampaignRepository.Create(context.Background(), c))
	return c
}

func newApplication(campaign *domain.Campaign, userID string) *domain.Application {
	now := time.Now().UTC()
	return &domain.Application{
		ID:          uuid.NewString(),
		ClubID:      campaign.ClubID,
		CampaignID:  &campaign.ID,
		ApplicantID: userID,
		Applicant:   domain.Identity{Email: userID + "@example.com", FullName: userID},
		Answers:     []domain.Answer{{QuestionID: "q1", Value: "because"}},
		Status:      domain.ApplicationStatusPending,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
}

func approve(t *testing.T, s *Store, app *domain.Application, max *int) {
	t.Helper()
	now := time.Now().UTC()
	approver := "mgr-1"
	app.Role = domain.MemberRoleMember
	app.ApproverID = &approver
	app.ApprovedAt = &now
	app.UpdatedAt = now
	require.NoError(t, s.ApplicationRepository.Approve(context.Background(), app, max))
}

func TestSQLite_CampaignRoundTrip(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	max := 4
	c := seedCampaign(t, s, &max)

	got, err := s.CampaignRepository.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Title, got.Title)
	assert.Equal(t, c.Questions, got.Questions)
	require.NotNil(t, got.MaxApplications)
	assert.Equal(t, 4, *got.MaxApplications)
	assert.WithinDuration(t, c.EndDate, got.EndDate, time.Microsecond)

	exists, err := s.ClubRepository.Exists(ctx, "club-1")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = s.ClubRepository.Exists(ctx, "club-x")
	require.NoError(t, err)
	assert.False(t, exists)

	paused, err := s.CampaignRepository.UpdateStatus(ctx, c.ID, domain.CampaignStatusPublished, domain.CampaignStatusPaused)
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignStatusPaused, paused.Status)

	_, err = s.CampaignRepository.UpdateStatus(ctx, c.ID, domain.CampaignStatusPublished, domain.CampaignStatusCompleted)
	assert.True(t, errors.Is(err, domain.ErrConflict))

	published, total, err := s.CampaignRepository.ListPublished(ctx, "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int32(1), total)
	assert.Len(t, published, 1)
}

func TestSQLite_ConcurrentSubmissionsRespectCapacity(t *testing.T) {
	s := newSQLiteStore(t)
	max := 3
	c := seedCampaign(t, s, &max)

	const attempts = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.ApplicationRepository.Create(context.Background(), newApplication(c, fmt.Sprintf("user-%d", i)), &max)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, max, succeeded)
	assert.Equal(t, attempts-max, conflicts)
}

func TestSQLite_DuplicateOpenRecordRejected(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	c := seedCampaign(t, s, nil)

	first := newApplication(c, "user-1")
	require.NoError(t, s.ApplicationRepository.Create(ctx, first, nil))

	err := s.ApplicationRepository.Create(ctx, newApplication(c, "user-1"), nil)
	assert.True(t, errors.Is(err, domain.ErrConflict))

	// A terminal record frees the slot.
	first.Status = domain.ApplicationStatusRejected
	first.UpdatedAt = time.Now().UTC()
	require.NoError(t, s.ApplicationRepository.Transition(ctx, first, domain.ApplicationStatusPending))
	require.NoError(t, s.ApplicationRepository.Create(ctx, newApplication(c, "user-1"), nil))

	open, err := s.ApplicationRepository.FindOpen(ctx, "club-1", "user-1")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, open.ID)
}

func TestSQLite_StatisticsCounts(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	c := seedCampaign(t, s, nil)

	var apps []*domain.Application
	for i := 0; i < 6; i++ {
		app := newApplication(c, fmt.Sprintf("user-%d", i))
		require.NoError(t, s.ApplicationRepository.Create(ctx, app, nil))
		apps = append(apps, app)
	}
	approve(t, s, apps[0], nil)
	approve(t, s, apps[1], nil)
	apps[2].Status = domain.ApplicationStatusRejected
	apps[2].UpdatedAt = time.Now().UTC()
	require.NoError(t, s.ApplicationRepository.Transition(ctx, apps[2], domain.ApplicationStatusPending))

	stats, err := s.ApplicationRepository.CountByCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Total)
	assert.Equal(t, 3, stats.Pending)
	assert.Equal(t, 2, stats.Approved)
	assert.Equal(t, 1, stats.Rejected)

	// Removing a member keeps it counted as approved.
	apps[0].Status = domain.ApplicationStatusRemoved
	apps[0].StatusReason = "left"
	require.NoError(t, s.ApplicationRepository.Transition(ctx, apps[0], domain.ApplicationStatusActive))
	stats, err = s.ApplicationRepository.CountByCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Approved)

	require.NoError(t, s.CampaignRepository.UpdateStatistics(ctx, c.ID, stats))
	got, err := s.CampaignRepository.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.Statistics.Total)
	assert.False(t, got.Statistics.LastUpdated.IsZero())

	ok, err := s.ApplicationRepository.HasRole(ctx, "club-1", "user-1", []domain.MemberRole{domain.MemberRoleMember})
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.ApplicationRepository.HasRole(ctx, "club-1", "user-0", []domain.MemberRole{domain.MemberRoleMember})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLite_StatisticsPendingRejectedActive(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	c := seedCampaign(t, s, nil)

	var apps []*domain.Application
	for i := 0; i < 6; i++ {
		app := newApplication(c, fmt.Sprintf("user-%d", i))
		require.NoError(t, s.ApplicationRepository.Create(ctx, app, nil))
		apps = append(apps, app)
	}
	for _, app := range apps[3:5] {
		app.Status = domain.ApplicationStatusRejected
		app.UpdatedAt = time.Now().UTC()
		require.NoError(t, s.ApplicationRepository.Transition(ctx, app, domain.ApplicationStatusPending))
	}
	approve(t, s, apps[5], nil)

	stats, err := s.ApplicationRepository.CountByCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Total)
	assert.Equal(t, 3, stats.Pending)
	assert.Equal(t, 1, stats.Approved)
	assert.Equal(t, 2, stats.Rejected)
}

func TestSQLite_RemovedMemberFreesSlot(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	max := 2
	c := seedCampaign(t, s, &max)

	a := newApplication(c, "user-a")
	b := newApplication(c, "user-b")
	require.NoError(t, s.ApplicationRepository.Create(ctx, a, &max))
	require.NoError(t, s.ApplicationRepository.Create(ctx, b, &max))
	approve(t, s, a, &max)
	approve(t, s, b, &max)

	// Removing a member frees a slot for a new applicant.
	b.Status = domain.ApplicationStatusRemoved
	require.NoError(t, s.ApplicationRepository.Transition(ctx, b, domain.ApplicationStatusActive))
	d := newApplication(c, "user-d")
	require.NoError(t, s.ApplicationRepository.Create(ctx, d, &max))
	approve(t, s, d, &max)

	e := newApplication(c, "user-e")
	err := s.ApplicationRepository.Create(ctx, e, &max)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestSQLite_IdentityEventsAreIdempotentAndOrderIndependent(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	c := seedCampaign(t, s, nil)
	app := newApplication(c, "user-1")
	require.NoError(t, s.ApplicationRepository.Create(ctx, app, nil))

	newer := domain.Identity{Email: "new@example.com", FullName: "New"}
	older := domain.Identity{Email: "old@example.com", FullName: "Old"}

	n, err := s.ApplicationRepository.ApplyIdentity(ctx, "user-1", newer, 200)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// Redelivery and a late older event both leave the newest state.
	n, err = s.ApplicationRepository.ApplyIdentity(ctx, "user-1", newer, 200)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	n, err = s.ApplicationRepository.ApplyIdentity(ctx, "user-1", older, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	got, err := s.ApplicationRepository.GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, newer, got.Applicant)
	assert.Equal(t, int64(200), got.IdentityVersion)
}

func TestSQLite_NewRecordKeepsNewestIdentity(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	first := seedCampaign(t, s, nil)
	a := newApplication(first, "user-1")
	require.NoError(t, s.ApplicationRepository.Create(ctx, a, nil))

	newer := domain.Identity{Email: "new@example.com", FullName: "New"}
	_, err := s.ApplicationRepository.ApplyIdentity(ctx, "user-1", newer, 200)
	require.NoError(t, err)

	_, err = s.db.ExecContext(ctx, `INSERT INTO clubs (id, name) VALUES ($1, $2)`, "club-2", "Go")
	require.NoError(t, err)
	other := seedCampaign(t, s, nil)
	other.ClubID = "club-2"
	other.ID = uuid.NewString()
	require.NoError(t, s.CampaignRepository.Create(ctx, other))
	b := newApplication(other, "user-1")
	b.Applicant = domain.Identity{Email: "stale@example.com", FullName: "Stale"}
	require.NoError(t, s.ApplicationRepository.Create(ctx, b, nil))

	// A late event older than the cached identity touches neither record.
	n, err := s.ApplicationRepository.ApplyIdentity(ctx, "user-1", domain.Identity{Email: "old@example.com"}, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	for _, id := range []string{a.ID, b.ID} {
		got, err := s.ApplicationRepository.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, newer, got.Applicant)
		assert.Equal(t, int64(200), got.IdentityVersion)
	}
}

func TestSQLite_RemoveByIdentity(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	c := seedCampaign(t, s, nil)
	app := newApplication(c, "user-1")
	require.NoError(t, s.ApplicationRepository.Create(ctx, app, nil))
	approve(t, s, app, nil)

	campaigns, err := s.ApplicationRepository.RemoveByIdentity(ctx, "user-1", domain.ReasonIdentityDeleted, 300, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID}, campaigns)

	got, err := s.ApplicationRepository.GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationStatusRemoved, got.Status)
	assert.Equal(t, domain.ReasonIdentityDeleted, got.StatusReason)
	membership, ok := got.Membership()
	require.True(t, ok)
	assert.Equal(t, domain.ReasonIdentityDeleted, membership.RemovalReason)

	// Second delivery changes nothing; stale updates are ignored.
	campaigns, err = s.ApplicationRepository.RemoveByIdentity(ctx, "user-1", domain.ReasonIdentityDeleted, 300, time.Now().UTC())
	require.NoError(t, err)
	assert.Empty(t, campaigns)
	n, err := s.ApplicationRepository.ApplyIdentity(ctx, "user-1", domain.Identity{Email: "x@example.com"}, 250)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestSQLite_ListExpired(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	expired := &domain.Campaign{
		ID: uuid.NewString(), ClubID: "club-1", Title: "Old",
		StartDate: now.Add(-72 * time.Hour), EndDate: now.Add(-time.Hour),
		Status: domain.CampaignStatusPaused, CreatedBy: "mgr-1", CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, s.CampaignRepository.Create(ctx, expired))
	seedCampaign(t, s, nil)

	got, err := s.CampaignRepository.ListExpired(ctx, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, expired.ID, got[0].ID)

	ids, err := s.CampaignRepository.ListIDsByStatus(ctx, domain.CampaignStatusPublished, domain.CampaignStatusPaused)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}
