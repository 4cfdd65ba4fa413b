package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/noah-isme/globalpath-api/internal/models"
	"github.com/noah-isme/globalpath-api/internal/repository"
)

func TestStudentDashboardServiceAggregatesAndCaches(t *testing.T) {
	server, client := setupRedis(t)
	db := setupServiceDB(t, &models.Application{}, &models.ApplicationStatusEntry{})
	repo := repository.NewApplicationRepository(db)
	store, _ := newCatalogFixture(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	submitted := now.Add(-48 * time.Hour)
	interview := now.Add(72 * time.Hour)

	apps := []models.Application{
		{StudentID: 7, InstitutionID: "tum", ProgramID: "tum-msc-informatics", Status: models.ApplicationStatusInterviewScheduled, SubmittedAt: &submitted, InterviewDate: &interview, LastUpdated: now.Add(-time.Hour), Documents: datatypes.NewJSONSlice([]models.ApplicationDocument{})},
		{StudentID: 7, InstitutionID: "sorbonne", ProgramID: "sorbonne-ba-history", Status: models.ApplicationStatusDraft, LastUpdated: now.Add(-2 * time.Hour)},
		{StudentID: 8, InstitutionID: "tum", ProgramID: "tum-msc-informatics", Status: models.ApplicationStatusAccepted, LastUpdated: now},
	}
	for i := range apps {
		require.NoError(t, repo.Create(ctx, &apps[i]))
	}
	require.NoError(t, db.Create(&models.ApplicationStatusEntry{ApplicationID: apps[0].ID, Sequence: 1, Status: models.ApplicationStatusSubmitted, Actor: "student:7", Timestamp: submitted}).Error)
	require.NoError(t, db.Create(&models.ApplicationStatusEntry{ApplicationID: apps[0].ID, Sequence: 2, Status: models.ApplicationStatusUnderReview, Actor: "reviewer:2", Timestamp: submitted.Add(time.Hour)}).Error)
	require.NoError(t, db.Create(&models.ApplicationStatusEntry{ApplicationID: apps[0].ID, Sequence: 3, Status: models.ApplicationStatusInterviewScheduled, Actor: "reviewer:2", Timestamp: now.Add(-time.Hour), Note: "Online panel"}).Error)

	svc := NewStudentDashboardService(repo, store, client, time.Minute, testLogger()).(*studentDashboardService)
	svc.now = func() time.Time { return now }

	dashboard, err := svc.GetDashboard(ctx, 7)
	require.NoError(t, err)
	require.False(t, dashboard.CacheHit)
	require.Equal(t, 2, dashboard.Total)
	require.Equal(t, 1, dashboard.StatusCounts[models.ApplicationStatusDraft])
	require.Equal(t, 1, dashboard.StatusCounts[models.ApplicationStatusInterviewScheduled])
	require.Equal(t, 0, dashboard.StatusCounts[models.ApplicationStatusAccepted])
	require.Len(t, dashboard.Applications, 2)
	require.Len(t, dashboard.UpcomingInterviews, 1)
	require.Equal(t, "MSc Informatics", dashboard.UpcomingInterviews[0].ProgramName)
	require.Len(t, dashboard.RecentActivity, 3)
	require.Equal(t, models.ApplicationStatusInterviewScheduled, dashboard.RecentActivity[0].Status, "newest first")
	require.True(t, server.Exists("dashboard:student:7"))

	cached, err := svc.GetDashboard(ctx, 7)
	require.NoError(t, err)
	require.True(t, cached.CacheHit)
	require.Equal(t, dashboard.Total, cached.Total)

	require.NoError(t, svc.Invalidate(ctx, 7))
	require.False(t, server.Exists("dashboard:student:7"))
}

func TestStudentDashboardServiceWithoutCache(t *testing.T) {
	db := setupServiceDB(t, &models.Application{}, &models.ApplicationStatusEntry{})
	svc := NewStudentDashboardService(repository.NewApplicationRepository(db), nil, nil, time.Minute, testLogger())

	dashboard, err := svc.GetDashboard(context.Background(), 42)
	require.NoError(t, err)
	require.Zero(t, dashboard.Total)
	require.Empty(t, dashboard.Applications)
	require.Len(t, dashboard.StatusCounts, 7)
	require.NoError(t, svc.Invalidate(context.Background(), 42))
}
