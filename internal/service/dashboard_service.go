package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/globalpath-api/internal/dto"
	"github.com/noah-isme/globalpath-api/internal/lifecycle"
	"github.com/noah-isme/globalpath-api/internal/models"
	"github.com/noah-isme/globalpath-api/internal/repository"
)

const dashboardRecentActivityLimit = 10

// StudentDashboardService aggregates an applicant's pipeline.
type StudentDashboardService interface {
	GetDashboard(ctx context.Context, studentID uint) (dto.StudentDashboardResponse, error)
	Invalidate(ctx context.Context, studentID uint) error
}

type studentDashboardService struct {
	applications repository.ApplicationRepository
	catalog      CatalogLookup
	cache        *redis.Client
	cacheTTL     time.Duration
	logger       zerolog.Logger
	now          func() time.Time
}

// NewStudentDashboardService builds the dashboard aggregator. A nil cache disables caching.
func NewStudentDashboardService(applications repository.ApplicationRepository, catalog CatalogLookup, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) StudentDashboardService {
	return &studentDashboardService{
		applications: applications,
		catalog:      catalog,
		cache:        cache,
		cacheTTL:     ttl,
		logger:       logger.With().Str("component", "student_dashboard_service").Logger(),
		now:          time.Now,
	}
}

func dashboardCacheKey(studentID uint) string {
	return fmt.Sprintf("dashboard:student:%d", studentID)
}

func (s *studentDashboardService) GetDashboard(ctx context.Context, studentID uint) (dto.StudentDashboardResponse, error) {
	cacheKey := dashboardCacheKey(studentID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.StudentDashboardResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("student_id", studentID).Msg("dashboard cache hit")
				response.CacheHit = true
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read dashboard cache")
		}
	}

	apps, _, err := s.applications.List(ctx, repository.ApplicationFilter{StudentID: &studentID})
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}
	counts, err := s.applications.CountByStatus(ctx, studentID)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	response := s.buildResponse(studentID, lifecycle.ByStudent(apps, studentID), counts)

	if s.cache != nil {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store dashboard cache")
			}
		}
	}

	return response, nil
}

func (s *studentDashboardService) Invalidate(ctx context.Context, studentID uint) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, dashboardCacheKey(studentID)).Err()
}

func (s *studentDashboardService) buildResponse(studentID uint, apps []models.Application, counts map[string]int64) dto.StudentDashboardResponse {
	now := s.now().UTC()

	statusCounts := make(map[string]int, len(lifecycle.Statuses))
	total := 0
	for _, status := range lifecycle.Statuses {
		statusCounts[status] = int(counts[status])
		total += int(counts[status])
	}

	summaries := make([]dto.ApplicationSummary, 0, len(apps))
	upcoming := make([]dto.ApplicationSummary, 0)
	activity := make([]dto.DashboardActivity, 0)

	for _, app := range apps {
		summary := s.summarize(app)
		summaries = append(summaries, summary)

		if app.Status == models.ApplicationStatusInterviewScheduled && app.InterviewDate != nil && app.InterviewDate.After(now) {
			upcoming = append(upcoming, summary)
		}
		for _, entry := range app.StatusHistory {
			activity = append(activity, dto.DashboardActivity{
				ApplicationID: app.ID,
				ProgramName:   summary.ProgramName,
				Status:        entry.Status,
				Actor:         entry.Actor,
				Timestamp:     entry.Timestamp,
				Note:          entry.Note,
			})
		}
	}

	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].InterviewDate.Before(*upcoming[j].InterviewDate)
	})
	sort.SliceStable(activity, func(i, j int) bool {
		return activity[i].Timestamp.After(activity[j].Timestamp)
	})
	if len(activity) > dashboardRecentActivityLimit {
		activity = activity[:dashboardRecentActivityLimit]
	}

	return dto.StudentDashboardResponse{
		StudentID:          studentID,
		Total:              total,
		StatusCounts:       statusCounts,
		Applications:       summaries,
		RecentActivity:     activity,
		UpcomingInterviews: upcoming,
		GeneratedAt:        now,
	}
}

func (s *studentDashboardService) summarize(app models.Application) dto.ApplicationSummary {
	summary := dto.ApplicationSummary{
		ID:            app.ID,
		InstitutionID: app.InstitutionID,
		ProgramID:     app.ProgramID,
		Status:        app.Status,
		SubmittedAt:   app.SubmittedAt,
		LastUpdated:   app.LastUpdated,
		InterviewDate: app.InterviewDate,
		DecisionDate:  app.DecisionDate,
	}
	if s.catalog != nil {
		if institution, ok := s.catalog.Institution(app.InstitutionID); ok {
			summary.InstitutionName = institution.Name
		}
		if program, ok := s.catalog.Program(app.ProgramID); ok {
			summary.ProgramName = program.Name
		}
	}
	return summary
}
