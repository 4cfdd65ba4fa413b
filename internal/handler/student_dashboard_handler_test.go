package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/globalpath-api/internal/dto"
	"github.com/noah-isme/globalpath-api/internal/handler"
)

type stubStudentDashboardService struct {
	response dto.StudentDashboardResponse
	err      error
	calls    int
	lastID   uint
}

func (s *stubStudentDashboardService) GetDashboard(_ context.Context, studentID uint) (dto.StudentDashboardResponse, error) {
	s.calls++
	s.lastID = studentID
	if s.err != nil {
		return dto.StudentDashboardResponse{}, s.err
	}
	return s.response, nil
}

func (s *stubStudentDashboardService) Invalidate(context.Context, uint) error { return nil }

func TestStudentDashboardHandler_Success(t *testing.T) {
	svc := &stubStudentDashboardService{response: dto.StudentDashboardResponse{
		StudentID:    33,
		Total:        2,
		StatusCounts: map[string]int{"draft": 1, "submitted": 1},
		CacheHit:     true,
	}}

	app := fiber.New()
	handler.NewStudentDashboardHandler(svc, zerolog.Nop()).Register(app.Group("/api/v1/student", asUser(33, "student")))

	resp, env := doJSON(t, app, http.MethodGet, "/api/v1/student/dashboard", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "dashboard retrieved", env.Message)

	var dashboard dto.StudentDashboardResponse
	require.NoError(t, json.Unmarshal(env.Data, &dashboard))
	require.Equal(t, 2, dashboard.Total)
	require.Equal(t, uint(33), svc.lastID)
	require.JSONEq(t, "true", string(env.Meta["cache_hit"]))
}

func TestStudentDashboardHandler_Unauthorized(t *testing.T) {
	svc := &stubStudentDashboardService{}
	app := fiber.New()
	handler.NewStudentDashboardHandler(svc, zerolog.Nop()).Register(app.Group("/api/v1/student"))

	resp, _ := doJSON(t, app, http.MethodGet, "/api/v1/student/dashboard", nil)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	require.Zero(t, svc.calls)
}

func TestStudentDashboardHandler_ServiceError(t *testing.T) {
	svc := &stubStudentDashboardService{err: errors.New("db down")}
	app := fiber.New()
	handler.NewStudentDashboardHandler(svc, zerolog.Nop()).Register(app.Group("/api/v1/student", asUser(33, "student")))

	resp, env := doJSON(t, app, http.MethodGet, "/api/v1/student/dashboard", nil)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	require.False(t, env.Success)
}
