package handler_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/globalpath-api/internal/dto"
	"github.com/noah-isme/globalpath-api/internal/handler"
	"github.com/noah-isme/globalpath-api/internal/lifecycle"
	"github.com/noah-isme/globalpath-api/internal/models"
	"github.com/noah-isme/globalpath-api/internal/repository"
	"github.com/noah-isme/globalpath-api/internal/service"
)

type stubApplicationService struct {
	err        error
	lastActor  lifecycle.Actor
	lastID     uint
	lastList   dto.ApplicationListRequest
	lastCreate dto.ApplicationCreateRequest
	lastMove   dto.ApplicationTransitionRequest
}

func (s *stubApplicationService) result(status string) (dto.ApplicationResponse, error) {
	if s.err != nil {
		return dto.ApplicationResponse{}, s.err
	}
	return dto.ApplicationResponse{ID: s.lastID, Status: status, AllowedTransitions: lifecycle.Targets(status)}, nil
}

func (s *stubApplicationService) Create(_ context.Context, actor lifecycle.Actor, req dto.ApplicationCreateRequest) (dto.ApplicationResponse, error) {
	s.lastActor, s.lastCreate = actor, req
	return s.result(models.ApplicationStatusDraft)
}

func (s *stubApplicationService) UpdateDraft(_ context.Context, actor lifecycle.Actor, id uint, _ dto.ApplicationDraftUpdateRequest) (dto.ApplicationResponse, error) {
	s.lastActor, s.lastID = actor, id
	return s.result(models.ApplicationStatusDraft)
}

func (s *stubApplicationService) Submit(_ context.Context, actor lifecycle.Actor, id uint, _ dto.ApplicationSubmitRequest) (dto.ApplicationResponse, error) {
	s.lastActor, s.lastID = actor, id
	return s.result(models.ApplicationStatusSubmitted)
}

func (s *stubApplicationService) Transition(_ context.Context, actor lifecycle.Actor, id uint, req dto.ApplicationTransitionRequest) (dto.ApplicationResponse, error) {
	s.lastActor, s.lastID, s.lastMove = actor, id, req
	return s.result(req.Status)
}

func (s *stubApplicationService) Get(_ context.Context, actor lifecycle.Actor, id uint) (dto.ApplicationResponse, error) {
	s.lastActor, s.lastID = actor, id
	return s.result(models.ApplicationStatusUnderReview)
}

func (s *stubApplicationService) ListFor(_ context.Context, actor lifecycle.Actor, req dto.ApplicationListRequest) (dto.ApplicationListResponse, error) {
	s.lastActor, s.lastList = actor, req
	if s.err != nil {
		return dto.ApplicationListResponse{}, s.err
	}
	return dto.ApplicationListResponse{
		Items:      []dto.ApplicationResponse{{ID: 1, Status: models.ApplicationStatusSubmitted}},
		Pagination: dto.NewPaginationMeta(1, 20, 1),
	}, nil
}

func (s *stubApplicationService) SubmittedSince(context.Context, time.Time) ([]models.Application, error) {
	return nil, nil
}

func newApplicationApp(svc service.ApplicationService, id uint, role string) *fiber.App {
	h := handler.NewApplicationHandler(svc, zerolog.Nop())
	app := fiber.New()
	h.Register(app.Group("/api/v1/applications", asUser(id, role)))
	h.RegisterReviewer(app.Group("/api/v1/reviewer", asUser(id, role)))
	return app
}

func TestApplicationHandlerCreateAndSubmit(t *testing.T) {
	svc := &stubApplicationService{}
	app := newApplicationApp(svc, 7, "student")

	resp, env := doJSON(t, app, http.MethodPost, "/api/v1/applications", dto.ApplicationCreateRequest{InstitutionID: "tum", ProgramID: "tum-msc-informatics"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.True(t, env.Success)
	require.Equal(t, uint(7), svc.lastActor.ID)
	require.Equal(t, lifecycle.RoleStudent, svc.lastActor.Role)
	require.Equal(t, "tum-msc-informatics", svc.lastCreate.ProgramID)

	resp, env = doJSON(t, app, http.MethodPost, "/api/v1/applications/12/submit", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(12), svc.lastID)
	require.Contains(t, string(env.Data), `"status":"submitted"`)
}

func TestApplicationHandlerListParsesFilters(t *testing.T) {
	svc := &stubApplicationService{}
	app := newApplicationApp(svc, 2, "reviewer")

	resp, env := doJSON(t, app, http.MethodGet, "/api/v1/reviewer/applications?status=submitted,%20under_review&page=2", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, []string{"submitted", "under_review"}, svc.lastList.Status)
	require.Equal(t, 2, svc.lastList.Page)
	require.Contains(t, env.Meta, "pagination")
}

func TestApplicationHandlerTransition(t *testing.T) {
	svc := &stubApplicationService{}
	app := newApplicationApp(svc, 2, "reviewer")

	payload := map[string]interface{}{
		"status": "interview_scheduled",
		"interview": map[string]interface{}{
			"date": "2026-04-01T10:00:00Z",
			"type": "online",
			"link": "https://meet.example.com/abc",
		},
	}
	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/reviewer/applications/5/transitions", payload)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(5), svc.lastID)
	require.NotNil(t, svc.lastMove.Interview)
	require.Equal(t, "online", svc.lastMove.Interview.Type)
}

func TestApplicationHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", service.ErrApplicationNotFound, fiber.StatusNotFound},
		{"forbidden", service.ErrApplicationForbidden, fiber.StatusForbidden},
		{"not permitted", lifecycle.ErrNotPermitted, fiber.StatusForbidden},
		{"invalid transition", &lifecycle.TransitionError{From: "under_review", To: "draft"}, fiber.StatusConflict},
		{"conflict", repository.ErrApplicationConflict, fiber.StatusConflict},
		{"validation", &lifecycle.ValidationError{Field: "personal_statement", Message: "too short"}, fiber.StatusUnprocessableEntity},
		{"catalog reference", service.ErrCatalogReference, fiber.StatusBadRequest},
		{"storage unavailable", fmt.Errorf("%w: %w", service.ErrPersistence, errors.New("dial tcp: connection refused")), fiber.StatusServiceUnavailable},
		{"deadline", context.DeadlineExceeded, fiber.StatusServiceUnavailable},
		{"network", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, fiber.StatusServiceUnavailable},
		{"unexpected", errors.New("nil map write"), fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubApplicationService{err: tc.err}
			app := newApplicationApp(svc, 2, "reviewer")

			resp, env := doJSON(t, app, http.MethodPost, "/api/v1/reviewer/applications/5/transitions", map[string]string{"status": "draft"})
			require.Equal(t, tc.status, resp.StatusCode)
			require.False(t, env.Success)
		})
	}
}

func TestApplicationHandlerValidationDetails(t *testing.T) {
	svc := &stubApplicationService{err: &lifecycle.ValidationError{Field: "personal_statement", Message: "must be at least 100 characters"}}
	app := newApplicationApp(svc, 7, "student")

	resp, env := doJSON(t, app, http.MethodPost, "/api/v1/applications/3/submit", nil)
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	require.Equal(t, "must be at least 100 characters", env.Details["personal_statement"])
}

func TestApplicationHandlerRejectsBadIDs(t *testing.T) {
	app := newApplicationApp(&stubApplicationService{}, 7, "student")

	resp, _ := doJSON(t, app, http.MethodGet, "/api/v1/applications/abc", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestApplicationHandlerStudentRoutesRejectReviewers(t *testing.T) {
	svc := &stubApplicationService{}
	app := newApplicationApp(svc, 2, "reviewer")

	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/applications", dto.ApplicationCreateRequest{InstitutionID: "tum", ProgramID: "tum-msc-informatics"})
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	require.Empty(t, svc.lastCreate.ProgramID)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/applications/4", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestApplicationHandlerStorageFailureAsksForRetry(t *testing.T) {
	svc := &stubApplicationService{err: fmt.Errorf("%w: %w", service.ErrPersistence, errors.New("dial tcp: connection refused"))}
	app := newApplicationApp(svc, 7, "student")

	resp, env := doJSON(t, app, http.MethodPost, "/api/v1/applications/3/submit", nil)
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	require.False(t, env.Success)
	require.Equal(t, "failed to submit application, please retry", env.Message)
}
