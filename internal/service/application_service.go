package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/globalpath-api/internal/dto"
	"github.com/noah-isme/globalpath-api/internal/lifecycle"
	"github.com/noah-isme/globalpath-api/internal/models"
	"github.com/noah-isme/globalpath-api/internal/observability"
	"github.com/noah-isme/globalpath-api/internal/repository"
)

var (
	// ErrApplicationNotFound indicates the application id does not exist.
	ErrApplicationNotFound = errors.New("application not found")
	// ErrApplicationForbidden indicates the actor may not see or change the application.
	ErrApplicationForbidden = errors.New("application access denied")
	// ErrApplicationNotEditable indicates the draft fields were edited after submission.
	ErrApplicationNotEditable = errors.New("only draft applications can be edited")
	// ErrCatalogReference indicates the institution/program pair does not exist in the catalog.
	ErrCatalogReference = errors.New("unknown institution or program")
	// ErrPersistence wraps storage failures on the write path. Nothing was applied; the caller may retry.
	ErrPersistence = errors.New("application storage unavailable")
)

// CatalogLookup resolves the catalog entries an application points at.
type CatalogLookup interface {
	Institution(id string) (models.Institution, bool)
	Program(id string) (models.Program, bool)
}

// DashboardInvalidator drops cached applicant dashboards.
type DashboardInvalidator interface {
	Invalidate(ctx context.Context, studentID uint) error
}

// ApplicationService drives applications through the review pipeline.
type ApplicationService interface {
	Create(ctx context.Context, actor lifecycle.Actor, req dto.ApplicationCreateRequest) (dto.ApplicationResponse, error)
	UpdateDraft(ctx context.Context, actor lifecycle.Actor, id uint, req dto.ApplicationDraftUpdateRequest) (dto.ApplicationResponse, error)
	Submit(ctx context.Context, actor lifecycle.Actor, id uint, req dto.ApplicationSubmitRequest) (dto.ApplicationResponse, error)
	Transition(ctx context.Context, actor lifecycle.Actor, id uint, req dto.ApplicationTransitionRequest) (dto.ApplicationResponse, error)
	Get(ctx context.Context, actor lifecycle.Actor, id uint) (dto.ApplicationResponse, error)
	ListFor(ctx context.Context, actor lifecycle.Actor, req dto.ApplicationListRequest) (dto.ApplicationListResponse, error)
	SubmittedSince(ctx context.Context, since time.Time) ([]models.Application, error)
}

// ApplicationServiceDeps bundles the collaborators of the application service.
type ApplicationServiceDeps struct {
	Repo       repository.ApplicationRepository
	Catalog    CatalogLookup
	Machine    lifecycle.Machine
	Validator  *validator.Validate
	Events     EventPublisher
	Dashboards DashboardInvalidator
	Logger     zerolog.Logger
}

type applicationService struct {
	repo       repository.ApplicationRepository
	catalog    CatalogLookup
	machine    lifecycle.Machine
	validator  *validator.Validate
	sanitizer  *bluemonday.Policy
	events     EventPublisher
	dashboards DashboardInvalidator
	logger     zerolog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// NewApplicationService wires the lifecycle state machine to persistence.
func NewApplicationService(deps ApplicationServiceDeps) ApplicationService {
	validate := deps.Validator
	if validate == nil {
		validate = validator.New()
	}
	return &applicationService{
		repo:       deps.Repo,
		catalog:    deps.Catalog,
		machine:    deps.Machine,
		validator:  validate,
		sanitizer:  bluemonday.StrictPolicy(),
		events:     deps.Events,
		dashboards: deps.Dashboards,
		logger:     deps.Logger.With().Str("component", "application_service").Logger(),
		tracer:     otel.Tracer("github.com/noah-isme/globalpath-api/internal/service/application"),
		now:        time.Now,
	}
}

func (s *applicationService) Create(ctx context.Context, actor lifecycle.Actor, req dto.ApplicationCreateRequest) (dto.ApplicationResponse, error) {
	if actor.Role != lifecycle.RoleStudent || actor.ID == 0 {
		return dto.ApplicationResponse{}, ErrApplicationForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.ApplicationResponse{}, err
	}

	institutionID := strings.TrimSpace(req.InstitutionID)
	programID := strings.TrimSpace(req.ProgramID)
	if _, ok := s.catalog.Institution(institutionID); !ok {
		return dto.ApplicationResponse{}, fmt.Errorf("%w: institution %q", ErrCatalogReference, institutionID)
	}
	program, ok := s.catalog.Program(programID)
	if !ok {
		return dto.ApplicationResponse{}, fmt.Errorf("%w: program %q", ErrCatalogReference, programID)
	}
	if program.InstitutionID != institutionID {
		return dto.ApplicationResponse{}, fmt.Errorf("%w: program %q is not offered by %q", ErrCatalogReference, programID, institutionID)
	}

	app := lifecycle.NewDraft(actor.ID, institutionID, programID, s.now().UTC())
	if err := s.repo.Create(ctx, &app); err != nil {
		return dto.ApplicationResponse{}, persistenceError(err)
	}

	s.logger.Info().Uint("application_id", app.ID).Uint("student_id", actor.ID).Str("program_id", programID).Msg("application draft created")
	s.invalidate(ctx, actor.ID)
	return s.response(app), nil
}

func (s *applicationService) UpdateDraft(ctx context.Context, actor lifecycle.Actor, id uint, req dto.ApplicationDraftUpdateRequest) (dto.ApplicationResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ApplicationResponse{}, err
	}

	app, err := s.load(ctx, id)
	if err != nil {
		return dto.ApplicationResponse{}, err
	}
	if actor.Role != lifecycle.RoleStudent || app.StudentID != actor.ID {
		return dto.ApplicationResponse{}, ErrApplicationForbidden
	}
	if !app.IsDraft() {
		return dto.ApplicationResponse{}, ErrApplicationNotEditable
	}

	if req.PersonalStatement != nil {
		statement := strings.TrimSpace(s.sanitizer.Sanitize(*req.PersonalStatement))
		if limit := s.machine.Rules().MaxStatementLength; utf8.RuneCountInString(statement) > limit {
			return dto.ApplicationResponse{}, &lifecycle.ValidationError{Field: "personal_statement", Message: fmt.Sprintf("must be at most %d characters", limit)}
		}
		app.PersonalStatement = statement
	}
	now := s.now().UTC()
	if req.Documents != nil {
		documents := make([]models.ApplicationDocument, 0, len(*req.Documents))
		for _, doc := range *req.Documents {
			documents = append(documents, models.ApplicationDocument{
				Name:       strings.TrimSpace(doc.Name),
				URL:        strings.TrimSpace(doc.URL),
				Kind:       strings.TrimSpace(doc.Kind),
				UploadedAt: now,
			})
		}
		app.Documents = datatypes.NewJSONSlice(documents)
	}
	if now.After(app.LastUpdated) {
		app.LastUpdated = now
	}

	if err := s.repo.UpdateDraft(ctx, &app); err != nil {
		if errors.Is(err, repository.ErrApplicationConflict) {
			return dto.ApplicationResponse{}, ErrApplicationNotEditable
		}
		return dto.ApplicationResponse{}, persistenceError(err)
	}
	s.invalidate(ctx, app.StudentID)
	return s.response(app), nil
}

func (s *applicationService) Submit(ctx context.Context, actor lifecycle.Actor, id uint, req dto.ApplicationSubmitRequest) (dto.ApplicationResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ApplicationResponse{}, err
	}
	return s.apply(ctx, id, lifecycle.Request{
		Target: models.ApplicationStatusSubmitted,
		Actor:  actor,
		Note:   s.clean(req.Note),
	})
}

func (s *applicationService) Transition(ctx context.Context, actor lifecycle.Actor, id uint, req dto.ApplicationTransitionRequest) (dto.ApplicationResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ApplicationResponse{}, err
	}

	extra := lifecycle.Extra{DecisionDate: req.DecisionDate}
	if req.Interview != nil {
		extra.Interview = &lifecycle.Interview{
			Date:     req.Interview.Date,
			Type:     req.Interview.Type,
			Link:     req.Interview.Link,
			Location: s.clean(req.Interview.Location),
		}
	}
	if req.ScholarshipOffered != nil {
		value := s.clean(*req.ScholarshipOffered)
		extra.ScholarshipOffered = &value
	}
	if req.CounselorNotes != nil {
		value := s.clean(*req.CounselorNotes)
		extra.CounselorNotes = &value
	}

	return s.apply(ctx, id, lifecycle.Request{
		Target: req.Status,
		Actor:  actor,
		Note:   s.clean(req.Note),
		Extra:  extra,
	})
}

// apply runs one state machine step and persists it. Nothing is written unless the machine accepts
// the request, and the status row, history entry and audit row are written in one transaction.
func (s *applicationService) apply(ctx context.Context, id uint, req lifecycle.Request) (dto.ApplicationResponse, error) {
	attrs := []attribute.KeyValue{
		attribute.Int64("application.id", int64(id)),
		attribute.String("application.target", req.Target),
		attribute.String("actor.role", req.Actor.Role),
	}
	ctx, span := s.tracer.Start(ctx, "application.transition", trace.WithAttributes(attrs...))
	defer span.End()

	app, err := s.load(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return dto.ApplicationResponse{}, err
	}
	if req.Actor.Role == lifecycle.RoleStudent && app.StudentID != req.Actor.ID {
		span.SetStatus(codes.Error, "forbidden")
		return dto.ApplicationResponse{}, ErrApplicationForbidden
	}

	req.At = s.now().UTC()
	next, err := s.machine.Transition(app, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rejected")
		return dto.ApplicationResponse{}, err
	}

	entry, _ := next.LastHistoryEntry()
	activity, err := newActivityLog(ActivityEntry{
		ActorID:    req.Actor.ID,
		ActorRole:  req.Actor.Role,
		Action:     ActionApplicationTransitioned,
		EntityType: "application",
		EntityID:   strconv.FormatUint(uint64(app.ID), 10),
		Metadata:   map[string]interface{}{"from": app.Status, "to": next.Status},
	})
	if err != nil {
		return dto.ApplicationResponse{}, err
	}

	if err := s.repo.SaveTransition(ctx, repository.ApplicationTransition{
		Application:    &next,
		ExpectedStatus: app.Status,
		Entry:          entry,
		Activity:       &activity,
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ApplicationResponse{}, ErrApplicationNotFound
		}
		return dto.ApplicationResponse{}, persistenceError(err)
	}

	observability.ApplicationTransitions().WithLabelValues(app.Status, next.Status).Inc()
	s.logger.Info().
		Uint("application_id", app.ID).
		Str("from", app.Status).
		Str("to", next.Status).
		Str("actor", entry.Actor).
		Msg("application transitioned")

	if s.events != nil {
		event := TransitionEvent{
			ApplicationID: app.ID,
			StudentID:     app.StudentID,
			From:          app.Status,
			To:            next.Status,
			Actor:         entry.Actor,
			At:            entry.Timestamp,
		}
		if err := s.events.PublishTransition(ctx, event); err != nil {
			s.logger.Warn().Err(err).Uint("application_id", app.ID).Msg("failed to publish transition event")
		}
	}
	s.invalidate(ctx, app.StudentID)

	span.SetStatus(codes.Ok, "applied")
	return s.response(next), nil
}

func (s *applicationService) Get(ctx context.Context, actor lifecycle.Actor, id uint) (dto.ApplicationResponse, error) {
	app, err := s.load(ctx, id)
	if err != nil {
		return dto.ApplicationResponse{}, err
	}
	if !canView(actor, app) {
		return dto.ApplicationResponse{}, ErrApplicationForbidden
	}
	return s.response(app), nil
}

// ListFor returns the applicant's own applications for students and the whole non-draft pipeline for
// reviewers. There is no per-reviewer assignment.
func (s *applicationService) ListFor(ctx context.Context, actor lifecycle.Actor, req dto.ApplicationListRequest) (dto.ApplicationListResponse, error) {
	filter := repository.ApplicationFilter{Page: req.Page, PageSize: req.PageSize}
	for _, status := range req.Status {
		if !lifecycle.IsKnownStatus(status) {
			return dto.ApplicationListResponse{}, &lifecycle.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", status)}
		}
		filter.Statuses = append(filter.Statuses, status)
	}

	switch {
	case actor.IsReviewer():
		filter.ExcludeDraft = true
	case actor.Role == lifecycle.RoleStudent && actor.ID != 0:
		filter.StudentID = &actor.ID
	default:
		return dto.ApplicationListResponse{}, ErrApplicationForbidden
	}

	apps, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.ApplicationListResponse{}, err
	}

	items := make([]dto.ApplicationResponse, 0, len(apps))
	for _, app := range apps {
		items = append(items, s.response(app))
	}
	return dto.ApplicationListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(req.Page, req.PageSize, total),
	}, nil
}

// SubmittedSince feeds reviewer change notifiers.
func (s *applicationService) SubmittedSince(ctx context.Context, since time.Time) ([]models.Application, error) {
	apps, _, err := s.repo.List(ctx, repository.ApplicationFilter{ExcludeDraft: true, SubmittedAfter: &since})
	if err != nil {
		return nil, err
	}
	return lifecycle.ByCounselor(apps), nil
}

func (s *applicationService) load(ctx context.Context, id uint) (models.Application, error) {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Application{}, ErrApplicationNotFound
		}
		return models.Application{}, persistenceError(err)
	}
	return app, nil
}

func persistenceError(err error) error {
	if errors.Is(err, repository.ErrApplicationConflict) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}

func (s *applicationService) response(app models.Application) dto.ApplicationResponse {
	resp := dto.NewApplicationResponse(app)
	if s.catalog != nil {
		if institution, ok := s.catalog.Institution(app.InstitutionID); ok {
			resp.InstitutionName = institution.Name
		}
		if program, ok := s.catalog.Program(app.ProgramID); ok {
			resp.ProgramName = program.Name
		}
	}
	return resp
}

func (s *applicationService) invalidate(ctx context.Context, studentID uint) {
	if s.dashboards == nil {
		return
	}
	if err := s.dashboards.Invalidate(ctx, studentID); err != nil {
		s.logger.Warn().Err(err).Uint("student_id", studentID).Msg("failed to invalidate dashboard cache")
	}
}

func (s *applicationService) clean(value string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(value))
}

func canView(actor lifecycle.Actor, app models.Application) bool {
	if actor.IsReviewer() {
		return !app.IsDraft()
	}
	return actor.Role == lifecycle.RoleStudent && actor.ID == app.StudentID
}
