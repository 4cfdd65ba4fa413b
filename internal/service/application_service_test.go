package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/globalpath-api/internal/dto"
	"github.com/noah-isme/globalpath-api/internal/lifecycle"
	"github.com/noah-isme/globalpath-api/internal/models"
	"github.com/noah-isme/globalpath-api/internal/repository"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []TransitionEvent
	err    error
}

func (r *recordingPublisher) PublishTransition(_ context.Context, event TransitionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

type recordingInvalidator struct {
	students []uint
}

func (r *recordingInvalidator) Invalidate(_ context.Context, studentID uint) error {
	r.students = append(r.students, studentID)
	return nil
}

type applicationFixture struct {
	db         *gorm.DB
	svc        *applicationService
	repo       repository.ApplicationRepository
	events     *recordingPublisher
	dashboards *recordingInvalidator
	clock      time.Time
}

var (
	student  = lifecycle.Actor{ID: 7, Role: lifecycle.RoleStudent}
	stranger = lifecycle.Actor{ID: 8, Role: lifecycle.RoleStudent}
	reviewer = lifecycle.Actor{ID: 2, Role: lifecycle.RoleReviewer, Name: "Counselor Dana"}
)

func newApplicationFixture(t *testing.T) *applicationFixture {
	t.Helper()
	db := setupServiceDB(t, &models.Application{}, &models.ApplicationStatusEntry{}, &models.ActivityLog{})
	store, _ := newCatalogFixture(t)

	f := &applicationFixture{
		db:         db,
		repo:       repository.NewApplicationRepository(db),
		events:     &recordingPublisher{},
		dashboards: &recordingInvalidator{},
		clock:      time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	f.svc = NewApplicationService(ApplicationServiceDeps{
		Repo:       f.repo,
		Catalog:    store,
		Machine:    lifecycle.NewMachine(lifecycle.DefaultRules()),
		Validator:  validator.New(),
		Events:     f.events,
		Dashboards: f.dashboards,
		Logger:     testLogger(),
	}).(*applicationService)
	f.svc.now = func() time.Time {
		f.clock = f.clock.Add(time.Minute)
		return f.clock
	}
	return f
}

func statementOf(length int) string {
	return strings.Repeat("a", length)
}

func (f *applicationFixture) draft(t *testing.T, statement string) dto.ApplicationResponse {
	t.Helper()
	ctx := context.Background()
	created, err := f.svc.Create(ctx, student, dto.ApplicationCreateRequest{InstitutionID: "tum", ProgramID: "tum-msc-informatics"})
	require.NoError(t, err)
	_, err = f.svc.UpdateDraft(ctx, student, created.ID, dto.ApplicationDraftUpdateRequest{PersonalStatement: &statement})
	require.NoError(t, err)
	return created
}

func TestApplicationServiceCreateValidatesCatalogReferences(t *testing.T) {
	f := newApplicationFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, student, dto.ApplicationCreateRequest{InstitutionID: "mit", ProgramID: "tum-msc-informatics"})
	require.ErrorIs(t, err, ErrCatalogReference)

	_, err = f.svc.Create(ctx, student, dto.ApplicationCreateRequest{InstitutionID: "tum", ProgramID: "sorbonne-ba-history"})
	require.ErrorIs(t, err, ErrCatalogReference)

	_, err = f.svc.Create(ctx, reviewer, dto.ApplicationCreateRequest{InstitutionID: "tum", ProgramID: "tum-msc-informatics"})
	require.ErrorIs(t, err, ErrApplicationForbidden)

	created, err := f.svc.Create(ctx, student, dto.ApplicationCreateRequest{InstitutionID: "tum", ProgramID: "tum-msc-informatics"})
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusDraft, created.Status)
	require.Nil(t, created.SubmittedAt)
	require.Empty(t, created.StatusHistory)
	require.Equal(t, "Technical University of Munich", created.InstitutionName)
	require.Equal(t, "MSc Informatics", created.ProgramName)
	require.Equal(t, []string{models.ApplicationStatusSubmitted}, created.AllowedTransitions)
	require.Equal(t, []uint{7}, f.dashboards.students)
}

func TestApplicationServiceSubmitEnforcesStatementLength(t *testing.T) {
	f := newApplicationFixture(t)
	ctx := context.Background()
	created := f.draft(t, statementOf(50))

	_, err := f.svc.Submit(ctx, student, created.ID, dto.ApplicationSubmitRequest{})
	require.ErrorIs(t, err, lifecycle.ErrValidation)
	var validationErr *lifecycle.ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Equal(t, "personal_statement", validationErr.Field)

	stored, err := f.repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusDraft, stored.Status)
	require.Empty(t, stored.StatusHistory)
	require.Empty(t, f.events.events)

	statement := statementOf(150)
	_, err = f.svc.UpdateDraft(ctx, student, created.ID, dto.ApplicationDraftUpdateRequest{PersonalStatement: &statement})
	require.NoError(t, err)

	submitted, err := f.svc.Submit(ctx, student, created.ID, dto.ApplicationSubmitRequest{Note: "Ready for review"})
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusSubmitted, submitted.Status)
	require.NotNil(t, submitted.SubmittedAt)
	require.Len(t, submitted.StatusHistory, 1)
	require.Equal(t, "student:7", submitted.StatusHistory[0].Actor)
	require.Equal(t, "Ready for review", submitted.StatusHistory[0].Note)

	stored, err = f.repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusSubmitted, stored.Status)
	require.Len(t, stored.StatusHistory, 1)

	require.Len(t, f.events.events, 1)
	require.Equal(t, models.ApplicationStatusDraft, f.events.events[0].From)
	require.Equal(t, models.ApplicationStatusSubmitted, f.events.events[0].To)
}

func TestApplicationServiceRejectsInvalidTransitionWithoutWriting(t *testing.T) {
	f := newApplicationFixture(t)
	ctx := context.Background()
	created := f.draft(t, statementOf(150))

	_, err := f.svc.Submit(ctx, student, created.ID, dto.ApplicationSubmitRequest{})
	require.NoError(t, err)
	_, err = f.svc.Transition(ctx, reviewer, created.ID, dto.ApplicationTransitionRequest{Status: models.ApplicationStatusUnderReview})
	require.NoError(t, err)

	before, err := f.repo.GetByID(ctx, created.ID)
	require.NoError(t, err)

	_, err = f.svc.Transition(ctx, reviewer, created.ID, dto.ApplicationTransitionRequest{Status: models.ApplicationStatusDraft})
	require.ErrorIs(t, err, lifecycle.ErrInvalidTransition)

	after, err := f.repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusUnderReview, after.Status)
	require.Equal(t, before.StatusHistory, after.StatusHistory)
	require.Equal(t, before.LastUpdated, after.LastUpdated)
	require.Len(t, f.events.events, 2)
}

func TestApplicationServiceEnforcesActors(t *testing.T) {
	f := newApplicationFixture(t)
	ctx := context.Background()
	created := f.draft(t, statementOf(150))

	_, err := f.svc.Submit(ctx, stranger, created.ID, dto.ApplicationSubmitRequest{})
	require.ErrorIs(t, err, ErrApplicationForbidden)

	_, err = f.svc.Get(ctx, stranger, created.ID)
	require.ErrorIs(t, err, ErrApplicationForbidden)

	_, err = f.svc.Get(ctx, reviewer, created.ID)
	require.ErrorIs(t, err, ErrApplicationForbidden, "reviewers do not see drafts")

	_, err = f.svc.Submit(ctx, student, created.ID, dto.ApplicationSubmitRequest{})
	require.NoError(t, err)

	_, err = f.svc.Transition(ctx, student, created.ID, dto.ApplicationTransitionRequest{Status: models.ApplicationStatusUnderReview})
	require.ErrorIs(t, err, lifecycle.ErrNotPermitted)

	statement := statementOf(200)
	_, err = f.svc.UpdateDraft(ctx, student, created.ID, dto.ApplicationDraftUpdateRequest{PersonalStatement: &statement})
	require.ErrorIs(t, err, ErrApplicationNotEditable)

	_, err = f.svc.Get(ctx, student, 999)
	require.ErrorIs(t, err, ErrApplicationNotFound)
}

func TestApplicationServiceInterviewAndDecision(t *testing.T) {
	f := newApplicationFixture(t)
	ctx := context.Background()
	created := f.draft(t, statementOf(150))

	_, err := f.svc.Submit(ctx, student, created.ID, dto.ApplicationSubmitRequest{})
	require.NoError(t, err)
	_, err = f.svc.Transition(ctx, reviewer, created.ID, dto.ApplicationTransitionRequest{Status: models.ApplicationStatusUnderReview})
	require.NoError(t, err)

	interviewAt := time.Date(2026, 4, 2, 14, 0, 0, 0, time.UTC)
	_, err = f.svc.Transition(ctx, reviewer, created.ID, dto.ApplicationTransitionRequest{
		Status:    models.ApplicationStatusInterviewScheduled,
		Interview: &dto.InterviewRequest{Date: interviewAt, Type: models.InterviewTypeOnline},
	})
	require.ErrorIs(t, err, lifecycle.ErrValidation)

	scheduled, err := f.svc.Transition(ctx, reviewer, created.ID, dto.ApplicationTransitionRequest{
		Status:    models.ApplicationStatusInterviewScheduled,
		Note:      "Panel interview",
		Interview: &dto.InterviewRequest{Date: interviewAt, Type: models.InterviewTypeOnline, Link: "https://meet.example.com/tum-7"},
	})
	require.NoError(t, err)
	require.Equal(t, interviewAt, scheduled.InterviewDate.UTC())
	require.Equal(t, "https://meet.example.com/tum-7", scheduled.InterviewLink)

	scholarship := "50% tuition waiver"
	accepted, err := f.svc.Transition(ctx, reviewer, created.ID, dto.ApplicationTransitionRequest{
		Status:             models.ApplicationStatusAccepted,
		ScholarshipOffered: &scholarship,
	})
	require.NoError(t, err)
	require.NotNil(t, accepted.DecisionDate)
	require.Equal(t, scholarship, accepted.ScholarshipOffered)
	require.Len(t, accepted.StatusHistory, 4)
	require.Equal(t, "Counselor Dana", accepted.StatusHistory[3].Actor)
	require.Empty(t, accepted.AllowedTransitions)

	for i := 1; i < len(accepted.StatusHistory); i++ {
		require.False(t, accepted.StatusHistory[i].Timestamp.Before(accepted.StatusHistory[i-1].Timestamp))
	}
}

func TestApplicationServiceListForActor(t *testing.T) {
	f := newApplicationFixture(t)
	ctx := context.Background()

	first := f.draft(t, statementOf(150))
	f.draft(t, statementOf(150))
	_, err := f.svc.Submit(ctx, student, first.ID, dto.ApplicationSubmitRequest{})
	require.NoError(t, err)

	mine, err := f.svc.ListFor(ctx, student, dto.ApplicationListRequest{})
	require.NoError(t, err)
	require.Len(t, mine.Items, 2)

	others, err := f.svc.ListFor(ctx, stranger, dto.ApplicationListRequest{})
	require.NoError(t, err)
	require.Empty(t, others.Items)

	queue, err := f.svc.ListFor(ctx, reviewer, dto.ApplicationListRequest{})
	require.NoError(t, err)
	require.Len(t, queue.Items, 1)
	require.Equal(t, first.ID, queue.Items[0].ID)

	_, err = f.svc.ListFor(ctx, reviewer, dto.ApplicationListRequest{Status: []string{"archived"}})
	require.ErrorIs(t, err, lifecycle.ErrValidation)

	_, err = f.svc.ListFor(ctx, lifecycle.Actor{Role: "guest"}, dto.ApplicationListRequest{})
	require.ErrorIs(t, err, ErrApplicationForbidden)

	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fresh, err := f.svc.SubmittedSince(ctx, since)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
}

func TestApplicationServiceTransitionWritesAuditRow(t *testing.T) {
	f := newApplicationFixture(t)
	ctx := context.Background()
	created := f.draft(t, statementOf(150))

	_, err := f.svc.Submit(ctx, student, created.ID, dto.ApplicationSubmitRequest{})
	require.NoError(t, err)

	entries, total, err := repository.NewActivityLogRepository(f.db).List(ctx, repository.ActivityLogFilter{Action: ActionApplicationTransitioned})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, models.ApplicationStatusDraft, entries[0].Metadata["from"])
	require.Equal(t, models.ApplicationStatusSubmitted, entries[0].Metadata["to"])
}

type unavailableTransitionRepo struct {
	repository.ApplicationRepository
}

func (unavailableTransitionRepo) SaveTransition(context.Context, repository.ApplicationTransition) error {
	return errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")
}

func TestApplicationServiceWrapsStorageFailuresForRetry(t *testing.T) {
	f := newApplicationFixture(t)
	ctx := context.Background()
	created := f.draft(t, statementOf(150))
	_, err := f.svc.Submit(ctx, student, created.ID, dto.ApplicationSubmitRequest{})
	require.NoError(t, err)

	f.svc.repo = unavailableTransitionRepo{ApplicationRepository: f.repo}
	_, err = f.svc.Transition(ctx, reviewer, created.ID, dto.ApplicationTransitionRequest{Status: models.ApplicationStatusUnderReview})
	require.ErrorIs(t, err, ErrPersistence)
	require.Contains(t, err.Error(), "connection refused")

	stored, err := f.repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusSubmitted, stored.Status)
	require.Len(t, f.events.events, 1)

	require.ErrorIs(t, persistenceError(repository.ErrApplicationConflict), repository.ErrApplicationConflict)
	require.NotErrorIs(t, persistenceError(repository.ErrApplicationConflict), ErrPersistence)
}
