package dto

import (
	"time"

	"github.com/noah-isme/globalpath-api/internal/lifecycle"
	"github.com/noah-isme/globalpath-api/internal/models"
)

// ApplicationCreateRequest starts a draft for one program.
type ApplicationCreateRequest struct {
	InstitutionID string `json:"institution_id" validate:"required,max=64"`
	ProgramID     string `json:"program_id" validate:"required,max=64"`
}

// ApplicationDocumentRequest references an uploaded document.
type ApplicationDocumentRequest struct {
	Name string `json:"name" validate:"required,max=255"`
	URL  string `json:"url" validate:"required,url,max=1024"`
	Kind string `json:"kind" validate:"omitempty,max=32"`
}

// ApplicationDraftUpdateRequest patches the applicant-owned draft fields.
type ApplicationDraftUpdateRequest struct {
	PersonalStatement *string                       `json:"personal_statement" validate:"omitempty,max=20000"`
	Documents         *[]ApplicationDocumentRequest `json:"documents" validate:"omitempty,max=20,dive"`
}

// ApplicationSubmitRequest carries the optional note for draft -> submitted.
type ApplicationSubmitRequest struct {
	Note string `json:"note" validate:"omitempty,max=2000"`
}

// InterviewRequest describes the interview being scheduled.
type InterviewRequest struct {
	Date     time.Time `json:"date" validate:"required"`
	Type     string    `json:"type" validate:"required,oneof=online phone in_person"`
	Link     string    `json:"link" validate:"omitempty,url,max=512"`
	Location string    `json:"location" validate:"omitempty,max=255"`
}

// ApplicationTransitionRequest asks for a status change.
type ApplicationTransitionRequest struct {
	Status             string            `json:"status" validate:"required,oneof=draft submitted under_review interview_scheduled accepted rejected waitlisted"`
	Note               string            `json:"note" validate:"omitempty,max=2000"`
	Interview          *InterviewRequest `json:"interview" validate:"omitempty"`
	ScholarshipOffered *string           `json:"scholarship_offered" validate:"omitempty,max=255"`
	CounselorNotes     *string           `json:"counselor_notes" validate:"omitempty,max=5000"`
	DecisionDate       *time.Time        `json:"decision_date"`
}

// ApplicationListRequest pages through the caller's visible applications.
type ApplicationListRequest struct {
	Page     int
	PageSize int
	Status   []string
}

// StatusHistoryEntry is the durable shape reviewer UIs render verbatim.
type StatusHistoryEntry struct {
	Status    string    `json:"status"`
	Actor     string    `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note,omitempty"`
}

// ApplicationResponse serializes an application with its full history.
type ApplicationResponse struct {
	ID                 uint                         `json:"id"`
	StudentID          uint                         `json:"student_id"`
	InstitutionID      string                       `json:"institution_id"`
	InstitutionName    string                       `json:"institution_name,omitempty"`
	ProgramID          string                       `json:"program_id"`
	ProgramName        string                       `json:"program_name,omitempty"`
	Status             string                       `json:"status"`
	PersonalStatement  string                       `json:"personal_statement"`
	Documents          []models.ApplicationDocument `json:"documents"`
	SubmittedAt        *time.Time                   `json:"submitted_at"`
	LastUpdated        time.Time                    `json:"last_updated"`
	InterviewDate      *time.Time                   `json:"interview_date,omitempty"`
	InterviewType      string                       `json:"interview_type,omitempty"`
	InterviewLink      string                       `json:"interview_link,omitempty"`
	InterviewLocation  string                       `json:"interview_location,omitempty"`
	DecisionDate       *time.Time                   `json:"decision_date,omitempty"`
	ScholarshipOffered string                       `json:"scholarship_offered,omitempty"`
	CounselorNotes     string                       `json:"counselor_notes,omitempty"`
	StatusHistory      []StatusHistoryEntry         `json:"status_history"`
	AllowedTransitions []string                     `json:"allowed_transitions"`
}

// ApplicationListResponse wraps a page of applications.
type ApplicationListResponse struct {
	Items      []ApplicationResponse `json:"items"`
	Pagination PaginationMeta        `json:"pagination"`
}

// NewApplicationResponse converts an application model into its DTO.
func NewApplicationResponse(app models.Application) ApplicationResponse {
	history := make([]StatusHistoryEntry, 0, len(app.StatusHistory))
	for _, entry := range app.StatusHistory {
		history = append(history, StatusHistoryEntry{
			Status:    entry.Status,
			Actor:     entry.Actor,
			Timestamp: entry.Timestamp,
			Note:      entry.Note,
		})
	}

	documents := []models.ApplicationDocument(app.Documents)
	if documents == nil {
		documents = []models.ApplicationDocument{}
	}

	return ApplicationResponse{
		ID:                 app.ID,
		StudentID:          app.StudentID,
		InstitutionID:      app.InstitutionID,
		ProgramID:          app.ProgramID,
		Status:             app.Status,
		PersonalStatement:  app.PersonalStatement,
		Documents:          documents,
		SubmittedAt:        app.SubmittedAt,
		LastUpdated:        app.LastUpdated,
		InterviewDate:      app.InterviewDate,
		InterviewType:      app.InterviewType,
		InterviewLink:      app.InterviewLink,
		InterviewLocation:  app.InterviewLocation,
		DecisionDate:       app.DecisionDate,
		ScholarshipOffered: app.ScholarshipOffered,
		CounselorNotes:     app.CounselorNotes,
		StatusHistory:      history,
		AllowedTransitions: lifecycle.Targets(app.Status),
	}
}
