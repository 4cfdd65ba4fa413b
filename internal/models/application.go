package models

import (
	"time"

	"gorm.io/datatypes"
)

// Application statuses. The string values are persisted verbatim and rendered by reviewer UIs.
const (
	ApplicationStatusDraft              = "draft"
	ApplicationStatusSubmitted          = "submitted"
	ApplicationStatusUnderReview        = "under_review"
	ApplicationStatusInterviewScheduled = "interview_scheduled"
	ApplicationStatusAccepted           = "accepted"
	ApplicationStatusRejected           = "rejected"
	ApplicationStatusWaitlisted         = "waitlisted"
)

// Interview formats.
const (
	InterviewTypeOnline   = "online"
	InterviewTypePhone    = "phone"
	InterviewTypeInPerson = "in_person"
)

// Application tracks one applicant's request to join one program at one institution.
type Application struct {
	ID                 uint                                     `gorm:"primaryKey" json:"id"`
	StudentID          uint                                     `gorm:"not null;index" json:"student_id"`
	InstitutionID      string                                   `gorm:"size:64;not null;index" json:"institution_id"`
	ProgramID          string                                   `gorm:"size:64;not null;index" json:"program_id"`
	Status             string                                   `gorm:"size:32;not null;index" json:"status"`
	PersonalStatement  string                                   `gorm:"type:text" json:"personal_statement"`
	Documents          datatypes.JSONSlice[ApplicationDocument] `json:"documents"`
	SubmittedAt        *time.Time                               `gorm:"index" json:"submitted_at"`
	LastUpdated        time.Time                                `gorm:"not null" json:"last_updated"`
	InterviewDate      *time.Time                               `json:"interview_date"`
	InterviewType      string                                   `gorm:"size:16" json:"interview_type"`
	InterviewLink      string                                   `gorm:"size:512" json:"interview_link"`
	InterviewLocation  string                                   `gorm:"size:255" json:"interview_location"`
	DecisionDate       *time.Time                               `json:"decision_date"`
	ScholarshipOffered string                                   `gorm:"size:255" json:"scholarship_offered"`
	CounselorNotes     string                                   `gorm:"type:text" json:"counselor_notes"`
	CreatedAt          time.Time                                `json:"created_at"`
	StatusHistory      []ApplicationStatusEntry                 `gorm:"constraint:OnDelete:CASCADE" json:"status_history"`
}

// ApplicationDocument references a file attached to an application. Storage of the file itself lives elsewhere.
type ApplicationDocument struct {
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Kind       string    `json:"kind"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// ApplicationStatusEntry is one append-only row of an application's status history.
type ApplicationStatusEntry struct {
	ID            uint      `gorm:"primaryKey" json:"-"`
	ApplicationID uint      `gorm:"not null;index:idx_history_app_seq,priority:1" json:"-"`
	Sequence      int       `gorm:"not null;index:idx_history_app_seq,priority:2" json:"-"`
	Status        string    `gorm:"size:32;not null" json:"status"`
	Actor         string    `gorm:"size:64;not null" json:"actor"`
	ActorRole     string    `gorm:"size:32" json:"actor_role"`
	Timestamp     time.Time `gorm:"not null" json:"timestamp"`
	Note          string    `gorm:"type:text" json:"note,omitempty"`
}

// IsDraft reports whether the application has not been submitted yet.
func (a Application) IsDraft() bool {
	return a.Status == ApplicationStatusDraft
}

// LastHistoryEntry returns the most recent history entry, if any.
func (a Application) LastHistoryEntry() (ApplicationStatusEntry, bool) {
	if len(a.StatusHistory) == 0 {
		return ApplicationStatusEntry{}, false
	}
	return a.StatusHistory[len(a.StatusHistory)-1], true
}
