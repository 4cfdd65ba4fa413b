package dto

import "time"

// ApplicationSummary is one row of the applicant dashboard.
type ApplicationSummary struct {
	ID              uint       `json:"id"`
	InstitutionID   string     `json:"institution_id"`
	InstitutionName string     `json:"institution_name"`
	ProgramID       string     `json:"program_id"`
	ProgramName     string     `json:"program_name"`
	Status          string     `json:"status"`
	SubmittedAt     *time.Time `json:"submitted_at"`
	LastUpdated     time.Time  `json:"last_updated"`
	InterviewDate   *time.Time `json:"interview_date,omitempty"`
	DecisionDate    *time.Time `json:"decision_date,omitempty"`
}

// DashboardActivity is a recent status change shown in the applicant timeline.
type DashboardActivity struct {
	ApplicationID uint      `json:"application_id"`
	ProgramName   string    `json:"program_name"`
	Status        string    `json:"status"`
	Actor         string    `json:"actor"`
	Timestamp     time.Time `json:"timestamp"`
	Note          string    `json:"note,omitempty"`
}

// StudentDashboardResponse aggregates an applicant's pipeline.
type StudentDashboardResponse struct {
	StudentID          uint                 `json:"student_id"`
	Total              int                  `json:"total"`
	StatusCounts       map[string]int       `json:"status_counts"`
	Applications       []ApplicationSummary `json:"applications"`
	RecentActivity     []DashboardActivity  `json:"recent_activity"`
	UpcomingInterviews []ApplicationSummary `json:"upcoming_interviews"`
	GeneratedAt        time.Time            `json:"generated_at"`
	CacheHit           bool                 `json:"cache_hit"`
}

// ReviewerNotificationResponse is the reviewer badge state.
type ReviewerNotificationResponse struct {
	ReviewerID uint      `json:"reviewer_id"`
	NewCount   int       `json:"new_count"`
	Checkpoint time.Time `json:"checkpoint"`
	LastTick   time.Time `json:"last_tick"`
	Stale      bool      `json:"stale"`
}
