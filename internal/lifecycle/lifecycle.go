// Package lifecycle implements the application status state machine. Every function is pure: the
// input application is never modified and a rejected request leaves no trace.
package lifecycle

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/noah-isme/globalpath-api/internal/models"
)

// Actor roles recognised by the state machine.
const (
	RoleStudent  = "student"
	RoleReviewer = "reviewer"
	RoleAdmin    = "admin"
)

// Default personal statement bounds, in characters.
const (
	DefaultMinStatementLength = 100
	DefaultMaxStatementLength = 5000
)

// Actor is the party requesting a transition.
type Actor struct {
	ID   uint
	Role string
	Name string
}

// Label renders the actor as recorded in status history.
func (a Actor) Label() string {
	if name := strings.TrimSpace(a.Name); name != "" {
		return name
	}
	return a.Role + ":" + strconv.FormatUint(uint64(a.ID), 10)
}

// IsReviewer reports whether the actor may drive the review pipeline.
func (a Actor) IsReviewer() bool {
	return a.Role == RoleReviewer || a.Role == RoleAdmin
}

type initiator int

const (
	byApplicant initiator = iota
	byReviewer
)

var transitions = map[string]map[string]initiator{
	models.ApplicationStatusDraft: {
		models.ApplicationStatusSubmitted: byApplicant,
	},
	models.ApplicationStatusSubmitted: {
		models.ApplicationStatusUnderReview: byReviewer,
		models.ApplicationStatusWaitlisted:  byReviewer,
	},
	models.ApplicationStatusUnderReview: {
		models.ApplicationStatusInterviewScheduled: byReviewer,
		models.ApplicationStatusAccepted:           byReviewer,
		models.ApplicationStatusRejected:           byReviewer,
		models.ApplicationStatusWaitlisted:         byReviewer,
	},
	models.ApplicationStatusInterviewScheduled: {
		models.ApplicationStatusAccepted:   byReviewer,
		models.ApplicationStatusRejected:   byReviewer,
		models.ApplicationStatusWaitlisted: byReviewer,
	},
}

// Statuses lists every status in pipeline order.
var Statuses = []string{
	models.ApplicationStatusDraft,
	models.ApplicationStatusSubmitted,
	models.ApplicationStatusUnderReview,
	models.ApplicationStatusInterviewScheduled,
	models.ApplicationStatusAccepted,
	models.ApplicationStatusRejected,
	models.ApplicationStatusWaitlisted,
}

// IsKnownStatus reports whether status is one of the persisted status values.
func IsKnownStatus(status string) bool {
	return slices.Contains(Statuses, status)
}

// CanTransition reports whether from -> to is in the allowed table.
func CanTransition(from, to string) bool {
	_, ok := transitions[from][to]
	return ok
}

// Targets lists the statuses reachable from status in pipeline order.
func Targets(status string) []string {
	out := make([]string, 0)
	for _, candidate := range Statuses {
		if CanTransition(status, candidate) {
			out = append(out, candidate)
		}
	}
	return out
}

// IsTerminal reports whether no transition leaves status.
func IsTerminal(status string) bool {
	return IsKnownStatus(status) && len(transitions[status]) == 0
}

// Interview carries the scheduling details required when moving to interview_scheduled.
type Interview struct {
	Date     time.Time
	Type     string
	Link     string
	Location string
}

// Extra holds the optional side-channel metadata a reviewer may attach to a transition.
type Extra struct {
	Interview          *Interview
	ScholarshipOffered *string
	CounselorNotes     *string
	DecisionDate       *time.Time
}

// Request asks for application to move to Target.
type Request struct {
	Target string
	Actor  Actor
	Note   string
	Extra  Extra
	At     time.Time
}

// Rules holds the configurable validation bounds.
type Rules struct {
	MinStatementLength int
	MaxStatementLength int
}

// DefaultRules returns the standard statement bounds.
func DefaultRules() Rules {
	return Rules{MinStatementLength: DefaultMinStatementLength, MaxStatementLength: DefaultMaxStatementLength}
}

// Machine validates and applies transitions.
type Machine struct {
	rules Rules
}

// NewMachine builds a state machine; non-positive bounds fall back to the defaults.
func NewMachine(rules Rules) Machine {
	if rules.MinStatementLength <= 0 {
		rules.MinStatementLength = DefaultMinStatementLength
	}
	if rules.MaxStatementLength <= 0 {
		rules.MaxStatementLength = DefaultMaxStatementLength
	}
	return Machine{rules: rules}
}

// Rules returns the bounds in effect.
func (m Machine) Rules() Rules {
	return m.rules
}

// NewDraft creates the initial record for an applicant choosing a program.
func NewDraft(studentID uint, institutionID, programID string, at time.Time) models.Application {
	return models.Application{
		StudentID:     studentID,
		InstitutionID: institutionID,
		ProgramID:     programID,
		Status:        models.ApplicationStatusDraft,
		LastUpdated:   at,
		StatusHistory: []models.ApplicationStatusEntry{},
	}
}

// Transition validates req against app and returns the updated copy with exactly one new history
// entry. On error the returned application is the zero value and app is untouched.
func (m Machine) Transition(app models.Application, req Request) (models.Application, error) {
	who, ok := transitions[app.Status][req.Target]
	if !ok {
		return models.Application{}, &TransitionError{From: app.Status, To: req.Target}
	}

	switch who {
	case byApplicant:
		if req.Actor.Role != RoleStudent || req.Actor.ID != app.StudentID {
			return models.Application{}, fmt.Errorf("%w: only the owning applicant can %s", ErrNotPermitted, req.Target)
		}
	case byReviewer:
		if !req.Actor.IsReviewer() {
			return models.Application{}, fmt.Errorf("%w: %s requires a reviewer", ErrNotPermitted, req.Target)
		}
	}

	if err := m.validate(app, req); err != nil {
		return models.Application{}, err
	}

	at := req.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	if at.Before(app.LastUpdated) {
		at = app.LastUpdated
	}

	next := Clone(app)
	next.Status = req.Target
	next.LastUpdated = at
	next.StatusHistory = append(next.StatusHistory, models.ApplicationStatusEntry{
		ApplicationID: app.ID,
		Sequence:      len(app.StatusHistory) + 1,
		Status:        req.Target,
		Actor:         req.Actor.Label(),
		ActorRole:     req.Actor.Role,
		Timestamp:     at,
		Note:          strings.TrimSpace(req.Note),
	})

	switch req.Target {
	case models.ApplicationStatusSubmitted:
		next.SubmittedAt = timePtr(at)
	case models.ApplicationStatusInterviewScheduled:
		interview := req.Extra.Interview
		next.InterviewDate = timePtr(interview.Date)
		next.InterviewType = interview.Type
		next.InterviewLink = strings.TrimSpace(interview.Link)
		next.InterviewLocation = strings.TrimSpace(interview.Location)
	case models.ApplicationStatusAccepted, models.ApplicationStatusRejected:
		if req.Extra.DecisionDate != nil {
			next.DecisionDate = timePtr(*req.Extra.DecisionDate)
		} else {
			next.DecisionDate = timePtr(at)
		}
	}

	if req.Extra.ScholarshipOffered != nil {
		next.ScholarshipOffered = strings.TrimSpace(*req.Extra.ScholarshipOffered)
	}
	if req.Extra.CounselorNotes != nil {
		next.CounselorNotes = strings.TrimSpace(*req.Extra.CounselorNotes)
	}

	return next, nil
}

func (m Machine) validate(app models.Application, req Request) error {
	switch req.Target {
	case models.ApplicationStatusSubmitted:
		return m.ValidateStatement(app.PersonalStatement)
	case models.ApplicationStatusInterviewScheduled:
		return validateInterview(req.Extra.Interview)
	}
	return nil
}

// ValidateStatement enforces the personal statement bounds.
func (m Machine) ValidateStatement(statement string) error {
	length := utf8.RuneCountInString(strings.TrimSpace(statement))
	switch {
	case length == 0:
		return &ValidationError{Field: "personal_statement", Message: "is required"}
	case length < m.rules.MinStatementLength:
		return &ValidationError{Field: "personal_statement", Message: fmt.Sprintf("must be at least %d characters", m.rules.MinStatementLength)}
	case length > m.rules.MaxStatementLength:
		return &ValidationError{Field: "personal_statement", Message: fmt.Sprintf("must be at most %d characters", m.rules.MaxStatementLength)}
	}
	return nil
}

func validateInterview(interview *Interview) error {
	if interview == nil || interview.Date.IsZero() {
		return &ValidationError{Field: "interview.date", Message: "is required"}
	}
	switch interview.Type {
	case models.InterviewTypeOnline:
		link := strings.TrimSpace(interview.Link)
		if link == "" {
			return &ValidationError{Field: "interview.link", Message: "is required for online interviews"}
		}
		parsed, err := url.ParseRequestURI(link)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return &ValidationError{Field: "interview.link", Message: "must be an http(s) URL"}
		}
	case models.InterviewTypeInPerson:
		if strings.TrimSpace(interview.Location) == "" {
			return &ValidationError{Field: "interview.location", Message: "is required for in-person interviews"}
		}
	case models.InterviewTypePhone:
	default:
		return &ValidationError{Field: "interview.type", Message: "must be one of online, phone, in_person"}
	}
	return nil
}

// Clone deep-copies app so that the result shares no mutable state with it.
func Clone(app models.Application) models.Application {
	out := app
	out.StatusHistory = slices.Clone(app.StatusHistory)
	if app.Documents != nil {
		out.Documents = slices.Clone(app.Documents)
	}
	out.SubmittedAt = clonePtr(app.SubmittedAt)
	out.InterviewDate = clonePtr(app.InterviewDate)
	out.DecisionDate = clonePtr(app.DecisionDate)
	return out
}

// ByStudent returns the applications owned by studentID in input order.
func ByStudent(apps []models.Application, studentID uint) []models.Application {
	out := make([]models.Application, 0)
	for _, app := range apps {
		if app.StudentID == studentID {
			out = append(out, app)
		}
	}
	return out
}

// ByCounselor returns every application that has left draft. There is no per-counselor assignment:
// every reviewer sees the whole pipeline.
func ByCounselor(apps []models.Application) []models.Application {
	out := make([]models.Application, 0)
	for _, app := range apps {
		if app.Status != models.ApplicationStatusDraft {
			out = append(out, app)
		}
	}
	return out
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func clonePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
