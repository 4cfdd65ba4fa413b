package models

import "time"

// Institution types accepted by the catalog.
const (
	InstitutionTypePublic  = "public"
	InstitutionTypePrivate = "private"
)

// Program delivery modes.
const (
	ProgramModeOnCampus = "on-campus"
	ProgramModeOnline   = "online"
	ProgramModeHybrid   = "hybrid"
)

// Healthcare posting categories.
const (
	PostingCategoryNurse   = "nurse"
	PostingCategoryDoctor  = "doctor"
	PostingCategoryDentist = "dentist"
)

// Institution is a university or college listed in the study-abroad catalog.
type Institution struct {
	ID           string    `gorm:"primaryKey;size:64" json:"id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Country      string    `gorm:"size:96;index" json:"country"`
	City         string    `gorm:"size:96;index" json:"city"`
	Type         string    `gorm:"size:16" json:"type"`
	WorldRanking *int      `json:"world_ranking"`
	TuitionMin   *float64  `json:"tuition_min"`
	TuitionMax   *float64  `json:"tuition_max"`
	Currency     string    `gorm:"size:8" json:"currency"`
	Website      string    `gorm:"size:512" json:"website"`
	Description  string    `gorm:"type:text" json:"description"`
	Featured     bool      `gorm:"not null;default:false" json:"featured"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// EntityID returns the opaque catalog identifier.
func (i Institution) EntityID() string { return i.ID }

// Program is a course of study offered by exactly one institution.
type Program struct {
	ID             string    `gorm:"primaryKey;size:64" json:"id"`
	InstitutionID  string    `gorm:"size:64;not null;index" json:"institution_id"`
	Name           string    `gorm:"size:255;not null" json:"name"`
	DegreeLevel    string    `gorm:"size:32" json:"degree_level"`
	Field          string    `gorm:"size:128" json:"field"`
	Tuition        *float64  `json:"tuition"`
	Currency       string    `gorm:"size:8" json:"currency"`
	Mode           string    `gorm:"size:16" json:"mode"`
	DurationMonths *int      `json:"duration_months"`
	Language       string    `gorm:"size:64" json:"language"`
	Featured       bool      `gorm:"not null;default:false" json:"featured"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// EntityID returns the opaque catalog identifier.
func (p Program) EntityID() string { return p.ID }

// Posting is a healthcare job advertised through the recruitment side of the portal.
type Posting struct {
	ID             string     `gorm:"primaryKey;size:64" json:"id"`
	Title          string     `gorm:"size:255;not null" json:"title"`
	Category       string     `gorm:"size:32;index" json:"category"`
	EmploymentType string     `gorm:"size:32" json:"employment_type"`
	Employer       string     `gorm:"size:255" json:"employer"`
	Country        string     `gorm:"size:96" json:"country"`
	City           string     `gorm:"size:96" json:"city"`
	SalaryMin      *float64   `json:"salary_min"`
	SalaryMax      *float64   `json:"salary_max"`
	Currency       string     `gorm:"size:8" json:"currency"`
	PostedAt       *time.Time `json:"posted_at"`
	Featured       bool       `gorm:"not null;default:false" json:"featured"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// EntityID returns the opaque catalog identifier.
func (p Posting) EntityID() string { return p.ID }
