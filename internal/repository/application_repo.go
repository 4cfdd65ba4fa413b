package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/globalpath-api/internal/models"
)

// ErrApplicationConflict indicates the stored status changed since the application was read.
var ErrApplicationConflict = errors.New("application was modified concurrently")

// ApplicationFilter narrows application list queries.
type ApplicationFilter struct {
	StudentID      *uint
	ExcludeDraft   bool
	Statuses       []string
	SubmittedAfter *time.Time
	Page           int
	PageSize       int
}

// ApplicationTransition is everything written atomically when an application changes status.
type ApplicationTransition struct {
	Application    *models.Application
	ExpectedStatus string
	Entry          models.ApplicationStatusEntry
	Activity       *models.ActivityLog
}

// ApplicationRepository persists applications together with their status history.
type ApplicationRepository interface {
	Create(ctx context.Context, app *models.Application) error
	GetByID(ctx context.Context, id uint) (models.Application, error)
	List(ctx context.Context, filter ApplicationFilter) ([]models.Application, int64, error)
	UpdateDraft(ctx context.Context, app *models.Application) error
	SaveTransition(ctx context.Context, transition ApplicationTransition) error
	CountByStatus(ctx context.Context, studentID uint) (map[string]int64, error)
}

type applicationRepository struct {
	db *gorm.DB
}

// NewApplicationRepository constructs the GORM-backed application repository.
func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func orderedHistory(db *gorm.DB) *gorm.DB {
	return db.Order("sequence ASC")
}

func (r *applicationRepository) Create(ctx context.Context, app *models.Application) error {
	return r.db.WithContext(ctx).Omit("StatusHistory").Create(app).Error
}

func (r *applicationRepository) GetByID(ctx context.Context, id uint) (models.Application, error) {
	var app models.Application
	if err := r.db.WithContext(ctx).
		Preload("StatusHistory", orderedHistory).
		First(&app, id).Error; err != nil {
		return models.Application{}, err
	}
	return app, nil
}

func (r *applicationRepository) List(ctx context.Context, filter ApplicationFilter) ([]models.Application, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Application{})

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	if filter.ExcludeDraft {
		query = query.Where("status <> ?", models.ApplicationStatusDraft)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.SubmittedAfter != nil {
		query = query.Where("submitted_at > ?", *filter.SubmittedAfter)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var apps []models.Application
	if err := query.
		Preload("StatusHistory", orderedHistory).
		Order("last_updated DESC, id DESC").
		Find(&apps).Error; err != nil {
		return nil, 0, err
	}

	return apps, total, nil
}

func (r *applicationRepository) UpdateDraft(ctx context.Context, app *models.Application) error {
	result := r.db.WithContext(ctx).
		Model(&models.Application{}).
		Where("id = ? AND status = ?", app.ID, models.ApplicationStatusDraft).
		Updates(map[string]interface{}{
			"personal_statement": app.PersonalStatement,
			"documents":          app.Documents,
			"last_updated":       app.LastUpdated,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrApplicationConflict
	}
	return nil
}

// SaveTransition writes the new status fields, the history entry and the audit row in one
// transaction. The update is conditional on ExpectedStatus so two reviewers cannot both apply a
// transition from the same state.
func (r *applicationRepository) SaveTransition(ctx context.Context, transition ApplicationTransition) error {
	app := transition.Application
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Application{}).
			Where("id = ? AND status = ?", app.ID, transition.ExpectedStatus).
			Updates(map[string]interface{}{
				"status":              app.Status,
				"submitted_at":        app.SubmittedAt,
				"last_updated":        app.LastUpdated,
				"interview_date":      app.InterviewDate,
				"interview_type":      app.InterviewType,
				"interview_link":      app.InterviewLink,
				"interview_location":  app.InterviewLocation,
				"decision_date":       app.DecisionDate,
				"scholarship_offered": app.ScholarshipOffered,
				"counselor_notes":     app.CounselorNotes,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Application{}).Where("id = ?", app.ID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return gorm.ErrRecordNotFound
			}
			return ErrApplicationConflict
		}

		entry := transition.Entry
		entry.ApplicationID = app.ID
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		if transition.Activity != nil {
			if err := tx.Create(transition.Activity).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *applicationRepository) CountByStatus(ctx context.Context, studentID uint) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Total  int64
	}

	var rows []statusCount
	if err := r.db.WithContext(ctx).
		Model(&models.Application{}).
		Select("status, COUNT(*) AS total").
		Where("student_id = ?", studentID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}
