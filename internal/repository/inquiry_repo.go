package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/globalpath-api/internal/models"
)

// InquiryRepository persists lead-capture submissions.
type InquiryRepository interface {
	Create(ctx context.Context, inquiry *models.Inquiry) error
	UpdateStatus(ctx context.Context, id uint, status string, deliveredAt *time.Time) error
}

type inquiryRepository struct {
	db *gorm.DB
}

// NewInquiryRepository constructs a repository backed by GORM.
func NewInquiryRepository(db *gorm.DB) InquiryRepository {
	return &inquiryRepository{db: db}
}

func (r *inquiryRepository) Create(ctx context.Context, inquiry *models.Inquiry) error {
	return r.db.WithContext(ctx).Create(inquiry).Error
}

func (r *inquiryRepository) UpdateStatus(ctx context.Context, id uint, status string, deliveredAt *time.Time) error {
	updates := map[string]interface{}{"status": status}
	if deliveredAt != nil {
		updates["delivered_at"] = *deliveredAt
	}
	return r.db.WithContext(ctx).
		Model(&models.Inquiry{}).
		Where("id = ?", id).
		Updates(updates).
		Error
}
