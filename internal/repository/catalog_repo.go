package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/globalpath-api/internal/models"
)

// CatalogBatch is a bulk set of catalog rows written in one transaction.
type CatalogBatch struct {
	Institutions []models.Institution
	Programs     []models.Program
	Postings     []models.Posting
}

// CatalogRepository loads whole catalog collections and applies bulk maintenance.
type CatalogRepository interface {
	FetchInstitutions(ctx context.Context) ([]models.Institution, error)
	FetchPrograms(ctx context.Context) ([]models.Program, error)
	FetchPostings(ctx context.Context) ([]models.Posting, error)
	UpsertBatch(ctx context.Context, batch CatalogBatch) (int64, error)
	SetFeatured(ctx context.Context, kind, id string, featured bool) error
}

type catalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository constructs the GORM-backed catalog repository.
func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) FetchInstitutions(ctx context.Context) ([]models.Institution, error) {
	var items []models.Institution
	if err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *catalogRepository) FetchPrograms(ctx context.Context) ([]models.Program, error) {
	var items []models.Program
	if err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *catalogRepository) FetchPostings(ctx context.Context) ([]models.Posting, error) {
	var items []models.Posting
	if err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *catalogRepository) UpsertBatch(ctx context.Context, batch CatalogBatch) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		onConflict := clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}

		if len(batch.Institutions) > 0 {
			result := tx.Clauses(onConflict).Create(&batch.Institutions)
			if result.Error != nil {
				return result.Error
			}
			affected += result.RowsAffected
		}
		if len(batch.Programs) > 0 {
			result := tx.Clauses(onConflict).Create(&batch.Programs)
			if result.Error != nil {
				return result.Error
			}
			affected += result.RowsAffected
		}
		if len(batch.Postings) > 0 {
			result := tx.Clauses(onConflict).Create(&batch.Postings)
			if result.Error != nil {
				return result.Error
			}
			affected += result.RowsAffected
		}
		return nil
	})
	return affected, err
}

func (r *catalogRepository) SetFeatured(ctx context.Context, kind, id string, featured bool) error {
	var model interface{}
	switch kind {
	case "institution":
		model = &models.Institution{}
	case "program":
		model = &models.Program{}
	case "posting":
		model = &models.Posting{}
	default:
		return fmt.Errorf("unsupported catalog kind %q", kind)
	}

	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ?", id).
		Updates(map[string]interface{}{"featured": featured, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
