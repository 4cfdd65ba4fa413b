package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/globalpath-api/internal/catalog"
	"github.com/noah-isme/globalpath-api/internal/dto"
	"github.com/noah-isme/globalpath-api/internal/models"
	"github.com/noah-isme/globalpath-api/internal/repository"
)

var (
	// ErrSeedDisabled indicates the seeding tools are disabled by configuration.
	ErrSeedDisabled = errors.New("seeding is disabled")
	// ErrSeedUnauthorized indicates the provided token is invalid.
	ErrSeedUnauthorized = errors.New("invalid seed token")
)

// CatalogWriter upserts catalog rows in bulk.
type CatalogWriter interface {
	UpsertBatch(ctx context.Context, batch repository.CatalogBatch) (int64, error)
}

// CatalogRefresher reloads the in-memory catalog after a bulk write.
type CatalogRefresher interface {
	RefreshAll(ctx context.Context) (dto.CatalogRefreshResponse, error)
}

// SeedService loads catalog documents into the database.
type SeedService interface {
	SeedCatalog(ctx context.Context, token string, raw []byte) (dto.CatalogSeedResponse, error)
	LoadDocument(ctx context.Context, doc catalog.Document) (dto.CatalogSeedResponse, error)
}

type seedService struct {
	writer    CatalogWriter
	refresher CatalogRefresher
	activity  ActivityRecorder
	enabled   bool
	token     string
	logger    zerolog.Logger
	now       func() time.Time
}

// NewSeedService constructs a seeding service. activity may be nil.
func NewSeedService(writer CatalogWriter, refresher CatalogRefresher, activity ActivityRecorder, enabled bool, token string, logger zerolog.Logger) SeedService {
	return &seedService{
		writer:    writer,
		refresher: refresher,
		activity:  activity,
		enabled:   enabled,
		token:     token,
		logger:    logger.With().Str("component", "seed_service").Logger(),
		now:       time.Now,
	}
}

// SeedCatalog validates raw against the catalog schema, upserts it and refreshes the store.
func (s *seedService) SeedCatalog(ctx context.Context, token string, raw []byte) (dto.CatalogSeedResponse, error) {
	if !s.enabled {
		return dto.CatalogSeedResponse{}, ErrSeedDisabled
	}
	if !s.validateToken(token) {
		return dto.CatalogSeedResponse{}, ErrSeedUnauthorized
	}

	doc, err := catalog.ParseDocument(raw)
	if err != nil {
		return dto.CatalogSeedResponse{}, err
	}

	response, err := s.LoadDocument(ctx, doc)
	if err != nil {
		return response, err
	}

	if s.activity != nil {
		if _, err := s.activity.Record(ctx, ActivityEntry{
			ActorRole:  "system",
			Action:     ActionCatalogSeeded,
			EntityType: "catalog",
			Metadata: map[string]interface{}{
				"institutions": response.Institutions,
				"programs":     response.Programs,
				"postings":     response.Postings,
			},
		}); err != nil {
			s.logger.Warn().Err(err).Msg("failed to record seed activity")
		}
	}
	return response, nil
}

// LoadDocument upserts an already validated document. It skips the token guard and is used at boot.
func (s *seedService) LoadDocument(ctx context.Context, doc catalog.Document) (dto.CatalogSeedResponse, error) {
	batch := repository.CatalogBatch{
		Institutions: normalizeInstitutions(doc.Institutions),
		Programs:     normalizePrograms(doc.Programs),
		Postings:     normalizePostings(doc.Postings, s.now()),
	}

	affected, err := s.writer.UpsertBatch(ctx, batch)
	if err != nil {
		return dto.CatalogSeedResponse{}, err
	}
	s.logger.Info().
		Int("institutions", len(batch.Institutions)).
		Int("programs", len(batch.Programs)).
		Int("postings", len(batch.Postings)).
		Int64("affected", affected).
		Msg("catalog seeded")

	response := dto.CatalogSeedResponse{
		Institutions: len(batch.Institutions),
		Programs:     len(batch.Programs),
		Postings:     len(batch.Postings),
		Affected:     affected,
	}

	if s.refresher != nil {
		refreshed, err := s.refresher.RefreshAll(ctx)
		response.Collections = refreshed.Collections
		if err != nil {
			s.logger.Warn().Err(err).Msg("catalog refresh after seed failed")
		}
	}
	return response, nil
}

func (s *seedService) validateToken(token string) bool {
	expected := strings.TrimSpace(s.token)
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(token))) == 1
}

func normalizeInstitutions(items []models.Institution) []models.Institution {
	for i := range items {
		items[i].ID = strings.TrimSpace(items[i].ID)
		items[i].Type = strings.ToLower(strings.TrimSpace(items[i].Type))
		if items[i].Currency == "" {
			items[i].Currency = "USD"
		}
	}
	return items
}

func normalizePrograms(items []models.Program) []models.Program {
	for i := range items {
		items[i].ID = strings.TrimSpace(items[i].ID)
		items[i].InstitutionID = strings.TrimSpace(items[i].InstitutionID)
		items[i].Mode = strings.ToLower(strings.TrimSpace(items[i].Mode))
	}
	return items
}

func normalizePostings(items []models.Posting, now time.Time) []models.Posting {
	for i := range items {
		items[i].ID = strings.TrimSpace(items[i].ID)
		items[i].Category = strings.ToLower(strings.TrimSpace(items[i].Category))
		if items[i].PostedAt == nil {
			posted := now.UTC()
			items[i].PostedAt = &posted
		}
	}
	return items
}
