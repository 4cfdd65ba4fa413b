package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/globalpath-api/internal/catalog"
	"github.com/noah-isme/globalpath-api/internal/dto"
	"github.com/noah-isme/globalpath-api/internal/lifecycle"
)

const (
	defaultCatalogPageSize = 20
	maxCatalogPageSize     = 100
)

// FeaturedWriter persists the featured flag. It is nil when the catalog is served from a file.
type FeaturedWriter interface {
	SetFeatured(ctx context.Context, kind, id string, featured bool) error
}

// CatalogService exposes the browsing, search and maintenance operations over the catalog store.
type CatalogService interface {
	List(ctx context.Context, req dto.CatalogListRequest) (dto.CatalogListResponse, error)
	Get(ctx context.Context, kind catalog.Kind, id string) (catalog.Entity, error)
	Related(ctx context.Context, childKind catalog.Kind, parentID string) ([]catalog.Entity, error)
	Facets(kind catalog.Kind) (catalog.Descriptor, error)
	Suggest(ctx context.Context, query string) dto.SuggestionListResponse
	Refresh(ctx context.Context, actor lifecycle.Actor, kind catalog.Kind) (dto.CatalogRefreshResponse, error)
	RefreshAll(ctx context.Context) (dto.CatalogRefreshResponse, error)
	SetFeatured(ctx context.Context, actor lifecycle.Actor, kind catalog.Kind, id string, featured bool) (catalog.Entity, error)
	Status() []catalog.CollectionStatus
}

type catalogService struct {
	store    *catalog.Store
	featured FeaturedWriter
	activity ActivityRecorder
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewCatalogService constructs the catalog service. featured and activity may be nil.
func NewCatalogService(store *catalog.Store, featured FeaturedWriter, activity ActivityRecorder, logger zerolog.Logger) CatalogService {
	return &catalogService{
		store:    store,
		featured: featured,
		activity: activity,
		logger:   logger.With().Str("component", "catalog_service").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/globalpath-api/internal/service/catalog"),
	}
}

func (s *catalogService) List(_ context.Context, req dto.CatalogListRequest) (dto.CatalogListResponse, error) {
	view := catalog.NewView(req.Kind)
	view.SetQuery(req.Query)
	for name, constraint := range req.Facets {
		view.SetFacet(name, constraint)
	}
	view.SetSort(req.Sort)

	items, err := s.store.FilteredView(*view)
	if err != nil {
		return dto.CatalogListResponse{}, err
	}
	status, err := s.store.Status(req.Kind)
	if err != nil {
		return dto.CatalogListResponse{}, err
	}

	page, pageSize := normalizeCatalogPage(req.Page, req.PageSize)
	total := int64(len(items))
	start, end := pageBounds(page, pageSize, len(items))

	return dto.CatalogListResponse{
		Kind:       req.Kind,
		Items:      items[start:end],
		Pagination: dto.NewPaginationMeta(page, pageSize, total),
		Collection: status,
	}, nil
}

func (s *catalogService) Get(_ context.Context, kind catalog.Kind, id string) (catalog.Entity, error) {
	return s.store.GetByID(kind, strings.TrimSpace(id))
}

func (s *catalogService) Related(_ context.Context, childKind catalog.Kind, parentID string) ([]catalog.Entity, error) {
	return s.store.GetRelated(childKind, strings.TrimSpace(parentID))
}

func (s *catalogService) Facets(kind catalog.Kind) (catalog.Descriptor, error) {
	return catalog.Describe(kind)
}

func (s *catalogService) Suggest(_ context.Context, query string) dto.SuggestionListResponse {
	return dto.SuggestionListResponse{
		Query:       query,
		Suggestions: catalog.Suggest(query, s.store.Institutions(), s.store.Programs()),
	}
}

// Refresh re-fetches one kind. A failed fetch keeps the previous collection; the returned status
// carries the error alongside the returned *catalog.FetchError.
func (s *catalogService) Refresh(ctx context.Context, actor lifecycle.Actor, kind catalog.Kind) (dto.CatalogRefreshResponse, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.refresh", trace.WithAttributes(attribute.String("catalog.kind", kind.String())))
	defer span.End()

	fetchErr := s.store.FetchAll(ctx, kind)
	status, err := s.store.Status(kind)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unknown kind")
		return dto.CatalogRefreshResponse{}, err
	}
	response := dto.CatalogRefreshResponse{Collections: []catalog.CollectionStatus{status}}
	if fetchErr != nil {
		span.RecordError(fetchErr)
		span.SetStatus(codes.Error, "fetch failed")
		return response, fetchErr
	}

	s.record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     ActionCatalogRefreshed,
		EntityType: kind.String(),
		Metadata:   map[string]interface{}{"count": status.Count, "version": status.Version},
	})
	span.SetStatus(codes.Ok, "refreshed")
	return response, nil
}

func (s *catalogService) RefreshAll(ctx context.Context) (dto.CatalogRefreshResponse, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.refresh_all")
	defer span.End()

	err := s.store.Refresh(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "partial refresh")
	}
	return dto.CatalogRefreshResponse{Collections: s.Status()}, err
}

func (s *catalogService) SetFeatured(ctx context.Context, actor lifecycle.Actor, kind catalog.Kind, id string, featured bool) (catalog.Entity, error) {
	id = strings.TrimSpace(id)
	if _, err := s.store.GetByID(kind, id); err != nil {
		return nil, err
	}

	if s.featured != nil {
		if err := s.featured.SetFeatured(ctx, kind.String(), id, featured); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: %s %q", catalog.ErrEntityNotFound, kind, id)
			}
			return nil, err
		}
	}

	entity, err := s.store.SetFeatured(kind, id, featured)
	if err != nil {
		return nil, err
	}

	s.record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     ActionCatalogFeatured,
		EntityType: kind.String(),
		EntityID:   id,
		Metadata:   map[string]interface{}{"featured": featured},
	})
	return entity, nil
}

func (s *catalogService) Status() []catalog.CollectionStatus {
	statuses := make([]catalog.CollectionStatus, 0, len(catalog.Kinds))
	for _, kind := range catalog.Kinds {
		if status, err := s.store.Status(kind); err == nil {
			statuses = append(statuses, status)
		}
	}
	return statuses
}

func (s *catalogService) record(ctx context.Context, entry ActivityEntry) {
	if s.activity == nil {
		return
	}
	if _, err := s.activity.Record(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("action", entry.Action).Msg("failed to record catalog activity")
	}
}

func normalizeCatalogPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case pageSize <= 0:
		pageSize = defaultCatalogPageSize
	case pageSize > maxCatalogPageSize:
		pageSize = maxCatalogPageSize
	}
	return page, pageSize
}

// pageBounds slices one page out of length items. Pages past the end are empty; the offset is never
// computed for them, so an arbitrarily large page cannot overflow.
func pageBounds(page, pageSize, length int) (int, int) {
	if page-1 > length/pageSize {
		return length, length
	}
	start := (page - 1) * pageSize
	if start > length {
		start = length
	}
	end := start + pageSize
	if end > length {
		end = length
	}
	return start, end
}
