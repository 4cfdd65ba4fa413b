package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/globalpath-api/internal/models"
	"github.com/noah-isme/globalpath-api/internal/observability"
)

var (
	// ErrEntityNotFound indicates the id is absent from the in-memory collection.
	ErrEntityNotFound = errors.New("catalog entity not found")
	// ErrNoRelation indicates the kind has no parent relation to query.
	ErrNoRelation = errors.New("catalog kind has no parent relation")
)

// Source is the data-access collaborator that supplies whole collections.
type Source interface {
	FetchInstitutions(ctx context.Context) ([]models.Institution, error)
	FetchPrograms(ctx context.Context) ([]models.Program, error)
	FetchPostings(ctx context.Context) ([]models.Posting, error)
}

// FetchError is a soft transport failure: the previous collection stays in place.
type FetchError struct {
	Kind Kind
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s collection: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// CollectionStatus summarises the freshness of one collection.
type CollectionStatus struct {
	Kind      Kind      `json:"kind"`
	Count     int       `json:"count"`
	Version   uint64    `json:"version"`
	FetchedAt time.Time `json:"fetched_at"`
	Stale     bool      `json:"stale"`
	LastError string    `json:"last_error,omitempty"`
}

type collection[T Entity] struct {
	items     []T
	index     map[string]int
	version   uint64
	fetchedAt time.Time
	lastErr   error
}

func (c *collection[T]) status(kind Kind) CollectionStatus {
	status := CollectionStatus{
		Kind:      kind,
		Count:     len(c.items),
		Version:   c.version,
		FetchedAt: c.fetchedAt,
		Stale:     c.lastErr != nil,
	}
	if c.lastErr != nil {
		status.LastError = c.lastErr.Error()
	}
	return status
}

func (c *collection[T]) get(id string) (T, bool) {
	idx, ok := c.index[id]
	if !ok {
		var zero T
		return zero, false
	}
	return c.items[idx], true
}

// Store holds the three catalog collections. Each fetch replaces its own collection atomically;
// readers see either the previous or the new list, never a mix.
type Store struct {
	mu           sync.RWMutex
	source       Source
	logger       zerolog.Logger
	now          func() time.Time
	institutions collection[models.Institution]
	programs     collection[models.Program]
	postings     collection[models.Posting]
}

// NewStore constructs an empty store backed by source.
func NewStore(source Source, logger zerolog.Logger) *Store {
	return &Store{
		source: source,
		logger: logger.With().Str("component", "catalog_store").Logger(),
		now:    time.Now,
	}
}

// FetchAll replaces the collection for kind with a fresh copy from the source.
// On failure the previous collection is retained and a *FetchError is returned.
func (s *Store) FetchAll(ctx context.Context, kind Kind) error {
	switch kind {
	case KindInstitution:
		items, err := s.source.FetchInstitutions(ctx)
		return replace(s, &s.institutions, kind, items, err)
	case KindProgram:
		items, err := s.source.FetchPrograms(ctx)
		return replace(s, &s.programs, kind, items, err)
	case KindPosting:
		items, err := s.source.FetchPostings(ctx)
		return replace(s, &s.postings, kind, items, err)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Refresh fetches every kind. Failures are collected; successful kinds are still replaced.
func (s *Store) Refresh(ctx context.Context) error {
	var errs []error
	for _, kind := range Kinds {
		if err := s.FetchAll(ctx, kind); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func replace[T Entity](s *Store, c *collection[T], kind Kind, items []T, fetchErr error) error {
	if fetchErr != nil {
		s.mu.Lock()
		c.lastErr = fetchErr
		s.mu.Unlock()

		observability.CatalogFetches().WithLabelValues(kind.String(), "error").Inc()
		s.logger.Warn().Err(fetchErr).Str("kind", kind.String()).Msg("catalog fetch failed, keeping previous collection")
		return &FetchError{Kind: kind, Err: fetchErr}
	}

	fresh := make([]T, 0, len(items))
	index := make(map[string]int, len(items))
	for _, item := range items {
		id := item.EntityID()
		if _, dup := index[id]; dup {
			s.logger.Warn().Str("kind", kind.String()).Str("id", id).Msg("duplicate catalog id dropped")
			continue
		}
		index[id] = len(fresh)
		fresh = append(fresh, item)
	}

	s.mu.Lock()
	c.items = fresh
	c.index = index
	c.version++
	c.fetchedAt = s.now()
	c.lastErr = nil
	s.mu.Unlock()

	observability.CatalogFetches().WithLabelValues(kind.String(), "ok").Inc()
	s.logger.Info().Str("kind", kind.String()).Int("count", len(fresh)).Msg("catalog collection replaced")
	return nil
}

// Institutions returns the current institution collection in fetch order.
func (s *Store) Institutions() []models.Institution {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.institutions.items)
}

// Programs returns the current program collection in fetch order.
func (s *Store) Programs() []models.Program {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.programs.items)
}

// Postings returns the current posting collection in fetch order.
func (s *Store) Postings() []models.Posting {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.postings.items)
}

// Institution looks up one institution by id.
func (s *Store) Institution(id string) (models.Institution, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.institutions.get(id)
}

// Program looks up one program by id.
func (s *Store) Program(id string) (models.Program, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.programs.get(id)
}

// Posting looks up one posting by id.
func (s *Store) Posting(id string) (models.Posting, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.postings.get(id)
}

// GetByID returns the entity of kind with the given id.
func (s *Store) GetByID(kind Kind, id string) (Entity, error) {
	var (
		entity Entity
		found  bool
	)
	switch kind {
	case KindInstitution:
		entity, found = s.Institution(id)
	case KindProgram:
		entity, found = s.Program(id)
	case KindPosting:
		entity, found = s.Posting(id)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s %q", ErrEntityNotFound, kind, id)
	}
	return entity, nil
}

// GetRelated returns the children of parentID. Programs are the only kind with a parent.
func (s *Store) GetRelated(childKind Kind, parentID string) ([]Entity, error) {
	if childKind != KindProgram {
		return nil, fmt.Errorf("%w: %s", ErrNoRelation, childKind)
	}
	if _, ok := s.Institution(parentID); !ok {
		return nil, fmt.Errorf("%w: %s %q", ErrEntityNotFound, KindInstitution, parentID)
	}

	related := make([]Entity, 0)
	for _, program := range s.ProgramsOf(parentID) {
		related = append(related, program)
	}
	return related, nil
}

// ProgramsOf returns the programs owned by institutionID in fetch order.
func (s *Store) ProgramsOf(institutionID string) []models.Program {
	s.mu.RLock()
	defer s.mu.RUnlock()

	programs := make([]models.Program, 0)
	for _, program := range s.programs.items {
		if program.InstitutionID == institutionID {
			programs = append(programs, program)
		}
	}
	return programs
}

// SetFeatured toggles the featured flag, the only attribute the portal may change after a fetch.
// The collection is copied so that slices handed to earlier readers stay untouched.
func (s *Store) SetFeatured(kind Kind, id string, featured bool) (Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch kind {
	case KindInstitution:
		return setFeatured(&s.institutions, kind, id, func(i *models.Institution) { i.Featured = featured })
	case KindProgram:
		return setFeatured(&s.programs, kind, id, func(p *models.Program) { p.Featured = featured })
	case KindPosting:
		return setFeatured(&s.postings, kind, id, func(p *models.Posting) { p.Featured = featured })
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

func setFeatured[T Entity](c *collection[T], kind Kind, id string, apply func(*T)) (Entity, error) {
	idx, ok := c.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s %q", ErrEntityNotFound, kind, id)
	}
	items := slices.Clone(c.items)
	apply(&items[idx])
	c.items = items
	c.version++
	return items[idx], nil
}

// Status reports freshness for kind.
func (s *Store) Status(kind Kind) (CollectionStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch kind {
	case KindInstitution:
		return s.institutions.status(kind), nil
	case KindProgram:
		return s.programs.status(kind), nil
	case KindPosting:
		return s.postings.status(kind), nil
	default:
		return CollectionStatus{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}
