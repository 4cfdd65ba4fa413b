package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/globalpath-api/internal/catalog"
	"github.com/noah-isme/globalpath-api/internal/dto"
	"github.com/noah-isme/globalpath-api/internal/models"
	"github.com/noah-isme/globalpath-api/internal/repository"
)

const seedDocument = `{
  "institutions": [
    {"id": "tum", "name": "Technical University of Munich", "country": "Germany", "city": "Munich", "type": "public", "world_ranking": 37},
    {"id": "sorbonne", "name": "Sorbonne University", "country": "France", "city": "Paris", "type": "public"}
  ],
  "programs": [
    {"id": "tum-msc-informatics", "institution_id": "tum", "name": "MSc Informatics", "mode": "on-campus"}
  ],
  "postings": [
    {"id": "gp-dubai", "title": "General Practitioner", "category": "doctor", "country": "UAE", "city": "Dubai"}
  ]
}`

type catalogWriterStub struct {
	batch repository.CatalogBatch
	err   error
}

func (c *catalogWriterStub) UpsertBatch(_ context.Context, batch repository.CatalogBatch) (int64, error) {
	c.batch = batch
	if c.err != nil {
		return 0, c.err
	}
	return int64(len(batch.Institutions) + len(batch.Programs) + len(batch.Postings)), nil
}

type refresherStub struct {
	calls int
}

func (r *refresherStub) RefreshAll(context.Context) (dto.CatalogRefreshResponse, error) {
	r.calls++
	return dto.CatalogRefreshResponse{Collections: []catalog.CollectionStatus{{Kind: catalog.KindInstitution, Count: 2}}}, nil
}

func TestSeedServiceTokenGuard(t *testing.T) {
	writer := &catalogWriterStub{}
	svc := NewSeedService(writer, &refresherStub{}, nil, true, "secret", testLogger())

	_, err := svc.SeedCatalog(context.Background(), "wrong", []byte(seedDocument))
	require.ErrorIs(t, err, ErrSeedUnauthorized)

	_, err = svc.SeedCatalog(context.Background(), "", []byte(seedDocument))
	require.ErrorIs(t, err, ErrSeedUnauthorized)

	disabled := NewSeedService(writer, nil, nil, false, "secret", testLogger())
	_, err = disabled.SeedCatalog(context.Background(), "secret", []byte(seedDocument))
	require.ErrorIs(t, err, ErrSeedDisabled)

	unset := NewSeedService(writer, nil, nil, true, "", testLogger())
	_, err = unset.SeedCatalog(context.Background(), "", []byte(seedDocument))
	require.ErrorIs(t, err, ErrSeedUnauthorized)
}

func TestSeedServiceSeedsAndRefreshes(t *testing.T) {
	writer := &catalogWriterStub{}
	refresher := &refresherStub{}
	activity := &memoryActivityRepo{}
	svc := NewSeedService(writer, refresher, NewActivityService(activity, testLogger()), true, "secret", testLogger())

	resp, err := svc.SeedCatalog(context.Background(), " secret ", []byte(seedDocument))
	require.NoError(t, err)
	require.Equal(t, 2, resp.Institutions)
	require.Equal(t, 1, resp.Programs)
	require.Equal(t, 1, resp.Postings)
	require.Equal(t, int64(4), resp.Affected)
	require.Len(t, resp.Collections, 1)
	require.Equal(t, 1, refresher.calls)
	require.NotNil(t, writer.batch.Postings[0].PostedAt)
	require.Equal(t, "USD", writer.batch.Institutions[1].Currency)
	require.Len(t, activity.entries, 1)
	require.Equal(t, ActionCatalogSeeded, activity.entries[0].Action)
}

func TestSeedServiceRejectsInvalidDocuments(t *testing.T) {
	writer := &catalogWriterStub{}
	svc := NewSeedService(writer, nil, nil, true, "secret", testLogger())

	_, err := svc.SeedCatalog(context.Background(), "secret", []byte(`{"postings": [{"id": "x", "title": "Pharmacist", "category": "pharmacist"}]}`))
	require.ErrorIs(t, err, catalog.ErrInvalidDocument)
	require.Empty(t, writer.batch.Postings)

	writer.err = errors.New("disk full")
	_, err = svc.SeedCatalog(context.Background(), "secret", []byte(seedDocument))
	require.EqualError(t, err, "disk full")
}

func TestSeedServiceLoadsIntoStore(t *testing.T) {
	db := setupServiceDB(t, &models.Institution{}, &models.Program{}, &models.Posting{})
	repo := repository.NewCatalogRepository(db)
	store := catalog.NewStore(repo, testLogger())
	catalogSvc := NewCatalogService(store, repo, nil, testLogger())
	svc := NewSeedService(repo, catalogSvc, nil, true, "secret", testLogger())

	doc, err := catalog.ParseDocument([]byte(seedDocument))
	require.NoError(t, err)
	resp, err := svc.LoadDocument(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, resp.Collections, 3)

	programs := store.ProgramsOf("tum")
	require.Len(t, programs, 1)
	_, ok := store.Posting("gp-dubai")
	require.True(t, ok)
}
