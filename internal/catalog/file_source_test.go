package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const sampleDocument = `{
  "institutions": [
    {"id": "tum", "name": "Technical University of Munich", "country": "Germany", "city": "Munich", "type": "public", "world_ranking": 37}
  ],
  "programs": [
    {"id": "tum-msc-informatics", "institution_id": "tum", "name": "MSc Informatics", "degree_level": "Master", "field": "Computer Science", "mode": "on-campus", "tuition": 0}
  ],
  "postings": [
    {"id": "nurse-berlin", "title": "ICU Nurse", "category": "nurse", "employment_type": "full-time", "country": "Germany", "city": "Berlin", "salary_min": 3200, "salary_max": 4100}
  ]
}`

func TestParseDocumentValid(t *testing.T) {
	doc, err := ParseDocument([]byte(sampleDocument))
	require.NoError(t, err)
	require.Len(t, doc.Institutions, 1)
	require.Equal(t, 37, *doc.Institutions[0].WorldRanking)
	require.Equal(t, "tum", doc.Programs[0].InstitutionID)
	require.Equal(t, 4100.0, *doc.Postings[0].SalaryMax)
}

func TestParseDocumentRejectsSchemaViolations(t *testing.T) {
	_, err := ParseDocument([]byte(`{"postings": [{"id": "x", "title": "Pharmacist", "category": "pharmacist"}]}`))
	require.ErrorIs(t, err, ErrInvalidDocument)

	_, err = ParseDocument([]byte(`{"institutions": [{"name": "No id"}]}`))
	require.ErrorIs(t, err, ErrInvalidDocument)

	_, err = ParseDocument([]byte(`not json`))
	require.ErrorIs(t, err, ErrInvalidDocument)
}

func TestFileSourceFeedsStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleDocument), 0o600))

	store := NewStore(NewFileSource(path), zerolog.Nop())
	require.NoError(t, store.Refresh(context.Background()))
	require.Len(t, store.Institutions(), 1)
	require.Len(t, store.Programs(), 1)
	require.Len(t, store.Postings(), 1)

	require.NoError(t, os.WriteFile(path, []byte(`{"institutions": [{"id": 1}]}`), 0o600))
	err := store.FetchAll(context.Background(), KindInstitution)
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Len(t, store.Institutions(), 1)
}
