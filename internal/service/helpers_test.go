package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/globalpath-api/internal/catalog"
	"github.com/noah-isme/globalpath-api/internal/models"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func setupServiceDB(t *testing.T, tables ...interface{}) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(tables...))
	return db
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	server, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})
	return server, client
}

type catalogSourceStub struct {
	institutions []models.Institution
	programs     []models.Program
	postings     []models.Posting
	err          error
}

func (s *catalogSourceStub) FetchInstitutions(context.Context) ([]models.Institution, error) {
	return s.institutions, s.err
}

func (s *catalogSourceStub) FetchPrograms(context.Context) ([]models.Program, error) {
	return s.programs, s.err
}

func (s *catalogSourceStub) FetchPostings(context.Context) ([]models.Posting, error) {
	return s.postings, s.err
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func newCatalogFixture(t *testing.T) (*catalog.Store, *catalogSourceStub) {
	t.Helper()
	source := &catalogSourceStub{
		institutions: []models.Institution{
			{ID: "tum", Name: "Technical University of Munich", Country: "Germany", City: "Munich", Type: models.InstitutionTypePublic, WorldRanking: intPtr(37), TuitionMin: floatPtr(0), TuitionMax: floatPtr(300)},
			{ID: "ebs", Name: "EBS University", Country: "Germany", City: "Oestrich-Winkel", Type: models.InstitutionTypePrivate, TuitionMin: floatPtr(12000), TuitionMax: floatPtr(16000)},
			{ID: "sorbonne", Name: "Sorbonne University", Country: "France", City: "Paris", Type: models.InstitutionTypePublic, WorldRanking: intPtr(59), TuitionMin: floatPtr(170), TuitionMax: floatPtr(3800)},
		},
		programs: []models.Program{
			{ID: "tum-msc-informatics", InstitutionID: "tum", Name: "MSc Informatics", DegreeLevel: "Master", Field: "Computer Science", Tuition: floatPtr(300), Mode: models.ProgramModeOnCampus, DurationMonths: intPtr(24), Language: "English"},
			{ID: "sorbonne-ba-history", InstitutionID: "sorbonne", Name: "BA History", DegreeLevel: "Bachelor", Field: "Humanities", Tuition: floatPtr(170), Mode: models.ProgramModeOnCampus, DurationMonths: intPtr(36), Language: "French"},
		},
		postings: []models.Posting{
			{ID: "icu-berlin", Title: "ICU Nurse", Category: models.PostingCategoryNurse, Country: "Germany", City: "Berlin", SalaryMin: floatPtr(3200), SalaryMax: floatPtr(4100)},
		},
	}
	store := catalog.NewStore(source, testLogger())
	require.NoError(t, store.Refresh(context.Background()))
	return store, source
}
