package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/globalpath-api/internal/dto"
	"github.com/noah-isme/globalpath-api/internal/models"
)

type inquiryRepoStub struct {
	created models.Inquiry
	status  string
	creates int
}

func (i *inquiryRepoStub) Create(ctx context.Context, inquiry *models.Inquiry) error {
	i.creates++
	inquiry.ID = uint(i.creates)
	i.created = *inquiry
	return nil
}

func (i *inquiryRepoStub) UpdateStatus(ctx context.Context, id uint, status string, _ *time.Time) error {
	i.status = status
	return nil
}

type failingInquiryDelivery struct{}

func (failingInquiryDelivery) Deliver(ctx context.Context, inquiry models.Inquiry) error {
	return errors.New("delivery error")
}

func validInquiry() dto.InquiryRequest {
	return dto.InquiryRequest{
		Name:       "Amara Osei",
		Email:      "Amara@Example.com",
		Interest:   dto.InquiryInterestStudy,
		EntityKind: "program",
		EntityID:   "tum-msc-informatics",
		Message:    "Is the programme taught fully in English?",
	}
}

func TestInquiryServiceDuplicate(t *testing.T) {
	_, client := setupRedis(t)
	store, _ := newCatalogFixture(t)
	repo := &inquiryRepoStub{}
	svc := NewInquiryService(repo, store, client, validator.New(), NewLogInquiryDelivery(testLogger()), 0, testLogger())

	resp, err := svc.Submit(context.Background(), validInquiry())
	require.NoError(t, err)
	require.Equal(t, InquiryStatusDelivered, resp.Status)
	require.NotEmpty(t, resp.ReferenceID)
	require.Equal(t, "amara@example.com", repo.created.Email)

	_, err = svc.Submit(context.Background(), validInquiry())
	require.ErrorIs(t, err, ErrInquiryDuplicate)
	require.Equal(t, 1, repo.creates)
}

func TestInquiryServiceDeliveryFailureStaysQueued(t *testing.T) {
	repo := &inquiryRepoStub{}
	svc := NewInquiryService(repo, nil, nil, validator.New(), failingInquiryDelivery{}, 0, testLogger())

	resp, err := svc.Submit(context.Background(), validInquiry())
	require.NoError(t, err)
	require.Equal(t, InquiryStatusQueued, resp.Status)
	require.Empty(t, repo.status)
}

func TestInquiryServiceRejectsSpamAndBadReferences(t *testing.T) {
	store, _ := newCatalogFixture(t)
	svc := NewInquiryService(&inquiryRepoStub{}, store, nil, validator.New(), NewLogInquiryDelivery(testLogger()), 0, testLogger())

	spam := validInquiry()
	spam.Honeypot = "http://spam.example.com"
	_, err := svc.Submit(context.Background(), spam)
	require.ErrorIs(t, err, ErrInquirySpam)

	unknown := validInquiry()
	unknown.EntityKind = "posting"
	unknown.EntityID = "surgeon-oslo"
	_, err = svc.Submit(context.Background(), unknown)
	require.ErrorIs(t, err, ErrInquiryReference)

	invalid := validInquiry()
	invalid.Interest = "tourism"
	_, err = svc.Submit(context.Background(), invalid)
	var validationErrs validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrs)

	markup := validInquiry()
	markup.Message = "<script>alert(1)</script>"
	_, err = svc.Submit(context.Background(), markup)
	require.ErrorIs(t, err, ErrInquiryEmpty)
}

func TestMaskEmailAddress(t *testing.T) {
	require.Equal(t, "a***a@example.com", maskEmailAddress("amara@example.com"))
}
