package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/globalpath-api/internal/catalog"
	"github.com/noah-isme/globalpath-api/internal/dto"
	"github.com/noah-isme/globalpath-api/internal/models"
	"github.com/noah-isme/globalpath-api/internal/observability"
	"github.com/noah-isme/globalpath-api/internal/repository"
)

var (
	// ErrInquirySpam indicates the honeypot field was filled.
	ErrInquirySpam = errors.New("inquiry flagged as spam")
	// ErrInquiryDuplicate indicates the same inquiry was received recently.
	ErrInquiryDuplicate = errors.New("duplicate inquiry")
	// ErrInquiryReference indicates the inquiry points at a catalog entry that does not exist.
	ErrInquiryReference = errors.New("inquiry references an unknown catalog entry")
	// ErrInquiryEmpty indicates nothing was left of the message after sanitising.
	ErrInquiryEmpty = errors.New("inquiry message empty after sanitization")
)

// Inquiry statuses.
const (
	InquiryStatusQueued    = "queued"
	InquiryStatusDelivered = "delivered"
)

// InquiryDelivery hands a captured lead to the advisors.
type InquiryDelivery interface {
	Deliver(ctx context.Context, inquiry models.Inquiry) error
}

// EntityLookup resolves catalog references.
type EntityLookup interface {
	GetByID(kind catalog.Kind, id string) (catalog.Entity, error)
}

// InquiryService runs the lead-capture workflow.
type InquiryService interface {
	Submit(ctx context.Context, req dto.InquiryRequest) (dto.InquiryResponse, error)
}

type inquiryService struct {
	repo      repository.InquiryRepository
	entities  EntityLookup
	cache     *redis.Client
	validator *validator.Validate
	delivery  InquiryDelivery
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	dedupeTTL time.Duration
	tracer    trace.Tracer
	now       func() time.Time
}

// NewInquiryService constructs the inquiry service. A zero dedupeTTL defaults to ten minutes.
func NewInquiryService(repo repository.InquiryRepository, entities EntityLookup, cache *redis.Client, validate *validator.Validate, delivery InquiryDelivery, dedupeTTL time.Duration, logger zerolog.Logger) InquiryService {
	if dedupeTTL <= 0 {
		dedupeTTL = 10 * time.Minute
	}
	return &inquiryService{
		repo:      repo,
		entities:  entities,
		cache:     cache,
		validator: validate,
		delivery:  delivery,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "inquiry_service").Logger(),
		dedupeTTL: dedupeTTL,
		tracer:    otel.Tracer("github.com/noah-isme/globalpath-api/internal/service/inquiry"),
		now:       time.Now,
	}
}

func (s *inquiryService) Submit(ctx context.Context, req dto.InquiryRequest) (dto.InquiryResponse, error) {
	ctx, span := s.tracer.Start(ctx, "inquiry.submit", trace.WithAttributes(attribute.String("inquiry.interest", req.Interest)))
	defer span.End()

	if req.Honeypot != "" {
		span.SetStatus(codes.Error, "honeypot tripped")
		observability.InquirySubmissions().WithLabelValues(req.Interest, "spam").Inc()
		return dto.InquiryResponse{}, ErrInquirySpam
	}

	if err := s.validator.Struct(req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return dto.InquiryResponse{}, err
	}

	if req.EntityKind != "" && s.entities != nil {
		if _, err := s.entities.GetByID(catalog.Kind(req.EntityKind), strings.TrimSpace(req.EntityID)); err != nil {
			span.SetStatus(codes.Error, "unknown reference")
			return dto.InquiryResponse{}, fmt.Errorf("%w: %s %q", ErrInquiryReference, req.EntityKind, req.EntityID)
		}
	}

	message := strings.TrimSpace(s.sanitizer.Sanitize(req.Message))
	if message == "" {
		return dto.InquiryResponse{}, ErrInquiryEmpty
	}

	checksum := computeChecksum(req.Email, req.Interest, req.EntityKind, req.EntityID, message)
	span.SetAttributes(attribute.String("inquiry.checksum", checksum))

	if s.cache != nil {
		key := fmt.Sprintf("inquiry:dedupe:%s", checksum)
		ok, err := s.cache.SetNX(ctx, key, 1, s.dedupeTTL).Result()
		if err != nil {
			span.RecordError(err)
			s.logger.Warn().Err(err).Msg("inquiry dedupe check unavailable")
		} else if !ok {
			span.SetStatus(codes.Error, "duplicate inquiry")
			observability.InquirySubmissions().WithLabelValues(req.Interest, "duplicate").Inc()
			return dto.InquiryResponse{}, ErrInquiryDuplicate
		}
	}

	inquiry := models.Inquiry{
		ReferenceID: uuid.NewString(),
		Name:        strings.TrimSpace(s.sanitizer.Sanitize(req.Name)),
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:       strings.TrimSpace(req.Phone),
		Interest:    req.Interest,
		EntityKind:  req.EntityKind,
		EntityID:    strings.TrimSpace(req.EntityID),
		Message:     message,
		Status:      InquiryStatusQueued,
		Checksum:    checksum,
	}

	if err := s.repo.Create(ctx, &inquiry); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		observability.InquirySubmissions().WithLabelValues(req.Interest, "error").Inc()
		return dto.InquiryResponse{}, err
	}

	if err := s.delivery.Deliver(ctx, inquiry); err != nil {
		span.RecordError(err)
		s.logger.Warn().Err(err).Str("reference_id", inquiry.ReferenceID).Msg("inquiry delivery failed")
		observability.InquirySubmissions().WithLabelValues(req.Interest, InquiryStatusQueued).Inc()
		return dto.InquiryResponse{ReferenceID: inquiry.ReferenceID, Status: InquiryStatusQueued}, nil
	}

	deliveredAt := s.now().UTC()
	if err := s.repo.UpdateStatus(ctx, inquiry.ID, InquiryStatusDelivered, &deliveredAt); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "status update failed")
		observability.InquirySubmissions().WithLabelValues(req.Interest, "error").Inc()
		return dto.InquiryResponse{}, err
	}

	observability.InquirySubmissions().WithLabelValues(req.Interest, InquiryStatusDelivered).Inc()
	s.logger.Info().
		Str("reference_id", inquiry.ReferenceID).
		Str("email", maskEmailAddress(inquiry.Email)).
		Msg("inquiry processed")
	span.SetStatus(codes.Ok, "delivered")

	return dto.InquiryResponse{ReferenceID: inquiry.ReferenceID, Status: InquiryStatusDelivered}, nil
}
