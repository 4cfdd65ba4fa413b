package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/globalpath-api/internal/models"
)

// LogInquiryDelivery hands inquiries to the advisor inbox by logging them.
type LogInquiryDelivery struct {
	logger zerolog.Logger
}

// NewLogInquiryDelivery constructs the logging delivery.
func NewLogInquiryDelivery(logger zerolog.Logger) *LogInquiryDelivery {
	return &LogInquiryDelivery{logger: logger.With().Str("component", "inquiry_delivery").Logger()}
}

// Deliver logs the inquiry and reports success.
func (l *LogInquiryDelivery) Deliver(ctx context.Context, inquiry models.Inquiry) error {
	l.logger.Info().
		Str("reference_id", inquiry.ReferenceID).
		Str("interest", inquiry.Interest).
		Str("email", maskEmailAddress(inquiry.Email)).
		Msg("inquiry delivered to advisor inbox")
	return nil
}
