package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/globalpath-api/internal/dto"
	"github.com/noah-isme/globalpath-api/internal/service"
	"github.com/noah-isme/globalpath-api/internal/utils"
)

// InquiryHandler handles the public consultation form.
type InquiryHandler struct {
	service service.InquiryService
	logger  zerolog.Logger
}

// NewInquiryHandler constructs an inquiry handler.
func NewInquiryHandler(service service.InquiryService, logger zerolog.Logger) *InquiryHandler {
	return &InquiryHandler{
		service: service,
		logger:  logger.With().Str("component", "inquiry_handler").Logger(),
	}
}

// Register wires inquiry routes.
func (h *InquiryHandler) Register(router fiber.Router) {
	router.Post("", h.submit)
}

func (h *InquiryHandler) submit(c *fiber.Ctx) error {
	var payload dto.InquiryRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.service.Submit(c.UserContext(), payload)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInquirySpam), errors.Is(err, service.ErrInquiryEmpty):
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		case errors.Is(err, service.ErrInquiryReference):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrInquiryDuplicate):
			return utils.SendError(c, fiber.StatusTooManyRequests, "duplicate submission")
		case isValidationError(err):
			return utils.Fail(c, fiber.StatusUnprocessableEntity, "validation failed", validationDetails(err))
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to process inquiry")
			return utils.SendError(c, fiber.StatusServiceUnavailable, "failed to submit inquiry, retry later")
		}
	}

	status := fiber.StatusCreated
	if response.Status == service.InquiryStatusQueued {
		status = fiber.StatusAccepted
	}
	return utils.SendSuccessWithStatus(c, status, "inquiry received", response)
}
