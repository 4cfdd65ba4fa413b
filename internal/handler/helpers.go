package handler

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/globalpath-api/internal/catalog"
	"github.com/noah-isme/globalpath-api/internal/lifecycle"
	"github.com/noah-isme/globalpath-api/internal/middleware"
	"github.com/noah-isme/globalpath-api/internal/repository"
	"github.com/noah-isme/globalpath-api/internal/service"
	"github.com/noah-isme/globalpath-api/internal/utils"
)

func splitAndTrim(input string) []string {
	parts := strings.Split(input, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

func parseIDParam(c *fiber.Ctx, key string) (uint, error) {
	parsed, err := strconv.ParseUint(strings.TrimSpace(c.Params(key)), 10, 64)
	if err != nil || parsed == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(parsed), nil
}

func userIDFromContext(c *fiber.Ctx) uint {
	switch id := c.Locals("user_id").(type) {
	case uint:
		return id
	case int:
		if id > 0 {
			return uint(id)
		}
	case string:
		if parsed, err := strconv.ParseUint(strings.TrimSpace(id), 10, 64); err == nil {
			return uint(parsed)
		}
	}
	return 0
}

func userRoleFromContext(c *fiber.Ctx) string {
	if role, ok := c.Locals("user_role").(string); ok {
		return strings.ToLower(strings.TrimSpace(role))
	}
	return ""
}

func actorFromContext(c *fiber.Ctx) lifecycle.Actor {
	actor := lifecycle.Actor{
		ID:   userIDFromContext(c),
		Role: userRoleFromContext(c),
	}
	if name, ok := c.Locals("user_name").(string); ok {
		actor.Name = name
	}
	return actor
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

func validationDetails(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make(map[string]string, len(validationErrors))
		for _, fieldErr := range validationErrors {
			details[fieldErr.Field()] = fieldErr.Tag()
		}
		return details
	}
	var lifecycleErr *lifecycle.ValidationError
	if errors.As(err, &lifecycleErr) {
		return map[string]string{lifecycleErr.Field: lifecycleErr.Message}
	}
	return nil
}

// handleError maps domain errors onto the HTTP status taxonomy. Storage and transport failures
// surface as 503 with a retry prompt; anything else is logged and reported as 500.
func handleError(c *fiber.Ctx, logger zerolog.Logger, err error, fallback string) error {
	var fetchErr *catalog.FetchError
	switch {
	case errors.Is(err, service.ErrApplicationNotFound),
		errors.Is(err, catalog.ErrEntityNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrApplicationForbidden),
		errors.Is(err, lifecycle.ErrNotPermitted):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, repository.ErrApplicationConflict),
		errors.Is(err, service.ErrApplicationNotEditable):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case isValidationError(err), errors.Is(err, lifecycle.ErrValidation):
		return utils.Fail(c, fiber.StatusUnprocessableEntity, "validation failed", validationDetails(err))
	case errors.Is(err, catalog.ErrUnknownKind),
		errors.Is(err, catalog.ErrUnknownFacet),
		errors.Is(err, catalog.ErrUnknownSort),
		errors.Is(err, catalog.ErrInvalidConstraint),
		errors.Is(err, catalog.ErrNoRelation),
		errors.Is(err, catalog.ErrInvalidDocument),
		errors.Is(err, service.ErrCatalogReference):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.As(err, &fetchErr):
		requestLogger(logger, c).Warn().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusServiceUnavailable, "catalog source unavailable, retry later")
	case isTransientError(err):
		requestLogger(logger, c).Warn().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusServiceUnavailable, fallback+", please retry")
	default:
		requestLogger(logger, c).Error().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}

// isTransientError reports storage and transport failures that left nothing applied.
func isTransientError(err error) bool {
	if errors.Is(err, service.ErrPersistence) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
