package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/globalpath-api/internal/catalog"
	"github.com/noah-isme/globalpath-api/internal/dto"
	"github.com/noah-isme/globalpath-api/internal/service"
	"github.com/noah-isme/globalpath-api/internal/utils"
)

// AdminCatalogHandler exposes catalog maintenance: refreshes, freshness status and the featured flag.
type AdminCatalogHandler struct {
	service   service.CatalogService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAdminCatalogHandler constructs the handler.
func NewAdminCatalogHandler(service service.CatalogService, validate *validator.Validate, logger zerolog.Logger) *AdminCatalogHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &AdminCatalogHandler{
		service:   service,
		validator: validate,
		logger:    logger.With().Str("component", "admin_catalog_handler").Logger(),
	}
}

// Register attaches the admin catalog routes.
func (h *AdminCatalogHandler) Register(router fiber.Router) {
	router.Get("/status", h.status)
	router.Post("/:kind/refresh", h.refresh)
	router.Patch("/:kind/:id/featured", h.setFeatured)
}

func (h *AdminCatalogHandler) status(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "catalog status", h.service.Status())
}

func (h *AdminCatalogHandler) refresh(c *fiber.Ctx) error {
	kind, err := catalog.ParseKind(c.Params("kind"))
	if err != nil {
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	}

	response, err := h.service.Refresh(c.UserContext(), actorFromContext(c), kind)
	if err != nil {
		return handleError(c, h.logger, err, "catalog refresh failed")
	}
	return utils.SendSuccess(c, "catalog refreshed", response)
}

func (h *AdminCatalogHandler) setFeatured(c *fiber.Ctx) error {
	kind, err := catalog.ParseKind(c.Params("kind"))
	if err != nil {
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	}

	var payload dto.CatalogFeaturedRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.Fail(c, fiber.StatusUnprocessableEntity, "validation failed", validationDetails(err))
	}

	entity, err := h.service.SetFeatured(c.UserContext(), actorFromContext(c), kind, c.Params("id"), *payload.Featured)
	if err != nil {
		return handleError(c, h.logger, err, "failed to update featured flag")
	}
	return utils.SendSuccess(c, "featured flag updated", entity)
}
