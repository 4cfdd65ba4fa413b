package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/globalpath-api/internal/catalog"
	"github.com/noah-isme/globalpath-api/internal/dto"
	"github.com/noah-isme/globalpath-api/internal/service"
	"github.com/noah-isme/globalpath-api/internal/utils"
)

// CatalogHandler serves the public catalog browsing and search routes.
type CatalogHandler struct {
	service service.CatalogService
	logger  zerolog.Logger
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(service service.CatalogService, logger zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: service,
		logger:  logger.With().Str("component", "catalog_handler").Logger(),
	}
}

// Register attaches the catalog routes.
func (h *CatalogHandler) Register(router fiber.Router) {
	router.Get("/facets/:kind", h.facets)
	router.Get("/institutions/:id/programs", h.programsOf)
	router.Get("/:kind", h.list)
	router.Get("/:kind/:id", h.get)
}

// RegisterSearch attaches the header search suggestions route.
func (h *CatalogHandler) RegisterSearch(router fiber.Router) {
	router.Get("/suggestions", h.suggestions)
}

func (h *CatalogHandler) list(c *fiber.Ctx) error {
	kind, err := catalog.ParseKind(c.Params("kind"))
	if err != nil {
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	}

	page, err := parseQueryInt(c, catalog.ParamPage)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, catalog.ParamPageSize)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}

	facets, err := catalog.ParseFacetParams(kind, c.Queries())
	if err != nil {
		return handleError(c, h.logger, err, "failed to parse catalog filters")
	}

	response, err := h.service.List(c.UserContext(), dto.CatalogListRequest{
		Kind:     kind,
		Query:    c.Query(catalog.ParamQuery),
		Facets:   facets,
		Sort:     strings.TrimSpace(c.Query(catalog.ParamSort)),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return handleError(c, h.logger, err, "failed to list catalog")
	}

	meta := fiber.Map{
		"pagination": response.Pagination,
		"stale":      response.Collection.Stale,
		"fetched_at": response.Collection.FetchedAt,
		"version":    response.Collection.Version,
	}
	return utils.OK(c, response.Items, "catalog retrieved", meta)
}

func (h *CatalogHandler) get(c *fiber.Ctx) error {
	kind, err := catalog.ParseKind(c.Params("kind"))
	if err != nil {
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	}

	entity, err := h.service.Get(c.UserContext(), kind, c.Params("id"))
	if err != nil {
		return handleError(c, h.logger, err, "failed to load catalog entry")
	}
	return utils.SendSuccess(c, "catalog entry retrieved", entity)
}

func (h *CatalogHandler) programsOf(c *fiber.Ctx) error {
	programs, err := h.service.Related(c.UserContext(), catalog.KindProgram, c.Params("id"))
	if err != nil {
		return handleError(c, h.logger, err, "failed to load related programs")
	}
	return utils.SendSuccess(c, "programs retrieved", programs)
}

func (h *CatalogHandler) facets(c *fiber.Ctx) error {
	kind, err := catalog.ParseKind(c.Params("kind"))
	if err != nil {
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	}

	descriptor, err := h.service.Facets(kind)
	if err != nil {
		return handleError(c, h.logger, err, "failed to describe catalog")
	}
	return utils.SendSuccess(c, "facets retrieved", descriptor)
}

func (h *CatalogHandler) suggestions(c *fiber.Ctx) error {
	response := h.service.Suggest(c.UserContext(), c.Query("q"))
	return utils.SendSuccess(c, "suggestions retrieved", response)
}
