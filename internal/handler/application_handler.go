package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/globalpath-api/internal/dto"
	"github.com/noah-isme/globalpath-api/internal/lifecycle"
	"github.com/noah-isme/globalpath-api/internal/middleware"
	"github.com/noah-isme/globalpath-api/internal/service"
	"github.com/noah-isme/globalpath-api/internal/utils"
)

// ApplicationHandler exposes the applicant and reviewer application routes.
type ApplicationHandler struct {
	service service.ApplicationService
	logger  zerolog.Logger
}

// NewApplicationHandler constructs the handler.
func NewApplicationHandler(service service.ApplicationService, logger zerolog.Logger) *ApplicationHandler {
	return &ApplicationHandler{
		service: service,
		logger:  logger.With().Str("component", "application_handler").Logger(),
	}
}

// Register attaches the routes shared by applicants and reviewers. Ownership is checked by the service.
func (h *ApplicationHandler) Register(router fiber.Router) {
	authenticated := middleware.AuthOptions{RequireUser: true}
	student := middleware.AuthOptions{Role: lifecycle.RoleStudent}

	router.Get("", middleware.WithAuth(h.list, authenticated))
	router.Post("", middleware.WithAuth(h.create, student))
	router.Get("/:id", middleware.WithAuth(h.get, authenticated))
	router.Patch("/:id", middleware.WithAuth(h.updateDraft, student))
	router.Post("/:id/submit", middleware.WithAuth(h.submit, student))
}

// RegisterReviewer attaches the review pipeline routes.
func (h *ApplicationHandler) RegisterReviewer(router fiber.Router) {
	router.Get("/applications", h.list)
	router.Post("/applications/:id/transitions", h.transition)
}

func (h *ApplicationHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}

	response, err := h.service.ListFor(c.UserContext(), actorFromContext(c), dto.ApplicationListRequest{
		Page:     page,
		PageSize: pageSize,
		Status:   splitAndTrim(c.Query("status")),
	})
	if err != nil {
		return handleError(c, h.logger, err, "failed to list applications")
	}
	return utils.OK(c, response.Items, "applications retrieved", fiber.Map{"pagination": response.Pagination})
}

func (h *ApplicationHandler) create(c *fiber.Ctx) error {
	var payload dto.ApplicationCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.service.Create(c.UserContext(), actorFromContext(c), payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to create application")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "application created", response)
}

func (h *ApplicationHandler) get(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid application id")
	}

	response, err := h.service.Get(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return handleError(c, h.logger, err, "failed to load application")
	}
	return utils.SendSuccess(c, "application retrieved", response)
}

func (h *ApplicationHandler) updateDraft(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid application id")
	}

	var payload dto.ApplicationDraftUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.service.UpdateDraft(c.UserContext(), actorFromContext(c), id, payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to update application")
	}
	return utils.SendSuccess(c, "application updated", response)
}

func (h *ApplicationHandler) submit(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid application id")
	}

	var payload dto.ApplicationSubmitRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
	}

	response, err := h.service.Submit(c.UserContext(), actorFromContext(c), id, payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to submit application")
	}
	return utils.SendSuccess(c, "application submitted", response)
}

func (h *ApplicationHandler) transition(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid application id")
	}

	var payload dto.ApplicationTransitionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	actor := actorFromContext(c)
	response, err := h.service.Transition(c.UserContext(), actor, id, payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to transition application")
	}

	requestLogger(h.logger, c).Info().
		Uint("application_id", id).
		Uint("reviewer_id", actor.ID).
		Str("status", response.Status).
		Msg("application transitioned")
	return utils.SendSuccess(c, "application transitioned", response)
}
