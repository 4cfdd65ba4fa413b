package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/globalpath-api/internal/dto"
	"github.com/noah-isme/globalpath-api/internal/middleware"
	"github.com/noah-isme/globalpath-api/internal/service"
	"github.com/noah-isme/globalpath-api/internal/utils"
)

// NotifierSource hands out the per-reviewer change notifier.
type NotifierSource interface {
	Get(ctx context.Context, reviewerID uint) (*service.ChangeNotifier, error)
}

// NotificationHandler exposes the reviewer "new applications" badge.
type NotificationHandler struct {
	notifiers NotifierSource
	logger    zerolog.Logger
	keepAlive time.Duration
}

// NewNotificationHandler constructs a handler instance.
func NewNotificationHandler(notifiers NotifierSource, logger zerolog.Logger, keepAlive time.Duration) *NotificationHandler {
	if keepAlive <= 0 {
		keepAlive = 30 * time.Second
	}
	return &NotificationHandler{
		notifiers: notifiers,
		logger:    logger.With().Str("component", "notification_handler").Logger(),
		keepAlive: keepAlive,
	}
}

// Register binds the notification routes.
func (h *NotificationHandler) Register(router fiber.Router) {
	router.Get("", h.current)
	router.Post("/ack", h.acknowledge)
	router.Get("/stream", h.stream)
}

func (h *NotificationHandler) notifier(c *fiber.Ctx) (*service.ChangeNotifier, error) {
	reviewerID := userIDFromContext(c)
	if reviewerID == 0 {
		return nil, utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}
	ctx := middleware.ContextWithCorrelation(c.UserContext(), middleware.GetCorrelationID(c))
	notifier, err := h.notifiers.Get(ctx, reviewerID)
	if err != nil {
		return nil, handleError(c, h.logger, err, "failed to load reviewer notifications")
	}
	return notifier, nil
}

func (h *NotificationHandler) current(c *fiber.Ctx) error {
	notifier, err := h.notifier(c)
	if notifier == nil {
		return err
	}
	return utils.SendSuccess(c, "notifications", notifier.Snapshot())
}

func (h *NotificationHandler) acknowledge(c *fiber.Ctx) error {
	notifier, err := h.notifier(c)
	if notifier == nil {
		return err
	}

	state, err := notifier.Acknowledge(c.UserContext())
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("checkpoint not persisted")
		return utils.OK(c, state, "notifications acknowledged", fiber.Map{"persisted": false})
	}
	return utils.OK(c, state, "notifications acknowledged", fiber.Map{"persisted": true})
}

func (h *NotificationHandler) stream(c *fiber.Ctx) error {
	notifier, err := h.notifier(c)
	if notifier == nil {
		return err
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	updates, cleanup := notifier.Subscribe()
	initial := notifier.Snapshot()
	keepAlive := h.keepAlive
	logger := *requestLogger(h.logger, c)

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cleanup()

		if err := writeNotificationEvent(w, initial); err != nil {
			return
		}

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		for {
			select {
			case state, ok := <-updates:
				if !ok {
					return
				}
				if err := writeNotificationEvent(w, state); err != nil {
					logger.Debug().Err(err).Msg("failed to write notification event")
					return
				}
			case <-ticker.C:
				if err := writeKeepAlive(w); err != nil {
					logger.Debug().Err(err).Msg("notification stream closed")
					return
				}
			}
		}
	})

	return nil
}

func writeNotificationEvent(w *bufio.Writer, state dto.ReviewerNotificationResponse) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: new_applications\ndata: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}

func writeKeepAlive(w *bufio.Writer) error {
	if _, err := fmt.Fprintf(w, ": keep-alive %s\n\n", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return w.Flush()
}
