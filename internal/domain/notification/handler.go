package notification

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/wardtrack/wardtrack/internal/platform/auth"
	"github.com/wardtrack/wardtrack/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes wires the notification surface. Every route is scoped to
// the authenticated user; there is no cross-user access.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/notifications", h.List)
	api.GET("/notifications/status", h.Status)
	api.GET("/notifications/feed", h.Feed)
	api.POST("/notifications/mark-all-read", h.MarkAllRead)
	api.POST("/notifications/:id/read", h.MarkRead)
	api.POST("/notifications/:id/unread", h.MarkUnread)
	api.POST("/notifications/:id/ack", h.Acknowledge)
}

func (h *Handler) List(c echo.Context) error {
	recipientID := auth.UserIDFromContext(c.Request().Context())
	pg := pagination.FromContext(c)
	// Default is everything visible; unread is the opt-in filter.
	onlyUnread := c.QueryParam("show") == "unread"

	items, total, err := h.svc.List(c.Request().Context(), recipientID, onlyUnread, time.Now().UTC(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Status(c echo.Context) error {
	recipientID := auth.UserIDFromContext(c.Request().Context())
	b, err := h.svc.Status(c.Request().Context(), recipientID, time.Now().UTC())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) Feed(c echo.Context) error {
	recipientID := auth.UserIDFromContext(c.Request().Context())

	var afterID *uuid.UUID
	if raw := c.QueryParam("after"); raw != "" {
		// Bad cursors are ignored, not rejected; stale clients keep working.
		if id, err := uuid.Parse(raw); err == nil {
			afterID = &id
		}
	}

	items, err := h.svc.Feed(c.Request().Context(), recipientID, afterID, time.Now().UTC())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*Notification{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"items":       items,
		"server_time": time.Now().UTC(),
	})
}

func (h *Handler) MarkAllRead(c echo.Context) error {
	recipientID := auth.UserIDFromContext(c.Request().Context())
	n, err := h.svc.MarkAllRead(c.Request().Context(), recipientID, time.Now().UTC())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int64{"marked": n})
}

func (h *Handler) MarkRead(c echo.Context) error {
	return h.toggle(c, func(recipientID, id uuid.UUID) (*Notification, error) {
		return h.svc.MarkRead(c.Request().Context(), recipientID, id, time.Now().UTC())
	})
}

func (h *Handler) MarkUnread(c echo.Context) error {
	return h.toggle(c, func(recipientID, id uuid.UUID) (*Notification, error) {
		return h.svc.MarkUnread(c.Request().Context(), recipientID, id)
	})
}

func (h *Handler) Acknowledge(c echo.Context) error {
	return h.toggle(c, func(recipientID, id uuid.UUID) (*Notification, error) {
		return h.svc.Acknowledge(c.Request().Context(), recipientID, id, time.Now().UTC())
	})
}

func (h *Handler) toggle(c echo.Context, fn func(recipientID, id uuid.UUID) (*Notification, error)) error {
	recipientID := auth.UserIDFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	n, err := fn(recipientID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "notification not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, n)
}
