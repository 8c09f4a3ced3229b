package watchlist

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

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/watchlist", h.List)
	api.POST("/watchlist", h.Add)
	api.DELETE("/watchlist/:patientID", h.Remove)
}

func (h *Handler) List(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListActive(c.Request().Context(), userID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type addRequest struct {
	PatientID uuid.UUID `json:"patient_id"`
	Note      string    `json:"note"`
}

var outcomeMessages = map[EnsureOutcome]string{
	OutcomeAlreadyActive: "already watching this patient",
	OutcomeReactivated:   "watch restored",
	OutcomeCreated:       "watch added",
	OutcomeSkipped:       "watch not applicable",
}

func (h *Handler) Add(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	var req addRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.PatientID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id is required")
	}

	outcome, err := h.svc.Add(c.Request().Context(), userID, req.PatientID, req.Note)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	status := http.StatusOK
	if outcome == OutcomeCreated {
		status = http.StatusCreated
	}
	return c.JSON(status, map[string]string{
		"outcome": string(outcome),
		"message": outcomeMessages[outcome],
	})
}

func (h *Handler) Remove(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	patientID, err := uuid.Parse(c.Param("patientID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	if err := h.svc.Remove(c.Request().Context(), userID, patientID, time.Now().UTC()); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "watch not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
