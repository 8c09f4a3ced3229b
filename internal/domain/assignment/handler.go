package assignment

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/wardtrack/wardtrack/internal/domain/user"
	"github.com/wardtrack/wardtrack/internal/platform/auth"
	"github.com/wardtrack/wardtrack/internal/platform/db"
	"github.com/wardtrack/wardtrack/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/patients/reassign-attending", h.Reassign)

	api.POST("/assignments", h.Create)
	api.GET("/assignments/:id", h.Get)
	api.PUT("/assignments/:id", h.Update)
	api.DELETE("/assignments/:id", h.Delete)
	api.GET("/patients/:id/assignments", h.ListByPatient)
	api.GET("/providers/:id/assignments", h.ListByProvider)
}

// writeError maps domain errors onto HTTP statuses. Only validation
// failures are the caller's fault; anything unclassified is a 500.
func writeError(err error) error {
	switch {
	case errors.Is(err, errInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrUserNotFound):
		return echo.NewHTTPError(http.StatusBadRequest, "target user not found")
	case errors.Is(err, user.ErrPlaceholderMissing):
		return echo.NewHTTPError(http.StatusInternalServerError, "placeholder user is missing")
	case db.IsNotFound(err):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case db.IsRetryable(err):
		return echo.NewHTTPError(http.StatusConflict, "concurrent update, retry the request")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

type reassignRequest struct {
	PatientIDs  []uuid.UUID `json:"patient_ids"`
	AttendingID *uuid.UUID  `json:"attending_id"`
	Clear       bool        `json:"clear"`
}

type reassignResponse struct {
	Changed int    `json:"changed"`
	Warning string `json:"warning,omitempty"`
}

func (h *Handler) Reassign(c echo.Context) error {
	var req reassignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	target := ReassignTarget{AttendingID: req.AttendingID, Clear: req.Clear}
	actor := auth.UserIDFromContext(c.Request().Context())

	changed, err := h.svc.Reassign(c.Request().Context(), req.PatientIDs, target, actor)
	if err != nil {
		if errors.Is(err, ErrNoTarget) {
			return c.JSON(http.StatusOK, reassignResponse{Changed: 0, Warning: "no reassignment target given"})
		}
		return writeError(err)
	}
	return c.JSON(http.StatusOK, reassignResponse{Changed: changed})
}

func (h *Handler) Create(c echo.Context) error {
	var a Assignment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateAssignment(c.Request().Context(), &a); err != nil {
		return writeError(err)
	}
	return c.JSON(http.StatusCreated, &a)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.GetAssignment(c.Request().Context(), id)
	if err != nil {
		return writeError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var a Assignment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a.ID = id
	if err := h.svc.UpdateAssignment(c.Request().Context(), &a); err != nil {
		return writeError(err)
	}
	return c.JSON(http.StatusOK, &a)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteAssignment(c.Request().Context(), id); err != nil {
		return writeError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListByPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return writeError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListByProvider(c echo.Context) error {
	providerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid provider id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByProvider(c.Request().Context(), providerID, pg.Limit, pg.Offset)
	if err != nil {
		return writeError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
