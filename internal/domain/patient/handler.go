package patient

import (
	"errors"
	"net/http"
	"time"

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
	api.POST("/patients", h.Create)
	api.GET("/patients", h.List)
	api.GET("/patients/:id", h.Get)
	api.PUT("/patients/:id", h.Update)
	api.DELETE("/patients/:id", h.Delete)
	api.POST("/patients/lifecycle", h.Lifecycle)

	api.POST("/patients/:id/signouts", h.AddSignout)
	api.GET("/patients/:id/signouts", h.ListSignouts)
	api.PUT("/signouts/:id", h.UpdateSignout)
	api.DELETE("/signouts/:id", h.DeleteSignout)

	api.POST("/patients/:id/todos", h.AddTodo)
	api.GET("/patients/:id/todos", h.ListTodos)
	api.PUT("/todos/:id", h.UpdateTodo)
	api.DELETE("/todos/:id", h.DeleteTodo)

	api.POST("/patients/:id/overnight-events", h.AddOvernightEvent)
	api.GET("/patients/:id/overnight-events", h.ListOvernightEvents)
	api.PUT("/overnight-events/:id", h.UpdateOvernightEvent)
	api.DELETE("/overnight-events/:id", h.DeleteOvernightEvent)
}

// writeError maps domain errors onto HTTP statuses. Read-only violations are
// 409: the request was well-formed, the resource state refuses it.
func writeError(err error) error {
	switch {
	case errors.Is(err, ErrPatientReadOnly):
		return echo.NewHTTPError(http.StatusConflict, "patient is read-only")
	case errors.Is(err, user.ErrPlaceholderMissing):
		return echo.NewHTTPError(http.StatusInternalServerError, "placeholder user is missing")
	case db.IsNotFound(err):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case db.IsRetryable(err):
		return echo.NewHTTPError(http.StatusConflict, "concurrent update, retry the request")
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}

func (h *Handler) Create(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), &p); err != nil {
		return writeError(err)
	}
	return c.JSON(http.StatusCreated, &p)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)

	var f ListFilter
	if raw := c.QueryParam("status"); raw != "" {
		status := Status(raw)
		f.Status = &status
	}
	if raw := c.QueryParam("attending_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid attending_id")
		}
		f.AttendingID = &id
	}
	f.MRN = c.QueryParam("mrn")

	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return writeError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = id
	if err := h.svc.Update(c.Request().Context(), &p); err != nil {
		return writeError(err)
	}
	return c.JSON(http.StatusOK, &p)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return writeError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type lifecycleRequest struct {
	IDs    []uuid.UUID `json:"ids"`
	Action string      `json:"action"`
}

func (h *Handler) Lifecycle(c echo.Context) error {
	var req lifecycleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	changed, err := h.svc.Lifecycle(c.Request().Context(), req.IDs, req.Action, time.Now().UTC())
	if err != nil {
		return writeError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"changed": changed})
}

// -- Signouts --

func (h *Handler) AddSignout(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	var so Signout
	if err := c.Bind(&so); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	so.PatientID = patientID
	if actor := auth.UserIDFromContext(c.Request().Context()); actor != uuid.Nil {
		so.CreatedBy = &actor
	}
	if err := h.svc.AddSignout(c.Request().Context(), &so); err != nil {
		return writeError(err)
	}
	return c.JSON(http.StatusCreated, &so)
}

func (h *Handler) ListSignouts(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListSignouts(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return writeError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateSignout(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var so Signout
	if err := c.Bind(&so); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	so.ID = id
	if err := h.svc.UpdateSignout(c.Request().Context(), &so); err != nil {
		return writeError(err)
	}
	return c.JSON(http.StatusOK, &so)
}

func (h *Handler) DeleteSignout(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteSignout(c.Request().Context(), id); err != nil {
		return writeError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Todos --

func (h *Handler) AddTodo(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	var t Todo
	if err := c.Bind(&t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t.PatientID = patientID
	if err := h.svc.AddTodo(c.Request().Context(), &t); err != nil {
		return writeError(err)
	}
	return c.JSON(http.StatusCreated, &t)
}

func (h *Handler) ListTodos(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListTodos(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return writeError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type todoUpdateRequest struct {
	Text        string     `json:"text"`
	IsCompleted bool       `json:"is_completed"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

func (h *Handler) UpdateTodo(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req todoUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t, err := h.svc.UpdateTodo(c.Request().Context(), id, req.Text, req.IsCompleted, req.ExpiresAt, time.Now().UTC())
	if err != nil {
		return writeError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) DeleteTodo(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteTodo(c.Request().Context(), id); err != nil {
		return writeError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Overnight events --

func (h *Handler) AddOvernightEvent(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	var e OvernightEvent
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e.PatientID = patientID
	if err := h.svc.AddOvernightEvent(c.Request().Context(), &e); err != nil {
		return writeError(err)
	}
	return c.JSON(http.StatusCreated, &e)
}

func (h *Handler) ListOvernightEvents(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListOvernightEvents(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return writeError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateOvernightEvent(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var e OvernightEvent
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e.ID = id
	if err := h.svc.UpdateOvernightEvent(c.Request().Context(), &e); err != nil {
		return writeError(err)
	}
	return c.JSON(http.StatusOK, &e)
}

func (h *Handler) DeleteOvernightEvent(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteOvernightEvent(c.Request().Context(), id); err != nil {
		return writeError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
