package medication

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medtrack/medtrack/internal/domain/schedule"
	"github.com/medtrack/medtrack/internal/platform/auth"
	"github.com/medtrack/medtrack/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "clinician", "patient"))
	readGroup.GET("/medications", h.List)
	readGroup.GET("/medications/:id", h.Get)
	readGroup.GET("/medications/:id/schedule", h.Timeline)

	writeGroup := api.Group("", auth.RequireRole("admin", "clinician"))
	writeGroup.POST("/medications", h.Create)
	writeGroup.PUT("/medications/:id", h.Update)
	writeGroup.PUT("/medications/:id/schedule", h.PushSchedule)
	writeGroup.PUT("/medications/:id/status", h.SetStatus)
	writeGroup.DELETE("/medications/:id", h.Delete)
}

// medicationRequest is the write payload. The schedule document is kept raw
// so the parser controls validation and error wording.
type medicationRequest struct {
	PatientID    uuid.UUID       `json:"patient_id"`
	Name         string          `json:"name"`
	Brand        *string         `json:"brand,omitempty"`
	RxNormCode   *string         `json:"rx_norm_code,omitempty"`
	Strength     *string         `json:"strength,omitempty"`
	Form         *string         `json:"form,omitempty"`
	Route        *string         `json:"route,omitempty"`
	Instructions *string         `json:"instructions,omitempty"`
	Status       string          `json:"status,omitempty"`
	Schedule     json.RawMessage `json:"schedule,omitempty"`
}

func (req *medicationRequest) toModel() *Medication {
	return &Medication{
		PatientID:    req.PatientID,
		Name:         req.Name,
		Brand:        req.Brand,
		RxNormCode:   req.RxNormCode,
		Strength:     req.Strength,
		Form:         req.Form,
		Route:        req.Route,
		Instructions: req.Instructions,
		Status:       req.Status,
	}
}

func (h *Handler) Create(c echo.Context) error {
	var req medicationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m := req.toModel()
	if err := h.svc.Create(c.Request().Context(), m, req.Schedule); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	m, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "medication not found")
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	patientID, err := uuid.Parse(c.QueryParam("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id is required")
	}
	items, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req medicationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m := req.toModel()
	m.ID = id
	if err := h.svc.Update(c.Request().Context(), m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) PushSchedule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	raw, err := readBody(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m, err := h.svc.PushSchedule(c.Request().Context(), id, raw)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) SetStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SetStatus(c.Request().Context(), id, req.Status); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// occurrenceView is the wire shape of one predicted dose.
type occurrenceView struct {
	SlotID   int        `json:"slot_id,omitempty"`
	Date     string     `json:"date,omitempty"`
	At       *time.Time `json:"at,omitempty"`
	NotifyAt *time.Time `json:"notify_at,omitempty"`
}

type timelineResponse struct {
	Start       string           `json:"start"`
	End         string           `json:"end"`
	Summary     []string         `json:"summary,omitempty"`
	Occurrences []occurrenceView `json:"occurrences"`
}

func (h *Handler) Timeline(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	start, end := c.QueryParam("start"), c.QueryParam("end")
	if start == "" || end == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "start and end are required")
	}
	userID := auth.UserIDFromContext(c.Request().Context())
	occurrences, summary, err := h.svc.Timeline(c.Request().Context(), id, start, end, userID)
	if err != nil {
		if errors.Is(err, schedule.ErrInvalidDateRange) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusNotFound, "medication not found")
	}

	views := make([]occurrenceView, 0, len(occurrences))
	for _, occ := range occurrences {
		v := occurrenceView{SlotID: occ.SlotID}
		if occ.DateOnly {
			v.Date = occ.Date
		} else {
			at := occ.At
			v.At = &at
			if !occ.NotifyAt.IsZero() {
				notify := occ.NotifyAt
				v.NotifyAt = &notify
			}
		}
		views = append(views, v)
	}
	return c.JSON(http.StatusOK, timelineResponse{Start: start, End: end, Summary: summary, Occurrences: views})
}

func readBody(c echo.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(c.Request().Body).Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}
