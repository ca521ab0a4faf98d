package adherence

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medtrack/medtrack/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	group := api.Group("", auth.RequireRole("admin", "clinician", "patient"))
	group.GET("/patients/:id/adherence", h.Report)
	group.GET("/patients/:id/adherence/daily", h.DailyReport)
}

func (h *Handler) Report(c echo.Context) error {
	patientID, medicationID, start, end, err := reportParams(c)
	if err != nil {
		return err
	}
	userID := auth.UserIDFromContext(c.Request().Context())
	report, err := h.svc.Report(c.Request().Context(), patientID, medicationID, start, end, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) DailyReport(c echo.Context) error {
	patientID, medicationID, start, end, err := reportParams(c)
	if err != nil {
		return err
	}
	userID := auth.UserIDFromContext(c.Request().Context())
	days, err := h.svc.DailyReport(c.Request().Context(), patientID, medicationID, start, end, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"days": days})
}

func reportParams(c echo.Context) (uuid.UUID, *uuid.UUID, string, string, error) {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, nil, "", "", echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	start, end := c.QueryParam("start"), c.QueryParam("end")
	if start == "" || end == "" {
		return uuid.Nil, nil, "", "", echo.NewHTTPError(http.StatusBadRequest, "start and end are required")
	}
	var medicationID *uuid.UUID
	if raw := c.QueryParam("medication_id"); raw != "" {
		mid, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, nil, "", "", echo.NewHTTPError(http.StatusBadRequest, "invalid medication_id")
		}
		medicationID = &mid
	}
	return patientID, medicationID, start, end, nil
}
