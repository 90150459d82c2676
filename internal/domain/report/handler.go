package report

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ehr/cdareport/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	write := api.Group("", auth.RequireRole(auth.RoleReporter))
	write.POST("/reports", h.Create)

	read := api.Group("", auth.RequireRole(auth.RoleViewer, auth.RoleReporter))
	read.GET("/patients/:id/studies/:uid/cda", h.Document)
	read.GET("/studies/:uid/reports", h.History)
}

// Create generates a report and answers 422 with the diagnostics when the
// document fails validation.
func (h *Handler) Create(c echo.Context) error {
	var req Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.PatientID = strings.TrimSpace(req.PatientID)
	req.StudyUID = strings.TrimSpace(req.StudyUID)
	if req.PatientID == "" && req.StudyUID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id or study_uid is required")
	}

	out, err := h.svc.Produce(c.Request().Context(), req.PatientID, req.StudyUID, req.Persist)
	switch {
	case errors.Is(err, ErrRejected):
		return c.JSON(http.StatusUnprocessableEntity, out)
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	case !out.Accepted():
		return c.JSON(http.StatusUnprocessableEntity, out)
	case out.File != "":
		return c.JSON(http.StatusCreated, out)
	default:
		return c.JSON(http.StatusOK, out)
	}
}

// Document returns the generated XML itself.
func (h *Handler) Document(c echo.Context) error {
	out, err := h.svc.Produce(c.Request().Context(), c.Param("id"), c.Param("uid"), false)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !out.Accepted() {
		return c.JSON(http.StatusUnprocessableEntity, out)
	}
	c.Response().Header().Set("X-Document-Id", out.Document.DocumentID)
	return c.Blob(http.StatusOK, echo.MIMEApplicationXMLCharsetUTF8, out.Document.XML)
}

func (h *Handler) History(c echo.Context) error {
	entries, err := h.svc.History(c.Request().Context(), c.Param("uid"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, entries)
}
