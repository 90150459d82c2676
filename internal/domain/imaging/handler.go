package imaging

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/cdareport/internal/platform/auth"
	"github.com/ehr/cdareport/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleViewer, auth.RoleReporter))
	read.GET("/patients", h.SearchPatients)
	read.GET("/patients/:id", h.GetPatient)
	read.GET("/patients/:id/studies", h.ListStudies)
	read.GET("/studies/:uid", h.GetStudy)

	write := api.Group("", auth.RequireRole(auth.RoleAdmin))
	write.POST("/imaging/import", h.Import)
}

func (h *Handler) SearchPatients(c echo.Context) error {
	patients, err := h.svc.SearchPatients(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, pagination.FromContext(c), c.Request().URL))
}

func (h *Handler) GetPatient(c echo.Context) error {
	p, err := h.svc.GetPatient(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if p.IsZero() {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListStudies(c echo.Context) error {
	studies, err := h.svc.ListStudies(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if studies == nil {
		studies = []*Study{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(studies, pagination.FromContext(c), c.Request().URL))
}

func (h *Handler) GetStudy(c echo.Context) error {
	st, err := h.svc.GetStudy(c.Request().Context(), c.Param("uid"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if st.IsZero() {
		return echo.NewHTTPError(http.StatusNotFound, "study not found")
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) Import(c echo.Context) error {
	var b Batch
	if err := c.Bind(&b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Import(c.Request().Context(), b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int{
		"patients": len(b.Patients),
		"studies":  len(b.Studies),
	})
}
