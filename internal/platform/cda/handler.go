package cda

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler provides HTTP endpoints for checking and reading CDA documents.
type Handler struct {
	validator *Validator
	parser    *Parser
	schemaRef string
}

// NewHandler creates a new CDA handler. Documents posted for validation are
// checked against schemaRef.
func NewHandler(validator *Validator, parser *Parser, schemaRef string) *Handler {
	return &Handler{
		validator: validator,
		parser:    parser,
		schemaRef: schemaRef,
	}
}

// RegisterRoutes registers CDA endpoints on the provided route group.
//
//	POST /api/v1/cda/validate - Validate a document against the configured schema
//	POST /api/v1/cda/parse    - Summarize a document
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/cda/validate", h.Validate)
	g.POST("/cda/parse", h.Parse)
}

// Validate handles POST /api/v1/cda/validate. The response is 200 with the
// verdict for valid or skipped documents and 422 with the verdict otherwise.
func (h *Handler) Validate(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "failed to read request body",
		})
	}

	res := h.validator.Validate(body, h.schemaRef)
	if !res.Valid {
		return c.JSON(http.StatusUnprocessableEntity, res)
	}
	return c.JSON(http.StatusOK, res)
}

// Parse handles POST /api/v1/cda/parse.
func (h *Handler) Parse(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "failed to read request body",
		})
	}

	summary, err := h.parser.Parse(body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "failed to parse CDA: " + err.Error(),
		})
	}

	return c.JSON(http.StatusOK, summary)
}
