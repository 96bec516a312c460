package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"launcher-proxy/internal/audit"
)

// AuditHandler lists the most recent communication log entries.
type AuditHandler struct {
	ring *audit.Ring
}

// NewAuditHandler creates an AuditHandler.
func NewAuditHandler(ring *audit.Ring) *AuditHandler {
	return &AuditHandler{ring: ring}
}

type auditResponse struct {
	Entries []audit.Entry `json:"entries"`
}

// List returns retained entries oldest first. The optional "type" query
// parameter keeps only entries of that type (Error or Rejected).
func (h *AuditHandler) List(c echo.Context) error {
	entries := h.ring.Entries()

	if typ := c.QueryParam("type"); typ != "" {
		filtered := entries[:0]
		for _, e := range entries {
			if string(e.Type) == typ {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	return c.JSON(http.StatusOK, auditResponse{Entries: entries})
}
