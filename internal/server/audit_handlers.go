package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/voyago-dev/voyago/internal/audit"
	"github.com/voyago-dev/voyago/internal/models"
)

// @Summary List audit entries
// @Description Most recent proxied admin mutations first
// @Tags admin
// @Produce json
// @Param actor query string false "Filter by actor user ID"
// @Param limit query int false "Maximum entries (default 50, max 500)"
// @Success 200 {object} Response
// @Failure 403 {object} Response
// @Router /api/admin/audit [get]
func (s *Server) listAuditEntries(c *gin.Context) {
	filter := audit.ListFilter{Actor: c.Query("actor")}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			respondFailure(c, http.StatusBadRequest, "limit must be a positive integer", "")
			return
		}
		filter.Limit = limit
	}

	entries, err := s.audit.List(c.Request.Context(), filter)
	if err != nil {
		s.logger.Error().Err(err).Str("request_id", requestID(c)).Msg("Failed to list audit entries")
		respondFailure(c, http.StatusInternalServerError, "Failed to list audit entries", "")
		return
	}

	if entries == nil {
		entries = []models.AuditEntry{}
	}
	respondData(c, http.StatusOK, entries, "")
}

// @Summary Get audit entry
// @Tags admin
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /api/admin/audit/{id} [get]
func (s *Server) getAuditEntry(c *gin.Context) {
	entry, err := s.audit.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, audit.ErrNotFound) {
		respondFailure(c, http.StatusNotFound, "Audit entry not found", "")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("request_id", requestID(c)).Msg("Failed to get audit entry")
		respondFailure(c, http.StatusInternalServerError, "Failed to get audit entry", "")
		return
	}

	respondData(c, http.StatusOK, entry, "")
}
