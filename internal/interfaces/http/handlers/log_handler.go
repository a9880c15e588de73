package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ARChemistry/internal/infrastructure/monitoring/logging"
)

// LogHandler exposes the in-memory debug log.
type LogHandler struct {
	sink *logging.MemorySink
}

// NewLogHandler creates a LogHandler over sink.
func NewLogHandler(sink *logging.MemorySink) *LogHandler {
	return &LogHandler{sink: sink}
}

// RegisterRoutes registers the log routes on rg.
func (h *LogHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/logs", h.List)
	rg.DELETE("/logs", h.Clear)
}

// LogQuery holds the query parameters of GET /logs.
type LogQuery struct {
	Level string `form:"level" binding:"omitempty,oneof=DEBUG INFO WARNING ERROR FATAL debug info warning error fatal"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=10000"`
}

// LogResponse is the body of GET /logs.
type LogResponse struct {
	Entries []logging.Entry `json:"entries"`
	Count   int             `json:"count"`
	Dropped int64           `json:"dropped"`
}

// List handles GET /logs.  Entries are oldest first; limit keeps the newest.
func (h *LogHandler) List(c *gin.Context) {
	var q LogQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeAppError(c, bindError(err))
		return
	}

	entries := h.sink.Entries()
	if q.Level != "" {
		level := strings.ToUpper(q.Level)
		filtered := entries[:0]
		for _, e := range entries {
			if e.Level == level {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	if q.Limit > 0 && len(entries) > q.Limit {
		entries = entries[len(entries)-q.Limit:]
	}

	c.JSON(http.StatusOK, LogResponse{Entries: entries, Count: len(entries), Dropped: h.sink.Dropped()})
}

// Clear handles DELETE /logs.
func (h *LogHandler) Clear(c *gin.Context) {
	h.sink.Clear()
	c.Status(http.StatusNoContent)
}
