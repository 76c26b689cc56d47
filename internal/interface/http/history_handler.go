package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/wavlang/backend/internal/application"
	"github.com/wavlang/backend/internal/interface/middleware"
	"github.com/wavlang/backend/pkg/response"
)

// HistoryHandler exposes the transcription history endpoints.
type HistoryHandler struct {
	History *application.HistoryService
	Logger  *logrus.Logger
}

func NewHistoryHandler(history *application.HistoryService, logger *logrus.Logger) *HistoryHandler {
	return &HistoryHandler{History: history, Logger: logger}
}

// List handles GET /user/history (authenticated).
func (h *HistoryHandler) List(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserID)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	records, err := h.History.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		writeDomainError(c, h.Logger, err)
		return
	}
	out := make([]gin.H, 0, len(records))
	for _, r := range records {
		out = append(out, gin.H{
			"id":         r.ID,
			"provider":   r.Provider,
			"fileName":   r.FileName,
			"transcript": r.Transcript,
			"audioUrl":   r.AudioURL,
			"createdAt":  r.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": out})
}

// Search handles GET /history/search?q= (authenticated).
func (h *HistoryHandler) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		response.Error(c, http.StatusBadRequest, "missing query", nil)
		return
	}
	userID := c.GetString(middleware.CtxUserID)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	hits, err := h.History.Search(c.Request.Context(), userID, q, limit)
	if err != nil {
		writeDomainError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": hits})
}
