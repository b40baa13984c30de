package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetAllAnalyses(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "50")
	offsetStr := c.DefaultQuery("offset", "0")

	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	offset, err := strconv.Atoi(offsetStr)
	if err != nil || offset < 0 {
		offset = 0
	}

	ctx := c.Request.Context()
	analyses, err := h.store.ListAnalyses(ctx, limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}

	total, err := h.store.CountAnalyses(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":   analyses,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *Handler) GetAnalysisByID(c *gin.Context) {
	analysis, err := h.store.GetAnalysis(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, analysis)
}

// DeleteAnalysis removes the analysis and its uploaded photo and stops any
// model polling for it. Job records keep their last status.
func (h *Handler) DeleteAnalysis(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	analysis, err := h.store.GetAnalysis(ctx, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.store.DeleteAnalysis(ctx, id); err != nil {
		h.respondError(c, err)
		return
	}

	h.jobs.Cancel(id)
	if h.resume != nil {
		h.resume.Skip(id)
	}
	if h.ownsUpload(analysis.ImagePath) {
		if err := os.Remove(analysis.ImagePath); err != nil && !os.IsNotExist(err) {
			h.logger.Warn().Err(err).Str("path", analysis.ImagePath).Msg("failed to remove image")
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Analysis deleted successfully"})
}

func (h *Handler) GetStatistics(c *gin.Context) {
	stats, err := h.store.Statistics(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) ownsUpload(path string) bool {
	if path == "" {
		return false
	}
	rel, err := filepath.Rel(h.uploadDir, path)
	return err == nil && !strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel)
}
