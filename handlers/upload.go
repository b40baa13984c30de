package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"tirecheck/decoder"
	"tirecheck/models"
)

var allowedImageExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// Analyze assesses one tire. It accepts the recognition output as a JSON
// body, or as a multipart form with the tire photo in "image" and the
// recognition JSON in "recognition". With generate_model=true (query or
// form field) an uploaded photo is also sent for 3D reconstruction.
func (h *Handler) Analyze(c *gin.Context) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		var rec decoder.Recognition
		if err := c.ShouldBindJSON(&rec); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recognition payload"})
			return
		}
		h.finishAnalysis(c, h.engine.AssessRecognition(rec), false)
		return
	}

	header, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image file provided"})
		return
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedImageExt[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file format. Only JPG, JPEG, and PNG are allowed"})
		return
	}

	var rec decoder.Recognition
	raw := c.PostForm("recognition")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Recognition result is required"})
		return
	}
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recognition payload"})
		return
	}

	analysis := h.engine.AssessRecognition(rec)
	path := filepath.Join(h.uploadDir, analysis.ID+ext)
	if err := c.SaveUploadedFile(header, path); err != nil {
		h.logger.Error().Err(err).Str("path", path).Msg("failed to save image")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save image"})
		return
	}
	analysis.ImagePath = path
	analysis.OriginalName = header.Filename

	generateModel := c.Query("generate_model") == "true" || c.PostForm("generate_model") == "true"
	h.finishAnalysis(c, analysis, generateModel)
}

func (h *Handler) finishAnalysis(c *gin.Context, analysis models.ComprehensiveTireAnalysis, generateModel bool) {
	ctx := c.Request.Context()
	if err := h.store.SaveAnalysis(ctx, &analysis); err != nil {
		h.respondError(c, err)
		return
	}

	h.logger.Info().
		Str("analysis_id", analysis.ID).
		Float64("score", analysis.OverallHealthScore).
		Str("status", string(analysis.OverallStatus)).
		Str("action_required", string(analysis.ActionRequired)).
		Msg("tire assessed")

	if h.notifier != nil {
		h.notifier.AnalysisAssessed(context.WithoutCancel(ctx), analysis)
	}

	if generateModel {
		job, err := h.startModel(ctx, analysis.ID, analysis.ImagePath)
		if err != nil {
			h.logger.Warn().Err(err).Str("analysis_id", analysis.ID).Msg("model generation not started")
		} else {
			analysis.ModelJobID = job.ID
		}
	}

	c.JSON(http.StatusCreated, analysis)
}
