package handlers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"tirecheck/models"
)

type submitModelRequest struct {
	ImageURL string `json:"image_url"`
}

// SubmitModel starts (or returns the running) 3D model job for an analysis.
// Analyses created without an upload can name a remote image in image_url.
func (h *Handler) SubmitModel(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	analysis, err := h.store.GetAnalysis(ctx, id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	var req submitModelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}
	if req.ImageURL != "" && !isRemoteImage(req.ImageURL) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image_url must be an http or https URL"})
		return
	}
	imagePath := analysis.ImagePath
	if imagePath == "" {
		imagePath = req.ImageURL
	}

	job, err := h.startModel(ctx, analysis.ID, imagePath)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, job)
}

// StopModel stops polling for the analysis. Job status is left unchanged.
func (h *Handler) StopModel(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.store.GetAnalysis(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}

	if h.resume != nil {
		h.resume.Skip(id)
	}
	stopped := h.jobs.Cancel(id)
	c.JSON(http.StatusOK, gin.H{"stopped": stopped})
}

func (h *Handler) GetModelJob(c *gin.Context) {
	job, err := h.jobs.Job(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// PollModelJob advances the job by one provider query.
func (h *Handler) PollModelJob(c *gin.Context) {
	job, err := h.jobs.Poll(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *Handler) startModel(ctx context.Context, analysisID, imagePath string) (models.ModelGenerationJob, error) {
	if h.resume != nil {
		h.resume.Unskip(analysisID)
	}
	// the provider call must not be cut short by the client going away
	job, err := h.jobs.Submit(context.WithoutCancel(ctx), analysisID, imagePath)
	if err != nil {
		return job, err
	}
	if err := h.jobs.Watch(h.baseCtx, job.ID); err != nil {
		h.logger.Warn().Err(err).Str("job_id", job.ID).Msg("could not start polling")
	}
	return job, nil
}

// isRemoteImage accepts absolute http(s) URLs only. Anything else would be
// read from the server's own disk by the provider.
func isRemoteImage(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
