package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"tirecheck/logging"
)

func NewRouter(h *Handler, logger zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), logging.Middleware(logger))

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	router.MaxMultipartMemory = 10 << 20

	api := router.Group("/api")
	{
		api.POST("/analyze", h.Analyze)

		api.GET("/history", h.GetAllAnalyses)
		api.GET("/history/:id", h.GetAnalysisByID)
		api.DELETE("/history/:id", h.DeleteAnalysis)

		api.POST("/history/:id/model", h.SubmitModel)
		api.DELETE("/history/:id/model", h.StopModel)
		api.GET("/model-jobs/:id", h.GetModelJob)
		api.POST("/model-jobs/:id/poll", h.PollModelJob)

		api.GET("/statistics", h.GetStatistics)
	}

	router.Static("/uploads", h.uploadDir)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "Tire Health API",
		})
	})

	return router
}
