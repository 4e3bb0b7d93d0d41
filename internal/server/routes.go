package server

import (
	"learnsphere/internal/metrics"

	"github.com/gin-gonic/gin"
)

func (s *Server) setupRoutes() {
	gin.SetMode(s.ginMode)
	s.router = gin.New()

	s.router.Use(gin.Logger())
	s.router.Use(gin.CustomRecovery(recoveryHandler(s.config.Logger)))
	s.router.Use(requestIDMiddleware())
	s.router.Use(s.corsMiddleware())
	s.router.Use(s.maxBodySizeMiddleware())

	s.router.NoRoute(notFound)

	s.router.GET("/", s.index)
	s.router.Static("/static", s.config.StaticDir)
	s.router.GET("/audio/*filename", s.serveAudio)
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/api/stats", s.getStatsData)
	s.router.GET("/stats", metrics.ShowStatsPage)

	s.router.POST("/generate", s.rateLimitMiddleware(), s.generate)
}
