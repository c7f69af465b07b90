package api

import (
	"github.com/gin-gonic/gin"

	"gharsense/config"
	"gharsense/internal/database"
)

func SetupRoutes(router *gin.Engine, db *database.Database, cfg *config.Config, localities *config.Localities) {
	handler := NewHandler(db, cfg, localities, nil)

	api := router.Group("/api")
	{
		api.GET("/health", handler.GetHealth)
		api.GET("/stats", handler.GetStats)
		api.GET("/models", handler.GetModels)
		api.POST("/predict", handler.Predict)
	}
}
