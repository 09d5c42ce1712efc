package handler

import (
	"net/http"
	"time"

	"stocksync-service/pkg/database"
	"stocksync-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// HealthCheck handles the health check endpoint
func HealthCheck(c echo.Context) error {
	log := logger.FromContext(c)

	// Basic response
	response := map[string]interface{}{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	}

	// Check database connection if requested
	if c.QueryParam("check") == "db" {
		sqlDB, err := database.GetDB().DB()
		if err != nil {
			log.Error("Database connection error", zap.Error(err))
			response["status"] = "error"
			response["db_status"] = "error"
			return c.JSON(http.StatusInternalServerError, response)
		}

		// Ping database to check connection
		if err := sqlDB.Ping(); err != nil {
			log.Error("Database ping error", zap.Error(err))
			response["status"] = "error"
			response["db_status"] = "error"
			return c.JSON(http.StatusInternalServerError, response)
		}

		// Database is healthy
		response["db_status"] = "ok"
	}

	return c.JSON(http.StatusOK, response)
}
