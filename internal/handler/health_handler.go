package handler

import (
	"net/http"

	"bomserver/pkg/database"

	"github.com/labstack/echo/v4"
)

// HealthCheck reports service and database health
func HealthCheck(c echo.Context) error {
	sqlDB, err := database.GetDB().DB()
	if err != nil || sqlDB.Ping() != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"status":   "degraded",
			"database": "unreachable",
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
