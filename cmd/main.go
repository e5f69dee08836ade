package main

import (
	"bomserver/internal/handler"
	mid "bomserver/internal/middleware"
	"bomserver/pkg/config"
	"bomserver/pkg/database"
	"bomserver/pkg/logger"
	"bomserver/prometheus"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		// Can't use structured logger yet since it's not initialized
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	logger.InitLogger(appConfig)
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting bomserver",
		zap.String("environment", appConfig.Server.Env),
		zap.String("port", appConfig.Server.Port))

	// Initialize Prometheus metrics
	prometheus.InitMetrics(appConfig)
	log.Info("Prometheus metrics initialized",
		zap.String("metrics_prefix", appConfig.Metrics.Prefix))

	// Initialize database
	if err := database.InitDB(appConfig); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Wire handler package configuration
	handler.Init(appConfig)

	// Initialize Echo instance
	e := echo.New()
	e.Validator = handler.NewValidator()

	// Middleware
	e.Use(middleware.Recover())
	e.Use(mid.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(mid.MetricsMiddleware)
	e.Use(mid.SessionMiddleware(appConfig.Session.CookieName))

	// Metrics endpoint
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	// Auth routes
	authAPI := e.Group("/api/auth")
	authAPI.POST("/register", handler.Register)
	authAPI.POST("/login", handler.Login)
	authAPI.POST("/logout", handler.Logout, mid.RequireAuth)
	authAPI.GET("/me", handler.Me, mid.RequireAuth)

	// Category API routes - reads are public-aware, mutations need a session
	categoryAPI := e.Group("/api/categories")
	categoryAPI.GET("", handler.ListCategories)
	categoryAPI.GET("/:id", handler.GetCategory)
	categoryAPI.POST("", handler.CreateCategory, mid.RequireAuth)
	categoryAPI.PUT("/:id", handler.UpdateCategory, mid.RequireAuth)
	categoryAPI.PUT("/:id/parent", handler.ReparentCategory, mid.RequireAuth)
	categoryAPI.DELETE("/:id", handler.DeleteCategory, mid.RequireAuth)
	categoryAPI.GET("/duplicates", handler.ListDuplicateRoots, mid.RequireAdmin)
	categoryAPI.POST("/duplicates/resolve", handler.ResolveDuplicateRoots, mid.RequireAdmin)
	categoryAPI.GET("/orphans", handler.ListOrphanCategories, mid.RequireAdmin)

	// Part API routes
	partAPI := e.Group("/api/parts")
	partAPI.GET("", handler.ListParts)
	partAPI.GET("/:id", handler.GetPart)
	partAPI.GET("/:id/versions", handler.ListPartVersions)
	partAPI.POST("", handler.CreatePart, mid.RequireAuth)
	partAPI.PUT("/:id", handler.UpdatePart, mid.RequireAuth)
	partAPI.DELETE("/:id", handler.DeletePart, mid.RequireAuth)

	// Manufacturer API routes
	manufacturerAPI := e.Group("/api/manufacturers")
	manufacturerAPI.GET("", handler.ListManufacturers)
	manufacturerAPI.GET("/:id", handler.GetManufacturer)
	manufacturerAPI.POST("", handler.CreateManufacturer, mid.RequireAuth)
	manufacturerAPI.PUT("/:id", handler.UpdateManufacturer, mid.RequireAuth)
	manufacturerAPI.PUT("/:id/custom-fields", handler.ReplaceManufacturerCustomFields, mid.RequireAuth)
	manufacturerAPI.DELETE("/:id", handler.DeleteManufacturer, mid.RequireAuth)

	// Supplier API routes
	supplierAPI := e.Group("/api/suppliers")
	supplierAPI.GET("", handler.ListSuppliers)
	supplierAPI.GET("/:id", handler.GetSupplier)
	supplierAPI.POST("", handler.CreateSupplier, mid.RequireAuth)
	supplierAPI.PUT("/:id", handler.UpdateSupplier, mid.RequireAuth)
	supplierAPI.PUT("/:id/custom-fields", handler.ReplaceSupplierCustomFields, mid.RequireAuth)
	supplierAPI.DELETE("/:id", handler.DeleteSupplier, mid.RequireAuth)

	// Project API routes
	projectAPI := e.Group("/api/projects")
	projectAPI.GET("", handler.ListProjects)
	projectAPI.GET("/:id", handler.GetProject)
	projectAPI.POST("", handler.CreateProject, mid.RequireAuth)
	projectAPI.PUT("/:id", handler.UpdateProject, mid.RequireAuth)
	projectAPI.DELETE("/:id", handler.DeleteProject, mid.RequireAuth)

	// Custom field definitions - admin managed
	fieldAPI := e.Group("/api/custom-fields")
	fieldAPI.GET("", handler.ListCustomFields)
	fieldAPI.POST("", handler.CreateCustomField, mid.RequireAdmin)
	fieldAPI.DELETE("/:id", handler.DeleteCustomField, mid.RequireAdmin)

	// Start server
	port := appConfig.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Server error", zap.Error(err))
	}
}
