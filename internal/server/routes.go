package server

import (
	"github.com/labstack/echo/v4"

	"github.com/docustitch/backend/internal/server/middleware"
	"github.com/docustitch/backend/internal/server/routes"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Document routes
	apiRoutes.GET("/documents", routes.GetDocumentsHandler, middleware.RequirePermission("document.view"))
	apiRoutes.POST("/documents", routes.CreateDocumentHandler, middleware.RequirePermission("document.create"))
	apiRoutes.GET("/documents/:id", routes.GetDocumentHandler, middleware.RequirePermission("document.view"))
	apiRoutes.GET("/documents/:id/sections", routes.GetDocumentSectionsHandler, middleware.RequirePermission("document.view"))

	// Run routes
	apiRoutes.POST("/documents/:id/runs", routes.CreateRunHandler, middleware.RequirePermission("run.create"))
	apiRoutes.GET("/documents/:id/runs", routes.GetRunsHandler, middleware.RequirePermission("run.view"))
	apiRoutes.GET("/runs/:run_id", routes.GetRunHandler, middleware.RequirePermission("run.view"))
	apiRoutes.GET("/runs/:run_id/summary", routes.GetRunSummaryHandler, middleware.RequirePermission("run.view"))
	apiRoutes.GET("/runs/:run_id/graph", routes.GetRunGraphHandler, middleware.RequirePermission("run.view"))
}
