package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/docustitch/backend/internal/server/middleware"
	"github.com/docustitch/backend/internal/storage"
	"github.com/docustitch/backend/pkg/logger"
)

// GetRunsHandler lists a document's runs, newest first.
func GetRunsHandler(c echo.Context) error {
	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	doc, err := app.Store.GetDocument(ctx, c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Document not found"})
	}
	if err != nil {
		logger.Error("Failed to get document", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	runs, err := app.Store.ListRuns(ctx, doc.ID)
	if err != nil {
		logger.Error("Failed to list runs", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	return c.JSON(http.StatusOK, map[string]any{"runs": runs})
}

// GetRunHandler returns one run with its full artifacts.
func GetRunHandler(c echo.Context) error {
	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	run, err := app.Store.GetRun(ctx, c.Param("run_id"))
	if errors.Is(err, storage.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Run not found"})
	}
	if err != nil {
		logger.Error("Failed to get run", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	return c.JSON(http.StatusOK, run)
}

// GetRunSummaryHandler returns the stitched (and, when present, refined)
// summary of a completed run. A run still in flight is a 409, not an
// empty summary.
func GetRunSummaryHandler(c echo.Context) error {
	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	run, err := app.Store.GetRun(ctx, c.Param("run_id"))
	if errors.Is(err, storage.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Run not found"})
	}
	if err != nil {
		logger.Error("Failed to get run", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	if run.Status != storage.RunCompleted {
		return c.JSON(http.StatusConflict, map[string]string{
			"error":  "Run not completed",
			"status": run.Status,
		})
	}

	summary := ""
	if run.Summary != nil {
		summary = *run.Summary
	}
	return c.JSON(http.StatusOK, map[string]any{
		"summary":         summary,
		"refined_summary": run.RefinedSummary,
	})
}

// GetRunGraphHandler returns the graph snapshot persisted with a completed
// run.
func GetRunGraphHandler(c echo.Context) error {
	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	run, err := app.Store.GetRun(ctx, c.Param("run_id"))
	if errors.Is(err, storage.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Run not found"})
	}
	if err != nil {
		logger.Error("Failed to get run", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	if run.Status != storage.RunCompleted || len(run.Artifacts) == 0 {
		return c.JSON(http.StatusConflict, map[string]string{
			"error":  "Run has no graph artifacts",
			"status": run.Status,
		})
	}

	var artifacts struct {
		Graph json.RawMessage `json:"graph"`
	}
	if err := json.Unmarshal(run.Artifacts, &artifacts); err != nil {
		logger.Error("Failed to decode run artifacts", "run", run.PublicID, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	return c.JSONBlob(http.StatusOK, artifacts.Graph)
}
