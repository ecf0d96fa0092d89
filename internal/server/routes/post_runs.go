package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/docustitch/backend/internal/queue"
	"github.com/docustitch/backend/internal/server/middleware"
	"github.com/docustitch/backend/internal/storage"
	"github.com/docustitch/backend/pkg/logger"
)

// CreateRunHandler creates a summarization run for a document and enqueues
// it for the worker.
func CreateRunHandler(c echo.Context) error {
	type createRunBody struct {
		Budget int             `json:"budget" validate:"required,gt=0"`
		Params queue.RunParams `json:"params"`
	}

	type createRunResponse struct {
		Message string       `json:"message"`
		Run     *storage.Run `json:"run,omitempty"`
	}

	data := new(createRunBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, createRunResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, createRunResponse{
			Message: "Invalid request body",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	doc, err := app.Store.GetDocument(ctx, c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		return c.JSON(http.StatusNotFound, createRunResponse{Message: "Document not found"})
	}
	if err != nil {
		logger.Error("Failed to get document", "err", err)
		return c.JSON(http.StatusInternalServerError, createRunResponse{Message: "Internal server error"})
	}

	params, err := json.Marshal(data.Params)
	if err != nil {
		return c.JSON(http.StatusBadRequest, createRunResponse{Message: "Invalid run params"})
	}

	run, err := app.Store.CreateRun(ctx, doc.ID, data.Budget, params)
	if err != nil {
		logger.Error("Failed to create run", "err", err)
		return c.JSON(http.StatusInternalServerError, createRunResponse{Message: "Internal server error"})
	}

	msg, err := json.Marshal(queue.SummarizeRunMsg{RunID: run.PublicID})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, createRunResponse{Message: "Internal server error"})
	}
	if err := queue.PublishFIFO(app.Queue, queue.SummarizeQueue, msg); err != nil {
		logger.Error("Failed to enqueue run", "run", run.PublicID, "err", err)
		return c.JSON(http.StatusInternalServerError, createRunResponse{Message: "Internal server error"})
	}

	logger.Info("Run enqueued", "run", run.PublicID, "document", doc.PublicID, "budget", data.Budget)
	return c.JSON(http.StatusAccepted, createRunResponse{
		Message: "Run enqueued",
		Run:     run,
	})
}
