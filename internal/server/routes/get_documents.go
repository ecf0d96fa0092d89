package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/docustitch/backend/internal/server/middleware"
	"github.com/docustitch/backend/internal/storage"
	"github.com/docustitch/backend/pkg/logger"
)

// GetDocumentsHandler lists all documents.
func GetDocumentsHandler(c echo.Context) error {
	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	docs, err := app.Store.ListDocuments(ctx)
	if err != nil {
		logger.Error("Failed to list documents", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	return c.JSON(http.StatusOK, map[string]any{"documents": docs})
}

// GetDocumentHandler returns one document by public id.
func GetDocumentHandler(c echo.Context) error {
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
	return c.JSON(http.StatusOK, doc)
}

// GetDocumentSectionsHandler returns a document's sections in document
// order.
func GetDocumentSectionsHandler(c echo.Context) error {
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

	sections, err := app.Store.GetSections(ctx, doc.ID)
	if err != nil {
		logger.Error("Failed to get sections", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	return c.JSON(http.StatusOK, map[string]any{"sections": sections})
}
