package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/docustitch/backend/internal/server/middleware"
	"github.com/docustitch/backend/internal/storage"
	"github.com/docustitch/backend/pkg/common"
	"github.com/docustitch/backend/pkg/logger"
	"github.com/docustitch/backend/pkg/section"
)

// CreateDocumentHandler ingests a pre-parsed document: sections, citation
// refs and an optional lexicon. The section forest is validated before
// anything is stored, so malformed input is a 400 and never a half-written
// document.
func CreateDocumentHandler(c echo.Context) error {
	type createDocumentBody struct {
		Title     string               `json:"title" validate:"required"`
		Sections  []common.Section     `json:"sections" validate:"required,min=1"`
		Citations []common.CitationRef `json:"citations"`
		Lexicon   common.Lexicon       `json:"lexicon"`
	}

	type createDocumentResponse struct {
		Message  string            `json:"message"`
		Document *storage.Document `json:"document,omitempty"`
	}

	data := new(createDocumentBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, createDocumentResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, createDocumentResponse{
			Message: "Invalid request body",
		})
	}

	if _, err := section.NewStore(data.Sections); err != nil {
		var malformed *section.MalformedInputError
		if errors.As(err, &malformed) {
			return c.JSON(http.StatusBadRequest, createDocumentResponse{
				Message: malformed.Error(),
			})
		}
		return c.JSON(http.StatusBadRequest, createDocumentResponse{
			Message: "Invalid sections",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	doc, err := app.Store.CreateDocument(ctx, data.Title, data.Sections, data.Citations, data.Lexicon)
	if err != nil {
		logger.Error("Failed to create document", "err", err)
		return c.JSON(http.StatusInternalServerError, createDocumentResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusCreated, createDocumentResponse{
		Message:  "Document created",
		Document: doc,
	})
}
