package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/subforge/subforge/internal/fetch"
	"github.com/subforge/subforge/internal/model"
	"github.com/subforge/subforge/internal/render"
	"github.com/subforge/subforge/internal/rules"
	"github.com/subforge/subforge/internal/settings"
	"github.com/subforge/subforge/internal/sub"
	"github.com/subforge/subforge/internal/template"
)

// writeError maps package error types onto HTTP statuses and the common
// JSON error body. Fetch errors carry their own status; everything else is
// a client-input problem.
func writeError(c *gin.Context, err error) {
	status := http.StatusBadRequest
	app := model.AppError{Code: "INTERNAL", Message: err.Error(), Stage: "convert"}

	var fe *fetch.FetchError
	var se *sub.ParseError
	var re *render.RenderError
	var rle *rules.ParseError
	var te *template.TemplateError
	var ce *settings.SettingsError
	switch {
	case errors.As(err, &fe):
		status = fe.Status
		app = fe.AppError
	case errors.As(err, &se):
		status = http.StatusUnprocessableEntity
		app = se.AppError
	case errors.As(err, &re):
		app = re.AppError
	case errors.As(err, &rle):
		status = http.StatusUnprocessableEntity
		app = rle.AppError
	case errors.As(err, &te):
		app = te.AppError
	case errors.As(err, &ce):
		status = http.StatusInternalServerError
		app = ce.AppError
	}

	metricsIncAppError(app.Stage, app.Code)
	c.JSON(status, model.ErrorResponse{Error: app})
}

func badRequest(c *gin.Context, code, message, hint string) {
	app := model.AppError{Code: code, Message: message, Stage: "convert", Hint: hint}
	metricsIncAppError(app.Stage, app.Code)
	c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: app})
}
