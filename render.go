package folio

import (
	"errors"
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/logger"
	"github.com/eringen/folio/store"
)

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return cmp.Render(c.Request().Context(), c.Response().Writer)
}

type messageResponse struct {
	Message string `json:"message"`
}

func jsonMessage(c echo.Context, code int, msg string) error {
	return c.JSON(code, messageResponse{Message: msg})
}

// apiError maps store errors onto JSON responses. notFound is the message
// used for store.ErrNotFound.
func apiError(c echo.Context, err error, notFound string) error {
	var ve *store.ValidationError
	switch {
	case errors.Is(err, store.ErrNotFound):
		return jsonMessage(c, http.StatusNotFound, notFound)
	case errors.As(err, &ve):
		return jsonMessage(c, http.StatusBadRequest, ve.Message)
	default:
		logger.ErrorWithFields("api error", logger.Fields{
			"method": c.Request().Method,
			"path":   c.Request().URL.Path,
			"error":  err.Error(),
		})
		return jsonMessage(c, http.StatusInternalServerError, "Internal server error")
	}
}
