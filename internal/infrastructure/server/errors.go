package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	httpHandlers "github.com/xpresstask/core/internal/adapters/http"
	"github.com/xpresstask/core/internal/domain/entities"
	"github.com/xpresstask/core/internal/infrastructure/logger"
)

var statusByKind = map[entities.ErrorKind]int{
	entities.KindValidation:   http.StatusBadRequest,
	entities.KindUnauthorized: http.StatusUnauthorized,
	entities.KindConflict:     http.StatusConflict,
	entities.KindNotFound:     http.StatusNotFound,
	entities.KindInternal:     http.StatusInternalServerError,
}

// customErrorHandler turns handler errors into {"error": "..."} bodies
func customErrorHandler(logger *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err)
		if code == http.StatusInternalServerError {
			logger.Errorw("Internal server error", "error", err, "path", c.Request().URL.Path)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, httpHandlers.ErrorResponse{Error: msg})
		}
		if err != nil {
			logger.Errorw("Error sending response", "error", err)
		}
	}
}

func resolveError(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code >= http.StatusInternalServerError {
			return he.Code, http.StatusText(he.Code)
		}
		return he.Code, fmt.Sprint(he.Message)
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return http.StatusBadRequest, "validation failed"
	}

	kind := entities.KindOf(err)
	return statusByKind[kind], entities.MessageOf(err)
}
