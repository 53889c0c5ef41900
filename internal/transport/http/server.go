// Package http provides the HTTP server of the lead nurturing API.
package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/hub"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/service"
	v1 "github.com/hasebahmdai-arch/lead-nurturing-agent/internal/transport/http/v1"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/pkg/logx"
)

// NewServer creates the echo server with every /api route registered.
func NewServer(svc *service.Service, h *hub.Hub) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = v1.NewValidator()
	e.HTTPErrorHandler = errorHandler

	// Middleware
	e.Use(requestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	v1.NewHandler(svc, h).RegisterRoutes(e)
	return e
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			event := logx.Info()
			if v.Status >= http.StatusInternalServerError {
				event = logx.Error().Err(v.Error)
			}
			event.Str("method", v.Method).Str("uri", v.URI).Int("status", v.Status).
				Dur("latency", v.Latency).Str("remote_ip", v.RemoteIP).Msg("request")
			return nil
		},
	})
}

// errorHandler renders errors that escape handlers, such as unknown routes,
// as {"detail": msg}.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		_ = c.JSON(he.Code, map[string]string{"detail": msg})
		return
	}
	_ = v1.WriteError(c, err)
}
