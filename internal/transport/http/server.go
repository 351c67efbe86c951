// Package http assembles the echo server of the chat service.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/AIB0I/MyGPT/internal/service"
	v1 "github.com/AIB0I/MyGPT/internal/transport/http/v1"
	"github.com/AIB0I/MyGPT/internal/transport/ws"
)

// NewServer creates and configures the HTTP server.
// It serves the REST API and the WebSocket chat endpoint.
func NewServer(svc *service.Service, wsServer *ws.Server, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(requestLogger(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Handlers
	v1Handler := v1.NewHandler(svc)

	// Register Routes
	v1Handler.RegisterRoutes(e)
	if wsServer != nil {
		wsServer.RegisterRoutes(e)
	}

	return e
}

// requestLogger writes one zerolog line per request.
func requestLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	logger = logger.With().Str("component", "http").Logger()
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := logger.Info()
			if v.Error != nil || v.Status >= 500 {
				event = logger.Error().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
