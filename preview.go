package theme

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Preview serves the baked output root over HTTP for local inspection.
// It performs no rendering; it only exposes what the baker already
// wrote to disk.
func Preview(cfg Config, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request", "method", v.Method, "uri", v.URI, "status", v.Status)
			return nil
		},
	}))
	e.Static("/", cfg.BakedOutputRoot)

	logger.Info("preview listening", "addr", cfg.PreviewAddr, "root", cfg.BakedOutputRoot)
	if err := e.Start(cfg.PreviewAddr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
