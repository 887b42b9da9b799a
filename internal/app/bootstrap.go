package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// App is the operational HTTP surface: liveness and metrics. The match
// pipeline itself runs on the queue, not on HTTP.
type App struct {
	Fiber *fiber.App
}

func New(c *Container) *App {
	f := fiber.New(fiber.Config{AppName: c.Config.App.AppName})

	f.Get("/health", func(ctx fiber.Ctx) error {
		dbCtx, cancel := context.WithTimeout(ctx.Context(), 2*time.Second)
		defer cancel()

		status := fiber.Map{"status": "ok", "cache": "ok"}
		if err := c.DB.Ping(dbCtx); err != nil {
			return ctx.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "degraded",
				"error":  err.Error(),
			})
		}
		if err := c.Cache.Ping(dbCtx); err != nil {
			status["cache"] = "unavailable"
		}
		return ctx.JSON(status)
	})

	f.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	return &App{Fiber: f}
}

func ListenAddr(port string) (string, error) {
	p := strings.TrimSpace(port)
	if p == "" {
		return "", fmt.Errorf("empty HTTP port")
	}
	if strings.HasPrefix(p, ":") {
		return p, nil
	}
	return ":" + p, nil
}
