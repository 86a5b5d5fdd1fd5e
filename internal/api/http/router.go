package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/canteen-service/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health      *handlers.HealthHandler
	Dishes      *handlers.DishesHandler
	Evaluations *handlers.EvaluationsHandler
	DingTalk    *handlers.DingTalkHandler
	Statistics  *handlers.StatisticsHandler
	AppName     string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(cfg.AppName + " is running")
	})

	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Get("/dishes", cfg.Dishes.List)

	evaluations := app.Group("/evaluations")
	evaluations.Post("/", cfg.Evaluations.Submit)
	evaluations.Get("/check", cfg.Evaluations.Check)
	evaluations.Get("/recent", cfg.Evaluations.Recent)
	evaluations.Get("/user", cfg.Evaluations.ListByUser)
	evaluations.Post("/delete", cfg.Evaluations.Delete)

	dingtalk := app.Group("/dingtalk")
	dingtalk.Get("/getUserId", cfg.DingTalk.GetUserID)
	dingtalk.Get("/getUserDetail", cfg.DingTalk.GetUserDetail)
	dingtalk.Post("/verifyUser", cfg.DingTalk.VerifyUser)

	statistics := app.Group("/statistics")
	statistics.Get("/evaluation", cfg.Statistics.Evaluation)
	statistics.Get("/popular/today", cfg.Statistics.PopularToday)
	statistics.Get("/popular/history", cfg.Statistics.PopularHistory)
}
