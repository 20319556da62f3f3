package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gradingstudents-api/internal/config"
	"github.com/noah-isme/gradingstudents-api/internal/handler"
	"github.com/noah-isme/gradingstudents-api/internal/middleware"
	"github.com/noah-isme/gradingstudents-api/internal/observability"
)

// GraderRoles are the roles allowed to use the grading endpoints.
var GraderRoles = []string{"admin", "teacher"}

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	GradingStudentsHandler *handler.GradingStudentsHandler
	ActivityHandler        *handler.ActivityHandler
	JWTMiddleware          fiber.Handler
	SubmitRateLimiter      fiber.Handler
	HealthChecks           []handler.DependencyCheck
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthChecks...))
	app.Get("/metrics", observability.MetricsHandler(nil))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	graders := middleware.RequireRole(GraderRoles...)

	if deps.GradingStudentsHandler != nil {
		quizzes := app.Group("/api/v2/quizzes", jwtMiddleware, graders)
		var submitMiddleware []fiber.Handler
		if deps.SubmitRateLimiter != nil {
			submitMiddleware = append(submitMiddleware, deps.SubmitRateLimiter)
		}
		deps.GradingStudentsHandler.Register(quizzes, submitMiddleware...)
	}

	if deps.ActivityHandler != nil {
		activity := app.Group("/api/v2/grading/activity", jwtMiddleware, graders)
		deps.ActivityHandler.Register(activity)
	}
}
