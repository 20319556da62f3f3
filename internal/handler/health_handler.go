package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gradingstudents-api/internal/config"
	"github.com/noah-isme/gradingstudents-api/internal/utils"
)

const healthCheckTimeout = 2 * time.Second

// DependencyCheck pings one backing service. A failing Required check turns
// the endpoint into 503; optional ones only mark the report degraded.
type DependencyCheck struct {
	Name     string
	Required bool
	Ping     func(ctx context.Context) error
}

// DependencyStatus is the per-dependency line of the health report.
type DependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Service      string                      `json:"service"`
	Environment  string                      `json:"environment"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// HealthCheck reports whether the grading store, redis and nats answer.
func HealthCheck(cfg config.Config, checks ...DependencyCheck) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), healthCheckTimeout)
		defer cancel()

		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
		}

		status := fiber.StatusOK
		for _, check := range checks {
			if check.Ping == nil {
				continue
			}
			if payload.Dependencies == nil {
				payload.Dependencies = make(map[string]DependencyStatus, len(checks))
			}
			if err := check.Ping(ctx); err != nil {
				payload.Dependencies[check.Name] = DependencyStatus{Status: "down", Error: err.Error()}
				if check.Required {
					payload.Status = "unavailable"
					status = fiber.StatusServiceUnavailable
				} else if payload.Status == "ok" {
					payload.Status = "degraded"
				}
				continue
			}
			payload.Dependencies[check.Name] = DependencyStatus{Status: "up"}
		}

		if status != fiber.StatusOK {
			return c.Status(status).JSON(utils.APIResponse{
				Success: false,
				Data:    payload,
				Message: "service unavailable",
			})
		}
		return utils.SendSuccess(c, "service healthy", payload)
	}
}
