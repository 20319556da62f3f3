package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestMetricsHandlerServesSuppliedGatherer(t *testing.T) {
	registry := prometheus.NewRegistry()
	submitted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "grading_test_submissions_total",
		Help: "Submissions seen by the test registry.",
	})
	registry.MustRegister(submitted)
	submitted.Add(3)

	app := fiber.New()
	app.Get("/metrics", MetricsHandler(registry))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "grading_test_submissions_total 3")
	require.NotContains(t, string(body), "grading_requests_total")
}

func TestMetricsHandlerDefaultsToGlobalRegistry(t *testing.T) {
	GradingOutcomes().WithLabelValues("list").Inc()

	app := fiber.New()
	app.Get("/metrics", MetricsHandler(nil))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `grading_outcomes_total{outcome="list"}`)
}
