package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jerome00253/RIB-Factory/internal/metrics"
)

// Metrics records request totals and latency. The route pattern (echo's
// c.Path) is used instead of the raw URL so ids don't explode label
// cardinality.
func Metrics(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}
			m.RecordRequest(c.Request().Method, path, c.Response().Status, time.Since(start))

			return err
		}
	}
}
