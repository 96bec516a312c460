package middleware

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"launcher-proxy/internal/metrics"
)

// MetricsMiddleware returns an Echo middleware that records request count,
// latency and the size of what was written to the launcher, labelled with
// the Content-Encoding the compression pipeline chose.
func MetricsMiddleware(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			start := time.Now()
			err := next(c)

			res := c.Response()
			path := metrics.NormalizePath(c.Request().URL.Path)
			labels := []string{
				metrics.NormalizeMethod(c.Request().Method),
				strconv.Itoa(responseStatus(res, err)),
				path,
			}
			m.RequestsTotal.WithLabelValues(labels...).Inc()
			m.RequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())

			// Errors returned without a written response are rendered later by
			// echo's error handler; their size is unknown here.
			if res.Committed {
				enc := metrics.NormalizeEncoding(res.Header().Get(echo.HeaderContentEncoding))
				m.ResponseSize.WithLabelValues(path, enc).Observe(float64(res.Size))
			}

			return err
		}
	}
}

// responseStatus prefers the code of an *echo.HTTPError, whose response has
// not been written yet when the middleware unwinds.
func responseStatus(res *echo.Response, err error) int {
	var he *echo.HTTPError
	if err != nil && errors.As(err, &he) {
		return he.Code
	}
	return res.Status
}
