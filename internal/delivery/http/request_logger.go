package http

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"cmaxbonds/internal/metrics"
	"cmaxbonds/pkg/logger"
)

// RequestLogger logs each request and records its latency. Routes are
// labelled with the registered path template to keep cardinality low.
func RequestLogger(log *logger.Logger, rec *metrics.Recorder, skip ...string) echo.MiddlewareFunc {
	skipped := make(map[string]bool, len(skip))
	for _, p := range skip {
		skipped[p] = true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			if err := next(c); err != nil {
				// let the error handler write the response so the status is known
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			duration := time.Since(start)
			status := res.Status

			rec.ObserveRequest(route, req.Method, strconv.Itoa(status), duration)

			if skipped[req.URL.Path] {
				return nil
			}

			fields := []logger.Field{
				logger.String("request_id", res.Header().Get(echo.HeaderXRequestID)),
				logger.String("method", req.Method),
				logger.String("path", req.URL.Path),
				logger.String("route", route),
				logger.Int("status", status),
				logger.Duration("duration_ms", duration),
				logger.String("remote_ip", c.RealIP()),
			}
			switch {
			case status >= 500:
				log.Error("http request failed", fields...)
			case status >= 400:
				log.Warn("http request rejected", fields...)
			default:
				log.Info("http request", fields...)
			}
			return nil
		}
	}
}
