package middleware

import (
	"time"

	applogger "StockCast/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging logs each HTTP request with method, path, status and latency.
func RequestLogging(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			start := time.Now()

			err := next(c)

			if l != nil {
				l.Debug("http request",
					applogger.String("method", req.Method),
					applogger.String("path", req.RequestURI),
					applogger.String("remote", req.RemoteAddr),
					applogger.Int("status", res.Status),
					applogger.Duration("duration_ms", time.Since(start)),
				)
			}

			return err
		}
	}
}
