package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/labstack/echo/v4"
)

// GinMiddleware records request counts and durations for gin routes
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		handler := c.FullPath()
		if handler == "" {
			handler = "unmatched"
		}
		observe(handler, c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}

// EchoMiddleware records request counts and durations for echo routes
func EchoMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			handler := c.Path()
			if handler == "" {
				handler = "unmatched"
			}
			observe(handler, c.Request().Method, c.Response().Status, time.Since(start))
			return nil
		}
	}
}

func observe(handler, method string, status int, duration time.Duration) {
	handler = strings.TrimPrefix(handler, "/")
	code := strconv.Itoa(status)
	HTTPRequestDuration.WithLabelValues(handler, method, code).Observe(duration.Seconds())
	HTTPRequestsTotal.WithLabelValues(handler, method, code).Inc()
}
