// Package http serves payment verification over HTTP and provides a client
// for calling it.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	solanashop "github.com/DroHadTo/Solanashop"
	"github.com/DroHadTo/Solanashop/metrics"
)

// DefaultAddr is the listen address of the verifier
const DefaultAddr = ":8787"

const missingParams = "Missing params"

// PaymentVerifier is the single-shot verification the /verify route calls
type PaymentVerifier interface {
	Verify(ctx context.Context, query solanashop.VerifyQuery) (*solanashop.VerifyResult, error)
}

// RouterOption configures the router
type RouterOption func(*routerOptions)

type routerOptions struct {
	logger  *zap.Logger
	mounts  map[string]http.Handler
	timeout time.Duration
}

// WithLogger logs every request with the given logger
func WithLogger(logger *zap.Logger) RouterOption {
	return func(o *routerOptions) {
		o.logger = logger
	}
}

// WithHandler mounts an extra handler for any method under path
func WithHandler(path string, handler http.Handler) RouterOption {
	return func(o *routerOptions) {
		o.mounts[path] = handler
	}
}

// WithVerifyTimeout bounds each verification
func WithVerifyTimeout(timeout time.Duration) RouterOption {
	return func(o *routerOptions) {
		o.timeout = timeout
	}
}

// NewRouter builds the verifier's gin engine
func NewRouter(verifier PaymentVerifier, opts ...RouterOption) *gin.Engine {
	options := &routerOptions{
		logger:  zap.NewNop(),
		mounts:  map[string]http.Handler{},
		timeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(options)
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(options.logger), metrics.GinMiddleware())

	r.GET("/verify", VerifyHandler(verifier, options.timeout))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	for path, handler := range options.mounts {
		r.Any(path, gin.WrapH(handler))
	}
	return r
}

// VerifyHandler answers GET /verify?reference=&amount=. Missing parameters
// are a 400, every other failure is a 404.
func VerifyHandler(verifier PaymentVerifier, timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := solanashop.VerifyQuery{
			Reference: c.Query("reference"),
			Amount:    c.Query("amount"),
		}
		if query.Reference == "" || query.Amount == "" {
			metrics.VerificationsTotal.WithLabelValues(solanashop.ErrCodeInvalidRequest).Inc()
			c.JSON(http.StatusBadRequest, solanashop.VerifyResult{OK: false, Error: missingParams})
			return
		}

		ctx := c.Request.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		result, err := verifier.Verify(ctx, query)
		status, body := verifyResponse(result, err)
		metrics.VerificationsTotal.WithLabelValues(resultLabel(err)).Inc()
		c.JSON(status, body)
	}
}

func verifyResponse(result *solanashop.VerifyResult, err error) (int, solanashop.VerifyResult) {
	if err == nil && result != nil && result.OK {
		return http.StatusOK, *result
	}

	message := "Not found"
	if result != nil && result.Error != "" {
		message = result.Error
	} else if err != nil {
		var pe *solanashop.PaymentError
		if errors.As(err, &pe) {
			message = pe.Message
		}
	}

	if errors.Is(err, solanashop.ErrInvalidRequest) && message == missingParams {
		return http.StatusBadRequest, solanashop.VerifyResult{OK: false, Error: message}
	}
	return http.StatusNotFound, solanashop.VerifyResult{OK: false, Error: message}
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if code := solanashop.ErrorCode(err); code != "" {
		return code
	}
	return "error"
}

// RequestLogger logs each request once it has been served
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error("request", fields...)
			return
		}
		logger.Info("request", fields...)
	}
}
