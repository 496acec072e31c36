// Package throttlehttp holds HTTP requests until a keyed throttler admits them.
package throttlehttp

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/lowc1012/nanothrottler/internal/ratelimiter"
	"github.com/lowc1012/nanothrottler/internal/utils"
)

const (
	throttleLimit    = "X-Throttle-Limit"
	throttlePeriodMs = "X-Throttle-Period-Ms"
	throttleState    = "X-Throttle-State"
	throttleWaitedMs = "X-Throttle-Waited-Ms"
)

// Config defines the configuration for the throttling handler.
type Config struct {
	Extractor utils.Extractor
	Limiter   ratelimiter.RateLimiter
	// MaxWait bounds how long a request is held. Zero means the request is
	// held until the client goes away.
	MaxWait time.Duration
	Logger  *zap.Logger
}

type httpThrottleHandler struct {
	handler http.Handler
	config  *Config
	logger  *zap.Logger
}

// NewHandler wraps an existing http.Handler, holding each request until the
// limiter admits it. If the key cannot be extracted, the limiter fails, or the
// wait is abandoned, the handler answers the client itself and never calls the
// wrapped handler.
func NewHandler(originalHandler http.Handler, config *Config) http.Handler {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &httpThrottleHandler{
		handler: originalHandler,
		config:  config,
		logger:  logger,
	}
}

func (h *httpThrottleHandler) writeResponse(writer http.ResponseWriter, status int, msg string, args ...interface{}) {
	writer.Header().Set("Content-Type", "text/plain")
	writer.WriteHeader(status)
	if _, err := writer.Write([]byte(fmt.Sprintf(msg, args...))); err != nil {
		h.logger.Warn("Failed to write response body", zap.Error(err))
	}
}

// ServeHTTP blocks until the request is admitted and then sends it to the
// wrapped handler. Throttling headers are set on every response that reached
// the limiter.
func (h *httpThrottleHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	key, err := h.config.Extractor.Extract(request)
	if err != nil {
		h.writeResponse(writer, http.StatusBadRequest, "failed to collect throttling key from request: %v", err)
		return
	}

	ctx := request.Context()
	if h.config.MaxWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.MaxWait)
		defer cancel()
	}

	result, err := h.config.Limiter.Run(ctx, &ratelimiter.Request{Key: key})
	if err != nil {
		h.logger.Error("Throttling failed", zap.String("key", key), zap.Error(err))
		h.writeResponse(writer, http.StatusInternalServerError, "failed to run throttling for request: %v", err)
		return
	}

	writer.Header().Set(throttleLimit, strconv.FormatUint(uint64(result.RequestLimit), 10))
	writer.Header().Set(throttlePeriodMs, strconv.FormatInt(result.Period.Milliseconds(), 10))
	writer.Header().Set(throttleState, result.State.String())
	writer.Header().Set(throttleWaitedMs, strconv.FormatInt(result.Waited.Milliseconds(), 10))

	if result.State == ratelimiter.Deny {
		h.logger.Debug("Request denied", zap.String("key", key), zap.Duration("waited", result.Waited))
		h.writeResponse(writer, http.StatusTooManyRequests, "request could not be admitted in time, slow down please")
		return
	}

	h.handler.ServeHTTP(writer, request)
}
