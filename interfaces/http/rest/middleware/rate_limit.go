package middleware

import (
	"net/http"

	"mindtrack/pkg/auth"
	"mindtrack/pkg/common"
	apperrors "mindtrack/pkg/errors"

	"go.uber.org/zap"
)

// RateLimit limits requests per client IP. perMinute is only used for the
// error message.
func RateLimit(limiter *auth.IPRateLimiter, perMinute int, errorHandler *apperrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := common.ClientIP(r)

			allowed, err := limiter.Allow(r.Context(), clientIP)
			if err != nil {
				logger.Error("Rate limiter error", zap.Error(err))
				errorHandler.Handle(w, r, apperrors.NewInternalError("Internal server error").WithCause(err))
				return
			}
			if !allowed {
				logger.Warn("Rate limit exceeded",
					zap.String("ip", clientIP),
					zap.String("path", r.URL.Path),
				)
				errorHandler.Handle(w, r, apperrors.NewRateLimitError(perMinute, "minute"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
