package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hmaged/signfleet/internal/models"
)

type contextKey string

const (
	adminContextKey  contextKey = "admin"
	deviceContextKey contextKey = "device"
)

const sessionCookieName = "TOKEN"

// AdminOnly authenticates requests by the session cookie set at login.
func (a *API) AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		admin, err := a.auth.AdminFromToken(r.Context(), cookie.Value)
		if err != nil {
			writeError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), adminContextKey, admin)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// DeviceOnly authenticates requests by the X-API-Key header.
func (a *API) DeviceOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			writeDetail(w, http.StatusUnauthorized, "api key required")
			return
		}

		device, err := a.auth.DeviceFromAPIKey(r.Context(), apiKey)
		if err != nil {
			writeError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), deviceContextKey, device)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func deviceFrom(ctx context.Context) *models.Device {
	device, _ := ctx.Value(deviceContextKey).(*models.Device)
	return device
}

// RequestLogger logs one structured line per request.
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Duration("duration", time.Since(start)))
		})
	}
}
