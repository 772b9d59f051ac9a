package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"debate-lab-service/internal/auth"
	"debate-lab-service/internal/domain"
	"debate-lab-service/internal/logging"
	"debate-lab-service/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// Headers that identify the caller when token verification is disabled.
const (
	devUserHeader = "X-User-Id"
	devRoleHeader = "X-User-Role"
)

// requestID propagates or assigns a request id and stores it for logging.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.ContextWithRequestID(r.Context(), id)))
	})
}

// instrument logs every request and records it in the API metrics,
// labelled by route pattern to keep cardinality bounded.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		metrics.RecordAPIRequest(r.Method, route, strconv.Itoa(status), elapsed)
		logging.Ctx(r.Context()).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("duration", elapsed).
			Msg("request")
	})
}

type userKey struct{}

// AuthConfig configures bearer token verification. An empty secret
// disables verification and trusts the X-User-Id / X-User-Role headers.
type AuthConfig struct {
	Secret string
	Issuer string
}

func authenticate(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := userFromRequest(cfg, r)
			if err != nil {
				writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, user)))
		})
	}
}

func userFromRequest(cfg AuthConfig, r *http.Request) (domain.User, error) {
	if cfg.Secret == "" {
		return domain.User{
			ID:   r.Header.Get(devUserHeader),
			Role: domain.Role(r.Header.Get(devRoleHeader)),
		}, nil
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return domain.User{}, fmt.Errorf("%w: missing bearer token", errUnauthorized)
	}
	user, err := auth.ParseToken(cfg.Secret, cfg.Issuer, strings.TrimSpace(token))
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", errUnauthorized, err)
	}
	return user, nil
}

func requireRole(role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if currentUser(r).Role != role {
				writeError(w, r, fmt.Errorf("%w: %s role required", domain.ErrForbidden, role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func currentUser(r *http.Request) domain.User {
	user, _ := r.Context().Value(userKey{}).(domain.User)
	return user
}

// actingAs rejects students who name another student in the request body.
// Anonymous callers (verification disabled, no headers) are let through.
func actingAs(r *http.Request, studentID string) error {
	user := currentUser(r)
	if user.Role == domain.RoleStudent && user.ID != "" && user.ID != studentID {
		return fmt.Errorf("%w: cannot act for another student", domain.ErrForbidden)
	}
	return nil
}
