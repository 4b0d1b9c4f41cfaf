package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"club-recruitment-service/internal/config"
	"club-recruitment-service/internal/events"
	"club-recruitment-service/internal/logger"
	"club-recruitment-service/internal/security"
)

// CorrelationHeader carries the id stamped on every event a request emits.
const CorrelationHeader = "X-Correlation-ID"

type claimsKey struct{}

// ClaimsFromContext returns the verified token claims of the caller.
func ClaimsFromContext(ctx context.Context) (*security.UserClaims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*security.UserClaims)
	return claims, ok
}

// actorID is the authenticated user id, or "" for anonymous callers.
func actorID(r *http.Request) string {
	if claims, ok := ClaimsFromContext(r.Context()); ok {
		return claims.UserID
	}
	return ""
}

// AuthMiddleware enforces the security level configured for the matched
// route name.
type AuthMiddleware struct {
	tokenManager security.TokenManager
}

func NewAuthMiddleware(tm security.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokenManager: tm}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := ""
		if route := mux.CurrentRoute(r); route != nil {
			name = route.GetName()
		}
		level := config.GetSecurityLevel(name)

		// Public endpoint - skip auth
		if level == config.SecurityPublic {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			if level == config.SecurityOptional {
				next.ServeHTTP(w, r)
				return
			}
			writeUnauthenticated(w, "authorization token is not provided")
			return
		}

		claims, err := m.tokenManager.ValidateAccessToken(token)
		if err != nil {
			writeUnauthenticated(w, "invalid token: "+err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		token := strings.TrimSpace(header[7:])
		return token, token != ""
	}
	return "", false
}

// CorrelationMiddleware propagates or generates the request correlation id.
func CorrelationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(CorrelationHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(CorrelationHeader, id)
		next.ServeHTTP(w, r.WithContext(events.WithCorrelationID(r.Context(), id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.wroteHeader {
		return
	}
	s.status = code
	s.wroteHeader = true
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.wroteHeader = true
	return s.ResponseWriter.Write(b)
}

// LoggingMiddleware logs each request and recovers from handler panics.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if p := recover(); p != nil {
				logger.Error("Handler panicked", "method", r.Method, "path", r.URL.Path, "panic", p)
				// Once the handler has started its response the status is already on the wire.
				if !rec.wroteHeader {
					writeJSON(rec, http.StatusInternalServerError, errorResponse{Code: codeInternal, Message: "internal server error"})
				}
			}
			logger.Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start),
				"correlationID", events.CorrelationID(r.Context()))
		}()
		next.ServeHTTP(rec, r)
	})
}
