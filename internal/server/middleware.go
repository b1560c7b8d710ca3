package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"fieldreport/internal/auth"

	"github.com/sirupsen/logrus"
)

// Context key types to avoid collisions
type contextKey string

const contextKeyIdentity contextKey = "identity"

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Service) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration_ms": time.Since(started).Milliseconds(),
		}).Info("http request")
	})
}

// RequireUser verifies the bearer token and stores the caller's identity in
// the request context.
func (s *Service) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := s.identityFromRequest(r)
		if err != nil {
			s.logger.WithError(err).Debug("rejected unauthenticated request")
			s.respondMessage(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		next.ServeHTTP(w, r.WithContext(
			context.WithValue(r.Context(), contextKeyIdentity, identity),
		))
	})
}

// RequireAdmin additionally checks the token's role claim.
func (s *Service) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := s.identityFromRequest(r)
		if err != nil {
			s.logger.WithError(err).Debug("rejected unauthenticated request")
			s.respondMessage(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		if !identity.IsAdmin() {
			s.respondMessage(w, http.StatusUnauthorized, "Admin access required")
			return
		}

		next.ServeHTTP(w, r.WithContext(
			context.WithValue(r.Context(), contextKeyIdentity, identity),
		))
	})
}

func (s *Service) identityFromRequest(r *http.Request) (*auth.Identity, error) {
	token, err := bearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return nil, err
	}

	return s.tokens.Verify(token)
}

func (s *Service) identityFromContext(ctx context.Context) (*auth.Identity, error) {
	identity, ok := ctx.Value(contextKeyIdentity).(*auth.Identity)
	if !ok || identity == nil {
		return nil, errors.New("identity not found in context")
	}
	return identity, nil
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header.
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errors.New("authorization header is empty")
	}

	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", errors.New("invalid authorization header format")
	}

	return header[len(prefix):], nil
}

// clientIP reports the request origin, preferring the first forwarded hop.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if idx := strings.IndexByte(forwarded, ','); idx >= 0 {
			return strings.TrimSpace(forwarded[:idx])
		}
		return strings.TrimSpace(forwarded)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
