package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/marlow/casefile/internal/logger"
	"github.com/marlow/casefile/internal/models"
	"github.com/marlow/casefile/internal/worker"
)

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

type contextKey string

const playerKeyContextKey contextKey = "player_key"

func playerKeyFromContext(ctx context.Context) models.PlayerKey {
	if v := ctx.Value(playerKeyContextKey); v != nil {
		if k, ok := v.(models.PlayerKey); ok {
			return k
		}
	}
	return ""
}

// identityMiddleware resolves a single stable player key for the request:
// account:<id> when the gateway passed an authenticated account header,
// session:<token> otherwise, minting and persisting a token on first
// contact. The key is threaded through the context; nothing downstream
// reads the session cookie or the account header again.
func (s *Server) identityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := logger.FromContext(ctx)

		if accountID := r.Header.Get(s.AccountHeader); accountID != "" {
			key := models.AccountKey(accountID)

			// An authenticated request still carrying an anonymous cookie
			// means a pre-login session may hold progress. Fold it in off
			// the request path; if it fails, the next request retries.
			if cookie, err := r.Cookie(s.SessionCookieName); err == nil && cookie.Value != "" {
				s.maybeQueueMigration(ctx, cookie.Value, accountID)
			}

			ctx = context.WithValue(ctx, playerKeyContextKey, key)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		var token string
		if cookie, err := r.Cookie(s.SessionCookieName); err == nil && cookie.Value != "" {
			token = cookie.Value
			// Keep the session row alive even if the store was reset
			// under an old cookie.
			if err := s.IdentityService.EnsureSession(ctx, token); err != nil {
				log.Error("failed to ensure session: %v", err)
				handleError(w, r, err)
				return
			}
		} else {
			minted, err := s.IdentityService.MintSessionToken(ctx)
			if err != nil {
				log.Error("failed to mint session token: %v", err)
				handleError(w, r, err)
				return
			}
			token = minted
			s.setSessionCookie(w, token)
		}

		ctx = context.WithValue(ctx, playerKeyContextKey, models.SessionKey(token))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) maybeQueueMigration(ctx context.Context, token, accountID string) {
	log := logger.FromContext(ctx)

	migrated, err := s.IdentityService.IsMigrated(ctx, token, accountID)
	if err != nil {
		log.Warn("migration check failed: %v", err)
		return
	}
	if migrated || s.MigrationPool == nil {
		return
	}
	s.MigrationPool.TrySubmit(worker.MigrationJob{
		Migrator:     s.IdentityService,
		SessionToken: token,
		AccountID:    accountID,
	})
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(s.SessionTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		// Secure: true when behind HTTPS (set via environment/config)
	})
}

// loggingMiddleware logs HTTP requests with timing, status codes, and request IDs.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		log := logger.Default().WithFields(map[string]any{
			"request_id": requestID,
			"method":     r.Method,
			"path":       r.URL.Path,
		})
		if r.RemoteAddr != "" {
			log = log.WithField("remote_addr", r.RemoteAddr)
		}

		ctx := logger.NewContext(r.Context(), log)
		r = r.WithContext(ctx)

		w.Header().Set("X-Request-ID", requestID)

		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		log.Debug("request started")

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		log = log.WithFields(map[string]any{
			"status":      wrapped.status,
			"size":        wrapped.size,
			"duration_ms": duration.Milliseconds(),
		})

		if wrapped.status >= 500 {
			log.Error("request completed with server error")
		} else if wrapped.status >= 400 {
			log.Warn("request completed with client error")
		} else {
			log.Info("request completed")
		}
	})
}

// recoveryMiddleware recovers from panics and logs them.
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log := logger.FromContext(r.Context())
				log.Error("panic recovered: %v", rec)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
