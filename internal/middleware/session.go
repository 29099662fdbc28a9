package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// SessionIDKey is the context key for the dashboard session ID
const SessionIDKey = "session-id"

// SessionConfig holds session cookie settings
type SessionConfig struct {
	// CookieName is the session cookie name (config.SessionCookieName).
	CookieName string
	// TTL bounds the cookie lifetime. Zero means a browser-session cookie;
	// the selection registry applies its own idle expiry either way.
	TTL time.Duration
	// Secure forces the Secure cookie attribute even off TLS (for proxies
	// that terminate TLS upstream).
	Secure bool
	Logger *slog.Logger
}

// Session ensures every request carries a dashboard session ID.
// Each session owns an independent pollster selection, so the cookie is what
// keeps a browser pointing at the same selection across requests. A missing
// or malformed cookie gets replaced with a fresh UUID; handlers read the ID
// via GetSessionID. This should come AFTER RequestID in the chain.
func Session(cfg SessionConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sessionID string

			if c, err := r.Cookie(cfg.CookieName); err == nil {
				// Only accept well-formed UUIDs; anything else is replaced
				if id, parseErr := uuid.Parse(c.Value); parseErr == nil {
					sessionID = id.String()
				} else if cfg.Logger != nil {
					cfg.Logger.WarnContext(r.Context(), "malformed session cookie replaced",
						"cookie", cfg.CookieName,
						"error", parseErr,
					)
				}
			}

			if sessionID == "" {
				sessionID = uuid.New().String()

				cookie := &http.Cookie{
					Name:     cfg.CookieName,
					Value:    sessionID,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
					Secure:   cfg.Secure || r.TLS != nil,
				}
				if cfg.TTL > 0 {
					cookie.MaxAge = int(cfg.TTL.Seconds())
				}
				http.SetCookie(w, cookie)

				if cfg.Logger != nil {
					cfg.Logger.DebugContext(r.Context(), "session created",
						"session_id", sessionID,
					)
				}
			}

			ctx := context.WithValue(r.Context(), SessionIDKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSessionID retrieves the dashboard session ID from the context
func GetSessionID(ctx context.Context) string {
	if id, ok := ctx.Value(SessionIDKey).(string); ok {
		return id
	}
	return ""
}
