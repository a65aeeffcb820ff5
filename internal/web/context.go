package web

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/JonMunkholm/bomquote/internal/core"
	"github.com/JonMunkholm/bomquote/internal/logging"
)

// SessionCookie names the cookie holding the wizard session ID.
const SessionCookie = "bom_session"

type sessionKey struct{}

// withSession attaches the visitor's wizard session to the request context,
// starting a new one when the cookie is missing or the session expired.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(SessionCookie); err == nil {
			id = c.Value
		}

		sess, created := s.service.Store().GetOrCreate(id)
		// Refreshed on every request so the cookie expires with the idle session.
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    sess.ID,
			Path:     "/",
			MaxAge:   int(s.cfg.Wizard.SessionTTL.Seconds()),
			HttpOnly: true,
			Secure:   s.cfg.Security.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		})

		ctx := context.WithValue(r.Context(), sessionKey{}, sess)
		ctx = logging.WithSession(ctx, sess.ID)
		r = r.WithContext(ctx)
		if created {
			logging.FromContext(ctx).Debug("session started", "expired", id != "")
		}

		// An action aimed at a session that no longer exists would hit the
		// fresh session at the wrong step.
		if created && id != "" && needsExistingSession(r) {
			s.respondError(w, r, core.ErrSessionNotFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// needsExistingSession reports whether r only makes sense for a session past
// the input step.
func needsExistingSession(r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return false
	}
	return !strings.HasPrefix(r.URL.Path, "/input/") && !strings.HasPrefix(r.URL.Path, "/api/")
}

// sessionFrom returns the session stored by withSession.
func sessionFrom(r *http.Request) *core.Session {
	sess, _ := r.Context().Value(sessionKey{}).(*core.Session)
	return sess
}

// clientIP returns the request's IP without port.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
