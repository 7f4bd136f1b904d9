package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"itpulse/internal/apierr"
	"itpulse/internal/session"
)

const CtxSessionKey = "auth_session"

// SessionMiddleware resolves the bearer token to a live session.
func SessionMiddleware(tokens TokenService, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" || !strings.HasPrefix(strings.ToLower(h), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		raw := strings.TrimSpace(h[len("Bearer "):])
		claims, err := tokens.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		s, err := sessions.Get(claims.SessionID)
		if err != nil {
			if errors.Is(err, session.ErrSessionNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
				return
			}
			apierr.Abort(c, err)
			return
		}

		c.Set(CtxSessionKey, s)
		c.Next()
	}
}

// RequireUser rejects requests whose session has nobody signed in.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := MustGetSession(c)
		if s == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if _, ok := s.User(); !ok {
			apierr.Abort(c, session.ErrNotAuthenticated)
			return
		}
		c.Next()
	}
}

func MustGetSession(c *gin.Context) *session.Session {
	v, ok := c.Get(CtxSessionKey)
	if !ok {
		return nil
	}
	s, _ := v.(*session.Session)
	return s
}
