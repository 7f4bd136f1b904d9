package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// ClientCookie identifies a browser across sessions. Only the theme
	// preference is keyed by it.
	ClientCookie = "itpulse_client"

	// ColorSchemeHeader carries the system appearance preference.
	ColorSchemeHeader = "Sec-CH-Prefers-Color-Scheme"

	clientCookieMaxAge = 365 * 24 * 60 * 60
)

// ClientID returns the client cookie, issuing a new one when absent.
func ClientID(c *gin.Context) string {
	if v, err := c.Cookie(ClientCookie); err == nil {
		if _, perr := uuid.Parse(v); perr == nil {
			return v
		}
	}
	id := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(ClientCookie, id, clientCookieMaxAge, "/", "", false, true)
	return id
}
