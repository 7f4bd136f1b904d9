// Package apierr maps domain errors onto HTTP responses.
package apierr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"itpulse/internal/assist"
	"itpulse/internal/composer"
	"itpulse/internal/session"
)

// SignInPrompt tells the client to open its sign-in flow.
const SignInPrompt = "sign_in"

// Status returns the HTTP status for err.
func Status(err error) int {
	var (
		verr *composer.ValidationError
		aerr *assist.Error
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &aerr):
		if aerr.Kind == assist.KindCredential {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	case errors.Is(err, session.ErrNotAuthenticated), errors.Is(err, session.ErrSessionNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, composer.ErrImprovementInFlight):
		return http.StatusConflict
	case errors.Is(err, session.ErrArticleNotFound),
		errors.Is(err, session.ErrAuthorNotFound),
		errors.Is(err, session.ErrNoDraft):
		return http.StatusNotFound
	case errors.Is(err, session.ErrEmptyComment), errors.Is(err, composer.ErrUnknownCategory):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Abort writes the error body for err and stops the handler chain.
func Abort(c *gin.Context, err error) {
	status := Status(err)
	body := gin.H{"error": err.Error()}

	var (
		verr *composer.ValidationError
		aerr *assist.Error
	)
	switch {
	case errors.Is(err, session.ErrNotAuthenticated):
		body["prompt"] = SignInPrompt
	case errors.As(err, &verr):
		body["missing"] = verr.Fields
	case errors.As(err, &aerr):
		body["kind"] = aerr.Kind
	}

	if status == http.StatusInternalServerError {
		log.WithFields(log.Fields{"path": c.FullPath(), "err": err}).Error("Request failed")
		body["error"] = "internal error"
	}
	c.AbortWithStatusJSON(status, body)
}
