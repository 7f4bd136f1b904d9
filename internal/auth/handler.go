// Package auth issues session tokens and handles the credential-less
// sign-in of a reader.
package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"itpulse/internal/session"
	"itpulse/pkg/models"
)

// CommonDomains are offered as completions once the reader typed "name@".
var CommonDomains = []string{"mail.ru", "gmail.com", "yandex.ru", "outlook.com", "bk.ru", "list.ru"}

const defaultUserName = "Reader"

// ThemeResolver picks the initial theme of a new session.
type ThemeResolver interface {
	Theme(ctx context.Context, clientID, systemHint string) (string, error)
}

type Handler struct {
	Sessions *session.Manager
	Tokens   TokenService
	Themes   ThemeResolver
}

func NewHandler(sessions *session.Manager, tokens TokenService, themes ThemeResolver) *Handler {
	return &Handler{Sessions: sessions, Tokens: tokens, Themes: themes}
}

// RegisterSessionRoutes mounts the session lifecycle under rg (/api).
func (h *Handler) RegisterSessionRoutes(rg *gin.RouterGroup) {
	rg.POST("/session", h.startSession)
	rg.DELETE("/session", SessionMiddleware(h.Tokens, h.Sessions), h.endSession)
}

// RegisterRoutes mounts sign-in and sign-out under rg (/auth).
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/suggest", h.suggest)
	rg.POST("/signin", SessionMiddleware(h.Tokens, h.Sessions), h.signIn)
	rg.POST("/signout", SessionMiddleware(h.Tokens, h.Sessions), h.signOut)
	rg.GET("/me", SessionMiddleware(h.Tokens, h.Sessions), h.me)
}

func (h *Handler) startSession(c *gin.Context) {
	clientID := ClientID(c)
	hint := c.GetHeader(ColorSchemeHeader)

	theme, err := h.Themes.Theme(c.Request.Context(), clientID, hint)
	if err != nil {
		// the fallback theme is still usable
		log.WithFields(log.Fields{"client": clientID, "err": err}).Warn("Could not load stored theme")
	}

	s := h.Sessions.Start(theme)
	token, exp, err := h.Tokens.Sign(s.ID)
	if err != nil {
		h.Sessions.End(s.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session_id": s.ID,
		"token":      token,
		"expires_at": exp.UTC().Format(time.RFC3339),
		"theme":      s.Theme(),
	})
}

func (h *Handler) endSession(c *gin.Context) {
	s := MustGetSession(c)
	h.Sessions.End(s.ID)
	c.JSON(http.StatusOK, gin.H{"status": "session ended"})
}

type signInReq struct {
	Email string `json:"email"`
}

func (h *Handler) signIn(c *gin.Context) {
	var req signInReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if !strings.Contains(email, "@") || len(email) > 255 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email"})
		return
	}

	u := NewUser(email)
	MustGetSession(c).SignIn(u)
	c.JSON(http.StatusOK, gin.H{"user": u})
}

func (h *Handler) signOut(c *gin.Context) {
	MustGetSession(c).SignOut()
	c.JSON(http.StatusOK, gin.H{"status": "signed out"})
}

func (h *Handler) me(c *gin.Context) {
	u, ok := MustGetSession(c).User()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"user": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

func (h *Handler) suggest(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"suggestions": Suggest(c.Query("email"))})
}

// NewUser derives the reader's profile from the email alone. The same
// email always yields the same user id.
func NewUser(email string) models.User {
	name, _, _ := strings.Cut(email, "@")
	if name == "" {
		name = defaultUserName
	}
	return models.User{
		ID:        uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+email)).String(),
		Name:      name,
		Email:     email,
		AvatarRef: "https://picsum.photos/seed/" + name + "/100/100",
	}
}

// Suggest completes "name@" with every common domain. Anything else gets
// no suggestions.
func Suggest(email string) []string {
	name, domain, ok := strings.Cut(email, "@")
	if !ok || domain != "" {
		return []string{}
	}
	return lo.Map(CommonDomains, func(d string, _ int) string { return name + "@" + d })
}
