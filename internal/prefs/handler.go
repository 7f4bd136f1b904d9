package prefs

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"itpulse/internal/auth"
)

type Handler struct {
	Service *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Service: svc}
}

// RegisterRoutes expects rg to run auth.SessionMiddleware already.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/theme", h.get)
	rg.PUT("/theme", h.put)
	rg.POST("/theme/toggle", h.toggle)
}

func (h *Handler) get(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"theme": auth.MustGetSession(c).Theme()})
}

type themeReq struct {
	Theme string `json:"theme"`
}

func (h *Handler) put(c *gin.Context) {
	var req themeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	theme, ok := NormalizeTheme(req.Theme)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrUnknownTheme.Error()})
		return
	}
	h.apply(c, theme)
}

func (h *Handler) toggle(c *gin.Context) {
	h.apply(c, Toggle(auth.MustGetSession(c).Theme()))
}

// apply switches the session theme and remembers it for the client. A
// failed write only costs persistence, the session keeps the new theme.
func (h *Handler) apply(c *gin.Context, theme string) {
	s := auth.MustGetSession(c)
	s.SetTheme(theme)

	clientID := auth.ClientID(c)
	if err := h.Service.SetTheme(c.Request.Context(), clientID, theme); err != nil {
		log.WithFields(log.Fields{"client": clientID, "err": err}).Error("Failed to store theme")
		c.JSON(http.StatusOK, gin.H{"theme": theme, "persisted": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"theme": theme, "persisted": true})
}
