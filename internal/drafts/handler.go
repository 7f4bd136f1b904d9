// Package drafts exposes the composer of the signed-in reader over HTTP.
package drafts

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"itpulse/internal/apierr"
	"itpulse/internal/auth"
	"itpulse/internal/composer"
	"itpulse/internal/metrics"
	"itpulse/pkg/models"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// RegisterRoutes expects rg to run auth.SessionMiddleware already. Every
// draft route needs a signed-in user.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/drafts", auth.RequireUser())
	g.POST("", h.start)
	g.GET("/current", h.current)
	g.PATCH("/current", h.update)
	g.DELETE("/current", h.cancel)
	g.POST("/current/blocks", h.addBlock)
	g.POST("/current/blocks/move", h.moveBlock)
	g.PUT("/current/blocks/:block_id", h.updateBlock)
	g.DELETE("/current/blocks/:block_id", h.removeBlock)
	g.POST("/current/improve", h.improve)
	g.POST("/current/publish", h.publish)
}

func draft(c *gin.Context) (*composer.Composer, bool) {
	d, err := auth.MustGetSession(c).Draft()
	if err != nil {
		apierr.Abort(c, err)
		return nil, false
	}
	return d, true
}

func (h *Handler) start(c *gin.Context) {
	d, err := auth.MustGetSession(c).StartDraft()
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, d.State())
}

func (h *Handler) current(c *gin.Context) {
	d, ok := draft(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, d.State())
}

type updateReq struct {
	Title    *string `json:"title"`
	Summary  *string `json:"summary"`
	Category *string `json:"category"`
}

func (h *Handler) update(c *gin.Context) {
	var req updateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	d, ok := draft(c)
	if !ok {
		return
	}

	if req.Category != nil {
		if err := d.SetCategory(strings.TrimSpace(*req.Category)); err != nil {
			apierr.Abort(c, err)
			return
		}
	}
	if req.Title != nil {
		d.SetTitle(*req.Title)
	}
	if req.Summary != nil {
		d.SetSummary(*req.Summary)
	}
	c.JSON(http.StatusOK, d.State())
}

func (h *Handler) cancel(c *gin.Context) {
	auth.MustGetSession(c).CancelDraft()
	c.JSON(http.StatusOK, gin.H{"status": "draft discarded"})
}

type addBlockReq struct {
	Kind string `json:"kind"`
}

func (h *Handler) addBlock(c *gin.Context) {
	var req addBlockReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	kind, ok := models.ParseBlockKind(req.Kind)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be one of: heading, paragraph, image"})
		return
	}
	d, ok := draft(c)
	if !ok {
		return
	}

	block := d.AddBlock(kind)
	c.JSON(http.StatusCreated, gin.H{"block": block, "draft": d.State()})
}

type updateBlockReq struct {
	Value string `json:"value"`
}

func (h *Handler) updateBlock(c *gin.Context) {
	var req updateBlockReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	d, ok := draft(c)
	if !ok {
		return
	}

	// An unknown block id leaves the draft as it was.
	d.UpdateBlock(c.Param("block_id"), req.Value)
	c.JSON(http.StatusOK, d.State())
}

func (h *Handler) removeBlock(c *gin.Context) {
	d, ok := draft(c)
	if !ok {
		return
	}

	if !d.RemoveBlock(c.Param("block_id")) {
		if len(d.Blocks()) <= 1 {
			c.JSON(http.StatusConflict, gin.H{"error": "a draft keeps at least one block"})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "block not found"})
		return
	}
	c.JSON(http.StatusOK, d.State())
}

type moveBlockReq struct {
	Index     *int   `json:"index"`
	Direction string `json:"direction"`
}

func (h *Handler) moveBlock(c *gin.Context) {
	var req moveBlockReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	dir := composer.Direction(strings.ToLower(strings.TrimSpace(req.Direction)))
	if req.Index == nil || (dir != composer.Up && dir != composer.Down) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index and direction (up or down) required"})
		return
	}
	d, ok := draft(c)
	if !ok {
		return
	}

	moved := d.MoveBlock(*req.Index, dir)
	c.JSON(http.StatusOK, gin.H{"moved": moved, "draft": d.State()})
}

func (h *Handler) improve(c *gin.Context) {
	d, ok := draft(c)
	if !ok {
		return
	}
	if err := d.RequestImprovement(c.Request.Context()); err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, d.State())
}

func (h *Handler) publish(c *gin.Context) {
	a, err := auth.MustGetSession(c).PublishDraft()
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	metrics.Publishes.Inc()
	c.JSON(http.StatusCreated, a)
}
