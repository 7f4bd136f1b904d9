// Package articles serves the feed and the reader-facing article actions.
package articles

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"itpulse/internal/apierr"
	"itpulse/internal/auth"
	"itpulse/internal/feed"
	"itpulse/internal/metrics"
	"itpulse/pkg/models"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// RegisterRoutes expects rg to run auth.SessionMiddleware already.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/feed", h.feed)                         // GET /api/feed?category=&q=&sort=
	rg.GET("/categories", h.categories)             // GET /api/categories
	rg.GET("/articles/:id", h.getByID)              // GET /api/articles/:id
	rg.GET("/selected", h.selected)                 // GET /api/selected
	rg.POST("/articles/:id/comments", h.addComment) // POST /api/articles/:id/comments
	rg.POST("/authors/:id/subscribe", h.subscribe)  // POST /api/authors/:id/subscribe
}

func (h *Handler) feed(c *gin.Context) {
	category, ok := feed.ParseCategory(c.Query("category"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category"})
		return
	}
	sort, ok := feed.ParseSort(c.Query("sort"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sort must be newest, popular or trending"})
		return
	}

	q := feed.Query{Category: category, Search: c.Query("q"), Sort: sort}
	items := auth.MustGetSession(c).Feed(q)
	metrics.FeedQueries.WithLabelValues(string(sort)).Inc()

	total := len(items)
	offset := min(max(parseInt(c.Query("offset"), 0), 0), total)
	items = items[offset:]
	if limit := parseInt(c.Query("limit"), 0); limit > 0 && limit < len(items) {
		items = items[:limit]
	}

	c.JSON(http.StatusOK, gin.H{
		"total":    total,
		"offset":   offset,
		"category": category,
		"sort":     sort,
		"items":    items,
	})
}

func (h *Handler) categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": models.Categories})
}

func (h *Handler) getByID(c *gin.Context) {
	a, err := auth.MustGetSession(c).SelectArticle(c.Param("id"))
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) selected(c *gin.Context) {
	a, ok := auth.MustGetSession(c).Selected()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no article selected"})
		return
	}
	c.JSON(http.StatusOK, a)
}

type commentReq struct {
	Text string `json:"text"`
}

func (h *Handler) addComment(c *gin.Context) {
	var req commentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	// Stored as typed; clients escape comment text when rendering.
	s := auth.MustGetSession(c)
	comment, err := s.AddComment(c.Param("id"), req.Text)
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	metrics.Comments.Inc()
	c.JSON(http.StatusCreated, comment)
}

func (h *Handler) subscribe(c *gin.Context) {
	s := auth.MustGetSession(c)
	authorID := c.Param("id")

	author, err := s.ToggleSubscription(authorID)
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	metrics.RecordSubscription(author.IsSubscribed)
	log.WithFields(log.Fields{
		"session":    s.ID,
		"author":     authorID,
		"subscribed": author.IsSubscribed,
	}).Debug("Subscription toggled")

	c.JSON(http.StatusOK, gin.H{
		"author":   author,
		"articles": s.AuthoredBy(authorID),
	})
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
