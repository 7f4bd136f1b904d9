// Package session holds the per-reader application context: the article
// collection, the signed-in user, the theme and the draft being written.
package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"itpulse/internal/composer"
	"itpulse/internal/feed"
	"itpulse/pkg/models"
)

const justNowLabel = "Just now"

// Session serialises every mutation behind one lock, so an action always
// completes before the next one is looked at. The draft has its own lock
// because the improvement request runs outside of it.
type Session struct {
	ID        string
	StartedAt time.Time

	mu         sync.Mutex
	user       *models.User
	theme      string
	articles   []models.Article
	selectedID string
	draft      *composer.Composer

	newDraft func() *composer.Composer
	newID    func() string
}

func (s *Session) User() (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

func (s *Session) SignIn(u models.User) {
	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()
	log.WithFields(log.Fields{"session": s.ID, "user": u.ID}).Info("User signed in")
}

// SignOut forgets the user and drops any unfinished draft.
func (s *Session) SignOut() {
	s.mu.Lock()
	s.user = nil
	s.draft = nil
	s.mu.Unlock()
}

func (s *Session) Theme() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

func (s *Session) SetTheme(theme string) {
	s.mu.Lock()
	s.theme = theme
	s.mu.Unlock()
}

// Feed runs the feed query over the whole collection.
func (s *Session) Feed(q feed.Query) []models.Article {
	s.mu.Lock()
	defer s.mu.Unlock()
	return feed.Apply(s.articles, q)
}

// SelectArticle marks the article as the one being read and returns it.
func (s *Session) SelectArticle(id string) (models.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return models.Article{}, ErrArticleNotFound
	}
	s.selectedID = id
	return s.articles[i].Clone(), nil
}

func (s *Session) Selected() (models.Article, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(s.selectedID)
	if i < 0 {
		return models.Article{}, false
	}
	return s.articles[i].Clone(), true
}

// ToggleSubscription flips the subscription on every article written by
// authorID. Each article keeps its own author snapshot, so each one moves
// its own count by exactly one.
func (s *Session) ToggleSubscription(authorID string) (models.Author, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return models.Author{}, ErrNotAuthenticated
	}

	var (
		first models.Author
		found bool
	)
	for i := range s.articles {
		a := &s.articles[i].Author
		if a.ID != authorID {
			continue
		}
		if a.IsSubscribed {
			a.IsSubscribed = false
			a.SubscriberCount = max(a.SubscriberCount-1, 0)
		} else {
			a.IsSubscribed = true
			a.SubscriberCount++
		}
		if !found {
			first, found = *a, true
		}
	}
	if !found {
		return models.Author{}, ErrAuthorNotFound
	}
	return first, nil
}

// AddComment puts a new comment from the signed-in user at the top of the
// article's comment list.
func (s *Session) AddComment(articleID, text string) (models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return models.Comment{}, ErrNotAuthenticated
	}
	if strings.TrimSpace(text) == "" {
		return models.Comment{}, ErrEmptyComment
	}
	i := s.indexOf(articleID)
	if i < 0 {
		return models.Comment{}, ErrArticleNotFound
	}

	c := models.Comment{
		ID:           s.newID(),
		AuthorName:   s.user.Name,
		AvatarRef:    s.user.AvatarRef,
		Text:         text,
		CreatedLabel: justNowLabel,
	}
	s.articles[i].Comments = append([]models.Comment{c}, s.articles[i].Comments...)
	return c, nil
}

// StartDraft opens a fresh draft, replacing any unfinished one.
func (s *Session) StartDraft() (*composer.Composer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return nil, ErrNotAuthenticated
	}
	s.draft = s.newDraft()
	s.selectedID = ""
	return s.draft, nil
}

func (s *Session) Draft() (*composer.Composer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return nil, ErrNotAuthenticated
	}
	if s.draft == nil {
		return nil, ErrNoDraft
	}
	return s.draft, nil
}

func (s *Session) CancelDraft() {
	s.mu.Lock()
	s.draft = nil
	s.mu.Unlock()
}

// PublishDraft submits the draft, appends the article to the collection
// and selects it. A validation failure keeps the draft open.
func (s *Session) PublishDraft() (models.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return models.Article{}, ErrNotAuthenticated
	}
	if s.draft == nil {
		return models.Article{}, ErrNoDraft
	}

	article, err := s.draft.Submit(*s.user)
	if err != nil {
		return models.Article{}, err
	}
	if s.indexOf(article.ID) >= 0 {
		return models.Article{}, fmt.Errorf("publish: duplicate article id %s", article.ID)
	}

	s.articles = append(s.articles, *article)
	s.draft = nil
	s.selectedID = article.ID

	log.WithFields(log.Fields{
		"session": s.ID,
		"article": article.ID,
		"blocks":  len(article.SourceBlocks),
	}).Info("Article published")
	return article.Clone(), nil
}

// AuthoredBy lists the ids of articles whose author snapshot has authorID.
func (s *Session) AuthoredBy(authorID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return lo.FilterMap(s.articles, func(a models.Article, _ int) (string, bool) {
		return a.ID, a.Author.ID == authorID
	})
}

func (s *Session) indexOf(id string) int {
	if id == "" {
		return -1
	}
	_, i, ok := lo.FindIndexOf(s.articles, func(a models.Article) bool { return a.ID == id })
	if !ok {
		return -1
	}
	return i
}
