package articles_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itpulse/internal/articles"
	"itpulse/internal/auth"
	"itpulse/internal/seed"
	"itpulse/internal/session"
	"itpulse/pkg/models"
)

type fixture struct {
	router  *gin.Engine
	session *session.Session
	token   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	catalogue, err := seed.Load()
	require.NoError(t, err)

	sessions := session.NewManager(catalogue)
	tokens := auth.TokenService{Secret: []byte("secret"), Issuer: "test", Duration: time.Hour}

	r := gin.New()
	api := r.Group("/api", auth.SessionMiddleware(tokens, sessions))
	articles.NewHandler().RegisterRoutes(api)

	s := sessions.Start("light")
	token, _, err := tokens.Sign(s.ID)
	require.NoError(t, err)
	return &fixture{router: r, session: s, token: token}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+f.token)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

type feedResp struct {
	Total int              `json:"total"`
	Items []models.Article `json:"items"`
}

func ids(items []models.Article) []string {
	out := make([]string, len(items))
	for i, a := range items {
		out[i] = a.ID
	}
	return out
}

func TestFeed(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"default newest", "", []string{"3", "2", "1"}},
		{"popular", "?sort=popular", []string{"2", "3", "1"}},
		{"trending matches popular", "?sort=trending", []string{"2", "3", "1"}},
		{"category", "?category=AI", []string{"2"}},
		{"category case", "?category=hardware", []string{"1"}},
		{"search", "?q=RUST", []string{"3"}},
		{"search summary", "?q=smartphone", []string{"1"}},
		{"no match", "?q=kubernetes", []string{}},
		{"limit", "?sort=popular&limit=2", []string{"2", "3"}},
		{"offset", "?sort=popular&offset=2", []string{"1"}},
		{"offset past end", "?offset=9", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodGet, "/api/feed"+tt.query, nil)
			require.Equal(t, http.StatusOK, w.Code)

			var out feedResp
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
			assert.Equal(t, tt.want, ids(out.Items))
		})
	}
}

func TestFeedRejectsBadParams(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/feed?sort=oldest", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/feed?category=Gaming", nil).Code)
}

func TestFeedNeedsSession(t *testing.T) {
	f := newFixture(t)
	f.token = ""
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/feed", nil).Code)
}

func TestCategories(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/api/categories", nil)
	assert.JSONEq(t, `{"items":["All","AI","Dev","Hardware","Security","Cloud"]}`, w.Body.String())
}

func TestSelectArticle(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/selected", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, "/api/articles/2", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/selected", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var a models.Article
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &a))
	assert.Equal(t, "2", a.ID)

	w = f.do(t, http.MethodGet, "/api/articles/404", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubscribeRequiresSignIn(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/authors/a1/subscribe", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"not authenticated","prompt":"sign_in"}`, w.Body.String())

	a, err := f.session.SelectArticle("1")
	require.NoError(t, err)
	assert.Equal(t, 82200, a.Author.SubscriberCount)
	assert.False(t, a.Author.IsSubscribed)
}

func TestSubscribeToggles(t *testing.T) {
	f := newFixture(t)
	f.session.SignIn(auth.NewUser("ada@example.com"))

	var out struct {
		Author   models.Author `json:"author"`
		Articles []string      `json:"articles"`
	}

	w := f.do(t, http.MethodPost, "/api/authors/a1/subscribe", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.True(t, out.Author.IsSubscribed)
	assert.Equal(t, 82201, out.Author.SubscriberCount)
	assert.Equal(t, []string{"1"}, out.Articles)

	w = f.do(t, http.MethodPost, "/api/authors/a1/subscribe", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.False(t, out.Author.IsSubscribed)
	assert.Equal(t, 82200, out.Author.SubscriberCount)

	w = f.do(t, http.MethodPost, "/api/authors/nobody/subscribe", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddComment(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/articles/1/comments", gin.H{"text": "hi"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	f.session.SignIn(auth.NewUser("ada@example.com"))

	w = f.do(t, http.MethodPost, "/api/articles/1/comments", gin.H{"text": "Great read"})
	require.Equal(t, http.StatusCreated, w.Code)
	var c models.Comment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &c))
	assert.Equal(t, "Great read", c.Text)
	assert.Equal(t, "ada", c.AuthorName)
	assert.Equal(t, "Just now", c.CreatedLabel)

	a, err := f.session.SelectArticle("1")
	require.NoError(t, err)
	require.Len(t, a.Comments, 2)
	assert.Equal(t, c.ID, a.Comments[0].ID)

	w = f.do(t, http.MethodPost, "/api/articles/1/comments", gin.H{"text": " \n\t "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/articles/999/comments", gin.H{"text": "hello"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCommentTextIsStoredAsTyped(t *testing.T) {
	f := newFixture(t)
	f.session.SignIn(auth.NewUser("ada@example.com"))

	tests := []string{
		"List<String> is verbose",
		"if a<b and c>d then",
		"&lt;script&gt;alert(1)&lt;/script&gt;",
		"<b>bold</b> claims",
	}
	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/api/articles/2/comments", gin.H{"text": text})
			require.Equal(t, http.StatusCreated, w.Code)

			var c models.Comment
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &c))
			assert.Equal(t, text, c.Text)

			a, err := f.session.SelectArticle("2")
			require.NoError(t, err)
			assert.Equal(t, text, a.Comments[0].Text)
			assert.NotContains(t, a.Comments[0].Text, "<script>")
		})
	}
}
