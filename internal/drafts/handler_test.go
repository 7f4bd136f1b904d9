package drafts_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itpulse/internal/assist"
	"itpulse/internal/auth"
	"itpulse/internal/composer"
	"itpulse/internal/drafts"
	"itpulse/internal/feed"
	"itpulse/internal/seed"
	"itpulse/internal/session"
	"itpulse/pkg/models"
)

type improverStub struct {
	out *assist.Improvement
	err error
}

func (s improverStub) Improve(context.Context, string, string) (*assist.Improvement, error) {
	return s.out, s.err
}

type fixture struct {
	router  *gin.Engine
	session *session.Session
	token   string
}

func newFixture(t *testing.T, opts ...session.ManagerOption) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	catalogue, err := seed.Load()
	require.NoError(t, err)

	sessions := session.NewManager(catalogue, opts...)
	tokens := auth.TokenService{Secret: []byte("secret"), Issuer: "test", Duration: time.Hour}

	r := gin.New()
	drafts.NewHandler().RegisterRoutes(r.Group("/api", auth.SessionMiddleware(tokens, sessions)))

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

func decodeState(t *testing.T, w *httptest.ResponseRecorder) composer.State {
	t.Helper()
	var st composer.State
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	return st
}

func TestDraftsNeedSignIn(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/drafts", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"not authenticated","prompt":"sign_in"}`, w.Body.String())
}

func TestNoDraft(t *testing.T) {
	f := newFixture(t)
	f.session.SignIn(auth.NewUser("ada@example.com"))

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/drafts/current", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/api/drafts/current/publish", nil).Code)
}

func TestComposeAndPublish(t *testing.T) {
	f := newFixture(t)
	f.session.SignIn(auth.NewUser("ada@example.com"))

	w := f.do(t, http.MethodPost, "/api/drafts", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	st := decodeState(t, w)
	require.Len(t, st.Blocks, 1)
	assert.Equal(t, "Dev", st.Category)
	assert.Equal(t, []string{"title", "summary", "body"}, st.Missing)
	paragraph := st.Blocks[0].ID

	w = f.do(t, http.MethodPost, "/api/drafts/current/publish", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.JSONEq(t, `{"error":"missing required fields: title, summary, body","missing":["title","summary","body"]}`, w.Body.String())

	w = f.do(t, http.MethodPatch, "/api/drafts/current", gin.H{"title": "Go 1.24", "summary": "What changed", "category": "Cloud"})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPatch, "/api/drafts/current", gin.H{"category": "All"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/drafts/current/blocks", gin.H{"kind": "heading"})
	require.Equal(t, http.StatusCreated, w.Code)
	var added struct {
		Block models.ContentBlock `json:"block"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &added))
	heading := added.Block.ID

	w = f.do(t, http.MethodPost, "/api/drafts/current/blocks", gin.H{"kind": "video"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPut, "/api/drafts/current/blocks/"+heading, gin.H{"value": "Intro"}).Code)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPut, "/api/drafts/current/blocks/"+paragraph, gin.H{"value": "Generic aliases."}).Code)

	before := f.do(t, http.MethodGet, "/api/drafts/current", nil).Body.String()
	w = f.do(t, http.MethodPut, "/api/drafts/current/blocks/missing", gin.H{"value": "x"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, before, w.Body.String())

	w = f.do(t, http.MethodPost, "/api/drafts/current/blocks/move", gin.H{"index": 1, "direction": "up"})
	require.Equal(t, http.StatusOK, w.Code)
	var moved struct {
		Moved bool           `json:"moved"`
		Draft composer.State `json:"draft"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &moved))
	assert.True(t, moved.Moved)
	assert.Equal(t, heading, moved.Draft.Blocks[0].ID)

	w = f.do(t, http.MethodPost, "/api/drafts/current/blocks/move", gin.H{"index": 0, "direction": "up"})
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &moved))
	assert.False(t, moved.Moved)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/drafts/current/blocks/move", gin.H{"direction": "up"}).Code)

	w = f.do(t, http.MethodPost, "/api/drafts/current/publish", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var a models.Article
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &a))
	assert.Equal(t, "## Intro\n\nGeneric aliases.", a.Body)
	assert.Equal(t, []string{"Intro"}, a.TableOfContents)
	assert.Equal(t, "Cloud", a.Category)
	assert.True(t, a.IsUserAuthored)
	assert.Equal(t, "ada", a.Author.DisplayName)

	newest := f.session.Feed(feed.Query{})
	assert.Equal(t, a.ID, newest[0].ID)

	selected, ok := f.session.Selected()
	require.True(t, ok)
	assert.Equal(t, a.ID, selected.ID)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/drafts/current", nil).Code)
}

func TestRemoveLastBlockRejected(t *testing.T) {
	f := newFixture(t)
	f.session.SignIn(auth.NewUser("ada@example.com"))

	st := decodeState(t, f.do(t, http.MethodPost, "/api/drafts", nil))
	w := f.do(t, http.MethodDelete, "/api/drafts/current/blocks/"+st.Blocks[0].ID, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	f.do(t, http.MethodPost, "/api/drafts/current/blocks", gin.H{"kind": "image"})
	w = f.do(t, http.MethodDelete, "/api/drafts/current/blocks/"+st.Blocks[0].ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	after := decodeState(t, w)
	require.Len(t, after.Blocks, 1)
	assert.Equal(t, models.BlockImage, after.Blocks[0].Kind)

	w = f.do(t, http.MethodDelete, "/api/drafts/current/blocks/unknown", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCancelDraft(t *testing.T) {
	f := newFixture(t)
	f.session.SignIn(auth.NewUser("ada@example.com"))

	f.do(t, http.MethodPost, "/api/drafts", nil)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodDelete, "/api/drafts/current", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/drafts/current", nil).Code)
}

func TestImprove(t *testing.T) {
	f := newFixture(t, session.WithImprover(improverStub{out: &assist.Improvement{
		ImprovedTitle:    "Sharper title",
		ImprovedContent:  "Tighter body.",
		SuggestedSummary: "One line.",
		SuggestedTags:    []string{"Go"},
	}}))
	f.session.SignIn(auth.NewUser("ada@example.com"))

	st := decodeState(t, f.do(t, http.MethodPost, "/api/drafts", nil))

	w := f.do(t, http.MethodPost, "/api/drafts/current/improve", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	f.do(t, http.MethodPatch, "/api/drafts/current", gin.H{"title": "rough"})
	f.do(t, http.MethodPut, "/api/drafts/current/blocks/"+st.Blocks[0].ID, gin.H{"value": "rough body"})

	w = f.do(t, http.MethodPost, "/api/drafts/current/improve", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeState(t, w)
	assert.Equal(t, "Sharper title", got.Title)
	assert.Equal(t, "One line.", got.Summary)
	assert.Equal(t, []string{"Go"}, got.Tags)
	require.Len(t, got.Blocks, 1)
	assert.Equal(t, "Tighter body.", got.Blocks[0].Value)
	assert.True(t, got.Ready)
}

func TestImproveFailures(t *testing.T) {
	tests := []struct {
		name string
		opts []session.ManagerOption
		want int
	}{
		{"no improver configured", nil, http.StatusServiceUnavailable},
		{"missing key", []session.ManagerOption{session.WithImprover(improverStub{err: &assist.Error{Kind: assist.KindCredential, Err: assist.ErrMissingAPIKey}})}, http.StatusServiceUnavailable},
		{"bad response", []session.ManagerOption{session.WithImprover(improverStub{err: &assist.Error{Kind: assist.KindSchema, Err: errors.New("no tags")}})}, http.StatusBadGateway},
		{"network", []session.ManagerOption{session.WithImprover(improverStub{err: errors.New("dial tcp: refused")})}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.opts...)
			f.session.SignIn(auth.NewUser("ada@example.com"))

			st := decodeState(t, f.do(t, http.MethodPost, "/api/drafts", nil))
			f.do(t, http.MethodPatch, "/api/drafts/current", gin.H{"title": "rough"})
			f.do(t, http.MethodPut, "/api/drafts/current/blocks/"+st.Blocks[0].ID, gin.H{"value": "rough body"})

			w := f.do(t, http.MethodPost, "/api/drafts/current/improve", nil)
			assert.Equal(t, tt.want, w.Code)

			after := decodeState(t, f.do(t, http.MethodGet, "/api/drafts/current", nil))
			assert.Equal(t, "rough", after.Title)
			assert.Equal(t, "rough body", after.Blocks[0].Value)
		})
	}
}
