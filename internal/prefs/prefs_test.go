package prefs_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itpulse/internal/auth"
	"itpulse/internal/prefs"
	"itpulse/internal/session"
	"itpulse/pkg/database"
)

func newService(t *testing.T) *prefs.Service {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "prefs.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))
	return prefs.NewService(prefs.NewRepo(db))
}

func TestRepoGetSet(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, ok, err := svc.Repo.Get(ctx, "client-1", "theme")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, svc.Repo.Set(ctx, "client-1", "theme", "dark"))
	require.NoError(t, svc.Repo.Set(ctx, "client-1", "theme", "light"))

	v, ok, err := svc.Repo.Get(ctx, "client-1", "theme")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "light", v)

	_, ok, err = svc.Repo.Get(ctx, "client-2", "theme")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestThemeFallsBackToSystemPreference(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	theme, err := svc.Theme(ctx, "client-1", "dark")
	require.NoError(t, err)
	assert.Equal(t, prefs.ThemeDark, theme)

	theme, err = svc.Theme(ctx, "client-1", "")
	require.NoError(t, err)
	assert.Equal(t, prefs.ThemeLight, theme)

	require.NoError(t, svc.SetTheme(ctx, "client-1", "Light"))
	theme, err = svc.Theme(ctx, "client-1", "dark")
	require.NoError(t, err)
	assert.Equal(t, prefs.ThemeLight, theme)
}

func TestThemeIgnoresInvalidStoredValue(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.Repo.Set(ctx, "client-1", "theme", "sepia"))
	theme, err := svc.Theme(ctx, "client-1", `"dark"`)
	require.NoError(t, err)
	assert.Equal(t, prefs.ThemeDark, theme)
}

func TestSetThemeRejectsUnknown(t *testing.T) {
	svc := newService(t)
	assert.ErrorIs(t, svc.SetTheme(context.Background(), "client-1", "sepia"), prefs.ErrUnknownTheme)
}

func TestSystemThemeAndToggle(t *testing.T) {
	assert.Equal(t, prefs.ThemeDark, prefs.SystemTheme("dark"))
	assert.Equal(t, prefs.ThemeDark, prefs.SystemTheme(` "Dark" `))
	assert.Equal(t, prefs.ThemeLight, prefs.SystemTheme("light"))
	assert.Equal(t, prefs.ThemeLight, prefs.SystemTheme("no-preference"))

	assert.Equal(t, prefs.ThemeLight, prefs.Toggle(prefs.ThemeDark))
	assert.Equal(t, prefs.ThemeDark, prefs.Toggle(prefs.ThemeLight))
}

func TestHandlerTogglePersists(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := newService(t)
	sessions := session.NewManager(nil)
	tokens := auth.TokenService{Secret: []byte("secret"), Issuer: "test", Duration: time.Hour}

	r := gin.New()
	api := r.Group("/api", auth.SessionMiddleware(tokens, sessions))
	prefs.NewHandler(svc).RegisterRoutes(api)

	s := sessions.Start(prefs.ThemeLight)
	token, _, err := tokens.Sign(s.ID)
	require.NoError(t, err)

	const client = "7d1c1bde-4a6f-4d0f-9b0e-2f2f7c6f1a11"
	send := func(method, path string, body any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Authorization", "Bearer "+token)
		req.AddCookie(&http.Cookie{Name: auth.ClientCookie, Value: client})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := send(http.MethodPost, "/api/theme/toggle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"theme":"dark","persisted":true}`, w.Body.String())
	assert.Equal(t, prefs.ThemeDark, s.Theme())

	stored, err := svc.Theme(context.Background(), client, "light")
	require.NoError(t, err)
	assert.Equal(t, prefs.ThemeDark, stored)

	w = send(http.MethodPut, "/api/theme", gin.H{"theme": "light"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, prefs.ThemeLight, s.Theme())

	w = send(http.MethodPut, "/api/theme", gin.H{"theme": "sepia"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = send(http.MethodGet, "/api/theme", nil)
	assert.JSONEq(t, `{"theme":"light"}`, w.Body.String())
}
