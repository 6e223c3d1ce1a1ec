package folio

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/eringen/folio/markdown"
	"github.com/eringen/folio/site"
	"github.com/eringen/folio/store"
)

const (
	testPassword  = "s3cret"
	testCSRFToken = "test-csrf-token"
)

func testConfig(t *testing.T) SiteConfig {
	t.Helper()
	return SiteConfig{
		Name:          "Test Site",
		URL:           "https://example.com",
		Description:   "A test portfolio",
		SessionSecret: "test-session-secret-0123456789abcdef",
		AdminPassword: testPassword,
		StaticDir:     t.TempDir(),
		DisableWatch:  true,
	}
}

// newTestApp builds a ready App over a file store in a temp directory.
func newTestApp(t *testing.T, cfg SiteConfig, opts ...Option) *App {
	t.Helper()
	s, err := store.NewFileStore(t.TempDir(), markdown.Render)
	require.NoError(t, err)
	content, err := site.Default()
	require.NoError(t, err)

	all := append([]Option{WithStore(s), WithSiteContent(content)}, opts...)
	app := New(cfg, DefaultViews(), all...)
	require.NoError(t, app.Setup())
	t.Cleanup(func() { app.Close() })
	return app
}

func serve(app *App, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.Echo.ServeHTTP(rec, req)
	return rec
}

// withCSRF attaches a matching CSRF cookie and header, as a browser page
// that loaded the token would send.
func withCSRF(req *http.Request) *http.Request {
	req.AddCookie(&http.Cookie{Name: "_csrf", Value: testCSRFToken})
	req.Header.Set("X-CSRF-Token", testCSRFToken)
	return req
}

func jsonRequest(method, target, body, token string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	return req
}

func formRequest(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// apiToken logs in through the API and returns the bearer token.
func apiToken(t *testing.T, app *App) string {
	t.Helper()
	rec := serve(app, jsonRequest(http.MethodPost, "/api/auth/login",
		`{"username":"admin","password":"`+testPassword+`"}`, ""))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[tokenResponse](t, rec)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

// adminSession logs in through the HTML form and returns the session cookie.
func adminSession(t *testing.T, app *App) *http.Cookie {
	t.Helper()
	rec := serve(app, withCSRF(formRequest("/admin/login/", url.Values{
		"username": {"admin"},
		"password": {testPassword},
	})))
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionName {
			return c
		}
	}
	t.Fatal("login did not set a session cookie")
	return nil
}

func mustCreatePost(t *testing.T, app *App, in store.NewPost) store.Post {
	t.Helper()
	p, err := app.Store.CreatePost(context.Background(), in)
	require.NoError(t, err)
	app.Cache.Invalidate()
	return p
}
