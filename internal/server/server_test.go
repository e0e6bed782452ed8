package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gorilla/websocket"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"login-portal/internal/config"
	"login-portal/internal/domain/auth"
	"login-portal/internal/identity"
	"login-portal/internal/logging"
)

type testEnv struct {
	srv *Server
	ts  *httptest.Server
}

func testConfig(t *testing.T, args ...string) *config.Config {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	require.NoError(t, fs.Parse(append([]string{"--login-delay", "0s", "--identity-secret", "test-secret"}, args...)))
	cfg, err := config.Load("", fs)
	require.NoError(t, err)
	return cfg
}

func newTestEnv(t *testing.T, ready bool) *testEnv {
	t.Helper()
	ctx := context.Background()

	srv, err := New(ctx, testConfig(t), logging.Discard())
	require.NoError(t, err)
	if ready {
		require.NoError(t, srv.WaitReady(ctx))
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return &testEnv{srv: srv, ts: ts}
}

// newClient returns a browser-like client: it keeps cookies and does not
// follow redirects.
func (e *testEnv) newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
		Timeout: 5 * time.Second,
	}
}

func (e *testEnv) get(t *testing.T, c *http.Client, path string) *http.Response {
	t.Helper()
	resp, err := c.Get(e.ts.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) postForm(t *testing.T, c *http.Client, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := c.PostForm(e.ts.URL+path, form)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) postJSON(t *testing.T, c *http.Client, path, body string) *http.Response {
	t.Helper()
	resp, err := c.Post(e.ts.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) login(t *testing.T, c *http.Client, username, password string) *http.Response {
	t.Helper()
	return e.postForm(t, c, "/login", url.Values{"username": {username}, "password": {password}})
}

func document(t *testing.T, resp *http.Response) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	return doc
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestLoginPage_InitialRender(t *testing.T) {
	env := newTestEnv(t, true)
	c := env.newClient(t)

	resp := env.get(t, c, "/login")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	u, _ := url.Parse(env.ts.URL)
	cookies := c.Jar.Cookies(u)
	require.Len(t, cookies, 1)
	assert.Equal(t, identity.CookieName, cookies[0].Name)

	doc := document(t, resp)
	assert.Equal(t, "Iniciar Sesión", strings.TrimSpace(doc.Find("h2").Text()))
	assert.Equal(t, "Ingresa tus credenciales para acceder", strings.TrimSpace(doc.Find(".subtitle").Text()))
	assert.Equal(t, "Usuario (2-50 caracteres)", doc.Find("#username").AttrOr("placeholder", ""))
	assert.Equal(t, "Contraseña (3-128 caracteres)", doc.Find("#password").AttrOr("placeholder", ""))

	_, disabled := doc.Find("#submit").Attr("disabled")
	assert.True(t, disabled, "submit starts disabled")
	_, hidden := doc.Find("#general-error").Attr("hidden")
	assert.True(t, hidden)
}

func TestLogin_ValidCredentialsReachDashboard(t *testing.T) {
	env := newTestEnv(t, true)
	c := env.newClient(t)

	resp := env.login(t, c, "admin", "admin")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, auth.HomePath, resp.Header.Get("Location"))

	home := env.get(t, c, "/")
	require.Equal(t, http.StatusOK, home.StatusCode)
	doc := document(t, home)
	assert.Equal(t, "¡Bienvenido al Dashboard!", strings.TrimSpace(doc.Find("h1").Text()))
	assert.Equal(t, "admin", doc.Find("#username").Text())
	assert.Equal(t, "/logout", doc.Find("#logout-form").AttrOr("action", ""))

	session := decode[auth.SessionView](t, env.get(t, c, "/api/session"))
	assert.True(t, session.IsAuthenticated)
	require.NotNil(t, session.Username)
	assert.Equal(t, "admin", *session.Username)
}

func TestLogin_WrongCredentialsStayOnLoginPage(t *testing.T) {
	env := newTestEnv(t, true)
	c := env.newClient(t)

	resp := env.login(t, c, "wrong", "wrong")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	doc := document(t, resp)
	_, hidden := doc.Find("#general-error").Attr("hidden")
	assert.False(t, hidden)
	assert.Equal(t, "Error de autenticación", strings.TrimSpace(doc.Find("#general-error h3").Text()))
	assert.Equal(t, auth.MsgInvalidCredentials, doc.Find("#general-message").Text())
	assert.Equal(t, "wrong", doc.Find("#username").AttrOr("value", ""))
	assert.Equal(t, "", doc.Find("#password").AttrOr("value", ""), "password is not echoed")

	session := decode[auth.SessionView](t, env.get(t, c, "/api/session"))
	assert.False(t, session.IsAuthenticated)
	assert.Nil(t, session.Username)
}

func TestLogin_InvalidFormShowsFieldErrors(t *testing.T) {
	env := newTestEnv(t, true)
	c := env.newClient(t)

	resp := env.login(t, c, "a", "123")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	doc := document(t, resp)
	assert.Equal(t, auth.MsgUsernameTooShort, doc.Find("#username-error").Text())
	assert.Equal(t, auth.MsgPasswordLetter, doc.Find("#password-error").Text())
	assert.Equal(t, "true", doc.Find("#username").AttrOr("aria-invalid", ""))
	_, hidden := doc.Find("#general-error").Attr("hidden")
	assert.True(t, hidden)
}

func TestHome_AnonymousRedirectsToLogin(t *testing.T) {
	env := newTestEnv(t, true)

	resp := env.get(t, env.newClient(t), "/")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, auth.LoginPath, resp.Header.Get("Location"))
}

func TestHome_LoadingUntilStorageReady(t *testing.T) {
	env := newTestEnv(t, false)

	resp := env.get(t, env.newClient(t), "/")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Refresh"))
	doc := document(t, resp)
	assert.Equal(t, "Verificando autenticación...", strings.TrimSpace(doc.Find("#loading").Text()))

	health := env.get(t, env.newClient(t), "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, health.StatusCode)
}

func TestLoginPage_AuthenticatedRedirectsHome(t *testing.T) {
	env := newTestEnv(t, true)
	c := env.newClient(t)
	env.login(t, c, "admin", "admin")

	resp := env.get(t, c, "/login")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, auth.HomePath, resp.Header.Get("Location"))
}

func TestLogout_ReturnsToLogin(t *testing.T) {
	env := newTestEnv(t, true)
	c := env.newClient(t)
	env.login(t, c, "admin", "admin")

	resp := env.postForm(t, c, "/logout", url.Values{})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, auth.LoginPath, resp.Header.Get("Location"))

	home := env.get(t, c, "/")
	assert.Equal(t, http.StatusFound, home.StatusCode)
}

func TestClientsAreIsolated(t *testing.T) {
	env := newTestEnv(t, true)
	alice := env.newClient(t)
	bob := env.newClient(t)

	env.login(t, alice, "admin", "admin")

	assert.Equal(t, http.StatusOK, env.get(t, alice, "/").StatusCode)
	assert.Equal(t, http.StatusFound, env.get(t, bob, "/").StatusCode)
}

func TestAPILogin(t *testing.T) {
	env := newTestEnv(t, true)
	c := env.newClient(t)

	bad := env.postJSON(t, c, "/api/login", `{"username":"admin","password":"nope1"}`)
	assert.Equal(t, http.StatusUnauthorized, bad.StatusCode)
	body := decode[map[string]any](t, bad)
	assert.Equal(t, auth.MsgInvalidCredentials, body["message"])

	invalid := env.postJSON(t, c, "/api/login", `{"username":"","password":""}`)
	assert.Equal(t, http.StatusBadRequest, invalid.StatusCode)
	fields := decode[struct {
		Fields map[string]string `json:"fields"`
	}](t, invalid).Fields
	assert.Equal(t, auth.MsgUsernameRequired, fields[auth.FieldUsername])
	assert.Equal(t, auth.MsgPasswordRequired, fields[auth.FieldPassword])

	ok := env.postJSON(t, c, "/api/login", `{"username":"admin","password":"admin"}`)
	require.Equal(t, http.StatusOK, ok.StatusCode)
	res := decode[auth.LoginResult](t, ok)
	assert.Equal(t, auth.LoginResult{Username: "admin", RedirectURI: auth.HomePath}, res)

	out := env.postJSON(t, c, "/api/logout", `{}`)
	require.Equal(t, http.StatusOK, out.StatusCode)
	assert.False(t, decode[auth.SessionView](t, out).IsAuthenticated)
}

func TestValidateAPI(t *testing.T) {
	env := newTestEnv(t, true)
	c := env.newClient(t)

	type result struct {
		Errors  map[string]string `json:"errors"`
		Touched map[string]bool   `json:"touched"`
		Valid   bool              `json:"valid"`
	}

	tests := []struct {
		name        string
		body        string
		wantErrors  map[string]string
		wantTouched map[string]bool
		wantValid   bool
	}{
		{
			name:        "change before touch is ignored",
			body:        `{"username":"a","password":"","field":"username","event":"change"}`,
			wantErrors:  map[string]string{},
			wantTouched: map[string]bool{},
		},
		{
			name:        "blur marks touched and checks",
			body:        `{"username":"a","password":"","field":"username","event":"blur"}`,
			wantErrors:  map[string]string{"username": auth.MsgUsernameTooShort},
			wantTouched: map[string]bool{"username": true},
		},
		{
			name:        "change after touch clears",
			body:        `{"username":"ab","password":"","field":"username","event":"change","touched":{"username":true},"errors":{"username":"x"}}`,
			wantErrors:  map[string]string{},
			wantTouched: map[string]bool{"username": true},
		},
		{
			name:        "other field errors are kept",
			body:        `{"username":"ab","password":"a b","field":"username","event":"blur","errors":{"password":"` + auth.MsgPasswordSpace + `"}}`,
			wantErrors:  map[string]string{"password": auth.MsgPasswordSpace},
			wantTouched: map[string]bool{"username": true},
		},
		{
			name:        "editing drops credential error",
			body:        `{"username":"admin","password":"admin","field":"password","event":"change","errors":{"general":"` + auth.MsgInvalidCredentials + `"}}`,
			wantErrors:  map[string]string{},
			wantTouched: map[string]bool{},
			wantValid:   true,
		},
		{
			name:        "whole form",
			body:        `{"username":"","password":"abc"}`,
			wantErrors:  map[string]string{"username": auth.MsgUsernameRequired},
			wantTouched: map[string]bool{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.postJSON(t, c, "/api/validate", tt.body)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			got := decode[result](t, resp)
			assert.Equal(t, tt.wantErrors, got.Errors)
			assert.Equal(t, tt.wantTouched, got.Touched)
			assert.Equal(t, tt.wantValid, got.Valid)
		})
	}

	t.Run("unknown field", func(t *testing.T) {
		resp := env.postJSON(t, c, "/api/validate", `{"field":"email","event":"blur"}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
	t.Run("malformed body", func(t *testing.T) {
		resp := env.postJSON(t, c, "/api/validate", `{`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestSessionStream_PushesChanges(t *testing.T) {
	env := newTestEnv(t, true)
	c := env.newClient(t)
	env.get(t, c, "/login")

	u, err := url.Parse(env.ts.URL)
	require.NoError(t, err)
	header := http.Header{}
	for _, ck := range c.Jar.Cookies(u) {
		header.Add("Cookie", ck.String())
	}

	wsURL := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/ws/session"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var first auth.SessionView
	require.NoError(t, conn.ReadJSON(&first))
	assert.False(t, first.IsAuthenticated)

	env.login(t, c, "admin", "admin")

	var next auth.SessionView
	require.NoError(t, conn.ReadJSON(&next))
	assert.True(t, next.IsAuthenticated)
	require.NotNil(t, next.Username)
	assert.Equal(t, "admin", *next.Username)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, true)
	c := env.newClient(t)
	env.login(t, c, "admin", "admin")

	resp := env.get(t, c, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "login_portal_login_attempts_total")
}
