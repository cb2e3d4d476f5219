package controllers

import (
	"net/http"
	"net/http/httptest"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"testing"
	"time"

	restful "github.com/emicklei/go-restful/v3"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"webguard/auth"
	"webguard/database/dbtest"
	"webguard/repositories"
	"webguard/services"
)

const cookieName = "session_token"

type testApp struct {
	server *httptest.Server
	users  services.UserService
	tokens *auth.TokenIssuer
}

// newTestApp serves the session, page and user routes behind the security
// filter, backed by a freshly seeded database.
func newTestApp(t *testing.T, opts ...func(*SessionConfig)) *testApp {
	t.Helper()
	db := dbtest.OpenTestDB(t)
	encoder := auth.BCryptEncoder{Cost: bcrypt.MinCost}
	roleRepo := repositories.NewRoleRepository(db)
	users := services.NewUserService(repositories.NewUserRepository(db), roleRepo, encoder)
	roles := services.NewRoleService(roleRepo)
	logger := zap.NewNop()

	provider, err := auth.NewAuthenticationProvider(t.Context(), users, roles, encoder, auth.DefaultSeedOptions(), logger)
	require.NoError(t, err)
	tokens, err := auth.NewTokenIssuer([]byte("test-secret"), time.Hour, "webguard")
	require.NoError(t, err)

	c := restful.NewContainer()
	c.Filter(auth.Filter(auth.FilterConfig{
		Policy:     auth.DefaultPolicy(),
		Tokens:     tokens,
		CookieName: cookieName,
		LoginPath:  "/login",
	}))

	root := new(restful.WebService)
	root.Path("/")
	sessionCfg := SessionConfig{
		CookieName:       cookieName,
		LoginPath:        "/login",
		LogoutSuccessURL: "/login",
	}
	for _, opt := range opts {
		opt(&sessionCfg)
	}
	NewSessionController(provider, tokens, auth.DefaultSuccessHandler(), sessionCfg, logger).RegisterRoutes(root)
	NewPageController().RegisterRoutes(root)
	c.Add(root)

	usersWS := new(restful.WebService)
	NewUserController(users, logger).RegisterRoutes(usersWS)
	c.Add(usersWS)

	srv := httptest.NewServer(c)
	t.Cleanup(srv.Close)
	return &testApp{server: srv, users: users, tokens: tokens}
}

// client returns a cookie-keeping client that does not follow redirects.
func (a *testApp) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (a *testApp) postForm(t *testing.T, c *http.Client, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := c.Post(a.server.URL+path, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (a *testApp) do(t *testing.T, c *http.Client, method, path, body string, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), method, a.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := c.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func jsonHeader(token string) http.Header {
	h := http.Header{}
	h.Set("Accept", restful.MIME_JSON)
	h.Set("Content-Type", restful.MIME_JSON)
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

func (a *testApp) login(t *testing.T, username, password string) string {
	t.Helper()
	resp := a.do(t, a.client(t), http.MethodPost, "/login",
		`{"username":"`+username+`","password":"`+password+`"}`, jsonHeader(""))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, c := range resp.Cookies() {
		if c.Name == cookieName {
			return c.Value
		}
	}
	t.Fatalf("no %s cookie in login response", cookieName)
	return ""
}
