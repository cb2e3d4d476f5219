package controllers

import (
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
	"go.uber.org/zap"

	"webguard/auth"
	"webguard/metrics"
)

// SessionConfig names the cookie and the pages of the login flow.
type SessionConfig struct {
	CookieName       string
	LoginPath        string
	LogoutSuccessURL string
	SecureCookie     bool
}

// SessionController serves form login and logout.
type SessionController struct {
	provider *auth.Provider
	tokens   *auth.TokenIssuer
	success  auth.SuccessHandler
	cfg      SessionConfig
	logger   *zap.Logger
}

func NewSessionController(provider *auth.Provider, tokens *auth.TokenIssuer, success auth.SuccessHandler, cfg SessionConfig, logger *zap.Logger) *SessionController {
	return &SessionController{
		provider: provider,
		tokens:   tokens,
		success:  success,
		cfg:      cfg,
		logger:   logger,
	}
}

// LoginCredentials defines the structure of the login request
type LoginCredentials struct {
	Username string `json:"username" description:"Username for login"`
	Password string `json:"password" description:"Password for login"`
}

// RegisterRoutes adds the login and logout routes to the root web service.
func (ctl *SessionController) RegisterRoutes(ws *restful.WebService) {
	tags := []string{"session"}

	ws.Route(ws.GET(ctl.cfg.LoginPath).To(ctl.loginPageHandler).
		Doc("Login form").
		Produces("text/html").
		Metadata(restfulspec.KeyOpenAPITags, tags))

	ws.Route(ws.POST(ctl.cfg.LoginPath).To(ctl.loginHandler).
		Doc("Authenticate with username and password").
		Consumes(restful.MIME_JSON, "application/x-www-form-urlencoded").
		Produces(restful.MIME_JSON, "text/html").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(LoginCredentials{}).
		Returns(http.StatusOK, "Logged in (JSON clients)", auth.LoginResponse{}).
		Returns(http.StatusFound, "Logged in, or failed and sent back to the form", nil).
		Returns(http.StatusUnauthorized, "Invalid credentials (JSON clients)", auth.LoginResponse{}))

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		ws.Route(ws.Method(method).Path("/logout").To(ctl.logoutHandler).
			Doc("End the session").
			Metadata(restfulspec.KeyOpenAPITags, tags).
			Produces(restful.MIME_JSON, "text/html").
			Returns(http.StatusFound, "Redirect to the logout success URL", nil))
	}
}

const loginPage = `<!DOCTYPE html>
<html>
<head><title>Please sign in</title></head>
<body>
%s<form method="post" action="%s">
<p><label>Username <input type="text" name="username" autofocus></label></p>
<p><label>Password <input type="password" name="password"></label></p>
<p><button type="submit">Sign in</button></p>
</form>
</body>
</html>
`

func (ctl *SessionController) loginPageHandler(request *restful.Request, response *restful.Response) {
	var notice string
	switch {
	case request.QueryParameters("error") != nil:
		notice = "<p>Bad credentials</p>\n"
	case request.QueryParameters("logout") != nil:
		notice = "<p>You have been signed out</p>\n"
	}
	response.Header().Set("Content-Type", "text/html; charset=utf-8")
	response.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(response, loginPage, notice, html.EscapeString(ctl.cfg.LoginPath))
}

// readCredentials accepts a JSON body or a urlencoded form.
func readCredentials(request *restful.Request) (LoginCredentials, error) {
	var creds LoginCredentials
	if strings.HasPrefix(request.Request.Header.Get("Content-Type"), restful.MIME_JSON) {
		err := request.ReadEntity(&creds)
		return creds, err
	}
	if err := request.Request.ParseForm(); err != nil {
		return creds, err
	}
	creds.Username = request.Request.PostForm.Get("username")
	creds.Password = request.Request.PostForm.Get("password")
	return creds, nil
}

func (ctl *SessionController) loginHandler(request *restful.Request, response *restful.Response) {
	creds, err := readCredentials(request)
	if err != nil {
		_ = response.WriteHeaderAndJson(http.StatusBadRequest, auth.LoginResponse{Message: "Invalid request body: " + err.Error()}, restful.MIME_JSON)
		return
	}

	principal, err := ctl.provider.Authenticate(request.Request.Context(), creds.Username, creds.Password)
	if err != nil {
		if errors.Is(err, auth.ErrBadCredentials) {
			metrics.LoginAttemptsTotal.WithLabelValues("failure").Inc()
			ctl.logger.Info("Login failed", zap.String("username", creds.Username))
			ctl.loginFailure(request, response)
			return
		}
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		ctl.logger.Error("Login error", zap.String("username", creds.Username), zap.Error(err))
		_ = response.WriteHeaderAndJson(http.StatusInternalServerError, auth.LoginResponse{Message: "Internal server error"}, restful.MIME_JSON)
		return
	}

	token, expiresAt, err := ctl.tokens.Issue(principal)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		ctl.logger.Error("Could not generate token", zap.Error(err))
		_ = response.WriteHeaderAndJson(http.StatusInternalServerError, auth.LoginResponse{Message: "Could not generate token"}, restful.MIME_JSON)
		return
	}

	http.SetCookie(response, &http.Cookie{
		Name:     ctl.cfg.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(ctl.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   ctl.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	ctl.logger.Info("Login succeeded", zap.String("username", principal.Username), zap.Strings("roles", principal.Roles))
	ctl.success.OnAuthenticationSuccess(request, response, principal, token)
}

func (ctl *SessionController) loginFailure(request *restful.Request, response *restful.Response) {
	if auth.WantsJSON(request.Request) {
		_ = response.WriteHeaderAndJson(http.StatusUnauthorized, auth.LoginResponse{Message: "Invalid credentials"}, restful.MIME_JSON)
		return
	}
	http.Redirect(response, request.Request, ctl.cfg.LoginPath+"?error", http.StatusFound)
}

func (ctl *SessionController) logoutHandler(request *restful.Request, response *restful.Response) {
	if p := auth.CurrentPrincipal(request); p != nil {
		ctl.logger.Info("Logout", zap.String("username", p.Username))
	}
	http.SetCookie(response, &http.Cookie{
		Name:     ctl.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // this tells the browser to delete the cookie
		HttpOnly: true,
		Secure:   ctl.cfg.SecureCookie,
	})
	http.Redirect(response, request.Request, ctl.cfg.LogoutSuccessURL, http.StatusFound)
}
