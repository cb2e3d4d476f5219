package auth

import (
	"net/http"
	"strings"

	restful "github.com/emicklei/go-restful/v3"
	"go.uber.org/zap"

	"webguard/metrics"
)

// PrincipalAttribute is the request attribute the filter stores the
// principal under.
const PrincipalAttribute = "principal"

// FilterConfig wires the access policy into the go-restful container.
type FilterConfig struct {
	Policy     *Policy
	Tokens     *TokenIssuer
	CookieName string
	LoginPath  string
	Logger     *zap.Logger
}

// ResolvePrincipal reads the session cookie, then a Bearer Authorization
// header. It returns nil when neither carries a valid token.
func ResolvePrincipal(r *http.Request, tokens *TokenIssuer, cookieName string) *Principal {
	var raw string
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		raw = c.Value
	} else if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.Fields(h)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			raw = parts[1]
		}
	}
	if raw == "" {
		return nil
	}
	p, err := tokens.Parse(raw)
	if err != nil {
		return nil
	}
	return p
}

// Filter creates a go-restful FilterFunction enforcing cfg.Policy.
// Anonymous requests to protected paths are sent to the login page, or get
// 401 when they ask for JSON. Principals lacking a required role get 403.
func Filter(cfg FilterConfig) restful.FilterFunction {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		path := req.Request.URL.Path
		principal := ResolvePrincipal(req.Request, cfg.Tokens, cfg.CookieName)
		decision := cfg.Policy.Decide(path, principal)
		metrics.AccessDecisionsTotal.WithLabelValues(decision.String()).Inc()

		switch decision {
		case Unauthenticated:
			logger.Debug("Authentication required", zap.String("path", path))
			if WantsJSON(req.Request) {
				_ = resp.WriteHeaderAndJson(http.StatusUnauthorized, map[string]string{"message": "authentication required"}, restful.MIME_JSON)
				return
			}
			http.Redirect(resp, req.Request, cfg.LoginPath, http.StatusFound)
			return
		case Forbidden:
			logger.Warn("Access denied",
				zap.String("path", path),
				zap.String("username", principal.Username),
				zap.Strings("roles", principal.Roles),
			)
			_ = resp.WriteHeaderAndJson(http.StatusForbidden, map[string]string{"message": "access denied"}, restful.MIME_JSON)
			return
		}

		if principal != nil {
			req.SetAttribute(PrincipalAttribute, principal)
			req.Request = req.Request.WithContext(WithPrincipal(req.Request.Context(), principal))
		}
		chain.ProcessFilter(req, resp)
	}
}

// CurrentPrincipal returns the principal the filter attached, or nil.
func CurrentPrincipal(req *restful.Request) *Principal {
	if p, ok := req.Attribute(PrincipalAttribute).(*Principal); ok {
		return p
	}
	return PrincipalFromContext(req.Request.Context())
}

// WantsJSON reports whether the client prefers a JSON response.
func WantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), restful.MIME_JSON) ||
		strings.HasPrefix(r.Header.Get("Content-Type"), restful.MIME_JSON)
}

// SuccessHandler runs after a login succeeds and the session cookie is set.
type SuccessHandler interface {
	OnAuthenticationSuccess(req *restful.Request, resp *restful.Response, p *Principal, token string)
}

// RoleTarget maps a role to the page its holders land on after login.
type RoleTarget struct {
	Role string
	URL  string
}

// LoginResponse is the JSON body of a successful or failed login.
type LoginResponse struct {
	Token    string `json:"token,omitempty"`
	Redirect string `json:"redirect,omitempty"`
	Message  string `json:"message,omitempty"`
}

// RoleTargetSuccessHandler redirects to the URL of the first target whose
// role the principal holds, else to DefaultURL. JSON clients receive the
// token and the target instead of a redirect.
type RoleTargetSuccessHandler struct {
	Targets    []RoleTarget
	DefaultURL string
}

// DefaultSuccessHandler sends admins and users to /index.
func DefaultSuccessHandler() *RoleTargetSuccessHandler {
	return &RoleTargetSuccessHandler{
		Targets: []RoleTarget{
			{Role: "ADMIN", URL: "/index"},
			{Role: "USER", URL: "/index"},
		},
		DefaultURL: "/",
	}
}

// Target returns where p should land.
func (h *RoleTargetSuccessHandler) Target(p *Principal) string {
	for _, t := range h.Targets {
		if p.HasAnyRole(t.Role) {
			return t.URL
		}
	}
	return h.DefaultURL
}

func (h *RoleTargetSuccessHandler) OnAuthenticationSuccess(req *restful.Request, resp *restful.Response, p *Principal, token string) {
	target := h.Target(p)
	if WantsJSON(req.Request) {
		_ = resp.WriteHeaderAndJson(http.StatusOK, LoginResponse{Token: token, Redirect: target}, restful.MIME_JSON)
		return
	}
	http.Redirect(resp, req.Request, target, http.StatusFound)
}
