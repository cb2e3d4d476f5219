package controllers

import (
	"net/http"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"

	"webguard/auth"
)

// PageController serves the application's pages. Which of them require a
// login is decided by the access policy, not here.
type PageController struct{}

func NewPageController() *PageController {
	return &PageController{}
}

// PageResponse is the body of every page.
type PageResponse struct {
	Message   string          `json:"message"`
	Principal *auth.Principal `json:"principal,omitempty"`
}

// RegisterRoutes adds the page routes to the root web service.
func (ctl *PageController) RegisterRoutes(ws *restful.WebService) {
	tags := []string{"pages"}

	ws.Route(ws.GET("/").To(ctl.homeHandler).
		Doc("Welcome page").
		Produces(restful.MIME_JSON).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Writes(PageResponse{}))

	ws.Route(ws.GET("/index").To(ctl.indexHandler).
		Doc("Start page for signed in users").
		Produces(restful.MIME_JSON).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Writes(PageResponse{}).
		Returns(http.StatusOK, "Signed in", PageResponse{}).
		Returns(http.StatusFound, "Not signed in, sent to the login page", nil).
		Returns(http.StatusForbidden, "Signed in without ADMIN or USER", nil))

	ws.Route(ws.GET("/otherRole").To(ctl.otherRoleHandler).
		Doc("Public page").
		Produces(restful.MIME_JSON).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Writes(PageResponse{}))

	ws.Route(ws.GET("/healthz").To(ctl.healthHandler).
		Doc("Liveness probe").
		Produces(restful.MIME_JSON).
		Metadata(restfulspec.KeyOpenAPITags, []string{"health"}))
}

func (ctl *PageController) homeHandler(request *restful.Request, response *restful.Response) {
	_ = response.WriteHeaderAndJson(http.StatusOK, PageResponse{
		Message:   "Hello, World!",
		Principal: auth.CurrentPrincipal(request),
	}, restful.MIME_JSON)
}

func (ctl *PageController) indexHandler(request *restful.Request, response *restful.Response) {
	p := auth.CurrentPrincipal(request)
	message := "Welcome"
	if p != nil {
		message = "Welcome, " + p.Username
	}
	_ = response.WriteHeaderAndJson(http.StatusOK, PageResponse{Message: message, Principal: p}, restful.MIME_JSON)
}

func (ctl *PageController) otherRoleHandler(request *restful.Request, response *restful.Response) {
	_ = response.WriteHeaderAndJson(http.StatusOK, PageResponse{
		Message:   "This page is open to everyone",
		Principal: auth.CurrentPrincipal(request),
	}, restful.MIME_JSON)
}

func (ctl *PageController) healthHandler(_ *restful.Request, response *restful.Response) {
	_ = response.WriteHeaderAndJson(http.StatusOK, map[string]string{"status": "ok"}, restful.MIME_JSON)
}
