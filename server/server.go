// Package server assembles the HTTP container and runs it.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"webguard/auth"
	"webguard/config"
	"webguard/controllers"
	"webguard/services"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Config   *config.Config
	Logger   *zap.Logger
	Users    services.UserService
	Provider *auth.Provider
	Tokens   *auth.TokenIssuer
	Policy   *auth.Policy
	Success  auth.SuccessHandler
}

// NewContainer registers every route behind the logging and security
// filters. /metrics is served outside the filter chain.
func NewContainer(d Deps) *restful.Container {
	sec := d.Config.Security
	container := restful.NewContainer()
	container.Filter(LoggingFilter(d.Logger))
	container.Filter(auth.Filter(auth.FilterConfig{
		Policy:     d.Policy,
		Tokens:     d.Tokens,
		CookieName: sec.CookieName,
		LoginPath:  sec.LoginPath,
		Logger:     d.Logger.Named("security"),
	}))

	root := new(restful.WebService)
	root.Path("/")
	controllers.NewSessionController(d.Provider, d.Tokens, d.Success, controllers.SessionConfig{
		CookieName:       sec.CookieName,
		LoginPath:        sec.LoginPath,
		LogoutSuccessURL: sec.LogoutSuccessURL,
		SecureCookie:     sec.SecureCookie,
	}, d.Logger).RegisterRoutes(root)
	controllers.NewPageController().RegisterRoutes(root)
	container.Add(root)

	users := new(restful.WebService)
	controllers.NewUserController(d.Users, d.Logger).RegisterRoutes(users)
	container.Add(users)

	container.Add(restfulspec.NewOpenAPIService(restfulspec.Config{
		WebServices: container.RegisteredWebServices(),
		APIPath:     "/apidocs.json",
	}))
	container.Handle("/metrics", promhttp.Handler())
	return container
}

// ListenAndServe serves handler on port until ctx is cancelled, then shuts
// down gracefully.
func ListenAndServe(ctx context.Context, port int, handler http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("Shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}
