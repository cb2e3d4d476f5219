package server

import (
	"strconv"
	"time"

	restful "github.com/emicklei/go-restful/v3"
	"go.uber.org/zap"

	"webguard/metrics"
)

// LoggingFilter logs every request once it has been handled and records
// the request metrics.
func LoggingFilter(logger *zap.Logger) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		startTime := time.Now()

		chain.ProcessFilter(req, resp)

		latency := time.Since(startTime)
		status := resp.StatusCode()
		metrics.RequestsTotal.WithLabelValues(req.Request.Method, strconv.Itoa(status)).Inc()
		metrics.RequestDuration.WithLabelValues(req.Request.Method).Observe(latency.Seconds())

		logger.Info("Request",
			zap.String("client_ip", req.Request.RemoteAddr),
			zap.String("method", req.Request.Method),
			zap.Int("status_code", status),
			zap.Duration("latency", latency),
			zap.String("user_agent", req.Request.UserAgent()),
			zap.String("path", req.Request.URL.Path),
		)
	}
}
