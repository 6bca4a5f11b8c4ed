package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// HeaderCorrelationID carries the correlation id of an error response.
const HeaderCorrelationID = "X-Correlation-ID"

// hstsMaxAge is one year.
const hstsMaxAge = 365 * 24 * 60 * 60

// Hardening lists the request guards installed in front of every route.
type Hardening struct {
	AllowedOrigins []string
	BodyLimit      string
}

// Middlewares returns CORS, the body limit, gzip and the secure headers in
// the order they must run.
func (h Hardening) Middlewares() []echo.MiddlewareFunc {
	origins := h.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	stack := []echo.MiddlewareFunc{
		middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:  origins,
			AllowMethods:  []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
			ExposeHeaders: []string{echo.HeaderContentDisposition, HeaderCorrelationID},
		}),
	}
	if h.BodyLimit != "" {
		stack = append(stack, middleware.BodyLimit(h.BodyLimit))
	}
	return append(stack,
		middleware.GzipWithConfig(middleware.GzipConfig{Skipper: skipCompression}),
		middleware.SecureWithConfig(middleware.SecureConfig{
			ContentTypeNosniff:    "nosniff",
			XFrameOptions:         "DENY",
			HSTSMaxAge:            hstsMaxAge,
			ContentSecurityPolicy: "default-src 'none'",
		}),
	)
}

// skipCompression leaves CSV downloads and /metrics uncompressed; the
// Prometheus handler negotiates its own encoding.
func skipCompression(c echo.Context) bool {
	p := c.Path()
	return p == "/metrics" || strings.HasPrefix(p, "/api/v1/reports/")
}
