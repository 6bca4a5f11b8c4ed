package api

import (
	"context"
	"crypto/rand"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/androsik2006/radmon/internal/alerting"
	mw "github.com/androsik2006/radmon/internal/api/middleware"
	"github.com/androsik2006/radmon/internal/backup"
	"github.com/androsik2006/radmon/internal/errors"
	"github.com/androsik2006/radmon/internal/logger"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"` // unique identifier for tracking this error
}

// NewErrorResponse creates a new API error response.
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: generateCorrelationID(),
	}
}

// generateCorrelationID creates an 8 character identifier for error tracking.
func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "ERR-RAND"
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

// statusFor maps an error to the HTTP status that describes it.
func statusFor(err error) int {
	switch {
	case errors.Is(err, alerting.ErrNotificationsDisabled):
		return http.StatusServiceUnavailable
	case backup.IsUnsupportedError(err):
		return http.StatusNotImplemented
	case backup.IsInsufficientSpaceError(err):
		return http.StatusInsufficientStorage
	case backup.IsErrorCode(err, backup.ErrLocked):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded), errors.IsCategory(err, errors.CategoryTimeout):
		return http.StatusGatewayTimeout
	case errors.IsCategory(err, errors.CategoryValidation):
		return http.StatusBadRequest
	case errors.IsCategory(err, errors.CategoryNotFound):
		return http.StatusNotFound
	case errors.IsCategory(err, errors.CategoryState):
		return http.StatusConflict
	case errors.IsCategory(err, errors.CategoryConfiguration):
		return http.StatusUnprocessableEntity
	case errors.IsCategory(err, errors.CategoryNotification),
		errors.IsCategory(err, errors.CategoryNetwork),
		errors.IsCategory(err, errors.CategoryHTTP):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// HandleError logs err and writes it as an ErrorResponse.
func (s *Server) HandleError(c echo.Context, err error, message string, code int) error {
	resp := NewErrorResponse(err, message, code)

	fields := []logger.Field{
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("message", message),
		logger.Int("code", code),
		logger.String("path", c.Request().URL.Path),
		logger.String("method", c.Request().Method),
		logger.String("ip", c.RealIP()),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	if code >= http.StatusInternalServerError {
		s.log.Error("API error", fields...)
	} else {
		s.log.Debug("API error", fields...)
	}

	c.Response().Header().Set(mw.HeaderCorrelationID, resp.CorrelationID)
	return c.JSON(code, resp)
}

// handleErr writes err with the status statusFor derives.
func (s *Server) handleErr(c echo.Context, err error, message string) error {
	return s.HandleError(c, err, message, statusFor(err))
}

// handleHTTPError renders errors that escape handlers, such as unknown
// routes and oversized bodies, in the same shape.
func (s *Server) handleHTTPError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	message := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(code)
		}
	}
	if herr := s.HandleError(c, err, message, code); herr != nil {
		s.log.Warn("failed to write error response", logger.Error(herr))
	}
}

// unavailable reports a dependency the server was started without.
func (s *Server) unavailable(c echo.Context, what string) error {
	return s.HandleError(c, nil, what+" is not available", http.StatusServiceUnavailable)
}
