package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cloo-solutions/orderdesk/internal/domain"
	"github.com/cloo-solutions/orderdesk/internal/pagination"
	"github.com/cloo-solutions/orderdesk/internal/remote"
	"github.com/cloo-solutions/orderdesk/internal/search"
)

// SuccessResponse wraps successful API responses
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse represents an error API response. Code carries the domain
// error code when there is one.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Success writes a successful JSON response
func Success(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, SuccessResponse{Data: data})
}

// Error writes an error JSON response
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

var statusByCode = map[string]int{
	domain.ErrCodeValidation:       http.StatusBadRequest,
	domain.ErrCodeNotFound:         http.StatusNotFound,
	domain.ErrCodeUnauthorized:     http.StatusUnauthorized,
	domain.ErrCodeForbidden:        http.StatusForbidden,
	domain.ErrCodeInvalidOperation: http.StatusBadRequest,
	domain.ErrCodeUpstream:         http.StatusBadGateway,
}

// DomainErrorToHTTP maps domain, remote and search errors to HTTP status
// codes. An upstream 401 or 403 means the desk's token was refused and is
// passed on as 401 so the front end can sign in again.
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var apiErr *remote.APIError
	var envErr *remote.EnvelopeError
	switch {
	case errors.As(err, &apiErr):
		if apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden {
			return http.StatusUnauthorized
		}
		return http.StatusBadGateway
	case errors.As(err, &envErr):
		return http.StatusBadGateway
	case errors.Is(err, search.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, search.ErrClosed):
		return http.StatusGone
	case errors.Is(err, pagination.ErrInvalidPage):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		if status, ok := statusByCode[domainErr.Code]; ok {
			return status
		}
	}
	return http.StatusInternalServerError
}

// HandleError writes the error with the status DomainErrorToHTTP picks.
func HandleError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error()}
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		resp.Code = domainErr.Code
	}
	JSON(w, DomainErrorToHTTP(err), resp)
}
