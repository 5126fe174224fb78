package api

import "net/http"

// ErrorResponse represents all API error responses.
// @Description Standard error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the specifics of an API error.
// @Description Error details
type ErrorDetail struct {
	Type    string            `json:"type"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Param   string            `json:"param,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

const (
	codeValidation          = "validation_error"
	codeNotFound            = "not_found"
	codeUpstreamUnavailable = "upstream_unavailable"
	codeUpstreamTimeout     = "upstream_timeout"
	codeInternal            = "internal_error"
	codeMethodNotAllowed    = "method_not_allowed"
)

func NewErrorResponse(httpStatusCode int, code, message, param string, fields map[string]string) *ErrorResponse {
	errorType := "api_error"
	if httpStatusCode >= 400 && httpStatusCode < 500 {
		errorType = "invalid_request_error"
	}

	if code == "" {
		code = defaultCode(httpStatusCode)
	}

	return &ErrorResponse{
		Error: ErrorDetail{
			Type:    errorType,
			Code:    code,
			Message: message,
			Param:   param,
			Fields:  fields,
		},
	}
}

func defaultCode(httpStatusCode int) string {
	switch httpStatusCode {
	case http.StatusBadRequest:
		return codeValidation
	case http.StatusNotFound:
		return codeNotFound
	case http.StatusServiceUnavailable:
		return codeUpstreamUnavailable
	default:
		return codeInternal
	}
}
