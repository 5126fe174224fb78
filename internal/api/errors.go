package api

import (
	"errors"
	"net/http"

	"github.com/yourorg/productproxy/internal/apperrors"
)

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var notFoundErr *apperrors.NotFoundError
	if errors.As(err, &notFoundErr) {
		NotFound(w, r, err, err.Error())
		return
	}

	var validationErr *apperrors.ValidationError
	if errors.As(err, &validationErr) {
		ValidationFailed(w, r, err, err.Error(), validationErr.Field, validationErr.Fields)
		return
	}

	var timeoutErr *apperrors.TimeoutError
	if errors.As(err, &timeoutErr) {
		ServiceUnavailable(w, r, err, codeUpstreamTimeout)
		return
	}

	var unavailableErr *apperrors.ServiceUnavailableError
	if errors.As(err, &unavailableErr) {
		ServiceUnavailable(w, r, err, codeUpstreamUnavailable)
		return
	}

	InternalError(w, r, err, "internal server error")
}
