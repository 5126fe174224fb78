package api

import (
	"encoding/json"
	"net/http"

	"github.com/nhalm/canonlog"
)

func renderJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func renderError(w http.ResponseWriter, r *http.Request, statusCode int, err error, code, message, param string, fields map[string]string) {
	canonlog.AddRequestError(r.Context(), err)
	sanitizedMessage := sanitizeErrorMessage(message, statusCode)
	renderJSON(w, statusCode, NewErrorResponse(statusCode, code, sanitizedMessage, param, fields))
}

// sanitizeErrorMessage keeps upstream and internal detail out of 5xx bodies.
func sanitizeErrorMessage(message string, statusCode int) string {
	switch {
	case statusCode == http.StatusServiceUnavailable:
		return "The upstream service is unavailable"
	case statusCode >= 500:
		return "An internal error occurred"
	default:
		return message
	}
}

func Success(w http.ResponseWriter, data any) {
	renderJSON(w, http.StatusOK, data)
}

// Created writes a 201 with a Location header pointing at the new resource.
func Created(w http.ResponseWriter, location string, data any) {
	if location != "" {
		w.Header().Set("Location", location)
	}
	renderJSON(w, http.StatusCreated, data)
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func BadRequest(w http.ResponseWriter, r *http.Request, err error, message, param string) {
	renderError(w, r, http.StatusBadRequest, err, codeValidation, message, param, nil)
}

func ValidationFailed(w http.ResponseWriter, r *http.Request, err error, message, param string, fields map[string]string) {
	renderError(w, r, http.StatusBadRequest, err, codeValidation, message, param, fields)
}

func NotFound(w http.ResponseWriter, r *http.Request, err error, message string) {
	renderError(w, r, http.StatusNotFound, err, codeNotFound, message, "", nil)
}

func ServiceUnavailable(w http.ResponseWriter, r *http.Request, err error, code string) {
	renderError(w, r, http.StatusServiceUnavailable, err, code, "", "", nil)
}

func InternalError(w http.ResponseWriter, r *http.Request, err error, message string) {
	renderError(w, r, http.StatusInternalServerError, err, codeInternal, message, "", nil)
}
