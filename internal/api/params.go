package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/yourorg/productproxy/internal/apperrors"
	"github.com/yourorg/productproxy/internal/models"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
)

func parseListFilter(r *http.Request) (models.ListProductsFilter, error) {
	q := r.URL.Query()

	page, err := positiveIntParam(q.Get("page"), "page", defaultPage)
	if err != nil {
		return models.ListProductsFilter{}, err
	}
	pageSize, err := positiveIntParam(q.Get("pageSize"), "pageSize", defaultPageSize)
	if err != nil {
		return models.ListProductsFilter{}, err
	}

	return models.ListProductsFilter{
		Name:     ptrOrNil(q.Get("name")),
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func positiveIntParam(raw, name string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, apperrors.NewValidationError(name, "must be an integer greater than or equal to 1")
	}
	return v, nil
}

func parseIDs(r *http.Request) ([]string, error) {
	ids := r.URL.Query()["id"]
	if len(ids) == 0 {
		return nil, apperrors.NewValidationError("id", "at least one id is required")
	}
	for _, id := range ids {
		if err := checkID(id); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

func pathID(r *http.Request) (string, error) {
	id := chi.URLParam(r, "id")
	// chi matches on RawPath when it is set, leaving the param escaped.
	if r.URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(id); err == nil {
			id = unescaped
		}
	}
	if err := checkID(id); err != nil {
		return "", err
	}
	return id, nil
}

// checkID rejects ids that are blank or would be read as a relative path
// segment upstream.
func checkID(id string) error {
	switch strings.TrimSpace(id) {
	case "":
		return apperrors.NewValidationError("id", "must not be empty")
	case ".", "..":
		return apperrors.NewValidationError("id", "is invalid")
	}
	return nil
}

func ptrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
