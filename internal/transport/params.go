package transport

import (
	"fmt"
	"net/http"
	"strconv"

	"catalog-admin/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	defaultPage  = 1
	defaultLimit = 10
)

// pathID parses the {id} route parameter.
func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid id", domain.ErrInvalidInput)
	}
	return id, nil
}

// queryInt reads an integer query parameter, falling back to def when absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, name)
	}
	return v, nil
}

func queryBool(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", domain.ErrInvalidInput, name)
	}
	return v, nil
}

func pageRequest(r *http.Request) (domain.PageRequest, error) {
	page, err := queryInt(r, "page", defaultPage)
	if err != nil {
		return domain.PageRequest{}, err
	}
	limit, err := queryInt(r, "limit", defaultLimit)
	if err != nil {
		return domain.PageRequest{}, err
	}
	return domain.NewPageRequest(page, limit), nil
}
