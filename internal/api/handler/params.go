package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/creamcroissant/formboard/internal/repository"
)

const maxPageSize = 1000

func parseInt64(raw string) (int64, error) {
	val, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || val <= 0 {
		return 0, fmt.Errorf("invalid id %q / ID 无效", raw)
	}
	return val, nil
}

func pathID(r *http.Request) (int64, error) {
	return parseInt64(chi.URLParam(r, "id"))
}

// parseListFilter reads ?limit=&offset= and the optional parent query parameter.
func parseListFilter(r *http.Request, parentParam string) (repository.ListFilter, error) {
	var filter repository.ListFilter
	q := r.URL.Query()

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return filter, fmt.Errorf("invalid limit %q / limit 无效", raw)
		}
		filter.Limit = min(limit, maxPageSize)
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return filter, fmt.Errorf("invalid offset %q / offset 无效", raw)
		}
		filter.Offset = offset
	}
	if parentParam != "" {
		if raw := q.Get(parentParam); raw != "" {
			id, err := parseInt64(raw)
			if err != nil {
				return filter, fmt.Errorf("invalid %s: %w", parentParam, err)
			}
			filter.ParentID = &id
		}
	}
	return filter, nil
}

func decodeJSON(r *http.Request, dest any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
