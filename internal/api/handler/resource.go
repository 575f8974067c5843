// 文件路径: internal/api/handler/resource.go
// 模块说明: 所有资源共用的列表、详情、创建、更新流程。
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/creamcroissant/formboard/internal/etag"
	"github.com/creamcroissant/formboard/internal/repository"
)

// resource binds one entity type's service calls to the shared HTTP flow.
type resource[T etag.Entity, In any] struct {
	action string
	// parent names the query parameter that scopes the list, e.g. "xform".
	parent string
	list   func(repository.ListFilter) repository.Query[T]
	get    func(context.Context, int64) (T, error)
	create func(context.Context, In) (T, error)
	update func(context.Context, int64, In) (T, error)
	logger *slog.Logger
}

func (res resource[T, In]) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r, res.parent)
	if err != nil {
		respondError(w, http.StatusBadRequest, res.action+".list", err)
		return
	}
	q := res.list(filter)
	items, err := q.Fetch(r.Context())
	if err != nil {
		respondServiceError(w, r, res.logger, res.action+".list", err)
		return
	}
	publishList(r.Context(), q)
	respondJSON(w, http.StatusOK, items)
}

func (res resource[T, In]) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, res.action+".get", err)
		return
	}
	item, err := res.get(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, res.logger, res.action+".get", err)
		return
	}
	publishObject(r.Context(), item)
	respondJSON(w, http.StatusOK, item)
}

func (res resource[T, In]) Create(w http.ResponseWriter, r *http.Request) {
	var in In
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, res.action+".create", err)
		return
	}
	item, err := res.create(r.Context(), in)
	if err != nil {
		respondServiceError(w, r, res.logger, res.action+".create", err)
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

func (res resource[T, In]) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, res.action+".update", err)
		return
	}
	var in In
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, res.action+".update", err)
		return
	}
	item, err := res.update(r.Context(), id, in)
	if err != nil {
		respondServiceError(w, r, res.logger, res.action+".update", err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// mountResource registers the four standard routes; extra may add more to the same sub-router.
func mountResource[T etag.Entity, In any](r chi.Router, path string, res resource[T, In], extra func(chi.Router)) {
	r.Route(path, func(sub chi.Router) {
		sub.Get("/", res.List)
		sub.Post("/", res.Create)
		sub.Get("/{id}", res.Get)
		sub.Patch("/{id}", res.Update)
		if extra != nil {
			extra(sub)
		}
	})
}
