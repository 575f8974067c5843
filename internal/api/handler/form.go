// 文件路径: internal/api/handler/form.go
// 模块说明: 项目、表单、元数据与图表组件接口，另含表单汇总与 CSV 导出。
package handler

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/creamcroissant/formboard/internal/etag"
	"github.com/creamcroissant/formboard/internal/repository"
	"github.com/creamcroissant/formboard/internal/service"
)

// exportFlushEvery controls how many CSV rows are buffered between flushes.
const exportFlushEvery = 100

// FormHandler exposes projects, forms and their per-form resources.
type FormHandler struct {
	forms       service.FormService
	submissions service.SubmissionService
	logger      *slog.Logger

	projects resource[*repository.Project, service.ProjectInput]
	xforms   resource[*repository.XForm, service.XFormInput]
	metadata resource[*repository.MetaData, service.MetaDataInput]
	widgets  resource[*repository.Widget, service.WidgetInput]
}

// NewFormHandler constructs the form endpoints.
func NewFormHandler(forms service.FormService, submissions service.SubmissionService, logger *slog.Logger) *FormHandler {
	return &FormHandler{
		forms:       forms,
		submissions: submissions,
		logger:      logger,
		projects: resource[*repository.Project, service.ProjectInput]{
			action: "projects",
			list:   forms.Projects,
			get:    forms.Project,
			create: forms.CreateProject,
			update: forms.UpdateProject,
			logger: logger,
		},
		xforms: resource[*repository.XForm, service.XFormInput]{
			action: "forms",
			parent: "project",
			list:   forms.Forms,
			get:    forms.Form,
			create: forms.CreateForm,
			update: forms.UpdateForm,
			logger: logger,
		},
		metadata: resource[*repository.MetaData, service.MetaDataInput]{
			action: "metadata",
			parent: "xform",
			list:   forms.MetaData,
			get:    forms.MetaDatum,
			create: forms.CreateMetaData,
			update: forms.UpdateMetaData,
			logger: logger,
		},
		widgets: resource[*repository.Widget, service.WidgetInput]{
			action: "widgets",
			parent: "xform",
			list:   forms.Widgets,
			get:    forms.Widget,
			create: forms.CreateWidget,
			update: forms.UpdateWidget,
			logger: logger,
		},
	}
}

// Mount registers /projects, /forms, /metadata and /widgets.
func (h *FormHandler) Mount(r chi.Router) {
	mountResource(r, "/projects", h.projects, nil)
	mountResource(r, "/forms", h.xforms, func(form chi.Router) {
		form.Get("/{id}/summary", h.Summary)
		form.Get("/{id}/export.csv", h.ExportCSV)
	})
	mountResource(r, "/metadata", h.metadata, nil)

	r.Route("/widgets", func(sub chi.Router) {
		sub.Get("/", h.widgets.List)
		sub.Post("/", h.widgets.Create)
		sub.Get("/{id}", h.Widget)
		sub.Patch("/{id}", h.widgets.Update)
	})
}

// Widget publishes a single-row query alongside the widget. Widgets have no
// date_modified, so the tag is derived from the primary key.
func (h *FormHandler) Widget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "widgets.get", err)
		return
	}
	widget, err := h.forms.Widget(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, h.logger, "widgets.get", err)
		return
	}
	publishObject(r.Context(), widget)
	publishList(r.Context(), h.forms.WidgetQuery(id))
	respondJSON(w, http.StatusOK, widget)
}

// Summary publishes the summary's own version, which tracks the form row.
func (h *FormHandler) Summary(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "forms.summary", err)
		return
	}
	summary, err := h.forms.Summary(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, h.logger, "forms.summary", err)
		return
	}
	publishVersion(r.Context(), summary.Version)
	respondJSON(w, http.StatusOK, summary)
}

var exportColumns = []string{"id", "uuid", "status", "date_created", "date_modified", "json"}

// ExportCSV streams every submission of the form. Streamed responses carry no ETag.
func (h *FormHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "forms.export", err)
		return
	}
	etag.MarkStreaming(r.Context())

	rc := http.NewResponseController(w)
	out := csv.NewWriter(w)
	rows := 0
	started := false

	err = h.submissions.StreamSubmissions(r.Context(), id, func(inst *repository.Instance) error {
		if !started {
			started = true
			w.Header().Set("Content-Type", "text/csv; charset=utf-8")
			w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="form-%d.csv"`, id))
			w.WriteHeader(http.StatusOK)
			if err := out.Write(exportColumns); err != nil {
				return err
			}
		}
		if err := out.Write(exportRow(inst)); err != nil {
			return err
		}
		rows++
		if rows%exportFlushEvery == 0 {
			out.Flush()
			if err := out.Error(); err != nil {
				return err
			}
			return rc.Flush()
		}
		return nil
	})

	if !started {
		if err != nil {
			respondServiceError(w, r, h.logger, "forms.export", err)
			return
		}
		// No submissions: header row only.
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_ = out.Write(exportColumns)
	}
	out.Flush()
	if err == nil {
		err = out.Error()
	}
	if err != nil && !errors.Is(err, r.Context().Err()) {
		h.logger.WarnContext(r.Context(), "csv export aborted", "form_id", id, "rows", rows, "error", err)
	}
}

func exportRow(inst *repository.Instance) []string {
	return []string{
		strconv.FormatInt(inst.ID, 10),
		inst.UUID,
		inst.Status,
		etag.FormatTimestamp(inst.Created),
		etag.FormatTimestamp(inst.Modified),
		inst.JSON,
	}
}
