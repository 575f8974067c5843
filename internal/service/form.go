// 文件路径: internal/service/form.go
// 模块说明: 项目、表单、元数据与图表组件的业务逻辑，包括提交数重算与表单汇总。
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/creamcroissant/formboard/internal/cache"
	"github.com/creamcroissant/formboard/internal/etag"
	"github.com/creamcroissant/formboard/internal/repository"
)

// FormService manages projects and the forms they own.
type FormService interface {
	Projects(filter repository.ListFilter) repository.Query[*repository.Project]
	Project(ctx context.Context, id int64) (*repository.Project, error)
	CreateProject(ctx context.Context, in ProjectInput) (*repository.Project, error)
	UpdateProject(ctx context.Context, id int64, in ProjectInput) (*repository.Project, error)

	Forms(filter repository.ListFilter) repository.Query[*repository.XForm]
	Form(ctx context.Context, id int64) (*repository.XForm, error)
	CreateForm(ctx context.Context, in XFormInput) (*repository.XForm, error)
	UpdateForm(ctx context.Context, id int64, in XFormInput) (*repository.XForm, error)
	Summary(ctx context.Context, id int64) (*FormSummary, error)
	RecountSubmissions(ctx context.Context) (int, error)

	MetaData(filter repository.ListFilter) repository.Query[*repository.MetaData]
	MetaDatum(ctx context.Context, id int64) (*repository.MetaData, error)
	CreateMetaData(ctx context.Context, in MetaDataInput) (*repository.MetaData, error)
	UpdateMetaData(ctx context.Context, id int64, in MetaDataInput) (*repository.MetaData, error)

	Widgets(filter repository.ListFilter) repository.Query[*repository.Widget]
	WidgetQuery(id int64) repository.Query[*repository.Widget]
	Widget(ctx context.Context, id int64) (*repository.Widget, error)
	CreateWidget(ctx context.Context, in WidgetInput) (*repository.Widget, error)
	UpdateWidget(ctx context.Context, id int64, in WidgetInput) (*repository.Widget, error)
}

// ProjectInput is a create or partial update payload.
type ProjectInput struct {
	Name   *string `json:"name"`
	Owner  *string `json:"owner"`
	Shared *bool   `json:"shared"`
}

// XFormInput is a create or partial update payload.
type XFormInput struct {
	ProjectID    *int64  `json:"project"`
	IDString     *string `json:"id_string"`
	Title        *string `json:"title"`
	Downloadable *bool   `json:"downloadable"`
}

// MetaDataInput is a create or partial update payload.
type MetaDataInput struct {
	XFormID   *int64  `json:"xform"`
	DataType  *string `json:"data_type"`
	DataValue *string `json:"data_value"`
}

// WidgetInput is a create or partial update payload.
type WidgetInput struct {
	XFormID    *int64  `json:"xform"`
	Title      *string `json:"title"`
	WidgetType *string `json:"widget_type"`
}

// FormSummary aggregates a form's submissions.
type FormSummary struct {
	FormID         int64            `json:"id"`
	Title          string           `json:"title"`
	Submissions    int64            `json:"num_of_submissions"`
	StatusCounts   map[string]int64 `json:"status_counts"`
	LastSubmission *time.Time       `json:"last_submission,omitempty"`
	// Version changes whenever the form row changes, which every submission write does.
	Version string `json:"-"`
}

const summaryTTL = 10 * time.Minute

type formService struct {
	store  repository.Store
	cache  cache.Store
	clock  Clock
	logger *slog.Logger
}

// NewFormService wires the form service. summaries may be nil to disable caching.
func NewFormService(store repository.Store, summaries cache.Store, clock Clock, logger *slog.Logger) FormService {
	if summaries != nil {
		summaries = summaries.Namespace("summary")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &formService{store: store, cache: summaries, clock: clock, logger: logger}
}

func (s *formService) Projects(filter repository.ListFilter) repository.Query[*repository.Project] {
	return s.store.Projects().List(filter)
}

func (s *formService) Project(ctx context.Context, id int64) (*repository.Project, error) {
	project, err := s.store.Projects().FindByID(ctx, id)
	return project, mapRepoError(err)
}

func (s *formService) CreateProject(ctx context.Context, in ProjectInput) (*repository.Project, error) {
	project := &repository.Project{}
	applyProject(project, in)
	if project.Name == "" {
		return nil, invalid("name is required")
	}
	now := s.clock.now()
	project.Created, project.Modified = now, now
	return s.store.Projects().Create(ctx, project)
}

func (s *formService) UpdateProject(ctx context.Context, id int64, in ProjectInput) (*repository.Project, error) {
	project, err := s.Project(ctx, id)
	if err != nil {
		return nil, err
	}
	applyProject(project, in)
	if project.Name == "" {
		return nil, invalid("name is required")
	}
	project.Modified = s.clock.now()
	if err := s.store.Projects().Update(ctx, project); err != nil {
		return nil, mapRepoError(err)
	}
	return project, nil
}

func applyProject(p *repository.Project, in ProjectInput) {
	patchString(&p.Name, in.Name, sanitizeText)
	patchString(&p.Owner, in.Owner, normalizeUsername)
	patchBool(&p.Shared, in.Shared)
}

func (s *formService) Forms(filter repository.ListFilter) repository.Query[*repository.XForm] {
	return s.store.XForms().List(filter)
}

func (s *formService) Form(ctx context.Context, id int64) (*repository.XForm, error) {
	form, err := s.store.XForms().FindByID(ctx, id)
	return form, mapRepoError(err)
}

func (s *formService) CreateForm(ctx context.Context, in XFormInput) (*repository.XForm, error) {
	if in.ProjectID == nil {
		return nil, invalid("project is required")
	}
	if _, err := s.Project(ctx, *in.ProjectID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, invalid("project %d does not exist", *in.ProjectID)
		}
		return nil, err
	}
	form := &repository.XForm{ProjectID: *in.ProjectID, Downloadable: true}
	applyForm(form, in)
	if form.IDString == "" {
		return nil, invalid("id_string is required")
	}
	now := s.clock.now()
	form.Created, form.Modified = now, now
	created, err := s.store.XForms().Create(ctx, form)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: form %q already exists in project %d", ErrConflict, form.IDString, form.ProjectID)
	}
	return created, err
}

func (s *formService) UpdateForm(ctx context.Context, id int64, in XFormInput) (*repository.XForm, error) {
	form, err := s.Form(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.ProjectID != nil && *in.ProjectID != form.ProjectID {
		if _, err := s.Project(ctx, *in.ProjectID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, invalid("project %d does not exist", *in.ProjectID)
			}
			return nil, err
		}
		form.ProjectID = *in.ProjectID
	}
	applyForm(form, in)
	if form.IDString == "" {
		return nil, invalid("id_string is required")
	}
	form.Modified = s.clock.now()
	if err := s.store.XForms().Update(ctx, form); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: form %q already exists in project %d", ErrConflict, form.IDString, form.ProjectID)
		}
		return nil, mapRepoError(err)
	}
	return form, nil
}

func applyForm(f *repository.XForm, in XFormInput) {
	patchString(&f.IDString, in.IDString, strings.TrimSpace)
	patchString(&f.Title, in.Title, sanitizeText)
	patchBool(&f.Downloadable, in.Downloadable)
}

// Summary 统计表单的提交状态分布。结果按表单的 date_modified 缓存。
func (s *formService) Summary(ctx context.Context, id int64) (*FormSummary, error) {
	form, err := s.Form(ctx, id)
	if err != nil {
		return nil, err
	}
	version := fmt.Sprintf("summary:%d:%s", form.ID, etag.FormatTimestamp(form.Modified))

	if s.cache != nil {
		var cached FormSummary
		ok, err := s.cache.GetJSON(ctx, version, &cached)
		if err != nil {
			s.logger.Warn("summary cache read failed", "form_id", id, "error", err)
		} else if ok {
			cached.Version = version
			return &cached, nil
		}
	}

	summary := &FormSummary{
		FormID:       form.ID,
		Title:        form.Title,
		StatusCounts: make(map[string]int64),
		Version:      version,
	}
	err = s.store.Instances().Stream(ctx, form.ID, func(inst *repository.Instance) error {
		summary.Submissions++
		summary.StatusCounts[inst.Status]++
		if summary.LastSubmission == nil || inst.Created.After(*summary.LastSubmission) {
			created := inst.Created
			summary.LastSubmission = &created
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("summarize form %d: %w", id, err)
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, version, summary, summaryTTL); err != nil {
			s.logger.Warn("summary cache write failed", "form_id", id, "error", err)
		}
	}
	return summary, nil
}

// RecountSubmissions 将 num_of_submissions 与实际提交数对齐，返回被修正的表单数量。
func (s *formService) RecountSubmissions(ctx context.Context) (int, error) {
	counts, err := s.store.XForms().SubmissionCounts(ctx)
	if err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	forms, err := s.store.XForms().List(repository.ListFilter{}).Fetch(ctx)
	if err != nil {
		return 0, fmt.Errorf("list forms: %w", err)
	}

	updated := 0
	for _, form := range forms {
		actual := counts[form.ID]
		if form.NumOfSubmissions == actual {
			continue
		}
		form.NumOfSubmissions = actual
		form.Modified = s.clock.now()
		if err := s.store.XForms().Update(ctx, form); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return updated, fmt.Errorf("update form %d: %w", form.ID, err)
		}
		updated++
	}
	return updated, nil
}

func (s *formService) MetaData(filter repository.ListFilter) repository.Query[*repository.MetaData] {
	return s.store.MetaData().List(filter)
}

func (s *formService) MetaDatum(ctx context.Context, id int64) (*repository.MetaData, error) {
	meta, err := s.store.MetaData().FindByID(ctx, id)
	return meta, mapRepoError(err)
}

func (s *formService) CreateMetaData(ctx context.Context, in MetaDataInput) (*repository.MetaData, error) {
	if in.XFormID == nil {
		return nil, invalid("xform is required")
	}
	if err := s.requireForm(ctx, *in.XFormID); err != nil {
		return nil, err
	}
	meta := &repository.MetaData{XFormID: *in.XFormID}
	applyMetaData(meta, in)
	if meta.DataType == "" {
		return nil, invalid("data_type is required")
	}
	now := s.clock.now()
	meta.Created, meta.Modified = now, now
	return s.store.MetaData().Create(ctx, meta)
}

func (s *formService) UpdateMetaData(ctx context.Context, id int64, in MetaDataInput) (*repository.MetaData, error) {
	meta, err := s.MetaDatum(ctx, id)
	if err != nil {
		return nil, err
	}
	applyMetaData(meta, in)
	if meta.DataType == "" {
		return nil, invalid("data_type is required")
	}
	meta.Modified = s.clock.now()
	if err := s.store.MetaData().Update(ctx, meta); err != nil {
		return nil, mapRepoError(err)
	}
	return meta, nil
}

func applyMetaData(m *repository.MetaData, in MetaDataInput) {
	patchString(&m.DataType, in.DataType, normalizeUsername)
	patchString(&m.DataValue, in.DataValue, sanitizeText)
}

func (s *formService) Widgets(filter repository.ListFilter) repository.Query[*repository.Widget] {
	return s.store.Widgets().List(filter)
}

func (s *formService) WidgetQuery(id int64) repository.Query[*repository.Widget] {
	return s.store.Widgets().ByID(id)
}

func (s *formService) Widget(ctx context.Context, id int64) (*repository.Widget, error) {
	widget, err := s.store.Widgets().FindByID(ctx, id)
	return widget, mapRepoError(err)
}

func (s *formService) CreateWidget(ctx context.Context, in WidgetInput) (*repository.Widget, error) {
	if in.XFormID == nil {
		return nil, invalid("xform is required")
	}
	if err := s.requireForm(ctx, *in.XFormID); err != nil {
		return nil, err
	}
	widget := &repository.Widget{XFormID: *in.XFormID, WidgetType: "charts", Created: s.clock.now()}
	patchString(&widget.Title, in.Title, sanitizeText)
	patchString(&widget.WidgetType, in.WidgetType, normalizeUsername)
	if widget.WidgetType == "" {
		return nil, invalid("widget_type is required")
	}
	return s.store.Widgets().Create(ctx, widget)
}

func (s *formService) UpdateWidget(ctx context.Context, id int64, in WidgetInput) (*repository.Widget, error) {
	widget, err := s.Widget(ctx, id)
	if err != nil {
		return nil, err
	}
	patchString(&widget.Title, in.Title, sanitizeText)
	patchString(&widget.WidgetType, in.WidgetType, normalizeUsername)
	if widget.WidgetType == "" {
		return nil, invalid("widget_type is required")
	}
	if err := s.store.Widgets().Update(ctx, widget); err != nil {
		return nil, mapRepoError(err)
	}
	return widget, nil
}

func (s *formService) requireForm(ctx context.Context, id int64) error {
	if _, err := s.Form(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return invalid("xform %d does not exist", id)
		}
		return err
	}
	return nil
}
