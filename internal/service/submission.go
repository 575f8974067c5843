// 文件路径: internal/service/submission.go
// 模块说明: 提交数据、附件与备注的业务逻辑。提交写入会同步刷新所属表单的 date_modified。
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/creamcroissant/formboard/internal/repository"
)

const defaultSubmissionStatus = "submitted_via_web"

// SubmissionService manages submissions and what hangs off them.
type SubmissionService interface {
	Submissions(filter repository.ListFilter) repository.Query[*repository.Instance]
	Submission(ctx context.Context, id int64) (*repository.Instance, error)
	CreateSubmission(ctx context.Context, in SubmissionInput) (*repository.Instance, error)
	UpdateSubmission(ctx context.Context, id int64, in SubmissionInput) (*repository.Instance, error)
	StreamSubmissions(ctx context.Context, formID int64, fn func(*repository.Instance) error) error

	Attachments(filter repository.ListFilter) repository.Query[*repository.Attachment]
	Attachment(ctx context.Context, id int64) (*repository.Attachment, error)
	CreateAttachment(ctx context.Context, in AttachmentInput) (*repository.Attachment, error)
	UpdateAttachment(ctx context.Context, id int64, in AttachmentInput) (*repository.Attachment, error)

	Notes(filter repository.ListFilter) repository.Query[*repository.Note]
	Note(ctx context.Context, id int64) (*repository.Note, error)
	CreateNote(ctx context.Context, in NoteInput) (*repository.Note, error)
	UpdateNote(ctx context.Context, id int64, in NoteInput) (*repository.Note, error)
}

// SubmissionInput is a create or partial update payload.
type SubmissionInput struct {
	XFormID *int64          `json:"xform"`
	UUID    *string         `json:"uuid"`
	JSON    json.RawMessage `json:"json"`
	Status  *string         `json:"status"`
}

// AttachmentInput is a create or partial update payload.
type AttachmentInput struct {
	InstanceID *int64  `json:"instance"`
	MediaFile  *string `json:"media_file"`
	Mimetype   *string `json:"mimetype"`
}

// NoteInput is a create or partial update payload.
type NoteInput struct {
	InstanceID *int64  `json:"instance"`
	Body       *string `json:"note"`
}

type submissionService struct {
	store repository.Store
	clock Clock
}

// NewSubmissionService wires the submission service to the given store.
func NewSubmissionService(store repository.Store, clock Clock) SubmissionService {
	return &submissionService{store: store, clock: clock}
}

func (s *submissionService) Submissions(filter repository.ListFilter) repository.Query[*repository.Instance] {
	return s.store.Instances().List(filter)
}

func (s *submissionService) Submission(ctx context.Context, id int64) (*repository.Instance, error) {
	inst, err := s.store.Instances().FindByID(ctx, id)
	return inst, mapRepoError(err)
}

func (s *submissionService) CreateSubmission(ctx context.Context, in SubmissionInput) (*repository.Instance, error) {
	if in.XFormID == nil {
		return nil, invalid("xform is required")
	}
	form, err := s.store.XForms().FindByID(ctx, *in.XFormID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, invalid("xform %d does not exist", *in.XFormID)
		}
		return nil, err
	}

	inst := &repository.Instance{XFormID: form.ID, UUID: newInstanceUUID(), JSON: "{}", Status: defaultSubmissionStatus}
	if err := applySubmission(inst, in); err != nil {
		return nil, err
	}
	now := s.clock.now()
	inst.Created, inst.Modified = now, now
	// 计数在库内原子递增，并发提交不会丢失更新
	created, err := s.store.Instances().Submit(ctx, inst)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: submission %q already exists", ErrConflict, inst.UUID)
		}
		return nil, mapRepoError(err)
	}
	return created, nil
}

func (s *submissionService) UpdateSubmission(ctx context.Context, id int64, in SubmissionInput) (*repository.Instance, error) {
	inst, err := s.Submission(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.XFormID != nil && *in.XFormID != inst.XFormID {
		return nil, invalid("a submission cannot move between forms")
	}
	if in.UUID != nil && *in.UUID != inst.UUID {
		return nil, invalid("uuid is immutable")
	}
	if err := applySubmission(inst, in); err != nil {
		return nil, err
	}
	now := s.clock.now()
	inst.Modified = now
	if err := s.store.Instances().Revise(ctx, inst); err != nil {
		return nil, mapRepoError(err)
	}
	return inst, nil
}

func applySubmission(inst *repository.Instance, in SubmissionInput) error {
	if in.UUID != nil {
		if trimmed := strings.TrimSpace(*in.UUID); trimmed != "" {
			inst.UUID = trimmed
		}
	}
	if len(in.JSON) > 0 {
		var doc map[string]any
		if err := json.Unmarshal(in.JSON, &doc); err != nil {
			return invalid("json must be an object")
		}
		inst.JSON = string(in.JSON)
	}
	patchString(&inst.Status, in.Status, strings.TrimSpace)
	if inst.Status == "" {
		inst.Status = defaultSubmissionStatus
	}
	return nil
}

func (s *submissionService) StreamSubmissions(ctx context.Context, formID int64, fn func(*repository.Instance) error) error {
	if _, err := s.store.XForms().FindByID(ctx, formID); err != nil {
		return mapRepoError(err)
	}
	return s.store.Instances().Stream(ctx, formID, fn)
}

func (s *submissionService) Attachments(filter repository.ListFilter) repository.Query[*repository.Attachment] {
	return s.store.Attachments().List(filter)
}

func (s *submissionService) Attachment(ctx context.Context, id int64) (*repository.Attachment, error) {
	att, err := s.store.Attachments().FindByID(ctx, id)
	return att, mapRepoError(err)
}

func (s *submissionService) CreateAttachment(ctx context.Context, in AttachmentInput) (*repository.Attachment, error) {
	if in.InstanceID == nil {
		return nil, invalid("instance is required")
	}
	if err := s.requireSubmission(ctx, *in.InstanceID); err != nil {
		return nil, err
	}
	att := &repository.Attachment{InstanceID: *in.InstanceID}
	if err := applyAttachment(att, in); err != nil {
		return nil, err
	}
	now := s.clock.now()
	att.Created, att.Modified = now, now
	return s.store.Attachments().Create(ctx, att)
}

func (s *submissionService) UpdateAttachment(ctx context.Context, id int64, in AttachmentInput) (*repository.Attachment, error) {
	att, err := s.Attachment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyAttachment(att, in); err != nil {
		return nil, err
	}
	att.Modified = s.clock.now()
	if err := s.store.Attachments().Update(ctx, att); err != nil {
		return nil, mapRepoError(err)
	}
	return att, nil
}

func applyAttachment(att *repository.Attachment, in AttachmentInput) error {
	patchString(&att.MediaFile, in.MediaFile, func(v string) string { return filepath.Base(strings.TrimSpace(v)) })
	if att.MediaFile == "" || att.MediaFile == "." || att.MediaFile == "/" {
		return invalid("media_file is required")
	}
	patchString(&att.Mimetype, in.Mimetype, strings.TrimSpace)
	if att.Mimetype == "" {
		att.Mimetype = mime.TypeByExtension(filepath.Ext(att.MediaFile))
	}
	if att.Mimetype == "" {
		att.Mimetype = "application/octet-stream"
	}
	return nil
}

func (s *submissionService) Notes(filter repository.ListFilter) repository.Query[*repository.Note] {
	return s.store.Notes().List(filter)
}

func (s *submissionService) Note(ctx context.Context, id int64) (*repository.Note, error) {
	note, err := s.store.Notes().FindByID(ctx, id)
	return note, mapRepoError(err)
}

func (s *submissionService) CreateNote(ctx context.Context, in NoteInput) (*repository.Note, error) {
	if in.InstanceID == nil {
		return nil, invalid("instance is required")
	}
	if err := s.requireSubmission(ctx, *in.InstanceID); err != nil {
		return nil, err
	}
	note := &repository.Note{InstanceID: *in.InstanceID}
	patchString(&note.Body, in.Body, sanitizeHTML)
	if note.Body == "" {
		return nil, invalid("note is required")
	}
	now := s.clock.now()
	note.Created, note.Modified = now, now
	return s.store.Notes().Create(ctx, note)
}

func (s *submissionService) UpdateNote(ctx context.Context, id int64, in NoteInput) (*repository.Note, error) {
	note, err := s.Note(ctx, id)
	if err != nil {
		return nil, err
	}
	patchString(&note.Body, in.Body, sanitizeHTML)
	if note.Body == "" {
		return nil, invalid("note is required")
	}
	note.Modified = s.clock.now()
	if err := s.store.Notes().Update(ctx, note); err != nil {
		return nil, mapRepoError(err)
	}
	return note, nil
}

func (s *submissionService) requireSubmission(ctx context.Context, id int64) error {
	if _, err := s.store.Instances().FindByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return invalid("instance %d does not exist", id)
		}
		return err
	}
	return nil
}
