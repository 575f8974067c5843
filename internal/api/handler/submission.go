package handler

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/creamcroissant/formboard/internal/repository"
	"github.com/creamcroissant/formboard/internal/service"
)

// SubmissionHandler exposes submissions, attachments and notes.
type SubmissionHandler struct {
	data        resource[*repository.Instance, service.SubmissionInput]
	attachments resource[*repository.Attachment, service.AttachmentInput]
	notes       resource[*repository.Note, service.NoteInput]
}

// NewSubmissionHandler constructs the submission endpoints.
func NewSubmissionHandler(submissions service.SubmissionService, logger *slog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		data: resource[*repository.Instance, service.SubmissionInput]{
			action: "data",
			parent: "xform",
			list:   submissions.Submissions,
			get:    submissions.Submission,
			create: submissions.CreateSubmission,
			update: submissions.UpdateSubmission,
			logger: logger,
		},
		attachments: resource[*repository.Attachment, service.AttachmentInput]{
			action: "attachments",
			parent: "instance",
			list:   submissions.Attachments,
			get:    submissions.Attachment,
			create: submissions.CreateAttachment,
			update: submissions.UpdateAttachment,
			logger: logger,
		},
		notes: resource[*repository.Note, service.NoteInput]{
			action: "notes",
			parent: "instance",
			list:   submissions.Notes,
			get:    submissions.Note,
			create: submissions.CreateNote,
			update: submissions.UpdateNote,
			logger: logger,
		},
	}
}

// Mount registers /data, /attachments and /notes.
func (h *SubmissionHandler) Mount(r chi.Router) {
	mountResource(r, "/data", h.data, nil)
	mountResource(r, "/attachments", h.attachments, nil)
	mountResource(r, "/notes", h.notes, nil)
}
