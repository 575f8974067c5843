// 文件路径: internal/repository/sqlite/store.go
// 模块说明: SQLite 仓储实现的统一入口。
package sqlite

import (
	"database/sql"

	"github.com/creamcroissant/formboard/internal/repository"
)

// Store implements repository.Store on top of a shared *sql.DB.
type Store struct {
	db *sql.DB
}

// NewStore wraps the given database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Organizations() repository.OrganizationRepository {
	return &organizationRepo{tableRepo[*repository.OrganizationProfile]{db: s.db, spec: organizationSpec}}
}

func (s *Store) Users() repository.UserProfileRepository {
	return &userProfileRepo{tableRepo[*repository.UserProfile]{db: s.db, spec: userProfileSpec}}
}

func (s *Store) Teams() repository.TeamRepository {
	return &teamRepo{tableRepo[*repository.Team]{db: s.db, spec: teamSpec}}
}

func (s *Store) Projects() repository.ProjectRepository {
	return &projectRepo{tableRepo[*repository.Project]{db: s.db, spec: projectSpec}}
}

func (s *Store) XForms() repository.XFormRepository {
	return &xformRepo{tableRepo[*repository.XForm]{db: s.db, spec: xformSpec}}
}

func (s *Store) Instances() repository.InstanceRepository {
	return &instanceRepo{tableRepo[*repository.Instance]{db: s.db, spec: instanceSpec}}
}

func (s *Store) Attachments() repository.AttachmentRepository {
	return &attachmentRepo{tableRepo[*repository.Attachment]{db: s.db, spec: attachmentSpec}}
}

func (s *Store) MetaData() repository.MetaDataRepository {
	return &metaDataRepo{tableRepo[*repository.MetaData]{db: s.db, spec: metaDataSpec}}
}

func (s *Store) Notes() repository.NoteRepository {
	return &noteRepo{tableRepo[*repository.Note]{db: s.db, spec: noteSpec}}
}

func (s *Store) Widgets() repository.WidgetRepository {
	return &widgetRepo{tableRepo[*repository.Widget]{db: s.db, spec: widgetSpec}}
}

var _ repository.Store = (*Store)(nil)
