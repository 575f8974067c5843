// 文件路径: internal/repository/interfaces.go
// 模块说明: 仓储接口定义。
package repository

import (
	"context"

	"github.com/creamcroissant/formboard/internal/etag"
)

// Query is a lazy, orderable list query. Nothing hits the database until it is evaluated.
type Query[T any] interface {
	etag.Collection
	Fetch(ctx context.Context) ([]T, error)
	Count(ctx context.Context) (int64, error)
}

// Store 暴露每个聚合根对应的仓储接口。
type Store interface {
	Organizations() OrganizationRepository
	Users() UserProfileRepository
	Teams() TeamRepository
	Projects() ProjectRepository
	XForms() XFormRepository
	Instances() InstanceRepository
	Attachments() AttachmentRepository
	MetaData() MetaDataRepository
	Notes() NoteRepository
	Widgets() WidgetRepository
}

// OrganizationRepository 管理组织资料。
type OrganizationRepository interface {
	List(filter ListFilter) Query[*OrganizationProfile]
	FindByID(ctx context.Context, id int64) (*OrganizationProfile, error)
	Create(ctx context.Context, org *OrganizationProfile) (*OrganizationProfile, error)
	Update(ctx context.Context, org *OrganizationProfile) error
	Delete(ctx context.Context, id int64) error
}

// UserProfileRepository 管理用户资料。
type UserProfileRepository interface {
	List(filter ListFilter) Query[*UserProfile]
	FindByID(ctx context.Context, id int64) (*UserProfile, error)
	Create(ctx context.Context, user *UserProfile) (*UserProfile, error)
	Update(ctx context.Context, user *UserProfile) error
	Delete(ctx context.Context, id int64) error
}

// TeamRepository 管理组织下的团队；ParentID 为组织 ID。
type TeamRepository interface {
	List(filter ListFilter) Query[*Team]
	FindByID(ctx context.Context, id int64) (*Team, error)
	Create(ctx context.Context, team *Team) (*Team, error)
	Update(ctx context.Context, team *Team) error
	Delete(ctx context.Context, id int64) error
}

// ProjectRepository 管理项目。
type ProjectRepository interface {
	List(filter ListFilter) Query[*Project]
	FindByID(ctx context.Context, id int64) (*Project, error)
	Create(ctx context.Context, project *Project) (*Project, error)
	Update(ctx context.Context, project *Project) error
	Delete(ctx context.Context, id int64) error
}

// XFormRepository 管理表单；ParentID 为项目 ID。
type XFormRepository interface {
	List(filter ListFilter) Query[*XForm]
	FindByID(ctx context.Context, id int64) (*XForm, error)
	Create(ctx context.Context, form *XForm) (*XForm, error)
	Update(ctx context.Context, form *XForm) error
	Delete(ctx context.Context, id int64) error
	// SubmissionCounts returns the live instance count per form.
	SubmissionCounts(ctx context.Context) (map[int64]int64, error)
}

// InstanceRepository 管理提交数据；ParentID 为表单 ID。
type InstanceRepository interface {
	List(filter ListFilter) Query[*Instance]
	FindByID(ctx context.Context, id int64) (*Instance, error)
	Create(ctx context.Context, instance *Instance) (*Instance, error)
	Update(ctx context.Context, instance *Instance) error
	Delete(ctx context.Context, id int64) error
	// Submit inserts the instance and bumps its form's counter and date_modified in one transaction.
	Submit(ctx context.Context, instance *Instance) (*Instance, error)
	// Revise updates the instance and touches its form in one transaction.
	Revise(ctx context.Context, instance *Instance) error
	// Stream walks the form's submissions in id order without buffering them.
	Stream(ctx context.Context, xformID int64, fn func(*Instance) error) error
}

// AttachmentRepository 管理附件；ParentID 为提交 ID。
type AttachmentRepository interface {
	List(filter ListFilter) Query[*Attachment]
	FindByID(ctx context.Context, id int64) (*Attachment, error)
	Create(ctx context.Context, attachment *Attachment) (*Attachment, error)
	Update(ctx context.Context, attachment *Attachment) error
	Delete(ctx context.Context, id int64) error
}

// MetaDataRepository 管理表单元数据；ParentID 为表单 ID。
type MetaDataRepository interface {
	List(filter ListFilter) Query[*MetaData]
	FindByID(ctx context.Context, id int64) (*MetaData, error)
	Create(ctx context.Context, meta *MetaData) (*MetaData, error)
	Update(ctx context.Context, meta *MetaData) error
	Delete(ctx context.Context, id int64) error
}

// NoteRepository 管理提交备注；ParentID 为提交 ID。
type NoteRepository interface {
	List(filter ListFilter) Query[*Note]
	FindByID(ctx context.Context, id int64) (*Note, error)
	Create(ctx context.Context, note *Note) (*Note, error)
	Update(ctx context.Context, note *Note) error
	Delete(ctx context.Context, id int64) error
}

// WidgetRepository 管理图表组件；ParentID 为表单 ID。
type WidgetRepository interface {
	List(filter ListFilter) Query[*Widget]
	// ByID is the single-row query backing the widget detail endpoint.
	ByID(id int64) Query[*Widget]
	FindByID(ctx context.Context, id int64) (*Widget, error)
	Create(ctx context.Context, widget *Widget) (*Widget, error)
	Update(ctx context.Context, widget *Widget) error
	Delete(ctx context.Context, id int64) error
}
