// 文件路径: internal/repository/types.go
// 模块说明: 仓储层实体定义，每个实体都能报告自己的模型名与最后修改时间。
package repository

import "time"

// Model names as they appear in the ETag allow-list.
const (
	ModelOrganizationProfile = "OrganizationProfile"
	ModelUserProfile         = "UserProfile"
	ModelTeam                = "Team"
	ModelProject             = "Project"
	ModelXForm               = "XForm"
	ModelInstance            = "Instance"
	ModelAttachment          = "Attachment"
	ModelMetaData            = "MetaData"
	ModelNote                = "Note"
	ModelWidget              = "Widget"
)

// Timestamps carries the bookkeeping columns shared by most tables.
type Timestamps struct {
	Created  time.Time `json:"date_created"`
	Modified time.Time `json:"date_modified"`
}

// OrganizationProfile is an organization account.
type OrganizationProfile struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Timestamps
}

func (o *OrganizationProfile) ModelName() string       { return ModelOrganizationProfile }
func (o *OrganizationProfile) DateModified() time.Time { return o.Modified }

// UserProfile is a single user account.
type UserProfile struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	City     string `json:"city"`
	Country  string `json:"country"`
	Timestamps
}

func (u *UserProfile) ModelName() string       { return ModelUserProfile }
func (u *UserProfile) DateModified() time.Time { return u.Modified }

// Team groups users inside an organization.
type Team struct {
	ID             int64  `json:"id"`
	OrganizationID int64  `json:"organization"`
	Name           string `json:"name"`
	Timestamps
}

func (t *Team) ModelName() string       { return ModelTeam }
func (t *Team) DateModified() time.Time { return t.Modified }

// Project owns a set of forms.
type Project struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Owner  string `json:"owner"`
	Shared bool   `json:"shared"`
	Timestamps
}

func (p *Project) ModelName() string       { return ModelProject }
func (p *Project) DateModified() time.Time { return p.Modified }

// XForm is a published form definition.
type XForm struct {
	ID               int64  `json:"id"`
	ProjectID        int64  `json:"project"`
	IDString         string `json:"id_string"`
	Title            string `json:"title"`
	Downloadable     bool   `json:"downloadable"`
	NumOfSubmissions int64  `json:"num_of_submissions"`
	Timestamps
}

func (x *XForm) ModelName() string       { return ModelXForm }
func (x *XForm) DateModified() time.Time { return x.Modified }

// Instance is one submission against a form.
type Instance struct {
	ID      int64  `json:"id"`
	XFormID int64  `json:"xform"`
	UUID    string `json:"uuid"`
	JSON    string `json:"json"`
	Status  string `json:"status"`
	Timestamps
}

func (i *Instance) ModelName() string       { return ModelInstance }
func (i *Instance) DateModified() time.Time { return i.Modified }

// Attachment is a media file uploaded with a submission.
type Attachment struct {
	ID         int64  `json:"id"`
	InstanceID int64  `json:"instance"`
	MediaFile  string `json:"media_file"`
	Mimetype   string `json:"mimetype"`
	Timestamps
}

func (a *Attachment) ModelName() string       { return ModelAttachment }
func (a *Attachment) DateModified() time.Time { return a.Modified }

// MetaData is a typed key/value attached to a form.
type MetaData struct {
	ID        int64  `json:"id"`
	XFormID   int64  `json:"xform"`
	DataType  string `json:"data_type"`
	DataValue string `json:"data_value"`
	Timestamps
}

func (m *MetaData) ModelName() string       { return ModelMetaData }
func (m *MetaData) DateModified() time.Time { return m.Modified }

// Note is a free text comment on a submission.
type Note struct {
	ID         int64  `json:"id"`
	InstanceID int64  `json:"instance"`
	Body       string `json:"note"`
	Timestamps
}

func (n *Note) ModelName() string       { return ModelNote }
func (n *Note) DateModified() time.Time { return n.Modified }

// Widget is a chart definition. It has no date_modified column.
type Widget struct {
	ID         int64     `json:"id"`
	XFormID    int64     `json:"xform"`
	Title      string    `json:"title"`
	WidgetType string    `json:"widget_type"`
	Created    time.Time `json:"date_created"`
}

func (w *Widget) ModelName() string { return ModelWidget }
