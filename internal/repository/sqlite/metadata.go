package sqlite

import (
	"context"

	"github.com/creamcroissant/formboard/internal/repository"
)

var metaDataSpec = &tableSpec[*repository.MetaData]{
	model:        repository.ModelMetaData,
	table:        "metadata",
	columns:      "id, xform_id, data_type, data_value, date_created, date_modified",
	parentColumn: "xform_id",
	hasModified:  true,
	scan: func(row rowScanner) (*repository.MetaData, error) {
		var (
			meta             repository.MetaData
			created, updated int64
		)
		if err := row.Scan(&meta.ID, &meta.XFormID, &meta.DataType, &meta.DataValue, &created, &updated); err != nil {
			return nil, err
		}
		meta.Created, meta.Modified = fromMicros(created), fromMicros(updated)
		return &meta, nil
	},
}

type metaDataRepo struct {
	tableRepo[*repository.MetaData]
}

func (r *metaDataRepo) Create(ctx context.Context, meta *repository.MetaData) (*repository.MetaData, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO metadata (xform_id, data_type, data_value, date_created, date_modified)
		VALUES (?, ?, ?, ?, ?)
	`, meta.XFormID, meta.DataType, meta.DataValue, toMicros(meta.Created), toMicros(meta.Modified))
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	meta.ID = id
	return meta, nil
}

func (r *metaDataRepo) Update(ctx context.Context, meta *repository.MetaData) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE metadata SET data_type = ?, data_value = ?, date_modified = ? WHERE id = ?
	`, meta.DataType, meta.DataValue, toMicros(meta.Modified), meta.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// Widgets carry no date_modified column.
var widgetSpec = &tableSpec[*repository.Widget]{
	model:        repository.ModelWidget,
	table:        "widgets",
	columns:      "id, xform_id, title, widget_type, date_created",
	parentColumn: "xform_id",
	scan: func(row rowScanner) (*repository.Widget, error) {
		var (
			widget  repository.Widget
			created int64
		)
		if err := row.Scan(&widget.ID, &widget.XFormID, &widget.Title, &widget.WidgetType, &created); err != nil {
			return nil, err
		}
		widget.Created = fromMicros(created)
		return &widget, nil
	},
}

type widgetRepo struct {
	tableRepo[*repository.Widget]
}

func (r *widgetRepo) ByID(id int64) repository.Query[*repository.Widget] {
	return r.byID(id)
}

func (r *widgetRepo) Create(ctx context.Context, widget *repository.Widget) (*repository.Widget, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO widgets (xform_id, title, widget_type, date_created)
		VALUES (?, ?, ?, ?)
	`, widget.XFormID, widget.Title, widget.WidgetType, toMicros(widget.Created))
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	widget.ID = id
	return widget, nil
}

func (r *widgetRepo) Update(ctx context.Context, widget *repository.Widget) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE widgets SET title = ?, widget_type = ? WHERE id = ?
	`, widget.Title, widget.WidgetType, widget.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
