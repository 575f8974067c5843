package sqlite

import (
	"context"

	"github.com/creamcroissant/formboard/internal/repository"
)

var instanceSpec = &tableSpec[*repository.Instance]{
	model:        repository.ModelInstance,
	table:        "instances",
	columns:      "id, xform_id, uuid, json, status, date_created, date_modified",
	parentColumn: "xform_id",
	hasModified:  true,
	scan: func(row rowScanner) (*repository.Instance, error) {
		var (
			inst             repository.Instance
			created, updated int64
		)
		if err := row.Scan(&inst.ID, &inst.XFormID, &inst.UUID, &inst.JSON, &inst.Status, &created, &updated); err != nil {
			return nil, err
		}
		inst.Created, inst.Modified = fromMicros(created), fromMicros(updated)
		return &inst, nil
	},
}

type instanceRepo struct {
	tableRepo[*repository.Instance]
}

func (r *instanceRepo) Create(ctx context.Context, inst *repository.Instance) (*repository.Instance, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO instances (xform_id, uuid, json, status, date_created, date_modified)
		VALUES (?, ?, ?, ?, ?, ?)
	`, inst.XFormID, inst.UUID, inst.JSON, inst.Status, toMicros(inst.Created), toMicros(inst.Modified))
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	inst.ID = id
	return inst, nil
}

func (r *instanceRepo) Update(ctx context.Context, inst *repository.Instance) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE instances SET json = ?, status = ?, date_modified = ?
		WHERE id = ?
	`, inst.JSON, inst.Status, toMicros(inst.Modified), inst.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// Submit 在同一事务内写入提交并原子递增表单计数。
func (r *instanceRepo) Submit(ctx context.Context, inst *repository.Instance) (*repository.Instance, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO instances (xform_id, uuid, json, status, date_created, date_modified)
		VALUES (?, ?, ?, ?, ?, ?)
	`, inst.XFormID, inst.UUID, inst.JSON, inst.Status, toMicros(inst.Created), toMicros(inst.Modified))
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE xforms SET num_of_submissions = num_of_submissions + 1, date_modified = ?
		WHERE id = ?
	`, toMicros(inst.Modified), inst.XFormID)
	if err != nil {
		return nil, err
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	inst.ID = id
	return inst, nil
}

func (r *instanceRepo) Revise(ctx context.Context, inst *repository.Instance) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE instances SET json = ?, status = ?, date_modified = ?
		WHERE id = ?
	`, inst.JSON, inst.Status, toMicros(inst.Modified), inst.ID)
	if err != nil {
		return err
	}
	if err := requireAffected(res); err != nil {
		return err
	}

	res, err = tx.ExecContext(ctx, `UPDATE xforms SET date_modified = ? WHERE id = ?`, toMicros(inst.Modified), inst.XFormID)
	if err != nil {
		return err
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *instanceRepo) Stream(ctx context.Context, xformID int64, fn func(*repository.Instance) error) error {
	rows, err := r.db.QueryContext(ctx, `SELECT `+instanceSpec.columns+` FROM instances WHERE xform_id = ? ORDER BY id ASC`, xformID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		inst, err := instanceSpec.scan(rows)
		if err != nil {
			return err
		}
		if err := fn(inst); err != nil {
			return err
		}
	}
	return rows.Err()
}

var attachmentSpec = &tableSpec[*repository.Attachment]{
	model:        repository.ModelAttachment,
	table:        "attachments",
	columns:      "id, instance_id, media_file, mimetype, date_created, date_modified",
	parentColumn: "instance_id",
	hasModified:  true,
	scan: func(row rowScanner) (*repository.Attachment, error) {
		var (
			att              repository.Attachment
			created, updated int64
		)
		if err := row.Scan(&att.ID, &att.InstanceID, &att.MediaFile, &att.Mimetype, &created, &updated); err != nil {
			return nil, err
		}
		att.Created, att.Modified = fromMicros(created), fromMicros(updated)
		return &att, nil
	},
}

type attachmentRepo struct {
	tableRepo[*repository.Attachment]
}

func (r *attachmentRepo) Create(ctx context.Context, att *repository.Attachment) (*repository.Attachment, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO attachments (instance_id, media_file, mimetype, date_created, date_modified)
		VALUES (?, ?, ?, ?, ?)
	`, att.InstanceID, att.MediaFile, att.Mimetype, toMicros(att.Created), toMicros(att.Modified))
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	att.ID = id
	return att, nil
}

func (r *attachmentRepo) Update(ctx context.Context, att *repository.Attachment) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE attachments SET media_file = ?, mimetype = ?, date_modified = ?
		WHERE id = ?
	`, att.MediaFile, att.Mimetype, toMicros(att.Modified), att.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

var noteSpec = &tableSpec[*repository.Note]{
	model:        repository.ModelNote,
	table:        "notes",
	columns:      "id, instance_id, note, date_created, date_modified",
	parentColumn: "instance_id",
	hasModified:  true,
	scan: func(row rowScanner) (*repository.Note, error) {
		var (
			note             repository.Note
			created, updated int64
		)
		if err := row.Scan(&note.ID, &note.InstanceID, &note.Body, &created, &updated); err != nil {
			return nil, err
		}
		note.Created, note.Modified = fromMicros(created), fromMicros(updated)
		return &note, nil
	},
}

type noteRepo struct {
	tableRepo[*repository.Note]
}

func (r *noteRepo) Create(ctx context.Context, note *repository.Note) (*repository.Note, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO notes (instance_id, note, date_created, date_modified)
		VALUES (?, ?, ?, ?)
	`, note.InstanceID, note.Body, toMicros(note.Created), toMicros(note.Modified))
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	note.ID = id
	return note, nil
}

func (r *noteRepo) Update(ctx context.Context, note *repository.Note) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notes SET note = ?, date_modified = ? WHERE id = ?
	`, note.Body, toMicros(note.Modified), note.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
