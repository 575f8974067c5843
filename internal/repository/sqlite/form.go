package sqlite

import (
	"context"

	"github.com/creamcroissant/formboard/internal/repository"
)

var projectSpec = &tableSpec[*repository.Project]{
	model:       repository.ModelProject,
	table:       "projects",
	columns:     "id, name, owner, shared, date_created, date_modified",
	hasModified: true,
	scan: func(row rowScanner) (*repository.Project, error) {
		var (
			project          repository.Project
			shared           int64
			created, updated int64
		)
		if err := row.Scan(&project.ID, &project.Name, &project.Owner, &shared, &created, &updated); err != nil {
			return nil, err
		}
		project.Shared = shared == 1
		project.Created, project.Modified = fromMicros(created), fromMicros(updated)
		return &project, nil
	},
}

type projectRepo struct {
	tableRepo[*repository.Project]
}

func (r *projectRepo) Create(ctx context.Context, project *repository.Project) (*repository.Project, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO projects (name, owner, shared, date_created, date_modified)
		VALUES (?, ?, ?, ?, ?)
	`, project.Name, project.Owner, boolToInt(project.Shared), toMicros(project.Created), toMicros(project.Modified))
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	project.ID = id
	return project, nil
}

func (r *projectRepo) Update(ctx context.Context, project *repository.Project) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE projects SET name = ?, owner = ?, shared = ?, date_modified = ?
		WHERE id = ?
	`, project.Name, project.Owner, boolToInt(project.Shared), toMicros(project.Modified), project.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

var xformSpec = &tableSpec[*repository.XForm]{
	model:        repository.ModelXForm,
	table:        "xforms",
	columns:      "id, project_id, id_string, title, downloadable, num_of_submissions, date_created, date_modified",
	parentColumn: "project_id",
	hasModified:  true,
	scan: func(row rowScanner) (*repository.XForm, error) {
		var (
			form             repository.XForm
			downloadable     int64
			created, updated int64
		)
		if err := row.Scan(&form.ID, &form.ProjectID, &form.IDString, &form.Title, &downloadable,
			&form.NumOfSubmissions, &created, &updated); err != nil {
			return nil, err
		}
		form.Downloadable = downloadable == 1
		form.Created, form.Modified = fromMicros(created), fromMicros(updated)
		return &form, nil
	},
}

type xformRepo struct {
	tableRepo[*repository.XForm]
}

func (r *xformRepo) Create(ctx context.Context, form *repository.XForm) (*repository.XForm, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO xforms (project_id, id_string, title, downloadable, num_of_submissions, date_created, date_modified)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, form.ProjectID, form.IDString, form.Title, boolToInt(form.Downloadable), form.NumOfSubmissions,
		toMicros(form.Created), toMicros(form.Modified))
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	form.ID = id
	return form, nil
}

func (r *xformRepo) Update(ctx context.Context, form *repository.XForm) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE xforms
		SET project_id = ?, id_string = ?, title = ?, downloadable = ?, num_of_submissions = ?, date_modified = ?
		WHERE id = ?
	`, form.ProjectID, form.IDString, form.Title, boolToInt(form.Downloadable), form.NumOfSubmissions,
		toMicros(form.Modified), form.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// SubmissionCounts 统计每个表单的实际提交数，没有提交的表单计为 0。
func (r *xformRepo) SubmissionCounts(ctx context.Context) (map[int64]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT x.id, COUNT(i.id)
		FROM xforms x
		LEFT JOIN instances i ON i.xform_id = x.id
		GROUP BY x.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int64]int64)
	for rows.Next() {
		var id, count int64
		if err := rows.Scan(&id, &count); err != nil {
			return nil, err
		}
		counts[id] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}
