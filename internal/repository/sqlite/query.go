// 文件路径: internal/repository/sqlite/query.go
// 模块说明: 惰性列表查询。只有在 Fetch/Count/Exists 等方法被调用时才访问数据库。
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/creamcroissant/formboard/internal/etag"
	"github.com/creamcroissant/formboard/internal/repository"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// tableSpec describes how one entity maps onto its table.
type tableSpec[T any] struct {
	model        string
	table        string
	columns      string
	parentColumn string
	// hasModified is false for tables without a date_modified column.
	hasModified bool
	scan        func(rowScanner) (T, error)
}

func (s *tableSpec[T]) query(db *sql.DB, filter repository.ListFilter) *query[T] {
	q := &query[T]{
		db:      db,
		spec:    s,
		orderBy: "id ASC",
		limit:   filter.Limit,
		offset:  filter.Offset,
	}
	if filter.ParentID != nil && s.parentColumn != "" {
		q.where = append(q.where, s.parentColumn+" = ?")
		q.args = append(q.args, *filter.ParentID)
	}
	return q
}

type query[T any] struct {
	db      *sql.DB
	spec    *tableSpec[T]
	where   []string
	args    []any
	orderBy string
	limit   int
	offset  int
}

func (q *query[T]) ModelName() string {
	return q.spec.model
}

// CanReorder mirrors ORM semantics: a sliced query cannot be reordered.
func (q *query[T]) CanReorder() bool {
	return q.limit <= 0 && q.offset <= 0
}

func (q *query[T]) OrderByModifiedDesc() etag.Collection {
	clone := q.clone()
	if q.spec.hasModified {
		clone.orderBy = "date_modified DESC"
	}
	return clone
}

func (q *query[T]) DateModifiedValues(ctx context.Context) ([]time.Time, error) {
	if !q.spec.hasModified {
		return nil, fmt.Errorf("%s has no date_modified column", q.spec.table)
	}
	stmt, args := q.build("date_modified")
	rows, err := q.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []time.Time
	for rows.Next() {
		var micros int64
		if err := rows.Scan(&micros); err != nil {
			return nil, err
		}
		values = append(values, fromMicros(micros))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return values, nil
}

func (q *query[T]) PrimaryKeys(ctx context.Context) ([]int64, error) {
	stmt, args := q.build("id")
	rows, err := q.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (q *query[T]) Exists(ctx context.Context) (bool, error) {
	inner, args := q.build("id")
	var exists int64
	if err := q.db.QueryRowContext(ctx, "SELECT EXISTS("+inner+")", args...).Scan(&exists); err != nil {
		return false, err
	}
	return exists == 1, nil
}

func (q *query[T]) Count(ctx context.Context) (int64, error) {
	inner, args := q.build("id")
	var count int64
	if err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ("+inner+")", args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (q *query[T]) Fetch(ctx context.Context) ([]T, error) {
	stmt, args := q.build(q.spec.columns)
	rows, err := q.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]T, 0)
	for rows.Next() {
		item, err := q.spec.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (q *query[T]) clone() *query[T] {
	c := *q
	c.where = append([]string(nil), q.where...)
	c.args = append([]any(nil), q.args...)
	return &c
}

func (q *query[T]) build(columns string) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(columns)
	b.WriteString(" FROM ")
	b.WriteString(q.spec.table)
	if len(q.where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(q.where, " AND "))
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(q.orderBy)

	args := append([]any(nil), q.args...)
	if q.limit > 0 || q.offset > 0 {
		limit := q.limit
		if limit <= 0 {
			limit = -1
		}
		b.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, limit, q.offset)
	}
	return b.String(), args
}

// tableRepo provides the read/delete half shared by every entity repository.
type tableRepo[T any] struct {
	db   *sql.DB
	spec *tableSpec[T]
}

func (r tableRepo[T]) List(filter repository.ListFilter) repository.Query[T] {
	return r.spec.query(r.db, filter)
}

func (r tableRepo[T]) byID(id int64) *query[T] {
	q := r.spec.query(r.db, repository.ListFilter{})
	q.where = append(q.where, "id = ?")
	q.args = append(q.args, id)
	return q
}

func (r tableRepo[T]) FindByID(ctx context.Context, id int64) (T, error) {
	var zero T
	stmt := `SELECT ` + r.spec.columns + ` FROM ` + r.spec.table + ` WHERE id = ? LIMIT 1`
	item, err := r.spec.scan(r.db.QueryRowContext(ctx, stmt, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, repository.ErrNotFound
		}
		return zero, err
	}
	return item, nil
}

func (r tableRepo[T]) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM `+r.spec.table+` WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
