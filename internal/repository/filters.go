package repository

// ListFilter constrains list queries.
// ParentID scopes to the owning record (project for forms, form for submissions, ...).
// A non-zero Limit or Offset slices the query, after which it can no longer be reordered.
type ListFilter struct {
	ParentID *int64
	Limit    int
	Offset   int
}

// Sliced reports whether the filter applies LIMIT/OFFSET.
func (f ListFilter) Sliced() bool {
	return f.Limit > 0 || f.Offset > 0
}
