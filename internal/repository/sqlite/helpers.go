package sqlite

import (
	"database/sql"
	"time"

	"github.com/creamcroissant/formboard/internal/repository"
)

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

// toMicros stores timestamps as unix microseconds so sub-second edits still change date_modified.
func toMicros(t time.Time) int64 {
	return t.UTC().UnixMicro()
}

func fromMicros(v int64) time.Time {
	return time.UnixMicro(v).UTC()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
