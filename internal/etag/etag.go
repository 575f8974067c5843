// 文件路径: internal/etag/etag.go
// 模块说明: 根据集合或单个实体推导 ETag 值，并生成弱校验器。
package etag

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// trackedModels lists entity types that carry a reliable date_modified column.
// Keep in sync with the repository schema.
var trackedModels = map[string]struct{}{
	"XForm":               {},
	"Instance":            {},
	"Project":             {},
	"Attachment":          {},
	"MetaData":            {},
	"Note":                {},
	"OrganizationProfile": {},
	"UserProfile":         {},
	"Team":                {},
}

// Tracked reports whether the model name is eligible for timestamp based ETags.
func Tracked(model string) bool {
	_, ok := trackedModels[model]
	return ok
}

// Entity is a single persisted record exposed by the API.
type Entity interface {
	ModelName() string
}

// Timestamped is implemented by entities with a last-modified timestamp.
type Timestamped interface {
	Entity
	DateModified() time.Time
}

// Collection is a lazy query over entities of one type.
type Collection interface {
	ModelName() string
	// CanReorder is false once the query has been sliced.
	CanReorder() bool
	OrderByModifiedDesc() Collection
	DateModifiedValues(ctx context.Context) ([]time.Time, error)
	PrimaryKeys(ctx context.Context) ([]int64, error)
	Exists(ctx context.Context) (bool, error)
}

// SinglePass marks collections that can only be consumed once.
type SinglePass interface {
	SinglePass() bool
}

// Resolver derives the string that represents the current version of some data.
type Resolver struct {
	now func() time.Time
}

// NewResolver returns a resolver using now as its clock (time.Now when nil).
func NewResolver(now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{now: now}
}

// Now returns the resolver clock formatted as a timestamp string.
func (r *Resolver) Now() string {
	return FormatTimestamp(r.clock()())
}

func (r *Resolver) clock() func() time.Time {
	if r == nil || r.now == nil {
		return time.Now
	}
	return r.now
}

// Value resolves the ETag value for list, optionally scoped to obj.
func (r *Resolver) Value(ctx context.Context, obj Entity, list Collection) (string, error) {
	if list == nil {
		return r.Now(), nil
	}

	if Tracked(list.ModelName()) {
		if list.CanReorder() {
			list = list.OrderByModifiedDesc()
		}
		stamps, err := list.DateModifiedValues(ctx)
		if err != nil {
			return "", fmt.Errorf("etag: load %s date_modified: %w", list.ModelName(), err)
		}
		values := make([]string, 0, len(stamps))
		for _, ts := range stamps {
			values = append(values, FormatTimestamp(ts))
		}
		return encodeList(values)
	}

	if obj != nil {
		keys, err := list.PrimaryKeys(ctx)
		if err != nil {
			return "", fmt.Errorf("etag: load %s primary keys: %w", list.ModelName(), err)
		}
		values := make([]string, 0, len(keys))
		for _, pk := range keys {
			values = append(values, strconv.FormatInt(pk, 10))
		}
		return encodeList(values)
	}

	return r.Now(), nil
}

func encodeList(values []string) (string, error) {
	buf, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("etag: encode value: %w", err)
	}
	return string(buf), nil
}

// Weak hashes value and formats it as a weak validator.
func Weak(value string) string {
	sum := md5.Sum([]byte(value))
	return "W/" + quote(hex.EncodeToString(sum[:]))
}

func quote(raw string) string {
	if raw == "" {
		return ""
	}
	return "\"" + raw + "\""
}

// FormatTimestamp renders t in UTC with microsecond precision.
// The fraction is dropped when it is zero.
func FormatTimestamp(t time.Time) string {
	t = t.UTC()
	if t.Nanosecond()/int(time.Microsecond) == 0 {
		return t.Format("2006-01-02 15:04:05-07:00")
	}
	return t.Format("2006-01-02 15:04:05.000000-07:00")
}
