package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/creamcroissant/formboard/internal/api/middleware"
	"github.com/creamcroissant/formboard/internal/cache"
	"github.com/creamcroissant/formboard/internal/etag"
	"github.com/creamcroissant/formboard/internal/migrations"
	sqlitestore "github.com/creamcroissant/formboard/internal/repository/sqlite"
	"github.com/creamcroissant/formboard/internal/service"
	"github.com/creamcroissant/formboard/internal/support/logging"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestRouter(t *testing.T, opts ...RouterOption) http.Handler {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+filepath.Join(t.TempDir(), "api.db")+"?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Up(db))

	store := sqlitestore.NewStore(db)
	clock := &stepClock{now: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
	logger := logging.Discard()
	services := Services{
		Accounts:    service.NewAccountService(store, clock.Now),
		Forms:       service.NewFormService(store, cache.NewStore(cache.Options{}), clock.Now, logger),
		Submissions: service.NewSubmissionService(store, clock.Now),
	}
	return NewRouter(logger, services, opts...)
}

func do(t *testing.T, h http.Handler, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createForm(t *testing.T, h http.Handler) int64 {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/v1/projects/", map[string]any{"name": "Census"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var project struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &project))

	rec = do(t, h, http.MethodPost, "/api/v1/forms/", map[string]any{
		"project":   project.ID,
		"id_string": "census",
		"title":     "Census 2024",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var form struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &form))
	return form.ID
}

func TestHealthEndpoints(t *testing.T) {
	h := newTestRouter(t)
	for _, path := range []string{"/health", "/healthz", "/_internal/ready"} {
		rec := do(t, h, http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Empty(t, rec.Header().Get("ETag"), path)
	}
}

func TestListETagFollowsModification(t *testing.T) {
	h := newTestRouter(t)
	formID := createForm(t, h)

	first := do(t, h, http.MethodGet, "/api/v1/forms/", nil, nil)
	require.Equal(t, http.StatusOK, first.Code)
	tag := first.Header().Get("ETag")
	require.True(t, strings.HasPrefix(tag, `W/"`), tag)

	again := do(t, h, http.MethodGet, "/api/v1/forms/", nil, nil)
	assert.Equal(t, tag, again.Header().Get("ETag"))

	rec := do(t, h, http.MethodPatch, "/api/v1/forms/"+itoa(formID), map[string]any{"title": "Census 2025"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, rec.Header().Get("ETag"), "PATCH responses are not tagged")

	after := do(t, h, http.MethodGet, "/api/v1/forms/", nil, nil)
	assert.NotEqual(t, tag, after.Header().Get("ETag"))
}

func TestConditionalGetReturnsNotModified(t *testing.T) {
	h := newTestRouter(t)
	formID := createForm(t, h)

	first := do(t, h, http.MethodGet, "/api/v1/forms/"+itoa(formID), nil, nil)
	require.Equal(t, http.StatusOK, first.Code)
	tag := first.Header().Get("ETag")
	require.NotEmpty(t, tag)

	rec := do(t, h, http.MethodGet, "/api/v1/forms/"+itoa(formID), nil, http.Header{"If-None-Match": {tag}})
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, tag, rec.Header().Get("ETag"))
}

func TestConditionalGetDisabled(t *testing.T) {
	h := newTestRouter(t, WithETag(true, false))
	formID := createForm(t, h)

	first := do(t, h, http.MethodGet, "/api/v1/forms/"+itoa(formID), nil, nil)
	tag := first.Header().Get("ETag")
	require.NotEmpty(t, tag)

	rec := do(t, h, http.MethodGet, "/api/v1/forms/"+itoa(formID), nil, http.Header{"If-None-Match": {tag}})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestETagDisabled(t *testing.T) {
	h := newTestRouter(t, WithETag(false, false))
	createForm(t, h)

	rec := do(t, h, http.MethodGet, "/api/v1/forms/", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("ETag"))
}

func TestEmptyListHasNoETag(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/api/v1/projects/", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("ETag"))
}

func TestNotFoundIsNotTagged(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/api/v1/forms/999", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Header().Get("ETag"))
}

func TestSubmissionChangesFormAndSummaryTags(t *testing.T) {
	h := newTestRouter(t)
	formID := createForm(t, h)

	summary := do(t, h, http.MethodGet, "/api/v1/forms/"+itoa(formID)+"/summary", nil, nil)
	require.Equal(t, http.StatusOK, summary.Code, summary.Body.String())
	summaryTag := summary.Header().Get("ETag")
	require.NotEmpty(t, summaryTag)
	formTag := do(t, h, http.MethodGet, "/api/v1/forms/"+itoa(formID), nil, nil).Header().Get("ETag")

	rec := do(t, h, http.MethodPost, "/api/v1/data/", map[string]any{
		"xform": formID,
		"json":  map[string]any{"age": 31},
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	summary = do(t, h, http.MethodGet, "/api/v1/forms/"+itoa(formID)+"/summary", nil, nil)
	assert.NotEqual(t, summaryTag, summary.Header().Get("ETag"))
	assert.NotEqual(t, formTag, do(t, h, http.MethodGet, "/api/v1/forms/"+itoa(formID), nil, nil).Header().Get("ETag"))

	var body struct {
		Submissions int64 `json:"num_of_submissions"`
	}
	require.NoError(t, json.Unmarshal(summary.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.Submissions)
}

func TestExportIsStreamedWithoutETag(t *testing.T) {
	h := newTestRouter(t)
	formID := createForm(t, h)
	for i := 0; i < 3; i++ {
		rec := do(t, h, http.MethodPost, "/api/v1/data/", map[string]any{
			"xform": formID,
			"json":  map[string]any{"n": i},
		}, nil)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := do(t, h, http.MethodGet, "/api/v1/forms/"+itoa(formID)+"/export.csv", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("ETag"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "id,uuid,status"))
}

func TestWidgetDetailUsesPrimaryKey(t *testing.T) {
	h := newTestRouter(t)
	formID := createForm(t, h)

	rec := do(t, h, http.MethodPost, "/api/v1/widgets/", map[string]any{
		"xform":       formID,
		"title":       "Ages",
		"widget_type": "charts",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var widget struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &widget))

	get := do(t, h, http.MethodGet, "/api/v1/widgets/"+itoa(widget.ID), nil, nil)
	require.Equal(t, http.StatusOK, get.Code)
	assert.Equal(t, etag.Weak(`["`+itoa(widget.ID)+`"]`), get.Header().Get("ETag"))
}

func TestMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := middleware.NewMetrics(middleware.MetricsConfig{Namespace: "formboard", Registerer: registry})
	h := newTestRouter(t, WithMetrics(metrics, registry))
	createForm(t, h)
	do(t, h, http.MethodGet, "/api/v1/forms/", nil, nil)

	rec := do(t, h, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "formboard_http_etag_resolved_total")
}

func TestReadinessFailure(t *testing.T) {
	h := newTestRouter(t, WithReadiness(func(context.Context) error { return sql.ErrConnDone }))

	rec := do(t, h, http.MethodGet, "/_internal/ready", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
