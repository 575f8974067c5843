package middleware

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/creamcroissant/formboard/internal/etag"
	"github.com/creamcroissant/formboard/internal/support/logging"
)

var fixedNow = time.Date(2024, 5, 6, 7, 8, 9, 123456000, time.UTC)

type stubCollection struct {
	model  string
	stamps []time.Time
	err    error
}

func (c *stubCollection) ModelName() string                   { return c.model }
func (c *stubCollection) CanReorder() bool                    { return false }
func (c *stubCollection) OrderByModifiedDesc() etag.Collection { return c }
func (c *stubCollection) DateModifiedValues(context.Context) ([]time.Time, error) {
	return c.stamps, c.err
}
func (c *stubCollection) PrimaryKeys(context.Context) ([]int64, error) {
	keys := make([]int64, len(c.stamps))
	for i := range c.stamps {
		keys[i] = int64(i + 1)
	}
	return keys, c.err
}
func (c *stubCollection) Exists(context.Context) (bool, error) {
	return len(c.stamps) > 0 || c.err != nil, nil
}

type stubEntity struct {
	model    string
	modified time.Time
}

func (e stubEntity) ModelName() string       { return e.model }
func (e stubEntity) DateModified() time.Time { return e.modified }

func md5Weak(value string) string {
	sum := md5.Sum([]byte(value))
	return `W/"` + hex.EncodeToString(sum[:]) + `"`
}

func serve(t *testing.T, cfg ETagConfig, method string, h http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	if cfg.Resolver == nil {
		cfg.Resolver = etag.NewResolver(func() time.Time { return fixedNow })
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	rec := httptest.NewRecorder()
	ETag(cfg)(h).ServeHTTP(rec, httptest.NewRequest(method, "/api/v1/forms", nil))
	return rec
}

func listHandler(c etag.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		etag.SetCollection(r.Context(), c)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}
}

func TestETagUnchangedCollectionIsStable(t *testing.T) {
	coll := &stubCollection{model: "XForm", stamps: []time.Time{fixedNow, fixedNow.Add(-time.Hour)}}

	first := serve(t, ETagConfig{}, http.MethodGet, listHandler(coll))
	second := serve(t, ETagConfig{}, http.MethodGet, listHandler(coll))

	require.NotEmpty(t, first.Header().Get("ETag"))
	assert.Equal(t, first.Header().Get("ETag"), second.Header().Get("ETag"))
	assert.Equal(t, md5Weak(`["2024-05-06 07:08:09.123456+00:00","2024-05-06 06:08:09.123456+00:00"]`), first.Header().Get("ETag"))
}

func TestETagChangesWhenMemberChanges(t *testing.T) {
	coll := &stubCollection{model: "Instance", stamps: []time.Time{fixedNow}}
	before := serve(t, ETagConfig{}, http.MethodGet, listHandler(coll)).Header().Get("ETag")

	coll.stamps = []time.Time{fixedNow.Add(time.Microsecond)}
	after := serve(t, ETagConfig{}, http.MethodGet, listHandler(coll)).Header().Get("ETag")

	assert.NotEqual(t, before, after)
}

func TestETagSingleEntity(t *testing.T) {
	modified := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := serve(t, ETagConfig{}, http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		etag.SetObject(r.Context(), stubEntity{model: "Project", modified: modified})
		_, _ = w.Write([]byte(`{}`))
	})
	assert.Equal(t, md5Weak("2024-01-02 03:04:05+00:00"), rec.Header().Get("ETag"))
}

func TestETagUntrackedEntityFallsBackToClock(t *testing.T) {
	rec := serve(t, ETagConfig{}, http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		etag.SetObject(r.Context(), stubEntity{model: "Widget", modified: fixedNow.Add(time.Hour)})
		_, _ = w.Write([]byte(`{}`))
	})
	assert.Equal(t, md5Weak(etag.FormatTimestamp(fixedNow)), rec.Header().Get("ETag"))
}

func TestETagEmptyCollectionSetsNoHeader(t *testing.T) {
	rec := serve(t, ETagConfig{}, http.MethodGet, listHandler(&stubCollection{model: "XForm"}))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("ETag"))
	assert.Equal(t, `[]`, rec.Body.String())
}

func TestETagStreamingSetsNoHeader(t *testing.T) {
	t.Run("marked", func(t *testing.T) {
		rec := serve(t, ETagConfig{}, http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
			etag.MarkStreaming(r.Context())
			_, _ = w.Write([]byte("a,b\n"))
		})
		assert.Empty(t, rec.Header().Get("ETag"))
		assert.Equal(t, "a,b\n", rec.Body.String())
	})

	t.Run("flushed before status", func(t *testing.T) {
		rec := serve(t, ETagConfig{}, http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
			etag.SetObject(r.Context(), stubEntity{model: "Project", modified: fixedNow})
			require.NoError(t, http.NewResponseController(w).Flush())
			_, _ = w.Write([]byte("chunk"))
		})
		assert.Empty(t, rec.Header().Get("ETag"))
		assert.True(t, rec.Flushed)
		assert.Equal(t, "chunk", rec.Body.String())
	})
}

func TestETagOnlyForSuccessfulGet(t *testing.T) {
	coll := &stubCollection{model: "XForm", stamps: []time.Time{fixedNow}}
	for _, status := range []int{http.StatusOK, http.StatusCreated, http.StatusAccepted} {
		rec := serve(t, ETagConfig{}, http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
			etag.SetCollection(r.Context(), coll)
			w.WriteHeader(status)
		})
		assert.NotEmpty(t, rec.Header().Get("ETag"), "status %d", status)
	}
	for _, status := range []int{http.StatusNoContent, http.StatusMovedPermanently, http.StatusNotFound, http.StatusInternalServerError} {
		rec := serve(t, ETagConfig{}, http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
			etag.SetCollection(r.Context(), coll)
			w.WriteHeader(status)
		})
		assert.Empty(t, rec.Header().Get("ETag"), "status %d", status)
	}

	rec := serve(t, ETagConfig{}, http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
		etag.SetCollection(r.Context(), coll)
		w.WriteHeader(http.StatusCreated)
	})
	assert.Empty(t, rec.Header().Get("ETag"))
}

func TestETagOverrideUsedVerbatim(t *testing.T) {
	rec := serve(t, ETagConfig{}, http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		etag.SetCollection(r.Context(), &stubCollection{model: "XForm", stamps: []time.Time{fixedNow}})
		etag.SetData(r.Context(), "summary:v1")
		_, _ = w.Write([]byte(`{}`))
	})
	assert.Equal(t, md5Weak("summary:v1"), rec.Header().Get("ETag"))
}

func TestETagImplicitOK(t *testing.T) {
	rec := serve(t, ETagConfig{}, http.MethodGet, func(http.ResponseWriter, *http.Request) {})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, md5Weak(etag.FormatTimestamp(fixedNow)), rec.Header().Get("ETag"))
}

func TestETagResolutionErrorBecomes500(t *testing.T) {
	coll := &stubCollection{model: "XForm", err: errors.New("database is locked")}
	rec := serve(t, ETagConfig{}, http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		etag.SetCollection(r.Context(), coll)
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte("secret handler body"))
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Header().Get("ETag"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotContains(t, rec.Body.String(), "secret handler body")
	assert.Contains(t, rec.Body.String(), "error")
}

func TestETagTelemetry(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(MetricsConfig{Registerer: reg})

	cfg := ETagConfig{Tracer: tp.Tracer("test"), Metrics: metrics}
	serve(t, cfg, http.MethodGet, listHandler(&stubCollection{model: "XForm", stamps: []time.Time{fixedNow}}))
	serve(t, cfg, http.MethodGet, listHandler(&stubCollection{model: "XForm"}))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.etagResolved.WithLabelValues("collection")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.etagResolved.WithLabelValues("empty")))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "etag.resolve", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("etag.origin", "collection"))
	assert.Contains(t, spans[0].Attributes(), attribute.String("http.route", "unmatched"))
}

func TestETagSpanUsesRoutePattern(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	r := chi.NewRouter()
	r.Use(ETag(ETagConfig{
		Resolver: etag.NewResolver(func() time.Time { return fixedNow }),
		Logger:   logging.Discard(),
		Tracer:   tp.Tracer("test"),
	}))
	r.Get("/api/v1/forms/{id}", func(w http.ResponseWriter, req *http.Request) {
		etag.SetObject(req.Context(), stubEntity{model: "XForm", modified: fixedNow})
		_, _ = w.Write([]byte(`{}`))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/forms/7", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	// 路由模板而非原始路径，避免 span 属性随 id 膨胀
	assert.Contains(t, spans[0].Attributes(), attribute.String("http.route", "/api/v1/forms/{id}"))
}
