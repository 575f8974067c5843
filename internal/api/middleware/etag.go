// 文件路径: internal/api/middleware/etag.go
// 模块说明: 在响应头写出之前计算弱 ETag。处理器通过 etag.SetData/SetCollection/SetObject 发布数据来源。
package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/creamcroissant/formboard/internal/etag"
)

const tracerName = "github.com/creamcroissant/formboard/internal/api/middleware"

// ETagConfig configures the ETag finalizer.
type ETagConfig struct {
	Resolver *etag.Resolver
	Logger   *slog.Logger
	// Metrics is optional.
	Metrics *Metrics
	// Tracer defaults to the global otel tracer.
	Tracer trace.Tracer
}

// ETag sets a weak ETag on successful GET responses just before the status line is written.
// Responses with other statuses, streamed responses and empty collections get no header.
func ETag(cfg ETagConfig) func(http.Handler) http.Handler {
	if cfg.Resolver == nil {
		cfg.Resolver = etag.NewResolver(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(tracerName)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, src := etag.WithSource(r.Context())
			r = r.WithContext(ctx)

			fw := &finalizingWriter{ResponseWriter: w, req: r, src: src, cfg: &cfg}
			next.ServeHTTP(fw, r)
			if !fw.wroteHeader {
				// net/http would send an implicit 200; finalize it here so it gets a tag too.
				fw.WriteHeader(http.StatusOK)
			}
		})
	}
}

// finalizingWriter resolves the ETag on the first WriteHeader call.
type finalizingWriter struct {
	http.ResponseWriter
	req *http.Request
	src *etag.Source
	cfg *ETagConfig

	wroteHeader bool
	// failed means resolution errored and a 500 replaced the handler's response.
	failed bool
}

func (w *finalizingWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true

	if w.eligible(status) {
		if err := w.finalize(); err != nil {
			w.fail(err)
			return
		}
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *finalizingWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if w.failed {
		return len(b), nil
	}
	return w.ResponseWriter.Write(b)
}

// Flush before any status is written marks the response as streamed.
func (w *finalizingWriter) Flush() {
	if !w.wroteHeader {
		etag.MarkStreaming(w.req.Context())
		w.WriteHeader(http.StatusOK)
	}
	if w.failed {
		return
	}
	_ = http.NewResponseController(w.ResponseWriter).Flush()
}

func (w *finalizingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *finalizingWriter) eligible(status int) bool {
	if w.req.Method != http.MethodGet {
		return false
	}
	switch status {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
	default:
		return false
	}
	return !w.src.Streaming()
}

func (w *finalizingWriter) finalize() error {
	ctx, span := w.cfg.Tracer.Start(w.req.Context(), "etag.resolve",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("http.route", routePattern(w.req))),
	)
	defer span.End()

	result, ok, err := w.src.Resolve(ctx, w.cfg.Resolver)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		return err
	}
	if !ok {
		span.SetAttributes(attribute.Bool("etag.skipped", true))
		w.cfg.Metrics.observeETag("empty")
		return nil
	}

	span.SetAttributes(attribute.String("etag.origin", string(result.Origin)))
	span.SetStatus(codes.Ok, "")
	w.cfg.Metrics.observeETag(string(result.Origin))
	w.Header().Set("ETag", result.Header)
	return nil
}

// fail discards whatever the handler prepared and answers 500 instead.
func (w *finalizingWriter) fail(err error) {
	w.failed = true
	w.cfg.Logger.ErrorContext(w.req.Context(), "etag resolution failed",
		"method", w.req.Method,
		"path", w.req.URL.Path,
		"error", err,
	)

	h := w.Header()
	for key := range h {
		if key != "X-Request-Id" {
			h.Del(key)
		}
	}
	h.Set("Content-Type", "application/json")
	w.ResponseWriter.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w.ResponseWriter).Encode(map[string]string{
		"error": "failed to compute entity tag / 无法生成 ETag",
	})
}
