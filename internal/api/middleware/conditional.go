package middleware

import (
	"net/http"
	"strings"
)

// ConditionalGet answers 304 Not Modified when a 200 GET/HEAD response carries an ETag
// that weakly matches the request's If-None-Match. Mount it outside ETag.
func ConditionalGet(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			inm := r.Header.Get("If-None-Match")
			if inm == "" || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(&conditionalWriter{ResponseWriter: w, ifNoneMatch: inm, metrics: metrics}, r)
		})
	}
}

type conditionalWriter struct {
	http.ResponseWriter
	ifNoneMatch string
	metrics     *Metrics

	wroteHeader bool
	notModified bool
}

func (w *conditionalWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true

	if status == http.StatusOK && weakMatch(w.ifNoneMatch, w.Header().Get("ETag")) {
		w.notModified = true
		h := w.Header()
		h.Del("Content-Type")
		h.Del("Content-Length")
		w.metrics.observeNotModified()
		w.ResponseWriter.WriteHeader(http.StatusNotModified)
		return
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *conditionalWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if w.notModified {
		return len(b), nil
	}
	return w.ResponseWriter.Write(b)
}

func (w *conditionalWriter) Flush() {
	if w.notModified {
		return
	}
	_ = http.NewResponseController(w.ResponseWriter).Flush()
}

func (w *conditionalWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// weakMatch implements the weak comparison of RFC 9110 section 8.8.3.2.
func weakMatch(ifNoneMatch, current string) bool {
	if current == "" {
		return false
	}
	current = strings.TrimPrefix(current, "W/")
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		if strings.TrimPrefix(candidate, "W/") == current {
			return true
		}
	}
	return false
}
