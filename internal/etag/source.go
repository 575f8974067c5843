package etag

import (
	"context"
	"sync"
)

// Origin names where a resolved value came from.
type Origin string

const (
	OriginOverride   Origin = "override"
	OriginCollection Origin = "collection"
	OriginObject     Origin = "object"
	OriginClock      Origin = "clock"
)

// Result is a resolved ETag.
type Result struct {
	Value  string
	Header string
	Origin Origin
}

// Source collects what a handler exposes about the data it is returning.
// One Source lives for the duration of a single request.
type Source struct {
	mu         sync.Mutex
	data       string
	collection Collection
	object     Entity
	streaming  bool
}

type sourceKey struct{}

// WithSource attaches a fresh Source to ctx.
func WithSource(ctx context.Context) (context.Context, *Source) {
	src := &Source{}
	return context.WithValue(ctx, sourceKey{}, src), src
}

// FromContext returns the request Source, or nil outside the ETag middleware.
func FromContext(ctx context.Context) *Source {
	if ctx == nil {
		return nil
	}
	src, _ := ctx.Value(sourceKey{}).(*Source)
	return src
}

// SetData publishes an explicit value that is used verbatim. Empty values are ignored.
func SetData(ctx context.Context, value string) {
	if src := FromContext(ctx); src != nil && value != "" {
		src.mu.Lock()
		src.data = value
		src.mu.Unlock()
	}
}

// SetCollection publishes the collection the handler listed.
func SetCollection(ctx context.Context, c Collection) {
	if src := FromContext(ctx); src != nil {
		src.mu.Lock()
		src.collection = c
		src.mu.Unlock()
	}
}

// SetObject publishes the single entity the handler fetched.
func SetObject(ctx context.Context, e Entity) {
	if src := FromContext(ctx); src != nil {
		src.mu.Lock()
		src.object = e
		src.mu.Unlock()
	}
}

// MarkStreaming flags the response as streamed; streamed responses get no ETag.
func MarkStreaming(ctx context.Context) {
	if src := FromContext(ctx); src != nil {
		src.markStreaming()
	}
}

func (s *Source) markStreaming() {
	s.mu.Lock()
	s.streaming = true
	s.mu.Unlock()
}

// Streaming reports whether the response was flagged as streamed.
func (s *Source) Streaming() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming
}

// Resolve picks a value in order: override, collection, allow-listed object, clock.
// ok is false when the published collection is empty and no header should be set.
func (s *Source) Resolve(ctx context.Context, resolver *Resolver) (Result, bool, error) {
	var (
		data       string
		collection Collection
		object     Entity
	)
	if s != nil {
		s.mu.Lock()
		data, collection, object = s.data, s.collection, s.object
		s.mu.Unlock()
	}

	switch {
	case data != "":
		return newResult(data, OriginOverride), true, nil
	case collection != nil:
		if sp, ok := collection.(SinglePass); ok && sp.SinglePass() {
			break
		}
		exists, err := collection.Exists(ctx)
		if err != nil {
			return Result{}, false, err
		}
		if !exists {
			return Result{}, false, nil
		}
		value, err := resolver.Value(ctx, object, collection)
		if err != nil {
			return Result{}, false, err
		}
		return newResult(value, OriginCollection), true, nil
	case object != nil:
		if ts, ok := object.(Timestamped); ok && Tracked(object.ModelName()) {
			return newResult(FormatTimestamp(ts.DateModified()), OriginObject), true, nil
		}
	}

	return newResult(resolver.Now(), OriginClock), true, nil
}

func newResult(value string, origin Origin) Result {
	return Result{Value: value, Header: Weak(value), Origin: origin}
}
