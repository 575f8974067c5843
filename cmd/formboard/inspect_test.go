package main

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/creamcroissant/formboard/internal/etag"
	"github.com/creamcroissant/formboard/internal/migrations"
	"github.com/creamcroissant/formboard/internal/repository"
	"github.com/creamcroissant/formboard/internal/repository/sqlite"
)

var seededAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newInspectStore(t *testing.T) (*sqlite.Store, *repository.XForm) {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+filepath.Join(t.TempDir(), "cli.db")+"?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Up(db))

	store := sqlite.NewStore(db)
	ctx := context.Background()
	stamps := repository.Timestamps{Created: seededAt, Modified: seededAt}
	project, err := store.Projects().Create(ctx, &repository.Project{Name: "census", Timestamps: stamps})
	require.NoError(t, err)
	form, err := store.XForms().Create(ctx, &repository.XForm{ProjectID: project.ID, IDString: "census", Title: "Census", Timestamps: stamps})
	require.NoError(t, err)
	return store, form
}

func fixedResolver() *etag.Resolver {
	return etag.NewResolver(func() time.Time { return time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC) })
}

func TestInspectList(t *testing.T) {
	store, _ := newInspectStore(t)

	got, err := inspectETag(context.Background(), store, fixedResolver(), inspectRequest{Resource: "forms"})
	require.NoError(t, err)

	value := `["2024-03-01 12:00:00+00:00"]`
	assert.Equal(t, string(etag.OriginCollection), got.Origin)
	assert.Equal(t, value, got.Value)
	assert.Equal(t, etag.Weak(value), got.ETag)
}

func TestInspectObject(t *testing.T) {
	store, form := newInspectStore(t)

	got, err := inspectETag(context.Background(), store, fixedResolver(), inspectRequest{Resource: "forms", ID: form.ID})
	require.NoError(t, err)

	assert.Equal(t, string(etag.OriginObject), got.Origin)
	assert.Equal(t, "2024-03-01 12:00:00+00:00", got.Value)
}

func TestInspectEmptyList(t *testing.T) {
	store, form := newInspectStore(t)

	got, err := inspectETag(context.Background(), store, fixedResolver(), inspectRequest{Resource: "data", Parent: form.ID})
	require.NoError(t, err)
	assert.Empty(t, got.ETag)
	assert.NotEmpty(t, got.Note)
}

func TestInspectWidgetDetailUsesPrimaryKey(t *testing.T) {
	store, form := newInspectStore(t)
	widget, err := store.Widgets().Create(context.Background(), &repository.Widget{XFormID: form.ID, Title: "ages", WidgetType: "charts", Created: seededAt})
	require.NoError(t, err)

	got, err := inspectETag(context.Background(), store, fixedResolver(), inspectRequest{Resource: "widgets", ID: widget.ID})
	require.NoError(t, err)
	assert.Equal(t, etag.Weak(`["`+itoa(widget.ID)+`"]`), got.ETag)
}

func TestInspectWidgetListFallsBackToClock(t *testing.T) {
	store, form := newInspectStore(t)
	_, err := store.Widgets().Create(context.Background(), &repository.Widget{XFormID: form.ID, Title: "ages", WidgetType: "charts", Created: seededAt})
	require.NoError(t, err)

	got, err := inspectETag(context.Background(), store, fixedResolver(), inspectRequest{Resource: "widgets"})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-02 00:00:00+00:00", got.Value)
}

func TestInspectErrors(t *testing.T) {
	store, _ := newInspectStore(t)

	_, err := inspectETag(context.Background(), store, fixedResolver(), inspectRequest{Resource: "servers"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forms")

	_, err = inspectETag(context.Background(), store, fixedResolver(), inspectRequest{Resource: "forms", ID: 404})
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRenderInspection(t *testing.T) {
	in := inspection{Resource: "forms", Origin: "collection", Value: "v", ETag: etag.Weak("v")}

	var text bytes.Buffer
	require.NoError(t, renderInspection(&text, "text", in))
	assert.Contains(t, text.String(), in.ETag)

	var out bytes.Buffer
	require.NoError(t, renderInspection(&out, "yaml", in))
	var decoded inspection
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, in, decoded)

	require.Error(t, renderInspection(&out, "xml", in))
}
