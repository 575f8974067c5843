package tui

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/creamcroissant/formboard/internal/etag"
	"github.com/creamcroissant/formboard/internal/migrations"
	"github.com/creamcroissant/formboard/internal/repository"
	"github.com/creamcroissant/formboard/internal/repository/sqlite"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T) (*sqlite.Store, *repository.XForm) {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+filepath.Join(t.TempDir(), "tui.db")+"?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Up(db))

	store := sqlite.NewStore(db)
	stamps := repository.Timestamps{Created: base, Modified: base}
	project, err := store.Projects().Create(context.Background(), &repository.Project{Name: "p", Timestamps: stamps})
	require.NoError(t, err)
	form, err := store.XForms().Create(context.Background(), &repository.XForm{ProjectID: project.ID, IDString: "hh", Title: "Household", Timestamps: stamps})
	require.NoError(t, err)
	return store, form
}

func addSubmission(t *testing.T, store *sqlite.Store, formID int64, uuid string, at time.Time) {
	t.Helper()
	_, err := store.Instances().Create(context.Background(), &repository.Instance{
		XFormID: formID, UUID: uuid, JSON: "{}", Status: "submitted_via_web",
		Timestamps: repository.Timestamps{Created: at, Modified: at},
	})
	require.NoError(t, err)
}

func TestLoadFormRows(t *testing.T) {
	store, form := newStore(t)
	resolver := etag.NewResolver(nil)

	rows, err := loadFormRows(context.Background(), store, resolver)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, etag.Weak("2024-03-01 12:00:00+00:00"), rows[0].ETag)
	assert.Empty(t, rows[0].DataETag, "no submissions means no data tag")

	addSubmission(t, store, form.ID, "u-1", base.Add(time.Minute))
	rows, err = loadFormRows(context.Background(), store, resolver)
	require.NoError(t, err)
	assert.Equal(t, etag.Weak(`["2024-03-01 12:01:00+00:00"]`), rows[0].DataETag)
}

func TestUpdateMarksChangedRows(t *testing.T) {
	store, form := newStore(t)
	m := NewModel(store, Options{})

	first := formsLoadedMsg{forms: []FormRow{{Form: form, ETag: "W/\"a\""}}}
	next, _ := m.Update(first)
	m = next.(Model)
	assert.False(t, m.forms[0].Changed)
	assert.False(t, m.loading)

	next, _ = m.Update(formsLoadedMsg{forms: []FormRow{{Form: form, ETag: "W/\"a\""}}})
	m = next.(Model)
	assert.False(t, m.forms[0].Changed)

	next, _ = m.Update(formsLoadedMsg{forms: []FormRow{{Form: form, ETag: "W/\"a\"", DataETag: "W/\"b\""}}})
	m = next.(Model)
	assert.True(t, m.forms[0].Changed)
}

func TestNavigation(t *testing.T) {
	store, form := newStore(t)
	addSubmission(t, store, form.ID, "u-1", base.Add(time.Minute))
	addSubmission(t, store, form.ID, "u-2", base.Add(2*time.Minute))

	m := NewModel(store, Options{Interval: time.Hour})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 160, Height: 40})
	m = next.(Model)
	next, _ = m.Update(m.loadForms()())
	m = next.(Model)
	require.Len(t, m.forms, 1)
	assert.Contains(t, m.View(), "Household")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.Equal(t, ViewFormDetail, m.view)
	require.NotNil(t, cmd)

	next, _ = m.Update(cmd())
	m = next.(Model)
	require.Len(t, m.submissions, 2)
	assert.Equal(t, "u-2", m.submissions[0].UUID, "newest first")
	assert.NotEmpty(t, m.current.DataETag)
	assert.Contains(t, m.View(), "u-1")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	m = next.(Model)
	assert.Equal(t, 1, m.scroll)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(Model)
	assert.Equal(t, ViewFormList, m.view)
	assert.Nil(t, m.current)
}

func TestStaleSubmissionsIgnored(t *testing.T) {
	store, form := newStore(t)
	m := NewModel(store, Options{})

	next, _ := m.Update(submissionsLoadedMsg{formID: form.ID})
	m = next.(Model)
	assert.True(t, m.loading, "no form is open so the message is dropped")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmno", 10))
}
