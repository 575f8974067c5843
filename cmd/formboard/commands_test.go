package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func TestBackupAndRestore(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "live.db")
	db, err := sql.Open("sqlite", "file:"+dbPath)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO kv VALUES ('a', 'one')`)
	require.NoError(t, err)

	require.NoError(t, backupDatabase(context.Background(), db, filepath.Join(dir, "plain.db"), false))
	assert.FileExists(t, filepath.Join(dir, "plain.db"))
	require.NoError(t, backupDatabase(context.Background(), db, filepath.Join(dir, "packed.db.gz"), true))
	assert.FileExists(t, filepath.Join(dir, "packed.db.gz"))
	assert.NoFileExists(t, filepath.Join(dir, "packed.db"), "uncompressed temp file is removed")
	require.NoError(t, db.Close())

	restored := filepath.Join(dir, "restored.db")
	saved, err := restoreDatabase(filepath.Join(dir, "packed.db.gz"), restored, time.Now())
	require.NoError(t, err)
	assert.Empty(t, saved, "nothing to save when the target does not exist")

	check, err := sql.Open("sqlite", "file:"+restored)
	require.NoError(t, err)
	defer check.Close()
	var v string
	require.NoError(t, check.QueryRow(`SELECT v FROM kv WHERE k = 'a'`).Scan(&v))
	assert.Equal(t, "one", v)

	saved, err = restoreDatabase(filepath.Join(dir, "plain.db"), restored, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, restored+".pre_restore_20240102_030405", saved)
	_, err = os.Stat(saved)
	require.NoError(t, err)
}

func TestRestoreMissingBackup(t *testing.T) {
	_, err := restoreDatabase(filepath.Join(t.TempDir(), "missing.db"), filepath.Join(t.TempDir(), "x.db"), time.Now())
	require.Error(t, err)
}

func TestBackupRejectsQuotes(t *testing.T) {
	err := backupDatabase(context.Background(), nil, "/tmp/it's.db", false)
	require.Error(t, err)
}

func TestBuildJobsNames(t *testing.T) {
	jobs := buildJobs(nil)
	assert.Contains(t, jobs, "submission_recount")
}
