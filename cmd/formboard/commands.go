package main

import (
	"compress/gzip"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/creamcroissant/formboard/internal/bootstrap"
	"github.com/creamcroissant/formboard/internal/cache"
	"github.com/creamcroissant/formboard/internal/job"
	"github.com/creamcroissant/formboard/internal/migrations"
	"github.com/creamcroissant/formboard/internal/repository/sqlite"
	"github.com/creamcroissant/formboard/internal/service"
	"github.com/creamcroissant/formboard/internal/support/logging"
)

func init() {
	// Migrate
	var migrateCmd = &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Database migration management",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "Using DB path: %s\n", cfg.DB.Path)

			action := "up"
			if len(args) > 0 {
				action = args[0]
			}
			switch action {
			case "down":
				return migrations.Down(db)
			case "status":
				return migrations.Status(db)
			default:
				return migrations.Up(db)
			}
		},
	}
	rootCmd.AddCommand(migrateCmd)

	// Backup
	var backupOutput string
	var backupCompress bool
	var backupCmd = &cobra.Command{
		Use:   "backup",
		Short: "Backup database",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := backupOutput
			if target == "" {
				backupDir := filepath.Join(filepath.Dir(cfg.DB.Path), "backups")
				if err := os.MkdirAll(backupDir, 0o755); err != nil {
					return fmt.Errorf("create backup dir: %w", err)
				}
				ext := ".db"
				if backupCompress {
					ext += ".gz"
				}
				target = filepath.Join(backupDir, fmt.Sprintf("formboard_%s%s", time.Now().Format("20060102_150405"), ext))
			}

			db, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := backupDatabase(cmd.Context(), db, target, backupCompress); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup created at %s\n", target)
			return nil
		},
	}
	backupCmd.Flags().StringVar(&backupOutput, "output", "", "Output file path")
	backupCmd.Flags().BoolVar(&backupCompress, "compress", false, "Compress output with gzip")
	rootCmd.AddCommand(backupCmd)

	// Restore
	var restoreCmd = &cobra.Command{
		Use:   "restore <backup-file>",
		Short: "Restore database from backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			saved, err := restoreDatabase(args[0], cfg.DB.Path, time.Now())
			if err != nil {
				return err
			}
			if saved != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Current database backed up to %s\n", saved)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Database restored successfully.")
			return nil
		},
	}
	rootCmd.AddCommand(restoreCmd)

	// Job
	var jobCmd = &cobra.Command{
		Use:   "job",
		Short: "Job management",
	}
	jobCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			names := make([]string, 0)
			for name := range buildJobs(nil) {
				names = append(names, name)
			}
			sort.Strings(names)
			fmt.Fprintln(cmd.OutOrStdout(), "Available jobs:")
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), "- "+name)
			}
			return nil
		},
	})
	jobCmd.AddCommand(&cobra.Command{
		Use:   "run <name>",
		Short: "Run a job manually",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			j, ok := buildJobs(sqlite.NewStore(db))[args[0]]
			if !ok {
				return fmt.Errorf("unknown job %q", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Running job %s...\n", args[0])
			if err := job.NewScheduler(logging.Discard()).RunNow(cmd.Context(), j); err != nil {
				return fmt.Errorf("job run failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Done.")
			return nil
		},
	})
	rootCmd.AddCommand(jobCmd)
}

func openDB(ctx context.Context) (*sql.DB, error) {
	return bootstrap.OpenSQLite(ctx, cfg.DB.Path, cfg.DB.PingTimeout)
}

// buildJobs 返回可手动触发的任务；store 为 nil 时仅用于列出名称。
func buildJobs(store *sqlite.Store) map[string]job.Runnable {
	var forms service.FormService
	if store != nil {
		forms = service.NewFormService(store, cache.NewStore(cache.Options{}), nil, logging.Discard())
	}
	recount := job.NewSubmissionCountJob(forms, nil)
	return map[string]job.Runnable{
		recount.Name(): recount,
	}
}

func backupDatabase(ctx context.Context, db *sql.DB, target string, compress bool) error {
	if strings.ContainsRune(target, '\'') {
		return fmt.Errorf("backup path must not contain quotes / 备份路径不能包含引号")
	}
	tempFile := target
	if compress {
		if strings.HasSuffix(target, ".gz") {
			tempFile = strings.TrimSuffix(target, ".gz")
		} else {
			tempFile = target + ".tmp"
		}
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", tempFile)); err != nil {
		return fmt.Errorf("sqlite vacuum into: %w", err)
	}
	if !compress {
		return nil
	}
	defer os.Remove(tempFile)
	return compressFile(tempFile, target)
}

// restoreDatabase 覆盖 dbPath，覆盖前把现有文件另存一份并返回其路径。
func restoreDatabase(backupPath, dbPath string, now time.Time) (string, error) {
	if _, err := os.Stat(backupPath); err != nil {
		return "", fmt.Errorf("backup file not found: %w", err)
	}

	var saved string
	if _, err := os.Stat(dbPath); err == nil {
		saved = dbPath + ".pre_restore_" + now.Format("20060102_150405")
		if err := copyFile(dbPath, saved); err != nil {
			return "", fmt.Errorf("failed to backup current db: %w", err)
		}
	}

	source := backupPath
	if strings.HasSuffix(backupPath, ".gz") {
		source = dbPath + ".restoring"
		if err := decompressFile(backupPath, source); err != nil {
			return "", fmt.Errorf("decompress failed: %w", err)
		}
		defer os.Remove(source)
	}

	if err := copyFile(source, dbPath); err != nil {
		return "", fmt.Errorf("restore failed: %w", err)
	}
	return saved, nil
}

// File utils
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func compressFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		gw.Close()
		return err
	}
	return gw.Close()
}

func decompressFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	gr, err := gzip.NewReader(in)
	if err != nil {
		return err
	}
	defer gr.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, gr); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
