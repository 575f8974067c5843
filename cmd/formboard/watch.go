package main

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/creamcroissant/formboard/internal/etag"
	"github.com/creamcroissant/formboard/internal/repository/sqlite"
	"github.com/creamcroissant/formboard/internal/tui"
)

func init() {
	var interval time.Duration
	var watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Launch interactive ETag monitor",
		Long:  "Launch a terminal UI that re-resolves form and submission ETags on an interval and highlights changes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cmd.Context())
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			model := tui.NewModel(sqlite.NewStore(db), tui.Options{
				Resolver: etag.NewResolver(nil),
				Interval: interval,
			})
			p := tea.NewProgram(
				model,
				tea.WithAltScreen(),
				tea.WithContext(cmd.Context()),
			)
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("run tui: %w", err)
			}
			return nil
		},
	}
	watchCmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "Refresh interval")
	rootCmd.AddCommand(watchCmd)
}
