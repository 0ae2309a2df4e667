package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sigreer/usbidgen/internal/ui"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		dbPath string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent generation runs recorded in the table database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig("")
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if dbPath != "" {
				cfg.Database.Path = dbPath
			}
			if cfg.Database.Path == "" {
				return fmt.Errorf("no database configured: pass --db or set database.path")
			}

			database, err := openDB(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer database.Close()

			gens, err := database.RecentGenerations(limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(gens) == 0 {
				fmt.Fprintln(out, "No generations recorded. Run 'usbidgen generate --db' to populate.")
				return nil
			}

			latest, err := database.LatestGeneration()
			if err != nil {
				return err
			}
			stored, err := database.RowCount()
			if err != nil {
				return err
			}
			ui.Field(out, "Current", fmt.Sprintf("%s (%s)", latest.ID, humanize.Time(latest.GeneratedAt)))
			ui.Field(out, "Stored rows", humanize.Comma(int64(stored)))
			fmt.Fprintln(out)

			fmt.Fprintln(out, ui.Bold(fmt.Sprintf("%-36s %-16s %8s %8s %8s  %s", "ID", "WHEN", "VENDORS", "DEVICES", "ROWS", "SOURCE")))
			fmt.Fprintln(out, ui.Dim(strings.Repeat("-", 110)))
			for _, g := range gens {
				source := g.Source
				if !g.MarkerSeen {
					source += " (no end marker)"
				}
				fmt.Fprintf(out, "%-36s %-16s %8d %8d %8d  %s\n",
					g.ID, humanize.Time(g.GeneratedAt), g.Vendors, g.Devices, g.Rows, source)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "table database (default from config)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")
	return cmd
}
