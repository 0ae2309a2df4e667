package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sigreer/usbidgen/internal/generator"
	"github.com/sigreer/usbidgen/internal/table"
	"github.com/sigreer/usbidgen/internal/ui"
)

func newCheckCmd(a *app) *cobra.Command {
	var (
		sourceLoc string
		dbPath    string
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Parse the registry and self-test the table without writing files",
		Long: `Parse the registry and self-test the table without writing files.

With --db (or database.path in the config) the stored table is compared
with the registry as well, to tell whether 'usbidgen generate' is due.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(sourceLoc)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if dbPath != "" {
				cfg.Database.Path = dbPath
			}

			p, err := generator.Load(cmd.Context(), generator.Options{Config: cfg, Logger: a.log})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			ui.Success(out, "Registry OK")
			ui.Field(out, "Source", p.Source.Location)
			ui.Field(out, "Lines", humanize.Comma(int64(p.Lines)))
			ui.Field(out, "Vendors", humanize.Comma(int64(p.Summary.Vendors)))
			ui.Field(out, "Devices", humanize.Comma(int64(p.Summary.Devices)))
			ui.Field(out, "Rows", humanize.Comma(int64(p.Table.Len())))
			ui.Field(out, "SHA-256", p.SHA256)
			if !p.MarkerSeen {
				ui.Warn(out, "end-of-list marker not found")
			}
			if p.Resorted {
				ui.Warn(out, "registry is out of order")
			}

			if cfg.Database.Path == "" {
				return nil
			}
			if _, err := os.Stat(cfg.Database.Path); os.IsNotExist(err) {
				ui.Warn(out, "database "+cfg.Database.Path+" does not exist yet")
				return nil
			}
			diff, err := diffStored(cfg.Database.Path, p.Table.Rows())
			if err != nil {
				return err
			}
			if diff == 0 {
				ui.Field(out, "Database", "up to date")
			} else {
				ui.Warn(out, fmt.Sprintf("database is stale: %d rows differ from the registry", diff))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&sourceLoc, "source", "s", "", "registry file or URL (default from config)")
	cmd.Flags().StringVar(&dbPath, "db", "", "compare against the table stored in this database")
	return cmd
}

// diffStored counts the positions where the stored table and rows disagree,
// including rows present on one side only.
func diffStored(path string, rows []table.Row) (int, error) {
	database, err := openDB(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	stored, err := database.Rows()
	if err != nil {
		return 0, err
	}

	diff := max(len(stored), len(rows)) - min(len(stored), len(rows))
	for i := 0; i < min(len(stored), len(rows)); i++ {
		if !table.Equal(stored[i], rows[i]) {
			diff++
		}
	}
	return diff, nil
}
