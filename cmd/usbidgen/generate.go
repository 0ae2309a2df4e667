package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sigreer/usbidgen/internal/generator"
	"github.com/sigreer/usbidgen/internal/ui"
	"github.com/sigreer/usbidgen/internal/version"
)

func newGenerateCmd(a *app) *cobra.Command {
	var (
		sourceLoc string
		outDir    string
		dbPath    string
		refresh   bool
		noCache   bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Regenerate usbids.c and usbids.h from the registry",
		Long: `Read the USB ID registry, build the sorted vendor/device table and write
the C source and header.

The registry is read up to the line
  # List of known device classes, subclasses and protocols
which starts the device class section. Both files are written only if the
whole registry parsed and the table passed its self-test.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(sourceLoc)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if outDir != "" {
				cfg.Output.Dir = outDir
			}
			if dbPath != "" {
				cfg.Database.Path = dbPath
			}
			if noCache {
				cfg.Cache.Disabled = true
			}

			opts := generator.Options{
				Config:    cfg,
				Refresh:   refresh,
				Generator: version.Name + " " + version.Version,
				Logger:    a.log,
			}
			p, err := generator.Load(cmd.Context(), opts)
			if err != nil {
				return err
			}

			// Opened only once the registry is known good, so a failed
			// parse leaves no database file behind.
			opts.DB, err = openDB(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			if opts.DB != nil {
				defer opts.DB.Close()
			}

			rep, err := generator.Emit(p, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			ui.Success(out, fmt.Sprintf("Generated %s and %s", rep.DataPath, rep.HeaderPath))
			ui.Field(out, "Source", rep.Source.Location)
			ui.Field(out, "Vendors", humanize.Comma(int64(rep.Summary.Vendors)))
			ui.Field(out, "Devices", humanize.Comma(int64(rep.Summary.Devices)))
			ui.Field(out, "Rows", humanize.Comma(int64(rep.Table.Len())))
			ui.Field(out, "Data", humanize.Bytes(uint64(rep.DataSize)))
			ui.Field(out, "Header", humanize.Bytes(uint64(rep.HeaderSize)))
			if rep.Source.Cached {
				ui.Field(out, "Cache", "fetched "+humanize.Time(rep.Source.FetchedAt))
			}
			if rep.Generation != nil {
				ui.Field(out, "Generation", rep.Generation.ID)
			}
			if !rep.MarkerSeen {
				ui.Warn(out, "end-of-list marker not found; the whole registry was read as vendor data")
			}
			if rep.Resorted {
				ui.Warn(out, "registry was out of order and has been sorted")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&sourceLoc, "source", "s", "", "registry file or URL (default from config)")
	cmd.Flags().StringVarP(&outDir, "out-dir", "o", "", "output directory (default from config)")
	cmd.Flags().StringVar(&dbPath, "db", "", "also store the table in this SQLite database")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "download the registry even if a cached copy is fresh")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "do not cache downloaded registries")
	return cmd
}
