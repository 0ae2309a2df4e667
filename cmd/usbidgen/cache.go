package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sigreer/usbidgen/internal/cache"
	"github.com/sigreer/usbidgen/internal/config"
	"github.com/sigreer/usbidgen/internal/source"
	"github.com/sigreer/usbidgen/internal/ui"
)

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the registry download cache",
	}
	cmd.AddCommand(newCacheInfoCmd(a))
	cmd.AddCommand(newCacheClearCmd(a))
	return cmd
}

func openCache(cfg *config.Config) *cache.Cache {
	return cache.New(cfg.Cache.Dir, cfg.Cache.TTL)
}

func newCacheInfoCmd(a *app) *cobra.Command {
	var sourceLoc string

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the cache location and the cached copy of the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(sourceLoc)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			c := openCache(cfg)

			out := cmd.OutOrStdout()
			ui.Field(out, "Directory", c.Dir())
			ui.Field(out, "TTL", c.TTL().String())
			if cfg.Cache.Disabled {
				ui.Warn(out, "caching is disabled in the config")
			}

			if !source.IsRemote(cfg.Source) {
				ui.Field(out, "Source", cfg.Source+" "+ui.Dim("(local, not cached)"))
				return nil
			}
			ui.Field(out, "Source", cfg.Source)

			entry := c.GetEntry(cfg.Source)
			if entry == nil {
				ui.Field(out, "Cached", "no")
				return nil
			}
			state := "fresh"
			if entry.IsExpired() {
				state = "expired"
			}
			ui.Field(out, "Cached", fmt.Sprintf("%s, %s, fetched %s",
				state, humanize.Bytes(uint64(entry.Size)), humanize.Time(entry.FetchedAt)))
			ui.Field(out, "File", entry.Path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&sourceLoc, "source", "s", "", "registry URL (default from config)")
	return cmd
}

func newCacheClearCmd(a *app) *cobra.Command {
	var sourceLoc string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cached registries",
		Long: `Remove every cached registry, or only the copy of one URL when --source
is given. The next 'usbidgen generate' downloads the registry again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig("")
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			c := openCache(cfg)

			out := cmd.OutOrStdout()
			if sourceLoc != "" {
				if err := c.Delete(sourceLoc); err != nil {
					return fmt.Errorf("failed to remove cached registry: %w", err)
				}
				ui.Success(out, "Removed cached copy of "+sourceLoc)
				return nil
			}

			if err := c.Clear(); err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			ui.Success(out, "Cleared "+c.Dir())
			return nil
		},
	}

	cmd.Flags().StringVarP(&sourceLoc, "source", "s", "", "only remove the cached copy of this URL")
	return cmd
}
