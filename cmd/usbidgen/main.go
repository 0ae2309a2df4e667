package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sigreer/usbidgen/internal/config"
	"github.com/sigreer/usbidgen/internal/db"
	"github.com/sigreer/usbidgen/internal/ui"
	"github.com/sigreer/usbidgen/internal/version"
)

// app holds state shared by all commands of one invocation.
type app struct {
	cfgFile  string
	logLevel string
	log      *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{log: logrus.New()}
	a.log.SetOutput(os.Stderr)

	rootCmd := &cobra.Command{
		Use:   "usbidgen",
		Short: "Generate a C lookup table from the USB ID registry",
		Long: `usbidgen converts the USB ID registry (usb.ids) published by linux-usb.org
into a sorted C table of vendor and device names, with a binary-search
lookup function, a sortedness check and a self-test, plus a matching header.

Every run regenerates the table from scratch. A malformed registry aborts
the run before any file is written.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(a.logLevel)
			if err != nil {
				return err
			}
			a.log.SetOutput(cmd.ErrOrStderr())
			a.log.SetLevel(level)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is /etc/usbidgen/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	rootCmd.AddCommand(newGenerateCmd(a))
	rootCmd.AddCommand(newCheckCmd(a))
	rootCmd.AddCommand(newLookupCmd(a))
	rootCmd.AddCommand(newHistoryCmd(a))
	rootCmd.AddCommand(newCacheCmd(a))
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", version.Name, version.Version)
		},
	})
	return rootCmd
}

// loadConfig loads the config file and applies the source flag override.
func (a *app) loadConfig(sourceOverride string) (*config.Config, error) {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return nil, err
	}
	if sourceOverride != "" {
		cfg.Source = sourceOverride
	}
	return cfg, nil
}

// openDB opens the table database, or returns nil when no path is set.
func openDB(path string) (*db.DB, error) {
	if path == "" {
		return nil, nil
	}
	return db.New(path)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		title, detail, _ := strings.Cut(err.Error(), ": ")
		fmt.Fprint(os.Stderr, ui.FormatError(title, detail, ""))
		os.Exit(1)
	}
}
