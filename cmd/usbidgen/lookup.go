package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sigreer/usbidgen/internal/config"
	"github.com/sigreer/usbidgen/internal/generator"
	"github.com/sigreer/usbidgen/internal/table"
	"github.com/sigreer/usbidgen/internal/ui"
)

func newLookupCmd(a *app) *cobra.Command {
	var (
		sourceLoc string
		dbPath    string
		outputFmt string
	)

	cmd := &cobra.Command{
		Use:   "lookup <vendor> [device]",
		Short: "Look up a vendor or a vendor:device pair",
		Long: `Look up names by hex id, either from the registry or from a table
database written by 'usbidgen generate --db'.

Examples:
  usbidgen lookup 046d              # all rows of a vendor
  usbidgen lookup 046d c077         # one device
  usbidgen lookup 0x1d6b:0x0002     # vendor:device
  usbidgen lookup 046d --db usbids.db -o json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			vendorID, deviceID, hasDevice, err := parseQuery(args)
			if err != nil {
				return err
			}

			cfg, err := a.loadConfig(sourceLoc)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if dbPath != "" {
				cfg.Database.Path = dbPath
			}

			var rows []table.Row
			if cfg.Database.Path != "" && sourceLoc == "" {
				rows, err = lookupDB(cfg.Database.Path, vendorID, deviceID, hasDevice)
			} else {
				rows, err = lookupRegistry(cmd, a, cfg, vendorID, deviceID, hasDevice)
			}
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				if hasDevice {
					return fmt.Errorf("not found: %04x:%04x", vendorID, deviceID)
				}
				return fmt.Errorf("not found: vendor %04x", vendorID)
			}

			switch outputFmt {
			case "json":
				return printJSON(cmd.OutOrStdout(), rows)
			default:
				printTable(cmd.OutOrStdout(), rows)
				return nil
			}
		},
	}

	cmd.Flags().StringVarP(&sourceLoc, "source", "s", "", "registry file or URL (default from config)")
	cmd.Flags().StringVar(&dbPath, "db", "", "look up in this table database instead of the registry")
	cmd.Flags().StringVarP(&outputFmt, "output", "o", "table", "Output format: table, json")
	return cmd
}

// parseQuery accepts "vvvv", "vvvv dddd" or "vvvv:dddd", with optional 0x prefixes.
func parseQuery(args []string) (vendorID, deviceID uint16, hasDevice bool, err error) {
	parts := args
	if len(args) == 1 && strings.Contains(args[0], ":") {
		v, d, _ := strings.Cut(args[0], ":")
		parts = []string{v, d}
	}

	vendorID, err = parseID(parts[0])
	if err != nil {
		return 0, 0, false, err
	}
	if len(parts) == 2 {
		deviceID, err = parseID(parts[1])
		if err != nil {
			return 0, 0, false, err
		}
		hasDevice = true
	}
	return vendorID, deviceID, hasDevice, nil
}

func parseID(s string) (uint16, error) {
	hexStr := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	v, err := strconv.ParseUint(hexStr, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: want 1-4 hex digits", s)
	}
	return uint16(v), nil
}

func lookupDB(path string, vendorID, deviceID uint16, hasDevice bool) ([]table.Row, error) {
	database, err := openDB(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	if !hasDevice {
		return database.LookupVendor(vendorID)
	}
	row, err := database.LookupDevice(vendorID, deviceID)
	if err != nil || row == nil {
		return nil, err
	}
	return []table.Row{*row}, nil
}

func lookupRegistry(cmd *cobra.Command, a *app, cfg *config.Config, vendorID, deviceID uint16, hasDevice bool) ([]table.Row, error) {
	p, err := generator.Load(cmd.Context(), generator.Options{Config: cfg, Logger: a.log})
	if err != nil {
		return nil, err
	}
	if !hasDevice {
		return p.Table.Vendor(vendorID), nil
	}
	row, ok := p.Table.Lookup(vendorID, deviceID)
	if !ok {
		return nil, nil
	}
	return []table.Row{row}, nil
}

func printJSON(w io.Writer, rows []table.Row) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func printTable(w io.Writer, rows []table.Row) {
	fmt.Fprintln(w, ui.Bold(fmt.Sprintf("%-6s %-6s %-32s %s", "VENDOR", "DEVICE", "VENDOR NAME", "DEVICE NAME")))
	fmt.Fprintln(w, ui.Dim(strings.Repeat("-", 80)))
	for _, r := range rows {
		device := ui.Dim("-")
		if r.DeviceName != nil {
			device = *r.DeviceName
		}
		fmt.Fprintf(w, "%04x   %04x   %-32s %s\n", r.VendorID, r.DeviceID, r.VendorName, device)
	}
}
