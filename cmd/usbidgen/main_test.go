package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigreer/usbidgen/internal/cache"
	"github.com/sigreer/usbidgen/internal/table"
)

const registry = `#
#	List of USB ID's
#
# Vendors, devices and interfaces. Please keep sorted.

0001  Fry's Electronics
	7778  Counterfeit flash drive [Kingston]
03f0  HP, Inc
	0004  DeskJet 895c
	0011  OfficeJet G55
046d  Logitech, Inc.
	c077  M105 Optical Mouse
		01  Mouse interface
1d6b  Linux Foundation
	0002  2.0 root hub

# List of known device classes, subclasses and protocols
C 00  (Defined at Interface level)
`

func writeRegistry(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "usb.ids")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "usbidgen")
}

func TestGenerateCommand(t *testing.T) {
	src := writeRegistry(t, registry)
	outDir := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "usbids.db")

	out, _, err := run(t, "generate", "--source", src, "--out-dir", outDir, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Generated")
	assert.Contains(t, out, "Generation")

	data, err := os.ReadFile(filepath.Join(outDir, "usbids.c"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `{ 0x046d, 0xc077, "Logitech, Inc.", "M105 Optical Mouse" }`)
	assert.NotContains(t, string(data), "Defined at Interface level")

	_, err = os.Stat(filepath.Join(outDir, "usbids.h"))
	assert.NoError(t, err)

	out, _, err = run(t, "history", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, src)
}

func TestGenerateMalformedWritesNothing(t *testing.T) {
	src := writeRegistry(t, "0001  Fry's Electronics\n\t777  short id\n")
	outDir := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "usbids.db")

	_, _, err := run(t, "generate", "--source", src, "--out-dir", outDir, "--db", dbPath)
	require.Error(t, err)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = os.Stat(dbPath)
	assert.True(t, os.IsNotExist(err), "database must not be created for a malformed registry")
}

func TestCheckCommand(t *testing.T) {
	src := writeRegistry(t, registry)

	out, _, err := run(t, "check", "--source", src)
	require.NoError(t, err)
	assert.Contains(t, out, "Registry OK")
	assert.NotContains(t, out, "Warning")
}

func TestCheckWarnsWithoutMarker(t *testing.T) {
	src := writeRegistry(t, "1d6b  Linux Foundation\n\t0002  2.0 root hub\n")

	out, _, err := run(t, "check", "--source", src)
	require.NoError(t, err)
	assert.Contains(t, out, "end-of-list marker not found")
}

func TestLookupCommand(t *testing.T) {
	src := writeRegistry(t, registry)

	t.Run("device", func(t *testing.T) {
		out, _, err := run(t, "lookup", "--source", src, "046d", "c077")
		require.NoError(t, err)
		assert.Contains(t, out, "M105 Optical Mouse")
	})

	t.Run("vendor json", func(t *testing.T) {
		out, _, err := run(t, "lookup", "--source", src, "0x03f0", "-o", "json")
		require.NoError(t, err)

		var rows []table.Row
		require.NoError(t, json.Unmarshal([]byte(out), &rows))
		require.Len(t, rows, 2)
		require.NotNil(t, rows[0].DeviceName)
		assert.Equal(t, "DeskJet 895c", *rows[0].DeviceName)
		assert.Equal(t, "OfficeJet G55", *rows[1].DeviceName)
	})

	t.Run("colon form", func(t *testing.T) {
		out, _, err := run(t, "lookup", "--source", src, "1d6b:0002")
		require.NoError(t, err)
		assert.Contains(t, out, "2.0 root hub")
	})

	t.Run("not found", func(t *testing.T) {
		_, _, err := run(t, "lookup", "--source", src, "ffff")
		assert.Error(t, err)
	})
}

func TestLookupFromDatabase(t *testing.T) {
	src := writeRegistry(t, registry)
	dbPath := filepath.Join(t.TempDir(), "usbids.db")

	_, _, err := run(t, "generate", "--source", src, "--out-dir", t.TempDir(), "--db", dbPath)
	require.NoError(t, err)

	out, _, err := run(t, "lookup", "--db", dbPath, "0001", "7778")
	require.NoError(t, err)
	assert.Contains(t, out, "Counterfeit flash drive [Kingston]")
}

func TestHistoryRequiresDatabase(t *testing.T) {
	_, _, err := run(t, "history")
	assert.Error(t, err)
}

func TestParseQuery(t *testing.T) {
	tests := []struct {
		args      []string
		vendor    uint16
		device    uint16
		hasDevice bool
		wantErr   bool
	}{
		{[]string{"046d"}, 0x046d, 0, false, false},
		{[]string{"046D", "C077"}, 0x046d, 0xc077, true, false},
		{[]string{"0x1d6b:0x0002"}, 0x1d6b, 0x0002, true, false},
		{[]string{"1"}, 0x0001, 0, false, false},
		{[]string{"12345"}, 0, 0, false, true},
		{[]string{"zz"}, 0, 0, false, true},
		{[]string{"046d", "xyz"}, 0, 0, false, true},
	}

	for _, tt := range tests {
		v, d, has, err := parseQuery(tt.args)
		if tt.wantErr {
			assert.Error(t, err, "args %v", tt.args)
			continue
		}
		require.NoError(t, err, "args %v", tt.args)
		assert.Equal(t, tt.vendor, v)
		assert.Equal(t, tt.device, d)
		assert.Equal(t, tt.hasDevice, has)
	}
}

func TestHistoryShowsCurrentGeneration(t *testing.T) {
	src := writeRegistry(t, registry)
	dbPath := filepath.Join(t.TempDir(), "usbids.db")

	_, _, err := run(t, "generate", "--source", src, "--out-dir", t.TempDir(), "--db", dbPath)
	require.NoError(t, err)

	out, _, err := run(t, "history", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Current")
	assert.Contains(t, out, "Stored rows")
	assert.Contains(t, out, "5")
}

func TestCheckComparesDatabase(t *testing.T) {
	src := writeRegistry(t, registry)
	dbPath := filepath.Join(t.TempDir(), "usbids.db")

	_, _, err := run(t, "generate", "--source", src, "--out-dir", t.TempDir(), "--db", dbPath)
	require.NoError(t, err)

	out, _, err := run(t, "check", "--source", src, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "up to date")

	changed := writeRegistry(t, strings.Replace(registry, "M105 Optical Mouse", "M105 Mouse", 1))

	out, _, err = run(t, "check", "--source", changed, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "database is stale")
}

func TestCheckMissingDatabaseIsNotCreated(t *testing.T) {
	src := writeRegistry(t, registry)
	dbPath := filepath.Join(t.TempDir(), "usbids.db")

	out, _, err := run(t, "check", "--source", src, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "does not exist yet")

	_, err = os.Stat(dbPath)
	assert.True(t, os.IsNotExist(err))
}

func writeCacheConfig(t *testing.T, cacheDir string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache:\n  dir: "+cacheDir+"\n  ttl: 1h\n"), 0644))
	return path
}

func TestCacheInfoAndClear(t *testing.T) {
	const url = "https://example.invalid/usb.ids"
	cacheDir := t.TempDir()
	cfgPath := writeCacheConfig(t, cacheDir)

	c := cache.New(cacheDir, time.Hour)
	_, err := c.Put(url, strings.NewReader(registry))
	require.NoError(t, err)
	_, err = c.Put("https://mirror.invalid/usb.ids", strings.NewReader(registry))
	require.NoError(t, err)

	out, _, err := run(t, "--config", cfgPath, "cache", "info", "--source", url)
	require.NoError(t, err)
	assert.Contains(t, out, cacheDir)
	assert.Contains(t, out, "1h0m0s")
	assert.Contains(t, out, "fresh")

	_, _, err = run(t, "--config", cfgPath, "cache", "clear", "--source", url)
	require.NoError(t, err)
	assert.Nil(t, c.GetEntry(url))
	assert.NotNil(t, c.GetEntry("https://mirror.invalid/usb.ids"))

	out, _, err = run(t, "--config", cfgPath, "cache", "info", "--source", url)
	require.NoError(t, err)
	assert.Contains(t, out, "no")

	_, _, err = run(t, "--config", cfgPath, "cache", "clear")
	require.NoError(t, err)
	assert.Nil(t, c.GetEntry("https://mirror.invalid/usb.ids"))
}

func TestCacheInfoLocalSource(t *testing.T) {
	src := writeRegistry(t, registry)

	out, _, err := run(t, "--config", writeCacheConfig(t, t.TempDir()), "cache", "info", "--source", src)
	require.NoError(t, err)
	assert.Contains(t, out, "local, not cached")
}
