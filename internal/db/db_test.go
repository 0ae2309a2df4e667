package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigreer/usbidgen/internal/table"
)

func str(s string) *string { return &s }

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := New(filepath.Join(t.TempDir(), "state", "usbids.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func testRows() []table.Row {
	return []table.Row{
		{VendorID: 0x0123, DeviceID: 0x0001, VendorName: "VendorA", DeviceName: str("DeviceOne")},
		{VendorID: 0x0123, DeviceID: 0x0002, VendorName: "VendorA", DeviceName: str("")},
		{VendorID: 0x0456, DeviceID: 0x0000, VendorName: "VendorB"},
		{VendorID: 0xffff, DeviceID: 0xffff, VendorName: `Quote "and" \slash`, DeviceName: str("max")},
	}
}

func TestNewRunsMigrationsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usbids.db")
	d, err := New(path)
	require.NoError(t, err)
	assert.Equal(t, path, d.Path())
	require.NoError(t, d.Close())

	d, err = New(path)
	require.NoError(t, err)
	defer d.Close()

	var versions int
	require.NoError(t, d.conn.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&versions))
	assert.Equal(t, 1, versions)

	_, err = New("")
	assert.Error(t, err)
}

func TestReplaceTableAndLookup(t *testing.T) {
	d := openTestDB(t)

	gen := &Generation{
		Source:       "http://www.linux-usb.org/usb.ids",
		SourceSHA256: "abc123",
		Vendors:      3,
		Devices:      3,
		MarkerSeen:   true,
		DataPath:     "usbids.c",
		HeaderPath:   "usbids.h",
	}
	require.NoError(t, d.ReplaceTable(gen, testRows()))
	assert.NotEmpty(t, gen.ID)
	assert.Equal(t, 4, gen.Rows)

	n, err := d.RowCount()
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	row, err := d.LookupDevice(0x0123, 0x0001)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "VendorA", row.VendorName)
	assert.Equal(t, "DeviceOne", *row.DeviceName)

	row, err = d.LookupDevice(0x0123, 0x0002)
	require.NoError(t, err)
	require.NotNil(t, row.DeviceName)
	assert.Equal(t, "", *row.DeviceName)

	row, err = d.LookupDevice(0x0456, 0x0000)
	require.NoError(t, err)
	assert.Nil(t, row.DeviceName)

	row, err = d.LookupDevice(0xffff, 0xffff)
	require.NoError(t, err)
	assert.Equal(t, `Quote "and" \slash`, row.VendorName)

	row, err = d.LookupDevice(0x0456, 0x0001)
	require.NoError(t, err)
	assert.Nil(t, row)

	vendor, err := d.LookupVendor(0x0123)
	require.NoError(t, err)
	assert.Len(t, vendor, 2)

	all, err := d.Rows()
	require.NoError(t, err)
	assert.Equal(t, testRows(), all)
}

func TestReplaceTableDiscardsPrevious(t *testing.T) {
	d := openTestDB(t)

	require.NoError(t, d.ReplaceTable(&Generation{Source: "first", GeneratedAt: time.Now().Add(-time.Hour)}, testRows()))
	require.NoError(t, d.ReplaceTable(&Generation{Source: "second"}, testRows()[2:3]))

	n, err := d.RowCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	row, err := d.LookupDevice(0x0123, 0x0001)
	require.NoError(t, err)
	assert.Nil(t, row)

	gens, err := d.RecentGenerations(10)
	require.NoError(t, err)
	require.Len(t, gens, 2)
	assert.Equal(t, "second", gens[0].Source)
	assert.Equal(t, 1, gens[0].Rows)
	assert.Equal(t, "first", gens[1].Source)
	assert.Equal(t, 4, gens[1].Rows)

	latest, err := d.LatestGeneration()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, gens[0].ID, latest.ID)
}

func TestGenerationFieldsRoundTrip(t *testing.T) {
	d := openTestDB(t)

	at := time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC)
	gen := &Generation{
		ID:           "fixed-id",
		Source:       "/usr/share/hwdata/usb.ids",
		SourceSHA256: "deadbeef",
		Vendors:      1,
		Devices:      0,
		MarkerSeen:   false,
		DataPath:     "out/usbids.c",
		HeaderPath:   "out/usbids.h",
		GeneratedAt:  at,
	}
	require.NoError(t, d.ReplaceTable(gen, testRows()[2:3]))

	got, err := d.LatestGeneration()
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", got.ID)
	assert.Equal(t, "deadbeef", got.SourceSHA256)
	assert.False(t, got.MarkerSeen)
	assert.Equal(t, "out/usbids.h", got.HeaderPath)
	assert.True(t, at.Equal(got.GeneratedAt))
}

func TestLatestGenerationEmpty(t *testing.T) {
	d := openTestDB(t)
	gen, err := d.LatestGeneration()
	require.NoError(t, err)
	assert.Nil(t, gen)
}
