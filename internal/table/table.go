package table

import (
	"errors"
	"fmt"
	"slices"
)

// ErrSelfTest is returned by SelfTest when a row does not round-trip through Lookup.
var ErrSelfTest = errors.New("table self-test failed")

// Row is one entry of the generated lookup table.
type Row struct {
	VendorID   uint16  `json:"vendor_id"`
	DeviceID   uint16  `json:"device_id"`
	VendorName string  `json:"vendor"`
	DeviceName *string `json:"device,omitempty"` // nil for a vendor listed without devices
}

// HasDevice reports whether the row carries a device name.
func (r Row) HasDevice() bool {
	return r.DeviceName != nil
}

// Summary holds the counts reported in the generated file.
type Summary struct {
	Vendors int `json:"vendors"`
	Devices int `json:"devices"`
}

// Compare orders rows by vendor id, then device id.
func Compare(a, b Row) int {
	switch {
	case a.VendorID < b.VendorID:
		return -1
	case a.VendorID > b.VendorID:
		return 1
	case a.DeviceID < b.DeviceID:
		return -1
	case a.DeviceID > b.DeviceID:
		return 1
	}
	return 0
}

// Table is an ordered set of rows searchable by (vendor, device).
type Table struct {
	rows []Row
}

// New wraps rows without copying or reordering them.
func New(rows []Row) *Table {
	return &Table{rows: rows}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Rows returns the underlying rows in table order.
func (t *Table) Rows() []Row {
	return t.rows
}

// IsSorted scans adjacent pairs under Compare.
func (t *Table) IsSorted() bool {
	for i := 1; i < len(t.rows); i++ {
		if Compare(t.rows[i-1], t.rows[i]) > 0 {
			return false
		}
	}
	return true
}

// Sort reorders rows under Compare, keeping source order for equal keys.
func (t *Table) Sort() {
	slices.SortStableFunc(t.rows, Compare)
}

// Lookup binary-searches for an exact (vendor, device) match.
// The table must be sorted.
func (t *Table) Lookup(vendorID, deviceID uint16) (Row, bool) {
	key := Row{VendorID: vendorID, DeviceID: deviceID}
	i, found := slices.BinarySearchFunc(t.rows, key, Compare)
	if !found {
		return Row{}, false
	}
	return t.rows[i], true
}

// Vendor returns all rows of the given vendor in table order.
// The table must be sorted.
func (t *Table) Vendor(vendorID uint16) []Row {
	i, _ := slices.BinarySearchFunc(t.rows, Row{VendorID: vendorID}, Compare)
	j := i
	for j < len(t.rows) && t.rows[j].VendorID == vendorID {
		j++
	}
	return t.rows[i:j]
}

// SelfTest checks sortedness and that every row finds itself with all
// four fields intact.
func (t *Table) SelfTest() error {
	if !t.IsSorted() {
		return fmt.Errorf("%w: rows are not sorted", ErrSelfTest)
	}
	for i, want := range t.rows {
		got, ok := t.Lookup(want.VendorID, want.DeviceID)
		if !ok {
			return fmt.Errorf("%w: row %d (%04x:%04x) not found", ErrSelfTest, i, want.VendorID, want.DeviceID)
		}
		if !Equal(got, want) {
			return fmt.Errorf("%w: row %d (%04x:%04x) resolved to a different entry", ErrSelfTest, i, want.VendorID, want.DeviceID)
		}
	}
	return nil
}

// Equal compares all four fields. An absent device name never equals a
// present one, even an empty one.
func Equal(a, b Row) bool {
	if a.VendorID != b.VendorID || a.DeviceID != b.DeviceID || a.VendorName != b.VendorName {
		return false
	}
	if a.DeviceName == nil || b.DeviceName == nil {
		return a.DeviceName == nil && b.DeviceName == nil
	}
	return *a.DeviceName == *b.DeviceName
}
