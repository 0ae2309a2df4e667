package db

import (
	"database/sql"
	"fmt"

	"github.com/sigreer/usbidgen/internal/table"
)

// LookupDevice returns the row for (vendor, device), or nil if not found
func (d *DB) LookupDevice(vendorID, deviceID uint16) (*table.Row, error) {
	row := d.conn.QueryRow(`
		SELECT vendor_id, device_id, vendor_name, device_name
		FROM usb_ids
		WHERE vendor_id = ? AND device_id = ?
		ORDER BY seq
		LIMIT 1
	`, int(vendorID), int(deviceID))

	r, err := scanRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up %04x:%04x: %w", vendorID, deviceID, err)
	}
	return r, nil
}

// LookupVendor returns all rows of a vendor in table order
func (d *DB) LookupVendor(vendorID uint16) ([]table.Row, error) {
	rows, err := d.conn.Query(`
		SELECT vendor_id, device_id, vendor_name, device_name
		FROM usb_ids
		WHERE vendor_id = ?
		ORDER BY seq
	`, int(vendorID))
	if err != nil {
		return nil, fmt.Errorf("failed to query vendor %04x: %w", vendorID, err)
	}
	defer rows.Close()

	var out []table.Row
	for rows.Next() {
		r, err := scanRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// Rows returns the whole stored table in table order
func (d *DB) Rows() ([]table.Row, error) {
	rows, err := d.conn.Query(`
		SELECT vendor_id, device_id, vendor_name, device_name
		FROM usb_ids
		ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query table: %w", err)
	}
	defer rows.Close()

	var out []table.Row
	for rows.Next() {
		r, err := scanRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// RowCount returns the number of stored rows
func (d *DB) RowCount() (int, error) {
	var n int
	err := d.conn.QueryRow("SELECT COUNT(*) FROM usb_ids").Scan(&n)
	return n, err
}

func scanRow(scan func(dest ...any) error) (*table.Row, error) {
	var vendorID, deviceID int64
	var r table.Row
	var device sql.NullString
	if err := scan(&vendorID, &deviceID, &r.VendorName, &device); err != nil {
		return nil, err
	}
	r.VendorID = uint16(vendorID)
	r.DeviceID = uint16(deviceID)
	if device.Valid {
		name := device.String
		r.DeviceName = &name
	}
	return &r, nil
}
