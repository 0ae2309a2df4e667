package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sigreer/usbidgen/internal/table"
)

// ReplaceTable stores rows as the current table and records gen, in one
// transaction. The previous table is discarded; there are no partial updates.
func (d *DB) ReplaceTable(gen *Generation, rows []table.Row) error {
	if gen.ID == "" {
		gen.ID = uuid.NewString()
	}
	if gen.GeneratedAt.IsZero() {
		gen.GeneratedAt = time.Now()
	}
	gen.Rows = len(rows)

	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM usb_ids"); err != nil {
		return fmt.Errorf("failed to clear table: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO usb_ids (seq, vendor_id, device_id, vendor_name, device_name)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range rows {
		var device sql.NullString
		if r.DeviceName != nil {
			device = sql.NullString{String: *r.DeviceName, Valid: true}
		}
		if _, err := stmt.Exec(i, int(r.VendorID), int(r.DeviceID), r.VendorName, device); err != nil {
			return fmt.Errorf("failed to insert row %d: %w", i, err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO generations (
			id, source, source_sha256, vendor_count, device_count, row_count,
			marker_seen, data_path, header_path, generated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		gen.ID, gen.Source, nullString(gen.SourceSHA256), gen.Vendors, gen.Devices, gen.Rows,
		gen.MarkerSeen, nullString(gen.DataPath), nullString(gen.HeaderPath), gen.GeneratedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record generation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit table: %w", err)
	}
	return nil
}

// RecentGenerations returns the latest generation runs, newest first
func (d *DB) RecentGenerations(limit int) ([]*Generation, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := d.conn.Query(`
		SELECT id, source, source_sha256, vendor_count, device_count, row_count,
			marker_seen, data_path, header_path, generated_at
		FROM generations
		ORDER BY generated_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query generations: %w", err)
	}
	defer rows.Close()

	var gens []*Generation
	for rows.Next() {
		var g Generation
		var sha, dataPath, headerPath sql.NullString
		err := rows.Scan(&g.ID, &g.Source, &sha, &g.Vendors, &g.Devices, &g.Rows,
			&g.MarkerSeen, &dataPath, &headerPath, &g.GeneratedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan generation: %w", err)
		}
		g.SourceSHA256 = sha.String
		g.DataPath = dataPath.String
		g.HeaderPath = headerPath.String
		gens = append(gens, &g)
	}
	return gens, rows.Err()
}

// LatestGeneration returns the most recent run, or nil if there is none
func (d *DB) LatestGeneration() (*Generation, error) {
	gens, err := d.RecentGenerations(1)
	if err != nil || len(gens) == 0 {
		return nil, err
	}
	return gens[0], nil
}
