// Package table holds the in-memory form of the generated USB ID table.
//
// Rows are ordered by (vendor id, device id). A vendor listed without any
// device is represented by a single row with device id 0x0000 and no device
// name, so every known vendor id stays searchable.
package table
