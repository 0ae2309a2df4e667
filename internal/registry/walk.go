package registry

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/sigreer/usbidgen/internal/table"
)

// maxLineSize bounds a single registry line.
const maxLineSize = 1024 * 1024

// Result is the outcome of a complete walk.
type Result struct {
	Rows       []table.Row
	Summary    table.Summary
	MarkerSeen bool // false when input ended before EndOfListMarker
	Lines      int  // lines consumed, including the marker
}

// Walker turns classified records into table rows in a single pass.
// A vendor's device-less row is emitted only once the next vendor, the
// marker or the end of input shows that no device followed it.
type Walker struct {
	current          *Record
	pendingHasDevice bool
	rows             []table.Row
	summary          table.Summary
	markerSeen       bool
	done             bool
}

// NewWalker returns a Walker with no open vendor.
func NewWalker() *Walker {
	return &Walker{}
}

// Step consumes one record. It returns done once the end-of-list marker
// has been seen; records passed after that are ignored.
func (w *Walker) Step(rec Record) (bool, error) {
	if w.done {
		return true, nil
	}

	switch rec.Kind {
	case KindIgnorable, KindInterface:
	case KindEndOfList:
		w.markerSeen = true
		w.done = true
	case KindVendor:
		w.flushVendor()
		v := rec
		w.current = &v
		w.pendingHasDevice = false
		w.summary.Vendors++
	case KindDevice:
		if w.current == nil {
			return false, ErrOrphanDevice
		}
		name := rec.Name
		w.rows = append(w.rows, table.Row{
			VendorID:   w.current.ID,
			DeviceID:   rec.ID,
			VendorName: w.current.Name,
			DeviceName: &name,
		})
		w.pendingHasDevice = true
		w.summary.Devices++
	default:
		return false, fmt.Errorf("unexpected record kind %v", rec.Kind)
	}
	return w.done, nil
}

// Finish flushes the last vendor and returns the accumulated result.
func (w *Walker) Finish() *Result {
	w.flushVendor()
	w.current = nil
	return &Result{
		Rows:       w.rows,
		Summary:    w.summary,
		MarkerSeen: w.markerSeen,
	}
}

// flushVendor emits the device-less row of the open vendor if it never
// received a device.
func (w *Walker) flushVendor() {
	if w.current == nil || w.pendingHasDevice {
		return
	}
	w.rows = append(w.rows, table.Row{
		VendorID:   w.current.ID,
		DeviceID:   0x0000,
		VendorName: w.current.Name,
	})
	w.pendingHasDevice = true
}

// Walk reads the registry line by line up to the end-of-list marker or
// the end of input. Any malformed line or orphan device aborts the walk.
func Walk(r io.Reader) (*Result, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	w := NewWalker()
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		rec, err := Classify(line)
		if err != nil {
			var lerr *LineError
			if errors.As(err, &lerr) {
				lerr.Line = lineNo
				return nil, lerr
			}
			return nil, err
		}

		done, err := w.Step(rec)
		if err != nil {
			return nil, &LineError{Line: lineNo, Text: line, Err: err}
		}
		if done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}

	res := w.Finish()
	res.Lines = lineNo
	return res, nil
}
