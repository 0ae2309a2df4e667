// Package emit renders a USB ID table as a C source file and its header.
package emit

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/sigreer/usbidgen/internal/table"
)

// DateLayout matches the C library's "%c %z".
const DateLayout = "Mon Jan _2 15:04:05 2006 -0700"

// ErrEmptyTable is returned when there are no rows; C has no empty array literal.
var ErrEmptyTable = errors.New("table has no rows")

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("emit").Funcs(template.FuncMap{
	"hex":        func(v uint16) string { return fmt.Sprintf("%04x", v) },
	"escape":     Escape,
	"deviceName": deviceName,
}).ParseFS(templateFS, "templates/*.tmpl"))

// Naming holds the C identifiers and types used in the generated code.
type Naming struct {
	Struct       string `yaml:"struct"`
	VendorID     string `yaml:"vendor_id"`
	DeviceID     string `yaml:"device_id"`
	VendorName   string `yaml:"vendor_name"`
	DeviceName   string `yaml:"device_name"`
	NameType     string `yaml:"name_type"`
	IDType       string `yaml:"id_type"`
	Array        string `yaml:"array"`
	IncludeGuard string `yaml:"include_guard"`
}

// DefaultNaming returns the identifiers used when none are configured.
func DefaultNaming() Naming {
	return Naming{
		Struct:       "UsbDevStruct",
		VendorID:     "VendorID",
		DeviceID:     "DeviceID",
		VendorName:   "Vendor",
		DeviceName:   "Device",
		NameType:     "char*",
		IDType:       "unsigned short",
		Array:        "UsbList",
		IncludeGuard: "USB_IDS_H",
	}
}

// Options control rendering.
type Options struct {
	Naming      Naming
	Generator   string    // named in the header comment
	GeneratedAt time.Time // stamped in the header comment
	HeaderFile  string    // #include'd by the data artifact
}

// Artifacts are the rendered files.
type Artifacts struct {
	Data      []byte // C source with the table and its accessors
	Interface []byte // C header with declarations only
}

type templateData struct {
	Generator  string
	Date       string
	HeaderFile string
	N          Naming
	Rows       []table.Row
	Summary    table.Summary
}

// Render produces both artifacts. Rows are written in the given order.
func Render(rows []table.Row, sum table.Summary, opts Options) (*Artifacts, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyTable
	}
	if opts.HeaderFile == "" {
		opts.HeaderFile = "usbids.h"
	}
	data := templateData{
		Generator:  opts.Generator,
		Date:       opts.GeneratedAt.Format(DateLayout),
		HeaderFile: opts.HeaderFile,
		N:          opts.Naming,
		Rows:       rows,
		Summary:    sum,
	}

	var src, hdr bytes.Buffer
	if err := templates.ExecuteTemplate(&src, "data.c.tmpl", data); err != nil {
		return nil, fmt.Errorf("failed to render data artifact: %w", err)
	}
	if err := templates.ExecuteTemplate(&hdr, "interface.h.tmpl", data); err != nil {
		return nil, fmt.Errorf("failed to render interface artifact: %w", err)
	}
	return &Artifacts{Data: src.Bytes(), Interface: hdr.Bytes()}, nil
}

// Escape makes s safe inside a C string literal. Backslashes go first so
// the ones added for quotes are not doubled.
func Escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

func deviceName(r table.Row) string {
	if r.DeviceName == nil {
		return "NULL"
	}
	return `"` + Escape(*r.DeviceName) + `"`
}
