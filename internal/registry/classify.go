package registry

import "strings"

// EndOfListMarker is the comment line that opens the device class section.
// It must match the whole line exactly.
const EndOfListMarker = "# List of known device classes, subclasses and protocols"

// Kind tags a classified line.
type Kind int

// Record kinds.
const (
	KindIgnorable Kind = iota // comment or blank line
	KindEndOfList             // EndOfListMarker
	KindVendor                // no indentation
	KindDevice                // one tab
	KindInterface             // two tabs
)

func (k Kind) String() string {
	switch k {
	case KindIgnorable:
		return "ignorable"
	case KindEndOfList:
		return "end-of-list"
	case KindVendor:
		return "vendor"
	case KindDevice:
		return "device"
	case KindInterface:
		return "interface"
	default:
		return "unknown"
	}
}

// Record is a classified registry line. ID and Name are set only for
// vendor, device and interface records.
type Record struct {
	Kind Kind
	ID   uint16
	Name string
}

// depthKinds maps leading tab count to record kind.
var depthKinds = [...]Kind{KindVendor, KindDevice, KindInterface}

// Classify maps one registry line, without its line terminator, to a Record.
//
// The marker is tested before the comment rule because it is itself a
// comment. Ids are exactly four hex digits followed by two spaces and a
// non-empty name, which is kept verbatim.
func Classify(line string) (Record, error) {
	if line == EndOfListMarker {
		return Record{Kind: KindEndOfList}, nil
	}

	trimmed := strings.TrimSpace(line)
	if trimmed == "" || trimmed[0] == '#' {
		return Record{Kind: KindIgnorable}, nil
	}

	depth := 0
	for depth < len(line) && line[depth] == '\t' {
		depth++
	}
	if depth >= len(depthKinds) {
		return Record{}, &LineError{Text: line, Err: ErrMalformedLine}
	}

	id, name, ok := splitEntry(line[depth:])
	if !ok {
		return Record{}, &LineError{Text: line, Err: ErrMalformedLine}
	}
	return Record{Kind: depthKinds[depth], ID: id, Name: name}, nil
}

// splitEntry parses "hhhh  name".
func splitEntry(s string) (uint16, string, bool) {
	if len(s) < 7 || s[4] != ' ' || s[5] != ' ' {
		return 0, "", false
	}
	var id uint16
	for i := 0; i < 4; i++ {
		v, ok := hexValue(s[i])
		if !ok {
			return 0, "", false
		}
		id = id<<4 | uint16(v)
	}
	return id, s[6:], true
}

func hexValue(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
