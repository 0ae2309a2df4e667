// Package registry reads the USB ID registry (usb.ids) into table rows.
//
// The registry is a three-level indented text file:
//
//	vvvv  Vendor name
//	<TAB>dddd  Device name
//	<TAB><TAB>iiii  Interface name
//
// Lines are first classified one at a time by Classify, then fed to a
// Walker, which tracks the current vendor and emits one table row per
// device, or a single device-less row for a vendor without devices.
// Processing stops at EndOfListMarker, which introduces the device class
// section that is not part of the vendor table.
//
// Any line that is not a comment, blank, the marker or one of the three
// record shapes is a fatal error. The parser never skips what it does not
// understand.
package registry
