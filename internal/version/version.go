package version

// Version is the current version of usbidgen.
// Use semantic versioning: MAJOR.MINOR.PATCH
const Version = "1.0.0"

// Name is stamped into generated files.
const Name = "usbidgen"
