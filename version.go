// Package scaffoldcheck validates that a project's declared tooling is
// present, consistent, and actually enforcing what it claims to.
package scaffoldcheck

// Version is the scaffoldcheck release version.
const Version = "v0.3.0"
