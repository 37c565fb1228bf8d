// Package sourcequery provides the version information for sourcequery.
package sourcequery

// Version is the current version of sourcequery.
const Version = "0.1.0"

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}
