// Package version reports the build version, set at link time with
// -ldflags "-X pizzapos/pkg/version.version=v1.2.3".
package version

var version = "dev"

// Version returns the linked version string.
func Version() string {
	return version
}
