// Package utils provides bespoke, one off utils that don't make sense to be
// their own package
package utils

// Build metadata, set with -ldflags at release time.
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)

// UserAgent is sent by outbound HTTP clients (embedding providers).
func UserAgent() string {
	return "overlap/" + Version
}
