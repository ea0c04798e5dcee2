// Package api provides the HTTP API server for text extraction, pairwise
// comparison and corpus overlap checks.
package api

// DefaultBodyLimit caps request bodies, including uploads.
const DefaultBodyLimit = 10 << 20

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8000")
	ListenAddr string

	// CORSOrigins are the browser origins allowed to call the API
	CORSOrigins []string

	// Device is reported by the status probe
	Device string

	// BodyLimit in bytes, defaults to DefaultBodyLimit
	BodyLimit int

	// DisableMCP leaves the /mcp endpoint without tools
	DisableMCP bool
}
