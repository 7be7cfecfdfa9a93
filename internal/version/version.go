package version

// Version is the current version of the Nocturne binaries.
// This value can be overridden at build time using:
//
//	go build -ldflags="-X 'github.com/deviprasad-dev/Nocturne-night-social-patform/internal/version.Version=v1.0.0'"
var Version = "dev"
