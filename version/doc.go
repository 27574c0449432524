// Package version carries build metadata for the oidcauth binaries.
//
// Values are stamped at link time:
//
//	go build -ldflags "-X github.com/kbukum/oidcauth/version.Version=1.0.0"
//
// Anything left unset falls back to the VCS data the Go toolchain embeds.
// The demo server reports it on /info, and the OIDC client sends it in its
// User-Agent header.
package version
