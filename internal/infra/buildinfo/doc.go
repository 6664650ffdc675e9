// Package buildinfo exposes build information for tssd.
//
// Version and BuildTime are injected via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/tssd/internal/infra/buildinfo.Version=v1.0.0"
//
// Commit and GoVersion fall back to the module build info recorded by the
// Go toolchain when not set.
package buildinfo
