// Package buildinfo reports the version of the running binary.
//
// Release builds inject values with ldflags:
//
//	go build -ldflags "-X github.com/yndnr/towerlink-go/internal/infra/buildinfo.Version=v0.3.0"
//
// Development builds fall back to the VCS stamp recorded by the Go
// toolchain.
package buildinfo
