// Package common holds process-wide settings shared by the binaries.
package common

// Version is set at build time with -ldflags "-X github.com/ruteri/signet-registry/common.Version=..."
var Version = "dev"

// PackageName is used as the metrics namespace.
const PackageName = "signet_registry"
