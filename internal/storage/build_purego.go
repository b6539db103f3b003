//go:build purego || !sqlite_vec

package storage

// Default build: pure Go SQLite, no C toolchain needed.
//
//	CGO_ENABLED=0 go build ./cmd/ragbench

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the database/sql driver name
	DriverName = "sqlite"

	// VectorExtensionAvailable reports whether the driver was built for the
	// sqlite-vec extension
	VectorExtensionAvailable = false

	// BuildMode is printed by `ragbench version`
	BuildMode = "purego"
)
