//go:build sqlite_vec

package storage

// Compiled with CGO and the sqlite_vec tag:
//
//	CGO_ENABLED=1 go build -tags "sqlite_vec,fts5" ./cmd/ragbench
//
// The mattn driver needs the fts5 tag for the chunk text index used by
// hybrid search. Vector scoring still runs in Go; the tag only switches
// the driver.

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the database/sql driver name
	DriverName = "sqlite3"

	// VectorExtensionAvailable reports whether the driver was built for the
	// sqlite-vec extension
	VectorExtensionAvailable = true

	// BuildMode is printed by `ragbench version`
	BuildMode = "cgo"
)
