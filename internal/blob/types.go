// Package blob is the stable import surface for artifact storage. It
// re-exports the core abstractions and constructs the backend drivers, so the
// rest of the module never imports the infra packages directly.
package blob

import "vendcore/internal/blob/core"

type (
	// Store is the interface all blob backends implement.
	Store = core.Store
	// Driver names a blob backend.
	Driver = core.Driver
	// Info describes a stored blob.
	Info = core.Info
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// SignedURLOptions configures URL pre-signing.
	SignedURLOptions = core.SignedURLOptions
)

const (
	// DriverFilesystem is the local filesystem backend.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible backend.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test backend.
	DriverMemory = core.DriverMemory
)

// ErrUnsupported reports an operation a driver does not provide.
var ErrUnsupported = core.ErrUnsupported
