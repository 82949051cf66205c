package blob

import (
	"context"
	"fmt"
	"os"
)

// Open selects a backend from the environment:
//
//	VENDCORE_BLOB_DRIVER: fs|s3|memory (default fs)
//	VENDCORE_BLOB_FS_ROOT: directory root when driver=fs (default ./blobdata)
//
// S3-specific variables are documented in internal/infra/blob/s3.
func Open(ctx context.Context) (Store, error) {
	driver := Driver(os.Getenv("VENDCORE_BLOB_DRIVER"))
	if driver == "" {
		driver = DriverFilesystem
	}
	return OpenDriver(ctx, driver, os.Getenv("VENDCORE_BLOB_FS_ROOT"))
}

// OpenDriver constructs the named backend. fsRoot only applies to the
// filesystem driver.
func OpenDriver(ctx context.Context, driver Driver, fsRoot string) (Store, error) {
	switch driver {
	case DriverFilesystem:
		return NewFilesystem(fsRoot)
	case DriverS3:
		return OpenS3FromEnv(ctx)
	case DriverMemory:
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown blob driver %s", driver)
}
