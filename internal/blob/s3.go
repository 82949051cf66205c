package blob

import (
	"context"

	infraS3 "vendcore/internal/infra/blob/s3"
)

// S3Config aliases the infra driver's configuration so callers never import
// the infra package directly.
type S3Config = infraS3.Config

// NewS3 constructs an S3-backed Store from explicit configuration.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	return infraS3.New(ctx, cfg)
}

// OpenS3FromEnv constructs an S3-backed Store from the process environment.
func OpenS3FromEnv(ctx context.Context) (Store, error) {
	return infraS3.OpenFromEnv(ctx)
}

// NewMockS3ForTests exposes the fake-transport S3 store to other packages'
// tests.
func NewMockS3ForTests() Store { return infraS3.NewMockForTests() }
