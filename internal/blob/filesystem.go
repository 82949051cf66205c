package blob

import (
	fsstore "vendcore/internal/infra/blob/fs"
)

// NewFilesystem returns a filesystem blob store rooted at path, creating it
// if needed. An empty root selects the default directory.
func NewFilesystem(root string) (Store, error) { return fsstore.New(root) }
