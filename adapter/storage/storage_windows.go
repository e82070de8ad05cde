//go:build windows

package storage

import (
	"os"
	"path/filepath"
)

func init() {
	// the volume root cannot be created
	osSpecificEnsureDir = func(o osOps, dir string, mode os.FileMode) error {
		if dir == filepath.VolumeName(dir)+string(os.PathSeparator) {
			return nil
		}
		return o.MkdirAll(dir, mode)
	}

	// directories cannot be synced on windows
	osSpecificSync = func(f *os.File, isDir bool) error {
		if isDir {
			return nil
		}
		return f.Sync()
	}
}
