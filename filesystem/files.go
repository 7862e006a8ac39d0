// SPDX-License-Identifier: GPL-2.0-or-later

package filesystem

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// ReadFile reads the whole file.
func ReadFile(name string) ([]byte, error) {
	b, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read")
	}
	return b, nil
}

// WriteFile writes data to a temporary file next to name and renames it
// into place. Either the complete data ends up in name or the old file, if
// any, stays untouched.
func WriteFile(name string, data []byte, perm os.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(name), "."+filepath.Base(name)+".*")
	if err != nil {
		return errors.Wrap(err, "write")
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		return errors.Wrapf(err, "write %s", name)
	}
	if err = tmp.Chmod(perm); err != nil {
		return errors.Wrapf(err, "write %s", name)
	}
	if err = tmp.Sync(); err != nil {
		return errors.Wrapf(err, "write %s", name)
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrapf(err, "write %s", name)
	}
	if err = os.Rename(tmp.Name(), name); err != nil {
		return errors.Wrapf(err, "write %s", name)
	}
	return nil
}

func isSep(c uint8) bool {
	return c == '/' || c == '\\'
}

func Ext(path string) string {
	for i := len(path) - 1; i >= 0 && !isSep(path[i]); i-- {
		if path[i] == '.' {
			return path[i:]
		}
	}
	return ""
}

func StripExt(path string) string {
	for i := len(path) - 1; i >= 0 && !isSep(path[i]); i-- {
		if path[i] == '.' {
			return path[:i]
		}
	}
	return path
}

// ReplaceExt swaps the extension of path, adding one if it has none.
func ReplaceExt(path, ext string) string {
	return StripExt(path) + ext
}
