// Public domain.

// Package atomicfile writes files that appear complete or not at all.
package atomicfile

import (
	"bufio"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Write writes path through a temporary file in the same
// directory, renamed into place only if fill and all writes succeed.
func Write(path string, fill func(*bufio.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()
	w := bufio.NewWriter(tmp)
	if err = fill(w); err != nil {
		return err
	}
	if err = w.Flush(); err != nil {
		return errors.Wrap(err, path)
	}
	if err = tmp.Chmod(0o644); err != nil {
		return errors.Wrap(err, path)
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, path)
	}
	return errors.Wrap(os.Rename(tmp.Name(), path), path)
}
