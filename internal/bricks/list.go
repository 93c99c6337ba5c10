// Public domain.

// Package bricks handles the brick layout of the DESI legacy imaging
// surveys: listing maskbit files for the bricks of a data release, and
// finding the brick containing a sky position.
package bricks

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"

	"github.com/skymask/brickmask/internal/atomicfile"
	"github.com/skymask/brickmask/internal/fitsutil"
)

// DefaultLegacyDir is the legacy survey root at NERSC.
const DefaultLegacyDir = "/global/project/projectdirs/cosmo/data/legacysurvey"

// ListConfig controls List.
type ListConfig struct {
	Release    string   // data release, such as "dr8"
	Caps       []string // hemispheres, processed in order
	LegacyDir  string
	OutputDir  string
	NameColumn string // brick name column of the brick catalogue
}

// DefaultListConfig lists DR8 north and south.
func DefaultListConfig() ListConfig {
	return ListConfig{
		Release:    "dr8",
		Caps:       []string{"north", "south"},
		LegacyDir:  DefaultLegacyDir,
		OutputDir:  ".",
		NameColumn: "brickname",
	}
}

// MissingInputError reports a brick catalogue that cannot be read.
type MissingInputError struct {
	Path string
	Err  error
}

func (e *MissingInputError) Error() string {
	return "cannot access brick list: " + e.Path
}

func (e *MissingInputError) Unwrap() error { return e.Err }

// BrickCatalogPath returns the path of the survey-bricks catalogue for a
// release and cap.
func BrickCatalogPath(legacyDir, release, cap string) string {
	return filepath.Join(legacyDir, release, cap,
		fmt.Sprintf("survey-bricks-%s-%s.fits.gz", release, cap))
}

// MaskbitPath returns the path of the maskbits file of a brick.  Bricks are
// sharded by the first three characters of their name.
func MaskbitPath(legacyDir, release, cap, brick string) string {
	shard := brick
	if len(shard) > 3 {
		shard = shard[:3]
	}
	return fmt.Sprintf("%s/%s/%s/coadd/%s/%s/legacysurvey-%s-maskbits.fits.fz",
		legacyDir, release, cap, shard, brick, brick)
}

// OutputFileName returns the name of the list file for a release and cap.
func OutputFileName(release, cap string) string {
	return fmt.Sprintf("legacysurvey_maskbits_%s_%s.txt", release, cap)
}

// UniqueNames sorts names and removes duplicates, in place.
func UniqueNames(names []string) []string {
	slices.Sort(names)
	return slices.Compact(names)
}

// ReadBrickNames reads the brick name column of a brick catalogue.
func ReadBrickNames(path, column string) ([]string, error) {
	t, err := fitsutil.Open(path)
	if err != nil {
		return nil, err
	}
	defer t.Close()
	names, err := t.Strings(column)
	if err != nil {
		return nil, err
	}
	for i, n := range names {
		names[i] = strings.TrimSpace(n)
	}
	return names, nil
}

// List writes, for each cap in order, the maskbit file paths of all distinct
// bricks in the cap's brick catalogue.  It returns the paths of the files
// written.
//
// A brick catalogue that is not a readable regular file stops the run with
// a *MissingInputError before anything is written for that cap.  Lists
// already written for earlier caps are kept.
func List(cfg ListConfig, logger zerolog.Logger) ([]string, error) {
	var written []string
	for _, cap := range cfg.Caps {
		in := BrickCatalogPath(cfg.LegacyDir, cfg.Release, cap)
		if err := checkInput(in); err != nil {
			return written, &MissingInputError{Path: in, Err: err}
		}
		names, err := ReadBrickNames(in, cfg.NameColumn)
		if err != nil {
			return written, err
		}
		n := len(names)
		names = UniqueNames(names)
		logger.Debug().Str("cap", cap).Int("rows", n).Int("bricks", len(names)).Msg("brick catalogue read")

		out := filepath.Join(cfg.OutputDir, OutputFileName(cfg.Release, cap))
		err = atomicfile.Write(out, func(w *bufio.Writer) error {
			for _, b := range names {
				w.WriteString(MaskbitPath(cfg.LegacyDir, cfg.Release, cap, b))
				w.WriteByte('\n')
			}
			return nil
		})
		if err != nil {
			return written, err
		}
		logger.Info().Str("cap", cap).Int("bricks", len(names)).Str("file", out).Msg("maskbit list written")
		written = append(written, out)
	}
	return written, nil
}

// checkInput returns nil if path is a regular file that can be opened.
func checkInput(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return err
	}
	if !fi.Mode().IsRegular() {
		return errors.Errorf("%s: not a regular file", path)
	}
	return nil
}
