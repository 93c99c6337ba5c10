// Public domain.

package bmprog

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/skymask/brickmask/internal/catalog"
)

// catalogFlags select how an input catalogue is read.
type catalogFlags struct {
	format  string
	cols    catalog.Columns
	comment string
	fits    catalog.FITSColumns
}

func (c *catalogFlags) register(flags *pflag.FlagSet, withMask bool) {
	flags.StringVar(&c.format, "format", "auto", "Input format: ascii, fits, or auto to choose by file name.")
	flags.IntVar(&c.cols.RA, "ra-col", 1, "ASCII column of right ascension, counting from 1.")
	flags.IntVar(&c.cols.Dec, "dec-col", 2, "ASCII column of declination, counting from 1.")
	flags.StringVar(&c.comment, "comment", "#", "ASCII comment character, empty for none.")
	flags.StringVar(&c.fits.RA, "ra-name", "RA", "FITS column of right ascension.")
	flags.StringVar(&c.fits.Dec, "dec-name", "DEC", "FITS column of declination.")
	if withMask {
		flags.IntVar(&c.cols.Mask, "mask-col", 0, "ASCII column of a prior mask, 0 for none.")
		flags.StringVar(&c.fits.Mask, "mask-name", "", "FITS column of a prior mask, empty for none.")
	}
}

// isFITS reports whether path is read as FITS.
func (c *catalogFlags) isFITS(path string) (bool, error) {
	switch strings.ToLower(c.format) {
	case "ascii":
		return false, nil
	case "fits":
		return true, nil
	case "auto", "":
		p := strings.TrimSuffix(strings.ToLower(path), ".gz")
		return strings.HasSuffix(p, ".fits") || strings.HasSuffix(p, ".fit") ||
			strings.HasSuffix(p, ".fts"), nil
	}
	return false, fmt.Errorf("unknown catalogue format %q", c.format)
}

func (c *catalogFlags) read(path string) (*catalog.Catalog, error) {
	fits, err := c.isFITS(path)
	if err != nil {
		return nil, err
	}
	if fits {
		return catalog.ReadFITS(path, c.fits)
	}
	cols := c.cols
	switch len(c.comment) {
	case 0:
	case 1:
		cols.Comment = c.comment[0]
	default:
		return nil, fmt.Errorf("comment must be a single character, got %q", c.comment)
	}
	return catalog.ReadASCIIFile(path, cols)
}
