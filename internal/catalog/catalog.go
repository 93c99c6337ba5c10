// Public domain.

// Package catalog reads object coordinates, and optionally a prior mask
// column, from ASCII or FITS catalogues, and writes per-object results.
package catalog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/skymask/brickmask/internal/atomicfile"
	"github.com/skymask/brickmask/internal/fitsutil"
)

// Catalog holds parallel per-object columns.
type Catalog struct {
	RA, Dec []float64 // degrees
	Mask    []int16   // nil if the catalogue has no mask column
	Lines   []string  // source lines of ASCII catalogues
	Source  string    // FITS file read, for copying its columns
}

// Len returns the number of objects.
func (c *Catalog) Len() int { return len(c.RA) }

// ColumnError reports a missing or unparsable column.
type ColumnError struct {
	Line   int    // line of an ASCII catalogue, 0 otherwise
	Column string // column number or name
	Err    error
}

func (e *ColumnError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("catalog: line %d: column %s: %v", e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("catalog: column %s: %v", e.Column, e.Err)
}

func (e *ColumnError) Unwrap() error { return e.Err }

var errMissing = errors.New("missing")

// Columns locates values in an ASCII catalogue.  Column numbers start at 1;
// a zero Mask means no mask column.
type Columns struct {
	RA, Dec, Mask int
	Comment       byte // lines starting with this byte are skipped
}

// DefaultColumns reads ra and dec from the first two columns.
func DefaultColumns() Columns {
	return Columns{RA: 1, Dec: 2, Comment: '#'}
}

// ReadASCIIFile reads an ASCII catalogue file.
func ReadASCIIFile(path string, cols Columns) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	c, err := ReadASCII(f, cols)
	return c, errors.Wrap(err, path)
}

// ReadASCII reads a white space separated catalogue.  Empty lines and lines
// starting with the comment byte are skipped.
func ReadASCII(r io.Reader, cols Columns) (*Catalog, error) {
	if cols.RA < 1 || cols.Dec < 1 || cols.Mask < 0 {
		return nil, errors.Errorf("catalog: invalid columns ra %d, dec %d, mask %d",
			cols.RA, cols.Dec, cols.Mask)
	}
	c := &Catalog{}
	if cols.Mask > 0 {
		c.Mask = []int16{}
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for lineNum := 1; sc.Scan(); lineNum++ {
		line := strings.TrimRight(sc.Text(), " \t\r")
		t := strings.TrimLeft(line, " \t")
		if t == "" || cols.Comment != 0 && t[0] == cols.Comment {
			continue
		}
		f := strings.Fields(t)
		ra, err := floatField(f, cols.RA, lineNum)
		if err != nil {
			return nil, err
		}
		dec, err := floatField(f, cols.Dec, lineNum)
		if err != nil {
			return nil, err
		}
		if cols.Mask > 0 {
			m, err := maskField(f, cols.Mask, lineNum)
			if err != nil {
				return nil, err
			}
			c.Mask = append(c.Mask, m)
		}
		c.RA = append(c.RA, ra)
		c.Dec = append(c.Dec, dec)
		c.Lines = append(c.Lines, line)
	}
	return c, errors.Wrap(sc.Err(), "catalog")
}

func floatField(f []string, col, line int) (float64, error) {
	if col > len(f) {
		return 0, &ColumnError{Line: line, Column: strconv.Itoa(col), Err: errMissing}
	}
	x, err := strconv.ParseFloat(f[col-1], 64)
	if err != nil {
		return 0, &ColumnError{Line: line, Column: strconv.Itoa(col), Err: err}
	}
	return x, nil
}

func maskField(f []string, col, line int) (int16, error) {
	if col > len(f) {
		return 0, &ColumnError{Line: line, Column: strconv.Itoa(col), Err: errMissing}
	}
	x, err := strconv.ParseInt(f[col-1], 10, 16)
	if err != nil {
		return 0, &ColumnError{Line: line, Column: strconv.Itoa(col), Err: err}
	}
	return int16(x), nil
}

// FITSColumns names the columns of a FITS catalogue.  An empty Mask means
// no mask column.
type FITSColumns struct {
	RA, Dec, Mask string
}

// DefaultFITSColumns reads columns RA and DEC.
func DefaultFITSColumns() FITSColumns {
	return FITSColumns{RA: "RA", Dec: "DEC"}
}

// ReadFITS reads the first binary table of a FITS catalogue, gzip
// compressed or not.  Column names are matched without regard to case.
func ReadFITS(path string, cols FITSColumns) (*Catalog, error) {
	t, err := fitsutil.Open(path)
	if err != nil {
		return nil, err
	}
	defer t.Close()
	c := &Catalog{Source: path}
	if c.RA, err = t.Floats(cols.RA); err != nil {
		return nil, fitsColumnError(cols.RA, err)
	}
	if c.Dec, err = t.Floats(cols.Dec); err != nil {
		return nil, fitsColumnError(cols.Dec, err)
	}
	if cols.Mask != "" {
		if c.Mask, err = t.Int16s(cols.Mask); err != nil {
			return nil, fitsColumnError(cols.Mask, err)
		}
	}
	return c, nil
}

func fitsColumnError(name string, err error) error {
	if errors.Is(err, fitsutil.ErrNoColumn) || errors.Is(err, fitsutil.ErrType) {
		return &ColumnError{Column: name, Err: err}
	}
	return err
}

// WriteASCII writes one line per object: the source line, or ra and dec
// for catalogues read from FITS, followed by a space and value(i).
func WriteASCII(w io.Writer, c *Catalog, value func(i int) string) error {
	bw := bufio.NewWriter(w)
	for i := range c.RA {
		if c.Lines != nil {
			bw.WriteString(c.Lines[i])
		} else {
			bw.WriteString(formatFloat(c.RA[i]))
			bw.WriteByte(' ')
			bw.WriteString(formatFloat(c.Dec[i]))
		}
		bw.WriteByte(' ')
		bw.WriteString(value(i))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// WriteASCIIFile writes path as by WriteASCII.  The file is replaced only
// when writing succeeds.
func WriteASCIIFile(path string, c *Catalog, value func(i int) string) error {
	return atomicfile.Write(path, func(w *bufio.Writer) error {
		return WriteASCII(w, c, value)
	})
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}
