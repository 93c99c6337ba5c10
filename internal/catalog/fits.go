// Public domain.

package catalog

import (
	"bufio"
	"io"
	"reflect"
	"strings"

	"github.com/astrogo/fitsio"
	"github.com/pkg/errors"

	"github.com/skymask/brickmask/internal/atomicfile"
	"github.com/skymask/brickmask/internal/fitsutil"
)

// Column is a per-object output column of a FITS catalogue.
type Column struct {
	Name   string
	Format string // TFORM, such as K for int64 or B for uint8
	Value  func(i int) interface{}
}

// WriteFITS writes a FITS file of one binary table with a row per object.
// The table holds the columns of the source file for catalogues read from
// FITS, RA and DEC otherwise, followed by cols.
func WriteFITS(w io.Writer, c *Catalog, cols []Column) error {
	var src *fitsutil.Table
	def := []fitsio.Column{{Name: "RA", Format: "D"}, {Name: "DEC", Format: "D"}}
	if c.Source != "" {
		var err error
		if src, err = fitsutil.Open(c.Source); err != nil {
			return err
		}
		defer src.Close()
		if src.NumRows() != int64(c.Len()) {
			return errors.Errorf("catalog: %s has %d rows, catalogue %d objects",
				c.Source, src.NumRows(), c.Len())
		}
		if def, err = src.Columns(); err != nil {
			return err
		}
	}
	for _, col := range cols {
		for _, d := range def {
			if strings.EqualFold(strings.TrimSpace(d.Name), col.Name) {
				return errors.Errorf("catalog: column %q already present", col.Name)
			}
		}
		def = append(def, fitsio.Column{Name: col.Name, Format: col.Format})
	}

	f, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer f.Close()
	phdu, err := fitsio.NewPrimaryHDU(nil)
	if err != nil {
		return err
	}
	if err := f.Write(phdu); err != nil {
		return err
	}
	tbl, err := fitsio.NewTable("CATALOG", def, fitsio.BINARY_TBL)
	if err != nil {
		return err
	}
	defer tbl.Close()

	width := make([]int, len(def))
	for k, d := range def {
		width[k] = fitsutil.StringWidth(d.Format)
	}
	args := make([]interface{}, len(def))
	write := func(i int, vals []interface{}) error {
		n := copy(args, vals)
		for k := 0; k < n; k++ {
			if width[k] > 0 {
				args[k] = fitsutil.StringCell(*vals[k].(*string), width[k])
			}
		}
		for k, col := range cols {
			// pointers, as fitsio only slices addressable arrays
			v := reflect.ValueOf(col.Value(i))
			p := reflect.New(v.Type())
			p.Elem().Set(v)
			args[n+k] = p.Interface()
		}
		return errors.Wrapf(tbl.Write(args...), "catalog: row %d", i)
	}
	if src != nil {
		err = src.Rows(func(row int64, vals []interface{}) error {
			return write(int(row), vals)
		})
	} else {
		for i := range c.RA {
			if err = write(i, []interface{}{&c.RA[i], &c.Dec[i]}); err != nil {
				break
			}
		}
	}
	if err != nil {
		return err
	}
	return f.Write(tbl)
}

// WriteFITSFile writes path as by WriteFITS.  The file is replaced only when
// writing succeeds.
func WriteFITSFile(path string, c *Catalog, cols []Column) error {
	return atomicfile.Write(path, func(w *bufio.Writer) error {
		return WriteFITS(w, c, cols)
	})
}
