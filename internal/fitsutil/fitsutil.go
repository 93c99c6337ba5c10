// Public domain.

// Package fitsutil reads columns of FITS binary tables, optionally gzip
// compressed.
package fitsutil

import (
	"bytes"
	"io"
	"math"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/astrogo/fitsio"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

var (
	ErrNoTable  = errors.New("fitsutil: no binary table")
	ErrNoColumn = errors.New("fitsutil: no such column")
	ErrType     = errors.New("fitsutil: unsupported column type")
)

// Table is the first binary table of a FITS file.  The file content is held
// in memory.
type Table struct {
	Name string // file name, for messages
	f    *fitsio.File
	t    *fitsio.Table
}

// Open reads the FITS file at path.  Gzip compressed files are recognized by
// content, not by name.
func Open(path string) (*Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return OpenBytes(b, path)
}

// OpenReader reads a FITS file from r.
func OpenReader(r io.Reader, name string) (*Table, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, name)
	}
	return OpenBytes(b, name)
}

// OpenBytes decodes the FITS file content b.
func OpenBytes(b []byte, name string) (*Table, error) {
	if len(b) >= 2 && b[0] == 0x1f && b[1] == 0x8b {
		zr, err := gzip.NewReader(bytes.NewReader(b))
		if err != nil {
			return nil, errors.Wrap(err, name)
		}
		defer zr.Close()
		if b, err = io.ReadAll(zr); err != nil {
			return nil, errors.Wrap(err, name)
		}
	}
	f, err := fitsio.Open(bytes.NewReader(b))
	if err != nil {
		return nil, errors.Wrap(err, name)
	}
	for _, hdu := range f.HDUs() {
		if t, ok := hdu.(*fitsio.Table); ok && hdu.Type() == fitsio.BINARY_TBL {
			return &Table{Name: name, f: f, t: t}, nil
		}
	}
	f.Close()
	return nil, errors.Wrap(ErrNoTable, name)
}

// Close releases the decoded file.
func (t *Table) Close() error {
	return t.f.Close()
}

// NumRows returns the number of rows in the table.
func (t *Table) NumRows() int64 {
	return t.t.NumRows()
}

// ColumnNames returns the column names in table order.
func (t *Table) ColumnNames() []string {
	cols := t.t.Cols()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// Columns returns the definitions of all columns, for copying the table.
// Variable length array columns are not supported.
func (t *Table) Columns() ([]fitsio.Column, error) {
	cols := make([]fitsio.Column, len(t.t.Cols()))
	for i, c := range t.t.Cols() {
		if c.Type().Kind() == reflect.Slice {
			return nil, errors.Wrapf(ErrType, "%s: column %q: variable length %s", t.Name, c.Name, c.Format)
		}
		cols[i] = fitsio.Column{Name: c.Name, Format: c.Format, Unit: c.Unit}
	}
	return cols, nil
}

// Rows calls fn for each row with pointers to the values of all columns,
// in table order.  The pointers are reused from row to row.
func (t *Table) Rows(fn func(row int64, vals []interface{}) error) error {
	if _, err := t.Columns(); err != nil {
		return err
	}
	vals := make([]interface{}, len(t.t.Cols()))
	for i, c := range t.t.Cols() {
		vals[i] = reflect.New(c.Type()).Interface()
	}
	rows, err := t.t.Read(0, t.t.NumRows())
	if err != nil {
		return errors.Wrap(err, t.Name)
	}
	defer rows.Close()
	for row := int64(0); rows.Next(); row++ {
		if err := rows.Scan(vals...); err != nil {
			return errors.Wrapf(err, "%s: row %d", t.Name, row)
		}
		if err := fn(row, vals); err != nil {
			return err
		}
	}
	return errors.Wrap(rows.Err(), t.Name)
}

// Column returns the table's name for the column matching name without
// regard to case.
func (t *Table) Column(name string) (string, error) {
	for _, c := range t.t.Cols() {
		if strings.EqualFold(strings.TrimSpace(c.Name), name) {
			return c.Name, nil
		}
	}
	return "", errors.Wrapf(ErrNoColumn, "%s: %q", t.Name, name)
}

// Scan calls fn for each row with the values of the named columns, in the
// order given.  Names are matched as by Column.
func (t *Table) Scan(names []string, fn func(row int64, vals []interface{}) error) error {
	cols := make([]string, len(names))
	for i, n := range names {
		c, err := t.Column(n)
		if err != nil {
			return err
		}
		cols[i] = c
	}
	rows, err := t.t.Read(0, t.t.NumRows())
	if err != nil {
		return errors.Wrap(err, t.Name)
	}
	defer rows.Close()
	vals := make([]interface{}, len(cols))
	for row := int64(0); rows.Next(); row++ {
		m := make(map[string]interface{}, len(cols))
		for _, c := range cols {
			m[c] = nil
		}
		if err := rows.Scan(&m); err != nil {
			return errors.Wrapf(err, "%s: row %d", t.Name, row)
		}
		for i, c := range cols {
			vals[i] = m[c]
		}
		if err := fn(row, vals); err != nil {
			return err
		}
	}
	return errors.Wrap(rows.Err(), t.Name)
}

// Strings returns a string column with trailing blanks and nulls removed.
func (t *Table) Strings(name string) ([]string, error) {
	s := make([]string, 0, t.NumRows())
	err := t.Scan([]string{name}, func(row int64, v []interface{}) error {
		str, ok := v[0].(string)
		if !ok {
			return errors.Wrapf(ErrType, "%s: column %q: %T", t.Name, name, v[0])
		}
		s = append(s, strings.TrimRight(str, " \x00"))
		return nil
	})
	return s, err
}

// Floats returns a numeric column as float64.
func (t *Table) Floats(name string) ([]float64, error) {
	f := make([]float64, 0, t.NumRows())
	err := t.Scan([]string{name}, func(row int64, v []interface{}) error {
		x, ok := Float(v[0])
		if !ok {
			return errors.Wrapf(ErrType, "%s: column %q: %T", t.Name, name, v[0])
		}
		f = append(f, x)
		return nil
	})
	return f, err
}

// Int16s returns an integer column as int16.  Values out of range are an
// error.
func (t *Table) Int16s(name string) ([]int16, error) {
	m := make([]int16, 0, t.NumRows())
	err := t.Scan([]string{name}, func(row int64, v []interface{}) error {
		x, ok := Int(v[0])
		if !ok {
			return errors.Wrapf(ErrType, "%s: column %q: %T", t.Name, name, v[0])
		}
		if x < math.MinInt16 || x > math.MaxInt16 {
			return errors.Errorf("%s: column %q row %d: %d overflows int16", t.Name, name, row, x)
		}
		m = append(m, int16(x))
		return nil
	})
	return m, err
}

// StringWidth returns the width of a binary table character column of
// format form, 0 for other formats.
func StringWidth(form string) int {
	form = strings.TrimSpace(form)
	j := strings.IndexAny(form, "PQABCDEIJKLMX")
	if j < 0 || form[j] != 'A' {
		return 0
	}
	if j == 0 {
		return 1
	}
	n, err := strconv.Atoi(form[:j])
	if err != nil {
		return 0
	}
	return n
}

// StringCell returns a value writing s to a character column of width
// bytes, blank padded.  fitsio writes string values behind a NUL byte,
// which other readers take for an empty string.
func StringCell(s string, width int) interface{} {
	v := reflect.New(reflect.ArrayOf(width, reflect.TypeOf(byte(0))))
	b := v.Elem().Slice(0, width).Bytes()
	n := copy(b, s)
	for i := n; i < width; i++ {
		b[i] = ' '
	}
	return v.Interface()
}

// Float converts a numeric cell value.
func Float(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	}
	if i, ok := Int(v); ok {
		return float64(i), true
	}
	return 0, false
}

// Int converts an integer cell value.
func Int(v interface{}) (int64, bool) {
	switch x := v.(type) {
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case int:
		return int64(x), true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x), true
		}
	}
	return 0, false
}
