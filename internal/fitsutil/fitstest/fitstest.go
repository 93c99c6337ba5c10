// Public domain.

// Package fitstest writes small FITS tables and images for tests.
package fitstest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

const block = 2880

// Column is one table column.  Exactly one of the value slices is set.
type Column struct {
	Name    string
	Strings []string
	Floats  []float64
	Int16s  []int16
}

func (c *Column) len() int {
	switch {
	case c.Strings != nil:
		return len(c.Strings)
	case c.Floats != nil:
		return len(c.Floats)
	}
	return len(c.Int16s)
}

func (c *Column) width() int {
	switch {
	case c.Strings != nil:
		w := 1
		for _, s := range c.Strings {
			if len(s) > w {
				w = len(s)
			}
		}
		return w
	case c.Floats != nil:
		return 8
	}
	return 2
}

func (c *Column) form() string {
	switch {
	case c.Strings != nil:
		return fmt.Sprintf("%dA", c.width())
	case c.Floats != nil:
		return "D"
	}
	return "I"
}

type header struct{ bytes.Buffer }

func (h *header) card(key string, val interface{}) {
	var s string
	switch v := val.(type) {
	case string:
		s = fmt.Sprintf("%-8s= '%-8s' / %s", key, v, strings.ToLower(key))
	case bool:
		t := "F"
		if v {
			t = "T"
		}
		s = fmt.Sprintf("%-8s= %20s", key, t)
	default:
		s = fmt.Sprintf("%-8s= %20v", key, v)
	}
	fmt.Fprintf(h, "%-80s", s)
}

func (h *header) end() []byte {
	fmt.Fprintf(h, "%-80s", "END")
	for h.Len()%block != 0 {
		h.WriteByte(' ')
	}
	return h.Bytes()
}

// Table returns a FITS file with an empty primary HDU followed by a binary
// table of the given columns.  All columns must have the same length.
func Table(cols ...Column) []byte {
	var p header
	p.card("SIMPLE", true)
	p.card("BITPIX", 8)
	p.card("NAXIS", 0)
	p.card("EXTEND", true)
	out := append([]byte{}, p.end()...)

	rows, rowLen := 0, 0
	if len(cols) > 0 {
		rows = cols[0].len()
	}
	for i := range cols {
		if cols[i].len() != rows {
			panic("fitstest: columns differ in length")
		}
		rowLen += cols[i].width()
	}
	var h header
	h.card("XTENSION", "BINTABLE")
	h.card("BITPIX", 8)
	h.card("NAXIS", 2)
	h.card("NAXIS1", rowLen)
	h.card("NAXIS2", rows)
	h.card("PCOUNT", 0)
	h.card("GCOUNT", 1)
	h.card("TFIELDS", len(cols))
	for i := range cols {
		h.card(fmt.Sprintf("TTYPE%d", i+1), cols[i].Name)
		h.card(fmt.Sprintf("TFORM%d", i+1), cols[i].form())
	}
	h.card("EXTNAME", "TABLE")
	out = append(out, h.end()...)

	var d bytes.Buffer
	for r := 0; r < rows; r++ {
		for i := range cols {
			c := &cols[i]
			switch {
			case c.Strings != nil:
				s := c.Strings[r]
				d.WriteString(s + strings.Repeat(" ", c.width()-len(s)))
			case c.Floats != nil:
				binary.Write(&d, binary.BigEndian, math.Float64bits(c.Floats[r]))
			default:
				binary.Write(&d, binary.BigEndian, c.Int16s[r])
			}
		}
	}
	for d.Len()%block != 0 {
		d.WriteByte(0)
	}
	return append(out, d.Bytes()...)
}

// Gzip compresses b.
func Gzip(b []byte) []byte {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write(b)
	zw.Close()
	return buf.Bytes()
}

// WriteFile writes a table to path, gzip compressed if gz is true.
func WriteFile(path string, gz bool, cols ...Column) error {
	b := Table(cols...)
	if gz {
		b = Gzip(b)
	}
	return os.WriteFile(path, b, 0o644)
}
