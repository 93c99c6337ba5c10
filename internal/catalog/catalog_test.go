// Public domain.

package catalog_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skymask/brickmask/internal/catalog"
	"github.com/skymask/brickmask/internal/fitsutil"
	"github.com/skymask/brickmask/internal/fitsutil/fitstest"
)

const ascii = `# ra dec z mask
10.5 -3.25 0.81 0

  200  45   1.02  2048
# trailing comment
359.99 -89.5 0.7 3
`

func TestReadASCII(t *testing.T) {
	c, err := catalog.ReadASCII(strings.NewReader(ascii), catalog.DefaultColumns())
	require.NoError(t, err)
	require.Equal(t, 3, c.Len())
	require.Equal(t, []float64{10.5, 200, 359.99}, c.RA)
	require.Equal(t, []float64{-3.25, 45, -89.5}, c.Dec)
	require.Nil(t, c.Mask)
	require.Equal(t, []string{"10.5 -3.25 0.81 0", "  200  45   1.02  2048", "359.99 -89.5 0.7 3"}, c.Lines)

	cols := catalog.Columns{RA: 1, Dec: 2, Mask: 4, Comment: '#'}
	c, err = catalog.ReadASCII(strings.NewReader(ascii), cols)
	require.NoError(t, err)
	require.Equal(t, []int16{0, 2048, 3}, c.Mask)

	// columns in another order
	cols = catalog.Columns{RA: 3, Dec: 1, Comment: '#'}
	c, err = catalog.ReadASCII(strings.NewReader(ascii), cols)
	require.NoError(t, err)
	require.Equal(t, []float64{.81, 1.02, .7}, c.RA)

	c, err = catalog.ReadASCII(strings.NewReader(""), catalog.Columns{RA: 1, Dec: 2, Mask: 3})
	require.NoError(t, err)
	require.Zero(t, c.Len())
	require.NotNil(t, c.Mask)
}

func TestReadASCIIErrors(t *testing.T) {
	for _, c := range []struct {
		text string
		cols catalog.Columns
		line int
	}{
		{"1 2\n3\n", catalog.DefaultColumns(), 2},
		{"1 x\n", catalog.DefaultColumns(), 1},
		{"# 1 2\n1 2 40000\n", catalog.Columns{RA: 1, Dec: 2, Mask: 3, Comment: '#'}, 2},
		{"1 2 1.5\n", catalog.Columns{RA: 1, Dec: 2, Mask: 3}, 1},
		// without a comment byte, comment lines are data
		{"# 1 2\n", catalog.Columns{RA: 1, Dec: 2}, 1},
	} {
		_, err := catalog.ReadASCII(strings.NewReader(c.text), c.cols)
		var ce *catalog.ColumnError
		require.True(t, errors.As(err, &ce), "%q: %v", c.text, err)
		require.Equal(t, c.line, ce.Line, "%q", c.text)
	}
	_, err := catalog.ReadASCII(strings.NewReader("1 2\n"), catalog.Columns{RA: 0, Dec: 2})
	require.Error(t, err)
}

func TestReadASCIIFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "cat.txt")
	require.NoError(t, os.WriteFile(fn, []byte("1 2\n3 x\n"), 0o644))
	_, err := catalog.ReadASCIIFile(fn, catalog.DefaultColumns())
	var ce *catalog.ColumnError
	require.True(t, errors.As(err, &ce))
	require.Contains(t, err.Error(), fn)

	_, err = catalog.ReadASCIIFile(filepath.Join(t.TempDir(), "none"), catalog.DefaultColumns())
	require.ErrorIs(t, err, os.ErrNotExist)
}

func writeFITS(t *testing.T) string {
	fn := filepath.Join(t.TempDir(), "cat.fits.gz")
	require.NoError(t, fitstest.WriteFile(fn, true,
		fitstest.Column{Name: "RA", Floats: []float64{1.5, 2.5}},
		fitstest.Column{Name: "Dec", Floats: []float64{-1, 1}},
		fitstest.Column{Name: "MSKBIT", Int16s: []int16{0, 4}},
		fitstest.Column{Name: "ID", Strings: []string{"a", "b"}},
	))
	return fn
}

func TestReadFITS(t *testing.T) {
	fn := writeFITS(t)
	c, err := catalog.ReadFITS(fn, catalog.DefaultFITSColumns())
	require.NoError(t, err)
	require.Equal(t, []float64{1.5, 2.5}, c.RA)
	require.Equal(t, []float64{-1, 1}, c.Dec)
	require.Nil(t, c.Mask)
	require.Nil(t, c.Lines)

	c, err = catalog.ReadFITS(fn, catalog.FITSColumns{RA: "ra", Dec: "DEC", Mask: "mskbit"})
	require.NoError(t, err)
	require.Equal(t, []int16{0, 4}, c.Mask)

	for _, cols := range []catalog.FITSColumns{
		{RA: "ALPHA", Dec: "DEC"},
		{RA: "RA", Dec: "ID"},
		{RA: "RA", Dec: "DEC", Mask: "FLAGS"},
	} {
		_, err = catalog.ReadFITS(fn, cols)
		var ce *catalog.ColumnError
		require.True(t, errors.As(err, &ce), "%+v", cols)
	}
	_, err = catalog.ReadFITS(fn, catalog.FITSColumns{RA: "ALPHA", Dec: "DEC"})
	require.ErrorIs(t, err, fitsutil.ErrNoColumn)
}

func TestWriteASCII(t *testing.T) {
	c, err := catalog.ReadASCII(strings.NewReader(ascii), catalog.DefaultColumns())
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, catalog.WriteASCII(&buf, c, func(i int) string { return strconv.Itoa(i * 10) }))
	require.Equal(t, "10.5 -3.25 0.81 0 0\n  200  45   1.02  2048 10\n359.99 -89.5 0.7 3 20\n", buf.String())

	c, err = catalog.ReadFITS(writeFITS(t), catalog.DefaultFITSColumns())
	require.NoError(t, err)
	fn := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, catalog.WriteASCIIFile(fn, c, func(i int) string { return "x" }))
	b, err := os.ReadFile(fn)
	require.NoError(t, err)
	require.Equal(t, "1.5 -1 x\n2.5 1 x\n", string(b))
}
