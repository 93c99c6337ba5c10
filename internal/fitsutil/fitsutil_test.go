// Public domain.

package fitsutil_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skymask/brickmask/internal/fitsutil"
	"github.com/skymask/brickmask/internal/fitsutil/fitstest"
)

var testCols = []fitstest.Column{
	{Name: "BRICKNAME", Strings: []string{"0001m002", "3599p300", "0001m002"}},
	{Name: "RA", Floats: []float64{0.125, 359.9, -1e-3}},
	{Name: "MASKBITS", Int16s: []int16{0, 2048, -1}},
}

func TestColumns(t *testing.T) {
	for _, gz := range []bool{false, true} {
		b := fitstest.Table(testCols...)
		if gz {
			b = fitstest.Gzip(b)
		}
		tb, err := fitsutil.OpenBytes(b, "test.fits")
		require.NoError(t, err)
		require.Equal(t, int64(3), tb.NumRows())
		require.Equal(t, []string{"BRICKNAME", "RA", "MASKBITS"}, tb.ColumnNames())

		names, err := tb.Strings("brickname")
		require.NoError(t, err)
		require.Equal(t, []string{"0001m002", "3599p300", "0001m002"}, names)

		ra, err := tb.Floats("ra")
		require.NoError(t, err)
		require.Equal(t, []float64{0.125, 359.9, -1e-3}, ra)

		m, err := tb.Int16s("MaskBits")
		require.NoError(t, err)
		require.Equal(t, []int16{0, 2048, -1}, m)

		// integer columns widen to float
		mf, err := tb.Floats("maskbits")
		require.NoError(t, err)
		require.Equal(t, []float64{0, 2048, -1}, mf)
		require.NoError(t, tb.Close())
	}
}

func TestScan(t *testing.T) {
	tb, err := fitsutil.OpenBytes(fitstest.Table(testCols...), "test.fits")
	require.NoError(t, err)
	defer tb.Close()
	var got []string
	err = tb.Scan([]string{"ra", "brickname"}, func(row int64, v []interface{}) error {
		require.Len(t, v, 2)
		_, ok := v[0].(float64)
		require.True(t, ok)
		got = append(got, v[1].(string))
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"0001m002", "3599p300", "0001m002"}, got)
}

func TestErrors(t *testing.T) {
	tb, err := fitsutil.OpenBytes(fitstest.Table(testCols...), "test.fits")
	require.NoError(t, err)
	defer tb.Close()

	_, err = tb.Strings("dec")
	require.ErrorIs(t, err, fitsutil.ErrNoColumn)
	require.Contains(t, err.Error(), "test.fits")
	_, err = tb.Floats("brickname")
	require.ErrorIs(t, err, fitsutil.ErrType)
	_, err = tb.Int16s("ra")
	require.ErrorIs(t, err, fitsutil.ErrType)

	// primary header only
	_, err = fitsutil.OpenBytes(fitstest.Table(testCols...)[:2880], "primary.fits")
	require.ErrorIs(t, err, fitsutil.ErrNoTable)

	_, err = fitsutil.OpenBytes([]byte("not a fits file"), "junk")
	require.Error(t, err)
}

func TestOpen(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "t.fits.gz")
	require.NoError(t, fitstest.WriteFile(fn, true, testCols...))
	tb, err := fitsutil.Open(fn)
	require.NoError(t, err)
	require.Equal(t, fn, tb.Name)
	require.Equal(t, int64(3), tb.NumRows())
	require.NoError(t, tb.Close())

	tb, err = fitsutil.OpenReader(bytes.NewReader(fitstest.Table(testCols...)), "stdin")
	require.NoError(t, err)
	require.Equal(t, int64(3), tb.NumRows())
	require.NoError(t, tb.Close())

	_, err = fitsutil.Open(filepath.Join(t.TempDir(), "missing.fits"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestConvert(t *testing.T) {
	for _, v := range []interface{}{int8(-3), int16(-3), int32(-3), int64(-3), -3} {
		i, ok := fitsutil.Int(v)
		require.True(t, ok)
		require.Equal(t, int64(-3), i)
		f, ok := fitsutil.Float(v)
		require.True(t, ok)
		require.Equal(t, -3., f)
	}
	f, ok := fitsutil.Float(float32(.5))
	require.True(t, ok)
	require.Equal(t, .5, f)
	_, ok = fitsutil.Int(1.5)
	require.False(t, ok)
	_, ok = fitsutil.Float("x")
	require.False(t, ok)
	_, ok = fitsutil.Int(uint64(1 << 63))
	require.False(t, ok)
}

// Tables written by fitsio read the same as the hand-built ones.
func TestFitsioWritten(t *testing.T) {
	b, err := fitstest.FitsioTable(testCols...)
	require.NoError(t, err)
	tb, err := fitsutil.OpenBytes(b, "fitsio.fits")
	require.NoError(t, err)
	defer tb.Close()
	require.Equal(t, []string{"BRICKNAME", "RA", "MASKBITS"}, tb.ColumnNames())
	names, err := tb.Strings("BRICKNAME")
	require.NoError(t, err)
	require.Equal(t, testCols[0].Strings, names)
	ra, err := tb.Floats("RA")
	require.NoError(t, err)
	require.Equal(t, testCols[1].Floats, ra)
	m, err := tb.Int16s("MASKBITS")
	require.NoError(t, err)
	require.Equal(t, testCols[2].Int16s, m)
}

func TestRows(t *testing.T) {
	tb, err := fitsutil.OpenBytes(fitstest.Table(testCols...), "test.fits")
	require.NoError(t, err)
	defer tb.Close()
	cols, err := tb.Columns()
	require.NoError(t, err)
	require.Len(t, cols, 3)
	require.Equal(t, "RA", cols[1].Name)
	require.Equal(t, "D", cols[1].Format)

	var ra []float64
	var mask []int16
	err = tb.Rows(func(row int64, v []interface{}) error {
		require.Len(t, v, 3)
		ra = append(ra, *v[1].(*float64))
		mask = append(mask, *v[2].(*int16))
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, testCols[1].Floats, ra)
	require.Equal(t, testCols[2].Int16s, mask)

	// tile compressed images are tables of variable length arrays
	b, err := fitstest.CompressedImage(2, 2, 1, []int16{1, 2, 3, 4}, fitstest.WCS{}, fitstest.Gzip1)
	require.NoError(t, err)
	vt, err := fitsutil.OpenBytes(b, "image.fits.fz")
	require.NoError(t, err)
	defer vt.Close()
	_, err = vt.Columns()
	require.ErrorIs(t, err, fitsutil.ErrType)
	err = vt.Rows(func(int64, []interface{}) error { return nil })
	require.ErrorIs(t, err, fitsutil.ErrType)
}

func TestStringCell(t *testing.T) {
	require.Equal(t, 8, fitsutil.StringWidth("8A"))
	require.Equal(t, 1, fitsutil.StringWidth("A"))
	require.Equal(t, 0, fitsutil.StringWidth("D"))
	require.Equal(t, 0, fitsutil.StringWidth("3E"))
	require.Equal(t, &[4]byte{'a', 'b', ' ', ' '}, fitsutil.StringCell("ab", 4))
	require.Equal(t, &[2]byte{'a', 'b'}, fitsutil.StringCell("abc", 2))
}
