// Public domain.

package maskbits_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/skymask/brickmask/internal/bricks"
	"github.com/skymask/brickmask/internal/fitsutil/fitstest"
	"github.com/skymask/brickmask/internal/maskbits"
)

func TestBrickName(t *testing.T) {
	for _, c := range []struct {
		path, name string
	}{
		{"/dr9/south/coadd/150/1500p020/legacysurvey-1500p020-maskbits.fits.fz", "1500p020"},
		{"legacysurvey-0001m002-maskbits.fits", "0001m002"},
		{"legacysurvey--maskbits.fits", ""},
		{"1500p020-maskbits.fits.fz", ""},
		{"legacysurvey-1500p020-image-g.fits.fz", ""},
	} {
		name, ok := maskbits.BrickName(c.path)
		require.Equal(t, c.name != "", ok, c.path)
		require.Equal(t, c.name, name, c.path)
	}
}

func TestReadSample(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "south.txt")
	require.NoError(t, os.WriteFile(list, []byte(strings.Join([]string{
		"# south",
		"/a/legacysurvey-1500p020-maskbits.fits.fz",
		"",
		"  /a/legacysurvey-1502p020-maskbits.fits.fz  ",
		"/b/legacysurvey-1500p020-maskbits.fits.fz",
	}, "\n")), 0o644))
	s, err := maskbits.ReadSample(list, 4)
	require.NoError(t, err)
	require.Equal(t, uint8(4), s.ID)
	require.Equal(t, map[string]string{
		"1500p020": "/a/legacysurvey-1500p020-maskbits.fits.fz",
		"1502p020": "/a/legacysurvey-1502p020-maskbits.fits.fz",
	}, s.Files)

	bad := filepath.Join(dir, "bad.txt")
	require.NoError(t, os.WriteFile(bad, []byte("/a/x.fits\n"), 0o644))
	_, err = maskbits.ReadSample(bad, 0)
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad.txt:1")

	_, err = maskbits.ReadSample(filepath.Join(dir, "none.txt"), 0)
	require.ErrorIs(t, err, os.ErrNotExist)
}

const side = 10

// fixture holds a brick index of two bricks, of which only the first,
// 1500p020, is covered by the testWCS images.
type fixture struct {
	dir   string
	index *bricks.Index
}

func newFixture(t *testing.T) *fixture {
	x, err := bricks.NewIndex([]bricks.Brick{
		{Name: "1500p020", RA1: 149.9, RA2: 150.1, Dec1: 1.9, Dec2: 2.1},
		{Name: "1502p020", RA1: 150.1, RA2: 150.3, Dec1: 1.9, Dec2: 2.1},
	})
	require.NoError(t, err)
	return &fixture{dir: t.TempDir(), index: x}
}

// sample writes the image pix for brick 1500p020 in directory sub and a
// list naming it.
func (f *fixture) sample(t *testing.T, sub string, id uint8, pix []int16, compress bool) *maskbits.Sample {
	d := filepath.Join(f.dir, sub)
	require.NoError(t, os.MkdirAll(d, 0o755))
	var b []byte
	var err error
	path := filepath.Join(d, "legacysurvey-1500p020-maskbits.fits")
	if compress {
		b, err = fitstest.CompressedImage(side, side, 3, pix, testWCS, fitstest.Rice1)
		path += ".fz"
	} else {
		b, err = fitstest.Image(side, side, pix, testWCS)
	}
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o644))
	list := filepath.Join(f.dir, sub+".txt")
	require.NoError(t, os.WriteFile(list, []byte(path+"\n"), 0o644))
	s, err := maskbits.ReadSample(list, id)
	require.NoError(t, err)
	return s
}

func TestAssign(t *testing.T) {
	f := newFixture(t)
	a := make([]int16, side*side)
	for i := range a {
		a[i] = int16(2 * i)
	}
	a[2+2*side] = 9
	b := make([]int16, side*side)
	for i := range b {
		b[i] = 1
	}
	b[5+5*side] = 16
	south := f.sample(t, "south", 3, a, true)
	north := f.sample(t, "north", 7, b, false)

	var ra, dec []float64
	add := func(r, d float64) {
		ra = append(ra, r)
		dec = append(dec, d)
	}
	add(radec(5.2, 5.2))
	add(150.2, 2) // brick without images
	add(radec(2.1, 2.3))
	add(radec(.4, 9.4))

	as, err := maskbits.New(f.index, []*maskbits.Sample{south, north}, maskbits.DefaultConfig(), zerolog.Nop())
	require.NoError(t, err)
	res, err := as.Assign(ra, dec)
	require.NoError(t, err)
	// the sample listed last wins the subsample ID unless its pixel has
	// the null bit
	require.Equal(t, []int64{110 | 16, maskbits.DefaultNullMask, 9, 180 | 1}, res.Mask)
	require.Equal(t, []uint8{7, 0, 0, 3}, res.SubID)

	cfg := maskbits.DefaultConfig()
	cfg.NullMask = 1 << 12
	as, err = maskbits.New(f.index, []*maskbits.Sample{south}, cfg, zerolog.Nop())
	require.NoError(t, err)
	res, err = as.Assign(ra, dec)
	require.NoError(t, err)
	require.Equal(t, []int64{110, 1 << 12, 9, 180}, res.Mask)
	require.Equal(t, []uint8{3, 0, 3, 3}, res.SubID)
}

func TestAssignEBOSS(t *testing.T) {
	f := newFixture(t)
	pix := make([]int16, side*side)
	set := func(x, y int, v int16) { pix[x+y*side] = v }
	set(5, 5, 7)
	set(4, 4, 5)
	set(2, 2, 5)
	set(4, 3, 17)
	set(7, 7, 2)
	s := f.sample(t, "eboss", 5, pix, false)

	var ra, dec []float64
	for _, p := range [][2]float64{{4.6, 4.6}, {2.2, 2.2}, {3.6, 3.2}, {7.2, 7.2}} {
		r, d := radec(p[0], p[1])
		ra = append(ra, r)
		dec = append(dec, d)
	}
	ra = append(ra, 150.2)
	dec = append(dec, 2)

	as, err := maskbits.New(f.index, []*maskbits.Sample{s}, maskbits.Config{EBOSS: true}, zerolog.Nop())
	require.NoError(t, err)
	res, err := as.Assign(ra, dec)
	require.NoError(t, err)
	// xybug comes from the truncated pixel, other bits from the rounded one
	require.Equal(t, []int64{3 | 4, 5, 17, 0, 0}, res.Mask)
	require.Equal(t, []uint8{5, 5, 5, 0, 0}, res.SubID)
}

func TestAssignErrors(t *testing.T) {
	f := newFixture(t)
	s := f.sample(t, "south", 0, make([]int16, side*side), false)
	as, err := maskbits.New(f.index, []*maskbits.Sample{s}, maskbits.DefaultConfig(), zerolog.Nop())
	require.NoError(t, err)

	// inside the brick, east of the image
	_, err = as.Assign([]float64{150.09}, []float64{2})
	var pe *maskbits.PixelError
	require.ErrorAs(t, err, &pe)
	require.Less(t, pe.X, 0.)
	require.Equal(t, 150.09, pe.RA)
	require.Contains(t, pe.File, "legacysurvey-1500p020-maskbits.fits")

	_, err = as.Assign([]float64{150, 10}, []float64{2, 10})
	var nf *bricks.NotFoundError
	require.ErrorAs(t, err, &nf)
	require.Equal(t, 10., nf.RA)

	_, err = as.Assign([]float64{150}, nil)
	require.Error(t, err)

	_, err = maskbits.New(f.index, nil, maskbits.Config{NullMask: -1}, zerolog.Nop())
	require.Error(t, err)

	require.NoError(t, os.WriteFile(s.Files["1500p020"], []byte("garbage"), 0o644))
	_, err = as.Assign([]float64{150}, []float64{2})
	require.Error(t, err)
}
