// Public domain.

// Package maskbits reads the per-brick maskbits images of the legacy
// imaging surveys and assigns their bit codes to catalogue objects.
//
// A maskbits image is a 2-D integer FITS image with an RA---TAN,
// DEC--TAN world coordinate system.  It may be stored plainly or tile
// compressed as written by fpack (the .fits.fz files of the survey
// releases), gzip wrapped or not.
package maskbits

import (
	"bytes"
	"io"
	"math"
	"os"
	"strings"

	"github.com/astrogo/fitsio"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

var (
	ErrNoImage = errors.New("maskbits: no image")
	ErrWCS     = errors.New("maskbits: unsupported world coordinates")
	ErrKeyword = errors.New("maskbits: missing or invalid keyword")
)

// Image is a decoded maskbits image.  Pixel x, y is Pix[x+y*Width].
type Image struct {
	Name          string // file name, for messages
	Width, Height int
	Bitpix        int // of the stored image
	Pix           []int64
	WCS           *TAN
}

// At returns pixel x, y and whether it lies inside the image.
func (m *Image) At(x, y int) (int64, bool) {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return 0, false
	}
	return m.Pix[x+y*m.Width], true
}

// ReadFile reads the maskbits image at path.
func ReadFile(path string) (*Image, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(b, path)
}

// Decode decodes the first HDU holding data in the FITS file content b,
// which must be an image, plain or tile compressed.
func Decode(b []byte, name string) (*Image, error) {
	if len(b) >= 2 && b[0] == 0x1f && b[1] == 0x8b {
		zr, err := gzip.NewReader(bytes.NewReader(b))
		if err != nil {
			return nil, errors.Wrap(err, name)
		}
		b, err = io.ReadAll(zr)
		zr.Close()
		if err != nil {
			return nil, errors.Wrap(err, name)
		}
	}
	f, err := fitsio.Open(bytes.NewReader(b))
	if err != nil {
		return nil, errors.Wrap(err, name)
	}
	defer f.Close()
	for _, hdu := range f.HDUs() {
		var m *Image
		switch h := hdu.(type) {
		case fitsio.Image:
			if len(h.Header().Axes()) == 0 {
				continue
			}
			m, err = plainImage(h)
		case *fitsio.Table:
			if !headerBool(h.Header(), "ZIMAGE") {
				return nil, errors.Wrapf(ErrNoImage, "%s: first data unit is a table", name)
			}
			m, err = tiledImage(h)
		default:
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err, name)
		}
		m.Name = name
		return m, nil
	}
	return nil, errors.Wrap(ErrNoImage, name)
}

func plainImage(h fitsio.Image) (*Image, error) {
	hdr := h.Header()
	axes := hdr.Axes()
	if len(axes) != 2 || axes[0] <= 0 || axes[1] <= 0 {
		return nil, errors.Wrapf(ErrNoImage, "dimensions %v", axes)
	}
	m := &Image{Width: axes[0], Height: axes[1], Bitpix: hdr.Bitpix()}
	n := m.Width * m.Height
	m.Pix = make([]int64, n)
	switch m.Bitpix {
	case 8:
		p := make([]uint8, n)
		if err := h.Read(&p); err != nil {
			return nil, err
		}
		for i, v := range p {
			m.Pix[i] = int64(v)
		}
	case 16:
		p := make([]int16, n)
		if err := h.Read(&p); err != nil {
			return nil, err
		}
		for i, v := range p {
			m.Pix[i] = int64(v)
		}
	case 32:
		p := make([]int32, n)
		if err := h.Read(&p); err != nil {
			return nil, err
		}
		for i, v := range p {
			m.Pix[i] = int64(v)
		}
	case 64:
		if err := h.Read(&m.Pix); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Errorf("maskbits: BITPIX %d is not an integer type", m.Bitpix)
	}
	if err := applyZero(hdr, m.Pix); err != nil {
		return nil, err
	}
	var err error
	m.WCS, err = readTAN(hdr)
	return m, err
}

// applyZero adds an integer BZERO, the FITS convention for unsigned
// pixels.
func applyZero(hdr *fitsio.Header, pix []int64) error {
	if s, ok := headerFloat(hdr, "BSCALE"); ok && s != 1 {
		return errors.Wrapf(ErrKeyword, "BSCALE %g", s)
	}
	z, ok := headerFloat(hdr, "BZERO")
	if !ok || z == 0 {
		return nil
	}
	if z != math.Trunc(z) {
		return errors.Wrapf(ErrKeyword, "BZERO %g", z)
	}
	for i := range pix {
		pix[i] += int64(z)
	}
	return nil
}

func readTAN(hdr *fitsio.Header) (*TAN, error) {
	for k, want := range map[string]string{"CTYPE1": "RA---TAN", "CTYPE2": "DEC--TAN"} {
		if got := headerString(hdr, k); got != want {
			return nil, errors.Wrapf(ErrWCS, "%s = %q, want %q", k, got, want)
		}
	}
	keys := [8]string{"CRVAL1", "CRVAL2", "CRPIX1", "CRPIX2", "CD1_1", "CD1_2", "CD2_1", "CD2_2"}
	var v [8]float64
	for i, k := range keys {
		x, ok := headerFloat(hdr, k)
		if !ok {
			return nil, errors.Wrap(ErrKeyword, k)
		}
		v[i] = x
	}
	return NewTAN([2]float64{v[0], v[1]}, [2]float64{v[2], v[3]},
		[2][2]float64{{v[4], v[5]}, {v[6], v[7]}})
}

func headerFloat(hdr *fitsio.Header, key string) (float64, bool) {
	c := hdr.Get(key)
	if c == nil {
		return 0, false
	}
	switch v := c.Value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func headerInt(hdr *fitsio.Header, key string) (int, bool) {
	c := hdr.Get(key)
	if c == nil {
		return 0, false
	}
	switch v := c.Value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	}
	return 0, false
}

func headerString(hdr *fitsio.Header, key string) string {
	c := hdr.Get(key)
	if c == nil {
		return ""
	}
	s, _ := c.Value.(string)
	return strings.TrimSpace(s)
}

func headerBool(hdr *fitsio.Header, key string) bool {
	c := hdr.Get(key)
	if c == nil {
		return false
	}
	b, _ := c.Value.(bool)
	return b
}
