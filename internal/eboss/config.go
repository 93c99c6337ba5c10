// Public domain.

package eboss

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/skymask/brickmask/internal/healpix"
)

// DefaultNside is the healpix resolution of DefaultBadPixels.
const DefaultNside = 1024

// DefaultPixelBit is set for objects in a bad healpix pixel.  It flags the
// discrepancy between the legacy survey maskbits and the anymask of the
// eBOSS ELG targets.
const DefaultPixelBit = 8

// DefaultBadPixels are ring ordered healpix pixels at DefaultNside.
var DefaultBadPixels = []int64{
	2981667, 3464728, 3514005, 3645255, 4546075, 4685432, 5867869,
	5933353, 6031493, 6072514, 6080368, 6092477, 6301369, 6408277, 6834661,
	2907700, 3583785, 3587880, 4067035, 4669088, 6007074, 6186688, 6190785,
	6199270, 6371066, 6547876, 6551972, 6645991, 6711673, 6735965, 6744444,
	6744445, 6748540, 6752636, 6769023, 6773119, 6781133,
}

// PolygonMask names a mangle polygon file and the bit set for objects
// inside any of its polygons.
type PolygonMask struct {
	File string
	Bit  uint
}

// DefaultPolygons are the eBOSS ELG polygon masks, available from
// https://data.sdss.org/sas/dr16/eboss/lss/catalogs/DR16/ELGmasks
var DefaultPolygons = []PolygonMask{
	{"ELG_centerpost.ply", 9},
	{"ELG_TDSSFES_62arcsec.pix.snap.balk.ply", 10},
	{"ebosselg_badphot.26Aug2019.ply", 11},
}

// Config controls an Assigner.
type Config struct {
	Nside     int64
	BadPixels []int64
	PixelBit  uint
	Polygons  []PolygonMask

	// LonLat passes the colatitude and mirrored longitude, in radians, to
	// the pixel lookup as longitude and latitude in degrees, the way the
	// eBOSS_ELG_extra script called healpy.
	LonLat bool

	// Strict rejects prior masks that already carry any bit the Assigner
	// sets.
	Strict bool
}

// DefaultConfig returns the eBOSS ELG configuration.
func DefaultConfig() Config {
	return Config{
		Nside:     DefaultNside,
		BadPixels: append([]int64{}, DefaultBadPixels...),
		PixelBit:  DefaultPixelBit,
		Polygons:  append([]PolygonMask{}, DefaultPolygons...),
	}
}

// maxBit excludes the int16 sign bit.
const maxBit = 14

// Validate checks nside and bit assignments.
func (c *Config) Validate() error {
	if !healpix.ValidNside(c.Nside) || c.Nside&(c.Nside-1) != 0 {
		return errors.Errorf("eboss: nside %d is not a power of two in [1, 2^29]", c.Nside)
	}
	npix := healpix.Npix(c.Nside)
	for _, p := range c.BadPixels {
		if p < 0 || p >= npix {
			return errors.Errorf("eboss: bad pixel %d out of range for nside %d", p, c.Nside)
		}
	}
	if c.PixelBit > maxBit {
		return errors.Errorf("eboss: pixel bit %d out of range [0, %d]", c.PixelBit, maxBit)
	}
	used := []uint{c.PixelBit}
	for _, p := range c.Polygons {
		if p.File == "" {
			return errors.New("eboss: polygon mask with empty file name")
		}
		if p.Bit > maxBit {
			return errors.Errorf("eboss: %s: bit %d out of range [0, %d]", p.File, p.Bit, maxBit)
		}
		if slices.Contains(used, p.Bit) {
			return errors.Errorf("eboss: %s: bit %d already assigned", p.File, p.Bit)
		}
		used = append(used, p.Bit)
	}
	return nil
}

// reserved returns the bits set by an Assigner with this configuration.
func (c *Config) reserved() int16 {
	r := int16(1) << c.PixelBit
	for _, p := range c.Polygons {
		r |= 1 << p.Bit
	}
	return r
}

// ParsePolygonMask parses "file:bit".
func ParsePolygonMask(s string) (PolygonMask, error) {
	if i := strings.LastIndexByte(s, ':'); i > 0 {
		if b, err := strconv.ParseUint(s[i+1:], 10, 8); err == nil {
			return PolygonMask{File: s[:i], Bit: uint(b)}, nil
		}
	}
	return PolygonMask{}, errors.Errorf("eboss: invalid polygon mask %q, want file:bit", s)
}
