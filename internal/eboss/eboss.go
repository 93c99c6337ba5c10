// Public domain.

// Package eboss assigns the supplementary eBOSS ELG mask bits to catalogue
// objects.
//
// Objects in a bad healpix pixel get the pixel bit, 8 by default.  Objects
// inside any polygon of a mangle polygon file get the bit configured for
// that file, 9, 10 and 11 by default.  Bits are combined with bitwise OR.
//
// See https://arxiv.org/abs/2007.09007 and https://arxiv.org/abs/2007.08997
// for the masks.
package eboss

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/soniakeys/unit"
	"golang.org/x/exp/slices"

	"github.com/skymask/brickmask/internal/healpix"
	"github.com/skymask/brickmask/internal/mangle"
)

var (
	ErrShapeMismatch = errors.New("eboss: ra, dec and prior mask lengths differ")
	ErrReservedBits  = errors.New("eboss: prior mask already has assigned bits set")
)

// MaskFileError reports a polygon file that could not be read.
type MaskFileError struct {
	Path string
	Err  error
}

func (e *MaskFileError) Error() string {
	return fmt.Sprintf("eboss: polygon mask %s: %v", e.Path, e.Err)
}

func (e *MaskFileError) Unwrap() error { return e.Err }

// Assigner computes mask bits for a fixed configuration.  Polygon files are
// read from the mask directory on each call to Assign.
type Assigner struct {
	maskDir   string
	cfg       Config
	badPixels []int64 // sorted
	reserved  int16
	log       zerolog.Logger
}

// New validates cfg and returns an Assigner reading polygon files from
// maskDir.
func New(maskDir string, cfg Config, logger zerolog.Logger) (*Assigner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	bad := append([]int64{}, cfg.BadPixels...)
	slices.Sort(bad)
	return &Assigner{
		maskDir:   maskDir,
		cfg:       cfg,
		badPixels: slices.Compact(bad),
		reserved:  cfg.reserved(),
		log:       logger,
	}, nil
}

// Assign is a convenience function using DefaultConfig and no logging.
func Assign(maskDir string, ra, dec []float64, prior []int16) ([]int16, error) {
	a, err := New(maskDir, DefaultConfig(), zerolog.Nop())
	if err != nil {
		return nil, err
	}
	return a.Assign(ra, dec, prior)
}

// Assign returns the mask bits for objects at ra, dec (degrees).
//
// Prior, if not nil, holds mask values the new bits are combined with.  It
// is not modified.  Ra, dec, and prior if given, must have the same length.
func (a *Assigner) Assign(ra, dec []float64, prior []int16) ([]int16, error) {
	if len(ra) != len(dec) || prior != nil && len(prior) != len(ra) {
		return nil, errors.Wrapf(ErrShapeMismatch, "len(ra) = %d, len(dec) = %d, len(prior) = %d",
			len(ra), len(dec), len(prior))
	}
	mask := make([]int16, len(ra))
	if prior != nil {
		copy(mask, prior)
		if a.cfg.Strict {
			for i, m := range prior {
				if m&a.reserved != 0 {
					return nil, errors.Wrapf(ErrReservedBits, "object %d: mask %#x, assigned bits %#x",
						i, uint16(m), uint16(a.reserved))
				}
			}
		}
	}

	n, err := a.assignPixels(ra, dec, mask)
	if err != nil {
		return nil, err
	}
	a.log.Debug().Int("objects", len(ra)).Int("flagged", n).
		Uint("bit", a.cfg.PixelBit).Msg("healpix bad pixels")

	for _, pm := range a.cfg.Polygons {
		path := filepath.Join(a.maskDir, pm.File)
		m, err := mangle.ReadFile(path)
		if err != nil {
			return nil, &MaskFileError{Path: path, Err: err}
		}
		bit := int16(1) << pm.Bit
		n := 0
		for i, id := range m.PolyIDs(ra, dec) {
			if id != mangle.NoPolygon {
				mask[i] |= bit
				n++
			}
		}
		a.log.Info().Str("file", path).Int("polygons", len(m.Polygons)).
			Int("flagged", n).Uint("bit", pm.Bit).Msg("polygon mask applied")
	}
	return mask, nil
}

func (a *Assigner) assignPixels(ra, dec []float64, mask []int16) (int, error) {
	bit := int16(1) << a.cfg.PixelBit
	n := 0
	for i := range ra {
		pix, err := a.pixel(ra[i], dec[i])
		if err != nil {
			return 0, errors.Wrapf(err, "object %d (ra %g, dec %g)", i, ra[i], dec[i])
		}
		if _, bad := slices.BinarySearch(a.badPixels, pix); bad {
			mask[i] |= bit
			n++
		}
	}
	return n, nil
}

// pixel returns the healpix pixel for colatitude 90 - dec and mirrored
// longitude 360 - ra.
func (a *Assigner) pixel(ra, dec float64) (int64, error) {
	theta := unit.AngleFromDeg(90 - dec).Rad()
	if dec == -90 {
		theta = math.Pi
	}
	phi := unit.AngleFromDeg(360 - ra).Rad()
	if a.cfg.LonLat {
		return healpix.LonLatToPixRing(a.cfg.Nside, theta, phi)
	}
	return healpix.AngToPixRing(a.cfg.Nside, theta, phi)
}
