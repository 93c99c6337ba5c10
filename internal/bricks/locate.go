// Public domain.

package bricks

import (
	"fmt"
	"math"
	"sort"

	"github.com/pkg/errors"
	sexa "github.com/soniakeys/sexagesimal"
	"github.com/soniakeys/unit"

	"github.com/skymask/brickmask/internal/fitsutil"
)

// boundTol is the resolution brick bounds are rounded to, closing gaps
// between adjacent bricks left by floating point representation.
const boundTol = 1e-9

// ErrBrickOrder reports a brick list not sorted by declination, then right
// ascension, of the lower bounds.
var ErrBrickOrder = errors.New("bricks: brick list not sorted by dec1, ra1")

// Brick is a sky tile bounded by ra1 <= ra < ra2, dec1 <= dec < dec2, in
// degrees.
type Brick struct {
	Name     string
	RA1, RA2 float64
	Dec1     float64
	Dec2     float64
}

// NotFoundError reports a position not covered by any brick.
type NotFoundError struct {
	RA, Dec float64 // degrees
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("bricks: no brick contains ra %.2d, dec %.1d (%g, %g)",
		sexa.FmtRA(unit.RAFromDeg(e.RA)), sexa.FmtAngle(unit.AngleFromDeg(e.Dec)),
		e.RA, e.Dec)
}

// Index finds bricks by position.
type Index struct {
	bricks []Brick
}

// NewIndex rounds brick bounds and checks their order.  The slice is
// retained.
func NewIndex(b []Brick) (*Index, error) {
	for i := range b {
		b[i].RA1 = roundTol(b[i].RA1)
		b[i].RA2 = roundTol(b[i].RA2)
		b[i].Dec1 = roundTol(b[i].Dec1)
		b[i].Dec2 = roundTol(b[i].Dec2)
	}
	for i := 1; i < len(b); i++ {
		p, c := &b[i-1], &b[i]
		if p.Dec1 > c.Dec1 || p.Dec1 == c.Dec1 && p.RA1 > c.RA1 {
			return nil, errors.Wrapf(ErrBrickOrder, "brick %d (%s) follows %s", i, c.Name, p.Name)
		}
	}
	return &Index{bricks: b}, nil
}

func roundTol(x float64) float64 {
	return math.Round(x/boundTol) * boundTol
}

// Len returns the number of bricks.
func (x *Index) Len() int { return len(x.bricks) }

// Brick returns brick i.
func (x *Index) Brick(i int) Brick { return x.bricks[i] }

// compare places a position relative to brick b: negative before it in
// index order, positive after, zero inside.
func compare(b *Brick, ra, dec float64) int {
	switch {
	case dec < b.Dec1:
		return -1
	case dec >= b.Dec2:
		return 1
	case ra < b.RA1:
		return -1
	case ra >= b.RA2:
		return 1
	}
	return 0
}

// Find returns the index of the brick containing ra, dec, or -1.
func (x *Index) Find(ra, dec float64) int {
	i := sort.Search(len(x.bricks), func(i int) bool {
		return compare(&x.bricks[i], ra, dec) <= 0
	})
	if i < len(x.bricks) && compare(&x.bricks[i], ra, dec) == 0 {
		return i
	}
	return -1
}

// Locate returns the brick name for each position.  It fails on the first
// position not covered.
func (x *Index) Locate(ra, dec []float64) ([]string, error) {
	if len(ra) != len(dec) {
		return nil, errors.Errorf("bricks: %d ra values, %d dec values", len(ra), len(dec))
	}
	names := make([]string, len(ra))
	for i := range ra {
		j := x.Find(ra[i], dec[i])
		if j < 0 {
			return nil, &NotFoundError{RA: ra[i], Dec: dec[i]}
		}
		names[i] = x.bricks[j].Name
	}
	return names, nil
}

// ReadBrickList reads brick names and bounds from the columns BRICKNAME,
// RA1, RA2, DEC1, DEC2 of a FITS brick list, such as survey-bricks.fits.gz.
func ReadBrickList(path string) ([]Brick, error) {
	t, err := fitsutil.Open(path)
	if err != nil {
		return nil, err
	}
	defer t.Close()
	b := make([]Brick, 0, t.NumRows())
	cols := []string{"brickname", "ra1", "ra2", "dec1", "dec2"}
	err = t.Scan(cols, func(row int64, v []interface{}) error {
		name, ok := v[0].(string)
		if !ok {
			return errors.Wrapf(fitsutil.ErrType, "%s: brickname: %T", path, v[0])
		}
		var f [4]float64
		for i := range f {
			if f[i], ok = fitsutil.Float(v[i+1]); !ok {
				return errors.Wrapf(fitsutil.ErrType, "%s: %s: %T", path, cols[i+1], v[i+1])
			}
		}
		b = append(b, Brick{
			Name: trimName(name),
			RA1:  f[0], RA2: f[1],
			Dec1: f[2], Dec2: f[3],
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func trimName(s string) string {
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == 0) {
		s = s[:len(s)-1]
	}
	return s
}
