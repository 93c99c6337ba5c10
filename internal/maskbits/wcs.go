// Public domain.

package maskbits

import (
	"math"

	"github.com/pkg/errors"
	"github.com/soniakeys/unit"
)

// ErrSingular reports a CD matrix that cannot be inverted.
var ErrSingular = errors.New("maskbits: singular CD matrix")

// TAN is a gnomonic world coordinate system as given by the FITS keywords
// CRVAL, CRPIX and CD of an RA---TAN, DEC--TAN image.
type TAN struct {
	ang   [8]float64 // rotation to native spherical coordinates
	crpix [2]float64
	cd    [2][2]float64
	idet  float64 // 1 / det(cd)
}

// NewTAN returns the projection with reference point crval (ra, dec in
// degrees) at 1-based pixel crpix and linear transformation cd, degrees per
// pixel.
func NewTAN(crval, crpix [2]float64, cd [2][2]float64) (*TAN, error) {
	det := cd[0][0]*cd[1][1] - cd[0][1]*cd[1][0]
	if det == 0 || math.IsNaN(det) {
		return nil, errors.Wrapf(ErrSingular, "%v", cd)
	}
	sa, ca := unit.AngleFromDeg(crval[0]).Sincos()
	sd, cd0 := unit.AngleFromDeg(crval[1]).Sincos()
	return &TAN{
		ang: [8]float64{
			sd, ca * cd0, sa * cd0,
			-cd0, ca * sd, sa * sd,
			-sa, ca,
		},
		crpix: crpix,
		cd:    cd,
		idet:  1 / det,
	}, nil
}

// WorldToPix returns the 0-based pixel coordinates of ra, dec in degrees.
// The centre of the first pixel is at 0, 0.  Points 90 degrees or more from
// the reference point have no projection; their coordinates are not finite.
func (w *TAN) WorldToPix(ra, dec float64) (x, y float64) {
	sa, ca := unit.AngleFromDeg(ra).Sincos()
	sd, cd := unit.AngleFromDeg(dec).Sincos()
	f1 := ca * cd
	f2 := sa * cd

	ct := sd*w.ang[0] + f1*w.ang[1] + f2*w.ang[2]
	p1 := sd*w.ang[3] + f1*w.ang[4] + f2*w.ang[5]
	p2 := f1*w.ang[6] + f2*w.ang[7]

	var xx, yy float64
	switch {
	case ct >= 1:
	case ct <= 0:
		return math.NaN(), math.NaN()
	default:
		r := unit.Angle(math.Sqrt(1-ct*ct) / ct).Deg()
		f := r / math.Hypot(p1, p2)
		xx = f * p2
		yy = -f * p1
	}
	x = (xx*w.cd[1][1]-yy*w.cd[0][1])*w.idet + w.crpix[0] - 1
	y = (-xx*w.cd[1][0]+yy*w.cd[0][0])*w.idet + w.crpix[1] - 1
	return
}
