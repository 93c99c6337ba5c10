// Public domain.

// Package healpix implements the parts of the HEALPix ring scheme needed to
// flag catalogue objects by sky pixel.
//
// Angles follow the usual HEALPix convention: theta is colatitude in
// radians, 0 at the north pole and pi at the south pole; phi is longitude in
// radians.  Pixel indexes are ring ordered, 0 .. 12*nside*nside-1.
//
// The arithmetic mirrors the reference C++ implementation, including the
// sin(theta) refinement used within 0.01 radians of the poles, so pixel
// indexes agree with those computed by healpy.
package healpix

import (
	"errors"
	"math"

	"github.com/soniakeys/unit"
)

// MaxNside is the largest resolution parameter supported.
const MaxNside = 1 << 29

const (
	halfPi    = math.Pi / 2
	invHalfPi = 2 / math.Pi
	twoThird  = 2. / 3
)

var (
	ErrNside = errors.New("healpix: nside out of range [1, 2^29]")
	ErrTheta = errors.New("healpix: theta out of range [0, pi]")
	ErrPhi   = errors.New("healpix: phi is not finite")
	ErrPixel = errors.New("healpix: pixel index out of range")
)

// ValidNside reports whether nside can be used with the ring scheme.
func ValidNside(nside int64) bool {
	return nside > 0 && nside <= MaxNside
}

// Npix returns the number of pixels covering the sphere at resolution nside.
func Npix(nside int64) int64 {
	return 12 * nside * nside
}

// ncap is the number of pixels in the north polar cap.
func ncap(nside int64) int64 {
	return 2 * nside * (nside - 1)
}

// AngToPixRing returns the ring ordered index of the pixel containing the
// point at colatitude theta and longitude phi.
//
// Phi may take any finite value, it is reduced modulo 2 pi.
func AngToPixRing(nside int64, theta, phi float64) (int64, error) {
	if !ValidNside(nside) {
		return 0, ErrNside
	}
	if !(theta >= 0 && theta <= math.Pi) { // also catches NaN
		return 0, ErrTheta
	}
	if math.IsNaN(phi) || math.IsInf(phi, 0) {
		return 0, ErrPhi
	}
	if theta < 0.01 || theta > math.Pi-0.01 {
		return loc2pix(nside, math.Cos(theta), phi, math.Sin(theta), true), nil
	}
	return loc2pix(nside, math.Cos(theta), phi, 0, false), nil
}

// LonLatToPixRing returns the ring ordered index of the pixel containing the
// point at longitude lon and latitude lat, both in degrees.
func LonLatToPixRing(nside int64, lon, lat float64) (int64, error) {
	if !(lat >= -90 && lat <= 90) {
		return 0, ErrTheta
	}
	theta := unit.AngleFromDeg(90 - lat).Rad()
	if theta > math.Pi { // rounding at lat = -90
		theta = math.Pi
	}
	return AngToPixRing(nside, theta, unit.AngleFromDeg(lon).Rad())
}

func loc2pix(nside int64, z, phi, sth float64, haveSth bool) int64 {
	za := math.Abs(z)
	tt := fmodulo(phi*invHalfPi, 4) // in [0,4)
	ns := float64(nside)

	if za <= twoThird { // equatorial region
		nl4 := 4 * nside
		temp1 := ns * (.5 + tt)
		temp2 := ns * z * .75
		jp := int64(temp1 - temp2) // index of ascending edge line
		jm := int64(temp1 + temp2) // index of descending edge line
		ir := nside + 1 + jp - jm  // ring number counted from z = 2/3
		kshift := 1 - (ir & 1)     // 1 if ir even, 0 otherwise
		t1 := jp + jm - nside + kshift + 1 + nl4 + nl4
		ip := (t1 >> 1) % nl4
		return ncap(nside) + (ir-1)*nl4 + ip
	}

	// polar caps
	tp := tt - math.Floor(tt)
	var tmp float64
	if za < .99 || !haveSth {
		tmp = ns * math.Sqrt(3*(1-za))
	} else {
		tmp = ns * sth / math.Sqrt((1+za)/3)
	}
	jp := int64(tp * tmp)
	jm := int64((1 - tp) * tmp)
	ir := jp + jm + 1 // ring number counted from the closest pole
	ip := imodulo(int64(tt*float64(ir)), 4*ir)
	if z > 0 {
		return 2*ir*(ir-1) + ip
	}
	return Npix(nside) - 2*ir*(ir+1) + ip
}

// PixToAngRing returns the colatitude and longitude of the center of a ring
// ordered pixel.
func PixToAngRing(nside, pix int64) (theta, phi float64, err error) {
	if !ValidNside(nside) {
		return 0, 0, ErrNside
	}
	npix := Npix(nside)
	if pix < 0 || pix >= npix {
		return 0, 0, ErrPixel
	}
	nc := ncap(nside)
	fact2 := 4 / float64(npix)
	fact1 := float64(2*nside) * fact2

	var z, sth float64
	haveSth := false
	switch {
	case pix < nc: // north polar cap
		iring := (1 + isqrt(1+2*pix)) >> 1
		iphi := (pix + 1) - 2*iring*(iring-1)
		tmp := float64(iring*iring) * fact2
		z = 1 - tmp
		if z > .99 {
			sth = math.Sqrt(tmp * (2 - tmp))
			haveSth = true
		}
		phi = (float64(iphi) - .5) * halfPi / float64(iring)
	case pix < npix-nc: // equatorial region
		nl4 := 4 * nside
		ip := pix - nc
		tmp := ip / nl4
		iring := tmp + nside
		iphi := ip - nl4*tmp + 1
		fodd := .5
		if (iring+nside)&1 != 0 {
			fodd = 1
		}
		z = float64(2*nside-iring) * fact1
		phi = (float64(iphi) - fodd) * math.Pi * .75 * fact1
	default: // south polar cap
		ip := npix - pix
		iring := (1 + isqrt(2*ip-1)) >> 1
		iphi := 4*iring + 1 - (ip - 2*iring*(iring-1))
		tmp := float64(iring*iring) * fact2
		z = tmp - 1
		if z < -.99 {
			sth = math.Sqrt(tmp * (2 - tmp))
			haveSth = true
		}
		phi = (float64(iphi) - .5) * halfPi / float64(iring)
	}
	if haveSth {
		theta = math.Atan2(sth, z)
	} else {
		theta = math.Acos(z)
	}
	return theta, phi, nil
}

// fmodulo returns v1 mod v2 in [0,v2).
func fmodulo(v1, v2 float64) float64 {
	if v1 >= 0 {
		if v1 < v2 {
			return v1
		}
		return math.Mod(v1, v2)
	}
	tmp := math.Mod(v1, v2) + v2
	if tmp == v2 {
		return 0
	}
	return tmp
}

func imodulo(v1, v2 int64) int64 {
	v := v1 % v2
	if v < 0 {
		v += v2
	}
	return v
}

// isqrt returns floor(sqrt(v)) for v >= 0.
func isqrt(v int64) int64 {
	r := int64(math.Sqrt(float64(v) + .5))
	for r*r > v {
		r--
	}
	for (r+1)*(r+1) <= v {
		r++
	}
	return r
}
