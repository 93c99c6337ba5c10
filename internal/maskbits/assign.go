// Public domain.

package maskbits

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"

	"github.com/skymask/brickmask/internal/bricks"
)

// Bit codes of the eBOSS maskbits images.
const (
	EBOSSValid = 1 // pixel inside the eBOSS footprint
	EBOSSXYBug = 4 // set from the truncated, not the rounded, pixel
)

// DefaultNullMask is assigned to objects in bricks without a maskbits
// file.  Bit 0 of the legacy survey maskbits marks pixels outside the
// brick's primary area.
const DefaultNullMask = 1

// MaxSubsample is the largest subsample ID.
const MaxSubsample = math.MaxUint8

// PixelError reports an object projecting outside the image of its brick.
type PixelError struct {
	File    string
	X, Y    float64 // pixel tried, 0-based
	RA, Dec float64
}

func (e *PixelError) Error() string {
	return fmt.Sprintf("maskbits: %s: invalid pixel (%g, %g) for ra %g, dec %g",
		e.File, e.X, e.Y, e.RA, e.Dec)
}

// Sample is a set of maskbits files, one per brick, such as those of one
// hemisphere.
type Sample struct {
	ID    uint8
	Files map[string]string // brick name to file path
}

// BrickName extracts the brick name from a maskbits file name of the form
// legacysurvey-<brick>-maskbits.fits[.fz|.gz].
func BrickName(path string) (string, bool) {
	b := filepath.Base(path)
	if !strings.HasPrefix(b, "legacysurvey-") {
		return "", false
	}
	b = b[len("legacysurvey-"):]
	i := strings.Index(b, "-maskbits")
	if i <= 0 {
		return "", false
	}
	return b[:i], true
}

// ReadSample reads a list of maskbits file paths, one per line, such as
// written by bricks.List.  Empty lines and lines starting with # are
// skipped.  Every path must name its brick.
func ReadSample(path string, id uint8) (*Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s := &Sample{ID: id, Files: map[string]string{}}
	sc := bufio.NewScanner(f)
	for line := 1; sc.Scan(); line++ {
		p := strings.TrimSpace(sc.Text())
		if p == "" || p[0] == '#' {
			continue
		}
		name, ok := BrickName(p)
		if !ok {
			return nil, errors.Errorf("%s:%d: no brick name in %q", path, line, p)
		}
		if _, dup := s.Files[name]; !dup {
			s.Files[name] = p
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, path)
	}
	return s, nil
}

// Config selects the bit conventions.
type Config struct {
	NullMask int64 // for objects in bricks without a maskbits file
	EBOSS    bool  // eBOSS maskbits with the valid and xybug bits
}

// DefaultConfig returns the legacy survey conventions.
func DefaultConfig() Config {
	return Config{NullMask: DefaultNullMask}
}

// Result holds per-object output.
type Result struct {
	Mask  []int64
	SubID []uint8 // ID of the sample whose image assigned the mask
}

// Assigner assigns maskbits to objects by brick.
type Assigner struct {
	index   *bricks.Index
	samples []*Sample
	cfg     Config
	log     zerolog.Logger
}

// New returns an Assigner finding bricks with index and maskbits files in
// samples, searched in order.
func New(index *bricks.Index, samples []*Sample, cfg Config, logger zerolog.Logger) (*Assigner, error) {
	if cfg.NullMask < 0 {
		return nil, errors.Errorf("maskbits: negative null mask %d", cfg.NullMask)
	}
	return &Assigner{index: index, samples: samples, cfg: cfg, log: logger}, nil
}

// Assign returns the maskbits of objects at ra, dec.  Each object's bits
// are the OR of the pixel values of the images of its brick over all
// samples; objects in bricks with no image get the null mask.  Images are
// read once per brick.
func (a *Assigner) Assign(ra, dec []float64) (*Result, error) {
	if len(ra) != len(dec) {
		return nil, errors.Errorf("maskbits: %d ra values, %d dec values", len(ra), len(dec))
	}
	brick := make([]int, len(ra))
	for i := range ra {
		if brick[i] = a.index.Find(ra[i], dec[i]); brick[i] < 0 {
			return nil, &bricks.NotFoundError{RA: ra[i], Dec: dec[i]}
		}
	}
	order := make([]int, len(ra))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(i, j int) bool { return brick[i] < brick[j] })

	res := &Result{Mask: make([]int64, len(ra)), SubID: make([]uint8, len(ra))}
	nBricks, nNull := 0, 0
	for lo := 0; lo < len(order); {
		hi := lo + 1
		for hi < len(order) && brick[order[hi]] == brick[order[lo]] {
			hi++
		}
		objs := order[lo:hi]
		lo = hi
		nBricks++

		name := a.index.Brick(brick[objs[0]]).Name
		found := false
		for _, s := range a.samples {
			path, ok := s.Files[name]
			if !ok {
				continue
			}
			found = true
			m, err := ReadFile(path)
			if err != nil {
				return nil, err
			}
			if err := a.apply(m, s.ID, objs, ra, dec, res); err != nil {
				return nil, err
			}
		}
		if !found {
			nNull++
			for _, i := range objs {
				res.Mask[i] = a.cfg.NullMask
			}
			a.log.Debug().Str("brick", name).Int("objects", len(objs)).Msg("no maskbits file")
		}
	}
	a.log.Info().Int("objects", len(ra)).Int("bricks", nBricks).Int("null", nNull).
		Msg("maskbits assigned")
	return res, nil
}

func (a *Assigner) apply(m *Image, id uint8, objs []int, ra, dec []float64, res *Result) error {
	for _, i := range objs {
		x, y := m.WCS.WorldToPix(ra[i], dec[i])
		bit, err := pixel(m, math.Round(x), math.Round(y), ra[i], dec[i])
		if err != nil {
			return err
		}
		if !a.cfg.EBOSS {
			res.Mask[i] |= bit
			if bit&a.cfg.NullMask == 0 {
				res.SubID[i] = id
			}
			continue
		}
		if bit&EBOSSValid == 0 {
			continue
		}
		res.Mask[i] |= bit &^ EBOSSXYBug
		t, err := pixel(m, math.Trunc(x), math.Trunc(y), ra[i], dec[i])
		if err != nil {
			return err
		}
		res.Mask[i] |= t & EBOSSXYBug
		res.SubID[i] = id
	}
	return nil
}

func pixel(m *Image, x, y, ra, dec float64) (int64, error) {
	if x >= 0 && x < float64(m.Width) && y >= 0 && y < float64(m.Height) {
		v, _ := m.At(int(x), int(y))
		return v, nil
	}
	return 0, &PixelError{File: m.Name, X: x, Y: y, RA: ra, Dec: dec}
}
