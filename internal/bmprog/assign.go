// Public domain.

package bmprog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/skymask/brickmask/internal/bricks"
	"github.com/skymask/brickmask/internal/catalog"
	"github.com/skymask/brickmask/internal/maskbits"
)

type assignCommand struct {
	st        *state
	cat       catalogFlags
	brickList string
	samples   []string
	subIDs    []string
	nullMask  int64
	eboss     bool
	outFormat string
	maskName  string
	subName   string
}

func newAssignCommand(st *state) *cobra.Command {
	ac := &assignCommand{st: st}
	cmd := &cobra.Command{
		Use:   "assign [flags] <input> <output>",
		Short: "Assign legacy survey maskbits to a catalogue.",
		Long: `
Assign finds the brick of each catalogue object, projects the object onto
the maskbits image of the brick, and takes the value of the nearest pixel.
Bricks are read from a FITS brick list as by locate.  Maskbits files are
given by samples: list files such as those written by list, one path per
line.  Every sample holding a file for a brick contributes its pixel
value by bitwise OR.  Objects in bricks with no file in any sample get the
null mask.  An object projecting outside the image of its brick is an
error.

Each object also gets the ID of the last sample whose pixel does not have
any bit of the null mask set, 0 if none.  IDs default to the sample
index, counting from 0, and are written when there is more than one
sample or IDs are given.

With --eboss, pixels of the eBOSS maskbits images are used only if bit 0
is set, and bit 2 is taken from the pixel at the truncated rather than
the rounded coordinates.

ASCII output has one line per object: the input line, or ra and dec for
FITS input, followed by the mask and the sample ID.  FITS output copies
the columns of FITS input, or ra and dec of ASCII input, and adds the
mask and sample ID columns.
`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ac.run(args[0], args[1])
		},
	}
	flags := cmd.Flags()
	ac.cat.register(flags, false)
	flags.StringVar(&ac.brickList, "bricks", "", "FITS brick list.")
	flags.StringSliceVar(&ac.samples, "samples", nil, "Lists of maskbits files, one per sample.")
	flags.StringSliceVar(&ac.subIDs, "subsample-ids", nil,
		fmt.Sprintf("Sample IDs, 0 to %d, one per sample.", maskbits.MaxSubsample))
	flags.Int64Var(&ac.nullMask, "null-mask", -1,
		"Mask of objects in bricks without maskbits files, -1 for 1, or 0 with --eboss.")
	flags.BoolVar(&ac.eboss, "eboss", false, "Apply the eBOSS maskbits conventions.")
	flags.StringVar(&ac.outFormat, "output-format", "auto", "Output format: ascii, fits, or auto to choose by file name.")
	flags.StringVar(&ac.maskName, "mask-column", "MASKBITS", "FITS output column of the mask.")
	flags.StringVar(&ac.subName, "subid-column", "SUBID", "FITS output column of the sample ID.")
	return cmd
}

func (ac *assignCommand) config() maskbits.Config {
	cfg := maskbits.Config{NullMask: ac.nullMask, EBOSS: ac.eboss}
	if cfg.NullMask < 0 {
		cfg.NullMask = maskbits.DefaultNullMask
		if ac.eboss {
			cfg.NullMask = 0
		}
	}
	return cfg
}

func (ac *assignCommand) readSamples() ([]*maskbits.Sample, error) {
	if len(ac.samples) == 0 {
		return nil, errors.New("assign: --samples is required")
	}
	if len(ac.subIDs) > 0 && len(ac.subIDs) != len(ac.samples) {
		return nil, errors.Errorf("assign: %d subsample IDs for %d samples", len(ac.subIDs), len(ac.samples))
	}
	s := make([]*maskbits.Sample, len(ac.samples))
	for i, path := range ac.samples {
		id := uint64(i)
		if len(ac.subIDs) > 0 {
			var err error
			if id, err = strconv.ParseUint(ac.subIDs[i], 10, 8); err != nil {
				return nil, errors.Errorf("assign: invalid subsample ID %q", ac.subIDs[i])
			}
		} else if id > maskbits.MaxSubsample {
			return nil, errors.Errorf("assign: more than %d samples", maskbits.MaxSubsample+1)
		}
		var err error
		if s[i], err = maskbits.ReadSample(path, uint8(id)); err != nil {
			return nil, err
		}
		ac.st.log.Debug().Str("file", path).Uint8("id", s[i].ID).Int("bricks", len(s[i].Files)).
			Msg("sample read")
	}
	return s, nil
}

func (ac *assignCommand) fitsOutput(path string) (bool, error) {
	switch strings.ToLower(ac.outFormat) {
	case "ascii":
		return false, nil
	case "fits":
		return true, nil
	case "auto", "":
		f := catalogFlags{format: "auto"}
		return f.isFITS(path)
	}
	return false, errors.Errorf("unknown output format %q", ac.outFormat)
}

func (ac *assignCommand) run(input, output string) error {
	if ac.brickList == "" {
		return errors.New("assign: --bricks is required")
	}
	fitsOut, err := ac.fitsOutput(output)
	if err != nil {
		return err
	}
	samples, err := ac.readSamples()
	if err != nil {
		return err
	}
	b, err := bricks.ReadBrickList(ac.brickList)
	if err != nil {
		return err
	}
	x, err := bricks.NewIndex(b)
	if err != nil {
		return err
	}
	ac.st.log.Info().Str("file", ac.brickList).Int("bricks", x.Len()).Msg("brick list read")
	a, err := maskbits.New(x, samples, ac.config(), ac.st.log)
	if err != nil {
		return err
	}
	cat, err := ac.cat.read(input)
	if err != nil {
		return err
	}
	ac.st.log.Info().Str("file", input).Int("objects", cat.Len()).Msg("catalogue read")
	res, err := a.Assign(cat.RA, cat.Dec)
	if err != nil {
		return err
	}

	withSub := len(samples) > 1 || len(ac.subIDs) > 0
	if fitsOut {
		cols := []catalog.Column{{Name: ac.maskName, Format: "K",
			Value: func(i int) interface{} { return res.Mask[i] }}}
		if withSub {
			cols = append(cols, catalog.Column{Name: ac.subName, Format: "B",
				Value: func(i int) interface{} { return res.SubID[i] }})
		}
		err = catalog.WriteFITSFile(output, cat, cols)
	} else {
		err = catalog.WriteASCIIFile(output, cat, func(i int) string {
			s := strconv.FormatInt(res.Mask[i], 10)
			if withSub {
				s += " " + strconv.Itoa(int(res.SubID[i]))
			}
			return s
		})
	}
	if err != nil {
		return err
	}
	ac.st.log.Info().Str("file", output).Int("objects", cat.Len()).Bool("fits", fitsOut).Msg("maskbits written")
	return nil
}
