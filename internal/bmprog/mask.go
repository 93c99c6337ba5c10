// Public domain.

package bmprog

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/skymask/brickmask/internal/catalog"
	"github.com/skymask/brickmask/internal/eboss"
)

type maskCommand struct {
	st        *state
	cat       catalogFlags
	maskDir   string
	cfg       eboss.Config
	badPixels []string
	polygons  []string
}

func newMaskCommand(st *state) *cobra.Command {
	mc := &maskCommand{st: st, cfg: eboss.DefaultConfig()}
	cmd := &cobra.Command{
		Use:   "mask [flags] <input> <output>",
		Short: "Assign eBOSS ELG mask bits to a catalogue.",
		Long: `
Mask computes supplementary mask bits for the objects of a catalogue.

Objects in a bad healpix pixel get bit 8.  Objects inside the polygons of
the mangle files in the mask directory get bits 9, 10 and 11:

	ELG_centerpost.ply                      bit 9
	ELG_TDSSFES_62arcsec.pix.snap.balk.ply  bit 10
	ebosselg_badphot.26Aug2019.ply          bit 11

The files are available at
https://data.sdss.org/sas/dr16/eboss/lss/catalogs/DR16/ELGmasks

The bits are combined by bitwise OR with the prior mask column, if one is
given.  The output has one line per object: the input line, or ra and dec
for FITS input, followed by the mask value.
`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mc.run(args[0], args[1])
		},
	}
	flags := cmd.Flags()
	mc.cat.register(flags, true)
	flags.StringVar(&mc.maskDir, "mask-dir", ".", "Directory of the polygon mask files.")
	flags.BoolVar(&mc.cfg.Strict, "strict", false, "Fail if the prior mask already has any assigned bit set.")
	flags.BoolVar(&mc.cfg.LonLat, "lonlat", false,
		"Look up healpix pixels with the radian coordinates taken as lon/lat degrees; no default bad pixel is reachable.")
	flags.Int64Var(&mc.cfg.Nside, "nside", eboss.DefaultNside, "Healpix resolution of the bad pixel list.")
	flags.UintVar(&mc.cfg.PixelBit, "pixel-bit", eboss.DefaultPixelBit, "Bit set for objects in bad pixels.")
	flags.StringSliceVar(&mc.badPixels, "bad-pixels", nil,
		"Ring ordered bad healpix pixels, default the eBOSS ELG list.")
	flags.StringSliceVar(&mc.polygons, "polygons", nil,
		"Polygon files and bits as file:bit, default the eBOSS ELG masks.")
	return cmd
}

func (mc *maskCommand) config() (eboss.Config, error) {
	cfg := mc.cfg
	if len(mc.badPixels) > 0 {
		cfg.BadPixels = make([]int64, len(mc.badPixels))
		for i, s := range mc.badPixels {
			p, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return cfg, errors.Errorf("invalid bad pixel %q", s)
			}
			cfg.BadPixels[i] = p
		}
	}
	if len(mc.polygons) > 0 {
		cfg.Polygons = make([]eboss.PolygonMask, len(mc.polygons))
		for i, s := range mc.polygons {
			p, err := eboss.ParsePolygonMask(s)
			if err != nil {
				return cfg, err
			}
			cfg.Polygons[i] = p
		}
	}
	return cfg, nil
}

func (mc *maskCommand) run(input, output string) error {
	cfg, err := mc.config()
	if err != nil {
		return err
	}
	a, err := eboss.New(mc.maskDir, cfg, mc.st.log)
	if err != nil {
		return err
	}
	cat, err := mc.cat.read(input)
	if err != nil {
		return err
	}
	mc.st.log.Info().Str("file", input).Int("objects", cat.Len()).Msg("catalogue read")
	mask, err := a.Assign(cat.RA, cat.Dec, cat.Mask)
	if err != nil {
		return err
	}
	err = catalog.WriteASCIIFile(output, cat, func(i int) string {
		return strconv.Itoa(int(mask[i]))
	})
	if err != nil {
		return err
	}
	mc.st.log.Info().Str("file", output).Int("objects", len(mask)).Msg("mask written")
	return nil
}
