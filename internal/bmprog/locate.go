// Public domain.

package bmprog

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/skymask/brickmask/internal/bricks"
	"github.com/skymask/brickmask/internal/catalog"
)

func newLocateCommand(st *state) *cobra.Command {
	var cat catalogFlags
	var brickList string
	cmd := &cobra.Command{
		Use:   "locate [flags] <input> <output>",
		Short: "Find the bricks containing catalogue objects.",
		Long: `
Locate finds, for each object of a catalogue, the brick containing it.
Bricks are read from the BRICKNAME, RA1, RA2, DEC1 and DEC2 columns of a
FITS brick list such as survey-bricks.fits.gz, sorted by DEC1 then RA1.

The output has one line per object: the input line, or ra and dec for
FITS input, followed by the brick name.
`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if brickList == "" {
				return errors.New("locate: --bricks is required")
			}
			b, err := bricks.ReadBrickList(brickList)
			if err != nil {
				return err
			}
			x, err := bricks.NewIndex(b)
			if err != nil {
				return err
			}
			st.log.Info().Str("file", brickList).Int("bricks", x.Len()).Msg("brick list read")
			c, err := cat.read(args[0])
			if err != nil {
				return err
			}
			names, err := x.Locate(c.RA, c.Dec)
			if err != nil {
				return err
			}
			err = catalog.WriteASCIIFile(args[1], c, func(i int) string { return names[i] })
			if err != nil {
				return err
			}
			st.log.Info().Str("file", args[1]).Int("objects", c.Len()).Msg("bricks written")
			return nil
		},
	}
	flags := cmd.Flags()
	cat.register(flags, false)
	flags.StringVar(&brickList, "bricks", "", "FITS brick list.")
	return cmd
}
