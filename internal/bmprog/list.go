// Public domain.

package bmprog

import (
	"github.com/spf13/cobra"

	"github.com/skymask/brickmask/internal/bricks"
)

func newListCommand(st *state) *cobra.Command {
	cfg := bricks.DefaultListConfig()
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List maskbit files of legacy survey bricks.",
		Long: `
List reads the brick names of each cap from

	<legacy-dir>/<release>/<cap>/survey-bricks-<release>-<cap>.fits.gz

and writes the path of the maskbits file of every distinct brick,

	<legacy-dir>/<release>/<cap>/coadd/<abc>/<brick>/legacysurvey-<brick>-maskbits.fits.fz

where <abc> is the first three characters of the brick name, to

	<output-dir>/legacysurvey_maskbits_<release>_<cap>.txt

Brick names are sorted.  Caps are processed in order; a missing brick
catalogue stops the run.
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := bricks.List(cfg, st.log)
			return err
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&cfg.Release, "release", cfg.Release, "Data release.")
	flags.StringSliceVar(&cfg.Caps, "caps", cfg.Caps, "Caps (hemispheres) to list, in order.")
	flags.StringVar(&cfg.LegacyDir, "legacy-dir", cfg.LegacyDir, "Root directory of the legacy survey data.")
	flags.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "Directory for the list files.")
	flags.StringVar(&cfg.NameColumn, "name-column", cfg.NameColumn, "Brick name column of the brick catalogues.")
	return cmd
}
