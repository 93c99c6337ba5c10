// Public domain.

package bricks_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/skymask/brickmask/internal/bricks"
	"github.com/skymask/brickmask/internal/fitsutil"
	"github.com/skymask/brickmask/internal/fitsutil/fitstest"
)

// writeCatalog writes a gzipped brick catalogue for cap under legacy.
func writeCatalog(t *testing.T, legacy, cap string, names ...string) {
	path := bricks.BrickCatalogPath(legacy, "dr8", cap)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, fitstest.WriteFile(path, true,
		fitstest.Column{Name: "BRICKNAME", Strings: names},
		fitstest.Column{Name: "RA", Floats: make([]float64, len(names))}))
}

func testConfig(t *testing.T) bricks.ListConfig {
	cfg := bricks.DefaultListConfig()
	cfg.LegacyDir = t.TempDir()
	cfg.OutputDir = t.TempDir()
	return cfg
}

func readFile(t *testing.T, path string) string {
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestList(t *testing.T) {
	cfg := testConfig(t)
	writeCatalog(t, cfg.LegacyDir, "north", "0002m005", "0001m002", "0001m002")
	writeCatalog(t, cfg.LegacyDir, "south", "3599p300")

	written, err := bricks.List(cfg, zerolog.Nop())
	require.NoError(t, err)
	north := filepath.Join(cfg.OutputDir, "legacysurvey_maskbits_dr8_north.txt")
	south := filepath.Join(cfg.OutputDir, "legacysurvey_maskbits_dr8_south.txt")
	require.Equal(t, []string{north, south}, written)

	l := cfg.LegacyDir
	require.Equal(t,
		l+"/dr8/north/coadd/000/0001m002/legacysurvey-0001m002-maskbits.fits.fz\n"+
			l+"/dr8/north/coadd/000/0002m005/legacysurvey-0002m005-maskbits.fits.fz\n",
		readFile(t, north))
	require.Equal(t,
		l+"/dr8/south/coadd/359/3599p300/legacysurvey-3599p300-maskbits.fits.fz\n",
		readFile(t, south))

	// no temporary files left behind
	ents, err := os.ReadDir(cfg.OutputDir)
	require.NoError(t, err)
	require.Len(t, ents, 2)
}

func TestListMissingInput(t *testing.T) {
	cfg := testConfig(t)
	writeCatalog(t, cfg.LegacyDir, "north", "0001m002")

	written, err := bricks.List(cfg, zerolog.Nop())
	var mie *bricks.MissingInputError
	require.True(t, errors.As(err, &mie))
	require.Equal(t, bricks.BrickCatalogPath(cfg.LegacyDir, "dr8", "south"), mie.Path)
	require.Equal(t, "cannot access brick list: "+mie.Path, err.Error())
	require.ErrorIs(t, err, os.ErrNotExist)
	require.Len(t, written, 1)
	_, err = os.Stat(filepath.Join(cfg.OutputDir, "legacysurvey_maskbits_dr8_south.txt"))
	require.ErrorIs(t, err, os.ErrNotExist)

	// later caps are not processed
	cfg.Caps = []string{"east", "north"}
	require.NoError(t, os.Remove(written[0]))
	_, err = bricks.List(cfg, zerolog.Nop())
	require.True(t, errors.As(err, &mie))
	ents, err := os.ReadDir(cfg.OutputDir)
	require.NoError(t, err)
	require.Empty(t, ents)
}

func TestListDirectoryInput(t *testing.T) {
	cfg := testConfig(t)
	cfg.Caps = []string{"north"}
	require.NoError(t, os.MkdirAll(bricks.BrickCatalogPath(cfg.LegacyDir, "dr8", "north"), 0o755))
	_, err := bricks.List(cfg, zerolog.Nop())
	var mie *bricks.MissingInputError
	require.True(t, errors.As(err, &mie))
}

func TestListNameColumn(t *testing.T) {
	cfg := testConfig(t)
	cfg.Caps = []string{"north"}
	writeCatalog(t, cfg.LegacyDir, "north", "0001m002")
	cfg.NameColumn = "name"
	_, err := bricks.List(cfg, zerolog.Nop())
	require.ErrorIs(t, err, fitsutil.ErrNoColumn)
	_, err = os.Stat(filepath.Join(cfg.OutputDir, "legacysurvey_maskbits_dr8_north.txt"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestPaths(t *testing.T) {
	require.Equal(t, "/l/dr9/south/survey-bricks-dr9-south.fits.gz",
		bricks.BrickCatalogPath("/l", "dr9", "south"))
	require.Equal(t, "/l/dr9/south/coadd/123/1234p567/legacysurvey-1234p567-maskbits.fits.fz",
		bricks.MaskbitPath("/l", "dr9", "south", "1234p567"))
	require.Equal(t, "/l/dr9/south/coadd/ab/ab/legacysurvey-ab-maskbits.fits.fz",
		bricks.MaskbitPath("/l", "dr9", "south", "ab"))
	require.Equal(t, "legacysurvey_maskbits_dr9_north.txt", bricks.OutputFileName("dr9", "north"))
}

func TestUniqueNames(t *testing.T) {
	require.Equal(t, []string{"a", "b", "c"}, bricks.UniqueNames([]string{"c", "a", "b", "a", "c"}))
	require.Empty(t, bricks.UniqueNames(nil))
}
