/*
Command brickmask flags catalogue objects with the maskbits of the DESI
legacy imaging surveys and with supplementary mask bits, and works with the
brick layout of the surveys.

Contents

Version 0.1

  Program overview
  Installing
  Command line usage
  Configuration
  File formats
  Maskbits images
  Mask bits


Program overview

Brickmask has four commands.

Assign reads a catalogue of sky positions and gives each object the value
of the pixel it falls on in the maskbits image of its brick.  Images of
several samples, such as the north and south hemispheres, are combined by
bitwise OR, and each object records the sample that assigned it.

Mask reads a catalogue of sky positions, optionally with a mask column
already assigned by the brickmask C program, and adds the eBOSS ELG
supplementary mask bits.  These flag objects in a list of bad healpix
pixels and objects inside the polygons of three mangle polygon files.

List reads the brick catalogue of each hemisphere of a legacy survey data
release and writes the paths of the maskbits files of all bricks, one per
line.  The lists are the samples of assign.

Locate finds the brick containing each object of a catalogue.

Sample run:

A catalogue with ra, dec and a prior mask in columns 1, 2 and 4,

  # ra        dec      z      mask
  151.27734   2.14362  0.873  0
  36.48291   -0.50117  0.912  2

and the ELG polygon files in elgmasks/,

  brickmask mask --mask-dir elgmasks --mask-col 4 elg.txt elg_mask.txt

writes each input line followed by the new mask value.  With the data
release in /global/dr9,

  brickmask list --release dr9 --legacy-dir /global --caps north,south
  brickmask assign --bricks /global/dr9/survey-bricks.fits.gz \
    --samples legacysurvey_maskbits_dr9_north.txt,legacysurvey_maskbits_dr9_south.txt \
    elg.fits elg_maskbits.fits

copies elg.fits with the columns MASKBITS and SUBID added.


Installing

You need Go 1.21 or later.  Then type

    go install github.com/skymask/brickmask@latest


Command line usage

  brickmask assign [flags] <input> <output>
  brickmask mask [flags] <input> <output>
  brickmask list [flags]
  brickmask locate [flags] <input> <output>
  brickmask version

brickmask help <command> shows the flags of a command.  All commands take

  -c, --config <file>   TOML configuration file
  --log-level <level>   debug, info, warn, error or disabled
  --log-console         human readable log lines instead of JSON

Logs go to standard error.  On failure the command prints a line starting
with "Error:" to standard error and exits with status 1.  This includes a
brick catalogue missing for list, which the C program reported on standard
output.


Configuration

Every flag may be given in three places.  In order of precedence:

  1. the command line
  2. an environment variable BRICKMASK_<FLAG>, the flag name in upper
     case with dashes replaced by underscores, for example
     BRICKMASK_MASK_DIR
  3. the TOML file named by --config, with keys equal to flag names

A configuration file may only contain keys that are flags of the command
being run.  For example, for the mask command:

  mask-dir = "/data/eboss/ELGmasks"
  mask-col = 4
  polygons = ["ELG_centerpost.ply:9", "ebosselg_badphot.26Aug2019.ply:11"]


File formats

ASCII catalogues are white space separated columns.  Empty lines and lines
starting with the comment character, # by default, are skipped.  Columns
are numbered from 1 and selected with --ra-col, --dec-col and --mask-col.

FITS catalogues are read from the first binary table, gzip compressed or
not.  Columns are selected by name with --ra-name, --dec-name and
--mask-name; names match regardless of case.  With --format auto, the
default, files named .fits, .fit or .fts, optionally followed by .gz, are
read as FITS.

Output of mask and locate is ASCII: each input line, or ra and dec for
FITS input, followed by a space and the computed value.  Assign writes
ASCII the same way, followed by the sample ID when there is more than one
sample, or FITS, chosen by --output-format or by the output file name.
FITS output is one binary table holding the columns of FITS input, or RA
and DEC of ASCII input, then the mask (--mask-column, 64 bit integer) and
sample ID (--subid-column, 8 bit unsigned) columns.  Output files are
written completely or not at all.

Polygon files are in the mangle polygon format.

Brick catalogues are the legacy survey survey-bricks files.  List reads
the brickname column, locate and assign read BRICKNAME, RA1, RA2, DEC1 and
DEC2.

Sample lists have one maskbits file path per line, named
legacysurvey-<brick>-maskbits.fits with an optional .fz or .gz suffix.


Maskbits images

Maskbits images are 2-D integer images with an RA---TAN, DEC--TAN world
coordinate system given by CRVAL, CRPIX and CD keywords.  The first image
of the file is used, stored plainly or tile compressed by fpack with
RICE_1, GZIP_1 or GZIP_2.  An object is assigned the pixel nearest its
projected position; a position outside the image is an error.

Objects in bricks with no image in any sample get the null mask,
--null-mask, by default 1, the legacy survey bit for pixels outside the
primary brick area.  The sample ID of an object is that of the last
sample whose pixel has no null mask bit set.

With --eboss the images are the eBOSS maskbits: pixels without bit 0 are
skipped, bit 2 comes from the pixel at truncated rather than rounded
coordinates, and the null mask defaults to 0.


Mask bits

  bit 8    healpix pixel (nside 1024, ring order) in the bad pixel list
  bit 9    ELG_centerpost.ply
  bit 10   ELG_TDSSFES_62arcsec.pix.snap.balk.ply
  bit 11   ebosselg_badphot.26Aug2019.ply

Bits are combined with the prior mask by bitwise OR.  With --strict, a
prior mask that already has one of these bits set is an error.

The pixel of an object at ra, dec is found at colatitude 90 - dec and
longitude 360 - ra.  --lonlat instead passes these two angles, in
radians, as longitude and latitude in degrees, as the eBOSS_ELG_extra
script did.  The resulting positions all lie at longitude 0 to 3.15 and
latitude 0 to 6.3 degrees, where the default list has no pixel, so bit 8
is never set in this mode with the default list.

The masks are described in https://arxiv.org/abs/2007.09007 and
https://arxiv.org/abs/2007.08997.

-------------
Public domain.
*/
package main
