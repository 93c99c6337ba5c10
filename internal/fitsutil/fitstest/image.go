// Public domain.

package fitstest

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/astrogo/fitsio"

	"github.com/skymask/brickmask/internal/fitsutil"
)

// WCS holds the keywords of a projection, RA---TAN, DEC--TAN unless CTYPE
// is set.
type WCS struct {
	CTYPE        [2]string
	CRVAL, CRPIX [2]float64
	CD           [2][2]float64
}

func (w *WCS) cards() []fitsio.Card {
	ctype := w.CTYPE
	if ctype[0] == "" {
		ctype = [2]string{"RA---TAN", "DEC--TAN"}
	}
	return []fitsio.Card{
		{Name: "CTYPE1", Value: ctype[0]},
		{Name: "CTYPE2", Value: ctype[1]},
		{Name: "CRVAL1", Value: w.CRVAL[0]},
		{Name: "CRVAL2", Value: w.CRVAL[1]},
		{Name: "CRPIX1", Value: w.CRPIX[0]},
		{Name: "CRPIX2", Value: w.CRPIX[1]},
		{Name: "CD1_1", Value: w.CD[0][0]},
		{Name: "CD1_2", Value: w.CD[0][1]},
		{Name: "CD2_1", Value: w.CD[1][0]},
		{Name: "CD2_2", Value: w.CD[1][1]},
	}
}

// Image returns a FITS file whose primary HDU is a 16 bit image of width
// by height pixels, row by row, written with fitsio.
func Image(width, height int, pix []int16, w WCS) ([]byte, error) {
	var buf bytes.Buffer
	f, err := fitsio.Create(&buf)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img := fitsio.NewImage(16, []int{width, height})
	defer img.Close()
	if err := img.Header().Append(w.cards()...); err != nil {
		return nil, err
	}
	if err := img.Write(pix); err != nil {
		return nil, err
	}
	if err := f.Write(img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FitsioTable returns the table of Table, written by fitsio rather than
// by hand.
func FitsioTable(cols ...Column) ([]byte, error) {
	var buf bytes.Buffer
	f, err := fitsio.Create(&buf)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	phdu, err := fitsio.NewPrimaryHDU(nil)
	if err != nil {
		return nil, err
	}
	if err := f.Write(phdu); err != nil {
		return nil, err
	}
	def := make([]fitsio.Column, len(cols))
	for i := range cols {
		def[i] = fitsio.Column{Name: cols[i].Name, Format: cols[i].form()}
	}
	tbl, err := fitsio.NewTable("TABLE", def, fitsio.BINARY_TBL)
	if err != nil {
		return nil, err
	}
	defer tbl.Close()
	rows := 0
	if len(cols) > 0 {
		rows = cols[0].len()
	}
	args := make([]interface{}, len(cols))
	for r := 0; r < rows; r++ {
		for i := range cols {
			c := &cols[i]
			switch {
			case c.Strings != nil:
				args[i] = fitsutil.StringCell(c.Strings[r], c.width())
			case c.Floats != nil:
				args[i] = &c.Floats[r]
			default:
				args[i] = &c.Int16s[r]
			}
		}
		if err := tbl.Write(args...); err != nil {
			return nil, err
		}
	}
	if err := f.Write(tbl); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Tile compression algorithms.
const (
	Rice1 = "RICE_1"
	Gzip1 = "GZIP_1"
	Gzip2 = "GZIP_2"
)

// CompressedImage returns a FITS file with an empty primary HDU and a tile
// compressed 16 bit image in the layout of fpack: a binary table with one
// row of compressed bytes per tile of tileH rows.
func CompressedImage(width, height, tileH int, pix []int16, w WCS, cmp string) ([]byte, error) {
	var buf bytes.Buffer
	f, err := fitsio.Create(&buf)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	phdu, err := fitsio.NewPrimaryHDU(nil)
	if err != nil {
		return nil, err
	}
	if err := f.Write(phdu); err != nil {
		return nil, err
	}
	tbl, err := fitsio.NewTable("COMPRESSED_IMAGE",
		[]fitsio.Column{{Name: "COMPRESSED_DATA", Format: "1PB"}}, fitsio.BINARY_TBL)
	if err != nil {
		return nil, err
	}
	defer tbl.Close()
	cards := []fitsio.Card{
		{Name: "ZIMAGE", Value: true},
		{Name: "ZBITPIX", Value: 16},
		{Name: "ZNAXIS", Value: 2},
		{Name: "ZNAXIS1", Value: width},
		{Name: "ZNAXIS2", Value: height},
		{Name: "ZTILE1", Value: width},
		{Name: "ZTILE2", Value: tileH},
		{Name: "ZCMPTYPE", Value: cmp},
	}
	if cmp == Rice1 {
		cards = append(cards,
			fitsio.Card{Name: "ZNAME1", Value: "BLOCKSIZE"},
			fitsio.Card{Name: "ZVAL1", Value: 32},
			fitsio.Card{Name: "ZNAME2", Value: "BYTEPIX"},
			fitsio.Card{Name: "ZVAL2", Value: 2},
		)
	}
	if err := tbl.Header().Append(append(cards, w.cards()...)...); err != nil {
		return nil, err
	}
	for y0 := 0; y0 < height; y0 += tileH {
		y1 := y0 + tileH
		if y1 > height {
			y1 = height
		}
		tile := pix[y0*width : y1*width]
		var data []byte
		switch cmp {
		case Rice1:
			data = Rice(tile, 32)
		case Gzip1:
			data = Gzip(bigEndian(tile))
		case Gzip2:
			data = Gzip(shuffle(bigEndian(tile)))
		default:
			return nil, fmt.Errorf("fitstest: compression %q", cmp)
		}
		if err := tbl.Write(data); err != nil {
			return nil, err
		}
	}
	if err := f.Write(tbl); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func bigEndian(pix []int16) []byte {
	b := make([]byte, 2*len(pix))
	for i, v := range pix {
		binary.BigEndian.PutUint16(b[2*i:], uint16(v))
	}
	return b
}

// shuffle stores the high bytes of all 16 bit values, then the low bytes.
func shuffle(b []byte) []byte {
	n := len(b) / 2
	out := make([]byte, len(b))
	for i := 0; i < n; i++ {
		out[i] = b[2*i]
		out[n+i] = b[2*i+1]
	}
	return out
}

type bitWriter struct {
	buf []byte
	acc byte
	n   uint
}

func (w *bitWriter) write(v uint32, nbits int) {
	for i := nbits - 1; i >= 0; i-- {
		w.acc = w.acc<<1 | byte(v>>uint(i)&1)
		if w.n++; w.n == 8 {
			w.buf = append(w.buf, w.acc)
			w.acc, w.n = 0, 0
		}
	}
}

func (w *bitWriter) bytes() []byte {
	if w.n > 0 {
		w.buf = append(w.buf, w.acc<<(8-w.n))
	}
	return w.buf
}

// Rice compresses 16 bit pixels as the RICE_1 algorithm with BYTEPIX 2
// and the given block size.
func Rice(pix []int16, blockSize int) []byte {
	const fsBits, fsMax, bBits = 4, 14, 16
	var w bitWriter
	if len(pix) == 0 {
		return nil
	}
	last := uint16(pix[0])
	w.write(uint32(last), 16)
	diff := make([]uint32, blockSize)
	for i := 0; i < len(pix); i += blockSize {
		n := blockSize
		if len(pix)-i < n {
			n = len(pix) - i
		}
		sum := 0.
		for j := 0; j < n; j++ {
			next := uint16(pix[i+j])
			d := int32(int16(next - last))
			if d < 0 {
				diff[j] = uint32(^(d << 1))
			} else {
				diff[j] = uint32(d << 1)
			}
			sum += float64(diff[j])
			last = next
		}
		dpsum := (sum - float64(n/2) - 1) / float64(n)
		if dpsum < 0 {
			dpsum = 0
		}
		psum := uint32(dpsum) >> 1
		fs := 0
		for ; psum > 0; fs++ {
			psum >>= 1
		}
		switch {
		case fs >= fsMax:
			w.write(fsMax+1, fsBits)
			for _, d := range diff[:n] {
				w.write(d, bBits)
			}
		case fs == 0 && sum == 0:
			w.write(0, fsBits)
		default:
			w.write(uint32(fs+1), fsBits)
			for _, d := range diff[:n] {
				w.write(0, int(d>>uint(fs)))
				w.write(1, 1)
				w.write(d, fs)
			}
		}
	}
	return w.bytes()
}
