// Public domain.

package maskbits

import (
	"bytes"
	"encoding/binary"
	"io"
	"reflect"
	"regexp"
	"strconv"

	"github.com/astrogo/fitsio"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// Tile compression algorithms, values of ZCMPTYPE.
const (
	Rice  = "RICE_1"
	Gzip1 = "GZIP_1"
	Gzip2 = "GZIP_2"
)

const dataColumn = "COMPRESSED_DATA"

var maxLenRE = regexp.MustCompile(`\((\d+)\)`)

// tiling describes a tile compressed image.
type tiling struct {
	width, height int
	bitpix        int
	tileW, tileH  int
	cmp           string
	blockSize     int
	bytePix       int
}

func readTiling(hdr *fitsio.Header) (*tiling, error) {
	t := &tiling{cmp: headerString(hdr, "ZCMPTYPE"), blockSize: 32}
	var ok bool
	if t.bitpix, ok = headerInt(hdr, "ZBITPIX"); !ok {
		return nil, errors.Wrap(ErrKeyword, "ZBITPIX")
	}
	switch t.bitpix {
	case 8, 16, 32, 64:
	default:
		return nil, errors.Errorf("maskbits: ZBITPIX %d is not an integer type", t.bitpix)
	}
	if n, _ := headerInt(hdr, "ZNAXIS"); n != 2 {
		return nil, errors.Wrapf(ErrNoImage, "ZNAXIS %d", n)
	}
	t.width, _ = headerInt(hdr, "ZNAXIS1")
	t.height, _ = headerInt(hdr, "ZNAXIS2")
	if t.width <= 0 || t.height <= 0 {
		return nil, errors.Wrapf(ErrNoImage, "dimensions %d x %d", t.width, t.height)
	}
	if t.tileW, ok = headerInt(hdr, "ZTILE1"); !ok {
		t.tileW = t.width
	}
	if t.tileH, ok = headerInt(hdr, "ZTILE2"); !ok {
		t.tileH = 1
	}
	if t.tileW <= 0 || t.tileH <= 0 {
		return nil, errors.Wrapf(ErrKeyword, "ZTILE %d x %d", t.tileW, t.tileH)
	}
	t.bytePix = t.bitpix / 8
	if t.cmp == Rice {
		t.bytePix = 4
	}
	for i := 1; ; i++ {
		name := headerString(hdr, "ZNAME"+strconv.Itoa(i))
		if name == "" {
			break
		}
		v, ok := headerInt(hdr, "ZVAL"+strconv.Itoa(i))
		if !ok {
			return nil, errors.Wrapf(ErrKeyword, "ZVAL%d", i)
		}
		switch name {
		case "BLOCKSIZE":
			t.blockSize = v
		case "BYTEPIX":
			t.bytePix = v
		}
	}
	return t, nil
}

// tiledImage decompresses a tile compressed image held in a binary table.
func tiledImage(tbl *fitsio.Table) (*Image, error) {
	hdr := tbl.Header()
	t, err := readTiling(hdr)
	if err != nil {
		return nil, err
	}
	switch t.cmp {
	case Rice, Gzip1, Gzip2:
	default:
		return nil, errors.Errorf("maskbits: compression %q not supported", t.cmp)
	}
	col := tbl.Index(dataColumn)
	if col < 0 {
		return nil, errors.Wrapf(ErrKeyword, "no %s column", dataColumn)
	}
	nx := (t.width + t.tileW - 1) / t.tileW
	ny := (t.height + t.tileH - 1) / t.tileH
	if tbl.NumRows() != int64(nx*ny) {
		return nil, errors.Errorf("maskbits: %d tiles, want %d", tbl.NumRows(), nx*ny)
	}

	// Variable length columns are only filled when the destination is at
	// least as long as the stored array, so buffers are sized up front.
	bufLen := t.tileW*t.tileH*(t.bitpix/8)*2 + 1024
	if m := maxLenRE.FindStringSubmatch(tbl.Col(col).Format); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			bufLen = n
		}
	}
	args := make([]interface{}, tbl.NumCols())
	for i := range args {
		args[i] = reflect.New(tbl.Col(i).Type()).Interface()
	}
	buf := make([]byte, bufLen)
	args[col] = &buf

	m := &Image{Width: t.width, Height: t.height, Bitpix: t.bitpix}
	m.Pix = make([]int64, t.width*t.height)
	tile := make([]int64, t.tileW*t.tileH)

	rows, err := tbl.Read(0, tbl.NumRows())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for r := 0; rows.Next(); r++ {
		for i := range buf {
			buf[i] = 0
		}
		if err := rows.Scan(args...); err != nil {
			return nil, errors.Wrapf(err, "tile %d", r)
		}
		x0 := (r % nx) * t.tileW
		y0 := (r / nx) * t.tileH
		w := min(t.tileW, t.width-x0)
		h := min(t.tileH, t.height-y0)
		p := tile[:w*h]
		if err := t.decode(buf, p); err != nil {
			return nil, errors.Wrapf(err, "tile %d", r)
		}
		for y := 0; y < h; y++ {
			copy(m.Pix[x0+(y0+y)*t.width:], p[y*w:(y+1)*w])
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := applyZero(hdr, m.Pix); err != nil {
		return nil, err
	}
	m.WCS, err = readTAN(hdr)
	return m, err
}

func (t *tiling) decode(src []byte, dst []int64) error {
	if t.cmp == Rice {
		return riceDecode(src, dst, t.bytePix, t.blockSize)
	}
	zr, err := gzip.NewReader(bytes.NewReader(src))
	if err != nil {
		return err
	}
	defer zr.Close()
	zr.Multistream(false)
	size := t.bitpix / 8
	raw := make([]byte, len(dst)*size)
	if _, err := io.ReadFull(zr, raw); err != nil {
		return errors.Wrap(err, "gzip tile")
	}
	if t.cmp == Gzip2 {
		raw = unshuffle(raw, size)
	}
	for i := range dst {
		b := raw[i*size : (i+1)*size]
		switch size {
		case 1:
			dst[i] = int64(b[0])
		case 2:
			dst[i] = int64(int16(binary.BigEndian.Uint16(b)))
		case 4:
			dst[i] = int64(int32(binary.BigEndian.Uint32(b)))
		default:
			dst[i] = int64(binary.BigEndian.Uint64(b))
		}
	}
	return nil
}

// unshuffle undoes the GZIP_2 byte shuffle, which stores the most
// significant bytes of all pixels first, then the next bytes, and so on.
func unshuffle(b []byte, size int) []byte {
	if size == 1 {
		return b
	}
	n := len(b) / size
	out := make([]byte, len(b))
	for k := 0; k < size; k++ {
		for i := 0; i < n; i++ {
			out[i*size+k] = b[k*n+i]
		}
	}
	return out
}
