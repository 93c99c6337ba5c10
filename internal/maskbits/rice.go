// Public domain.

package maskbits

import (
	"math/bits"

	"github.com/pkg/errors"
)

var errShortRice = errors.New("maskbits: Rice data ends early")

// riceParams returns the split size field width, its escape value and the
// raw value width for pixels of bytepix bytes.
func riceParams(bytepix int) (fsBits, fsMax, bBits int, ok bool) {
	switch bytepix {
	case 1:
		return 3, 6, 8, true
	case 2:
		return 4, 14, 16, true
	case 4:
		return 5, 25, 32, true
	}
	return 0, 0, 0, false
}

// riceReader reads bytes of a compressed tile.
type riceReader struct {
	src []byte
	i   int
}

func (r *riceReader) next() (uint32, error) {
	if r.i >= len(r.src) {
		return 0, errShortRice
	}
	b := r.src[r.i]
	r.i++
	return uint32(b), nil
}

// riceDecode decodes len(dst) pixels of bytepix bytes from src, as written
// by the RICE_1 tile compression of fpack.  Pixels of 1 byte are unsigned,
// wider ones signed.
func riceDecode(src []byte, dst []int64, bytepix, blockSize int) error {
	fsBits, fsMax, bBits, ok := riceParams(bytepix)
	if !ok {
		return errors.Errorf("maskbits: Rice BYTEPIX %d not supported", bytepix)
	}
	if blockSize <= 0 {
		return errors.Errorf("maskbits: Rice BLOCKSIZE %d not valid", blockSize)
	}
	if len(dst) == 0 {
		return nil
	}
	mask := uint32(1)<<(8*uint(bytepix)) - 1
	if bytepix == 4 {
		mask = ^uint32(0)
	}
	r := &riceReader{src: src}

	var last uint32
	for k := 0; k < bytepix; k++ {
		c, err := r.next()
		if err != nil {
			return err
		}
		last = last<<8 | c
	}
	store := func(i int, diff uint32) {
		if diff&1 == 0 {
			diff >>= 1
		} else {
			diff = ^(diff >> 1)
		}
		last = (diff + last) & mask
		switch bytepix {
		case 1:
			dst[i] = int64(uint8(last))
		case 2:
			dst[i] = int64(int16(uint16(last)))
		default:
			dst[i] = int64(int32(last))
		}
	}

	b, err := r.next()
	if err != nil {
		return err
	}
	nbits := 8
	for i := 0; i < len(dst); {
		nbits -= fsBits
		for nbits < 0 {
			c, err := r.next()
			if err != nil {
				return err
			}
			b = b<<8 | c
			nbits += 8
		}
		fs := int(b>>uint(nbits)) - 1
		b &= 1<<uint(nbits) - 1
		end := i + blockSize
		if end > len(dst) {
			end = len(dst)
		}
		switch {
		case fs < 0:
			// all differences zero
			for ; i < end; i++ {
				store(i, 0)
			}
		case fs == fsMax:
			// differences stored verbatim
			for ; i < end; i++ {
				k := bBits - nbits
				diff := b << uint(k)
				for k -= 8; k >= 0; k -= 8 {
					c, err := r.next()
					if err != nil {
						return err
					}
					diff |= c << uint(k)
				}
				if nbits > 0 {
					c, err := r.next()
					if err != nil {
						return err
					}
					diff |= c >> uint(-k)
					b = c & (1<<uint(nbits) - 1)
				} else {
					b = 0
				}
				store(i, diff)
			}
		default:
			for ; i < end; i++ {
				for b == 0 {
					c, err := r.next()
					if err != nil {
						return err
					}
					nbits += 8
					b = c
				}
				nzero := nbits - bits.Len32(b)
				nbits -= nzero + 1
				b ^= 1 << uint(nbits)
				nbits -= fs
				for nbits < 0 {
					c, err := r.next()
					if err != nil {
						return err
					}
					b = b<<8 | c
					nbits += 8
				}
				diff := uint32(nzero)<<uint(fs) | b>>uint(nbits)
				b &= 1<<uint(nbits) - 1
				store(i, diff)
			}
		}
	}
	return nil
}
