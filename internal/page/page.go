// Package page implements Cottontail's fixed-size byte-page primitive
// (§4.1): bounds-checked typed accessors over a single contiguous region.
package page

import (
	"encoding/binary"
	"math"

	"github.com/cottontaildb/cottontail"
)

// Page wraps a fixed-size byte region. Accessors read/write integer
// widths (1/2/4/8 bytes), IEEE-754 float/double, and raw byte slices, all
// little-endian (§6 "Persisted state layout").
type Page struct {
	id   ID
	data []byte
}

// ID identifies a page within a column store's segment file.
type ID uint64

// New allocates a zeroed page of the given capacity.
func New(id ID, size int) *Page {
	return &Page{id: id, data: make([]byte, size)}
}

// Wrap adapts an existing byte slice (e.g. one borrowed from a buffer
// pool's arena) as a Page without copying.
func Wrap(id ID, data []byte) *Page {
	return &Page{id: id, data: data}
}

func (p *Page) ID() ID        { return p.id }
func (p *Page) Capacity() int { return len(p.data) }
func (p *Page) Bytes() []byte { return p.data }

// checkRange validates that [offset, offset+width) lies within capacity,
// returning the out-of-range bounds error kind (§4.1 bounds policy).
func (p *Page) checkRange(offset, width int) error {
	if offset < 0 || offset+width > len(p.data) {
		return cottontail.NewBoundsError(cottontail.BoundsSubkindOutOfRange,
			"page access out of range").
			WithDetail("offset", offset).WithDetail("width", width).WithDetail("capacity", len(p.data))
	}
	return nil
}

func (p *Page) GetByte(offset int) (byte, error) {
	if err := p.checkRange(offset, 1); err != nil {
		return 0, err
	}
	return p.data[offset], nil
}

func (p *Page) PutByte(offset int, v byte) error {
	if err := p.checkRange(offset, 1); err != nil {
		return err
	}
	p.data[offset] = v
	return nil
}

func (p *Page) GetShort(offset int) (int16, error) {
	if err := p.checkRange(offset, 2); err != nil {
		return 0, err
	}
	return int16(binary.LittleEndian.Uint16(p.data[offset:])), nil
}

func (p *Page) PutShort(offset int, v int16) error {
	if err := p.checkRange(offset, 2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(p.data[offset:], uint16(v))
	return nil
}

func (p *Page) GetInt(offset int) (int32, error) {
	if err := p.checkRange(offset, 4); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(p.data[offset:])), nil
}

func (p *Page) PutInt(offset int, v int32) error {
	if err := p.checkRange(offset, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(p.data[offset:], uint32(v))
	return nil
}

func (p *Page) GetLong(offset int) (int64, error) {
	if err := p.checkRange(offset, 8); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(p.data[offset:])), nil
}

func (p *Page) PutLong(offset int, v int64) error {
	if err := p.checkRange(offset, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(p.data[offset:], uint64(v))
	return nil
}

func (p *Page) GetFloat(offset int) (float32, error) {
	bits, err := p.GetInt(offset)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(uint32(bits)), nil
}

func (p *Page) PutFloat(offset int, v float32) error {
	return p.PutInt(offset, int32(math.Float32bits(v)))
}

func (p *Page) GetDouble(offset int) (float64, error) {
	bits, err := p.GetLong(offset)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(uint64(bits)), nil
}

func (p *Page) PutDouble(offset int, v float64) error {
	return p.PutLong(offset, int64(math.Float64bits(v)))
}

// GetBytes reads n bytes starting at offset.
func (p *Page) GetBytes(offset, n int) ([]byte, error) {
	if err := p.checkRange(offset, n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, p.data[offset:offset+n])
	return out, nil
}

// PutBytes writes v starting at offset. Unlike the fixed-width accessors,
// writing a slice longer than the remaining capacity fails with the
// distinct buffer-overflow bounds subkind rather than out-of-range (§4.1:
// "these two error kinds are distinct so the caller can distinguish a
// too-large single value from a too-long array write").
func (p *Page) PutBytes(offset int, v []byte) error {
	if offset < 0 || offset > len(p.data) {
		return cottontail.NewBoundsError(cottontail.BoundsSubkindOutOfRange, "page write offset out of range").
			WithDetail("offset", offset).WithDetail("capacity", len(p.data))
	}
	if offset+len(v) > len(p.data) {
		return cottontail.NewBoundsError(cottontail.BoundsSubkindOverflow, "byte slice write exceeds remaining page capacity").
			WithDetail("offset", offset).WithDetail("length", len(v)).WithDetail("capacity", len(p.data))
	}
	copy(p.data[offset:], v)
	return nil
}
