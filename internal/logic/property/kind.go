package property

import (
	"encoding/binary"
	"fmt"

	"github.com/cjeanneret/remocam/internal/hw/sdk"
)

// Kind is the numeric shape of a property's raw value: element width and
// signedness.
type Kind uint8

const (
	Uint8 Kind = iota
	Int8
	Uint16
	Int16
	Uint32
	Int32
	Uint64
)

var kindInfo = [...]struct {
	name   string
	width  int
	signed bool
	dtype  sdk.DataType
}{
	Uint8:  {"uint8", 1, false, sdk.TypeUInt8},
	Int8:   {"int8", 1, true, sdk.TypeInt8},
	Uint16: {"uint16", 2, false, sdk.TypeUInt16},
	Int16:  {"int16", 2, true, sdk.TypeInt16},
	Uint32: {"uint32", 4, false, sdk.TypeUInt32},
	Int32:  {"int32", 4, true, sdk.TypeInt32},
	Uint64: {"uint64", 8, false, sdk.TypeUInt64},
}

func (k Kind) String() string { return kindInfo[k].name }

// Width is the element size in bytes.
func (k Kind) Width() int { return kindInfo[k].width }

// Signed reports whether raw values are two's complement.
func (k Kind) Signed() bool { return kindInfo[k].signed }

// DataType is the transport type tag used when writing a value of this kind.
func (k Kind) DataType() sdk.DataType { return kindInfo[k].dtype }

// Mask keeps the low Width bytes of a raw value.
func (k Kind) Mask() uint64 {
	if k.Width() == 8 {
		return ^uint64(0)
	}
	return 1<<(8*k.Width()) - 1
}

// signExtend interprets the masked raw value as two's complement.
func (k Kind) signExtend(raw uint64) int64 {
	raw &= k.Mask()
	if !k.Signed() {
		return int64(raw)
	}
	shift := 64 - 8*k.Width()
	return int64(raw<<shift) >> shift
}

// elements splits a packed little-endian array into raw elements.
func (k Kind) elements(b []byte) ([]uint64, error) {
	w := k.Width()
	if len(b)%w != 0 {
		return nil, fmt.Errorf("array of %d bytes is not a multiple of %s width", len(b), k)
	}
	out := make([]uint64, len(b)/w)
	for i := range out {
		chunk := b[i*w : (i+1)*w]
		switch w {
		case 1:
			out[i] = uint64(chunk[0])
		case 2:
			out[i] = uint64(binary.LittleEndian.Uint16(chunk))
		case 4:
			out[i] = uint64(binary.LittleEndian.Uint32(chunk))
		default:
			out[i] = binary.LittleEndian.Uint64(chunk)
		}
	}
	return out, nil
}

// Pack is the inverse of elements; transports use it to build possible-value
// arrays.
func (k Kind) Pack(raws ...uint64) []byte {
	w := k.Width()
	b := make([]byte, len(raws)*w)
	for i, r := range raws {
		chunk := b[i*w : (i+1)*w]
		switch w {
		case 1:
			chunk[0] = byte(r)
		case 2:
			binary.LittleEndian.PutUint16(chunk, uint16(r))
		case 4:
			binary.LittleEndian.PutUint32(chunk, uint32(r))
		default:
			binary.LittleEndian.PutUint64(chunk, r)
		}
	}
	return b
}
