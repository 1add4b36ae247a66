package interpreter

import (
	"encoding/binary"
	"math"

	"github.com/kbinterp/ksyinterp/pkg/schema"
)

// resolveEndian applies the Open Question decision on endianness: an
// explicit "le"/"be" type suffix always wins; otherwise the enclosing
// type's meta.endian governs, and a schema that sets neither defaults to
// little-endian (matching upstream Kaitai Struct's own default, which the
// original source's byte-order fallback got backwards for the big-endian
// case).
func resolveEndian(pure schema.PureType, metaEndian schema.Endian) schema.Endian {
	if pure.Endian != schema.EndianDefault {
		return pure.Endian
	}
	if metaEndian != schema.EndianDefault {
		return metaEndian
	}
	return schema.EndianLittle
}

// decodeFixedWidth reinterprets raw (already read, already process'd)
// bytes as the numeric value pure/endian describe.
func decodeFixedWidth(raw []byte, pure schema.PureType, endian schema.Endian) (any, error) {
	bo := binary.ByteOrder(binary.LittleEndian)
	if endian == schema.EndianBig {
		bo = binary.BigEndian
	}
	switch pure.Kind {
	case schema.KindUnsignedInt:
		switch pure.Width {
		case 1:
			return uint64(raw[0]), nil
		case 2:
			return uint64(bo.Uint16(raw)), nil
		case 4:
			return uint64(bo.Uint32(raw)), nil
		case 8:
			return bo.Uint64(raw), nil
		}
	case schema.KindSignedInt:
		switch pure.Width {
		case 1:
			return int64(int8(raw[0])), nil
		case 2:
			return int64(int16(bo.Uint16(raw))), nil
		case 4:
			return int64(int32(bo.Uint32(raw))), nil
		case 8:
			return int64(bo.Uint64(raw)), nil
		}
	case schema.KindFloat:
		switch pure.Width {
		case 4:
			return float64(math.Float32frombits(bo.Uint32(raw))), nil
		case 8:
			return math.Float64frombits(bo.Uint64(raw)), nil
		}
	case schema.KindBool:
		return raw[0] != 0, nil
	}
	return nil, nil
}
