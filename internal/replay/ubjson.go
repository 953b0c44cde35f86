package replay

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// errTruncated reports input that ends inside a value.
var errTruncated = errors.New("ubjson: unexpected end of input")

// maxUBJSONDepth bounds container nesting. Replay documents nest three deep.
const maxUBJSONDepth = 64

// ubjsonReader decodes the subset of UBJSON written by replay recorders:
// objects, arrays (plain and strongly typed), strings, integers, floats,
// booleans and null. Strongly typed uint8/int8 arrays decode to []byte so the
// raw event stream is never expanded into []any.
type ubjsonReader struct {
	data  []byte
	pos   int
	depth int
}

func (r *ubjsonReader) readByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, errTruncated
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *ubjsonReader) peekByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, errTruncated
	}
	return r.data[r.pos], nil
}

func (r *ubjsonReader) take(n int) ([]byte, error) {
	if n < 0 || len(r.data)-r.pos < n {
		return nil, errTruncated
	}
	out := r.data[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

// readMarker returns the next type marker, skipping no-op markers.
func (r *ubjsonReader) readMarker() (byte, error) {
	for {
		b, err := r.readByte()
		if err != nil {
			return 0, err
		}
		if b != 'N' {
			return b, nil
		}
	}
}

// value decodes one value whose marker has not been consumed yet.
func (r *ubjsonReader) value() (any, error) {
	marker, err := r.readMarker()
	if err != nil {
		return nil, err
	}
	return r.typed(marker)
}

// typed decodes a value of the given marker type.
func (r *ubjsonReader) typed(marker byte) (any, error) {
	switch marker {
	case 'Z':
		return nil, nil
	case 'T':
		return true, nil
	case 'F':
		return false, nil
	case 'i', 'U', 'I', 'l', 'L':
		return r.integer(marker)
	case 'd':
		b, err := r.take(4)
		if err != nil {
			return nil, err
		}
		return float64(math.Float32frombits(binary.BigEndian.Uint32(b))), nil
	case 'D':
		b, err := r.take(8)
		if err != nil {
			return nil, err
		}
		return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
	case 'C':
		b, err := r.readByte()
		if err != nil {
			return nil, err
		}
		return string(rune(b)), nil
	case 'S', 'H':
		return r.str()
	case '[', '{':
		return r.container(marker)
	default:
		return nil, fmt.Errorf("ubjson: unknown marker %q at offset %d", marker, r.pos-1)
	}
}

func (r *ubjsonReader) container(marker byte) (any, error) {
	if r.depth >= maxUBJSONDepth {
		return nil, fmt.Errorf("ubjson: containers nested deeper than %d at offset %d", maxUBJSONDepth, r.pos-1)
	}
	r.depth++
	defer func() { r.depth-- }()
	if marker == '[' {
		return r.array()
	}
	return r.object()
}

func (r *ubjsonReader) integer(marker byte) (int64, error) {
	switch marker {
	case 'i':
		b, err := r.readByte()
		return int64(int8(b)), err
	case 'U':
		b, err := r.readByte()
		return int64(b), err
	case 'I':
		b, err := r.take(2)
		if err != nil {
			return 0, err
		}
		return int64(int16(binary.BigEndian.Uint16(b))), nil
	case 'l':
		b, err := r.take(4)
		if err != nil {
			return 0, err
		}
		return int64(int32(binary.BigEndian.Uint32(b))), nil
	case 'L':
		b, err := r.take(8)
		if err != nil {
			return 0, err
		}
		return int64(binary.BigEndian.Uint64(b)), nil
	default:
		return 0, fmt.Errorf("ubjson: marker %q is not an integer type", marker)
	}
}

func (r *ubjsonReader) length() (int, error) {
	marker, err := r.readMarker()
	if err != nil {
		return 0, err
	}
	n, err := r.integer(marker)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > int64(len(r.data)) {
		return 0, fmt.Errorf("ubjson: invalid length %d", n)
	}
	return int(n), nil
}

func (r *ubjsonReader) str() (string, error) {
	n, err := r.length()
	if err != nil {
		return "", err
	}
	b, err := r.take(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// containerHeader reads the optional $type and #count of an optimized
// container. count is -1 when absent.
func (r *ubjsonReader) containerHeader() (elem byte, count int, err error) {
	count = -1
	next, err := r.peekByte()
	if err != nil {
		return 0, 0, err
	}
	if next == '$' {
		r.pos++
		if elem, err = r.readByte(); err != nil {
			return 0, 0, err
		}
		next, err = r.peekByte()
		if err != nil {
			return 0, 0, err
		}
		if next != '#' {
			return 0, 0, errors.New("ubjson: typed container without count")
		}
	}
	if next == '#' {
		r.pos++
		if count, err = r.length(); err != nil {
			return 0, 0, err
		}
	}
	return elem, count, nil
}

func (r *ubjsonReader) array() (any, error) {
	elem, count, err := r.containerHeader()
	if err != nil {
		return nil, err
	}
	if (elem == 'U' || elem == 'i') && count >= 0 {
		b, err := r.take(count)
		if err != nil {
			return nil, err
		}
		return b, nil
	}

	var out []any
	for i := 0; count < 0 || i < count; i++ {
		var v any
		if elem != 0 {
			v, err = r.typed(elem)
		} else {
			var marker byte
			if marker, err = r.readMarker(); err != nil {
				return nil, err
			}
			if count < 0 && marker == ']' {
				return out, nil
			}
			v, err = r.typed(marker)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *ubjsonReader) object() (any, error) {
	elem, count, err := r.containerHeader()
	if err != nil {
		return nil, err
	}
	out := make(map[string]any)
	for i := 0; count < 0 || i < count; i++ {
		if count < 0 {
			next, err := r.peekByte()
			if err != nil {
				return nil, err
			}
			if next == '}' {
				r.pos++
				return out, nil
			}
			if next == 'N' {
				r.pos++
				i--
				continue
			}
		}
		key, err := r.str()
		if err != nil {
			return nil, err
		}
		var v any
		if elem != 0 {
			v, err = r.typed(elem)
		} else {
			v, err = r.value()
		}
		if err != nil {
			return nil, fmt.Errorf("ubjson: key %q: %w", key, err)
		}
		out[key] = v
	}
	return out, nil
}

// decodeUBJSON decodes a single top-level value.
func decodeUBJSON(data []byte) (any, error) {
	r := &ubjsonReader{data: data}
	return r.value()
}
