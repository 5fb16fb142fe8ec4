package term

import (
	"encoding/binary"
	"io"
	"math"
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zlib"
)

// Marshal returns the external term format representation of t,
// starting with the version byte.
func Marshal(t Term) ([]byte, error) {
	dst := make([]byte, 1, 64)
	dst[0] = Version

	return appendTerm(dst, t)
}

// Encode writes the external term format representation of t to w.
func Encode(w io.Writer, t Term) error {
	b, err := Marshal(t)
	if err != nil {
		return err
	}

	_, err = w.Write(b)
	return err
}

// EncodeCompressed writes t to w as a zlib-compressed external term.
// level must be a valid zlib compression level.
func EncodeCompressed(w io.Writer, t Term, level int) error {
	body, err := appendTerm(nil, t)
	if err != nil {
		return err
	}

	var hdr [6]byte
	hdr[0] = Version
	hdr[1] = tagCompressed
	binary.BigEndian.PutUint32(hdr[2:], uint32(len(body)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}

	zw, err := zlib.NewWriterLevel(w, level)
	if err != nil {
		return err
	}
	if _, err := zw.Write(body); err != nil {
		return err
	}

	return zw.Close()
}

// appendTerm appends the tagged wire form of t to dst. Only the eight
// encodable kinds are supported; the opaque decode-only kinds are
// rejected.
func appendTerm(dst []byte, t Term) ([]byte, error) {
	switch tt := t.(type) {
	case Atom:
		return appendAtom(dst, tt)
	case FixInteger:
		return appendInteger(dst, int32(tt)), nil
	case BigInteger:
		return appendBig(dst, tt.Value)
	case Float:
		dst = append(dst, tagNewFloat)
		return binary.BigEndian.AppendUint64(dst, math.Float64bits(float64(tt))), nil
	case Binary:
		dst = append(dst, tagBinary)
		dst = binary.BigEndian.AppendUint32(dst, uint32(len(tt)))
		return append(dst, tt...), nil
	case List:
		return appendList(dst, tt)
	case Tuple:
		return appendTuple(dst, tt)
	case Map:
		return appendMap(dst, tt)
	case nil:
		return nil, errors.New("eetf: cannot encode a nil term")
	}

	return nil, errors.Newf("eetf: cannot encode a %s term", t.Kind())
}

func appendAtom(dst []byte, a Atom) ([]byte, error) {
	n := len(a)
	switch {
	case n < 256:
		dst = append(dst, tagSmallAtomUTF8, byte(n))
	case n < 1<<16:
		dst = append(dst, tagAtomUTF8)
		dst = binary.BigEndian.AppendUint16(dst, uint16(n))
	default:
		return nil, errors.Newf("eetf: atom of %d bytes exceeds the wire limit", n)
	}

	return append(dst, a...), nil
}

func appendInteger(dst []byte, v int32) []byte {
	if v >= 0 && v < 256 {
		return append(dst, tagSmallInteger, byte(v))
	}

	dst = append(dst, tagInteger)
	return binary.BigEndian.AppendUint32(dst, uint32(v))
}

func appendBig(dst []byte, v *big.Int) ([]byte, error) {
	if v == nil {
		v = new(big.Int)
	}

	var sign byte
	if v.Sign() < 0 {
		sign = 1
	}

	// The wire carries the magnitude as base-256 digits, least
	// significant first. big.Int.Bytes is big-endian, so reverse.
	digits := v.Bytes()
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}

	if len(digits) < 256 {
		dst = append(dst, tagSmallBig, byte(len(digits)), sign)
	} else {
		dst = append(dst, tagLargeBig)
		dst = binary.BigEndian.AppendUint32(dst, uint32(len(digits)))
		dst = append(dst, sign)
	}

	return append(dst, digits...), nil
}

func appendList(dst []byte, l List) ([]byte, error) {
	if len(l) == 0 {
		return append(dst, tagNil), nil
	}

	dst = append(dst, tagList)
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(l)))

	var err error
	for _, el := range l {
		dst, err = appendTerm(dst, el)
		if err != nil {
			return nil, err
		}
	}

	// proper list: the tail is the empty list
	return append(dst, tagNil), nil
}

func appendTuple(dst []byte, t Tuple) ([]byte, error) {
	if len(t) < 256 {
		dst = append(dst, tagSmallTuple, byte(len(t)))
	} else {
		dst = append(dst, tagLargeTuple)
		dst = binary.BigEndian.AppendUint32(dst, uint32(len(t)))
	}

	var err error
	for _, el := range t {
		dst, err = appendTerm(dst, el)
		if err != nil {
			return nil, err
		}
	}

	return dst, nil
}

func appendMap(dst []byte, m Map) ([]byte, error) {
	dst = append(dst, tagMap)
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(m)))

	var err error
	for _, e := range m {
		dst, err = appendTerm(dst, e.Key)
		if err != nil {
			return nil, err
		}
		dst, err = appendTerm(dst, e.Value)
		if err != nil {
			return nil, err
		}
	}

	return dst, nil
}
