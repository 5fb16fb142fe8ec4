package term

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zlib"
)

// ErrMalformed is wrapped by every error reported while reading wire
// bytes. Use errors.Is to detect it.
var ErrMalformed = errors.New("eetf: malformed external term")

// Decode reads a single external term from r. The whole stream is
// buffered first: the wire format cannot be materialized from a
// partial buffer.
func Decode(r io.Reader) (Term, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	return Unmarshal(data)
}

// Unmarshal decodes a single external term from data. Trailing bytes
// after the term are an error.
func Unmarshal(data []byte) (Term, error) {
	if len(data) == 0 {
		return nil, errors.Wrap(ErrMalformed, "empty input")
	}
	if data[0] != Version {
		return nil, errors.Wrapf(ErrMalformed, "unknown version byte %d", data[0])
	}

	d := &decodeState{data: data, off: 1}

	if b, err := d.peek(); err == nil && b == tagCompressed {
		return decodeCompressed(d)
	}

	t, err := d.term()
	if err != nil {
		return nil, err
	}
	if d.off != len(d.data) {
		return nil, errors.Wrapf(ErrMalformed, "%d trailing bytes after term", len(d.data)-d.off)
	}

	return t, nil
}

func decodeCompressed(d *decodeState) (Term, error) {
	d.off++ // tag
	size, err := d.uint32()
	if err != nil {
		return nil, err
	}

	// bytes.Reader implements io.ByteReader, so the inflater consumes
	// exactly the stream bytes and br.Len() is what follows it.
	br := bytes.NewReader(d.data[d.off:])
	zr, err := zlib.NewReader(br)
	if err != nil {
		return nil, errors.Wrap(ErrMalformed, err.Error())
	}
	defer zr.Close()

	body, err := io.ReadAll(io.LimitReader(zr, int64(size)+1))
	if err != nil {
		return nil, errors.Wrap(ErrMalformed, err.Error())
	}
	if uint64(len(body)) != uint64(size) {
		return nil, errors.Wrapf(ErrMalformed, "compressed term declares %d bytes, carries %d", size, len(body))
	}
	if br.Len() != 0 {
		return nil, errors.Wrapf(ErrMalformed, "%d trailing bytes after compressed term", br.Len())
	}

	inner := &decodeState{data: body}
	t, err := inner.term()
	if err != nil {
		return nil, err
	}
	if inner.off != len(inner.data) {
		return nil, errors.Wrap(ErrMalformed, "trailing bytes inside compressed term")
	}

	return t, nil
}

type decodeState struct {
	data []byte
	off  int
}

func (d *decodeState) peek() (byte, error) {
	if d.off >= len(d.data) {
		return 0, errors.Wrap(ErrMalformed, "unexpected end of input")
	}

	return d.data[d.off], nil
}

func (d *decodeState) take(n int) ([]byte, error) {
	if n < 0 || len(d.data)-d.off < n {
		return nil, errors.Wrap(ErrMalformed, "unexpected end of input")
	}

	b := d.data[d.off : d.off+n]
	d.off += n
	return b, nil
}

func (d *decodeState) byte() (byte, error) {
	b, err := d.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *decodeState) uint16() (uint16, error) {
	b, err := d.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (d *decodeState) uint32() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// count reads a 32-bit element count and checks it against the bytes
// left in the buffer, each element being at least min bytes on the
// wire. This bounds allocations on malformed input.
func (d *decodeState) count(min int) (int, error) {
	n, err := d.uint32()
	if err != nil {
		return 0, err
	}
	if int64(n)*int64(min) > int64(len(d.data)-d.off) {
		return 0, errors.Wrapf(ErrMalformed, "declared length %d exceeds input size", n)
	}

	return int(n), nil
}

func (d *decodeState) term() (Term, error) {
	tag, err := d.byte()
	if err != nil {
		return nil, err
	}

	switch tag {
	case tagSmallInteger:
		b, err := d.byte()
		if err != nil {
			return nil, err
		}
		return FixInteger(b), nil

	case tagInteger:
		v, err := d.uint32()
		if err != nil {
			return nil, err
		}
		return FixInteger(int32(v)), nil

	case tagSmallBig:
		n, err := d.byte()
		if err != nil {
			return nil, err
		}
		return d.big(int(n))

	case tagLargeBig:
		n, err := d.count(1)
		if err != nil {
			return nil, err
		}
		return d.big(n)

	case tagNewFloat:
		b, err := d.take(8)
		if err != nil {
			return nil, err
		}
		return Float(math.Float64frombits(binary.BigEndian.Uint64(b))), nil

	case tagFloat:
		// legacy 31-byte printed float
		b, err := d.take(31)
		if err != nil {
			return nil, err
		}
		s := strings.TrimRight(string(b), "\x00 ")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, errors.Wrapf(ErrMalformed, "bad float literal %q", s)
		}
		return Float(f), nil

	case tagSmallAtomUTF8, tagSmallAtomLatin1:
		n, err := d.byte()
		if err != nil {
			return nil, err
		}
		b, err := d.take(int(n))
		if err != nil {
			return nil, err
		}
		return Atom(b), nil

	case tagAtomUTF8, tagAtomLatin1:
		n, err := d.uint16()
		if err != nil {
			return nil, err
		}
		b, err := d.take(int(n))
		if err != nil {
			return nil, err
		}
		return Atom(b), nil

	case tagBinary:
		n, err := d.count(1)
		if err != nil {
			return nil, err
		}
		b, err := d.take(n)
		if err != nil {
			return nil, err
		}
		bin := make(Binary, n)
		copy(bin, b)
		return bin, nil

	case tagBitBinary:
		n, err := d.count(1)
		if err != nil {
			return nil, err
		}
		bits, err := d.byte()
		if err != nil {
			return nil, err
		}
		b, err := d.take(n)
		if err != nil {
			return nil, err
		}
		bb := BitBinary{Bytes: make([]byte, n), Bits: bits}
		copy(bb.Bytes, b)
		return bb, nil

	case tagNil:
		return List{}, nil

	case tagString:
		// a list of integers 0..255, compacted by the emitter
		n, err := d.uint16()
		if err != nil {
			return nil, err
		}
		b, err := d.take(int(n))
		if err != nil {
			return nil, err
		}
		l := make(List, n)
		for i, c := range b {
			l[i] = FixInteger(c)
		}
		return l, nil

	case tagList:
		return d.list()

	case tagSmallTuple:
		n, err := d.byte()
		if err != nil {
			return nil, err
		}
		return d.tuple(int(n))

	case tagLargeTuple:
		n, err := d.count(1)
		if err != nil {
			return nil, err
		}
		return d.tuple(n)

	case tagMap:
		return d.mapTerm()

	case tagPid, tagNewPid:
		return d.pid(tag)

	case tagPort, tagNewPort, tagV4Port:
		return d.port(tag)

	case tagReference, tagNewReference, tagNewerReference:
		return d.reference(tag)

	case tagNewFun:
		return d.newFun()

	case tagExport:
		return d.export()
	}

	return nil, errors.Wrapf(ErrMalformed, "unknown tag %d", tag)
}

func (d *decodeState) big(n int) (Term, error) {
	sign, err := d.byte()
	if err != nil {
		return nil, err
	}
	digits, err := d.take(n)
	if err != nil {
		return nil, err
	}

	// digits are little-endian on the wire
	be := make([]byte, n)
	for i, c := range digits {
		be[n-1-i] = c
	}

	v := new(big.Int).SetBytes(be)
	if sign == 1 {
		v.Neg(v)
	}

	return BigInteger{Value: v}, nil
}

func (d *decodeState) list() (Term, error) {
	n, err := d.count(1)
	if err != nil {
		return nil, err
	}

	elems := make([]Term, 0, n)
	for i := 0; i < n; i++ {
		el, err := d.term()
		if err != nil {
			return nil, err
		}
		elems = append(elems, el)
	}

	tail, err := d.term()
	if err != nil {
		return nil, err
	}
	if l, ok := tail.(List); ok && len(l) == 0 {
		return List(elems), nil
	}

	return ImproperList{Elements: elems, Tail: tail}, nil
}

func (d *decodeState) tuple(n int) (Term, error) {
	elems := make(Tuple, 0, n)
	for i := 0; i < n; i++ {
		el, err := d.term()
		if err != nil {
			return nil, err
		}
		elems = append(elems, el)
	}

	return elems, nil
}

func (d *decodeState) mapTerm() (Term, error) {
	n, err := d.count(2)
	if err != nil {
		return nil, err
	}

	m := make(Map, 0, n)
	for i := 0; i < n; i++ {
		k, err := d.term()
		if err != nil {
			return nil, err
		}
		v, err := d.term()
		if err != nil {
			return nil, err
		}
		m = append(m, MapEntry{Key: k, Value: v})
	}

	return m, nil
}

func (d *decodeState) atom() (Atom, error) {
	t, err := d.term()
	if err != nil {
		return "", err
	}
	a, ok := t.(Atom)
	if !ok {
		return "", errors.Wrapf(ErrMalformed, "expected an atom, got a %s", t.Kind())
	}

	return a, nil
}

func (d *decodeState) pid(tag byte) (Term, error) {
	node, err := d.atom()
	if err != nil {
		return nil, err
	}
	id, err := d.uint32()
	if err != nil {
		return nil, err
	}
	serial, err := d.uint32()
	if err != nil {
		return nil, err
	}

	var creation uint32
	if tag == tagNewPid {
		creation, err = d.uint32()
	} else {
		var c byte
		c, err = d.byte()
		creation = uint32(c)
	}
	if err != nil {
		return nil, err
	}

	return Pid{Node: node, ID: id, Serial: serial, Creation: creation}, nil
}

func (d *decodeState) port(tag byte) (Term, error) {
	node, err := d.atom()
	if err != nil {
		return nil, err
	}

	var id uint64
	if tag == tagV4Port {
		b, err := d.take(8)
		if err != nil {
			return nil, err
		}
		id = binary.BigEndian.Uint64(b)
	} else {
		v, err := d.uint32()
		if err != nil {
			return nil, err
		}
		id = uint64(v)
	}

	var creation uint32
	if tag == tagPort {
		c, err := d.byte()
		if err != nil {
			return nil, err
		}
		creation = uint32(c)
	} else {
		var err error
		creation, err = d.uint32()
		if err != nil {
			return nil, err
		}
	}

	return Port{Node: node, ID: id, Creation: creation}, nil
}

func (d *decodeState) reference(tag byte) (Term, error) {
	if tag == tagReference {
		node, err := d.atom()
		if err != nil {
			return nil, err
		}
		id, err := d.uint32()
		if err != nil {
			return nil, err
		}
		c, err := d.byte()
		if err != nil {
			return nil, err
		}
		return Reference{Node: node, Creation: uint32(c), ID: []uint32{id}}, nil
	}

	n, err := d.uint16()
	if err != nil {
		return nil, err
	}
	node, err := d.atom()
	if err != nil {
		return nil, err
	}

	var creation uint32
	if tag == tagNewerReference {
		creation, err = d.uint32()
	} else {
		var c byte
		c, err = d.byte()
		creation = uint32(c)
	}
	if err != nil {
		return nil, err
	}

	if int(n)*4 > len(d.data)-d.off {
		return nil, errors.Wrapf(ErrMalformed, "declared length %d exceeds input size", n)
	}
	ids := make([]uint32, n)
	for i := range ids {
		ids[i], err = d.uint32()
		if err != nil {
			return nil, err
		}
	}

	return Reference{Node: node, Creation: creation, ID: ids}, nil
}

// newFun keeps the NEW_FUN_EXT payload verbatim: the codec never looks
// inside it, so there is no point modelling its free variables.
func (d *decodeState) newFun() (Term, error) {
	size, err := d.uint32()
	if err != nil {
		return nil, err
	}
	if size < 4 {
		return nil, errors.Wrapf(ErrMalformed, "fun size %d too small", size)
	}

	body, err := d.take(int(size) - 4)
	if err != nil {
		return nil, err
	}

	data := make([]byte, len(body))
	copy(data, body)
	return Fun{Data: data}, nil
}

func (d *decodeState) export() (Term, error) {
	module, err := d.atom()
	if err != nil {
		return nil, err
	}
	function, err := d.atom()
	if err != nil {
		return nil, err
	}
	arity, err := d.term()
	if err != nil {
		return nil, err
	}
	a, ok := arity.(FixInteger)
	if !ok {
		return nil, errors.Wrap(ErrMalformed, "export arity is not an integer")
	}

	return Fun{Module: module, Function: function, Arity: int(a)}, nil
}
