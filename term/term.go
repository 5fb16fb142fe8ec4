// Package term implements the Erlang External Term Format (EETF) term
// tree and its binary wire representation.
//
// A Term is an immutable, acyclic value tree. The eight kinds produced
// by encoders are Atom, FixInteger, BigInteger, Float, Binary, List,
// Tuple and Map. The remaining kinds (Pid, Port, Reference, Fun,
// BitBinary, ImproperList) only ever appear as decoder output and are
// carried opaquely.
package term

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Kind identifies the shape of a Term.
type Kind uint8

const (
	AnyKind Kind = iota

	AtomKind
	FixIntegerKind
	BigIntegerKind
	FloatKind
	BinaryKind
	ListKind
	TupleKind
	MapKind

	// Kinds below are accepted on decode but never produced by the
	// value encoder.
	PidKind
	PortKind
	ReferenceKind
	FunKind
	BitBinaryKind
	ImproperListKind
)

func (k Kind) String() string {
	switch k {
	case AtomKind:
		return "atom"
	case FixIntegerKind:
		return "integer"
	case BigIntegerKind:
		return "big integer"
	case FloatKind:
		return "float"
	case BinaryKind:
		return "binary"
	case ListKind:
		return "list"
	case TupleKind:
		return "tuple"
	case MapKind:
		return "map"
	case PidKind:
		return "pid"
	case PortKind:
		return "port"
	case ReferenceKind:
		return "reference"
	case FunKind:
		return "fun"
	case BitBinaryKind:
		return "bit binary"
	case ImproperListKind:
		return "improper list"
	}

	return ""
}

// A Term is a single node of a decoded or to-be-encoded Erlang term.
type Term interface {
	Kind() Kind
	String() string
}

// An Atom is an Erlang atom, such as 'ok' or 'infinity'.
type Atom string

// Common atoms used by the value codec.
const (
	NilAtom   = Atom("nil")
	TrueAtom  = Atom("true")
	FalseAtom = Atom("false")
)

func (a Atom) Kind() Kind { return AtomKind }

func (a Atom) String() string {
	for _, r := range a {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' && r != '@' {
			return "'" + strings.ReplaceAll(string(a), "'", `\'`) + "'"
		}
	}
	if a == "" {
		return "''"
	}

	return string(a)
}

// A FixInteger is an integer within the wire format's 32-bit range.
type FixInteger int32

func (i FixInteger) Kind() Kind     { return FixIntegerKind }
func (i FixInteger) String() string { return strconv.FormatInt(int64(i), 10) }

// A BigInteger is an arbitrary-precision integer.
type BigInteger struct {
	Value *big.Int
}

// NewBigInteger returns a BigInteger holding x.
func NewBigInteger(x int64) BigInteger {
	return BigInteger{Value: big.NewInt(x)}
}

// NewBigIntegerUint returns a BigInteger holding x.
func NewBigIntegerUint(x uint64) BigInteger {
	return BigInteger{Value: new(big.Int).SetUint64(x)}
}

func (i BigInteger) Kind() Kind { return BigIntegerKind }

func (i BigInteger) String() string {
	if i.Value == nil {
		return "0"
	}

	return i.Value.String()
}

// A Float is a 64-bit floating point number.
type Float float64

func (f Float) Kind() Kind     { return FloatKind }
func (f Float) String() string { return strconv.FormatFloat(float64(f), 'g', -1, 64) }

// A Binary is a chunk of raw bytes.
type Binary []byte

func (b Binary) Kind() Kind { return BinaryKind }

func (b Binary) String() string {
	var sb strings.Builder
	sb.WriteString("<<")
	for i, c := range b {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(int(c)))
	}
	sb.WriteString(">>")
	return sb.String()
}

// A List is a proper Erlang list.
type List []Term

func (l List) Kind() Kind     { return ListKind }
func (l List) String() string { return joinTerms(l, "[", "]") }

// A Tuple is a fixed-arity group of terms.
type Tuple []Term

func (t Tuple) Kind() Kind     { return TupleKind }
func (t Tuple) String() string { return joinTerms(t, "{", "}") }

// A MapEntry is a single key/value association of a Map.
type MapEntry struct {
	Key   Term
	Value Term
}

// A Map is an ordered sequence of key/value associations. Entry order
// is preserved as-is and key uniqueness is not enforced: duplicate
// keys coming off the wire are passed through unchanged.
type Map []MapEntry

func (m Map) Kind() Kind { return MapKind }

func (m Map) String() string {
	var sb strings.Builder
	sb.WriteString("#{")
	for i, e := range m {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(e.Key.String())
		sb.WriteString(" => ")
		sb.WriteString(e.Value.String())
	}
	sb.WriteByte('}')
	return sb.String()
}

// Get returns the value associated with the first entry whose key
// equals k, or nil if there is none.
func (m Map) Get(k Term) Term {
	for _, e := range m {
		if Equal(e.Key, k) {
			return e.Value
		}
	}

	return nil
}

// A Pid is a process identifier. Opaque to the value codec.
type Pid struct {
	Node     Atom
	ID       uint32
	Serial   uint32
	Creation uint32
}

func (p Pid) Kind() Kind     { return PidKind }
func (p Pid) String() string { return fmt.Sprintf("<%d.%d.%d>", p.Creation, p.ID, p.Serial) }

// A Port is a port identifier. Opaque to the value codec.
type Port struct {
	Node     Atom
	ID       uint64
	Creation uint32
}

func (p Port) Kind() Kind     { return PortKind }
func (p Port) String() string { return fmt.Sprintf("#Port<%d.%d>", p.Creation, p.ID) }

// A Reference is a unique reference. Opaque to the value codec.
type Reference struct {
	Node     Atom
	Creation uint32
	ID       []uint32
}

func (r Reference) Kind() Kind { return ReferenceKind }

func (r Reference) String() string {
	parts := make([]string, 0, len(r.ID)+1)
	parts = append(parts, strconv.FormatUint(uint64(r.Creation), 10))
	for _, id := range r.ID {
		parts = append(parts, strconv.FormatUint(uint64(id), 10))
	}
	return "#Ref<" + strings.Join(parts, ".") + ">"
}

// A Fun is a function object. Internal funs keep their NEW_FUN_EXT
// payload verbatim in Data; exported funs carry Module, Function and
// Arity instead. Opaque to the value codec either way.
type Fun struct {
	Module   Atom
	Function Atom
	Arity    int
	Data     []byte
}

func (f Fun) Kind() Kind { return FunKind }

func (f Fun) String() string {
	if f.Data != nil {
		return "#Fun<" + f.Module.String() + ">"
	}

	return fmt.Sprintf("fun %s:%s/%d", f.Module, f.Function, f.Arity)
}

// A BitBinary is a binary whose last byte holds fewer than 8 bits.
type BitBinary struct {
	Bytes []byte
	Bits  uint8
}

func (b BitBinary) Kind() Kind { return BitBinaryKind }

func (b BitBinary) String() string {
	s := Binary(b.Bytes).String()
	return s[:len(s)-2] + ":" + strconv.Itoa(int(b.Bits)) + ">>"
}

// An ImproperList is a list whose tail is not the empty list, such as
// [1|2].
type ImproperList struct {
	Elements []Term
	Tail     Term
}

func (l ImproperList) Kind() Kind { return ImproperListKind }

func (l ImproperList) String() string {
	s := joinTerms(l.Elements, "[", "")
	return s + "|" + l.Tail.String() + "]"
}

func joinTerms(ts []Term, open, clos string) string {
	var sb strings.Builder
	sb.WriteString(open)
	for i, t := range ts {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(t.String())
	}
	sb.WriteString(clos)
	return sb.String()
}
