// Package eetf maps Go values onto the Erlang External Term Format,
// allowing a Go program to talk to Erlang, Elixir or any other BEAM
// language with little boilerplate.
//
//	type Test struct {
//		X int8 `eetf:"x"`
//	}
//
//	bytes, err := eetf.Marshal(Test{X: 8})
//	...
//	var out Test
//	err = eetf.Unmarshal(bytes, &out)
//
// Values travel through the term tree of the term subpackage: encoding
// walks a Go value into a term.Term which is then serialized, decoding
// materializes a term.Term from the wire and walks it under the
// guidance of the target's type. Terms are not self-describing enough
// to recover Go types unaided, so decoding always needs a concrete
// target; decoding into an untyped interface is supported only for the
// scalar and container kinds (see DecodeTerm).
//
// The wire mapping is:
//
//	bool              <-> the atoms 'true' and 'false'
//	int8..int32       <-> 32-bit integer
//	int, int64        <-> arbitrary-precision integer
//	uint8, uint16     <-> 32-bit integer
//	uint, uint32..64  <-> arbitrary-precision integer
//	float32, float64  <-> 64-bit float
//	Char              <-> binary holding one UTF-8 character
//	string            <-> binary, UTF-8
//	[]byte            <-> binary, raw
//	nil pointer       <-> the atom 'nil'
//	non-nil pointer   <-> the pointed-to value, unwrapped
//	zero-field struct <-> the atom 'nil'
//	struct            <-> map keyed by field-name atoms
//	array             <-> tuple of the same arity
//	slice             <-> list
//	map               <-> map
//	term.Term         <-> passed through verbatim
//	EnumMarshaler     <-> atom or {tag, payload} tuple, see enum.go
//
// Note that a nil pointer and a pointer to a zero-field struct encode
// to the same atom: the distinction between an absent optional and a
// present unit value is lost on the wire.
package eetf

import (
	"io"

	"github.com/beamkit/eetf/term"
)

// A Char is a single Unicode code point. It is a distinct type because
// reflection cannot tell a rune from an int32, and the two have
// different wire representations.
type Char rune

// Marshaler is implemented by types that produce their own term tree.
type Marshaler interface {
	MarshalEETF() (term.Term, error)
}

// Unmarshaler is implemented by types that consume a raw term tree.
type Unmarshaler interface {
	UnmarshalEETF(t term.Term) error
}

// Marshal returns the external term format encoding of v.
func Marshal(v any) ([]byte, error) {
	t, err := EncodeTerm(v)
	if err != nil {
		return nil, err
	}

	return term.Marshal(t)
}

// Unmarshal decodes the external term format data into v, which must
// be a non-nil pointer.
func Unmarshal(data []byte, v any) error {
	t, err := term.Unmarshal(data)
	if err != nil {
		return err
	}

	return DecodeTerm(t, v)
}

// An Encoder writes external terms to an output stream.
type Encoder struct {
	w io.Writer
}

// NewEncoder returns an Encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes the external term format encoding of v to the stream.
func (e *Encoder) Encode(v any) error {
	t, err := EncodeTerm(v)
	if err != nil {
		return err
	}

	return term.Encode(e.w, t)
}

// A Decoder reads an external term from an input stream. The whole
// stream is consumed on the first call to Decode: terms cannot be
// materialized from a partial buffer.
type Decoder struct {
	r io.Reader
}

// NewDecoder returns a Decoder that reads from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Decode reads one term from the stream and decodes it into v, which
// must be a non-nil pointer.
func (d *Decoder) Decode(v any) error {
	t, err := term.Decode(d.r)
	if err != nil {
		return err
	}

	return DecodeTerm(t, v)
}
