package eetf

import (
	"github.com/cockroachdb/errors"
	"github.com/iancoleman/strcase"

	"github.com/beamkit/eetf/term"
)

// Enums are externally tagged on the wire. A unit variant is a bare
// atom; every other variant is a {tag, payload} pair where the tag is
// the snake_cased variant name:
//
//	Timeout                 -> timeout
//	Ok("test")              -> {ok, <<"test">>}
//	Rgb(1, 2, 3)            -> {rgb, {1, 2, 3}}
//	Move{X: 1, Y: 2}        -> {move, #{'X' => 1, 'Y' => 2}}
//
// The encoder always emits the tuple form. The decoder additionally
// accepts a single-entry map #{tag => payload} carrying the same
// information, for compatibility with peers that tag adjacently.

// EnumMarshaler is implemented by tagged-union types. EncodeVariant
// must call exactly one of the VariantEncoder shape methods.
type EnumMarshaler interface {
	EncodeVariant(enc *VariantEncoder) error
}

// EnumUnmarshaler is the decoding half of the enum protocol.
// DecodeVariant receives the CamelCased variant name and must call the
// VariantDecoder shape method matching the variant's declared shape.
type EnumUnmarshaler interface {
	DecodeVariant(name string, dec *VariantDecoder) error
}

func encodeEnum(m EnumMarshaler) (term.Term, error) {
	var enc VariantEncoder
	if err := m.EncodeVariant(&enc); err != nil {
		return nil, err
	}
	if !enc.done {
		return nil, errors.New("eetf: EncodeVariant returned without encoding a variant")
	}

	return enc.result, nil
}

// A VariantEncoder builds the wire form of a single enum variant. It
// is handed to EncodeVariant and must be driven exactly once; calling
// a second shape method is a bug in the caller and panics.
type VariantEncoder struct {
	result term.Term
	done   bool
}

// Unit encodes a variant with no payload as a bare atom.
func (e *VariantEncoder) Unit(name string) error {
	e.set(variantTag(name))
	return nil
}

// Newtype encodes a variant wrapping a single value.
func (e *VariantEncoder) Newtype(name string, payload any) error {
	t, err := EncodeTerm(payload)
	if err != nil {
		return err
	}

	e.set(term.Tuple{variantTag(name), t})
	return nil
}

// Tuple encodes a variant carrying several positional values; the
// payload is a tuple of the same arity.
func (e *VariantEncoder) Tuple(name string, elems ...any) error {
	var b seqBuilder
	for _, el := range elems {
		t, err := EncodeTerm(el)
		if err != nil {
			return err
		}
		b.push(t)
	}

	e.set(term.Tuple{variantTag(name), b.tuple()})
	return nil
}

// Struct encodes a variant carrying named fields; payload must encode
// to a map, which in practice means a struct or a Go map.
func (e *VariantEncoder) Struct(name string, payload any) error {
	t, err := EncodeTerm(payload)
	if err != nil {
		return err
	}
	if t.Kind() != term.MapKind {
		return errors.Newf("eetf: record variant payload must encode to a map, got a %s", t.Kind())
	}

	e.set(term.Tuple{variantTag(name), t})
	return nil
}

func (e *VariantEncoder) set(t term.Term) {
	if e.done {
		panic("eetf: EncodeVariant encoded two variants")
	}
	e.result = t
	e.done = true
}

func variantTag(name string) term.Atom {
	return term.Atom(strcase.ToSnake(name))
}

// decodeEnum recognizes the closed set of variant wire shapes, in
// order: a bare atom, a {tag, payload} tuple, a single-entry map.
func decodeEnum(t term.Term, u EnumUnmarshaler) error {
	switch n := t.(type) {
	case term.Atom:
		return u.DecodeVariant(strcase.ToCamel(string(n)), &VariantDecoder{})

	case term.Tuple:
		if len(n) != 2 {
			return errors.Wrapf(ErrMisSizedVariantTuple, "arity %d", len(n))
		}
		return decodeTaggedVariant(n[0], n[1], u)

	case term.Map:
		if len(n) == 1 {
			return decodeTaggedVariant(n[0].Key, n[0].Value, u)
		}
	}

	return errors.Wrapf(ErrExpectedAtomOrTuple, "got a %s", t.Kind())
}

func decodeTaggedVariant(tag, payload term.Term, u EnumUnmarshaler) error {
	a, ok := tag.(term.Atom)
	if !ok {
		return errors.Wrapf(ErrExpectedAtom, "variant tag is a %s", tag.Kind())
	}

	return u.DecodeVariant(strcase.ToCamel(string(a)), &VariantDecoder{payload: payload})
}

// A VariantDecoder gives DecodeVariant access to the payload of the
// variant being decoded. payload is nil when the wire form was a bare
// atom.
type VariantDecoder struct {
	payload term.Term
}

// Unit succeeds only when the wire form was a bare atom: a unit
// variant cannot carry a payload.
func (d *VariantDecoder) Unit() error {
	if d.payload != nil {
		return errors.Wrap(ErrExpectedAtom, "unit variant carries a payload")
	}

	return nil
}

// Newtype decodes the payload into v.
func (d *VariantDecoder) Newtype(v any) error {
	if d.payload == nil {
		return errors.Wrap(ErrExpectedAtom, "variant has no payload")
	}

	return DecodeTerm(d.payload, v)
}

// Tuple decodes a positional payload into targets, enforcing arity.
func (d *VariantDecoder) Tuple(targets ...any) error {
	if d.payload == nil {
		return errors.Wrap(ErrExpectedAtom, "variant has no payload")
	}
	tup, ok := d.payload.(term.Tuple)
	if !ok {
		return errors.Wrapf(ErrExpectedTuple, "got a %s", d.payload.Kind())
	}
	if len(tup) != len(targets) {
		return errors.Wrapf(ErrWrongTupleLength, "arity %d, want %d", len(tup), len(targets))
	}

	seq := NewSequenceAccess(tup)
	for _, target := range targets {
		el, _ := seq.Next()
		if err := DecodeTerm(el, target); err != nil {
			return err
		}
	}

	return seq.End()
}

// Struct decodes a record payload into v, which must point to a struct
// or a map.
func (d *VariantDecoder) Struct(v any) error {
	if d.payload == nil {
		return errors.Wrap(ErrExpectedAtom, "variant has no payload")
	}

	return DecodeTerm(d.payload, v)
}
