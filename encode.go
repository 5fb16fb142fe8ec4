package eetf

import (
	"math"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slices"

	"github.com/beamkit/eetf/term"
)

var (
	termType          = reflect.TypeOf((*term.Term)(nil)).Elem()
	marshalerType     = reflect.TypeOf((*Marshaler)(nil)).Elem()
	enumMarshalerType = reflect.TypeOf((*EnumMarshaler)(nil)).Elem()
	charType          = reflect.TypeOf(Char(0))
)

// EncodeTerm converts v into a term tree without serializing it.
func EncodeTerm(v any) (term.Term, error) {
	if v == nil {
		return term.NilAtom, nil
	}

	return encodeValue(reflect.ValueOf(v))
}

func encodeValue(v reflect.Value) (term.Term, error) {
	if (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) && v.IsNil() {
		return term.NilAtom, nil
	}

	// Types speaking one of the codec protocols encode themselves.
	if t, ok, err := encodeProtocol(v); ok {
		return t, err
	}

	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			return term.TrueAtom, nil
		}
		return term.FalseAtom, nil

	case reflect.Int8, reflect.Int16, reflect.Int32:
		if v.Type() == charType {
			return encodeChar(rune(v.Int()))
		}
		return term.FixInteger(v.Int()), nil

	case reflect.Int, reflect.Int64:
		return term.NewBigInteger(v.Int()), nil

	case reflect.Uint8, reflect.Uint16:
		return term.FixInteger(v.Uint()), nil

	case reflect.Uint, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return term.NewBigIntegerUint(v.Uint()), nil

	case reflect.Float32, reflect.Float64:
		return encodeFloat(v.Float())

	case reflect.String:
		return term.Binary(v.String()), nil

	case reflect.Pointer, reflect.Interface:
		return encodeValue(v.Elem())

	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return term.Binary(v.Bytes()), nil
		}
		return encodeSequence(v)

	case reflect.Array:
		return encodeTuple(v)

	case reflect.Map:
		return encodeMap(v)

	case reflect.Struct:
		return encodeStruct(v)
	}

	return nil, errors.Newf("eetf: cannot encode a value of type %s", v.Type())
}

// encodeProtocol dispatches to term passthrough, Marshaler and
// EnumMarshaler implementations, in that order.
func encodeProtocol(v reflect.Value) (term.Term, bool, error) {
	t := v.Type()

	if t.Implements(termType) {
		return v.Interface().(term.Term), true, nil
	}
	if t.Implements(marshalerType) {
		res, err := v.Interface().(Marshaler).MarshalEETF()
		return res, true, err
	}
	if t.Implements(enumMarshalerType) {
		res, err := encodeEnum(v.Interface().(EnumMarshaler))
		return res, true, err
	}

	if v.CanAddr() {
		pt := reflect.PointerTo(t)
		if pt.Implements(marshalerType) {
			res, err := v.Addr().Interface().(Marshaler).MarshalEETF()
			return res, true, err
		}
		if pt.Implements(enumMarshalerType) {
			res, err := encodeEnum(v.Addr().Interface().(EnumMarshaler))
			return res, true, err
		}
	}

	return nil, false, nil
}

func encodeChar(r rune) (term.Term, error) {
	if !utf8.ValidRune(r) {
		return nil, errors.Newf("eetf: %d is not a valid character", r)
	}

	return term.Binary(utf8.AppendRune(nil, r)), nil
}

func encodeFloat(f float64) (term.Term, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, errors.Wrapf(ErrFloatConvert, "%g", f)
	}

	return term.Float(f), nil
}

func encodeSequence(v reflect.Value) (term.Term, error) {
	var b seqBuilder
	for i := 0; i < v.Len(); i++ {
		el, err := encodeValue(v.Index(i))
		if err != nil {
			return nil, err
		}
		b.push(el)
	}

	return b.list(), nil
}

func encodeTuple(v reflect.Value) (term.Term, error) {
	var b seqBuilder
	for i := 0; i < v.Len(); i++ {
		el, err := encodeValue(v.Index(i))
		if err != nil {
			return nil, err
		}
		b.push(el)
	}

	return b.tuple(), nil
}

// encodeMap encodes a Go map. Go map iteration order is random, so
// entries are ordered by the Erlang term order of their encoded keys
// to keep the output deterministic.
func encodeMap(v reflect.Value) (term.Term, error) {
	var b mapBuilder
	iter := v.MapRange()
	for iter.Next() {
		k, err := encodeValue(iter.Key())
		if err != nil {
			return nil, err
		}
		val, err := encodeValue(iter.Value())
		if err != nil {
			return nil, err
		}
		b.push(k, val)
	}

	slices.SortStableFunc(b.entries, func(a, c term.MapEntry) int {
		return term.Compare(a.Key, c.Key)
	})

	return b.term(), nil
}

// encodeStruct encodes a struct as a map keyed by field-name atoms.
// Field names are taken verbatim, or from the eetf struct tag when one
// is present; they are never case-converted. A struct with no fields
// is a unit value and encodes to the nil atom.
func encodeStruct(v reflect.Value) (term.Term, error) {
	t := v.Type()
	if t.NumField() == 0 {
		return term.NilAtom, nil
	}

	var b structBuilder
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, ok := fieldName(f)
		if !ok {
			continue
		}

		ft, err := encodeValue(v.Field(i))
		if err != nil {
			return nil, err
		}
		b.field(name, ft)
	}

	return b.term(), nil
}

// fieldName resolves the wire name of a struct field. It reports false
// for unexported fields and fields tagged with "-".
func fieldName(f reflect.StructField) (string, bool) {
	if f.PkgPath != "" {
		return "", false
	}

	tag := f.Tag.Get("eetf")
	if tag == "" {
		return f.Name, true
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return "", false
	}
	if name == "" {
		return f.Name, true
	}

	return name, true
}

// Builders accumulate child nodes in the order received and finalize
// into exactly one node. They never reorder or deduplicate.

type seqBuilder struct {
	elems []term.Term
}

func (b *seqBuilder) push(t term.Term) {
	b.elems = append(b.elems, t)
}

func (b *seqBuilder) list() term.Term {
	return term.List(b.elems)
}

func (b *seqBuilder) tuple() term.Term {
	return term.Tuple(b.elems)
}

type mapBuilder struct {
	entries []term.MapEntry
}

func (b *mapBuilder) push(k, v term.Term) {
	b.entries = append(b.entries, term.MapEntry{Key: k, Value: v})
}

func (b *mapBuilder) term() term.Term {
	return term.Map(b.entries)
}

type structBuilder struct {
	mapBuilder
}

func (b *structBuilder) field(name string, v term.Term) {
	b.push(term.Atom(name), v)
}
