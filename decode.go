package eetf

import (
	"reflect"
	"unicode/utf8"

	"github.com/cockroachdb/errors"

	"github.com/beamkit/eetf/term"
)

var (
	unmarshalerType     = reflect.TypeOf((*Unmarshaler)(nil)).Elem()
	enumUnmarshalerType = reflect.TypeOf((*EnumUnmarshaler)(nil)).Elem()
)

// DecodeTerm decodes an already materialized term tree into v, which
// must be a non-nil pointer. The type of v is the shape hint that
// drives the walk: every mismatch between the expected shape and the
// actual term kind is reported with the matching sentinel error and no
// coercion is attempted, with one exception: when the target is a
// pointer, the nil atom decodes to a nil pointer and any other term
// decodes into the pointed-to value.
func DecodeTerm(t term.Term, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.New("eetf: decode target must be a non-nil pointer")
	}

	return decodeValue(t, rv.Elem())
}

func decodeValue(t term.Term, v reflect.Value) error {
	if ok, err := decodeProtocol(t, v); ok {
		return err
	}

	switch v.Kind() {
	case reflect.Pointer:
		if isNilAtom(t) {
			v.SetZero()
			return nil
		}
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		return decodeValue(t, v.Elem())

	case reflect.Bool:
		return decodeBool(t, v)

	case reflect.Int8, reflect.Int16, reflect.Int32:
		if v.Type() == charType {
			return decodeChar(t, v)
		}
		return decodeInt(t, v)

	case reflect.Int, reflect.Int64:
		return decodeInt(t, v)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return decodeUint(t, v)

	case reflect.Float32, reflect.Float64:
		f, ok := t.(term.Float)
		if !ok {
			return errors.Wrapf(ErrExpectedFloat, "got a %s", t.Kind())
		}
		v.SetFloat(float64(f))
		return nil

	case reflect.String:
		s, err := decodeString(t)
		if err != nil {
			return err
		}
		v.SetString(s)
		return nil

	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return decodeBytes(t, v)
		}
		return decodeSlice(t, v)

	case reflect.Array:
		return decodeArray(t, v)

	case reflect.Map:
		return decodeMap(t, v)

	case reflect.Struct:
		return decodeStruct(t, v)

	case reflect.Interface:
		if v.NumMethod() == 0 {
			g, err := decodeGeneric(t)
			if err != nil {
				return err
			}
			v.Set(reflect.ValueOf(g))
			return nil
		}
	}

	return errors.Newf("eetf: cannot decode into a value of type %s", v.Type())
}

// decodeProtocol dispatches to term passthrough, Unmarshaler and
// EnumUnmarshaler implementations, in that order.
func decodeProtocol(t term.Term, v reflect.Value) (bool, error) {
	typ := v.Type()

	if typ == termType {
		v.Set(reflect.ValueOf(t))
		return true, nil
	}
	if typ.Implements(termType) {
		if reflect.TypeOf(t) != typ {
			return true, errors.Newf("eetf: cannot decode a %s term into %s", t.Kind(), typ)
		}
		v.Set(reflect.ValueOf(t))
		return true, nil
	}

	if !v.CanAddr() {
		return false, nil
	}
	pt := reflect.PointerTo(typ)
	if pt.Implements(unmarshalerType) {
		return true, v.Addr().Interface().(Unmarshaler).UnmarshalEETF(t)
	}
	if pt.Implements(enumUnmarshalerType) {
		return true, decodeEnum(t, v.Addr().Interface().(EnumUnmarshaler))
	}

	return false, nil
}

func isNilAtom(t term.Term) bool {
	a, ok := t.(term.Atom)
	return ok && a == term.NilAtom
}

func decodeBool(t term.Term, v reflect.Value) error {
	a, ok := t.(term.Atom)
	if !ok {
		return errors.Wrapf(ErrExpectedBoolean, "got a %s", t.Kind())
	}

	switch a {
	case term.TrueAtom:
		v.SetBool(true)
	case term.FalseAtom:
		v.SetBool(false)
	default:
		return errors.Wrapf(ErrInvalidBoolean, "got %s", a)
	}

	return nil
}

// termInt64 extracts an integer, narrowing arbitrary-precision values
// through int64 first.
func termInt64(t term.Term) (int64, error) {
	switch tt := t.(type) {
	case term.FixInteger:
		return int64(tt), nil
	case term.BigInteger:
		if tt.Value == nil {
			return 0, nil
		}
		if !tt.Value.IsInt64() {
			return 0, errors.Wrapf(ErrIntegerConvert, "%s does not fit in 64 bits", tt.Value)
		}
		return tt.Value.Int64(), nil
	}

	return 0, errors.Wrapf(ErrExpectedFixInteger, "got a %s", t.Kind())
}

func decodeInt(t term.Term, v reflect.Value) error {
	n, err := termInt64(t)
	if err != nil {
		return err
	}
	if v.OverflowInt(n) {
		return errors.Wrapf(ErrIntegerConvert, "%d overflows %s", n, v.Type())
	}

	v.SetInt(n)
	return nil
}

func decodeUint(t term.Term, v reflect.Value) error {
	n, err := termInt64(t)
	if err != nil {
		return err
	}
	if n < 0 || v.OverflowUint(uint64(n)) {
		return errors.Wrapf(ErrIntegerConvert, "%d overflows %s", n, v.Type())
	}

	v.SetUint(uint64(n))
	return nil
}

func decodeString(t term.Term) (string, error) {
	b, ok := t.(term.Binary)
	if !ok {
		return "", errors.Wrapf(ErrExpectedBinary, "got a %s", t.Kind())
	}
	if !utf8.Valid(b) {
		return "", errors.WithStack(ErrInvalidUTF8)
	}

	return string(b), nil
}

func decodeChar(t term.Term, v reflect.Value) error {
	b, ok := t.(term.Binary)
	if !ok {
		return errors.Wrapf(ErrExpectedChar, "got a %s", t.Kind())
	}
	if !utf8.Valid(b) {
		return errors.WithStack(ErrInvalidUTF8)
	}
	if utf8.RuneCount(b) != 1 {
		return errors.Wrapf(ErrExpectedChar, "binary holds %d characters", utf8.RuneCount(b))
	}

	r, _ := utf8.DecodeRune(b)
	v.SetInt(int64(r))
	return nil
}

func decodeBytes(t term.Term, v reflect.Value) error {
	b, ok := t.(term.Binary)
	if !ok {
		return errors.Wrapf(ErrExpectedBinary, "got a %s", t.Kind())
	}

	cp := make([]byte, len(b))
	copy(cp, b)
	v.SetBytes(cp)
	return nil
}

func decodeSlice(t term.Term, v reflect.Value) error {
	l, ok := t.(term.List)
	if !ok {
		return errors.Wrapf(ErrExpectedList, "got a %s", t.Kind())
	}

	out := reflect.MakeSlice(v.Type(), len(l), len(l))
	seq := NewSequenceAccess(l)
	for i := 0; i < len(l); i++ {
		el, _ := seq.Next()
		if err := decodeValue(el, out.Index(i)); err != nil {
			return err
		}
	}
	if err := seq.End(); err != nil {
		return err
	}

	v.Set(out)
	return nil
}

func decodeArray(t term.Term, v reflect.Value) error {
	tup, ok := t.(term.Tuple)
	if !ok {
		return errors.Wrapf(ErrExpectedTuple, "got a %s", t.Kind())
	}
	if len(tup) != v.Len() {
		return errors.Wrapf(ErrWrongTupleLength, "arity %d, want %d", len(tup), v.Len())
	}

	seq := NewSequenceAccess(tup)
	for i := 0; i < v.Len(); i++ {
		el, _ := seq.Next()
		if err := decodeValue(el, v.Index(i)); err != nil {
			return err
		}
	}

	return seq.End()
}

func decodeMap(t term.Term, v reflect.Value) error {
	m, ok := t.(term.Map)
	if !ok {
		return errors.Wrapf(ErrExpectedMap, "got a %s", t.Kind())
	}

	out := reflect.MakeMapWithSize(v.Type(), len(m))
	kt, vt := v.Type().Key(), v.Type().Elem()

	acc := NewMapAccess(m)
	for {
		kterm, ok := acc.NextKey()
		if !ok {
			break
		}

		key := reflect.New(kt).Elem()
		if err := decodeValue(kterm, key); err != nil {
			return err
		}
		val := reflect.New(vt).Elem()
		if err := decodeValue(acc.NextValue(), val); err != nil {
			return err
		}
		out.SetMapIndex(key, val)
	}
	if err := acc.End(); err != nil {
		return err
	}

	v.Set(out)
	return nil
}

// decodeStruct decodes a map into a struct. Keys must be atoms;
// entries naming no field are skipped and fields absent from the map
// keep their zero value. A struct with no fields is a unit value and
// only accepts the nil atom.
func decodeStruct(t term.Term, v reflect.Value) error {
	typ := v.Type()
	if typ.NumField() == 0 {
		if !isNilAtom(t) {
			return errors.Wrapf(ErrExpectedNil, "got a %s", t.Kind())
		}
		return nil
	}

	m, ok := t.(term.Map)
	if !ok {
		return errors.Wrapf(ErrExpectedMap, "got a %s", t.Kind())
	}

	byName := make(map[string]int, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		if name, ok := fieldName(typ.Field(i)); ok {
			byName[name] = i
		}
	}

	acc := NewMapAccess(m)
	for {
		kterm, ok := acc.NextKey()
		if !ok {
			break
		}
		a, ok := kterm.(term.Atom)
		if !ok {
			return errors.Wrapf(ErrExpectedAtom, "record key is a %s", kterm.Kind())
		}
		i, ok := byName[string(a)]
		if !ok {
			acc.NextValue()
			continue
		}

		if err := decodeValue(acc.NextValue(), v.Field(i)); err != nil {
			return err
		}
	}

	return acc.End()
}

// decodeGeneric decodes a term without a type hint. Only the scalar
// and container kinds are supported: atoms become strings, 32-bit
// integers become int32, floats become float64, binaries become byte
// slices, lists and tuples become []any and maps become map[any]any.
// Everything else needs a hint.
func decodeGeneric(t term.Term) (any, error) {
	switch tt := t.(type) {
	case term.Atom:
		return string(tt), nil
	case term.FixInteger:
		return int32(tt), nil
	case term.Float:
		return float64(tt), nil
	case term.Binary:
		cp := make([]byte, len(tt))
		copy(cp, tt)
		return cp, nil
	case term.List:
		return decodeGenericSeq(tt)
	case term.Tuple:
		return decodeGenericSeq(tt)
	case term.Map:
		out := make(map[any]any, len(tt))
		for _, e := range tt {
			k, err := decodeGenericKey(e.Key)
			if err != nil {
				return nil, err
			}
			v, err := decodeGeneric(e.Value)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	}

	return nil, errors.Wrapf(ErrTypeHintsRequired, "cannot decode a %s term generically", t.Kind())
}

func decodeGenericSeq(elems []term.Term) ([]any, error) {
	out := make([]any, len(elems))
	for i, el := range elems {
		g, err := decodeGeneric(el)
		if err != nil {
			return nil, err
		}
		out[i] = g
	}

	return out, nil
}

// decodeGenericKey restricts untyped map keys to comparable scalars.
// Binary keys are converted to strings so they can be used as Go map
// keys.
func decodeGenericKey(t term.Term) (any, error) {
	switch tt := t.(type) {
	case term.Atom:
		return string(tt), nil
	case term.FixInteger:
		return int32(tt), nil
	case term.Float:
		return float64(tt), nil
	case term.Binary:
		return string(tt), nil
	}

	return nil, errors.Wrapf(ErrTypeHintsRequired, "cannot use a %s term as an untyped map key", t.Kind())
}

// A SequenceAccess is a cursor over the remaining elements of a list
// or tuple. After the consumer stops pulling, End reports whether
// elements were left over.
type SequenceAccess struct {
	rest []term.Term
}

// NewSequenceAccess returns a cursor over elems.
func NewSequenceAccess(elems []term.Term) *SequenceAccess {
	return &SequenceAccess{rest: elems}
}

// Next consumes and returns the head element. It reports false when
// the sequence is exhausted.
func (s *SequenceAccess) Next() (term.Term, bool) {
	if len(s.rest) == 0 {
		return nil, false
	}

	head := s.rest[0]
	s.rest = s.rest[1:]
	return head, true
}

// End fails with ErrTooManyItems if unconsumed elements remain.
func (s *SequenceAccess) End() error {
	if n := len(s.rest); n > 0 {
		return errors.Wrapf(ErrTooManyItems, "%d elements left over", n)
	}

	return nil
}

// A MapAccess is a cursor over the remaining entries of a map. Keys
// and values must be pulled strictly alternately; pulling them out of
// order is a bug in the caller and panics rather than returning an
// error.
type MapAccess struct {
	rest    []term.MapEntry
	pending term.Term
	hasVal  bool
}

// NewMapAccess returns a cursor over entries.
func NewMapAccess(entries term.Map) *MapAccess {
	return &MapAccess{rest: entries}
}

// NextKey consumes the next entry and returns its key, holding the
// value back for NextValue. It reports false when the map is
// exhausted.
func (m *MapAccess) NextKey() (term.Term, bool) {
	if m.hasVal {
		panic("eetf: MapAccess.NextKey called twice in a row")
	}
	if len(m.rest) == 0 {
		return nil, false
	}

	e := m.rest[0]
	m.rest = m.rest[1:]
	m.pending = e.Value
	m.hasVal = true
	return e.Key, true
}

// NextValue returns the value belonging to the key returned by the
// preceding NextKey call.
func (m *MapAccess) NextValue() term.Term {
	if !m.hasVal {
		panic("eetf: MapAccess.NextValue called before NextKey")
	}

	v := m.pending
	m.pending = nil
	m.hasVal = false
	return v
}

// End fails with ErrTooManyItems if unconsumed entries remain.
func (m *MapAccess) End() error {
	if n := len(m.rest); n > 0 {
		return errors.Wrapf(ErrTooManyItems, "%d entries left over", n)
	}

	return nil
}
