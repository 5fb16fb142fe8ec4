package eetf_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/beamkit/eetf"
	"github.com/beamkit/eetf/term"
)

func TestDecodeScalars(t *testing.T) {
	decode := func(t *testing.T, tt term.Term, target any) {
		t.Helper()
		require.NoError(t, eetf.DecodeTerm(tt, target))
	}

	t.Run("bool", func(t *testing.T) {
		var v bool
		decode(t, term.TrueAtom, &v)
		require.True(t, v)
		decode(t, term.FalseAtom, &v)
		require.False(t, v)
	})

	t.Run("integers", func(t *testing.T) {
		var i8 int8
		decode(t, term.FixInteger(-127), &i8)
		require.Equal(t, int8(-127), i8)

		var u16 uint16
		decode(t, term.FixInteger(65530), &u16)
		require.Equal(t, uint16(65530), u16)

		var u64 uint64
		decode(t, term.NewBigInteger(65530), &u64)
		require.Equal(t, uint64(65530), u64)

		var i64 int64
		decode(t, term.NewBigInteger(-65530), &i64)
		require.Equal(t, int64(-65530), i64)
	})

	t.Run("floats", func(t *testing.T) {
		var f32 float32
		decode(t, term.Float(1.5), &f32)
		require.Equal(t, float32(1.5), f32)

		var f64 float64
		decode(t, term.Float(-2.25), &f64)
		require.Equal(t, -2.25, f64)
	})

	t.Run("char", func(t *testing.T) {
		var c eetf.Char
		decode(t, term.Binary("é"), &c)
		require.Equal(t, eetf.Char('é'), c)
	})

	t.Run("string", func(t *testing.T) {
		var s string
		decode(t, term.Binary("test"), &s)
		require.Equal(t, "test", s)
	})

	t.Run("bytes", func(t *testing.T) {
		var b []byte
		decode(t, term.Binary{0xFF, 0xFE}, &b)
		require.Equal(t, []byte{0xFF, 0xFE}, b)
	})
}

func TestDecodeKindMismatches(t *testing.T) {
	tests := []struct {
		name   string
		tt     term.Term
		target any
		want   error
	}{
		{"integer into bool", term.FixInteger(1), new(bool), eetf.ErrExpectedBoolean},
		{"non-boolean atom", term.Atom("maybe"), new(bool), eetf.ErrInvalidBoolean},
		{"float into int", term.Float(1), new(int32), eetf.ErrExpectedFixInteger},
		{"integer into float", term.FixInteger(1), new(float64), eetf.ErrExpectedFloat},
		{"big into float", term.NewBigInteger(1), new(float64), eetf.ErrExpectedFloat},
		{"atom into string", term.Atom("ok"), new(string), eetf.ErrExpectedBinary},
		{"atom into char", term.Atom("ok"), new(eetf.Char), eetf.ErrExpectedChar},
		{"two chars", term.Binary("ab"), new(eetf.Char), eetf.ErrExpectedChar},
		{"integer into unit", term.FixInteger(1), new(struct{}), eetf.ErrExpectedNil},
		{"tuple into slice", term.Tuple{}, new([]int8), eetf.ErrExpectedList},
		{"list into array", term.List{}, new([2]int8), eetf.ErrExpectedTuple},
		{"list into map", term.List{}, new(map[string]int8), eetf.ErrExpectedMap},
		{"list into struct", term.List{}, new(struct{ A int8 }), eetf.ErrExpectedMap},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.ErrorIs(t, eetf.DecodeTerm(test.tt, test.target), test.want)
		})
	}
}

func TestDecodeIntegerRanges(t *testing.T) {
	tests := []struct {
		name   string
		tt     term.Term
		target any
		want   error
	}{
		{"fix overflows int8", term.FixInteger(300), new(int8), eetf.ErrIntegerConvert},
		{"big overflows uint8", term.NewBigInteger(300), new(uint8), eetf.ErrIntegerConvert},
		{"negative into uint", term.FixInteger(-1), new(uint32), eetf.ErrIntegerConvert},
		{"negative big into uint64", term.NewBigInteger(-1), new(uint64), eetf.ErrIntegerConvert},
		{"big beyond 64 bits", term.NewBigIntegerUint(1 << 63), new(int64), eetf.ErrIntegerConvert},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.ErrorIs(t, eetf.DecodeTerm(test.tt, test.target), test.want)
		})
	}

	t.Run("exact bounds", func(t *testing.T) {
		var i8 int8
		require.NoError(t, eetf.DecodeTerm(term.FixInteger(-128), &i8))
		require.Equal(t, int8(-128), i8)

		var u8 uint8
		require.NoError(t, eetf.DecodeTerm(term.FixInteger(255), &u8))
		require.Equal(t, uint8(255), u8)
	})
}

func TestDecodeInvalidUTF8(t *testing.T) {
	bad := term.Binary{0xFF, 0xFE, 0xFD}

	var s string
	require.ErrorIs(t, eetf.DecodeTerm(bad, &s), eetf.ErrInvalidUTF8)

	// the same binary decodes fine into a byte blob
	var b []byte
	require.NoError(t, eetf.DecodeTerm(bad, &b))
	require.Equal(t, []byte{0xFF, 0xFE, 0xFD}, b)
}

func TestDecodeOptional(t *testing.T) {
	var v *uint8
	require.NoError(t, eetf.DecodeTerm(term.NilAtom, &v))
	require.Nil(t, v)

	require.NoError(t, eetf.DecodeTerm(term.FixInteger(0), &v))
	require.NotNil(t, v)
	require.Equal(t, uint8(0), *v)

	// decoding nil again resets a previously set pointer
	require.NoError(t, eetf.DecodeTerm(term.NilAtom, &v))
	require.Nil(t, v)
}

func TestDecodeUnit(t *testing.T) {
	var u struct{}
	require.NoError(t, eetf.DecodeTerm(term.NilAtom, &u))
}

func TestDecodeStruct(t *testing.T) {
	type testStruct struct {
		Unsigned8  uint8  `eetf:"unsigned8"`
		Unsigned16 uint16 `eetf:"unsigned16"`
		Unsigned32 uint32 `eetf:"unsigned32"`
		Unsigned64 uint64 `eetf:"unsigned64"`
	}

	in := term.Map{
		{Key: term.Atom("unsigned8"), Value: term.FixInteger(129)},
		{Key: term.Atom("unsigned16"), Value: term.FixInteger(65530)},
		{Key: term.Atom("unsigned32"), Value: term.NewBigInteger(65530)},
		{Key: term.Atom("unsigned64"), Value: term.NewBigInteger(65530)},
	}

	var got testStruct
	require.NoError(t, eetf.DecodeTerm(in, &got))
	require.Equal(t, testStruct{
		Unsigned8:  129,
		Unsigned16: 65530,
		Unsigned32: 65530,
		Unsigned64: 65530,
	}, got)
}

func TestDecodeStructEdgeCases(t *testing.T) {
	type pair struct {
		A int8 `eetf:"a"`
		B int8 `eetf:"b"`
	}

	t.Run("missing fields stay zero", func(t *testing.T) {
		var got pair
		in := term.Map{{Key: term.Atom("b"), Value: term.FixInteger(2)}}
		require.NoError(t, eetf.DecodeTerm(in, &got))
		require.Equal(t, pair{B: 2}, got)
	})

	t.Run("unknown field ignored", func(t *testing.T) {
		var got pair
		in := term.Map{
			{Key: term.Atom("zzz"), Value: term.FixInteger(1)},
			{Key: term.Atom("a"), Value: term.FixInteger(4)},
		}
		require.NoError(t, eetf.DecodeTerm(in, &got))
		require.Equal(t, pair{A: 4}, got)
	})

	t.Run("non-atom key", func(t *testing.T) {
		var got pair
		in := term.Map{{Key: term.Binary("a"), Value: term.FixInteger(1)}}
		require.ErrorIs(t, eetf.DecodeTerm(in, &got), eetf.ErrExpectedAtom)
	})
}

func TestDecodeArrayArity(t *testing.T) {
	var a [3]int8
	in := term.Tuple{term.FixInteger(1), term.FixInteger(2)}
	require.ErrorIs(t, eetf.DecodeTerm(in, &a), eetf.ErrWrongTupleLength)

	in = append(in, term.FixInteger(3))
	require.NoError(t, eetf.DecodeTerm(in, &a))
	require.Equal(t, [3]int8{1, 2, 3}, a)
}

func TestDecodeMapTarget(t *testing.T) {
	in := term.Map{
		{Key: term.Binary("a"), Value: term.FixInteger(1)},
		{Key: term.Binary("b"), Value: term.FixInteger(2)},
		{Key: term.Binary("a"), Value: term.FixInteger(3)},
	}

	var got map[string]uint8
	require.NoError(t, eetf.DecodeTerm(in, &got))

	// the last duplicate wins when the target cannot hold both
	require.Equal(t, map[string]uint8{"a": 3, "b": 2}, got)
}

func TestDecodeGeneric(t *testing.T) {
	t.Run("supported kinds", func(t *testing.T) {
		in := term.Tuple{
			term.Atom("ok"),
			term.FixInteger(1),
			term.Float(1.5),
			term.Binary("raw"),
			term.List{term.FixInteger(2)},
			term.Map{{Key: term.Atom("k"), Value: term.Binary("v")}},
		}

		var got any
		require.NoError(t, eetf.DecodeTerm(in, &got))
		require.Equal(t, []any{
			"ok",
			int32(1),
			1.5,
			[]byte("raw"),
			[]any{int32(2)},
			map[any]any{"k": []byte("v")},
		}, got)
	})

	t.Run("big integer needs a hint", func(t *testing.T) {
		var got any
		err := eetf.DecodeTerm(term.NewBigInteger(1), &got)
		require.ErrorIs(t, err, eetf.ErrTypeHintsRequired)
	})

	t.Run("opaque kinds need a hint", func(t *testing.T) {
		var got any
		err := eetf.DecodeTerm(term.Pid{Node: "n"}, &got)
		require.ErrorIs(t, err, eetf.ErrTypeHintsRequired)
	})

	t.Run("composite map key needs a hint", func(t *testing.T) {
		var got any
		in := term.Map{{Key: term.Tuple{}, Value: term.FixInteger(1)}}
		err := eetf.DecodeTerm(in, &got)
		require.ErrorIs(t, err, eetf.ErrTypeHintsRequired)
	})
}

func TestDecodeTermPassthrough(t *testing.T) {
	in := term.Tuple{term.Atom("raw")}

	var raw term.Term
	require.NoError(t, eetf.DecodeTerm(in, &raw))
	require.True(t, term.Equal(in, raw))

	var tup term.Tuple
	require.NoError(t, eetf.DecodeTerm(in, &tup))
	require.True(t, term.Equal(in, tup))

	var l term.List
	require.Error(t, eetf.DecodeTerm(in, &l))
}

func TestDecodeUnmarshaler(t *testing.T) {
	var s upperString
	require.NoError(t, eetf.DecodeTerm(term.Atom("custom"), &s))
	require.Equal(t, upperString("custom"), s)
}

func TestDecodeBadTarget(t *testing.T) {
	require.Error(t, eetf.DecodeTerm(term.NilAtom, nil))
	require.Error(t, eetf.DecodeTerm(term.NilAtom, (*uint8)(nil)))

	var v uint8
	require.Error(t, eetf.DecodeTerm(term.FixInteger(1), v))
}

func TestSequenceAccess(t *testing.T) {
	seq := eetf.NewSequenceAccess([]term.Term{term.FixInteger(1), term.FixInteger(2)})

	head, ok := seq.Next()
	require.True(t, ok)
	require.Equal(t, term.FixInteger(1), head)

	// stopping early leaves an element behind
	require.ErrorIs(t, seq.End(), eetf.ErrTooManyItems)

	head, ok = seq.Next()
	require.True(t, ok)
	require.Equal(t, term.FixInteger(2), head)
	require.NoError(t, seq.End())

	_, ok = seq.Next()
	require.False(t, ok)
}

func TestMapAccess(t *testing.T) {
	entries := term.Map{
		{Key: term.Atom("a"), Value: term.FixInteger(1)},
		{Key: term.Atom("b"), Value: term.FixInteger(2)},
	}

	t.Run("sequential use", func(t *testing.T) {
		acc := eetf.NewMapAccess(entries)

		k, ok := acc.NextKey()
		require.True(t, ok)
		require.Equal(t, term.Atom("a"), k)
		require.Equal(t, term.FixInteger(1), acc.NextValue())

		require.ErrorIs(t, acc.End(), eetf.ErrTooManyItems)

		k, ok = acc.NextKey()
		require.True(t, ok)
		require.Equal(t, term.Atom("b"), k)
		require.Equal(t, term.FixInteger(2), acc.NextValue())
		require.NoError(t, acc.End())

		_, ok = acc.NextKey()
		require.False(t, ok)
	})

	t.Run("value before key panics", func(t *testing.T) {
		acc := eetf.NewMapAccess(entries)
		require.Panics(t, func() { acc.NextValue() })
	})

	t.Run("key pulled twice panics", func(t *testing.T) {
		acc := eetf.NewMapAccess(entries)
		_, _ = acc.NextKey()
		require.Panics(t, func() { acc.NextKey() })
	})
}
