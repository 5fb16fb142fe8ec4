package term

import (
	"bytes"
	"math/big"
)

// Equal reports whether a and b are the same term. Numbers compare by
// value across the FixInteger/BigInteger boundary, mirroring Erlang's
// =:= for integers.
func Equal(a, b Term) bool {
	return Compare(a, b) == 0
}

// Compare orders a and b following the Erlang term order:
//
//	number < atom < reference < fun < port < pid < tuple < map < nil < list < binary
//
// It returns a negative number if a < b, zero if both are equal and a
// positive number if a > b. FixInteger, BigInteger and Float all sit in
// the number class and compare by numeric value; equal values of
// different numeric kinds compare as equal.
func Compare(a, b Term) int {
	ra, rb := classRank(a), classRank(b)
	if ra != rb {
		return ra - rb
	}

	switch ta := a.(type) {
	case FixInteger, BigInteger, Float:
		return compareNumbers(a, b)
	case Atom:
		return bytes.Compare([]byte(ta), []byte(b.(Atom)))
	case Reference:
		tb := b.(Reference)
		if c := bytes.Compare([]byte(ta.Node), []byte(tb.Node)); c != 0 {
			return c
		}
		return compareUints(ta.ID, tb.ID)
	case Fun:
		tb := b.(Fun)
		if c := bytes.Compare(ta.Data, tb.Data); c != 0 {
			return c
		}
		return bytes.Compare([]byte(ta.Function), []byte(tb.Function))
	case Port:
		tb := b.(Port)
		switch {
		case ta.ID < tb.ID:
			return -1
		case ta.ID > tb.ID:
			return 1
		}
		return 0
	case Pid:
		tb := b.(Pid)
		if ta.ID != tb.ID {
			return int(ta.ID) - int(tb.ID)
		}
		return int(ta.Serial) - int(tb.Serial)
	case Tuple:
		tb := b.(Tuple)
		if len(ta) != len(tb) {
			return len(ta) - len(tb)
		}
		return compareSlices(ta, tb)
	case Map:
		tb := b.(Map)
		if len(ta) != len(tb) {
			return len(ta) - len(tb)
		}
		for i := range ta {
			if c := Compare(ta[i].Key, tb[i].Key); c != 0 {
				return c
			}
		}
		for i := range ta {
			if c := Compare(ta[i].Value, tb[i].Value); c != 0 {
				return c
			}
		}
		return 0
	case List:
		return compareSlices(ta, b.(List))
	case ImproperList:
		tb := b.(ImproperList)
		if c := compareSlices(ta.Elements, tb.Elements); c != 0 {
			return c
		}
		return Compare(ta.Tail, tb.Tail)
	case Binary:
		return bytes.Compare(ta, b.(Binary))
	case BitBinary:
		tb := b.(BitBinary)
		if c := bytes.Compare(ta.Bytes, tb.Bytes); c != 0 {
			return c
		}
		return int(ta.Bits) - int(tb.Bits)
	}

	return 0
}

// classRank maps a term to its position in the Erlang term order.
// The empty list sorts between maps and non-empty lists; improper
// lists share the list class.
func classRank(t Term) int {
	switch tt := t.(type) {
	case FixInteger, BigInteger, Float:
		return 0
	case Atom:
		return 1
	case Reference:
		return 2
	case Fun:
		return 3
	case Port:
		return 4
	case Pid:
		return 5
	case Tuple:
		return 6
	case Map:
		return 7
	case List:
		if len(tt) == 0 {
			return 8
		}
		return 9
	case ImproperList:
		return 9
	case Binary, BitBinary:
		return 10
	}

	return 11
}

func compareNumbers(a, b Term) int {
	af, aIsFloat := a.(Float)
	bf, bIsFloat := b.(Float)

	if aIsFloat || bIsFloat {
		var x, y float64
		if aIsFloat {
			x = float64(af)
		} else {
			x = intAsFloat(a)
		}
		if bIsFloat {
			y = float64(bf)
		} else {
			y = intAsFloat(b)
		}
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}

	return intValue(a).Cmp(intValue(b))
}

func intValue(t Term) *big.Int {
	switch tt := t.(type) {
	case FixInteger:
		return big.NewInt(int64(tt))
	case BigInteger:
		if tt.Value == nil {
			return new(big.Int)
		}
		return tt.Value
	}

	return new(big.Int)
}

func intAsFloat(t Term) float64 {
	switch tt := t.(type) {
	case FixInteger:
		return float64(tt)
	case BigInteger:
		f, _ := new(big.Float).SetInt(intValue(tt)).Float64()
		return f
	}

	return 0
}

func compareSlices(a, b []Term) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := Compare(a[i], b[i]); c != 0 {
			return c
		}
	}

	return len(a) - len(b)
}

func compareUints(a, b []uint32) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return int(a[i]) - int(b[i])
		}
	}

	return len(a) - len(b)
}
