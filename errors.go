package eetf

import "github.com/cockroachdb/errors"

// The closed decode error taxonomy. Every shape mismatch between a
// term and the target it is decoded into is reported as exactly one of
// these sentinels, wrapped with context. Match with errors.Is.
var (
	// ErrTypeHintsRequired is returned when a term cannot be decoded
	// without a concrete target type. External terms are not
	// self-describing enough to recover host types unaided.
	ErrTypeHintsRequired = errors.New("eetf: type hints are required to decode this term")

	ErrExpectedBoolean     = errors.New("eetf: expected a boolean atom")
	ErrInvalidBoolean      = errors.New("eetf: atom is not a boolean")
	ErrExpectedFixInteger  = errors.New("eetf: expected an integer")
	ErrExpectedFloat       = errors.New("eetf: expected a float")
	ErrExpectedChar        = errors.New("eetf: expected a single-character binary")
	ErrExpectedBinary      = errors.New("eetf: expected a binary")
	ErrInvalidUTF8         = errors.New("eetf: binary is not valid UTF-8")
	ErrExpectedNil         = errors.New("eetf: expected the nil atom")
	ErrExpectedList        = errors.New("eetf: expected a list")
	ErrExpectedTuple       = errors.New("eetf: expected a tuple")
	ErrWrongTupleLength    = errors.New("eetf: tuple has the wrong length")
	ErrExpectedMap         = errors.New("eetf: expected a map")
	ErrExpectedAtom        = errors.New("eetf: expected an atom")
	ErrExpectedAtomOrTuple = errors.New("eetf: expected an atom or a tuple")

	// ErrIntegerConvert is returned when an integer does not fit the
	// target width.
	ErrIntegerConvert = errors.New("eetf: cannot convert integer without overflow")

	// ErrFloatConvert is returned on encode when a float has no wire
	// representation, i.e. it is NaN or infinite.
	ErrFloatConvert = errors.New("eetf: float has no external term representation")

	// ErrTooManyItems is returned when elements or entries remain
	// after a cursor has been driven to completion.
	ErrTooManyItems = errors.New("eetf: too many items")

	// ErrMisSizedVariantTuple is returned when an enum is decoded
	// from a tuple that is not a {tag, payload} pair.
	ErrMisSizedVariantTuple = errors.New("eetf: variant tuple is not a {tag, payload} pair")
)
