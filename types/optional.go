package types

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

import (
	"encoding/json"
	"strconv"
)

// OptString is a string value that may be absent. An absent value is
// different from a present empty string.
type OptString struct {
	Value string
	Valid bool
}

// SomeString returns a present OptString holding s.
func SomeString(s string) OptString {
	return OptString{Value: s, Valid: true}
}

// Int returns the value parsed as a decimal integer. The second return value
// is false if the value is absent or not numeric.
func (o OptString) Int() (int, bool) {
	if !o.Valid {
		return 0, false
	}
	v, err := strconv.Atoi(o.Value)
	if err != nil {
		return 0, false
	}
	return v, true
}

// String returns the value or "<nil>" if absent.
func (o OptString) String() string {
	if !o.Valid {
		return "<nil>"
	}
	return o.Value
}

// MarshalJSON renders absent values as null.
func (o OptString) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// OptInt is an integer value that may be absent.
type OptInt struct {
	Value int
	Valid bool
}

// SomeInt returns a present OptInt holding i.
func SomeInt(i int) OptInt {
	return OptInt{Value: i, Valid: true}
}

// String returns the value or "<nil>" if absent.
func (o OptInt) String() string {
	if !o.Valid {
		return "<nil>"
	}
	return strconv.Itoa(o.Value)
}

// MarshalJSON renders absent values as null.
func (o OptInt) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}
