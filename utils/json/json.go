// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package json provides JSON serialization utilities for numeric types.
package json

import (
	"errors"
	"math/big"
	"strconv"
)

const Null = "null"

var errInvalidBigInt = errors.New("invalid integer")

// unquote strips one pair of surrounding double quotes, if present.
func unquote(b []byte) string {
	str := string(b)
	if len(str) >= 2 {
		if lastIndex := len(str) - 1; str[0] == '"' && str[lastIndex] == '"' {
			str = str[1:lastIndex]
		}
	}
	return str
}

// Uint64 is a uint64 that can be JSON marshaled as a string.
type Uint64 uint64

func (u Uint64) MarshalJSON() ([]byte, error) {
	return []byte(`"` + strconv.FormatUint(uint64(u), 10) + `"`), nil
}

func (u *Uint64) UnmarshalJSON(b []byte) error {
	str := string(b)
	if str == Null {
		return nil
	}
	val, err := strconv.ParseUint(unquote(b), 10, 64)
	*u = Uint64(val)
	return err
}

// BigInt is an arbitrary precision integer that is JSON marshaled as a
// decimal string, so 18-decimal token amounts survive JavaScript clients.
// Both quoted and bare decimal numbers are accepted when unmarshaling.
type BigInt big.Int

// NewBigInt wraps a copy of v. A nil v is treated as zero.
func NewBigInt(v *big.Int) *BigInt {
	b := new(big.Int)
	if v != nil {
		b.Set(v)
	}
	return (*BigInt)(b)
}

// Int returns a copy of the underlying value. A nil receiver is zero.
func (b *BigInt) Int() *big.Int {
	if b == nil {
		return new(big.Int)
	}
	return new(big.Int).Set((*big.Int)(b))
}

func (b *BigInt) String() string {
	return b.Int().String()
}

func (b *BigInt) MarshalJSON() ([]byte, error) {
	return []byte(`"` + b.String() + `"`), nil
}

func (b *BigInt) UnmarshalJSON(data []byte) error {
	str := string(data)
	if str == Null {
		return nil
	}
	v, ok := new(big.Int).SetString(unquote(data), 10)
	if !ok {
		return errInvalidBigInt
	}
	*b = BigInt(*v)
	return nil
}
