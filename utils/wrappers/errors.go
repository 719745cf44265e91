// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package wrappers provides common wrapper types and utilities.
package wrappers

import stderrors "errors"

const (
	// ByteLen is the number of bytes per byte
	ByteLen = 1
	// ShortLen is the number of bytes per short
	ShortLen = 2
	// IntLen is the number of bytes per int
	IntLen = 4
	// LongLen is the number of bytes per long
	LongLen = 8
)

// Errs accumulates the errors of a sequence of operations. Err wraps every
// non-nil error added, in order, so errors.Is matches any of them.
type Errs struct {
	Err error
}

func (errs *Errs) Errored() bool {
	return errs.Err != nil
}

func (errs *Errs) Add(errors ...error) {
	for _, err := range errors {
		if err == nil {
			continue
		}
		if errs.Err == nil {
			errs.Err = err
			continue
		}
		errs.Err = stderrors.Join(errs.Err, err)
	}
}
