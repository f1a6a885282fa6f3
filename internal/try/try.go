// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package try holds deferred helpers which fold panics and close
// failures into a named error return.
package try

import (
	"errors"
	"fmt"
	"io"

	"github.com/z5labs/beacon"
)

// Recover must be deferred. A recovered panic value is wrapped in
// a [beacon.PanicError] and joined with whatever *err already holds.
func Recover(err *error) {
	r := recover()
	if r == nil {
		return
	}
	*err = errors.Join(*err, beacon.PanicError{Value: r})
}

// CloseError
type CloseError struct {
	Name  string
	Cause error
}

func (e CloseError) Error() string {
	return fmt.Sprintf("failed to close %s: %s", e.Name, e.Cause)
}

func (e CloseError) Unwrap() error {
	return e.Cause
}

// Close closes c and joins any failure into *err.
func Close(err *error, name string, c io.Closer) {
	if c == nil {
		return
	}
	cerr := c.Close()
	if cerr == nil {
		return
	}
	*err = errors.Join(*err, CloseError{Name: name, Cause: cerr})
}
