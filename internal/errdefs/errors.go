/*
Copyright (c) 2025 Mike Lane

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

// Package errdefs defines the error taxonomy shared by the collector, the
// preview providers and the executor.
package errdefs

import (
	"errors"
	"fmt"
)

// ErrAlreadyDeleted indicates that a delete targeted a resource that no longer
// exists. The desired end state already holds, so callers treat it as success.
var ErrAlreadyDeleted = errors.New("resource already deleted")

// ConfigurationError is a fatal misconfiguration detected before any inventory
// is collected.
type ConfigurationError struct {
	// Field names the offending configuration key (e.g. "preview_pattern")
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %q: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Configf builds a ConfigurationError for field with a formatted cause.
func Configf(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Err: fmt.Errorf(format, args...)}
}

// TransportError is a network, authentication or process failure on a single
// call against one of the external platforms.
type TransportError struct {
	Platform string
	Op       string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Platform, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsAlreadyDeleted reports whether err signals an already-absent resource.
func IsAlreadyDeleted(err error) bool {
	return errors.Is(err, ErrAlreadyDeleted)
}
