// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pbarrow

import (
	"errors"
	"fmt"
	"strings"
)

// Recoverable schema mapping errors. A field failing with one of these is
// dropped from its parent and reported as a Diagnostic.
var (
	ErrEmptyStruct            = errors.New("pbarrow: empty struct")
	ErrRecursionLimitExceeded = errors.New("pbarrow: recursion limit exceeded")
)

// Fatal errors.
var (
	ErrUnsupportedType = errors.New("pbarrow: unsupported type")
	ErrMalformedSchema = errors.New("pbarrow: malformed schema")
	ErrSchemaMismatch  = errors.New("pbarrow: arrow schema does not match message descriptor")

	// ErrInvariantViolation marks failures caused by wiring bugs rather than
	// by the data or the schema, e.g. decoding messages of a different type
	// than the one the fields were zipped against.
	ErrInvariantViolation = errors.New("pbarrow: invariant violation")
	ErrTypeMismatch       = errors.New("pbarrow: type mismatch")
)

// InvariantError reports a runtime value that disagrees with the kind cached
// for its column. It matches both ErrInvariantViolation and ErrTypeMismatch.
type InvariantError struct {
	Path []string
	Want string
	Got  string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%v: %v: column %q expects %s, got %s",
		ErrInvariantViolation, ErrTypeMismatch, strings.Join(e.Path, "."), e.Want, e.Got)
}

func (e *InvariantError) Is(target error) bool {
	return target == ErrInvariantViolation || target == ErrTypeMismatch
}

// Diagnostic describes a source field that was left out of the arrow schema.
type Diagnostic struct {
	// Path holds the names of the enclosing fields, outermost first.
	Path  []string
	Field string
	Err   error
}

func (d Diagnostic) qualifiedName() string {
	if len(d.Path) == 0 {
		return d.Field
	}
	return strings.Join(d.Path, ".") + "." + d.Field
}

func (d Diagnostic) String() string {
	name := d.qualifiedName()
	switch {
	case errors.Is(d.Err, ErrEmptyStruct):
		return fmt.Sprintf("cannot convert empty struct %q: arrow requires at least one field", name)
	case errors.Is(d.Err, ErrRecursionLimitExceeded):
		return fmt.Sprintf("field %q exceeded the recursion limit: %v", name, d.Err)
	}
	return fmt.Sprintf("field %q: %v", name, d.Err)
}

func (d Diagnostic) reason() string {
	switch {
	case errors.Is(d.Err, ErrEmptyStruct):
		return "empty_struct"
	case errors.Is(d.Err, ErrRecursionLimitExceeded):
		return "recursion_limit"
	}
	return "other"
}
