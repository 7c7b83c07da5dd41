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
	"math"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/go-kit/log/level"
	"golang.org/x/xerrors"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/known/anypb"
)

var anyName = (&anypb.Any{}).ProtoReflect().Descriptor().FullName()

// MapSchema derives the arrow schema for messages described by md.
//
// Fields that cannot be represented (messages without fields, or messages
// expanded more often than the recursion bound allows) are dropped and
// returned as diagnostics; the rest of the schema is still produced. An
// unsupported field type fails the whole mapping.
func MapSchema(md protoreflect.MessageDescriptor, opts ...Option) (*arrow.Schema, []Diagnostic, error) {
	return mapSchema(md, newConfig(opts...))
}

func mapSchema(md protoreflect.MessageDescriptor, cfg *config) (*arrow.Schema, []Diagnostic, error) {
	m := schemaMapper{cfg: cfg}
	fields, err := m.mapFields(md, nil, make(map[string]int))
	if err != nil {
		return nil, m.diags, err
	}
	if len(fields) == 0 {
		return nil, m.diags, xerrors.Errorf("message %s has no convertible fields: %w", md.FullName(), ErrEmptyStruct)
	}
	return arrow.NewSchema(fields, nil), m.diags, nil
}

type schemaMapper struct {
	cfg   *config
	diags []Diagnostic
}

// mapFields maps every field of md in declaration order. depth counts, per
// field name, how many expansions of that name enclose the current path.
func (m *schemaMapper) mapFields(md protoreflect.MessageDescriptor, path []string, depth map[string]int) ([]arrow.Field, error) {
	fds := md.Fields()
	fields := make([]arrow.Field, 0, fds.Len())
	columns := make(map[string]protoreflect.Name, fds.Len())
	for i := 0; i < fds.Len(); i++ {
		fd := fds.Get(i)
		f, err := m.mapField(fd, path, depth)
		switch {
		case err == nil:
			if prev, ok := columns[f.Name]; ok {
				return nil, xerrors.Errorf("fields %s and %s of %s both map to column %q: %w",
					prev, fd.Name(), md.FullName(), f.Name, ErrSchemaMismatch)
			}
			columns[f.Name] = fd.Name()
			fields = append(fields, f)
		case errors.Is(err, ErrEmptyStruct), errors.Is(err, ErrRecursionLimitExceeded):
			m.drop(path, fd, err)
		default:
			return nil, err
		}
	}
	return fields, nil
}

func (m *schemaMapper) mapField(fd protoreflect.FieldDescriptor, path []string, depth map[string]int) (arrow.Field, error) {
	name := string(fd.Name())
	if expandsMessage(fd) {
		depth[name]++
		defer func() { depth[name]-- }()
		if depth[name] > m.cfg.maxDepth {
			return arrow.Field{}, xerrors.Errorf("%q expanded more than %d times: %w", name, m.cfg.maxDepth, ErrRecursionLimitExceeded)
		}
	}

	dt, err := m.mapType(fd, appendPath(path, name), depth)
	if err != nil {
		return arrow.Field{}, err
	}
	return arrow.Field{Name: m.cfg.formatter(name), Type: dt, Nullable: true}, nil
}

func (m *schemaMapper) mapType(fd protoreflect.FieldDescriptor, path []string, depth map[string]int) (arrow.DataType, error) {
	switch {
	case fd.IsMap():
		kt, err := m.mapKind(fd.MapKey(), path, depth)
		if err != nil {
			return nil, err
		}
		vt, err := m.mapKind(fd.MapValue(), path, depth)
		if err != nil {
			return nil, err
		}
		return arrow.MapOf(kt, vt), nil
	case fd.IsList():
		et, err := m.mapKind(fd, path, depth)
		if err != nil {
			return nil, err
		}
		return arrow.ListOf(et), nil
	}
	return m.mapKind(fd, path, depth)
}

// mapKind maps a single value of fd, ignoring its cardinality.
func (m *schemaMapper) mapKind(fd protoreflect.FieldDescriptor, path []string, depth map[string]int) (arrow.DataType, error) {
	switch fd.Kind() {
	case protoreflect.BoolKind:
		return arrow.FixedWidthTypes.Boolean, nil
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		return arrow.PrimitiveTypes.Int32, nil
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return arrow.PrimitiveTypes.Int64, nil
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		return arrow.PrimitiveTypes.Uint32, nil
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return arrow.PrimitiveTypes.Uint64, nil
	case protoreflect.FloatKind:
		return arrow.PrimitiveTypes.Float32, nil
	case protoreflect.DoubleKind:
		return arrow.PrimitiveTypes.Float64, nil
	case protoreflect.StringKind:
		return arrow.BinaryTypes.String, nil
	case protoreflect.BytesKind:
		return arrow.BinaryTypes.Binary, nil
	case protoreflect.EnumKind:
		return dictionaryType(fd.Enum().Values().Len()), nil
	case protoreflect.MessageKind, protoreflect.GroupKind:
		md := fd.Message()
		if md.FullName() == anyName {
			return nil, xerrors.Errorf("%s holds an opaque %s: %w", fd.FullName(), md.FullName(), ErrUnsupportedType)
		}
		if md.Fields().Len() == 0 {
			return nil, xerrors.Errorf("%s has no fields: %w", md.FullName(), ErrEmptyStruct)
		}
		children, err := m.mapFields(md, path, depth)
		if err != nil {
			return nil, err
		}
		if len(children) == 0 {
			return nil, xerrors.Errorf("no field of %s could be converted: %w", md.FullName(), ErrEmptyStruct)
		}
		return arrow.StructOf(children...), nil
	}
	return nil, xerrors.Errorf("%s has kind %s: %w", fd.FullName(), fd.Kind(), ErrUnsupportedType)
}

func (m *schemaMapper) drop(path []string, fd protoreflect.FieldDescriptor, err error) {
	d := Diagnostic{Path: path, Field: string(fd.Name()), Err: err}
	m.diags = append(m.diags, d)
	level.Warn(m.cfg.logger).Log("msg", "dropping field from arrow schema", "field", d.qualifiedName(), "reason", d.reason(), "err", err)
	m.cfg.metrics.droppedField(d.reason())
}

// expandsMessage reports whether mapping fd descends into a message type.
func expandsMessage(fd protoreflect.FieldDescriptor) bool {
	if fd.IsMap() {
		fd = fd.MapValue()
	}
	return fd.Kind() == protoreflect.MessageKind || fd.Kind() == protoreflect.GroupKind
}

// dictionaryType returns the dictionary type for an enum with n constants,
// using the narrowest unsigned index able to address all of them.
func dictionaryType(n int) *arrow.DictionaryType {
	dt := &arrow.DictionaryType{
		IndexType: arrow.PrimitiveTypes.Uint32,
		ValueType: arrow.BinaryTypes.String,
	}
	switch {
	case n <= math.MaxUint8:
		dt.IndexType = arrow.PrimitiveTypes.Uint8
	case n <= math.MaxUint16:
		dt.IndexType = arrow.PrimitiveTypes.Uint16
	}
	return dt
}

// appendPath returns path+name without sharing the backing array of path.
func appendPath(path []string, name string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, name)
}
