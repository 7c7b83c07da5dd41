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
	"github.com/apache/arrow/go/v17/arrow"
	"golang.org/x/xerrors"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// Field binds a column of a mapped schema to the protobuf field it is read
// from. Fields are immutable once zipped and may be shared between batches
// and goroutines.
type Field struct {
	arrow    arrow.Field
	desc     protoreflect.FieldDescriptor
	kind     kind
	path     []string
	message  protoreflect.MessageDescriptor
	enum     *enumTable
	children []*Field
}

// Arrow returns the arrow field of the column.
func (f *Field) Arrow() arrow.Field { return f.arrow }

// Descriptor returns the protobuf field the column is read from. For list
// items this is the repeated field itself, for map keys and values the
// synthetic entry fields.
func (f *Field) Descriptor() protoreflect.FieldDescriptor { return f.desc }

// Path returns the column names from the root of the schema down to f.
func (f *Field) Path() []string { return f.path }

// Children returns the zipped children of struct, list and map columns.
func (f *Field) Children() []*Field { return f.children }

// Enumerants returns the dictionary values of an enum column in declaration
// order, or nil for other columns.
func (f *Field) Enumerants() []string {
	if f.enum == nil {
		return nil
	}
	return f.enum.values
}

type enumTable struct {
	values []string
	names  map[protoreflect.EnumNumber]string
}

func newEnumTable(ed protoreflect.EnumDescriptor) *enumTable {
	vals := ed.Values()
	t := &enumTable{
		values: make([]string, vals.Len()),
		names:  make(map[protoreflect.EnumNumber]string, vals.Len()),
	}
	for i := 0; i < vals.Len(); i++ {
		v := vals.Get(i)
		t.values[i] = string(v.Name())
		// aliases share a number; the first declared name wins
		if _, ok := t.names[v.Number()]; !ok {
			t.names[v.Number()] = string(v.Name())
		}
	}
	return t
}

// ZipFields pairs every field of schema with its protobuf field in md. The
// schema is normally the one returned by MapSchema for md with the same
// options; a column with no matching source field, or one whose type does
// not agree with the source field, fails with ErrSchemaMismatch. So does a
// formatter that gives two fields of one message the same column name.
func ZipFields(md protoreflect.MessageDescriptor, schema *arrow.Schema, opts ...Option) ([]*Field, error) {
	return zipFields(md, schema, newConfig(opts...))
}

func zipFields(md protoreflect.MessageDescriptor, schema *arrow.Schema, cfg *config) ([]*Field, error) {
	z := fieldZipper{format: cfg.formatter}
	return z.zipStruct(md, schema.Fields(), nil)
}

type fieldZipper struct {
	format func(string) string
}

func (z fieldZipper) zipStruct(md protoreflect.MessageDescriptor, fields []arrow.Field, path []string) ([]*Field, error) {
	fds := md.Fields()
	byName := make(map[string]protoreflect.FieldDescriptor, fds.Len())
	for i := 0; i < fds.Len(); i++ {
		fd := fds.Get(i)
		name := z.format(string(fd.Name()))
		if prev, ok := byName[name]; ok {
			return nil, xerrors.Errorf("fields %s and %s of %s both map to column %q: %w",
				prev.Name(), fd.Name(), md.FullName(), name, ErrSchemaMismatch)
		}
		byName[name] = fd
	}

	out := make([]*Field, 0, len(fields))
	for _, af := range fields {
		fd, ok := byName[af.Name]
		if !ok {
			return nil, xerrors.Errorf("%s has no field for column %q: %w", md.FullName(), af.Name, ErrSchemaMismatch)
		}
		f, err := z.zipField(fd, af, appendPath(path, af.Name))
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func (z fieldZipper) zipField(fd protoreflect.FieldDescriptor, af arrow.Field, path []string) (*Field, error) {
	switch dt := af.Type.(type) {
	case *arrow.MapType:
		if !fd.IsMap() {
			return nil, mismatch(fd, af)
		}
		key, err := z.zipValue(fd.MapKey(), dt.KeyField(), appendPath(path, dt.KeyField().Name))
		if err != nil {
			return nil, err
		}
		item, err := z.zipValue(fd.MapValue(), dt.ItemField(), appendPath(path, dt.ItemField().Name))
		if err != nil {
			return nil, err
		}
		return &Field{arrow: af, desc: fd, kind: kindMap, path: path, children: []*Field{key, item}}, nil
	case *arrow.ListType:
		if !fd.IsList() {
			return nil, mismatch(fd, af)
		}
		elem, err := z.zipValue(fd, dt.ElemField(), appendPath(path, dt.ElemField().Name))
		if err != nil {
			return nil, err
		}
		return &Field{arrow: af, desc: fd, kind: kindList, path: path, children: []*Field{elem}}, nil
	}
	if fd.IsList() || fd.IsMap() {
		return nil, mismatch(fd, af)
	}
	return z.zipValue(fd, af, path)
}

// zipValue zips a single value of fd, ignoring its cardinality.
func (z fieldZipper) zipValue(fd protoreflect.FieldDescriptor, af arrow.Field, path []string) (*Field, error) {
	f := &Field{arrow: af, desc: fd, kind: kindOf(af.Type), path: path}
	if !f.kind.accepts(fd.Kind()) {
		return nil, mismatch(fd, af)
	}

	switch f.kind {
	case kindStruct:
		f.message = fd.Message()
		children, err := z.zipStruct(f.message, af.Type.(*arrow.StructType).Fields(), path)
		if err != nil {
			return nil, err
		}
		f.children = children
	case kindDictionary:
		dt := af.Type.(*arrow.DictionaryType)
		if dt.ValueType.ID() != arrow.STRING {
			return nil, mismatch(fd, af)
		}
		f.enum = newEnumTable(fd.Enum())
	}
	return f, nil
}

func mismatch(fd protoreflect.FieldDescriptor, af arrow.Field) error {
	return xerrors.Errorf("column %q of type %s cannot hold %s (%s): %w", af.Name, af.Type, fd.FullName(), fd.Kind(), ErrSchemaMismatch)
}
