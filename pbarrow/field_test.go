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
	"testing"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/huandu/xstrings"
	"github.com/pbarrow/pbarrow/internal/testing/protos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

func TestZipFields(t *testing.T) {
	md := protos.Message("Collections")
	schema, _, err := MapSchema(md)
	require.NoError(t, err)

	fields, err := ZipFields(md, schema)
	require.NoError(t, err)
	require.Len(t, fields, 3)

	for i, f := range fields {
		assert.True(t, f.Arrow().Equal(schema.Field(i)))
		assert.Equal(t, md.Fields().Get(i), f.Descriptor())
	}

	tags := fields[0]
	assert.Equal(t, kindList, tags.kind)
	require.Len(t, tags.Children(), 1)
	assert.Equal(t, kindString, tags.Children()[0].kind)
	assert.Equal(t, []string{"tags", "item"}, tags.Children()[0].Path())

	points := fields[2]
	assert.Equal(t, kindMap, points.kind)
	require.Len(t, points.Children(), 2)
	key, item := points.Children()[0], points.Children()[1]
	assert.Equal(t, kindInt32, key.kind)
	assert.Equal(t, kindStruct, item.kind)
	assert.Equal(t, protos.Message("Vertex"), item.message)
	assert.Equal(t, []string{"points", "value", "x"}, item.Children()[0].Path())
}

func TestZipFieldsEnum(t *testing.T) {
	md := protos.Message("Palette")
	schema, _, err := MapSchema(md)
	require.NoError(t, err)
	fields, err := ZipFields(md, schema)
	require.NoError(t, err)

	color := fields[0]
	assert.Equal(t, kindDictionary, color.kind)
	assert.Equal(t, []string{"RED", "GREEN", "BLUE"}, color.Enumerants())
	assert.Equal(t, "BLUE", color.enum.names[protoreflect.EnumNumber(2)])
	assert.Equal(t, []string{"RED", "GREEN", "BLUE"}, fields[1].Children()[0].Enumerants())
	assert.Nil(t, fields[1].Enumerants())
}

func TestZipFieldsMismatch(t *testing.T) {
	tests := []struct {
		name    string
		message string
		fields  []arrow.Field
	}{
		{"missing column", "Point", []arrow.Field{nullable("z", arrow.PrimitiveTypes.Float32)}},
		{"wrong scalar", "Point", []arrow.Field{nullable("x", arrow.PrimitiveTypes.Int64)}},
		{"signedness", "Scalars", []arrow.Field{nullable("u32", arrow.PrimitiveTypes.Int32)}},
		{"repeated as scalar", "Polygon", []arrow.Field{nullable("vertices", arrow.StructOf(nullable("x", arrow.PrimitiveTypes.Int32)))}},
		{"scalar as list", "Polygon", []arrow.Field{nullable("name", arrow.ListOf(arrow.BinaryTypes.String))}},
		{"list as map", "Collections", []arrow.Field{nullable("tags", arrow.MapOf(arrow.BinaryTypes.String, arrow.BinaryTypes.String))}},
		{"nested", "Shape", []arrow.Field{nullable("a", arrow.StructOf(nullable("q", arrow.PrimitiveTypes.Int32)))}},
		{"enum values", "Palette", []arrow.Field{nullable("color", &arrow.DictionaryType{IndexType: arrow.PrimitiveTypes.Uint8, ValueType: arrow.BinaryTypes.Binary})}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields, err := ZipFields(protos.Message(tt.message), arrow.NewSchema(tt.fields, nil))
			assert.ErrorIs(t, err, ErrSchemaMismatch)
			assert.Nil(t, fields)
		})
	}
}

func TestZipFieldsSubset(t *testing.T) {
	// columns may be a reordered subset of the message fields
	md := protos.Message("Scalars")
	schema := arrow.NewSchema([]arrow.Field{
		nullable("str", arrow.BinaryTypes.String),
		nullable("b", arrow.FixedWidthTypes.Boolean),
	}, nil)

	fields, err := ZipFields(md, schema)
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, protoreflect.Name("str"), fields[0].Descriptor().Name())
	assert.Equal(t, protoreflect.Name("b"), fields[1].Descriptor().Name())
}

func TestZipFieldsDuplicateColumn(t *testing.T) {
	md := protos.LegacyMessage("Dup")

	schema := arrow.NewSchema([]arrow.Field{nullable("fooBar", arrow.PrimitiveTypes.Int32)}, nil)
	fields, err := ZipFields(md, schema, WithFieldNameFormatter(xstrings.ToCamelCase))
	assert.ErrorIs(t, err, ErrSchemaMismatch)
	assert.Nil(t, fields)

	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	schema, _, err = MapSchema(md)
	require.NoError(t, err)
	fields, err = ZipFields(md, schema)
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, md.Fields().ByName("foo_bar"), fields[0].Descriptor())
	assert.Equal(t, md.Fields().ByName("fooBar"), fields[1].Descriptor())

	msg := dynamicpb.NewMessage(md)
	msg.Set(md.Fields().ByName("foo_bar"), protoreflect.ValueOfInt32(1))
	msg.Set(md.Fields().ByName("fooBar"), protoreflect.ValueOfInt32(2))

	rec, err := Deserialize(mem, schema, fields, []protoreflect.Message{msg})
	require.NoError(t, err)
	defer rec.Release()
	assert.Equal(t, []int32{1}, rec.Column(0).(*array.Int32).Int32Values())
	assert.Equal(t, []int32{2}, rec.Column(1).(*array.Int32).Int32Values())
}
