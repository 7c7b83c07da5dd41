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
	"bytes"
	"testing"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/go-kit/log"
	"github.com/huandu/xstrings"
	"github.com/pbarrow/pbarrow/internal/testing/protos"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nullable(name string, dt arrow.DataType) arrow.Field {
	return arrow.Field{Name: name, Type: dt, Nullable: true}
}

func assertSchema(t *testing.T, want []arrow.Field, got *arrow.Schema) {
	t.Helper()
	exp := arrow.NewSchema(want, nil)
	assert.Truef(t, exp.Equal(got), "got=%v\nwant=%v", got, exp)
}

func TestMapSchemaPoint(t *testing.T) {
	schema, diags, err := MapSchema(protos.Message("Point"))
	require.NoError(t, err)
	assert.Empty(t, diags)

	want := `schema:
  fields: 2
    - x: type=float32, nullable
    - y: type=float32, nullable`
	assert.Equal(t, want, schema.String())
}

func TestMapSchemaTypes(t *testing.T) {
	vertex := arrow.StructOf(
		nullable("x", arrow.PrimitiveTypes.Int32),
		nullable("y", arrow.PrimitiveTypes.Int32),
	)
	color := &arrow.DictionaryType{IndexType: arrow.PrimitiveTypes.Uint8, ValueType: arrow.BinaryTypes.String}

	tests := []struct {
		message string
		want    []arrow.Field
	}{
		{"Shape", []arrow.Field{
			nullable("a", arrow.StructOf(nullable("p", arrow.PrimitiveTypes.Int32))),
			nullable("b", arrow.StructOf(nullable("q", arrow.PrimitiveTypes.Int32))),
		}},
		{"Palette", []arrow.Field{
			nullable("color", color),
			nullable("colors", arrow.ListOf(color)),
		}},
		{"Polygon", []arrow.Field{
			nullable("name", arrow.BinaryTypes.String),
			nullable("vertices", arrow.ListOf(vertex)),
		}},
		{"Scalars", []arrow.Field{
			nullable("b", arrow.FixedWidthTypes.Boolean),
			nullable("i32", arrow.PrimitiveTypes.Int32),
			nullable("s32", arrow.PrimitiveTypes.Int32),
			nullable("sf32", arrow.PrimitiveTypes.Int32),
			nullable("i64", arrow.PrimitiveTypes.Int64),
			nullable("s64", arrow.PrimitiveTypes.Int64),
			nullable("sf64", arrow.PrimitiveTypes.Int64),
			nullable("u32", arrow.PrimitiveTypes.Uint32),
			nullable("f32", arrow.PrimitiveTypes.Uint32),
			nullable("u64", arrow.PrimitiveTypes.Uint64),
			nullable("f64", arrow.PrimitiveTypes.Uint64),
			nullable("fl", arrow.PrimitiveTypes.Float32),
			nullable("db", arrow.PrimitiveTypes.Float64),
			nullable("str", arrow.BinaryTypes.String),
			nullable("raw", arrow.BinaryTypes.Binary),
		}},
		{"Collections", []arrow.Field{
			nullable("tags", arrow.ListOf(arrow.BinaryTypes.String)),
			nullable("counts", arrow.MapOf(arrow.BinaryTypes.String, arrow.PrimitiveTypes.Int64)),
			nullable("points", arrow.MapOf(arrow.PrimitiveTypes.Int32, vertex)),
		}},
		{"Optional", []arrow.Field{
			nullable("maybe", arrow.PrimitiveTypes.Int32),
			nullable("plain", arrow.PrimitiveTypes.Int32),
		}},
		{"Choice", []arrow.Field{
			nullable("name", arrow.BinaryTypes.String),
			nullable("number", arrow.PrimitiveTypes.Int64),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			schema, diags, err := MapSchema(protos.Message(tt.message))
			require.NoError(t, err)
			assert.Empty(t, diags)
			assertSchema(t, tt.want, schema)
		})
	}
}

func TestMapSchemaRecursion(t *testing.T) {
	value := nullable("value", arrow.PrimitiveTypes.Int32)
	level3 := arrow.StructOf(value)
	level2 := arrow.StructOf(value, nullable("child", level3))
	level1 := arrow.StructOf(value, nullable("child", level2))

	schema, diags, err := MapSchema(protos.Message("Node"))
	require.NoError(t, err)
	assertSchema(t, []arrow.Field{value, nullable("child", level1)}, schema)

	require.Len(t, diags, 1)
	assert.Equal(t, []string{"child", "child", "child"}, diags[0].Path)
	assert.Equal(t, "child", diags[0].Field)
	assert.ErrorIs(t, diags[0].Err, ErrRecursionLimitExceeded)
	assert.Contains(t, diags[0].String(), `"child.child.child.child"`)
}

func TestMapSchemaMaxRecursionDepth(t *testing.T) {
	value := nullable("value", arrow.PrimitiveTypes.Int32)

	schema, diags, err := MapSchema(protos.Message("Node"), WithMaxRecursionDepth(1))
	require.NoError(t, err)
	assertSchema(t, []arrow.Field{value, nullable("child", arrow.StructOf(value))}, schema)
	require.Len(t, diags, 1)
	assert.Equal(t, []string{"child"}, diags[0].Path)
}

func TestMapSchemaEmptyStruct(t *testing.T) {
	var buf bytes.Buffer
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	schema, diags, err := MapSchema(protos.Message("Holder"),
		WithLogger(log.NewLogfmtLogger(&buf)), WithMetrics(metrics))
	require.NoError(t, err)
	assertSchema(t, []arrow.Field{nullable("id", arrow.PrimitiveTypes.Int32)}, schema)

	require.Len(t, diags, 1)
	assert.Empty(t, diags[0].Path)
	assert.Equal(t, "empty", diags[0].Field)
	assert.ErrorIs(t, diags[0].Err, ErrEmptyStruct)
	assert.Contains(t, diags[0].String(), "empty struct")

	assert.Contains(t, buf.String(), "level=warn")
	assert.Contains(t, buf.String(), "field=empty")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.droppedFields.WithLabelValues("empty_struct")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.droppedFields.WithLabelValues("recursion_limit")))
}

func TestMapSchemaFatal(t *testing.T) {
	tests := []struct {
		message string
		want    error
	}{
		{"Empty", ErrEmptyStruct},
		{"Envelope", ErrUnsupportedType},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			schema, _, err := MapSchema(protos.Message(tt.message))
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, schema)
		})
	}
}

func TestMapSchemaFieldNameFormatter(t *testing.T) {
	md := protos.Message("Polygon")
	schema, _, err := MapSchema(md, WithFieldNameFormatter(xstrings.ToPascalCase))
	require.NoError(t, err)

	vertex := arrow.StructOf(
		nullable("X", arrow.PrimitiveTypes.Int32),
		nullable("Y", arrow.PrimitiveTypes.Int32),
	)
	assertSchema(t, []arrow.Field{
		nullable("Name", arrow.BinaryTypes.String),
		nullable("Vertices", arrow.ListOf(vertex)),
	}, schema)

	fields, err := ZipFields(md, schema, WithFieldNameFormatter(xstrings.ToPascalCase))
	require.NoError(t, err)
	assert.Len(t, fields, 2)

	_, err = ZipFields(md, schema)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestMapSchemaDuplicateColumn(t *testing.T) {
	md := protos.LegacyMessage("Dup")

	schema, _, err := MapSchema(md, WithFieldNameFormatter(xstrings.ToCamelCase))
	assert.ErrorIs(t, err, ErrSchemaMismatch)
	assert.ErrorContains(t, err, "foo_bar")
	assert.Nil(t, schema)

	schema, _, err = MapSchema(md)
	require.NoError(t, err)
	assertSchema(t, []arrow.Field{
		nullable("foo_bar", arrow.PrimitiveTypes.Int32),
		nullable("fooBar", arrow.PrimitiveTypes.Int32),
	}, schema)
}

func TestDictionaryIndexWidth(t *testing.T) {
	assert.Equal(t, arrow.PrimitiveTypes.Uint8, dictionaryType(3).IndexType)
	assert.Equal(t, arrow.PrimitiveTypes.Uint8, dictionaryType(255).IndexType)
	assert.Equal(t, arrow.PrimitiveTypes.Uint16, dictionaryType(256).IndexType)
	assert.Equal(t, arrow.PrimitiveTypes.Uint16, dictionaryType(65535).IndexType)
	assert.Equal(t, arrow.PrimitiveTypes.Uint32, dictionaryType(65536).IndexType)
}
