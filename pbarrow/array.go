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
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/pbarrow/pbarrow/internal/debug"
	"golang.org/x/xerrors"
)

// ColumnBuilder is a tree of array builders with the same shape as the
// zipped Field it was allocated for. Only the root owns its builder; child
// builders are released along with their parent.
type ColumnBuilder struct {
	field    *Field
	bldr     array.Builder
	children []*ColumnBuilder
	owned    bool
}

// NewColumnBuilder allocates the builders for f, reserving room for
// capacity rows. Enum dictionaries are seeded with every declared constant
// so that batches of the same schema agree on their dictionary indices,
// even batches without rows.
func NewColumnBuilder(mem memory.Allocator, f *Field, capacity int) (*ColumnBuilder, error) {
	bldr := array.NewBuilder(mem, f.arrow.Type)
	c, err := bindColumn(mem, f, bldr)
	if err != nil {
		bldr.Release()
		return nil, err
	}
	c.owned = true
	if capacity > 0 {
		bldr.Reserve(capacity)
	}
	return c, nil
}

func bindColumn(mem memory.Allocator, f *Field, bldr array.Builder) (*ColumnBuilder, error) {
	c := &ColumnBuilder{field: f, bldr: bldr}
	switch bt := bldr.(type) {
	case *array.StructBuilder:
		debug.Assert(bt.NumField() == len(f.children),
			"pbarrow: struct builder of %q has %d fields, zipped field has %d", f.arrow.Name, bt.NumField(), len(f.children))
		c.children = make([]*ColumnBuilder, len(f.children))
		for i, child := range f.children {
			cc, err := bindColumn(mem, child, bt.FieldBuilder(i))
			if err != nil {
				return nil, err
			}
			c.children[i] = cc
		}
	case *array.MapBuilder:
		key, err := bindColumn(mem, f.children[0], bt.KeyBuilder())
		if err != nil {
			return nil, err
		}
		item, err := bindColumn(mem, f.children[1], bt.ItemBuilder())
		if err != nil {
			return nil, err
		}
		c.children = []*ColumnBuilder{key, item}
	case *array.ListBuilder:
		elem, err := bindColumn(mem, f.children[0], bt.ValueBuilder())
		if err != nil {
			return nil, err
		}
		c.children = []*ColumnBuilder{elem}
	case *array.BinaryDictionaryBuilder:
		if f.enum == nil {
			return nil, &InvariantError{Path: f.path, Want: "enum column", Got: f.arrow.Type.String()}
		}
		if err := seedDictionary(mem, bt, f.enum.values); err != nil {
			return nil, xerrors.Errorf("could not seed dictionary of %q: %w", f.arrow.Name, err)
		}
	}
	return c, nil
}

func seedDictionary(mem memory.Allocator, bldr *array.BinaryDictionaryBuilder, values []string) error {
	sb := array.NewStringBuilder(mem)
	defer sb.Release()
	sb.AppendValues(values, nil)
	dict := sb.NewStringArray()
	defer dict.Release()
	return bldr.InsertStringDictValues(dict)
}

// Field returns the zipped field the builders were allocated for.
func (c *ColumnBuilder) Field() *Field { return c.field }

// Builder returns the underlying arrow builder.
func (c *ColumnBuilder) Builder() array.Builder { return c.bldr }

// Len returns the number of rows appended so far.
func (c *ColumnBuilder) Len() int { return c.bldr.Len() }

// NewArray finalizes the column and resets the builders.
func (c *ColumnBuilder) NewArray() arrow.Array { return c.bldr.NewArray() }

// Release frees the builders. It is a no-op on child columns.
func (c *ColumnBuilder) Release() {
	if c.owned && c.bldr != nil {
		c.bldr.Release()
		c.bldr = nil
	}
}
