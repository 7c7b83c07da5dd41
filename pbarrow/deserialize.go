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
	"fmt"
	"sort"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/go-kit/log/level"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
	"google.golang.org/protobuf/reflect/protoreflect"
)

var (
	validSlot = []bool{true}
	nullSlot  = []bool{false}
)

// Deserialize decodes msgs into a record with one row per message. schema
// and fields must come from MapSchema and ZipFields for the descriptor of
// msgs.
//
// Absent fields become nulls, as do enum numbers the descriptor does not
// declare. A value that does not fit its column, or a message of another
// type than the one the fields were zipped against, fails the whole batch
// with an *InvariantError; no partial record is returned.
func Deserialize(mem memory.Allocator, schema *arrow.Schema, fields []*Field, msgs []protoreflect.Message, opts ...Option) (arrow.Record, error) {
	return deserialize(mem, schema, fields, msgs, newConfig(opts...))
}

func deserialize(mem memory.Allocator, schema *arrow.Schema, fields []*Field, msgs []protoreflect.Message, cfg *config) (arrow.Record, error) {
	if len(fields) != schema.NumFields() {
		return nil, &InvariantError{Want: fmt.Sprintf("%d zipped fields", schema.NumFields()), Got: fmt.Sprintf("%d", len(fields))}
	}
	for i, f := range fields {
		if want := schema.Field(i); !f.arrow.Equal(want) {
			cfg.metrics.failedBatch()
			return nil, &InvariantError{Path: f.path, Want: want.String(), Got: f.arrow.String()}
		}
	}
	if len(fields) > 0 {
		root := fields[0].desc.ContainingMessage()
		for i, msg := range msgs {
			if msg.Descriptor() != root {
				cfg.metrics.failedBatch()
				return nil, &InvariantError{
					Want: fmt.Sprintf("message %s", root.FullName()),
					Got:  fmt.Sprintf("message %s at row %d", msg.Descriptor().FullName(), i),
				}
			}
		}
	}

	cols := make([]*ColumnBuilder, len(fields))
	defer func() {
		for _, c := range cols {
			if c != nil {
				c.Release()
			}
		}
	}()
	for i, f := range fields {
		c, err := NewColumnBuilder(mem, f, len(msgs))
		if err != nil {
			cfg.metrics.failedBatch()
			return nil, err
		}
		cols[i] = c
	}

	unknown, err := decodeColumns(cols, msgs, cfg.parallel)
	if err != nil {
		cfg.metrics.failedBatch()
		return nil, err
	}

	arrs := make([]arrow.Array, len(cols))
	for i, c := range cols {
		arrs[i] = c.NewArray()
		defer arrs[i].Release()
	}

	if unknown > 0 {
		level.Debug(cfg.logger).Log("msg", "unknown enum numbers decoded as null", "count", unknown)
	}
	cfg.metrics.observeBatch(len(msgs), unknown)
	return array.NewRecord(schema, arrs, int64(len(msgs))), nil
}

// decodeColumns fills cols row by row, or column by column on separate
// goroutines when parallel is set. It returns the number of unknown enum
// numbers seen.
func decodeColumns(cols []*ColumnBuilder, msgs []protoreflect.Message, parallel bool) (int, error) {
	if !parallel || len(cols) < 2 {
		var d decoder
		for _, msg := range msgs {
			for _, c := range cols {
				if err := d.appendField(c, msg, true); err != nil {
					return 0, err
				}
			}
		}
		return d.unknownEnums, nil
	}

	var g errgroup.Group
	decs := make([]decoder, len(cols))
	for i, c := range cols {
		d, c := &decs[i], c
		g.Go(func() error {
			for _, msg := range msgs {
				if err := d.appendField(c, msg, true); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var unknown int
	for i := range decs {
		unknown += decs[i].unknownEnums
	}
	return unknown, nil
}

type decoder struct {
	unknownEnums int
}

// appendField appends the value of c's field in msg. When valid is false
// msg is the absent parent and only nulls are appended.
func (d *decoder) appendField(c *ColumnBuilder, msg protoreflect.Message, valid bool) error {
	fd := c.field.desc
	if valid && fd.HasPresence() && !msg.Has(fd) {
		valid = false
	}
	var v protoreflect.Value
	if valid {
		v = msg.Get(fd)
	}
	return d.appendValue(c, v, valid)
}

func (d *decoder) appendValue(c *ColumnBuilder, v protoreflect.Value, valid bool) error {
	f := c.field
	switch f.kind {
	case kindStruct:
		return d.appendStruct(c, v, valid)
	case kindList:
		return d.appendList(c, v, valid)
	case kindMap:
		return d.appendMap(c, v, valid)
	}

	if !valid {
		c.bldr.AppendNull()
		return nil
	}

	switch f.kind {
	case kindBool:
		x, ok := v.Interface().(bool)
		if !ok {
			return typeMismatch(f, v)
		}
		c.bldr.(*array.BooleanBuilder).Append(x)
	case kindInt32:
		x, ok := v.Interface().(int32)
		if !ok {
			return typeMismatch(f, v)
		}
		c.bldr.(*array.Int32Builder).Append(x)
	case kindInt64:
		x, ok := v.Interface().(int64)
		if !ok {
			return typeMismatch(f, v)
		}
		c.bldr.(*array.Int64Builder).Append(x)
	case kindUint32:
		x, ok := v.Interface().(uint32)
		if !ok {
			return typeMismatch(f, v)
		}
		c.bldr.(*array.Uint32Builder).Append(x)
	case kindUint64:
		x, ok := v.Interface().(uint64)
		if !ok {
			return typeMismatch(f, v)
		}
		c.bldr.(*array.Uint64Builder).Append(x)
	case kindFloat32:
		x, ok := v.Interface().(float32)
		if !ok {
			return typeMismatch(f, v)
		}
		c.bldr.(*array.Float32Builder).Append(x)
	case kindFloat64:
		x, ok := v.Interface().(float64)
		if !ok {
			return typeMismatch(f, v)
		}
		c.bldr.(*array.Float64Builder).Append(x)
	case kindString:
		x, ok := v.Interface().(string)
		if !ok {
			return typeMismatch(f, v)
		}
		c.bldr.(*array.StringBuilder).Append(x)
	case kindBinary:
		x, ok := v.Interface().([]byte)
		if !ok {
			return typeMismatch(f, v)
		}
		c.bldr.(*array.BinaryBuilder).Append(x)
	case kindDictionary:
		n, ok := v.Interface().(protoreflect.EnumNumber)
		if !ok {
			return typeMismatch(f, v)
		}
		name, known := f.enum.names[n]
		if !known {
			d.unknownEnums++
			c.bldr.AppendNull()
			return nil
		}
		if err := c.bldr.(*array.BinaryDictionaryBuilder).AppendString(name); err != nil {
			return xerrors.Errorf("could not append %s to %q: %w", name, f.arrow.Name, err)
		}
	default:
		return &InvariantError{Path: f.path, Want: "a decodable column", Got: "column of kind " + f.kind.String()}
	}
	return nil
}

// appendStruct appends one row to every child of c, then c's own validity
// bit; the struct builder does not touch its children.
func (d *decoder) appendStruct(c *ColumnBuilder, v protoreflect.Value, valid bool) error {
	var msg protoreflect.Message
	if valid {
		m, ok := v.Interface().(protoreflect.Message)
		if !ok {
			return typeMismatch(c.field, v)
		}
		if m.Descriptor() != c.field.message {
			return &InvariantError{
				Path: c.field.path,
				Want: "message " + string(c.field.message.FullName()),
				Got:  "message " + string(m.Descriptor().FullName()),
			}
		}
		msg = m
	}

	for _, child := range c.children {
		if err := d.appendField(child, msg, valid); err != nil {
			return err
		}
	}

	slot := validSlot
	if !valid {
		slot = nullSlot
	}
	c.bldr.(*array.StructBuilder).AppendValues(slot)
	return nil
}

func (d *decoder) appendList(c *ColumnBuilder, v protoreflect.Value, valid bool) error {
	lb := c.bldr.(*array.ListBuilder)
	if !valid {
		lb.AppendNull()
		return nil
	}
	l, ok := v.Interface().(protoreflect.List)
	if !ok {
		return typeMismatch(c.field, v)
	}

	lb.Append(true)
	elem := c.children[0]
	for i := 0; i < l.Len(); i++ {
		if err := d.appendValue(elem, l.Get(i), true); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) appendMap(c *ColumnBuilder, v protoreflect.Value, valid bool) error {
	mb := c.bldr.(*array.MapBuilder)
	if !valid {
		mb.AppendNull()
		return nil
	}
	m, ok := v.Interface().(protoreflect.Map)
	if !ok {
		return typeMismatch(c.field, v)
	}

	mb.Append(true)
	key, item := c.children[0], c.children[1]
	for _, k := range sortedKeys(m) {
		if err := d.appendValue(key, k.Value(), true); err != nil {
			return err
		}
		if err := d.appendValue(item, m.Get(k), true); err != nil {
			return err
		}
	}
	return nil
}

// sortedKeys returns the keys of m in ascending order; protobuf maps
// iterate in random order.
func sortedKeys(m protoreflect.Map) []protoreflect.MapKey {
	keys := make([]protoreflect.MapKey, 0, m.Len())
	m.Range(func(k protoreflect.MapKey, _ protoreflect.Value) bool {
		keys = append(keys, k)
		return true
	})
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		switch x := a.Interface().(type) {
		case bool:
			return !x && b.Bool()
		case int32, int64:
			return a.Int() < b.Int()
		case uint32, uint64:
			return a.Uint() < b.Uint()
		case string:
			return x < b.String()
		}
		return false
	})
	return keys
}

func typeMismatch(f *Field, v protoreflect.Value) error {
	return &InvariantError{Path: f.path, Want: f.kind.String(), Got: fmt.Sprintf("%T", v.Interface())}
}
