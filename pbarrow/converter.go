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
	"github.com/go-kit/log/level"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// Converter turns batches of messages of one type into arrow records. The
// schema is mapped and zipped once by NewConverter; Convert may then be
// called concurrently.
type Converter struct {
	desc   protoreflect.MessageDescriptor
	schema *arrow.Schema
	fields []*Field
	diags  []Diagnostic
	cfg    *config
}

// NewConverter maps md to an arrow schema and zips it back to md.
func NewConverter(md protoreflect.MessageDescriptor, opts ...Option) (*Converter, error) {
	cfg := newConfig(opts...)
	schema, diags, err := mapSchema(md, cfg)
	if err != nil {
		return nil, err
	}
	fields, err := zipFields(md, schema, cfg)
	if err != nil {
		return nil, err
	}

	level.Debug(cfg.logger).Log("msg", "mapped arrow schema", "message", md.FullName(), "columns", schema.NumFields(), "dropped", len(diags))
	return &Converter{desc: md, schema: schema, fields: fields, diags: diags, cfg: cfg}, nil
}

// Descriptor returns the message type the converter was built for.
func (c *Converter) Descriptor() protoreflect.MessageDescriptor { return c.desc }

// Schema returns the mapped arrow schema.
func (c *Converter) Schema() *arrow.Schema { return c.schema }

// Fields returns the zipped top-level fields, one per schema column.
func (c *Converter) Fields() []*Field { return c.fields }

// Diagnostics returns the fields dropped while mapping the schema.
func (c *Converter) Diagnostics() []Diagnostic { return c.diags }

// Convert decodes msgs into a record. The caller owns the record and must
// release it.
func (c *Converter) Convert(msgs []protoreflect.Message) (arrow.Record, error) {
	return deserialize(c.cfg.mem, c.schema, c.fields, msgs, c.cfg)
}

// ConvertProto is Convert for generated message values.
func (c *Converter) ConvertProto(msgs ...proto.Message) (arrow.Record, error) {
	refl := make([]protoreflect.Message, len(msgs))
	for i, m := range msgs {
		refl[i] = m.ProtoReflect()
	}
	return c.Convert(refl)
}
