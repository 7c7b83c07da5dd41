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
	"io"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/goccy/go-json"
)

// FieldDescription is a printable summary of a mapped column.
type FieldDescription struct {
	Name     string             `json:"name"`
	Type     string             `json:"type"`
	Nullable bool               `json:"nullable"`
	Source   string             `json:"source,omitempty"`
	Values   []string           `json:"values,omitempty"`
	Children []FieldDescription `json:"children,omitempty"`
}

// Describe summarizes the converter's columns, their protobuf sources and
// enum dictionaries.
func (c *Converter) Describe() []FieldDescription {
	return describeFields(c.fields)
}

func describeFields(fields []*Field) []FieldDescription {
	if len(fields) == 0 {
		return nil
	}
	out := make([]FieldDescription, len(fields))
	for i, f := range fields {
		out[i] = describeField(f)
	}
	return out
}

func describeField(f *Field) FieldDescription {
	return FieldDescription{
		Name:     f.arrow.Name,
		Type:     typeName(f.arrow.Type),
		Nullable: f.arrow.Nullable,
		Source:   string(f.desc.FullName()),
		Values:   f.Enumerants(),
		Children: describeFields(f.children),
	}
}

// typeName names nested types without repeating their children.
func typeName(dt arrow.DataType) string {
	switch dt.ID() {
	case arrow.STRUCT, arrow.LIST, arrow.MAP:
		return dt.Name()
	}
	return dt.String()
}

// DescribeJSON writes desc as indented JSON.
func DescribeJSON(w io.Writer, desc []FieldDescription) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(desc)
}
