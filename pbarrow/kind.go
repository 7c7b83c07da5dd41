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
	"google.golang.org/protobuf/reflect/protoreflect"
)

// kind is the closed set of column shapes the deserializer knows how to
// fill. Every switch over kind must handle all members; the default arm is
// an invariant violation.
type kind int8

const (
	kindInvalid kind = iota
	kindBool
	kindInt32
	kindInt64
	kindUint32
	kindUint64
	kindFloat32
	kindFloat64
	kindString
	kindBinary
	kindDictionary
	kindStruct
	kindList
	kindMap
)

var kindNames = [...]string{
	kindInvalid:    "invalid",
	kindBool:       "bool",
	kindInt32:      "int32",
	kindInt64:      "int64",
	kindUint32:     "uint32",
	kindUint64:     "uint64",
	kindFloat32:    "float32",
	kindFloat64:    "float64",
	kindString:     "utf8",
	kindBinary:     "binary",
	kindDictionary: "dictionary",
	kindStruct:     "struct",
	kindList:       "list",
	kindMap:        "map",
}

func (k kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[kindInvalid]
	}
	return kindNames[k]
}

// kindOf returns the column kind used to fill arrays of type dt.
func kindOf(dt arrow.DataType) kind {
	switch dt.ID() {
	case arrow.BOOL:
		return kindBool
	case arrow.INT32:
		return kindInt32
	case arrow.INT64:
		return kindInt64
	case arrow.UINT32:
		return kindUint32
	case arrow.UINT64:
		return kindUint64
	case arrow.FLOAT32:
		return kindFloat32
	case arrow.FLOAT64:
		return kindFloat64
	case arrow.STRING:
		return kindString
	case arrow.BINARY:
		return kindBinary
	case arrow.DICTIONARY:
		return kindDictionary
	case arrow.STRUCT:
		return kindStruct
	case arrow.LIST:
		return kindList
	case arrow.MAP:
		return kindMap
	}
	return kindInvalid
}

// accepts reports whether values of the protobuf kind pk can be stored in a
// column of kind k.
func (k kind) accepts(pk protoreflect.Kind) bool {
	switch k {
	case kindBool:
		return pk == protoreflect.BoolKind
	case kindInt32:
		return pk == protoreflect.Int32Kind || pk == protoreflect.Sint32Kind || pk == protoreflect.Sfixed32Kind
	case kindInt64:
		return pk == protoreflect.Int64Kind || pk == protoreflect.Sint64Kind || pk == protoreflect.Sfixed64Kind
	case kindUint32:
		return pk == protoreflect.Uint32Kind || pk == protoreflect.Fixed32Kind
	case kindUint64:
		return pk == protoreflect.Uint64Kind || pk == protoreflect.Fixed64Kind
	case kindFloat32:
		return pk == protoreflect.FloatKind
	case kindFloat64:
		return pk == protoreflect.DoubleKind
	case kindString:
		return pk == protoreflect.StringKind
	case kindBinary:
		return pk == protoreflect.BytesKind
	case kindDictionary:
		return pk == protoreflect.EnumKind
	case kindStruct:
		return pk == protoreflect.MessageKind || pk == protoreflect.GroupKind
	}
	return false
}
