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

// Package protos builds the protobuf descriptors and messages shared by the
// tests. Descriptors are assembled at run time so no generated code is
// needed.
package protos

import (
	"fmt"
	"sync"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
	"google.golang.org/protobuf/types/known/anypb"
)

// Package is the protobuf package of the test file.
const Package = "pbarrow.test"

var (
	once    sync.Once
	file    protoreflect.FileDescriptor
	fileErr error
)

// File returns the test file descriptor:
//
//	syntax = "proto3";
//	package pbarrow.test;
//	import "google/protobuf/any.proto";
//
//	enum Color { RED = 0; GREEN = 1; BLUE = 2; }
//	message Point { float x = 1; float y = 2; }
//	message A { int32 p = 1; }
//	message B { int32 q = 1; }
//	message Shape { oneof kind { A a = 1; B b = 2; } }
//	message Palette { Color color = 1; repeated Color colors = 2; }
//	message Node { int32 value = 1; Node child = 2; }
//	message Empty {}
//	message Holder { Empty empty = 1; int32 id = 2; }
//	message Vertex { int32 x = 1; int32 y = 2; }
//	message Polygon { string name = 1; repeated Vertex vertices = 2; }
//	message Scalars { bool b = 1; int32 i32 = 2; ...; bytes raw = 15; }
//	message Collections { repeated string tags = 1; map<string, int64> counts = 2; map<int32, Vertex> points = 3; }
//	message Envelope { string id = 1; google.protobuf.Any payload = 2; }
//	message Optional { optional int32 maybe = 1; int32 plain = 2; }
//	message Choice { oneof value { string name = 1; int64 number = 2; } }
//	message Bag { repeated int32 xs = 1; map<string, int32> counts = 2; }
//	message Outer { oneof k { Bag bag = 1; int32 n = 2; } }
//	message Wrapper { oneof w { Outer outer = 1; string none = 2; } }
func File() protoreflect.FileDescriptor {
	once.Do(func() {
		file, fileErr = protodesc.NewFile(FileProto(), protoregistry.GlobalFiles)
	})
	if fileErr != nil {
		panic(fmt.Errorf("protos: invalid test file: %w", fileErr))
	}
	return file
}

// Message returns the descriptor of the named message of the test file.
func Message(name string) protoreflect.MessageDescriptor {
	md := File().Messages().ByName(protoreflect.Name(name))
	if md == nil {
		panic(fmt.Errorf("protos: no message %q", name))
	}
	return md
}

// New returns an empty dynamic message of the named type.
func New(name string) *dynamicpb.Message {
	return dynamicpb.NewMessage(Message(name))
}

// Set sets field name of m to v and returns m.
func Set(m protoreflect.Message, name string, v protoreflect.Value) protoreflect.Message {
	m.Set(FieldOf(m.Descriptor(), name), v)
	return m
}

// Mutable returns the message stored in field name of m, creating it if
// needed. For oneof members this selects the member.
func Mutable(m protoreflect.Message, name string) protoreflect.Message {
	return m.Mutable(FieldOf(m.Descriptor(), name)).Message()
}

// List returns the mutable list of field name of m.
func List(m protoreflect.Message, name string) protoreflect.List {
	return m.Mutable(FieldOf(m.Descriptor(), name)).List()
}

// Map returns the mutable map of field name of m.
func Map(m protoreflect.Message, name string) protoreflect.Map {
	return m.Mutable(FieldOf(m.Descriptor(), name)).Map()
}

// FieldOf returns the named field of md.
func FieldOf(md protoreflect.MessageDescriptor, name string) protoreflect.FieldDescriptor {
	fd := md.Fields().ByName(protoreflect.Name(name))
	if fd == nil {
		panic(fmt.Errorf("protos: %s has no field %q", md.FullName(), name))
	}
	return fd
}

// Point returns a Point message.
func Point(x, y float32) protoreflect.Message {
	m := New("Point")
	Set(m, "x", protoreflect.ValueOfFloat32(x))
	Set(m, "y", protoreflect.ValueOfFloat32(y))
	return m
}

// Vertex returns a Vertex message.
func Vertex(x, y int32) protoreflect.Message {
	m := New("Vertex")
	Set(m, "x", protoreflect.ValueOfInt32(x))
	Set(m, "y", protoreflect.ValueOfInt32(y))
	return m
}

// DescriptorSet returns the serialized FileDescriptorSet holding the test
// file and its imports.
func DescriptorSet() []byte {
	set := &descriptorpb.FileDescriptorSet{
		File: []*descriptorpb.FileDescriptorProto{
			protodesc.ToFileDescriptorProto(anypb.File_google_protobuf_any_proto),
			FileProto(),
		},
	}
	b, err := proto.Marshal(set)
	if err != nil {
		panic(err)
	}
	return b
}

// FileProto returns the FileDescriptorProto of the test file.
func FileProto() *descriptorpb.FileDescriptorProto {
	return &descriptorpb.FileDescriptorProto{
		Name:       proto.String("pbarrow/test.proto"),
		Package:    proto.String(Package),
		Syntax:     proto.String("proto3"),
		Dependency: []string{"google/protobuf/any.proto"},
		EnumType: []*descriptorpb.EnumDescriptorProto{{
			Name: proto.String("Color"),
			Value: []*descriptorpb.EnumValueDescriptorProto{
				{Name: proto.String("RED"), Number: proto.Int32(0)},
				{Name: proto.String("GREEN"), Number: proto.Int32(1)},
				{Name: proto.String("BLUE"), Number: proto.Int32(2)},
			},
		}},
		MessageType: []*descriptorpb.DescriptorProto{
			message("Point", scalar("x", 1, descriptorpb.FieldDescriptorProto_TYPE_FLOAT), scalar("y", 2, descriptorpb.FieldDescriptorProto_TYPE_FLOAT)),
			message("A", scalar("p", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32)),
			message("B", scalar("q", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32)),
			{
				Name: proto.String("Shape"),
				Field: []*descriptorpb.FieldDescriptorProto{
					inOneof(ref("a", 1, "A"), 0),
					inOneof(ref("b", 2, "B"), 0),
				},
				OneofDecl: []*descriptorpb.OneofDescriptorProto{{Name: proto.String("kind")}},
			},
			message("Palette", enum("color", 1, "Color"), repeated(enum("colors", 2, "Color"))),
			message("Node", scalar("value", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32), ref("child", 2, "Node")),
			message("Empty"),
			message("Holder", ref("empty", 1, "Empty"), scalar("id", 2, descriptorpb.FieldDescriptorProto_TYPE_INT32)),
			message("Vertex", scalar("x", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32), scalar("y", 2, descriptorpb.FieldDescriptorProto_TYPE_INT32)),
			message("Polygon", scalar("name", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING), repeated(ref("vertices", 2, "Vertex"))),
			message("Scalars",
				scalar("b", 1, descriptorpb.FieldDescriptorProto_TYPE_BOOL),
				scalar("i32", 2, descriptorpb.FieldDescriptorProto_TYPE_INT32),
				scalar("s32", 3, descriptorpb.FieldDescriptorProto_TYPE_SINT32),
				scalar("sf32", 4, descriptorpb.FieldDescriptorProto_TYPE_SFIXED32),
				scalar("i64", 5, descriptorpb.FieldDescriptorProto_TYPE_INT64),
				scalar("s64", 6, descriptorpb.FieldDescriptorProto_TYPE_SINT64),
				scalar("sf64", 7, descriptorpb.FieldDescriptorProto_TYPE_SFIXED64),
				scalar("u32", 8, descriptorpb.FieldDescriptorProto_TYPE_UINT32),
				scalar("f32", 9, descriptorpb.FieldDescriptorProto_TYPE_FIXED32),
				scalar("u64", 10, descriptorpb.FieldDescriptorProto_TYPE_UINT64),
				scalar("f64", 11, descriptorpb.FieldDescriptorProto_TYPE_FIXED64),
				scalar("fl", 12, descriptorpb.FieldDescriptorProto_TYPE_FLOAT),
				scalar("db", 13, descriptorpb.FieldDescriptorProto_TYPE_DOUBLE),
				scalar("str", 14, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				scalar("raw", 15, descriptorpb.FieldDescriptorProto_TYPE_BYTES),
			),
			{
				Name: proto.String("Collections"),
				Field: []*descriptorpb.FieldDescriptorProto{
					repeated(scalar("tags", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING)),
					repeated(ref("counts", 2, "Collections.CountsEntry")),
					repeated(ref("points", 3, "Collections.PointsEntry")),
				},
				NestedType: []*descriptorpb.DescriptorProto{
					mapEntry("CountsEntry", scalar("key", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING), scalar("value", 2, descriptorpb.FieldDescriptorProto_TYPE_INT64)),
					mapEntry("PointsEntry", scalar("key", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32), ref("value", 2, "Vertex")),
				},
			},
			message("Envelope", scalar("id", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING), wellKnown("payload", 2, ".google.protobuf.Any")),
			{
				Name: proto.String("Optional"),
				Field: []*descriptorpb.FieldDescriptorProto{
					proto3Optional(inOneof(scalar("maybe", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32), 0)),
					scalar("plain", 2, descriptorpb.FieldDescriptorProto_TYPE_INT32),
				},
				OneofDecl: []*descriptorpb.OneofDescriptorProto{{Name: proto.String("_maybe")}},
			},
			{
				Name: proto.String("Choice"),
				Field: []*descriptorpb.FieldDescriptorProto{
					inOneof(scalar("name", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING), 0),
					inOneof(scalar("number", 2, descriptorpb.FieldDescriptorProto_TYPE_INT64), 0),
				},
				OneofDecl: []*descriptorpb.OneofDescriptorProto{{Name: proto.String("value")}},
			},
			{
				Name: proto.String("Bag"),
				Field: []*descriptorpb.FieldDescriptorProto{
					repeated(scalar("xs", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32)),
					repeated(ref("counts", 2, "Bag.CountsEntry")),
				},
				NestedType: []*descriptorpb.DescriptorProto{
					mapEntry("CountsEntry", scalar("key", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING), scalar("value", 2, descriptorpb.FieldDescriptorProto_TYPE_INT32)),
				},
			},
			{
				Name: proto.String("Outer"),
				Field: []*descriptorpb.FieldDescriptorProto{
					inOneof(ref("bag", 1, "Bag"), 0),
					inOneof(scalar("n", 2, descriptorpb.FieldDescriptorProto_TYPE_INT32), 0),
				},
				OneofDecl: []*descriptorpb.OneofDescriptorProto{{Name: proto.String("k")}},
			},
			{
				Name: proto.String("Wrapper"),
				Field: []*descriptorpb.FieldDescriptorProto{
					inOneof(ref("outer", 1, "Outer"), 0),
					inOneof(scalar("none", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING), 0),
				},
				OneofDecl: []*descriptorpb.OneofDescriptorProto{{Name: proto.String("w")}},
			},
		},
	}
}

var (
	legacyOnce sync.Once
	legacy     protoreflect.FileDescriptor
	legacyErr  error
)

// Legacy returns a proto2 file whose field names only differ in case style:
//
//	syntax = "proto2";
//	package pbarrow.legacy;
//
//	message Dup { optional int32 foo_bar = 1; optional int32 fooBar = 2; }
func Legacy() protoreflect.FileDescriptor {
	legacyOnce.Do(func() {
		legacy, legacyErr = protodesc.NewFile(&descriptorpb.FileDescriptorProto{
			Name:    proto.String("pbarrow/legacy.proto"),
			Package: proto.String("pbarrow.legacy"),
			Syntax:  proto.String("proto2"),
			MessageType: []*descriptorpb.DescriptorProto{
				message("Dup",
					scalar("foo_bar", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32),
					scalar("fooBar", 2, descriptorpb.FieldDescriptorProto_TYPE_INT32)),
			},
		}, protoregistry.GlobalFiles)
	})
	if legacyErr != nil {
		panic(fmt.Errorf("protos: invalid legacy file: %w", legacyErr))
	}
	return legacy
}

// LegacyMessage returns the descriptor of the named message of the proto2
// test file.
func LegacyMessage(name string) protoreflect.MessageDescriptor {
	md := Legacy().Messages().ByName(protoreflect.Name(name))
	if md == nil {
		panic(fmt.Errorf("protos: no legacy message %q", name))
	}
	return md
}

func message(name string, fields ...*descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{Name: proto.String(name), Field: fields}
}

func mapEntry(name string, key, value *descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{
		Name:    proto.String(name),
		Field:   []*descriptorpb.FieldDescriptorProto{key, value},
		Options: &descriptorpb.MessageOptions{MapEntry: proto.Bool(true)},
	}
}

func scalar(name string, num int32, typ descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:     proto.String(name),
		JsonName: proto.String(name),
		Number:   proto.Int32(num),
		Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:     typ.Enum(),
	}
}

func ref(name string, num int32, msg string) *descriptorpb.FieldDescriptorProto {
	return wellKnown(name, num, "."+Package+"."+msg)
}

func wellKnown(name string, num int32, typeName string) *descriptorpb.FieldDescriptorProto {
	fd := scalar(name, num, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE)
	fd.TypeName = proto.String(typeName)
	return fd
}

func enum(name string, num int32, typ string) *descriptorpb.FieldDescriptorProto {
	fd := scalar(name, num, descriptorpb.FieldDescriptorProto_TYPE_ENUM)
	fd.TypeName = proto.String("." + Package + "." + typ)
	return fd
}

func repeated(fd *descriptorpb.FieldDescriptorProto) *descriptorpb.FieldDescriptorProto {
	fd.Label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()
	return fd
}

func inOneof(fd *descriptorpb.FieldDescriptorProto, idx int32) *descriptorpb.FieldDescriptorProto {
	fd.OneofIndex = proto.Int32(idx)
	return fd
}

func proto3Optional(fd *descriptorpb.FieldDescriptorProto) *descriptorpb.FieldDescriptorProto {
	fd.Proto3Optional = proto.Bool(true)
	return fd
}
