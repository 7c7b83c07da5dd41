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
	"golang.org/x/xerrors"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
)

// LoadMessageDescriptor decodes a serialized google.protobuf.FileDescriptorSet
// and returns the descriptor of the message with the given full name. The
// set must contain every file it depends on (protoc --include_imports).
func LoadMessageDescriptor(b []byte, name string) (protoreflect.MessageDescriptor, error) {
	var set descriptorpb.FileDescriptorSet
	if err := proto.Unmarshal(b, &set); err != nil {
		return nil, xerrors.Errorf("could not decode descriptor set (%v): %w", err, ErrMalformedSchema)
	}

	files, err := protodesc.NewFiles(&set)
	if err != nil {
		return nil, xerrors.Errorf("invalid descriptor set (%v): %w", err, ErrMalformedSchema)
	}

	d, err := files.FindDescriptorByName(protoreflect.FullName(name))
	if err != nil {
		return nil, xerrors.Errorf("message %q not found in descriptor set: %w", name, ErrMalformedSchema)
	}
	md, ok := d.(protoreflect.MessageDescriptor)
	if !ok {
		return nil, xerrors.Errorf("%q is not a message: %w", name, ErrMalformedSchema)
	}
	return md, nil
}
