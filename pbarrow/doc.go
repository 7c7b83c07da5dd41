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

// Package pbarrow converts protobuf messages into Apache Arrow record
// batches.
//
// The conversion runs in four steps. MapSchema derives an arrow schema from
// a message descriptor, ZipFields binds every column back to the protobuf
// field it is read from, NewColumnBuilder allocates the builders for one
// column and Deserialize fills them from a batch of messages. Converter
// bundles the steps for repeated use and Reader streams records out of a
// MessageSource.
//
// Protobuf types are mapped as follows:
//
//	protobuf                  Arrow
//	================================================================
//	bool                      Boolean
//	int32, sint32, sfixed32   Int32
//	int64, sint64, sfixed64   Int64
//	uint32, fixed32           Uint32
//	uint64, fixed64           Uint64
//	float                     Float32
//	double                    Float64
//	string                    String
//	bytes                     Binary
//	enum                      Dictionary<String, Uint8|Uint16|Uint32>
//	message, group            Struct
//	repeated T                List<T>
//	map<K, V>                 Map<K, V>
//
// Every column is nullable. Oneof members that are not set, message fields
// that are not set and fields of absent messages decode as null. A message
// referring to itself is expanded up to DefaultMaxRecursionDepth times per
// field name on a path; deeper occurrences are left out of the schema and
// reported as Diagnostics, as are fields of messages declaring no fields.
// google.protobuf.Any has no schema and cannot be converted.
package pbarrow
