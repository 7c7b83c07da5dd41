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

// Package pbio reads and writes streams of varint length-delimited
// protobuf messages, optionally compressed.
package pbio

import (
	"bufio"
	"errors"
	"io"

	"golang.org/x/xerrors"
	"google.golang.org/protobuf/encoding/protodelim"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// DefaultMaxMessageSize is the largest message accepted by default.
const DefaultMaxMessageSize = 4 << 20

// Option configures a DelimitedReader.
type Option func(*DelimitedReader)

// WithMaxMessageSize bounds the size of a single message. A negative size
// disables the check.
func WithMaxMessageSize(n int64) Option {
	return func(r *DelimitedReader) {
		r.opts.MaxSize = n
	}
}

// WithDiscardUnknown drops unknown fields while decoding.
func WithDiscardUnknown(discard bool) Option {
	return func(r *DelimitedReader) {
		r.opts.DiscardUnknown = discard
	}
}

// DelimitedReader decodes a stream of length-delimited messages of one type
// into dynamic messages.
type DelimitedReader struct {
	r    *bufio.Reader
	desc protoreflect.MessageDescriptor
	opts protodelim.UnmarshalOptions
	n    int
}

// NewDelimitedReader returns a reader decoding messages described by md
// from r.
func NewDelimitedReader(r io.Reader, md protoreflect.MessageDescriptor, opts ...Option) *DelimitedReader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	dr := &DelimitedReader{
		r:    br,
		desc: md,
		opts: protodelim.UnmarshalOptions{MaxSize: DefaultMaxMessageSize},
	}
	for _, opt := range opts {
		opt(dr)
	}
	return dr
}

// Next decodes the next message. It returns io.EOF when the stream ends
// cleanly between two messages; a stream ending inside a message is an
// error.
func (r *DelimitedReader) Next() (protoreflect.Message, error) {
	msg := dynamicpb.NewMessage(r.desc)
	if err := r.opts.UnmarshalFrom(r.r, msg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, xerrors.Errorf("pbio: could not decode message %d: %w", r.n, err)
	}
	r.n++
	return msg, nil
}

// Count returns the number of messages decoded so far.
func (r *DelimitedReader) Count() int { return r.n }

// WriteDelimited writes msgs to w, each prefixed by its varint length, and
// returns the number of bytes written.
func WriteDelimited(w io.Writer, msgs ...proto.Message) (int, error) {
	var total int
	for _, m := range msgs {
		n, err := protodelim.MarshalTo(w, m)
		total += n
		if err != nil {
			return total, xerrors.Errorf("pbio: could not write message: %w", err)
		}
	}
	return total, nil
}
