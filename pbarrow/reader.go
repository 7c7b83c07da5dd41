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
	"errors"
	"io"
	"sync/atomic"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/pbarrow/pbarrow/internal/debug"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// MessageSource yields messages one at a time. Next returns io.EOF once the
// source is exhausted.
type MessageSource interface {
	Next() (protoreflect.Message, error)
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithChunk sets the number of messages per record. A chunk below 1 reads
// the whole source into a single record. The default is 1.
func WithChunk(n int) ReaderOption {
	return func(r *Reader) {
		r.chunk = n
	}
}

// Reader converts the messages of a MessageSource into a sequence of
// records.
type Reader struct {
	src  MessageSource
	conv *Converter

	refs int64
	cur  arrow.Record
	err  error
	buf  []protoreflect.Message

	chunk int
	done  bool
	next  func() bool
}

// NewReader returns a reader decoding messages from src with conv.
func NewReader(src MessageSource, conv *Converter, opts ...ReaderOption) *Reader {
	r := &Reader{
		src:   src,
		conv:  conv,
		refs:  1,
		chunk: 1,
	}
	for _, opt := range opts {
		opt(r)
	}

	switch {
	case r.chunk < 1:
		r.next = r.nextall
	default:
		r.next = r.nextn
		r.buf = make([]protoreflect.Message, 0, r.chunk)
	}
	return r
}

// Err returns the last error encountered, if any. The end of the source is
// not an error.
func (r *Reader) Err() error { return r.err }

func (r *Reader) Schema() *arrow.Schema { return r.conv.Schema() }

// Record returns the current record. It is valid until the next call to
// Next.
func (r *Reader) Record() arrow.Record { return r.cur }

// Next reports whether a record could be produced. Once it returns false,
// Err tells whether the source ended or decoding failed.
func (r *Reader) Next() bool {
	if r.cur != nil {
		r.cur.Release()
		r.cur = nil
	}

	if r.err != nil || r.done {
		return false
	}

	return r.next()
}

// nextn converts up to chunk messages into one record.
func (r *Reader) nextn() bool {
	r.fill(r.chunk)
	if r.err != nil || len(r.buf) == 0 {
		return false
	}
	return r.convert()
}

// nextall converts every remaining message into one record.
func (r *Reader) nextall() bool {
	r.fill(-1)
	if r.err != nil {
		return false
	}
	return r.convert()
}

// fill reads up to n messages into buf, or until the source ends when n is
// below 1.
func (r *Reader) fill(n int) {
	r.buf = r.buf[:0]
	for n < 1 || len(r.buf) < n {
		msg, err := r.src.Next()
		if err != nil {
			r.done = true
			if !errors.Is(err, io.EOF) {
				r.err = err
			}
			return
		}
		r.buf = append(r.buf, msg)
	}
}

func (r *Reader) convert() bool {
	rec, err := r.conv.Convert(r.buf)
	// drop references to decoded messages
	clear(r.buf)
	if err != nil {
		r.err = err
		r.done = true
		return false
	}
	r.cur = rec
	return true
}

// Retain increases the reference count by 1.
// Retain may be called simultaneously from multiple goroutines.
func (r *Reader) Retain() {
	atomic.AddInt64(&r.refs, 1)
}

// Release decreases the reference count by 1.
// When the reference count goes to zero, the current record is released.
// Release may be called simultaneously from multiple goroutines.
func (r *Reader) Release() {
	debug.Assert(atomic.LoadInt64(&r.refs) > 0, "too many releases")

	if atomic.AddInt64(&r.refs, -1) == 0 {
		if r.cur != nil {
			r.cur.Release()
			r.cur = nil
		}
	}
}

var (
	_ array.RecordReader = (*Reader)(nil)
)
