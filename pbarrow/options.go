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
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/go-kit/log"
)

// DefaultMaxRecursionDepth is the number of times a field name may be
// expanded along a single path before it is cut from the schema.
const DefaultMaxRecursionDepth = 3

type config struct {
	mem       memory.Allocator
	maxDepth  int
	formatter func(string) string
	logger    log.Logger
	metrics   *Metrics
	parallel  bool
}

// Option configures schema mapping, zipping and decoding.
type Option func(*config)

// WithAllocator specifies the allocator used for builders and arrays.
// Only the Converter consults it; Deserialize takes an allocator directly.
func WithAllocator(mem memory.Allocator) Option {
	return func(cfg *config) {
		cfg.mem = mem
	}
}

// WithMaxRecursionDepth bounds how often the same field name may be expanded
// on one path. Values below 1 are ignored.
func WithMaxRecursionDepth(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.maxDepth = n
		}
	}
}

// WithFieldNameFormatter renames every column. The zipper applies the same
// function when matching columns back to protobuf fields, so it must be
// used consistently with MapSchema and ZipFields.
func WithFieldNameFormatter(fn func(string) string) Option {
	return func(cfg *config) {
		if fn != nil {
			cfg.formatter = fn
		}
	}
}

// WithLogger sets the logger used for diagnostics. The default discards
// everything.
func WithLogger(logger log.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithMetrics records conversion counters in m.
func WithMetrics(m *Metrics) Option {
	return func(cfg *config) {
		cfg.metrics = m
	}
}

// WithParallelColumns decodes each top-level column on its own goroutine.
func WithParallelColumns(parallel bool) Option {
	return func(cfg *config) {
		cfg.parallel = parallel
	}
}

func identity(s string) string { return s }

func newConfig(opts ...Option) *config {
	cfg := &config{
		mem:       memory.DefaultAllocator,
		maxDepth:  DefaultMaxRecursionDepth,
		formatter: identity,
		logger:    log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
