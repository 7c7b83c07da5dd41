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

package pbio

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"golang.org/x/xerrors"
)

// Codec identifies the compression of a stream.
type Codec int

const (
	None Codec = iota
	Zstd
	Snappy
	LZ4
)

var codecNames = map[Codec]string{
	None:   "none",
	Zstd:   "zstd",
	Snappy: "snappy",
	LZ4:    "lz4",
}

func (c Codec) String() string {
	if s, ok := codecNames[c]; ok {
		return s
	}
	return "unknown"
}

// ParseCodec returns the codec with the given name.
func ParseCodec(name string) (Codec, error) {
	for c, s := range codecNames {
		if strings.EqualFold(s, name) {
			return c, nil
		}
	}
	return None, xerrors.Errorf("pbio: unknown compression %q", name)
}

// CodecForPath guesses the codec of a file from its extension.
func CodecForPath(path string) Codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst", ".zstd":
		return Zstd
	case ".sz", ".snappy":
		return Snappy
	case ".lz4":
		return LZ4
	}
	return None
}

// Decompress wraps r with a decoder for c. Snappy streams use the framing
// format. Closing the returned reader does not close r.
func Decompress(r io.Reader, c Codec) (io.ReadCloser, error) {
	switch c {
	case None:
		return io.NopCloser(r), nil
	case Zstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, xerrors.Errorf("pbio: could not create zstd reader: %w", err)
		}
		return dec.IOReadCloser(), nil
	case Snappy:
		return io.NopCloser(snappy.NewReader(r)), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	}
	return nil, xerrors.Errorf("pbio: unsupported codec %v", c)
}

// Compress wraps w with an encoder for c. The returned writer must be closed
// to flush the stream; closing it does not close w.
func Compress(w io.Writer, c Codec) (io.WriteCloser, error) {
	switch c {
	case None:
		return nopWriteCloser{w}, nil
	case Zstd:
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return nil, xerrors.Errorf("pbio: could not create zstd writer: %w", err)
		}
		return enc, nil
	case Snappy:
		return snappy.NewBufferedWriter(w), nil
	case LZ4:
		return lz4.NewWriter(w), nil
	}
	return nil, xerrors.Errorf("pbio: unsupported codec %v", c)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
