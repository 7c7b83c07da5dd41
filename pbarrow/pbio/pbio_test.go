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

package pbio_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/pbarrow/pbarrow/internal/testing/protos"
	"github.com/pbarrow/pbarrow/pbarrow/pbio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protodelim"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

func writePoints(t *testing.T, w io.Writer, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := pbio.WriteDelimited(w, protos.Point(float32(i), 1).Interface())
		require.NoError(t, err)
	}
}

func TestDelimitedRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	writePoints(t, &buf, 3)

	md := protos.Message("Point")
	r := pbio.NewDelimitedReader(&buf, md)
	x := protos.FieldOf(md, "x")
	for i := 0; i < 3; i++ {
		msg, err := r.Next()
		require.NoError(t, err)
		assert.Equal(t, md, msg.Descriptor())
		assert.Equal(t, float32(i), float32(msg.Get(x).Float()))
		assert.True(t, proto.Equal(protos.Point(float32(i), 1).Interface(), msg.Interface()))
	}

	_, err := r.Next()
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 3, r.Count())
}

func TestDelimitedEmptyStream(t *testing.T) {
	r := pbio.NewDelimitedReader(bytes.NewReader(nil), protos.Message("Point"))
	_, err := r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestDelimitedTruncated(t *testing.T) {
	var buf bytes.Buffer
	writePoints(t, &buf, 2)
	data := buf.Bytes()[:buf.Len()-2]

	r := pbio.NewDelimitedReader(bytes.NewReader(data), protos.Message("Point"))
	_, err := r.Next()
	require.NoError(t, err)

	_, err = r.Next()
	require.Error(t, err)
	assert.False(t, errors.Is(err, io.EOF))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestDelimitedMaxMessageSize(t *testing.T) {
	var buf bytes.Buffer
	poly := protos.New("Polygon")
	protos.Set(poly, "name", protoreflect.ValueOfString(string(bytes.Repeat([]byte("x"), 64))))
	_, err := pbio.WriteDelimited(&buf, poly)
	require.NoError(t, err)

	r := pbio.NewDelimitedReader(&buf, protos.Message("Polygon"), pbio.WithMaxMessageSize(16))
	_, err = r.Next()
	var tooLarge *protodelim.SizeTooLargeError
	assert.ErrorAs(t, err, &tooLarge)
}

func TestCompressionRoundTrip(t *testing.T) {
	for _, codec := range []pbio.Codec{pbio.None, pbio.Zstd, pbio.Snappy, pbio.LZ4} {
		t.Run(codec.String(), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := pbio.Compress(&buf, codec)
			require.NoError(t, err)
			writePoints(t, w, 10)
			require.NoError(t, w.Close())

			rc, err := pbio.Decompress(&buf, codec)
			require.NoError(t, err)
			defer rc.Close()

			r := pbio.NewDelimitedReader(rc, protos.Message("Point"))
			var n int
			for {
				_, err := r.Next()
				if err == io.EOF {
					break
				}
				require.NoError(t, err)
				n++
			}
			assert.Equal(t, 10, n)
		})
	}
}

func TestCodecs(t *testing.T) {
	tests := []struct {
		path  string
		codec pbio.Codec
	}{
		{"points.bin", pbio.None},
		{"points.pb.zst", pbio.Zstd},
		{"points.ZSTD", pbio.Zstd},
		{"points.sz", pbio.Snappy},
		{"points.snappy", pbio.Snappy},
		{"points.lz4", pbio.LZ4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.codec, pbio.CodecForPath(tt.path), tt.path)
	}

	names := map[string]pbio.Codec{"none": pbio.None, "zstd": pbio.Zstd, "snappy": pbio.Snappy, "LZ4": pbio.LZ4}
	for name, want := range names {
		c, err := pbio.ParseCodec(name)
		require.NoError(t, err)
		assert.Equal(t, want, c, name)
	}

	_, err := pbio.ParseCodec("brotli")
	assert.Error(t, err)

	_, err = pbio.Decompress(bytes.NewReader(nil), pbio.Codec(42))
	assert.Error(t, err)
	assert.Equal(t, "unknown", pbio.Codec(42).String())
}
