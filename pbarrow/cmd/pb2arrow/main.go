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

// Command pb2arrow converts a stream of length-delimited protobuf messages
// into Arrow IPC, Parquet or JSON.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet"
	"github.com/apache/arrow/go/v17/parquet/compress"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"
	"github.com/docopt/docopt-go"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/huandu/xstrings"
	"github.com/pbarrow/pbarrow/pbarrow"
	"github.com/pbarrow/pbarrow/pbarrow/pbio"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/xerrors"
)

const usage = `Protobuf to Arrow converter.

Reads varint length-delimited messages of one type and writes them as Arrow
record batches. The message type is looked up in a serialized
FileDescriptorSet (protoc --include_imports --descriptor_set_out).

Usage:
  pb2arrow [options] <descriptor-set> <message> [<input>]
  pb2arrow -h | --help

Options:
  -h --help                  Show this screen.
  -f --format=<format>       Output format: ipc, parquet or json [default: ipc].
  -o --output=<file>         Output file, - for stdout [default: -].
  --chunk=<n>                Messages per record batch, 0 for a single batch [default: 1024].
  --max-depth=<n>            Expansions of a recursive field per path [default: 3].
  --max-message-size=<n>     Largest accepted message in bytes, -1 for no limit [default: 4194304].
  --compression=<codec>      Input compression: auto, none, zstd, snappy or lz4 [default: auto].
  --describe                 Print the mapped schema as JSON instead of converting.
  --parallel                 Decode top-level columns concurrently.
  --camel-case               Use CamelCase column names.
  --metrics-file=<file>      Write conversion counters in the Prometheus text format.
  -v --verbose               Log debug output.`

type config struct {
	descriptorSet  string
	message        string
	input          string
	format         string
	output         string
	chunk          int
	maxDepth       int
	maxMessageSize int
	compression    string
	describe       bool
	parallel       bool
	camelCase      bool
	metricsFile    string
	verbose        bool
}

func parseConfig(opts docopt.Opts) (config, error) {
	var (
		cfg config
		err error
	)
	if cfg.descriptorSet, err = opts.String("<descriptor-set>"); err != nil {
		return cfg, err
	}
	if cfg.message, err = opts.String("<message>"); err != nil {
		return cfg, err
	}
	cfg.input, _ = opts["<input>"].(string)
	cfg.metricsFile, _ = opts["--metrics-file"].(string)
	if cfg.format, err = opts.String("--format"); err != nil {
		return cfg, err
	}
	if cfg.output, err = opts.String("--output"); err != nil {
		return cfg, err
	}
	if cfg.compression, err = opts.String("--compression"); err != nil {
		return cfg, err
	}
	if cfg.chunk, err = opts.Int("--chunk"); err != nil {
		return cfg, xerrors.Errorf("invalid --chunk: %w", err)
	}
	if cfg.maxDepth, err = opts.Int("--max-depth"); err != nil {
		return cfg, xerrors.Errorf("invalid --max-depth: %w", err)
	}
	if cfg.maxMessageSize, err = opts.Int("--max-message-size"); err != nil {
		return cfg, xerrors.Errorf("invalid --max-message-size: %w", err)
	}
	cfg.describe, _ = opts.Bool("--describe")
	cfg.parallel, _ = opts.Bool("--parallel")
	cfg.camelCase, _ = opts.Bool("--camel-case")
	cfg.verbose, _ = opts.Bool("--verbose")

	switch cfg.format {
	case "ipc", "parquet", "json":
	default:
		return cfg, xerrors.Errorf("unknown output format %q", cfg.format)
	}
	return cfg, nil
}

func newLogger(w io.Writer, verbose bool) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	if verbose {
		return level.NewFilter(logger, level.AllowDebug())
	}
	return level.NewFilter(logger, level.AllowInfo())
}

func main() {
	opts, _ := docopt.ParseDoc(usage)
	cfg, err := parseConfig(opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pb2arrow:", err)
		os.Exit(2)
	}

	logger := newLogger(os.Stderr, cfg.verbose)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, os.Stdin, os.Stdout, logger); err != nil {
		level.Error(logger).Log("msg", "conversion failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config, stdin io.Reader, stdout io.Writer, logger log.Logger) error {
	raw, err := os.ReadFile(cfg.descriptorSet)
	if err != nil {
		return xerrors.Errorf("could not read descriptor set: %w", err)
	}
	md, err := pbarrow.LoadMessageDescriptor(raw, cfg.message)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	convOpts := []pbarrow.Option{
		pbarrow.WithAllocator(memory.DefaultAllocator),
		pbarrow.WithMaxRecursionDepth(cfg.maxDepth),
		pbarrow.WithParallelColumns(cfg.parallel),
		pbarrow.WithLogger(logger),
		pbarrow.WithMetrics(pbarrow.NewMetrics(reg)),
	}
	if cfg.camelCase {
		convOpts = append(convOpts, pbarrow.WithFieldNameFormatter(xstrings.ToPascalCase))
	}
	conv, err := pbarrow.NewConverter(md, convOpts...)
	if err != nil {
		return err
	}

	out := stdout
	if cfg.output != "-" {
		f, err := os.Create(cfg.output)
		if err != nil {
			return xerrors.Errorf("could not create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	if cfg.describe {
		return pbarrow.DescribeJSON(out, conv.Describe())
	}

	in, codec := stdin, pbio.None
	if cfg.input != "" && cfg.input != "-" {
		f, err := os.Open(cfg.input)
		if err != nil {
			return xerrors.Errorf("could not open input: %w", err)
		}
		defer f.Close()
		in, codec = f, pbio.CodecForPath(cfg.input)
	}
	if cfg.compression != "auto" {
		if codec, err = pbio.ParseCodec(cfg.compression); err != nil {
			return err
		}
	}
	rc, err := pbio.Decompress(in, codec)
	if err != nil {
		return err
	}
	defer rc.Close()

	src := pbio.NewDelimitedReader(rc, md, pbio.WithMaxMessageSize(int64(cfg.maxMessageSize)))
	rdr := pbarrow.NewReader(src, conv, pbarrow.WithChunk(cfg.chunk))
	defer rdr.Release()

	w, err := newRecordWriter(cfg.format, out, conv.Schema())
	if err != nil {
		return err
	}

	var batches, rows int64
	for ctx.Err() == nil && rdr.Next() {
		rec := rdr.Record()
		if err := w.Write(rec); err != nil {
			w.Close()
			return xerrors.Errorf("could not write record batch %d: %w", batches, err)
		}
		batches++
		rows += rec.NumRows()
		level.Debug(logger).Log("msg", "wrote record batch", "batch", batches, "rows", rec.NumRows())
	}
	if err := rdr.Err(); err != nil {
		w.Close()
		return xerrors.Errorf("message %d: %w", src.Count(), err)
	}
	if err := w.Close(); err != nil {
		return xerrors.Errorf("could not finish output: %w", err)
	}
	if ctx.Err() != nil {
		level.Warn(logger).Log("msg", "interrupted, output holds the batches written so far", "batches", batches)
	}

	level.Info(logger).Log("msg", "conversion done", "message", md.FullName(), "format", cfg.format, "batches", batches, "rows", rows)
	if cfg.metricsFile != "" {
		if err := prometheus.WriteToTextfile(cfg.metricsFile, reg); err != nil {
			return xerrors.Errorf("could not write metrics: %w", err)
		}
	}
	return nil
}

type recordWriter interface {
	Write(rec arrow.Record) error
	Close() error
}

func newRecordWriter(format string, w io.Writer, schema *arrow.Schema) (recordWriter, error) {
	switch strings.ToLower(format) {
	case "ipc":
		return ipc.NewWriter(w, ipc.WithSchema(schema)), nil
	case "parquet":
		props := parquet.NewWriterProperties(
			parquet.WithCompression(compress.Codecs.Snappy),
			parquet.WithDictionaryDefault(true),
		)
		fw, err := pqarrow.NewFileWriter(schema, writerOnly{w}, props, pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()))
		if err != nil {
			return nil, xerrors.Errorf("could not create parquet writer: %w", err)
		}
		return fw, nil
	case "json":
		return jsonWriter{w}, nil
	}
	return nil, xerrors.Errorf("unknown output format %q", format)
}

// jsonWriter writes one JSON object per row.
type jsonWriter struct {
	w io.Writer
}

func (j jsonWriter) Write(rec arrow.Record) error { return array.RecordToJSON(rec, j.w) }
func (jsonWriter) Close() error                   { return nil }

// writerOnly hides Close from the parquet writer; the output is owned by
// run.
type writerOnly struct {
	io.Writer
}
