package dumps

import (
	"bufio"
	"bytes"
	"errors"
	"io"

	perr "pageviews/internal/platform/errors"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/text/encoding"
)

const (
	readBufferSize = 256 * 1024
	maxLineSize    = 32 * 1024 * 1024
)

// Line is one decompressed line; Num is 1-based
type Line struct {
	Num  int
	Text string
}

// LineReader decompresses and splits a dump into lines
// Not safe for concurrent use
type LineReader struct {
	src   io.ReadCloser
	gz    *gzip.Reader
	sc    *bufio.Scanner
	check []byte
	err   error
	lines int
	bytes int64
}

// NewLineReader wraps compressed bytes; nothing is read until the first Next
func NewLineReader(src io.ReadCloser) *LineReader {
	return &LineReader{src: src}
}

func (lr *LineReader) init() error {
	gz, err := gzip.NewReader(bufio.NewReaderSize(lr.src, readBufferSize))
	if err != nil {
		return classify(err, "gzip header")
	}
	lr.gz = gz
	lr.sc = bufio.NewScanner(gz)
	lr.sc.Buffer(make([]byte, 64*1024), maxLineSize)
	return nil
}

// Next returns the next line
// io.EOF at the end; per-line failures (invalid UTF-8) carry the line number
// and do not stop the reader; other errors are sticky
func (lr *LineReader) Next() (Line, error) {
	if lr.err != nil {
		return Line{}, lr.err
	}
	if lr.sc == nil {
		if err := lr.init(); err != nil {
			lr.err = err
			return Line{}, err
		}
	}
	if !lr.sc.Scan() {
		if err := lr.sc.Err(); err != nil {
			lr.err = classify(err, "decompress")
			return Line{}, lr.err
		}
		lr.err = io.EOF
		return Line{}, io.EOF
	}

	raw := lr.sc.Bytes()
	lr.lines++
	lr.bytes += int64(len(raw) + 1)
	raw = bytes.TrimSuffix(raw, []byte{'\r'})

	if err := lr.validate(raw); err != nil {
		return Line{Num: lr.lines}, perr.WithLine(
			perr.Wrapf(err, perr.ErrorCodeDecode, "line %d: invalid utf-8", lr.lines), lr.lines)
	}
	return Line{Num: lr.lines, Text: string(raw)}, nil
}

// validate runs the x/text UTF-8 validator over one line
func (lr *LineReader) validate(b []byte) error {
	if cap(lr.check) < len(b) {
		lr.check = make([]byte, len(b))
	}
	_, _, err := encoding.UTF8Validator.Transform(lr.check[:len(b)], b, true)
	return err
}

// Close releases the decompressor and the source; safe to call twice
func (lr *LineReader) Close() error {
	var first error
	if lr.gz != nil {
		if err := lr.gz.Close(); err != nil {
			first = err
		}
		lr.gz = nil
	}
	if lr.src != nil {
		if err := lr.src.Close(); err != nil && first == nil {
			first = err
		}
		lr.src = nil
	}
	if lr.err == nil {
		lr.err = io.EOF
	}
	return first
}

// Stats returns lines read and uncompressed bytes consumed so far
func (lr *LineReader) Stats() (lines int, bytes int64) {
	return lr.lines, lr.bytes
}

// classify keeps source errors as tagged and maps the rest to a stream level decode error
func classify(err error, stage string) error {
	if _, ok := perr.As(err); ok {
		return err
	}
	if errors.Is(err, bufio.ErrTooLong) {
		return perr.Wrapf(err, perr.ErrorCodeDecode, "%s: line exceeds %d bytes", stage, maxLineSize)
	}
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return perr.Wrapf(err, perr.ErrorCodeDecode, "%s", stage)
}
