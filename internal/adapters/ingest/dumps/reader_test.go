package dumps

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	perr "pageviews/internal/platform/errors"
	kit "pageviews/internal/platform/testkit"
)

type trackingCloser struct {
	io.Reader
	closed int
}

func (t *trackingCloser) Close() error { t.closed++; return nil }

func newReader(t *testing.T, data []byte) (*LineReader, *trackingCloser) {
	t.Helper()
	tc := &trackingCloser{Reader: bytes.NewReader(data)}
	return NewLineReader(tc), tc
}

// maxReadAll bounds readAll so a reader that never ends fails instead of hanging
const maxReadAll = 1 << 20

func readAll(t *testing.T, lr *LineReader) ([]Line, []error) {
	t.Helper()
	var lines []Line
	var errs []error
	for i := 0; i < maxReadAll; i++ {
		l, err := lr.Next()
		if err == io.EOF {
			return lines, errs
		}
		if err != nil {
			errs = append(errs, err)
			if perr.IsFatal(err) {
				return lines, errs
			}
			continue
		}
		lines = append(lines, l)
	}
	t.Fatalf("reader did not terminate")
	return nil, nil
}

func TestLineReaderSplits(t *testing.T) {
	cases := []struct {
		name string
		text string
		want []string
	}{
		{"terminated", "a 1\nb 2\n", []string{"a 1", "b 2"}},
		{"no final newline", "a 1\nb 2", []string{"a 1", "b 2"}},
		{"crlf", "a 1\r\nb 2\r\n", []string{"a 1", "b 2"}},
		{"blank line kept", "a\n\nb\n", []string{"a", "", "b"}},
		{"empty payload", "", nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			lr, _ := newReader(t, kit.Gzip(t, c.text))
			lines, errs := readAll(t, lr)
			if len(errs) != 0 {
				t.Fatalf("unexpected errors: %v", errs)
			}
			if len(lines) != len(c.want) {
				t.Fatalf("got %d lines, want %d", len(lines), len(c.want))
			}
			for i, l := range lines {
				if l.Text != c.want[i] || l.Num != i+1 {
					t.Fatalf("line %d = %+v, want %q", i, l, c.want[i])
				}
			}
		})
	}
}

func TestLineReaderInvalidUTF8IsPerLine(t *testing.T) {
	lr, _ := newReader(t, kit.Gzip(t, "en A 1\nen \xff\xfe 2\nen C 3\n"))
	lines, errs := readAll(t, lr)
	if len(lines) != 2 || lines[0].Text != "en A 1" || lines[1].Text != "en C 3" {
		t.Fatalf("lines = %+v", lines)
	}
	if len(errs) != 1 {
		t.Fatalf("errs = %v", errs)
	}
	if !perr.IsCode(errs[0], perr.ErrorCodeDecode) || perr.LineOf(errs[0]) != 2 || perr.IsFatal(errs[0]) {
		t.Fatalf("expected line-level decode error on line 2, got %v", errs[0])
	}
	if lines[1].Num != 3 {
		t.Fatalf("line numbering must count the bad line, got %d", lines[1].Num)
	}
}

func TestLineReaderLazyHeaderError(t *testing.T) {
	tc := &trackingCloser{Reader: strings.NewReader("definitely not gzip")}
	lr := NewLineReader(tc) // must not fail at construction
	_, err := lr.Next()
	if !perr.IsCode(err, perr.ErrorCodeDecode) || !perr.IsFatal(err) {
		t.Fatalf("expected fatal decode error, got %v", err)
	}
	// sticky
	if _, err2 := lr.Next(); err2 != err {
		t.Fatalf("error should be sticky, got %v", err2)
	}
	if err := lr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if tc.closed != 1 {
		t.Fatalf("source closed %d times", tc.closed)
	}
}

func TestLineReaderTruncatedStream(t *testing.T) {
	gz := kit.Gzip(t, strings.Repeat("en Main_Page 10 0\n", 5000))
	lr, _ := newReader(t, gz[:len(gz)/2])
	lines, errs := readAll(t, lr)
	if len(errs) != 1 || !perr.IsCode(errs[0], perr.ErrorCodeDecode) || !perr.IsFatal(errs[0]) {
		t.Fatalf("expected one fatal decode error, got %v", errs)
	}
	if len(lines) == 0 || len(lines) >= 5000 {
		t.Fatalf("read %d lines before truncation, want a prefix of 5000", len(lines))
	}
	for i, l := range lines {
		// the scanner hands back the cut off tail as a final short line
		if l.Num != i+1 || !strings.HasPrefix("en Main_Page 10 0", l.Text) {
			t.Fatalf("line %d = %+v", i, l)
		}
	}
}

func TestLineReaderSourceErrorKeepsCode(t *testing.T) {
	gz := kit.Gzip(t, "en A 1\n")
	src := &source{
		rc:   &trackingCloser{Reader: io.MultiReader(bytes.NewReader(gz[:10]), errReader{})},
		name: "http://x",
		code: perr.ErrorCodeConnection,
	}
	lr := NewLineReader(src)
	_, err := lr.Next()
	if !perr.IsCode(err, perr.ErrorCodeConnection) {
		t.Fatalf("expected connection error, got %v (%v)", perr.CodeOf(err), err)
	}
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("connection reset by peer") }

func TestLineReaderStatsAndClose(t *testing.T) {
	lr, tc := newReader(t, kit.Gzip(t, "ab\ncd\n"))
	if _, err := lr.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	lines, n := lr.Stats()
	if lines != 1 || n != 3 {
		t.Fatalf("Stats = (%d,%d), want (1,3)", lines, n)
	}
	if err := lr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := lr.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if tc.closed != 1 {
		t.Fatalf("source closed %d times, want 1", tc.closed)
	}
	if _, err := lr.Next(); err != io.EOF {
		t.Fatalf("Next after Close = %v, want io.EOF", err)
	}
}

func TestLineReaderCloseBeforeRead(t *testing.T) {
	lr, tc := newReader(t, kit.Gzip(t, "x\n"))
	if err := lr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if tc.closed != 1 {
		t.Fatalf("unread source must still be closed")
	}
}
