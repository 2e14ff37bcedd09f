package dumps

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	perr "pageviews/internal/platform/errors"
	kit "pageviews/internal/platform/testkit"
)

func TestOpenFile(t *testing.T) {
	p := kit.WriteDump(t, "en A 1 0")
	rc, err := OpenFile(p)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	lr := NewLineReader(rc)
	defer func() { _ = lr.Close() }()
	l, err := lr.Next()
	if err != nil || l.Text != "en A 1 0" {
		t.Fatalf("Next = %+v, %v", l, err)
	}

	_, err = OpenFile(filepath.Join(t.TempDir(), "missing.gz"))
	if !perr.IsCode(err, perr.ErrorCodeNotFound) || !perr.IsFatal(err) {
		t.Fatalf("missing file: got %v", err)
	}
}

func TestHTTPFetcherOpen(t *testing.T) {
	body := kit.Gzip(t, kit.DumpText("en A 1 0", "de B 2 0"))
	var gets atomic.Int32
	var ua atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gets.Add(1)
		ua.Store(r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/ok.gz":
			_, _ = w.Write(body)
		case "/gone.gz":
			http.NotFound(w, r)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(0, "pv-test/1")
	rc, err := f.Open(context.Background(), srv.URL+"/ok.gz")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	lr := NewLineReader(rc)
	var n int
	for {
		_, err := lr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		n++
	}
	_ = lr.Close()
	if n != 2 || gets.Load() != 1 {
		t.Fatalf("lines=%d gets=%d", n, gets.Load())
	}
	if ua.Load() != "pv-test/1" {
		t.Fatalf("user agent = %v", ua.Load())
	}

	for _, p := range []string{"/gone.gz", "/boom.gz"} {
		_, err := f.Open(context.Background(), srv.URL+p)
		if !perr.IsCode(err, perr.ErrorCodeConnection) || !perr.IsFatal(err) {
			t.Fatalf("%s: got %v", p, err)
		}
	}
}

func TestHTTPFetcherConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	u := srv.URL
	srv.Close()

	_, err := NewHTTPFetcher(0, "").Open(context.Background(), u+"/x.gz")
	if !perr.IsCode(err, perr.ErrorCodeConnection) {
		t.Fatalf("got %v", err)
	}
}

func TestHTTPFetcherBadInput(t *testing.T) {
	f := &HTTPFetcher{}
	if _, err := f.Open(context.Background(), ""); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("empty url: got %v", err)
	}
	if _, err := f.Open(context.Background(), "http://[::1"); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("bad url: got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.Open(ctx, "http://127.0.0.1:1/x.gz"); !perr.IsCode(err, perr.ErrorCodeCanceled) {
		t.Fatalf("canceled ctx: got %v", err)
	}
}
