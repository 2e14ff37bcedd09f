package dumps

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"time"

	perr "pageviews/internal/platform/errors"
	"pageviews/internal/platform/logger"
)

// DefaultUserAgent identifies the pipeline to dumps.wikimedia.org
const DefaultUserAgent = "pageviews-ingest/1.0 (+https://dumps.wikimedia.org/other/pageviews/)"

// Opener opens a remote dump for streaming
type Opener interface {
	Open(ctx context.Context, url string) (io.ReadCloser, error)
}

// source tags read failures with a code so the line reader can tell them from
// decompression failures
type source struct {
	ctx  context.Context
	rc   io.ReadCloser
	name string
	code perr.ErrorCode
}

func (s *source) Read(p []byte) (int, error) {
	n, err := s.rc.Read(p)
	if err == nil || err == io.EOF {
		return n, err
	}
	if s.ctx != nil {
		if cerr := s.ctx.Err(); cerr != nil {
			return n, perr.Wrapf(cerr, perr.ErrorCodeCanceled, "read %s", s.name)
		}
	}
	return n, perr.Wrapf(err, s.code, "read %s", s.name)
}

func (s *source) Close() error { return s.rc.Close() }

// OpenFile opens a local dump; a missing path is ErrorCodeNotFound
func OpenFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, perr.WithOp(perr.Wrapf(err, perr.ErrorCodeNotFound, "open %s", path), "dumps.open_file")
		}
		return nil, perr.WithOp(perr.Wrapf(err, perr.ErrorCodeUnknown, "open %s", path), "dumps.open_file")
	}
	return &source{rc: f, name: path, code: perr.ErrorCodeUnknown}, nil
}

// HTTPFetcher streams dumps over HTTP
// One GET per Open, no retries
type HTTPFetcher struct {
	Client    *http.Client
	UserAgent string
}

// NewHTTPFetcher creates a fetcher; d=0 means no client timeout
func NewHTTPFetcher(d time.Duration, userAgent string) *HTTPFetcher {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &HTTPFetcher{Client: &http.Client{Timeout: d}, UserAgent: userAgent}
}

// Open issues the GET and returns the body unread
// Transport failures and non 2xx responses are ErrorCodeConnection
func (f *HTTPFetcher) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	resp, err := f.get(ctx, url)
	if err != nil {
		return nil, err
	}
	return &source{ctx: ctx, rc: resp.Body, name: url, code: perr.ErrorCodeConnection}, nil
}

func (f *HTTPFetcher) get(ctx context.Context, url string) (*http.Response, error) {
	if url == "" {
		return nil, perr.InvalidArgf("dumps: empty url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, perr.WithField(perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "dumps: bad url %q", url), "url")
	}
	ua := f.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return nil, perr.Wrapf(cerr, perr.ErrorCodeCanceled, "dumps: get %s", url)
		}
		return nil, perr.WithOp(perr.Wrapf(err, perr.ErrorCodeConnection, "dumps: get %s", url), "dumps.open_url")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if cerr := resp.Body.Close(); cerr != nil {
			logger.Named("dumps").Debug().Err(cerr).Str("url", url).Msg("close error body")
		}
		return nil, perr.WithOp(perr.Connectionf("dumps: unexpected status %d for %s", resp.StatusCode, url), "dumps.open_url")
	}
	return resp, nil
}
