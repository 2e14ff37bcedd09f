package dumps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	perr "pageviews/internal/platform/errors"
	"pageviews/internal/platform/logger"

	"github.com/cespare/xxhash/v2"
)

// CachedFetcher downloads each dump once into dir and serves later opens from disk
// Dumps are immutable once published so there is no revalidation
// Optional retention by max age and total bytes
type CachedFetcher struct {
	dir             string
	http            *HTTPFetcher
	retainMaxAge    time.Duration
	retainMaxBytes  int64
	lastCleanupUnix atomic.Int64
	hits            atomic.Int64
	misses          atomic.Int64
}

// cacheMeta is the sidecar written next to each cached dump
type cacheMeta struct {
	URL       string    `json:"url"`
	ETag      string    `json:"etag,omitempty"`
	Size      int64     `json:"size"`
	FetchedAt time.Time `json:"fetched_at"`
}

// CachedOption configures the fetcher
type CachedOption func(*CachedFetcher)

// WithRetention sets optional age and size retention
// Pass zero to disable either dimension
func WithRetention(maxAge time.Duration, maxBytes int64) CachedOption {
	return func(c *CachedFetcher) {
		c.retainMaxAge = maxAge
		c.retainMaxBytes = maxBytes
	}
}

// NewCachedFetcher builds a caching fetcher; base may be nil
func NewCachedFetcher(dir string, base *HTTPFetcher, opts ...CachedOption) *CachedFetcher {
	if base == nil {
		base = NewHTTPFetcher(0, "")
	}
	c := &CachedFetcher{dir: dir, http: base}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Open serves url from the cache, downloading it first on a miss
func (c *CachedFetcher) Open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	name, err := cacheName(rawURL)
	if err != nil {
		return nil, err
	}
	p := filepath.Join(c.dir, name)
	log := logger.C(ctx).With().Str("component", "dumps.cache").Str("file", name).Logger()

	if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
		c.hits.Add(1)
		log.Debug().Int64("size", fi.Size()).Msg("cache hit")
		c.maybeCleanup()
		return OpenFile(p)
	}

	c.misses.Add(1)
	log.Info().Str("url", rawURL).Msg("cache miss; downloading")
	meta, err := c.http.download(ctx, rawURL, p)
	if err != nil {
		return nil, err
	}
	if err := saveMeta(p+".meta", meta); err != nil {
		log.Warn().Err(err).Msg("write cache meta")
	}
	c.maybeCleanup()
	return OpenFile(p)
}

// Stats returns cache hits and misses since construction
func (c *CachedFetcher) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// cacheName keys the cache by origin and file name: <xxhash of host+dir>_<base>
// Mirrors publishing the same dump name land in separate entries
func cacheName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return "", perr.WithField(perr.InvalidArgf("dumps: cannot cache url %q", rawURL), "url")
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." || strings.HasSuffix(name, ".part") || strings.HasSuffix(name, ".meta") {
		return "", perr.WithField(perr.InvalidArgf("dumps: cannot cache url %q", rawURL), "url")
	}
	origin := strings.ToLower(u.Host) + path.Dir(u.Path)
	return fmt.Sprintf("%016x_%s", xxhash.Sum64String(origin), name), nil
}

// dumpName strips the origin key from a cache entry name
func dumpName(entry string) string {
	if _, base, ok := strings.Cut(entry, "_"); ok {
		return base
	}
	return entry
}

// Download fetches url into dst atomically (dst.part then rename)
func Download(ctx context.Context, f *HTTPFetcher, url, dst string) (int64, error) {
	if f == nil {
		f = NewHTTPFetcher(0, "")
	}
	meta, err := f.download(ctx, url, dst)
	if err != nil {
		return 0, err
	}
	return meta.Size, nil
}

func (f *HTTPFetcher) download(ctx context.Context, url, dst string) (*cacheMeta, error) {
	resp, err := f.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeWrite, "dumps: create dir for %s", dst)
	}
	tmp := dst + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeWrite, "dumps: create %s", tmp)
	}
	body := &source{ctx: ctx, rc: resp.Body, name: url, code: perr.ErrorCodeConnection}
	n, werr := io.Copy(out, body)
	cerr := out.Close()
	if werr == nil && cerr != nil {
		werr = perr.Wrapf(cerr, perr.ErrorCodeWrite, "dumps: close %s", tmp)
	}
	if werr != nil {
		_ = os.Remove(tmp)
		if _, ok := perr.As(werr); !ok {
			werr = perr.Wrapf(werr, perr.ErrorCodeWrite, "dumps: write %s", tmp)
		}
		return nil, werr
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return nil, perr.Wrapf(err, perr.ErrorCodeWrite, "dumps: rename %s", tmp)
	}
	return &cacheMeta{
		URL:       url,
		ETag:      strings.TrimSpace(resp.Header.Get("ETag")),
		Size:      n,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// saveMeta writes the sidecar json atomically
func saveMeta(p string, m *cacheMeta) error {
	tmp := p + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(m); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, p)
}

// maybeCleanup throttles retention cleanup to once per ten minutes
func (c *CachedFetcher) maybeCleanup() {
	if c.retainMaxAge <= 0 && c.retainMaxBytes <= 0 {
		return
	}
	now := time.Now().Unix()
	last := c.lastCleanupUnix.Load()
	if last != 0 && now-last < 600 {
		return
	}
	if !c.lastCleanupUnix.CompareAndSwap(last, now) {
		return
	}
	if err := c.cleanupOnce(); err != nil {
		logger.Named("dumps.cache").Warn().Err(err).Msg("retention cleanup")
	}
}

// cleanupOnce applies age and size retention, oldest hour first
// Files whose name carries no hour fall back to their mtime
func (c *CachedFetcher) cleanupOnce() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}
	type item struct {
		path string
		size int64
		ts   time.Time
	}
	var items []item
	var total int64
	cutoff := time.Now().Add(-c.retainMaxAge)

	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, ".meta") || strings.HasSuffix(name, ".part") {
			continue
		}
		full := filepath.Join(c.dir, name)
		fi, err := os.Stat(full)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		ts, ok := hourFromFileName(dumpName(name))
		if !ok {
			ts = fi.ModTime()
		}
		if c.retainMaxAge > 0 && ts.Before(cutoff) {
			_ = os.Remove(full)
			_ = os.Remove(full + ".meta")
			continue
		}
		items = append(items, item{path: full, size: fi.Size(), ts: ts})
		total += fi.Size()
	}

	if c.retainMaxBytes > 0 && total > c.retainMaxBytes {
		sort.Slice(items, func(i, j int) bool { return items[i].ts.Before(items[j].ts) })
		for _, it := range items {
			if total <= c.retainMaxBytes {
				break
			}
			_ = os.Remove(it.path)
			_ = os.Remove(it.path + ".meta")
			total -= it.size
		}
	}
	return nil
}
