// Package service implements the pageviews ingest pipeline
package service

import (
	"context"
	"io"
	"time"

	"pageviews/internal/adapters/columnar/parquet"
	"pageviews/internal/adapters/ingest/dumps"
	"pageviews/internal/core/filter"
	"pageviews/internal/core/pageview"
	perr "pageviews/internal/platform/errors"
	"pageviews/internal/platform/logger"
	dom "pageviews/internal/services/pageviews/domain"
)

// Config for the pageviews service
type Config struct {
	Unquote     bool   // unquote "..." page titles
	Compression string // parquet codec: zstd, snappy, none
}

// Service implements domain.RunnerPort
type Service struct {
	Fetcher dom.OpenerPort
	// CreateSink opens the columnar output for WriteColumnar*
	CreateSink func(path string) (dom.SinkPort, error)
	Cfg        Config
}

var _ dom.RunnerPort = (*Service)(nil)

// openFile is a seam for tests
var openFile = dumps.OpenFile

// New constructs a pageviews service; a nil fetcher gets a plain HTTP fetcher
func New(fetcher dom.OpenerPort, cfg Config) *Service {
	if fetcher == nil {
		fetcher = dumps.NewHTTPFetcher(0, dumps.DefaultUserAgent)
	}
	s := &Service{Fetcher: fetcher, Cfg: cfg}
	s.CreateSink = func(path string) (dom.SinkPort, error) {
		w, err := parquet.Create(path, parquet.Options{Compression: cfg.Compression})
		if err != nil {
			return nil, err
		}
		return w, nil
	}
	return s
}

// StreamFromFile opens a local dump as a row stream
func (s *Service) StreamFromFile(ctx context.Context, path string, cfg filter.Config) (dom.RowIter, error) {
	f, err := filter.Compile(cfg)
	if err != nil {
		return nil, err
	}
	return s.openFile(path)(ctx, f)
}

// StreamFromURL opens a remote dump as a row stream; the body is read as the stream is pulled
func (s *Service) StreamFromURL(ctx context.Context, url string, cfg filter.Config) (dom.RowIter, error) {
	f, err := filter.Compile(cfg)
	if err != nil {
		return nil, err
	}
	return s.openURL(url)(ctx, f)
}

// WriteColumnarFromFile converts a local dump into a parquet file at outPath
func (s *Service) WriteColumnarFromFile(ctx context.Context, inPath, outPath string, batchSize int, cfg filter.Config) error {
	return s.writeColumnar(ctx, outPath, batchSize, cfg, s.openFile(inPath))
}

// WriteColumnarFromURL converts a remote dump into a parquet file at outPath
func (s *Service) WriteColumnarFromURL(ctx context.Context, url, outPath string, batchSize int, cfg filter.Config) error {
	return s.writeColumnar(ctx, outPath, batchSize, cfg, s.openURL(url))
}

// ExportFromFile drains a local dump into sink
func (s *Service) ExportFromFile(ctx context.Context, inPath string, sink dom.SinkPort, batchSize int, cfg filter.Config) (dom.Summary, error) {
	return s.export(ctx, sink, batchSize, cfg, s.openFile(inPath))
}

// ExportFromURL drains a remote dump into sink
func (s *Service) ExportFromURL(ctx context.Context, url string, sink dom.SinkPort, batchSize int, cfg filter.Config) (dom.Summary, error) {
	return s.export(ctx, sink, batchSize, cfg, s.openURL(url))
}

// opener opens the source behind a stream with an already compiled filter
type opener func(ctx context.Context, f *filter.Filter) (*RowStream, error)

func (s *Service) openFile(path string) opener {
	return func(ctx context.Context, f *filter.Filter) (*RowStream, error) {
		ctx = logger.WithSource(ctx, path)
		src, err := openFile(path)
		if err != nil {
			return nil, err
		}
		return s.newStream(ctx, src, f), nil
	}
}

func (s *Service) openURL(url string) opener {
	return func(ctx context.Context, f *filter.Filter) (*RowStream, error) {
		ctx = logger.WithSource(ctx, url)
		src, err := s.Fetcher.Open(ctx, url)
		if err != nil {
			return nil, perr.FromContext(err)
		}
		return s.newStream(ctx, src, f), nil
	}
}

func (s *Service) newStream(ctx context.Context, src io.ReadCloser, f *filter.Filter) *RowStream {
	logger.C(ctx).Debug().
		Bool("line_filter", f.HasLineFilter()).
		Bool("row_filter", f.HasRowFilter()).
		Msg("stream opened")
	return newRowStream(ctx, src, f, pageview.Parser{Unquote: s.Cfg.Unquote})
}

// prepare rejects bad arguments before any file is opened or request sent
func prepare(ctx context.Context, batchSize int, cfg filter.Config) (context.Context, *filter.Filter, error) {
	if batchSize <= 0 {
		return ctx, nil, perr.WithField(perr.InvalidArgf("batch size must be positive, got %d", batchSize), "batch_size")
	}
	f, err := filter.Compile(cfg)
	if err != nil {
		return ctx, nil, err
	}
	if logger.RunID(ctx) == "" {
		ctx, _ = logger.NewRun(ctx)
	}
	return ctx, f, nil
}

func (s *Service) writeColumnar(ctx context.Context, outPath string, batchSize int, cfg filter.Config, open opener) error {
	if outPath == "" {
		return perr.WithField(perr.InvalidArgf("empty output path"), "output_path")
	}
	ctx, f, err := prepare(ctx, batchSize, cfg)
	if err != nil {
		return err
	}
	rs, err := open(ctx, f)
	if err != nil {
		return err
	}
	sink, err := s.CreateSink(outPath)
	if err != nil {
		_ = rs.Close()
		return err
	}
	sum, err := run(rs, sink, batchSize)
	if err != nil {
		return err
	}
	logger.C(rs.ctx).Info().Str("output", outPath).Int64("rows", sum.Rows).Int("batches", sum.Batches).Msg("columnar file written")
	return nil
}

func (s *Service) export(ctx context.Context, sink dom.SinkPort, batchSize int, cfg filter.Config, open opener) (dom.Summary, error) {
	ctx, f, err := prepare(ctx, batchSize, cfg)
	if err != nil {
		sink.Abort()
		return dom.Summary{}, err
	}
	rs, err := open(ctx, f)
	if err != nil {
		sink.Abort()
		return dom.Summary{}, err
	}
	return run(rs, sink, batchSize)
}

func run(rs *RowStream, sink dom.SinkPort, batchSize int) (dom.Summary, error) {
	start := time.Now()
	sum, err := Export(rs.ctx, rs, sink, batchSize)
	log := logger.C(rs.ctx)
	if err != nil {
		logger.Problem(log.Error(), err).Int("lines", sum.Lines).Msg("export failed")
		return sum, err
	}
	log.Info().
		Int("lines", sum.Lines).
		Int64("bytes", sum.Bytes).
		Int64("rows", sum.Rows).
		Int64("filtered", sum.Filtered).
		Int64("skipped", sum.Skipped).
		Int("batches", sum.Batches).
		Dur("took", time.Since(start)).
		Msg("export finished")
	return sum, nil
}
