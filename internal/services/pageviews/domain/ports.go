package domain

import (
	"context"
	"io"
	"iter"

	"pageviews/internal/core/filter"
	"pageviews/internal/core/pageview"
)

// OpenerPort opens a compressed dump by URL
type OpenerPort interface {
	Open(ctx context.Context, url string) (io.ReadCloser, error)
}

// SinkPort receives row batches in production order
// rows is only valid for the duration of WriteBatch
// Close finalizes exactly once; Abort drops whatever the sink can still drop
type SinkPort interface {
	WriteBatch(ctx context.Context, rows []pageview.Row) error
	Close(ctx context.Context) error
	Abort()
}

// RowIter is a pull sequence of rows; io.EOF marks the end
// All ranges over the remaining rows and closes the iterator on every exit path
type RowIter interface {
	Next() (pageview.Row, error)
	All() iter.Seq2[pageview.Row, error]
	Close() error
}

// RunnerPort is the external surface of the pageviews service
type RunnerPort interface {
	StreamFromFile(ctx context.Context, path string, cfg filter.Config) (RowIter, error)
	StreamFromURL(ctx context.Context, url string, cfg filter.Config) (RowIter, error)
	WriteColumnarFromFile(ctx context.Context, inPath, outPath string, batchSize int, cfg filter.Config) error
	WriteColumnarFromURL(ctx context.Context, url, outPath string, batchSize int, cfg filter.Config) error
	ExportFromFile(ctx context.Context, inPath string, sink SinkPort, batchSize int, cfg filter.Config) (Summary, error)
	ExportFromURL(ctx context.Context, url string, sink SinkPort, batchSize int, cfg filter.Config) (Summary, error)
}
