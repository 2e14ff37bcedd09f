package service

import (
	"context"
	"io"
	"iter"

	"pageviews/internal/adapters/ingest/dumps"
	"pageviews/internal/core/filter"
	"pageviews/internal/core/pageview"
	perr "pageviews/internal/platform/errors"
	"pageviews/internal/platform/logger"
	dom "pageviews/internal/services/pageviews/domain"
)

// Stats counts what a RowStream has seen so far
type Stats struct {
	Lines    int
	Bytes    int64
	Rows     int64
	Filtered int64
	Errors   int64
}

// RowStream pulls decoded, filtered rows out of one dump
// Per-row errors are returned inline and the stream keeps going
// A fatal error is returned once; after it, and after the end, Next returns io.EOF
// Not safe for concurrent use
type RowStream struct {
	ctx    context.Context
	lines  *dumps.LineReader
	filter *filter.Filter
	parser pageview.Parser
	stats  Stats
	done   bool
	closed bool
	failed error
}

var _ dom.RowIter = (*RowStream)(nil)

func newRowStream(ctx context.Context, src io.ReadCloser, f *filter.Filter, p pageview.Parser) *RowStream {
	return &RowStream{
		ctx:    ctx,
		lines:  dumps.NewLineReader(src),
		filter: f,
		parser: p,
	}
}

// Next returns the next accepted row, a per-row error, a fatal error, or io.EOF
func (s *RowStream) Next() (pageview.Row, error) {
	if s.done {
		return pageview.Row{}, io.EOF
	}
	for {
		if err := perr.CheckContext(s.ctx); err != nil {
			return s.fail(err)
		}
		ln, err := s.lines.Next()
		if err == io.EOF {
			s.finish()
			return pageview.Row{}, io.EOF
		}
		if err != nil {
			if perr.IsFatal(err) {
				return s.fail(perr.FromContext(err))
			}
			s.stats.Errors++
			return pageview.Row{}, err
		}

		if !s.filter.AcceptLine(ln.Text) {
			s.stats.Filtered++
			continue
		}
		row, err := s.parser.Parse(ln.Num, ln.Text)
		if err != nil {
			s.stats.Errors++
			return pageview.Row{}, err
		}
		if !s.filter.Accept(row) {
			s.stats.Filtered++
			continue
		}
		s.stats.Rows++
		return row, nil
	}
}

// All returns a range-over-func view of the remaining rows
// The stream is closed when the loop ends, including on break
func (s *RowStream) All() iter.Seq2[pageview.Row, error] {
	return func(yield func(pageview.Row, error) bool) {
		defer s.Close()
		for {
			row, err := s.Next()
			if err == io.EOF {
				return
			}
			if !yield(row, err) {
				return
			}
		}
	}
}

// Close releases the source; safe to call more than once
func (s *RowStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.done = true
	s.stats.Lines, s.stats.Bytes = s.lines.Stats()
	err := s.lines.Close()

	ev := logger.C(s.ctx).Debug()
	if s.failed != nil {
		ev = logger.Problem(logger.C(s.ctx).Warn(), s.failed)
	}
	ev.Int("lines", s.stats.Lines).
		Int64("bytes", s.stats.Bytes).
		Int64("rows", s.stats.Rows).
		Int64("filtered", s.stats.Filtered).
		Int64("errors", s.stats.Errors).
		Msg("row stream closed")
	return err
}

// Stats returns the counters so far
func (s *RowStream) Stats() Stats {
	st := s.stats
	if !s.closed {
		st.Lines, st.Bytes = s.lines.Stats()
	}
	return st
}

// Err returns the fatal error that ended the stream, if any
func (s *RowStream) Err() error { return s.failed }

func (s *RowStream) fail(err error) (pageview.Row, error) {
	s.failed = err
	_ = s.Close()
	return pageview.Row{}, err
}

func (s *RowStream) finish() { _ = s.Close() }
