package clickhouse

import (
	"context"
	"fmt"

	"pageviews/internal/core/pageview"
	perr "pageviews/internal/platform/errors"
	pstrings "pageviews/internal/platform/strings"
)

// Sink appends each batch with one INSERT
// Batches already sent stay in the table when a later one fails
type Sink struct {
	conn    Conn
	table   string
	insert  string
	rows    int64
	batches int
	done    bool
}

// NewSink wraps an open connection; the sink closes it
func NewSink(conn Conn, table string) *Sink {
	return &Sink{
		conn:   conn,
		table:  table,
		insert: fmt.Sprintf("INSERT INTO %s (domain_code, page_title, views, language, domain, mobile)", table),
	}
}

// WriteBatch sends rows as one insert block
func (s *Sink) WriteBatch(ctx context.Context, rows []pageview.Row) error {
	if s.done {
		return perr.New(perr.ErrorCodeWrite, "clickhouse: write after close")
	}
	if len(rows) == 0 {
		return nil
	}
	b, err := s.conn.PrepareBatch(ctx, s.insert)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeWrite, "clickhouse: prepare batch %d", s.batches)
	}
	for i := range rows {
		r := &rows[i]
		if err := b.Append(r.DomainCode, r.PageTitle, r.Views, r.Language, pstrings.Ptr(r.Domain), r.Mobile); err != nil {
			_ = b.Abort()
			return perr.Wrapf(err, perr.ErrorCodeWrite, "clickhouse: append row %d of batch %d", i, s.batches)
		}
	}
	if err := b.Send(); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeWrite, "clickhouse: send batch %d", s.batches)
	}
	s.rows += int64(len(rows))
	s.batches++
	return nil
}

// Close releases the connection
func (s *Sink) Close(context.Context) error {
	if s.done {
		return nil
	}
	s.done = true
	if err := s.conn.Close(); err != nil {
		return perr.Wrap(err, perr.ErrorCodeWrite, "clickhouse: close")
	}
	return nil
}

// Abort releases the connection without reporting errors
func (s *Sink) Abort() {
	if s.done {
		return
	}
	s.done = true
	_ = s.conn.Close()
}

// Stats returns rows and batches sent so far
func (s *Sink) Stats() (rows int64, batches int) { return s.rows, s.batches }

// Table returns the target table
func (s *Sink) Table() string { return s.table }
