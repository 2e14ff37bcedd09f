package service

import (
	"context"
	"io"

	"pageviews/internal/core/pageview"
	perr "pageviews/internal/platform/errors"
	"pageviews/internal/platform/logger"
	dom "pageviews/internal/services/pageviews/domain"
)

// Export drains rs into sink in batches of batchSize rows
// Per-row errors drop the row. A fatal stream error or any sink failure aborts
// the sink and is returned; otherwise the sink is closed exactly once
func Export(ctx context.Context, rs *RowStream, sink dom.SinkPort, batchSize int) (dom.Summary, error) {
	defer rs.Close()

	var sum dom.Summary
	if batchSize <= 0 {
		sink.Abort()
		return sum, perr.WithField(perr.InvalidArgf("batch size must be positive, got %d", batchSize), "batch_size")
	}

	buf := make([]pageview.Row, 0, min(batchSize, 1<<16))
	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		if err := sink.WriteBatch(ctx, buf); err != nil {
			return asWrite(err, "flush batch")
		}
		sum.Batches++
		sum.Rows += int64(len(buf))
		buf = buf[:0]
		return nil
	}

	log := logger.C(ctx)
	for {
		row, err := rs.Next()
		if err == io.EOF {
			if rerr := rs.Err(); rerr != nil {
				sink.Abort()
				return fill(sum, rs), rerr
			}
			break
		}
		if err != nil {
			if perr.IsFatal(err) {
				sink.Abort()
				return fill(sum, rs), err
			}
			logger.Problem(log.Debug(), err).Msg("row skipped")
			continue
		}
		buf = append(buf, row)
		if len(buf) == batchSize {
			if err := flush(); err != nil {
				sink.Abort()
				return fill(sum, rs), err
			}
		}
	}

	if err := flush(); err != nil {
		sink.Abort()
		return fill(sum, rs), err
	}
	if err := sink.Close(ctx); err != nil {
		sink.Abort()
		return fill(sum, rs), asWrite(err, "finalize")
	}
	return fill(sum, rs), nil
}

func fill(sum dom.Summary, rs *RowStream) dom.Summary {
	st := rs.Stats()
	sum.Lines = st.Lines
	sum.Bytes = st.Bytes
	sum.Filtered = st.Filtered
	sum.Skipped = st.Errors
	return sum
}

// asWrite makes sure a sink failure is reported as a fatal write error
func asWrite(err error, msg string) error {
	if perr.IsCode(err, perr.ErrorCodeWrite) {
		return err
	}
	return perr.Wrap(err, perr.ErrorCodeWrite, msg)
}
