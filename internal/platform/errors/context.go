package errors

// Helpers for mapping context and cancellation failures to project ErrorCode

import (
	"context"
	stderrs "errors"
)

// FromContext maps context.Canceled and context.DeadlineExceeded to ErrorCodeCanceled
// Any other error is returned unchanged
func FromContext(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	if stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return Wrap(err, ErrorCodeCanceled, "pipeline canceled")
	}
	return err
}

// CheckContext returns a canceled error when ctx is done, nil otherwise
func CheckContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return Wrap(err, ErrorCodeCanceled, "pipeline canceled")
	}
	return nil
}
