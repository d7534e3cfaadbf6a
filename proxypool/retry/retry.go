package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"net/url"
	"syscall"

	"freeproxy_pool/internal/shared/logger"
)

// Operation 是一次可能失败的网络调用。
type Operation[T any] func(ctx context.Context) (T, error)

// Recorder is notified of every retry. *metrics.Collector satisfies it.
type Recorder interface {
	RecordRetry(operation string)
}

type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient marks err as retryable, e.g. an HTTP 503 from a listing source.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err belongs to the transient class: connection
// errors and timeouts. Caller cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var te *transientError
	if errors.As(err, &te) {
		return true
	}
	// *url.Error satisfies net.Error for every failure, so judge its cause.
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Timeout() || IsTransient(urlErr.Err)
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// WithRetry wraps op so that transient failures are re-invoked up to
// maxExtraAttempts more times. The last error is returned unchanged.
// target is used for logging only.
func WithRetry[T any](op Operation[T], maxExtraAttempts int, target string) Operation[T] {
	return WithRetryRecorded(op, maxExtraAttempts, target, "", nil)
}

// WithRetryRecorded is WithRetry that also reports each retry under the given
// operation label.
func WithRetryRecorded[T any](op Operation[T], maxExtraAttempts int, target, operation string, rec Recorder) Operation[T] {
	if maxExtraAttempts < 0 {
		maxExtraAttempts = 0
	}
	return func(ctx context.Context) (T, error) {
		l := logger.WithComponent("ProxyPool/Retry")
		attempts := 0
		for {
			result, err := op(ctx)
			if err == nil {
				return result, nil
			}
			if !IsTransient(err) || ctx.Err() != nil {
				return result, err
			}
			attempts++
			if attempts > maxExtraAttempts {
				return result, err
			}
			l.Info().Str("target", target).Int("attempt", attempts).Err(err).Msg("Request failed, retrying...")
			if rec != nil {
				rec.RecordRetry(operation)
			}
		}
	}
}
