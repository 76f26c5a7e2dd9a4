package util

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

var errNotDone = errors.New("not done yet")

// PollUntil calls fetch every interval until isDone or isError reports true,
// at most maxAttempts times. Past the cap it returns ErrTimedOut. A fetch
// error is treated as terminal.
func PollUntil[T any](
	ctx context.Context,
	fetch func(ctx context.Context) (T, error),
	isDone func(T) bool,
	isError func(T) error,
	interval time.Duration,
	maxAttempts int,
) (T, error) {
	var (
		last T
		zero T
	)
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	b := retry.WithMaxRetries(uint64(maxAttempts-1), retry.NewConstant(interval))

	err := retry.Do(ctx, b, func(ctx context.Context) error {
		v, err := fetch(ctx)
		if err != nil {
			return err
		}
		last = v

		if isError != nil {
			if err := isError(v); err != nil {
				return err
			}
		}
		if isDone(v) {
			return nil
		}

		return retry.RetryableError(errNotDone)
	})
	if err != nil {
		if errors.Is(err, errNotDone) {
			return last, ErrTimedOut
		}
		return zero, err
	}

	return last, nil
}
