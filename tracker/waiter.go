package tracker

import (
	"context"
	"time"
)

// ErrWaitExhausted is returned when the retry budget runs out before the
// order reaches the wanted status.
type waitError string

func (e waitError) Error() string { return string(e) }

const ErrWaitExhausted = waitError("order did not reach expected status in time")

// AwaitStatus polls with a small bounded retry budget until the order
// reaches one of the wanted statuses, for the page that lands right after
// checkout and has to wait on the webhook. It gives up after attempts tries
// rather than blocking indefinitely.
func AwaitStatus(ctx context.Context, fetch FetchFunc, orderID uint, attempts int, delay time.Duration, wanted ...string) (OrderSnapshot, error) {
	want := make(map[string]bool, len(wanted))
	for _, s := range wanted {
		want[s] = true
	}

	for i := 0; i < attempts; i++ {
		snaps, err := fetch(ctx)
		if err == nil {
			for _, snap := range snaps {
				if snap.OrderID == orderID && want[snap.Status] {
					return snap, nil
				}
			}
		}

		select {
		case <-ctx.Done():
			return OrderSnapshot{}, ctx.Err()
		case <-time.After(delay):
		}
	}
	return OrderSnapshot{}, ErrWaitExhausted
}
