package pipeline

import "time"

// withTimeout runs fn and gives up after d. A zero d calls fn directly.
// On timeout fn keeps running on its own goroutine; the caller must not
// reuse anything fn touches.
func withTimeout[T any](d time.Duration, timeoutErr error, fn func() (T, error)) (T, error) {
	if d <= 0 {
		return fn()
	}

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.v, r.err
	case <-timer.C:
		var zero T
		return zero, timeoutErr
	}
}
