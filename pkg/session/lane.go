package session

import "context"

// lane serializes the mutating operations of one session. Blocked callers
// are admitted in arrival order.
type lane chan struct{}

func newLane() lane { return make(lane, 1) }

// acquire waits for the lane or ctx.
func (l lane) acquire(ctx context.Context) error {
	select {
	case l <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// tryAcquire takes the lane only if it is free.
func (l lane) tryAcquire() bool {
	select {
	case l <- struct{}{}:
		return true
	default:
		return false
	}
}

func (l lane) release() { <-l }
