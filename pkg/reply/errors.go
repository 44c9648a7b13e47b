package reply

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for the reply package.
var (
	// ErrGenerationUnavailable indicates the text-generation service failed or was unreachable.
	ErrGenerationUnavailable = errors.New("reply: generation unavailable")

	// ErrGenerationTimeout indicates the text-generation service exceeded its deadline.
	ErrGenerationTimeout = errors.New("reply: generation timed out")

	// ErrNoProvider indicates a generator without a text-generation provider.
	ErrNoProvider = errors.New("reply: provider is required")

	// ErrEmptyUtterance indicates there is nothing to reply to.
	ErrEmptyUtterance = errors.New("reply: utterance is empty")
)

type timeout interface{ Timeout() bool }

// classify maps a provider failure onto the generation error kinds. The
// original error stays in the chain.
func classify(ctx context.Context, err error) error {
	var te timeout
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &te) && te.Timeout()) {
		return fmt.Errorf("%w: %w", ErrGenerationTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrGenerationUnavailable, err)
}
