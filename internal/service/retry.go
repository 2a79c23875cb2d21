package service

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/pkordes/shuttle-fleet/internal/domain"
)

// Conflicts are resolved by re-reading and re-applying. A handful of quick
// attempts is enough: the racing writer has already committed by the time we
// see its unique-key violation.
const (
	conflictRetries = 4
	conflictBackoff = 10 * time.Millisecond
)

// retryOnConflict runs fn until it returns something other than
// domain.ErrConflict or the attempts run out. onRetry, if non-nil, is called
// before every retry. The final error is returned unwrapped so callers can
// still match it with errors.Is.
func retryOnConflict(ctx context.Context, onRetry func(), fn func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(conflictRetries, retry.NewConstant(conflictBackoff))
	attempt := 0
	return retry.Do(ctx, b, func(ctx context.Context) error {
		if attempt > 0 && onRetry != nil {
			onRetry()
		}
		attempt++
		err := fn(ctx)
		if errors.Is(err, domain.ErrConflict) {
			return retry.RetryableError(err)
		}
		return err
	})
}
