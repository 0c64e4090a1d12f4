// Package payment verifies payment references against the external provider.
//
// The provider is treated as an oracle: every order-creation attempt queries
// it fresh, and no verification result is ever cached across requests.
package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
)

// AmountTolerance is the maximum accepted difference, in minor currency
// units, between the provider's paid amount and the locally computed total.
// It absorbs rounding only; anything larger is treated as tampering.
const AmountTolerance = 5

var (
	// ErrNotSuccessful is returned when the provider reports the charge
	// did not complete.
	ErrNotSuccessful = errors.New("payment not successful")
	// ErrProviderUnreachable is returned when the provider cannot be
	// positively consulted (transport failure, timeout, 5xx, open
	// circuit breaker). Callers must fail closed.
	ErrProviderUnreachable = errors.New("payment provider unreachable")
)

// AmountMismatchError indicates the provider's paid amount differs from the
// expected total by more than AmountTolerance. This is the primary defense
// against client-side price tampering.
type AmountMismatchError struct {
	Reference string
	Expected  int64
	Paid      int64
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("payment %s amount mismatch: expected %d, paid %d", e.Reference, e.Expected, e.Paid)
}

// Verification is the provider's account of a completed charge.
type Verification struct {
	Reference string
	Amount    int64
	Channel   string
	PaidAt    *time.Time
}

// Verifier confirms that a payment reference corresponds to a successful
// charge of the expected amount in minor currency units.
type Verifier interface {
	Verify(ctx context.Context, reference string, expectedMinorUnits int64) (*Verification, error)
}
