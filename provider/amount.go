package provider

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var maxMinorUnits = decimal.NewFromInt(math.MaxInt64)

// ToMinorUnits converts a major-unit amount (rupees) to minor units (paise).
// The conversion is exact: amounts with more than two decimal places, or
// that are not positive, are rejected with ErrInvalidAmount.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	if !amount.IsPositive() {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	}

	minor := amount.Shift(2)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, fmt.Errorf("%w: at most two decimal places are allowed", ErrInvalidAmount)
	}
	if minor.GreaterThan(maxMinorUnits) {
		return 0, fmt.Errorf("%w: too large", ErrInvalidAmount)
	}

	return minor.IntPart(), nil
}

// FromMinorUnits converts paise back to rupees
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// NewReceipt returns a per-call unique token usable as receipt, merchant
// transaction id or idempotency key: <prefix>_<unix millis>_<random>.
func NewReceipt(prefix string) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixMilli(), random)
}
