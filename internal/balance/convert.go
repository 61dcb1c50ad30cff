package balance

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// EtherDecimals is the smallest-denomination scale of the tracked asset.
const EtherDecimals = 18

// FromSmallestUnit converts an integer string in the smallest denomination
// (e.g. wei) into a display quantity. The integer part is carried through
// big.Int, so arbitrarily large balances survive without float truncation.
func FromSmallestUnit(raw string, decimals int32) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Decimal{}, fmt.Errorf("empty balance string")
	}

	units, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("parse balance %q: not a base-10 integer", raw)
	}
	if units.Sign() < 0 {
		return decimal.Decimal{}, fmt.Errorf("negative balance %q", raw)
	}

	return decimal.NewFromBigInt(units, -decimals), nil
}

// FromWei is FromSmallestUnit at the asset's native scale.
func FromWei(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Decimal{}
	}
	return decimal.NewFromBigInt(wei, -EtherDecimals)
}
