package custody

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// weiPerEth is 10^18 as a decimal multiplier.
var weiPerEth = decimal.NewFromBigInt(big.NewInt(1), 18)

// EthToWei converts a human-denominated ETH amount (decimal string) into wei.
// Non-positive amounts and amounts with sub-wei precision are rejected.
func EthToWei(amount string) (*big.Int, error) {
	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if !dec.IsPositive() {
		return nil, fmt.Errorf("amount %q is not positive", amount)
	}

	scaled := dec.Mul(weiPerEth)
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("amount %q has sub-wei precision", amount)
	}

	wei := new(big.Int)
	if _, ok := wei.SetString(scaled.String(), 10); !ok {
		return nil, fmt.Errorf("convert amount %q to wei", amount)
	}
	return wei, nil
}

// WeiToEth converts a wei value into ETH as a decimal with 18 digits of
// precision.
func WeiToEth(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -18)
}
