package amm

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// ParseAmount parses a decimal or 0x-prefixed hex unsigned 256-bit amount.
// An empty string is zero.
func ParseAmount(input string) (*uint256.Int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return new(uint256.Int), nil
	}

	var value *big.Int
	if strings.HasPrefix(input, "0x") || strings.HasPrefix(input, "0X") {
		parsed, err := hexutil.DecodeBig(strings.ToLower(input))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidAmount, input, err)
		}
		value = parsed
	} else {
		parsed, ok := new(big.Int).SetString(input, 10)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, input)
		}
		value = parsed
	}

	if value.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative amount %s", ErrInvalidAmount, input)
	}
	amount, overflow := uint256.FromBig(value)
	if overflow {
		return nil, fmt.Errorf("%w: %s exceeds 256 bits", ErrInvalidAmount, input)
	}
	return amount, nil
}

// FormatAmount renders an amount in decimal. A nil amount is "0".
func FormatAmount(amount *uint256.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.ToBig().String()
}

func cloneAmount(amount *uint256.Int) *uint256.Int {
	if amount == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(amount)
}
