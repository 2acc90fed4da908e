package amm

import (
	"fmt"

	"github.com/holiman/uint256"
)

// fee: 0.3% taken from the input => multiplier 997/1000
var (
	feeMul = uint256.NewInt(997)
	feeDen = uint256.NewInt(1000)

	// rewardScale is the fixed-point scale of accRewardPerShare.
	rewardScale = uint256.NewInt(1_000_000_000_000)
)

func checkedMul(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, fmt.Errorf("%w: %s * %s", ErrArithmeticOverflow, FormatAmount(x), FormatAmount(y))
	}
	return z, nil
}

func checkedAdd(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, fmt.Errorf("%w: %s + %s", ErrArithmeticOverflow, FormatAmount(x), FormatAmount(y))
	}
	return z, nil
}

// mulDiv computes floor(x * y / d). d must be nonzero.
func mulDiv(x, y, d *uint256.Int) (*uint256.Int, error) {
	product, err := checkedMul(x, y)
	if err != nil {
		return nil, err
	}
	return product.Div(product, d), nil
}

// GetAmountOut returns the constant-product output for amountIn:
//
//	amountOut = amountIn*997*reserveOut / (reserveIn*1000 + amountIn*997)
func GetAmountOut(amountIn, reserveIn, reserveOut *uint256.Int) (*uint256.Int, error) {
	if amountIn == nil || amountIn.IsZero() {
		return nil, ErrNonPositiveInput
	}
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, fmt.Errorf("%w: empty reserves", ErrInsufficientLiquidity)
	}

	amountInWithFee, err := checkedMul(amountIn, feeMul)
	if err != nil {
		return nil, err
	}
	numerator, err := checkedMul(amountInWithFee, reserveOut)
	if err != nil {
		return nil, err
	}
	denominator, err := checkedMul(reserveIn, feeDen)
	if err != nil {
		return nil, err
	}
	denominator, err = checkedAdd(denominator, amountInWithFee)
	if err != nil {
		return nil, err
	}

	amountOut := numerator.Div(numerator, denominator)
	if amountOut.IsZero() {
		return nil, ErrInsufficientOutput
	}
	return amountOut, nil
}

// Quote returns the amount of the other token that keeps reserves proportional:
// amountA * reserveB / reserveA, floored.
func Quote(amountA, reserveA, reserveB *uint256.Int) (*uint256.Int, error) {
	if reserveA.IsZero() || reserveB.IsZero() {
		return nil, fmt.Errorf("%w: cannot quote against empty reserves", ErrInsufficientLiquidity)
	}
	return mulDiv(amountA, reserveB, reserveA)
}

// OptimalAmounts picks the deposit that fits inside both desired bounds while
// matching the current reserve ratio.
func OptimalAmounts(desiredA, desiredB, reserveA, reserveB *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	amountBOptimal, err := Quote(desiredA, reserveA, reserveB)
	if err != nil {
		return nil, nil, err
	}
	if !amountBOptimal.Gt(desiredB) {
		return new(uint256.Int).Set(desiredA), amountBOptimal, nil
	}
	amountAOptimal, err := Quote(desiredB, reserveB, reserveA)
	if err != nil {
		return nil, nil, err
	}
	return amountAOptimal, new(uint256.Int).Set(desiredB), nil
}

// MintedShares returns the liquidity shares minted for a deposit. An empty
// pool mints the geometric mean of the amounts; otherwise the smaller of the
// two proportional claims is minted.
func MintedShares(amountA, amountB, reserveA, reserveB, totalShares *uint256.Int) (*uint256.Int, error) {
	if totalShares.IsZero() {
		product, err := checkedMul(amountA, amountB)
		if err != nil {
			return nil, err
		}
		return product.Sqrt(product), nil
	}
	if reserveA.IsZero() || reserveB.IsZero() {
		return nil, fmt.Errorf("%w: pool has shares but empty reserves", ErrInsufficientLiquidity)
	}

	sharesA, err := mulDiv(amountA, totalShares, reserveA)
	if err != nil {
		return nil, err
	}
	sharesB, err := mulDiv(amountB, totalShares, reserveB)
	if err != nil {
		return nil, err
	}
	if sharesA.Lt(sharesB) {
		return sharesA, nil
	}
	return sharesB, nil
}
