package amm

import (
	"errors"

	"liquidityFarm/internal/ledger"
)

var (
	// ErrAlreadyRegistered is returned when a token is registered twice.
	ErrAlreadyRegistered = errors.New("token already registered")
	// ErrInvalidToken is returned when a token reports zero total supply.
	ErrInvalidToken = errors.New("invalid token")
	// ErrIdenticalTokens is returned when both sides of a pair are the same token.
	ErrIdenticalTokens = errors.New("identical tokens")
	// ErrTokenNotRegistered is returned when a pair references an unregistered token.
	ErrTokenNotRegistered = errors.New("token not registered")
	// ErrPairAlreadyExists is returned when a canonical pair already has a pool.
	ErrPairAlreadyExists = errors.New("pair already exists")
	// ErrPairNotFound is returned when no pool exists for a pair.
	ErrPairNotFound = errors.New("pair not found")
	// ErrNonPositiveInput is returned for a zero swap input.
	ErrNonPositiveInput = errors.New("input amount must be positive")
	// ErrInsufficientOutput is returned when a swap would pay out nothing.
	ErrInsufficientOutput = errors.New("insufficient output amount")
	// ErrInsufficientLiquidity is returned when a quote needs a nonzero reserve, or a deposit mints no shares.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	// ErrRewardAccounting signals a broken reward invariant (debt above accrued reward).
	ErrRewardAccounting = errors.New("reward accounting error")
	// ErrArithmeticOverflow is returned instead of wrapping a 256-bit value.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
	// ErrReentrantCall is returned when an operation is entered from inside another one.
	ErrReentrantCall = errors.New("reentrant call")
	// ErrInvalidAmount is returned for amounts that cannot be parsed as unsigned 256-bit integers.
	ErrInvalidAmount = errors.New("invalid amount")

	// Transfer boundary failures, propagated unchanged.
	ErrInsufficientBalance   = ledger.ErrInsufficientBalance
	ErrInsufficientAllowance = ledger.ErrInsufficientAllowance
)
