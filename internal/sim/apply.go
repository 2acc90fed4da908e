package sim

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"liquidityFarm/internal/amm"
	"liquidityFarm/internal/model"
)

// Scenario ops.
const (
	OpRegister        = "register"
	OpMint            = "mint"
	OpApprove         = "approve"
	OpSetFee          = "set-fee"
	OpCreatePair      = "create-pair"
	OpAddLiquidity    = "add-liquidity"
	OpSwap            = "swap"
	OpQuote           = "quote"
	OpHarvest         = "harvest"
	OpAdvance         = "advance"
	OpPending         = "pending"
	OpLoyaltyMint     = "loyalty-mint"
	OpLoyaltyBurn     = "loyalty-burn"
	OpLoyaltyTransfer = "loyalty-transfer"
	OpLoyaltyLock     = "loyalty-lock"
)

func (r *Runner) apply(ctx context.Context, step model.Step) (map[string]string, error) {
	switch step.Op {
	case OpRegister:
		token, err := ParseAddress("token", step.Token)
		if err != nil {
			return nil, err
		}
		return nil, r.engine.RegisterToken(ctx, token)

	case OpMint:
		token, err := ParseAddress("token", step.Token)
		if err != nil {
			return nil, err
		}
		to, err := ParseAddress("to", firstNonEmpty(step.To, step.User))
		if err != nil {
			return nil, err
		}
		amount, err := parseAmount("amount", step.Amount)
		if err != nil {
			return nil, err
		}
		return nil, r.ledger.Mint(token, to, amount)

	case OpApprove:
		token, err := ParseAddress("token", step.Token)
		if err != nil {
			return nil, err
		}
		owner, err := ParseAddress("user", step.User)
		if err != nil {
			return nil, err
		}
		spender := r.cfg.Operator
		if step.Spender != "" {
			if spender, err = ParseAddress("spender", step.Spender); err != nil {
				return nil, err
			}
		}
		amount, err := parseAmount("amount", step.Amount)
		if err != nil {
			return nil, err
		}
		r.ledger.Approve(token, owner, spender, amount)
		return nil, nil

	case OpSetFee:
		token, err := ParseAddress("token", step.Token)
		if err != nil {
			return nil, err
		}
		return nil, r.ledger.SetTransferFee(token, step.FeeBps)

	case OpCreatePair:
		a, b, err := pairOf(step)
		if err != nil {
			return nil, err
		}
		key, err := r.engine.CreatePair(ctx, a, b)
		if err != nil {
			return nil, err
		}
		return map[string]string{"pair": key.String(), "custody": key.Custody().Hex()}, nil

	case OpAddLiquidity:
		a, b, err := pairOf(step)
		if err != nil {
			return nil, err
		}
		user, err := ParseAddress("user", step.User)
		if err != nil {
			return nil, err
		}
		amountA, err := parseAmount("amount_a", step.AmountA)
		if err != nil {
			return nil, err
		}
		amountB, err := parseAmount("amount_b", step.AmountB)
		if err != nil {
			return nil, err
		}
		res, err := r.engine.AddLiquidity(ctx, user, a, b, amountA, amountB)
		if err != nil {
			return nil, err
		}
		return map[string]string{
			"amount_a": amm.FormatAmount(res.AmountA),
			"amount_b": amm.FormatAmount(res.AmountB),
			"shares":   amm.FormatAmount(res.Shares),
			"reward":   amm.FormatAmount(res.Reward),
		}, nil

	case OpSwap, OpQuote:
		in, err := ParseAddress("token_in", step.TokenIn)
		if err != nil {
			return nil, err
		}
		out, err := ParseAddress("token_out", step.TokenOut)
		if err != nil {
			return nil, err
		}
		amount, err := parseAmount("amount", step.Amount)
		if err != nil {
			return nil, err
		}
		if step.Op == OpQuote {
			quoted, err := r.engine.QuoteSwap(ctx, amount, in, out)
			if err != nil {
				return nil, err
			}
			return map[string]string{"amount_out": amm.FormatAmount(quoted)}, nil
		}
		user, err := ParseAddress("user", step.User)
		if err != nil {
			return nil, err
		}
		got, err := r.engine.Swap(ctx, user, amount, in, out)
		if err != nil {
			return nil, err
		}
		return map[string]string{"amount_out": amm.FormatAmount(got)}, nil

	case OpHarvest, OpPending:
		a, b, err := pairOf(step)
		if err != nil {
			return nil, err
		}
		user, err := ParseAddress("user", step.User)
		if err != nil {
			return nil, err
		}
		if step.Op == OpPending {
			pending, err := r.engine.PendingReward(ctx, a, b, user)
			if err != nil {
				return nil, err
			}
			return map[string]string{"pending": amm.FormatAmount(pending)}, nil
		}
		paid, err := r.engine.Harvest(ctx, user, a, b)
		if err != nil {
			return nil, err
		}
		return map[string]string{"reward": amm.FormatAmount(paid)}, nil

	case OpAdvance:
		if step.Blocks == 0 {
			return nil, fmt.Errorf("blocks must be positive")
		}
		height := r.clock.Advance(step.Blocks)
		return map[string]string{"block": strconv.FormatUint(height, 10)}, nil

	case OpLoyaltyMint:
		to, err := ParseAddress("to", firstNonEmpty(step.To, step.User))
		if err != nil {
			return nil, err
		}
		id, err := r.loyalty.Mint(to)
		if err != nil {
			return nil, err
		}
		return map[string]string{"token_id": strconv.FormatUint(id, 10)}, nil

	case OpLoyaltyBurn:
		holder, err := ParseAddress("user", step.User)
		if err != nil {
			return nil, err
		}
		return nil, r.loyalty.Burn(holder, step.TokenID)

	case OpLoyaltyTransfer:
		from, err := ParseAddress("user", step.User)
		if err != nil {
			return nil, err
		}
		to, err := ParseAddress("to", step.To)
		if err != nil {
			return nil, err
		}
		return nil, r.loyalty.Transfer(from, to, step.TokenID)

	case OpLoyaltyLock:
		caller, err := ParseAddress("user", step.User)
		if err != nil {
			return nil, err
		}
		return nil, r.loyalty.SetTransferable(caller, step.Enabled)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownOp, step.Op)
}

func pairOf(step model.Step) (common.Address, common.Address, error) {
	a, err := ParseAddress("token_a", step.TokenA)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	b, err := ParseAddress("token_b", step.TokenB)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	return a, b, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
