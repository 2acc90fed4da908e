package amm

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

type pulled struct {
	token   common.Address
	owner   common.Address
	custody common.Address
	amount  *uint256.Int
}

// settlement sequences the external transfers of one operation. Deposits
// are pulled first and payouts pushed last; if a push fails, every pull is
// refunded so the operation leaves no trace. A refund returns what custody
// actually received, which is less than the pulled amount for tokens that
// charge a transfer fee.
type settlement struct {
	e     *Engine
	pulls []pulled
}

func (e *Engine) newSettlement() *settlement {
	return &settlement{e: e}
}

func (s *settlement) pull(ctx context.Context, token, owner, custody common.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	before, err := s.e.tokens.BalanceOf(ctx, token, custody)
	if err != nil {
		s.rollback(ctx)
		return fmt.Errorf("custody balance %s: %w", token.Hex(), err)
	}
	if err := s.e.tokens.TransferFrom(ctx, token, s.e.cfg.Operator, owner, custody, amount); err != nil {
		s.rollback(ctx)
		return fmt.Errorf("pull %s from %s: %w", token.Hex(), owner.Hex(), err)
	}
	received := s.received(ctx, token, custody, before, amount)
	s.pulls = append(s.pulls, pulled{token: token, owner: owner, custody: custody, amount: received})
	return nil
}

// received is the custody balance gained by a pull, capped at the amount
// requested. When the balance cannot be read the requested amount is assumed.
func (s *settlement) received(ctx context.Context, token, custody common.Address, before, amount *uint256.Int) *uint256.Int {
	after, err := s.e.tokens.BalanceOf(ctx, token, custody)
	if err != nil {
		s.e.logger.Warn("custody balance unreadable after pull",
			zap.String("token", token.Hex()),
			zap.String("custody", custody.Hex()),
			zap.Error(err),
		)
		return cloneAmount(amount)
	}
	if after.Lt(before) {
		return new(uint256.Int)
	}
	delta := new(uint256.Int).Sub(after, before)
	if delta.Gt(amount) {
		return cloneAmount(amount)
	}
	return delta
}

func (s *settlement) push(ctx context.Context, token, from, to common.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	if err := s.e.tokens.Transfer(ctx, token, from, to, amount); err != nil {
		s.rollback(ctx)
		return fmt.Errorf("push %s to %s: %w", token.Hex(), to.Hex(), err)
	}
	return nil
}

// rollback refunds completed pulls, newest first.
func (s *settlement) rollback(ctx context.Context) {
	for i := len(s.pulls) - 1; i >= 0; i-- {
		p := s.pulls[i]
		if p.amount.IsZero() {
			continue
		}
		if err := s.e.tokens.Transfer(ctx, p.token, p.custody, p.owner, p.amount); err != nil {
			s.e.logger.Error("refund failed",
				zap.String("token", p.token.Hex()),
				zap.String("owner", p.owner.Hex()),
				zap.String("amount", FormatAmount(p.amount)),
				zap.Error(err),
			)
			continue
		}
		s.e.logger.Warn("deposit refunded",
			zap.String("token", p.token.Hex()),
			zap.String("owner", p.owner.Hex()),
			zap.String("amount", FormatAmount(p.amount)),
		)
	}
	s.pulls = nil
}

// checkDeposit fails early when owner cannot fund a pull of amount, so the
// common failures never reach the refund path.
func (e *Engine) checkDeposit(ctx context.Context, token, owner common.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	balance, err := e.tokens.BalanceOf(ctx, token, owner)
	if err != nil {
		return fmt.Errorf("balance %s of %s: %w", token.Hex(), owner.Hex(), err)
	}
	if balance.Lt(amount) {
		return fmt.Errorf("%w: %s holds %s of %s, needs %s", ErrInsufficientBalance, owner.Hex(), FormatAmount(balance), token.Hex(), FormatAmount(amount))
	}
	allowance, err := e.tokens.Allowance(ctx, token, owner, e.cfg.Operator)
	if err != nil {
		return fmt.Errorf("allowance %s of %s: %w", token.Hex(), owner.Hex(), err)
	}
	if allowance.Lt(amount) {
		return fmt.Errorf("%w: %s allows %s of %s, needs %s", ErrInsufficientAllowance, owner.Hex(), FormatAmount(allowance), token.Hex(), FormatAmount(amount))
	}
	return nil
}

// checkTreasury fails early when the treasury cannot cover a reward payout.
func (e *Engine) checkTreasury(ctx context.Context, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	balance, err := e.tokens.BalanceOf(ctx, e.cfg.RewardToken, e.cfg.Treasury)
	if err != nil {
		return fmt.Errorf("treasury balance: %w", err)
	}
	if balance.Lt(amount) {
		return fmt.Errorf("%w: treasury holds %s reward, owes %s", ErrInsufficientBalance, FormatAmount(balance), FormatAmount(amount))
	}
	return nil
}
