package chain

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidityFarm/internal/model"
)

const erc20ABIJSON = `[
  {"inputs": [], "name": "totalSupply", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "account", "type": "address"}], "name": "balanceOf", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"}
]`

// Some older tokens return bytes32 for symbol and name.
const erc20Bytes32ABIJSON = `[
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

var (
	erc20ABI        abi.ABI
	erc20ABIOnce    sync.Once
	erc20ABIErr     error
	erc20Bytes32ABI abi.ABI
	erc20B32Once    sync.Once
	erc20B32Err     error
)

func erc20Instance() (abi.ABI, error) {
	erc20ABIOnce.Do(func() {
		erc20ABI, erc20ABIErr = abi.JSON(strings.NewReader(erc20ABIJSON))
	})
	return erc20ABI, erc20ABIErr
}

func erc20Bytes32Instance() (abi.ABI, error) {
	erc20B32Once.Do(func() {
		erc20Bytes32ABI, erc20B32Err = abi.JSON(strings.NewReader(erc20Bytes32ABIJSON))
	})
	return erc20Bytes32ABI, erc20B32Err
}

func (c *Client) callERC20(ctx context.Context, parsed abi.ABI, token common.Address, block *big.Int, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	resp, err := c.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, block)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%s return size %d", method, len(values))
	}
	return values, nil
}

// TotalSupply returns the token's totalSupply at the latest block.
func (c *Client) TotalSupply(ctx context.Context, token common.Address) (*big.Int, error) {
	parsed, err := erc20Instance()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	values, err := c.callERC20(ctx, parsed, token, nil, "totalSupply")
	if err != nil {
		return nil, err
	}
	supply, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("totalSupply unexpected type %T", values[0])
	}
	return supply, nil
}

// BalanceOf returns holder's balance of token. A nil block reads the latest state.
func (c *Client) BalanceOf(ctx context.Context, token, holder common.Address, block *big.Int) (*big.Int, error) {
	parsed, err := erc20Instance()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	values, err := c.callERC20(ctx, parsed, token, block, "balanceOf", holder)
	if err != nil {
		return nil, err
	}
	bal, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf unexpected type %T", values[0])
	}
	return bal, nil
}

// TokenInfo loads metadata and supply of token at the current head. When
// holder is non-nil its balance is included. Missing symbol or name is
// logged and left empty.
func (c *Client) TokenInfo(ctx context.Context, token common.Address, holder *common.Address) (model.TokenInfo, error) {
	info := model.TokenInfo{Address: token.Hex()}

	head, err := c.LatestBlockNumber(ctx)
	if err != nil {
		return info, fmt.Errorf("latest block: %w", err)
	}
	info.BlockNumber = head
	block := new(big.Int).SetUint64(head)

	parsed, err := erc20Instance()
	if err != nil {
		return info, fmt.Errorf("parse erc20 abi: %w", err)
	}

	supply, err := c.TotalSupply(ctx, token)
	if err != nil {
		return info, err
	}
	info.TotalSupply = supply.String()

	values, err := c.callERC20(ctx, parsed, token, block, "decimals")
	if err != nil {
		return info, err
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return info, fmt.Errorf("decimals unexpected type %T", values[0])
	}
	info.Decimals = decimals

	info.Symbol = c.textField(ctx, token, block, "symbol")
	info.Name = c.textField(ctx, token, block, "name")

	if holder != nil {
		bal, err := c.BalanceOf(ctx, token, *holder, block)
		if err != nil {
			return info, err
		}
		info.Holder = holder.Hex()
		info.Balance = bal.String()
	}
	return info, nil
}

func (c *Client) textField(ctx context.Context, token common.Address, block *big.Int, method string) string {
	parsed, err := erc20Instance()
	if err == nil {
		if values, err := c.callERC20(ctx, parsed, token, block, method); err == nil {
			if s, ok := values[0].(string); ok {
				return s
			}
		}
	}
	b32, err := erc20Bytes32Instance()
	if err != nil {
		return ""
	}
	values, err := c.callERC20(ctx, b32, token, block, method)
	if err != nil {
		c.logger.Debug("erc20 metadata call failed", zap.String("token", token.Hex()), zap.String("method", method), zap.Error(err))
		return ""
	}
	if v, ok := values[0].([32]byte); ok {
		return string(bytes.TrimRight(v[:], "\x00"))
	}
	return ""
}
