package chain

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type callArgs struct {
	To    *common.Address `json:"to"`
	Data  hexutil.Bytes   `json:"data"`
	Input hexutil.Bytes   `json:"input"`
}

type fakeToken struct {
	supply   *big.Int
	decimals uint8
	symbol   string
	bytes32  bool
	balances map[common.Address]*big.Int
}

type fakeEth struct {
	mu          sync.Mutex
	blockNumber uint64
	failHead    int
	tokens      map[common.Address]*fakeToken
}

func (f *fakeEth) ChainId(context.Context) (*hexutil.Big, error) {
	return (*hexutil.Big)(big.NewInt(31337)), nil
}

func (f *fakeEth) BlockNumber(context.Context) (hexutil.Uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failHead > 0 {
		f.failHead--
		return 0, errors.New("upstream unavailable")
	}
	return hexutil.Uint64(f.blockNumber), nil
}

func (f *fakeEth) Call(_ context.Context, args callArgs, _ gethrpc.BlockNumberOrHash) (hexutil.Bytes, error) {
	if args.To == nil {
		return nil, errors.New("missing to")
	}
	token, ok := f.tokens[*args.To]
	if !ok {
		return hexutil.Bytes{}, nil
	}
	input := args.Input
	if len(input) == 0 {
		input = args.Data
	}
	if len(input) < 4 {
		return nil, errors.New("short input")
	}

	parsed, err := erc20Instance()
	if err != nil {
		return nil, err
	}
	method, err := parsed.MethodById(input[:4])
	if err != nil {
		return nil, err
	}

	switch method.Name {
	case "totalSupply":
		return method.Outputs.Pack(token.supply)
	case "decimals":
		return method.Outputs.Pack(token.decimals)
	case "balanceOf":
		args, err := method.Inputs.Unpack(input[4:])
		if err != nil {
			return nil, err
		}
		holder := args[0].(common.Address)
		bal, ok := token.balances[holder]
		if !ok {
			bal = new(big.Int)
		}
		return method.Outputs.Pack(bal)
	case "symbol", "name":
		value := token.symbol
		if method.Name == "name" {
			value = token.symbol + " Token"
		}
		if token.bytes32 {
			var out [32]byte
			copy(out[:], value)
			return out[:], nil
		}
		return method.Outputs.Pack(value)
	}
	return nil, errors.New("unsupported method")
}

func newTestClient(t *testing.T, fe *fakeEth, opts ...Option) *Client {
	t.Helper()
	srv := gethrpc.NewServer()
	if err := srv.RegisterName("eth", fe); err != nil {
		t.Fatalf("register rpc service: %v", err)
	}
	c := NewClientFromRPC(gethrpc.DialInProc(srv), opts...)
	t.Cleanup(func() {
		c.Close()
		srv.Stop()
	})
	return c
}

var (
	tokenAddr  = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	legacyAddr = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	holderAddr = common.HexToAddress("0x0000000000000000000000000000000000000abc")
)

func newFakeEth() *fakeEth {
	return &fakeEth{
		blockNumber: 1234,
		tokens: map[common.Address]*fakeToken{
			tokenAddr: {
				supply:   big.NewInt(1_000_000),
				decimals: 18,
				symbol:   "FARM",
				balances: map[common.Address]*big.Int{holderAddr: big.NewInt(250)},
			},
			legacyAddr: {
				supply:   big.NewInt(42),
				decimals: 6,
				symbol:   "OLD",
				bytes32:  true,
			},
		},
	}
}

func TestTotalSupplyAndBalance(t *testing.T) {
	c := newTestClient(t, newFakeEth())
	ctx := context.Background()

	supply, err := c.TotalSupply(ctx, tokenAddr)
	if err != nil {
		t.Fatalf("TotalSupply: %v", err)
	}
	if supply.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Fatalf("supply = %s, want 1000000", supply)
	}

	bal, err := c.BalanceOf(ctx, tokenAddr, holderAddr, nil)
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	if bal.Int64() != 250 {
		t.Fatalf("balance = %s, want 250", bal)
	}
}

func TestTotalSupplyNoContract(t *testing.T) {
	c := newTestClient(t, newFakeEth())
	if _, err := c.TotalSupply(context.Background(), holderAddr); err == nil {
		t.Fatalf("expected error for empty return data")
	}
}

func TestTokenInfo(t *testing.T) {
	fe := newFakeEth()
	c := newTestClient(t, fe)
	holder := holderAddr

	info, err := c.TokenInfo(context.Background(), tokenAddr, &holder)
	if err != nil {
		t.Fatalf("TokenInfo: %v", err)
	}
	if info.Symbol != "FARM" || info.Name != "FARM Token" || info.Decimals != 18 {
		t.Fatalf("unexpected metadata: %+v", info)
	}
	if info.TotalSupply != "1000000" || info.Balance != "250" || info.BlockNumber != 1234 {
		t.Fatalf("unexpected amounts: %+v", info)
	}
	if info.Holder != holderAddr.Hex() {
		t.Fatalf("holder = %s", info.Holder)
	}
}

func TestTokenInfoBytes32Metadata(t *testing.T) {
	c := newTestClient(t, newFakeEth())

	info, err := c.TokenInfo(context.Background(), legacyAddr, nil)
	if err != nil {
		t.Fatalf("TokenInfo: %v", err)
	}
	if info.Symbol != "OLD" || info.Decimals != 6 {
		t.Fatalf("unexpected metadata: %+v", info)
	}
	if info.Holder != "" || info.Balance != "" {
		t.Fatalf("expected no holder fields: %+v", info)
	}
}

func TestLatestBlockNumberRetries(t *testing.T) {
	fe := newFakeEth()
	fe.failHead = 2
	c := newTestClient(t, fe, WithRetry(2, time.Millisecond))

	head, err := c.BlockNumber(context.Background())
	if err != nil {
		t.Fatalf("BlockNumber: %v", err)
	}
	if head != 1234 {
		t.Fatalf("head = %d, want 1234", head)
	}

	fe.failHead = 3
	if _, err := c.LatestBlockNumber(context.Background()); err == nil {
		t.Fatalf("expected error after retries are exhausted")
	}
}

func TestGetChainID(t *testing.T) {
	c := newTestClient(t, newFakeEth())
	id, err := c.GetChainID(context.Background())
	if err != nil {
		t.Fatalf("GetChainID: %v", err)
	}
	if id.Int64() != 31337 {
		t.Fatalf("chain id = %s", id)
	}
}

func TestWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := withRetry(ctx, nil, "eth_blockNumber", 5, time.Hour, func(context.Context) error {
		calls++
		cancel()
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestWithRetryDoesNotRetryContextErrors(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), nil, "eth_call", 5, time.Millisecond, func(context.Context) error {
		calls++
		return context.DeadlineExceeded
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestWithRetryLogsEachRetry(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	calls := 0
	err := withRetry(context.Background(), zap.New(core), "eth_chainId", 2, time.Millisecond, func(context.Context) error {
		calls++
		return errors.New("unavailable")
	})
	if err == nil {
		t.Fatalf("expected error after retries are exhausted")
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	entries := logs.FilterMessage("rpc call failed, retrying").All()
	if len(entries) != 2 {
		t.Fatalf("retry warnings = %d, want 2", len(entries))
	}
	if got := entries[1].ContextMap()["attempt"]; got != int64(2) {
		t.Fatalf("second warning attempt = %v, want 2", got)
	}
	if got := entries[0].ContextMap()["method"]; got != "eth_chainId" {
		t.Fatalf("warning method = %v", got)
	}
}
