package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liquidityFarm/internal/model"
)

func TestObserverCountsEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	o, err := NewObserver(reg)
	require.NoError(t, err)

	ctx := context.Background()
	o.Notify(ctx, model.Event{
		Name: model.EventSwap,
		Pair: "0xpair",
		Data: model.SwapEventData{TokenIn: "0xa", TokenOut: "0xb", AmountIn: "100", AmountOut: "90"},
	})
	o.Notify(ctx, model.Event{
		Name: model.EventLiquidityAdded,
		Pair: "0xpair",
		Data: model.LiquidityAddedData{Shares: "1000"},
	})
	o.Notify(ctx, model.Event{Name: model.EventRewardPaid, Data: model.RewardPaidData{Amount: "5000"}})
	o.Notify(ctx, model.Event{Name: model.EventRewardPaid, Data: model.RewardPaidData{Amount: "junk"}})

	assert.Equal(t, 1.0, testutil.ToFloat64(o.events.WithLabelValues(model.EventSwap)))
	assert.Equal(t, 2.0, testutil.ToFloat64(o.events.WithLabelValues(model.EventRewardPaid)))
	assert.Equal(t, 100.0, testutil.ToFloat64(o.swapIn.WithLabelValues("0xpair", "0xa")))
	assert.Equal(t, 90.0, testutil.ToFloat64(o.swapOut.WithLabelValues("0xpair", "0xb")))
	assert.Equal(t, 1000.0, testutil.ToFloat64(o.sharesMinted.WithLabelValues("0xpair")))
	assert.Equal(t, 5000.0, testutil.ToFloat64(o.rewardPaid))
}

func TestObserveStep(t *testing.T) {
	reg := prometheus.NewRegistry()
	o, err := NewObserver(reg)
	require.NoError(t, err)

	o.ObserveStep(model.StepResult{Op: "swap", Block: 12, OK: true})
	o.ObserveStep(model.StepResult{Op: "swap", Block: 13, OK: false, Error: "boom"})

	assert.Equal(t, 1.0, testutil.ToFloat64(o.steps.WithLabelValues("swap", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.steps.WithLabelValues("swap", "error")))
	assert.Equal(t, 13.0, testutil.ToFloat64(o.block))
}

func TestNewObserverRejectsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewObserver(reg)
	require.NoError(t, err)
	_, err = NewObserver(reg)
	require.Error(t, err)
}

func TestNilServerIsNoop(t *testing.T) {
	s := NewServer("", prometheus.NewRegistry(), nil)
	assert.Nil(t, s)
	s.Start()
	assert.NoError(t, s.Stop(context.Background()))
}
