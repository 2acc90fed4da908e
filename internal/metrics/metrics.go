// Package metrics exports engine activity to Prometheus.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"liquidityFarm/internal/model"
)

const namespace = "ammd"

// Observer counts engine notifications and simulator steps. It implements
// amm.Notifier.
type Observer struct {
	events       *prometheus.CounterVec
	swapIn       *prometheus.CounterVec
	swapOut      *prometheus.CounterVec
	sharesMinted *prometheus.CounterVec
	rewardPaid   prometheus.Counter
	steps        *prometheus.CounterVec
	block        prometheus.Gauge
}

// NewObserver builds an Observer and registers its collectors on reg.
func NewObserver(reg prometheus.Registerer) (*Observer, error) {
	o := &Observer{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Engine notifications by event name.",
		}, []string{"event"}),
		swapIn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "amount_in_total",
			Help:      "Swap input volume in base units.",
		}, []string{"pair", "token"}),
		swapOut: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "amount_out_total",
			Help:      "Swap output volume in base units.",
		}, []string{"pair", "token"}),
		sharesMinted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "liquidity",
			Name:      "shares_minted_total",
			Help:      "Liquidity shares minted per pair.",
		}, []string{"pair"}),
		rewardPaid: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reward",
			Name:      "paid_total",
			Help:      "Reward paid out in base units.",
		}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sim",
			Name:      "steps_total",
			Help:      "Scenario steps applied, by op and status.",
		}, []string{"op", "status"}),
		block: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sim",
			Name:      "block",
			Help:      "Current simulated block height.",
		}),
	}

	for _, c := range []prometheus.Collector{o.events, o.swapIn, o.swapOut, o.sharesMinted, o.rewardPaid, o.steps, o.block} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Notify records one engine event.
func (o *Observer) Notify(_ context.Context, event model.Event) {
	o.events.WithLabelValues(event.Name).Inc()

	switch data := event.Data.(type) {
	case model.SwapEventData:
		o.swapIn.WithLabelValues(event.Pair, data.TokenIn).Add(amount(data.AmountIn))
		o.swapOut.WithLabelValues(event.Pair, data.TokenOut).Add(amount(data.AmountOut))
	case model.LiquidityAddedData:
		o.sharesMinted.WithLabelValues(event.Pair).Add(amount(data.Shares))
	case model.RewardPaidData:
		o.rewardPaid.Add(amount(data.Amount))
	}
}

// ObserveStep records the outcome of a scenario step.
func (o *Observer) ObserveStep(result model.StepResult) {
	status := "ok"
	if !result.OK {
		status = "error"
	}
	o.steps.WithLabelValues(result.Op, status).Inc()
	o.block.Set(float64(result.Block))
}

// amount converts a decimal amount to a float sample. Precision loss above
// 2^53 is acceptable for counters.
func amount(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// Server exposes a Prometheus registry over HTTP.
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

// NewServer builds a metrics server on addr. An empty addr disables it and
// returns nil; the nil Server's methods are no-ops.
func NewServer(addr string, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if addr == "" {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start serves in the background.
func (s *Server) Start() {
	if s == nil {
		return
	}
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	s.logger.Info("metrics server listening", zap.String("addr", s.srv.Addr))
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
