package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/0xKurt/FlexStake/core/events"
)

// StakingMetrics exposes the prometheus instruments for the staking ledger.
type StakingMetrics struct {
	stakesCreated   *prometheus.CounterVec
	withdrawals     *prometheus.CounterVec
	migrations      prometheus.Counter
	extensions      prometheus.Counter
	batches         *prometheus.CounterVec
	emergencyExits  prometheus.Counter
	emergencyPaused prometheus.Gauge
	optionsCreated  prometheus.Counter
	optionStatusOps *prometheus.CounterVec
}

var (
	stakingOnce     sync.Once
	stakingRegistry *StakingMetrics
)

// Staking returns the process-wide staking metrics registry.
func Staking() *StakingMetrics {
	stakingOnce.Do(func() {
		stakingRegistry = &StakingMetrics{
			stakesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "staking_stakes_created_total",
				Help: "Count of stake positions created by option id.",
			}, []string{"option"}),
			withdrawals: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "staking_withdrawals_total",
				Help: "Count of withdrawals by settlement kind.",
			}, []string{"kind"}),
			migrations: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "staking_migrations_total",
				Help: "Count of stake migrations between options.",
			}),
			extensions: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "staking_extensions_total",
				Help: "Count of lock duration extensions.",
			}),
			batches: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "staking_batches_total",
				Help: "Count of batch operations by batch kind.",
			}, []string{"kind"}),
			emergencyExits: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "staking_emergency_withdrawals_total",
				Help: "Count of emergency withdrawals.",
			}),
			emergencyPaused: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "staking_emergency_paused",
				Help: "Whether the process-wide emergency pause is set.",
			}),
			optionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "staking_options_created_total",
				Help: "Count of staking options accepted by the registry.",
			}),
			optionStatusOps: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "staking_option_status_changes_total",
				Help: "Count of option pause, unpause and release transitions.",
			}, []string{"transition"}),
		}
		prometheus.MustRegister(
			stakingRegistry.stakesCreated,
			stakingRegistry.withdrawals,
			stakingRegistry.migrations,
			stakingRegistry.extensions,
			stakingRegistry.batches,
			stakingRegistry.emergencyExits,
			stakingRegistry.emergencyPaused,
			stakingRegistry.optionsCreated,
			stakingRegistry.optionStatusOps,
		)
	})
	return stakingRegistry
}

// Recorder adapts the metrics registry to the event stream so every
// state-changing operation is counted without the engine knowing about
// prometheus.
type Recorder struct {
	metrics *StakingMetrics
}

// NewRecorder returns an emitter that records staking events as metrics.
func NewRecorder() *Recorder {
	return &Recorder{metrics: Staking()}
}

// Emit implements events.Emitter.
func (r *Recorder) Emit(evt events.Event) {
	if r == nil || r.metrics == nil || evt == nil {
		return
	}
	switch payload := evt.(type) {
	case events.OptionCreated:
		r.metrics.optionsCreated.Inc()
	case events.OptionStatusChanged:
		r.metrics.optionStatusOps.WithLabelValues(statusTransition(payload)).Inc()
	case events.Staked:
		r.metrics.stakesCreated.WithLabelValues(formatOption(payload.OptionID)).Inc()
	case events.StakeExtended:
		r.metrics.extensions.Inc()
	case events.Withdrawn:
		kind := "clean"
		if payload.Penalty != nil && payload.Penalty.Sign() > 0 {
			kind = "penalized"
		}
		r.metrics.withdrawals.WithLabelValues(kind).Inc()
	case events.StakeMigrated:
		r.metrics.migrations.Inc()
	case events.EmergencyWithdrawn:
		r.metrics.emergencyExits.Inc()
	case events.EmergencyPauseSet:
		if payload.Paused {
			r.metrics.emergencyPaused.Set(1)
		} else {
			r.metrics.emergencyPaused.Set(0)
		}
	case events.BatchExecuted:
		r.metrics.batches.WithLabelValues(payload.Kind).Inc()
	}
}

func statusTransition(e events.OptionStatusChanged) string {
	switch {
	case e.Released:
		return "release"
	case e.Paused:
		return "pause"
	default:
		return "unpause"
	}
}

func formatOption(id uint64) string {
	return strconv.FormatUint(id, 10)
}
