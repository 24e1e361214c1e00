package metrics

import (
	"math/big"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/0xKurt/FlexStake/core/events"
)

func TestRecorderCountsEvents(t *testing.T) {
	recorder := NewRecorder()
	m := Staking()

	var staker [20]byte
	staker[0] = 0x02

	before := testutil.ToFloat64(m.stakesCreated.WithLabelValues("1"))
	recorder.Emit(events.Staked{OptionID: 1, Staker: staker, Amount: big.NewInt(500)})
	if got := testutil.ToFloat64(m.stakesCreated.WithLabelValues("1")); got != before+1 {
		t.Fatalf("expected stake counter %v, got %v", before+1, got)
	}

	clean := testutil.ToFloat64(m.withdrawals.WithLabelValues("clean"))
	penalized := testutil.ToFloat64(m.withdrawals.WithLabelValues("penalized"))
	recorder.Emit(events.Withdrawn{OptionID: 1, Staker: staker, Payout: big.NewInt(500), Penalty: big.NewInt(0)})
	recorder.Emit(events.Withdrawn{OptionID: 1, Staker: staker, Payout: big.NewInt(450), Penalty: big.NewInt(50)})
	if got := testutil.ToFloat64(m.withdrawals.WithLabelValues("clean")); got != clean+1 {
		t.Fatalf("expected clean counter %v, got %v", clean+1, got)
	}
	if got := testutil.ToFloat64(m.withdrawals.WithLabelValues("penalized")); got != penalized+1 {
		t.Fatalf("expected penalized counter %v, got %v", penalized+1, got)
	}

	recorder.Emit(events.EmergencyPauseSet{Paused: true})
	if got := testutil.ToFloat64(m.emergencyPaused); got != 1 {
		t.Fatalf("expected pause gauge 1, got %v", got)
	}
	recorder.Emit(events.EmergencyPauseSet{})
	if got := testutil.ToFloat64(m.emergencyPaused); got != 0 {
		t.Fatalf("expected pause gauge 0, got %v", got)
	}

	batches := testutil.ToFloat64(m.batches.WithLabelValues(events.TypeBatchStaked))
	recorder.Emit(events.BatchExecuted{Kind: events.TypeBatchStaked, Caller: staker})
	if got := testutil.ToFloat64(m.batches.WithLabelValues(events.TypeBatchStaked)); got != batches+1 {
		t.Fatalf("expected batch counter %v, got %v", batches+1, got)
	}
}

func TestStatusTransitionLabels(t *testing.T) {
	cases := []struct {
		event events.OptionStatusChanged
		want  string
	}{
		{events.OptionStatusChanged{Paused: true}, "pause"},
		{events.OptionStatusChanged{}, "unpause"},
		{events.OptionStatusChanged{Paused: true, Released: true}, "release"},
	}
	for _, tc := range cases {
		if got := statusTransition(tc.event); got != tc.want {
			t.Fatalf("expected %q, got %q", tc.want, got)
		}
	}
}
