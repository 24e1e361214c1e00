package events

import (
	"math/big"
	"testing"
)

func testAddr(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func TestStakedEvent(t *testing.T) {
	payload := Staked{
		OptionID:     3,
		Staker:       testAddr(0x02),
		Amount:       big.NewInt(500),
		LockDuration: 86400,
		CreatedAt:    1_700_000_000,
		HasData:      true,
	}
	evt := payload.Event()
	if evt.Type != TypeStaked {
		t.Fatalf("unexpected type %q", evt.Type)
	}
	for key, want := range map[string]string{
		"optionId":     "3",
		"amount":       "500",
		"lockDuration": "86400",
		"hasData":      "true",
	} {
		if got := evt.Attributes[key]; got != want {
			t.Fatalf("attribute %q: expected %q, got %q", key, want, got)
		}
	}
}

func TestStakedEventOmitsZeroLock(t *testing.T) {
	evt := Staked{OptionID: 1, Staker: testAddr(0x02), Amount: big.NewInt(1)}.Event()
	if _, ok := evt.Attributes["lockDuration"]; ok {
		t.Fatal("flexible stake must omit lockDuration")
	}
	if _, ok := evt.Attributes["hasData"]; ok {
		t.Fatal("stake without data must omit hasData")
	}
}

func TestWithdrawnEventPenaltySplit(t *testing.T) {
	evt := Withdrawn{
		OptionID:  1,
		Staker:    testAddr(0x02),
		Requested: big.NewInt(500),
		Payout:    big.NewInt(450),
		Penalty:   big.NewInt(50),
		Recipient: testAddr(0x03),
	}.Event()
	if evt.Attributes["penalty"] != "50" {
		t.Fatalf("expected penalty 50, got %q", evt.Attributes["penalty"])
	}
	if evt.Attributes["penaltyRecipient"] == "" {
		t.Fatal("expected penalty recipient attribute")
	}

	clean := Withdrawn{
		OptionID:  1,
		Staker:    testAddr(0x02),
		Requested: big.NewInt(500),
		Payout:    big.NewInt(500),
		Penalty:   big.NewInt(0),
	}.Event()
	if _, ok := clean.Attributes["penalty"]; ok {
		t.Fatal("clean withdrawal must omit penalty")
	}
}

func TestWithdrawnEventPartial(t *testing.T) {
	evt := Withdrawn{
		OptionID:  1,
		Staker:    testAddr(0x02),
		Requested: big.NewInt(200),
		Payout:    big.NewInt(200),
		Partial:   true,
		Remaining: big.NewInt(300),
	}.Event()
	if evt.Attributes["partial"] != "true" || evt.Attributes["remaining"] != "300" {
		t.Fatalf("unexpected partial attributes: %v", evt.Attributes)
	}
}

func TestOptionStatusChangedType(t *testing.T) {
	cases := []struct {
		payload OptionStatusChanged
		want    string
	}{
		{OptionStatusChanged{ID: 1, Paused: true}, TypeOptionPaused},
		{OptionStatusChanged{ID: 1}, TypeOptionUnpaused},
		{OptionStatusChanged{ID: 1, Paused: true, Released: true}, TypeOptionReleased},
	}
	for _, tc := range cases {
		if got := tc.payload.EventType(); got != tc.want {
			t.Fatalf("expected %q, got %q", tc.want, got)
		}
		if got := tc.payload.Event().Type; got != tc.want {
			t.Fatalf("event type mismatch: expected %q, got %q", tc.want, got)
		}
	}
}

func TestBatchExecutedAggregates(t *testing.T) {
	evt := BatchExecuted{
		Kind:   TypeBatchStaked,
		Caller: testAddr(0x02),
		Results: []BatchResult{
			{OptionID: 1, Amount: big.NewInt(400)},
			{OptionID: 2, Amount: big.NewInt(300)},
		},
	}.Event()
	if evt.Type != TypeBatchStaked {
		t.Fatalf("unexpected type %q", evt.Type)
	}
	if evt.Attributes["count"] != "2" || evt.Attributes["totalAmount"] != "700" {
		t.Fatalf("unexpected aggregate attributes: %v", evt.Attributes)
	}
	if evt.Attributes["item0.optionId"] != "1" || evt.Attributes["item1.amount"] != "300" {
		t.Fatalf("unexpected item attributes: %v", evt.Attributes)
	}
}
