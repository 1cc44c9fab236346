package seatgrid

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/flight-seat-reservation/internal/seat"
)

func ids(t *testing.T, labels ...string) seat.Set {
	t.Helper()
	s, err := seat.DefaultLayout().ParseSet(labels)
	if err != nil {
		t.Fatalf("parse %v: %v", labels, err)
	}
	return s
}

func TestReconcile_KeepsUnconfirmedEditWhileIdle(t *testing.T) {
	local := ids(t, "1A")
	server := ids(t, "2B")

	got, gate := Reconcile(local, server, Idle)

	assert.Equal(t, []string{"1A"}, got.Strings())
	assert.Equal(t, Idle, gate)
}

func TestReconcile_AdoptsMatchingServer(t *testing.T) {
	local := ids(t, "2B", "1A")
	server := ids(t, "1A", "2B")

	got, gate := Reconcile(local, server, Idle)

	assert.True(t, got.Equal(server))
	assert.Equal(t, Idle, gate)
}

func TestReconcile_AwaitingAckAdoptsAndCloses(t *testing.T) {
	local := ids(t, "1A")
	server := ids(t, "3C")

	got, gate := Reconcile(local, server, AwaitingServerAck)

	assert.Equal(t, []string{"3C"}, got.Strings())
	assert.Equal(t, Idle, gate)
}

func TestReconcile_MatchWhileSubmittingKeepsGate(t *testing.T) {
	local := ids(t, "1A")

	got, gate := Reconcile(local, ids(t, "1A"), Submitting)
	assert.Equal(t, []string{"1A"}, got.Strings())
	assert.Equal(t, Submitting, gate)

	got, gate = Reconcile(local, ids(t, "4D"), Submitting)
	assert.Equal(t, []string{"1A"}, got.Strings())
	assert.Equal(t, Submitting, gate)
}

func TestReconcile_ResultIsIndependentOfServer(t *testing.T) {
	server := ids(t, "1A")
	got, _ := Reconcile(ids(t, "1A"), server, Idle)
	got.Add(seat.ID{Row: 2, Col: 2})
	assert.Equal(t, 1, server.Len())
}

func TestDerive_EvaluationOrder(t *testing.T) {
	a1 := seat.ID{Row: 1, Col: 1}
	tests := []struct {
		name string
		view View
		want VisualState
	}{
		{"available", View{}, Available},
		{"local", View{Local: seat.NewSet(a1)}, LocallySelected},
		{"server", View{Server: seat.NewSet(a1)}, ConfirmedMine},
		{"server beats local", View{Local: seat.NewSet(a1), Server: seat.NewSet(a1)}, ConfirmedMine},
		{"confirming beats server", View{Local: seat.NewSet(a1), Server: seat.NewSet(a1), Gate: Submitting}, BeingConfirmed},
		{"awaiting ack is confirming", View{Local: seat.NewSet(a1), Gate: AwaitingServerAck}, BeingConfirmed},
		{"gate without local", View{Server: seat.NewSet(a1), Gate: Submitting}, ConfirmedMine},
		{"held beats confirming", View{
			Local: seat.NewSet(a1), Gate: Submitting,
			Availability: Availability{HeldByOthers: seat.NewSet(a1)},
		}, HeldByOther},
		{"confirmed other beats held", View{
			Availability: Availability{HeldByOthers: seat.NewSet(a1), ConfirmedByOthers: seat.NewSet(a1)},
		}, ConfirmedByOther},
		{"locked available", View{Locked: true}, LockedOut},
		{"locked local", View{Locked: true, Local: seat.NewSet(a1)}, LockedOut},
		{"locked held", View{Locked: true, Availability: Availability{HeldByOthers: seat.NewSet(a1)}}, LockedOut},
		{"locked keeps mine", View{Locked: true, Server: seat.NewSet(a1)}, ConfirmedMine},
		{"locked keeps confirming", View{Locked: true, Local: seat.NewSet(a1), Gate: AwaitingServerAck}, BeingConfirmed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Derive(a1, tt.view))
		})
	}
}

func TestVisualState_String(t *testing.T) {
	assert.Equal(t, "held", HeldByOther.String())
	assert.Equal(t, "locked", LockedOut.String())
	assert.Equal(t, "unknown", VisualState(42).String())
}
