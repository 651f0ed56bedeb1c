package feed

import (
	"testing"
	"time"

	"github.com/ldrmon/ldrmon/internal/reading"
)

func TestDispatcherDeliversToAllListeners(t *testing.T) {
	d := newDispatcher()

	var first, second []int
	d.on(EventData, func(ev Event) {
		first = append(first, ev.(DataUpdate).Reading.Value)
	})
	d.on(EventData, func(ev Event) {
		second = append(second, ev.(DataUpdate).Reading.Value)
	})

	for _, v := range []int{1, 2, 3} {
		d.emit(DataUpdate{Reading: reading.Reading{Value: v}})
	}

	for name, got := range map[string][]int{"first": first, "second": second} {
		if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
			t.Errorf("%s listener saw %v, want [1 2 3]", name, got)
		}
	}
}

func TestDispatcherOffRemovesListener(t *testing.T) {
	d := newDispatcher()

	calls := 0
	sub := d.on(EventData, func(Event) { calls++ })
	d.emit(DataUpdate{})
	d.off(EventData, sub)
	d.emit(DataUpdate{})

	if calls != 1 {
		t.Errorf("listener called %d times, want 1", calls)
	}
}

func TestDispatcherIsolatesPanickingListener(t *testing.T) {
	d := newDispatcher()

	var delivered []time.Time
	d.on(EventConnected, func(Event) { panic("listener bug") })
	d.on(EventConnected, func(ev Event) {
		delivered = append(delivered, ev.(Connected).ConnectedAt)
	})

	d.emit(Connected{ConnectedAt: time.Now()})

	if len(delivered) != 1 {
		t.Errorf("second listener called %d times, want 1 (panic must not block it)", len(delivered))
	}
}
