package state

import (
	"sync"
	"testing"

	"go.uber.org/goleak"
)

func TestSubscribeFiresImmediately(t *testing.T) {
	cell := NewCell(42)

	var got []int
	unsub := cell.Subscribe(func(v int) { got = append(got, v) })
	defer unsub()

	if len(got) != 1 || got[0] != 42 {
		t.Fatalf("expected immediate delivery of 42, got %v", got)
	}
}

func TestSetNotifiesInSubscriptionOrder(t *testing.T) {
	cell := NewCell("start")

	var order []string
	u1 := cell.Subscribe(func(v string) { order = append(order, "first:"+v) })
	defer u1()
	u2 := cell.Subscribe(func(v string) { order = append(order, "second:"+v) })
	defer u2()

	order = order[:0]
	cell.Set("next")

	if len(order) != 2 || order[0] != "first:next" || order[1] != "second:next" {
		t.Fatalf("unexpected notification order: %v", order)
	}
	if cell.Get() != "next" {
		t.Fatalf("Get() = %q, want %q", cell.Get(), "next")
	}
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	cell := NewCell(0)

	calls := 0
	unsub := cell.Subscribe(func(int) { calls++ })
	if calls != 1 {
		t.Fatalf("expected 1 immediate call, got %d", calls)
	}

	unsub()
	unsub() // second call is a no-op
	cell.Set(1)
	cell.Set(2)

	if calls != 1 {
		t.Errorf("expected no calls after unsubscribe, got %d total", calls)
	}
	if cell.subscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, found %d", cell.subscriberCount())
	}
}

func TestUpdate(t *testing.T) {
	cell := NewCell(10)

	var seen []int
	unsub := cell.Subscribe(func(v int) { seen = append(seen, v) })
	defer unsub()

	cell.Update(func(v int) int { return v * 2 })

	if cell.Get() != 20 {
		t.Fatalf("Get() = %d, want 20", cell.Get())
	}
	if len(seen) != 2 || seen[1] != 20 {
		t.Fatalf("expected [10 20], got %v", seen)
	}
}

func TestEqualitySuppressesRedundantNotify(t *testing.T) {
	cell := NewCell("oscp", WithEqual(Comparable[string]()))

	notifies := 0
	unsub := cell.Subscribe(func(string) { notifies++ })
	defer unsub()

	cell.Set("oscp")
	cell.Set("oscp")
	if notifies != 1 {
		t.Fatalf("expected redundant sets suppressed, got %d notifies", notifies)
	}

	cell.Set("marker")
	if notifies != 2 {
		t.Fatalf("expected notify on real change, got %d notifies", notifies)
	}

	cell.Update(func(v string) string { return v })
	if notifies != 2 {
		t.Fatalf("expected identity update suppressed, got %d notifies", notifies)
	}
}

func TestSubscribeDuringNotification(t *testing.T) {
	cell := NewCell(0)

	var lateValues []int
	var unsubLate Unsubscribe
	unsub := cell.Subscribe(func(v int) {
		if v == 1 && unsubLate == nil {
			unsubLate = cell.Subscribe(func(lv int) { lateValues = append(lateValues, lv) })
		}
	})
	defer unsub()

	cell.Set(1)
	if unsubLate == nil {
		t.Fatal("nested subscribe never ran")
	}
	defer unsubLate()

	// The nested subscriber saw the current value immediately and the
	// following change.
	cell.Set(2)
	if len(lateValues) != 2 || lateValues[0] != 1 || lateValues[1] != 2 {
		t.Fatalf("late subscriber saw %v, want [1 2]", lateValues)
	}
}

func TestConcurrentSets(t *testing.T) {
	defer goleak.VerifyNone(t)

	cell := NewCell(0)

	var mu sync.Mutex
	count := 0
	unsub := cell.Subscribe(func(int) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	defer unsub()

	const writers = 8
	const writes = 100
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < writes; i++ {
				cell.Set(base*writes + i)
			}
		}(w)
	}
	wg.Wait()

	if got := cell.Get(); got < 0 || got >= writers*writes {
		t.Fatalf("final value %d outside written range", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if count != writers*writes+1 {
		t.Fatalf("expected %d notifications, got %d", writers*writes+1, count)
	}
}

func TestDeriveRecomputes(t *testing.T) {
	source := NewCell(2)
	double := Derive(source, func(v int) int { return v * 2 })
	defer double.Detach()

	if double.Get() != 4 {
		t.Fatalf("initial derived value = %d, want 4", double.Get())
	}

	var seen []int
	unsub := double.Subscribe(func(v int) { seen = append(seen, v) })
	defer unsub()

	source.Set(5)
	if double.Get() != 10 {
		t.Fatalf("derived value = %d, want 10", double.Get())
	}
	if len(seen) != 2 || seen[0] != 4 || seen[1] != 10 {
		t.Fatalf("derived notifications %v, want [4 10]", seen)
	}
}

func TestDerive2(t *testing.T) {
	wanted := NewCell(true)
	detected := NewCell(false)
	visible := Derive2(wanted, detected,
		func(a, b bool) bool { return a && b },
		WithEqual(Comparable[bool]()))
	defer visible.Detach()

	if visible.Get() {
		t.Fatal("expected false while not detected")
	}

	detected.Set(true)
	if !visible.Get() {
		t.Fatal("expected true once both sources are true")
	}

	wanted.Set(false)
	if visible.Get() {
		t.Fatal("expected false after first source dropped")
	}
}

func TestDetachStopsUpdates(t *testing.T) {
	source := NewCell(1)
	derived := Derive(source, func(v int) int { return v + 1 })

	derived.Detach()
	derived.Detach() // idempotent

	source.Set(100)
	if derived.Get() != 2 {
		t.Fatalf("detached cell changed to %d, want frozen 2", derived.Get())
	}
	if source.subscriberCount() != 0 {
		t.Fatalf("source still has %d subscribers after detach", source.subscriberCount())
	}
}

func BenchmarkCellSet(b *testing.B) {
	cell := NewCell(0)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cell.Set(i)
	}
}

func BenchmarkCellFanOut(b *testing.B) {
	cell := NewCell(0)
	for i := 0; i < 16; i++ {
		defer cell.Subscribe(func(int) {})()
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cell.Set(i)
	}
}
