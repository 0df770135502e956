package eventbus

import (
	"errors"
	"strings"
	"sync"
	"testing"
)

// --- Listeners ---

func TestEmitReachesListeners(t *testing.T) {
	b := New()
	var got []Event
	b.Listen("ping", func(e Event) { got = append(got, e) })
	b.Listen("other", func(e Event) { t.Errorf("unexpected delivery: %v", e) })

	b.Emit("ping", "1")
	b.Emit("ping", "2")
	b.Emit("nobody", "x")

	if len(got) != 2 || got[0].Payload != "1" || got[1].Payload != "2" {
		t.Errorf("got %v", got)
	}
	if got[0].Name != "ping" {
		t.Errorf("name = %q", got[0].Name)
	}
}

func TestUnlisten(t *testing.T) {
	b := New()
	calls := 0
	id := b.Listen(BreakExec, func(Event) { calls++ })
	b.Emit(BreakExec, "")
	b.Unlisten(BreakExec, id)
	b.Emit(BreakExec, "")
	b.Unlisten(BreakExec, id)

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if n := b.Listeners(BreakExec); n != 0 {
		t.Errorf("Listeners = %d, want 0", n)
	}
}

func TestListenerMayReenterBus(t *testing.T) {
	b := New()
	var second string
	b.Listen("first", func(e Event) { b.Emit("second", e.Payload+"!") })
	b.Listen("second", func(e Event) { second = e.Payload })
	b.Emit("first", "oi")
	if second != "oi!" {
		t.Errorf("second = %q", second)
	}
}

func TestConcurrentEmit(t *testing.T) {
	b := New()
	var mu sync.Mutex
	count := 0
	b.Listen("tick", func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Emit("tick", "")
		}()
	}
	wg.Wait()
	if count != 20 {
		t.Errorf("count = %d, want 20", count)
	}
}

// --- Callbacks ---

func TestResolveCallback(t *testing.T) {
	b := New()
	b.RegisterCallback("abc", strings.ToUpper)
	if !b.HasCallback("abc") {
		t.Fatal("callback not registered")
	}

	got, err := b.ResolveCallback("abc", "ana")
	if err != nil {
		t.Fatal(err)
	}
	if got != "ANA" {
		t.Errorf("got %q, want ANA", got)
	}
	if b.HasCallback("abc") {
		t.Error("callback still registered after resolve")
	}

	_, err = b.ResolveCallback("abc", "ana")
	if !errors.Is(err, ErrNoCallback) {
		t.Errorf("err = %v, want ErrNoCallback", err)
	}
	if err.Error() != "Callback não encontrado" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestRemoveCallback(t *testing.T) {
	b := New()
	b.RegisterCallback("id", func(s string) string { return s })
	b.RemoveCallback("id")
	if b.HasCallback("id") {
		t.Error("callback still registered")
	}
}
