package conversation

import (
	"sync"
	"testing"
)

func TestMemorySessions(t *testing.T) {
	s := NewMemorySessions()

	if _, ok := s.Get(1).State.(Idle); !ok {
		t.Fatalf("new user state = %#v, want Idle", s.Get(1).State)
	}

	s.Put(1, ConfirmingPurchase{PlanID: "p1"})
	if got, want := s.Get(1).State, (ConfirmingPurchase{PlanID: "p1"}); got != want {
		t.Errorf("Get() = %#v, want %#v", got, want)
	}
	if s.Get(1).UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}

	// Idle не хранится
	s.Put(1, Idle{})
	if s.Len() != 0 {
		t.Errorf("Len() = %d after Idle, want 0", s.Len())
	}

	s.Put(2, SelectingPlan{})
	s.Reset(2)
	if _, ok := s.Get(2).State.(Idle); !ok {
		t.Errorf("state after Reset = %#v, want Idle", s.Get(2).State)
	}
}

func TestMemorySessionsLock(t *testing.T) {
	s := NewMemorySessions()

	const workers = 50
	var wg sync.WaitGroup
	counter := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := s.Lock(7)
			defer unlock()

			// Чтение и запись под блокировкой пользователя не теряют обновлений
			cur := counter
			s.Put(7, CheckingPayment{InvoiceID: "INV", Checks: cur + 1})
			counter = cur + 1
		}()
	}
	wg.Wait()

	if counter != workers {
		t.Errorf("counter = %d, want %d", counter, workers)
	}
	if got := s.Get(7).State.(CheckingPayment).Checks; got != workers {
		t.Errorf("Checks = %d, want %d", got, workers)
	}

	s.mu.Lock()
	locks := len(s.locks)
	s.mu.Unlock()
	if locks != 0 {
		t.Errorf("locks left = %d, want 0", locks)
	}
}
