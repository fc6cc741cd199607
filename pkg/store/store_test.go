package store

import (
	"sync"
	"testing"
)

func TestWatchpointLifecycle(t *testing.T) {
	s := New()

	wp1 := s.CreateWatchpoint("1+2", 3)
	wp2 := s.CreateWatchpoint("4*5", 20)
	if wp1.ID != 1 || wp2.ID != 2 {
		t.Fatalf("expected ids 1 and 2, got %d and %d", wp1.ID, wp2.ID)
	}

	got, err := s.GetWatchpoint(2)
	if err != nil {
		t.Fatalf("GetWatchpoint: %v", err)
	}
	if got.Expr != "4*5" || got.Value != 20 {
		t.Errorf("unexpected watchpoint: %+v", got)
	}

	if err := s.DeleteWatchpoint(1); err != nil {
		t.Fatalf("DeleteWatchpoint: %v", err)
	}
	if err := s.DeleteWatchpoint(1); err == nil {
		t.Error("expected error deleting twice")
	}
	if _, err := s.GetWatchpoint(1); err == nil {
		t.Error("expected not found")
	}

	// Numbers are never reused.
	wp3 := s.CreateWatchpoint("7", 7)
	if wp3.ID != 3 {
		t.Errorf("expected id 3, got %d", wp3.ID)
	}

	list := s.ListWatchpoints()
	if len(list) != 2 || list[0].ID != 2 || list[1].ID != 3 {
		t.Errorf("unexpected list: %+v", list)
	}
}

func TestHistoryRing(t *testing.T) {
	s := NewWithHistory(3)
	for i := 1; i <= 5; i++ {
		if e := s.Record("e", 0); e.N != i {
			t.Fatalf("expected history number %d, got %d", i, e.N)
		}
	}

	h := s.History()
	if len(h) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(h))
	}
	if h[0].N != 3 || h[2].N != 5 {
		t.Errorf("unexpected retained entries: %+v", h)
	}
	if _, err := s.Lookup(1); err == nil {
		t.Error("expected $1 to be evicted")
	}
	if e, err := s.Lookup(4); err != nil || e.N != 4 {
		t.Errorf("Lookup(4) = %+v, %v", e, err)
	}
}

func TestConcurrentRecord(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Record("1", 1)
			s.CreateWatchpoint("1", 1)
		}()
	}
	wg.Wait()

	if got := len(s.History()); got != 50 {
		t.Errorf("expected 50 history entries, got %d", got)
	}
	if got := len(s.ListWatchpoints()); got != 50 {
		t.Errorf("expected 50 watchpoints, got %d", got)
	}
}

func TestRecordReturnsEntryWhenRingFull(t *testing.T) {
	s := NewWithHistory(1)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e := s.Record("2*3", 6)
			if e.N == 0 || e.Expr != "2*3" || e.Value != 6 {
				t.Errorf("unexpected entry: %+v", e)
			}
		}()
	}
	wg.Wait()

	if h := s.History(); len(h) != 1 || h[0].N != 50 {
		t.Errorf("unexpected history: %+v", h)
	}
}
