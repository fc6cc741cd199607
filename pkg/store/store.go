// Package store provides in-memory storage for watchpoints and the value
// history of the sdb monitor.
package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lemonberrylabs/sdb/pkg/types"
)

// DefaultHistorySize is the number of history entries kept by New.
const DefaultHistorySize = 128

// Watchpoint is a stored expression together with the value it had when
// the watchpoint was set.
type Watchpoint struct {
	ID         int        `json:"id"`
	Expr       string     `json:"expr"`
	Value      types.Word `json:"value"`
	CreateTime time.Time  `json:"createTime"`
}

// HistoryEntry is one successfully evaluated expression, addressable as $N.
type HistoryEntry struct {
	N     int        `json:"n"`
	Expr  string     `json:"expr"`
	Value types.Word `json:"value"`
	Time  time.Time  `json:"time"`
}

// Store is a thread-safe in-memory storage for watchpoints and history.
type Store struct {
	mu          sync.RWMutex
	watchpoints map[int]*Watchpoint
	history     []HistoryEntry
	historySize int

	// Counters for generating unique IDs
	wpCounter   int
	histCounter int
}

// New creates a new empty store with the default history size.
func New() *Store {
	return NewWithHistory(DefaultHistorySize)
}

// NewWithHistory creates a store that keeps at most size history entries.
func NewWithHistory(size int) *Store {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &Store{
		watchpoints: make(map[int]*Watchpoint),
		historySize: size,
	}
}

// CreateWatchpoint stores a new watchpoint with its initial value and
// returns a copy of it. Watchpoint numbers start at 1 and are never reused.
func (s *Store) CreateWatchpoint(expr string, value types.Word) Watchpoint {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.wpCounter++
	wp := &Watchpoint{
		ID:         s.wpCounter,
		Expr:       expr,
		Value:      value,
		CreateTime: time.Now(),
	}
	s.watchpoints[wp.ID] = wp
	return *wp
}

// GetWatchpoint retrieves a copy of a watchpoint by number.
func (s *Store) GetWatchpoint(id int) (Watchpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wp, ok := s.watchpoints[id]
	if !ok {
		return Watchpoint{}, fmt.Errorf("watchpoint %d not found", id)
	}
	return *wp, nil
}

// ListWatchpoints returns copies of all watchpoints ordered by number.
func (s *Store) ListWatchpoints() []Watchpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Watchpoint, 0, len(s.watchpoints))
	for _, wp := range s.watchpoints {
		result = append(result, *wp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// DeleteWatchpoint removes a watchpoint.
func (s *Store) DeleteWatchpoint(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.watchpoints[id]; !ok {
		return fmt.Errorf("watchpoint %d not found", id)
	}
	delete(s.watchpoints, id)
	return nil
}

// Record appends a value to the history and returns the stored entry. When
// the history is full the oldest entry is dropped; numbers keep increasing.
func (s *Store) Record(expr string, value types.Word) HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.histCounter++
	e := HistoryEntry{
		N:     s.histCounter,
		Expr:  expr,
		Value: value,
		Time:  time.Now(),
	}
	s.history = append(s.history, e)
	if len(s.history) > s.historySize {
		s.history = append(s.history[:0:0], s.history[len(s.history)-s.historySize:]...)
	}
	return e
}

// History returns the retained history entries, oldest first.
func (s *Store) History() []HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]HistoryEntry(nil), s.history...)
}

// Lookup returns history entry $n if it is still retained.
func (s *Store) Lookup(n int) (HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.history {
		if e.N == n {
			return e, nil
		}
	}
	return HistoryEntry{}, fmt.Errorf("history entry $%d not found", n)
}
