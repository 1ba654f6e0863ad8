package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"lendingScope/internal/model"
	"lendingScope/internal/storage"
)

// Store keeps sync state and events in process memory behind one mutex.
// It backs dev mode and tests; nothing survives a restart.
type Store struct {
	mu     sync.Mutex
	state  map[string]string
	events []model.Event
	seen   map[string]struct{}
}

func NewStore() *Store {
	return &Store{
		state: make(map[string]string),
		seen:  make(map[string]struct{}),
	}
}

func (s *Store) Close() {}

func (s *Store) GetState(_ context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, fmt.Errorf("state key required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.state[key]
	return value, ok, nil
}

func (s *Store) SetState(_ context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("state key required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state[key] = value
	return nil
}

func (s *Store) InsertEvent(_ context.Context, event model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := fmt.Sprintf("%s:%d", event.TxHash, event.LogIndex)
	if _, ok := s.seen[id]; ok {
		return nil
	}
	s.seen[id] = struct{}{}
	s.events = append(s.events, event)
	return nil
}

func (s *Store) QueryEvents(_ context.Context, filter storage.EventFilter, limit int) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]model.Event, 0, limit)
	for _, event := range s.events {
		if matches(event, filter) {
			matched = append(matched, event)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].BlockNumber != matched[j].BlockNumber {
			return matched[i].BlockNumber < matched[j].BlockNumber
		}
		return matched[i].LogIndex < matched[j].LogIndex
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *Store) EventStats(_ context.Context, filter storage.EventFilter) ([]model.EventStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[model.EventStat]uint64)
	for _, event := range s.events {
		if matches(event, filter) {
			counts[model.EventStat{Contract: event.Contract, EventName: event.EventName}]++
		}
	}

	stats := make([]model.EventStat, 0, len(counts))
	for key, count := range counts {
		key.Count = count
		stats = append(stats, key)
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		if stats[i].Contract != stats[j].Contract {
			return stats[i].Contract < stats[j].Contract
		}
		return stats[i].EventName < stats[j].EventName
	})
	return stats, nil
}

// EventCount reports the number of stored events.
func (s *Store) EventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func matches(event model.Event, filter storage.EventFilter) bool {
	if filter.Contract != "" && event.Contract != filter.Contract {
		return false
	}
	if filter.EventName != "" && event.EventName != filter.EventName {
		return false
	}
	if filter.FromBlock != nil && event.BlockNumber < *filter.FromBlock {
		return false
	}
	if filter.ToBlock != nil && event.BlockNumber > *filter.ToBlock {
		return false
	}
	return true
}
