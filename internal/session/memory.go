package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore — хранилище сессий в памяти процесса. Запасной вариант,
// когда Redis не сконфигурирован: состояния теряются при рестарте.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[int64]memoryEntry
}

type memoryEntry struct {
	state     State
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[int64]memoryEntry)}
}

func (s *MemoryStore) Get(_ context.Context, telegramId int64) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[telegramId]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(s.entries, telegramId)
		return nil, nil
	}
	state := cloneState(&entry.state)
	return &state, nil
}

func (s *MemoryStore) Set(_ context.Context, telegramId int64, state *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[telegramId] = memoryEntry{state: cloneState(state), expiresAt: time.Now().Add(TTL)}
	return nil
}

// cloneState копирует состояние вместе с картой данных. Без копии карты
// вызывающий делил бы её с хранилищем, и поведение расходилось бы с Redis,
// где каждое чтение возвращает независимое значение.
func cloneState(state *State) State {
	copied := *state
	copied.Data = make(map[string]string, len(state.Data))
	for k, v := range state.Data {
		copied.Data[k] = v
	}
	return copied
}

func (s *MemoryStore) Delete(_ context.Context, telegramId int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, telegramId)
	return nil
}
