package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTL сессии мастера. Брошенный на полпути диалог истекает сам.
const TTL = 30 * time.Minute

// State хранит прогресс пошагового диалога администратора.
type State struct {
	Flow string            `json:"flow"`
	Step string            `json:"step"`
	Data map[string]string `json:"data"`
}

func NewState(flow, step string) *State {
	return &State{Flow: flow, Step: step, Data: make(map[string]string)}
}

// Store — хранилище состояний диалогов по идентификатору пользователя.
// У пользователя не бывает двух активных диалогов: Set перезаписывает.
type Store interface {
	Get(ctx context.Context, telegramId int64) (*State, error)
	Set(ctx context.Context, telegramId int64, state *State) error
	Delete(ctx context.Context, telegramId int64) error
}

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(telegramId int64) string {
	return fmt.Sprintf("session:%d", telegramId)
}

func (s *RedisStore) Get(ctx context.Context, telegramId int64) (*State, error) {
	raw, err := s.client.Get(ctx, sessionKey(telegramId)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *RedisStore) Set(ctx context.Context, telegramId int64, state *State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKey(telegramId), raw, TTL).Err()
}

func (s *RedisStore) Delete(ctx context.Context, telegramId int64) error {
	return s.client.Del(ctx, sessionKey(telegramId)).Err()
}
