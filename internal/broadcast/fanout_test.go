package broadcast

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func makeRecipients(n int) []int64 {
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	return ids
}

func TestFanoutAllDelivered(t *testing.T) {
	var mu sync.Mutex
	sent := make(map[int64]int)
	send := func(_ context.Context, telegramId int64) error {
		mu.Lock()
		defer mu.Unlock()
		sent[telegramId]++
		return nil
	}

	stats := Fanout(context.Background(), makeRecipients(60), send, nil)

	assert.Equal(t, 60, stats.Recipients)
	assert.Equal(t, 60, stats.Success)
	assert.Equal(t, 0, stats.Errors)
	assert.Len(t, sent, 60)
	for id, count := range sent {
		assert.Equalf(t, 1, count, "recipient %d got %d sends", id, count)
	}
}

func TestFanoutCountsFailures(t *testing.T) {
	send := func(_ context.Context, telegramId int64) error {
		if telegramId%3 == 0 {
			return errors.New("bot was blocked by the user")
		}
		return nil
	}

	stats := Fanout(context.Background(), makeRecipients(60), send, nil)

	assert.Equal(t, 60, stats.Recipients)
	assert.Equal(t, 20, stats.Errors)
	assert.Equal(t, 40, stats.Success)
	assert.Equal(t, stats.Recipients, stats.Success+stats.Errors)
}

func TestFanoutProgressReachesTotal(t *testing.T) {
	var mu sync.Mutex
	var reports [][2]int
	progress := func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		reports = append(reports, [2]int{done, total})
	}
	send := func(_ context.Context, _ int64) error { return nil }

	Fanout(context.Background(), makeRecipients(60), send, progress)

	assert.NotEmpty(t, reports)
	last := reports[len(reports)-1]
	assert.Equal(t, 60, last[0])
	assert.Equal(t, 60, last[1])
	for i := 1; i < len(reports); i++ {
		assert.Greater(t, reports[i][0], reports[i-1][0])
	}
}

func TestFanoutEmptyRecipients(t *testing.T) {
	called := false
	send := func(_ context.Context, _ int64) error {
		called = true
		return nil
	}

	stats := Fanout(context.Background(), nil, send, nil)

	assert.False(t, called)
	assert.Equal(t, 0, stats.Recipients)
	assert.Equal(t, 0, stats.Success)
	assert.Equal(t, 0, stats.Errors)
}

func TestFanoutCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	send := func(_ context.Context, _ int64) error { return nil }

	stats := Fanout(ctx, makeRecipients(60), send, nil)

	assert.Equal(t, 60, stats.Recipients)
	assert.Equal(t, stats.Recipients, stats.Success+stats.Errors)
}
