package broadcast

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// Размер пачки и пауза между пачками подобраны под лимиты Telegram
	// на частоту отправки сообщений ботом.
	batchSize  = 25
	batchDelay = 500 * time.Millisecond
)

// SendFunc отправляет сообщение рассылки одному получателю.
type SendFunc func(ctx context.Context, telegramId int64) error

// ProgressFunc получает число обработанных получателей из общего числа.
type ProgressFunc func(done, total int)

// Stats — итог рассылки. Success + Errors всегда равно Recipients.
type Stats struct {
	Recipients int
	Success    int
	Errors     int
	Elapsed    time.Duration
}

// Fanout рассылает сообщение пачками: внутри пачки получатели обрабатываются
// параллельно, между пачками выдерживается пауза. Ошибка отправки одному
// получателю (бот заблокирован, чат удалён) не прерывает рассылку.
func Fanout(ctx context.Context, recipients []int64, send SendFunc, progress ProgressFunc) Stats {
	start := time.Now()
	total := len(recipients)

	var success, failed atomic.Int64
	reportEvery := total / 20
	if reportEvery == 0 {
		reportEvery = 1
	}
	lastReported := 0

	for offset := 0; offset < total; offset += batchSize {
		if ctx.Err() != nil {
			break
		}
		end := offset + batchSize
		if end > total {
			end = total
		}

		g, batchCtx := errgroup.WithContext(ctx)
		for _, telegramId := range recipients[offset:end] {
			telegramId := telegramId
			g.Go(func() error {
				if err := send(batchCtx, telegramId); err != nil {
					failed.Add(1)
					slog.Warn("newsletter send failed", "telegramId", telegramId, "error", err)
					return nil
				}
				success.Add(1)
				return nil
			})
		}
		_ = g.Wait()

		done := end
		if progress != nil && (done-lastReported >= reportEvery || done == total) {
			progress(done, total)
			lastReported = done
		}

		if end < total {
			select {
			case <-time.After(batchDelay):
			case <-ctx.Done():
			}
		}
	}

	stats := Stats{
		Recipients: total,
		Success:    int(success.Load()),
		Errors:     int(failed.Load()),
		Elapsed:    time.Since(start),
	}
	// Прерванная рассылка: недошедшие получатели считаются ошибками,
	// чтобы сумма сходилась с общим числом.
	if remainder := total - stats.Success - stats.Errors; remainder > 0 {
		stats.Errors += remainder
	}
	return stats
}
