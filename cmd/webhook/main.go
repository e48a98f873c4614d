package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-telegram/bot"

	"coinshop-tg-bot/internal/balance"
	"coinshop-tg-bot/internal/config"
	"coinshop-tg-bot/internal/database"
	"coinshop-tg-bot/internal/webhook"
)

// main запускает отдельный сервис платёжных уведомлений. Он делит базу
// с ботом, но живёт своим процессом: перезапуск бота не теряет вебхуки.
func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	config.InitConfig()

	pool, err := database.NewPool(ctx, config.DatabaseUrl())
	if err != nil {
		panic(err)
	}
	defer pool.Close()

	balanceRepository := database.NewBalanceRepository(pool)
	productRepository := database.NewProductRepository(pool)
	invoiceRepository := database.NewInvoiceRepository(pool)
	balanceService := balance.NewService(balanceRepository, productRepository)

	// Бот-клиент используется только для отправки уведомлений о зачислении.
	b, err := bot.New(config.TelegramToken())
	if err != nil {
		panic(err)
	}
	notify := func(ctx context.Context, telegramId int64, coinAmount, newBalance float64) {
		_, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: telegramId,
			Text: fmt.Sprintf("Оплата получена! Зачислено %.0f 🪙.\nВаш баланс: %.0f 🪙",
				coinAmount, newBalance),
		})
		if err != nil {
			slog.Error("error notifying user about credit", "telegramId", telegramId, "error", err)
		}

		// Дублирующее уведомление о платеже, если настроен получатель.
		if adminId := config.DefaultRecipientId(); adminId != 0 && adminId != telegramId {
			_, err := b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID: adminId,
				Text:   fmt.Sprintf("Платёж обработан: пользователь %d, %.0f 🪙", telegramId, coinAmount),
			})
			if err != nil {
				slog.Error("error notifying admin about payment", "error", err)
			}
		}
	}

	server := webhook.NewServer(balanceService, invoiceRepository, pool, notify, config.CryptoCloudSecret())

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", config.WebhookHost(), config.WebhookPort()),
		Handler: server.Router(),
	}
	go func() {
		slog.Info("Webhook server is starting...", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Webhook server error: %v", err)
		}
	}()

	<-ctx.Done()

	log.Println("Shutting down webhook server…")
	shutdownCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Webhook server shutdown error: %v", err)
	}
}
