package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"coinshop-tg-bot/internal/config"
)

// statsPrinter форматирует числа с разделителями разрядов.
var statsPrinter = message.NewPrinter(language.Russian)

// AdminStatsCallbackHandler показывает сводку по магазину.
func (h Handler) AdminStatsCallbackHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, b, update)
	chatId, messageId, ok := callbackChat(update)
	if !ok {
		return
	}

	report, err := h.BuildStatsReport(ctx)
	if err != nil {
		slog.Error("error building stats report", "error", err)
		return
	}

	_, err = b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    chatId,
		MessageID: messageId,
		ParseMode: models.ParseModeHTML,
		Text:      report,
		ReplyMarkup: models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{
				{{Text: "⬅️ Назад", CallbackData: CallbackAdmin}},
			},
		},
	})
	if err != nil {
		slog.Error("Error sending stats", "error", err)
	}
}

// BuildStatsReport собирает сводку: пользователи и их активность,
// товары, покупки и оборот монет.
func (h Handler) BuildStatsReport(ctx context.Context) (string, error) {
	now := time.Now()
	dayAgo := now.Add(-24 * time.Hour)
	twoWeeksAgo := now.Add(-14 * 24 * time.Hour)

	totalUsers, err := h.userRepository.CountAll(ctx)
	if err != nil {
		return "", err
	}
	newUsers, err := h.userRepository.CountCreatedSince(ctx, dayAgo)
	if err != nil {
		return "", err
	}
	activeUsers, err := h.userRepository.CountActiveSince(ctx, twoWeeksAgo)
	if err != nil {
		return "", err
	}
	totalProducts, availableProducts, err := h.productRepository.CountByAvailability(ctx)
	if err != nil {
		return "", err
	}
	totalPurchases, err := h.purchaseRepository.CountAll(ctx)
	if err != nil {
		return "", err
	}
	revenue, err := h.purchaseRepository.SumRevenue(ctx)
	if err != nil {
		return "", err
	}

	return statsPrinter.Sprintf("<b>Статистика</b>\n\n"+
		"Пользователей: %d\n"+
		"Новых за сутки: %d\n"+
		"Активных за 14 дней: %d\n"+
		"Товаров: %d (доступно %d)\n"+
		"Покупок: %d\n"+
		"Оборот: %s 🪙",
		totalUsers, newUsers, activeUsers,
		totalProducts, availableProducts,
		totalPurchases, formatCoins(revenue)), nil
}

// SendDailyDigest отправляет утреннюю сводку всем администраторам.
// Вызывается планировщиком.
func (h Handler) SendDailyDigest(b *bot.Bot) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	report, err := h.BuildStatsReport(ctx)
	if err != nil {
		slog.Error("error building daily digest", "error", err)
		return
	}

	for _, adminId := range config.GetAdminTelegramIds() {
		_, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    adminId,
			ParseMode: models.ParseModeHTML,
			Text:      "☀️ Ежедневная сводка\n\n" + report,
		})
		if err != nil {
			slog.Error("error sending daily digest", "adminId", adminId, "error", err)
		}
	}
}
