package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Текстовые команды дублируют разделы главного меню: каждая отправляет
// тот же экран новым сообщением вместо редактирования существующего.

func (h Handler) HelpCommandHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	text, keyboard := buildHelpView()
	h.sendView(ctx, b, update.Message.Chat.ID, text, keyboard)
}

func (h Handler) CatalogCommandHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	text, keyboard, err := h.buildCatalogView(ctx)
	if err != nil {
		slog.Error("error building catalog", "error", err)
		return
	}
	h.sendView(ctx, b, update.Message.Chat.ID, text, keyboard)
}

func (h Handler) ProfileCommandHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	text, keyboard, err := h.buildProfileView(ctx, update.Message.From.ID)
	if err != nil {
		slog.Error("error building profile", "telegramId", update.Message.From.ID, "error", err)
		return
	}
	h.sendView(ctx, b, update.Message.Chat.ID, text, keyboard)
}

// BalanceCommandHandler отвечает одним числом — текущим балансом.
func (h Handler) BalanceCommandHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	telegramId := update.Message.From.ID
	user, err := h.userRepository.FindByTelegramId(ctx, telegramId)
	if err != nil || user == nil {
		slog.Error("error loading user balance", "telegramId", telegramId, "error", err)
		return
	}
	h.sendText(ctx, b, update.Message.Chat.ID,
		fmt.Sprintf("Ваш баланс: %s 🪙", formatCoins(user.Balance)))
}

func (h Handler) PurchasesCommandHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	text, keyboard, err := h.buildPurchasesView(ctx, update.Message.From.ID)
	if err != nil {
		slog.Error("error building purchases list", "telegramId", update.Message.From.ID, "error", err)
		return
	}
	h.sendView(ctx, b, update.Message.Chat.ID, text, keyboard)
}

func (h Handler) TopupCommandHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	text, keyboard := buildTopupView()
	h.sendView(ctx, b, update.Message.Chat.ID, text, keyboard)
}

// CheckPaymentCommandHandler проверяет счёт по идентификатору:
// /check_payment <invoice_id>. Без аргумента подсказывает формат.
func (h Handler) CheckPaymentCommandHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	fields := strings.Fields(update.Message.Text)
	if len(fields) < 2 {
		h.sendText(ctx, b, update.Message.Chat.ID,
			"Укажите идентификатор счёта: /check_payment <id>.\n"+
				"Он же проверяется кнопкой «Проверить оплату» под сообщением со счётом.")
		return
	}
	h.checkInvoice(ctx, b, update.Message.Chat.ID, update.Message.From.ID, fields[1])
}

// AdminCommandHandler открывает админ-панель. Регистрируется за
// IsAdminMiddleware, поэтому сюда доходят только администраторы.
func (h Handler) AdminCommandHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.sendView(ctx, b, update.Message.Chat.ID, "<b>Админ-панель</b>", adminPanelKeyboard())
}

func (h Handler) sendView(ctx context.Context, b *bot.Bot, chatId int64, text string, keyboard [][]models.InlineKeyboardButton) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatId,
		ParseMode: models.ParseModeHTML,
		Text:      text,
		ReplyMarkup: models.InlineKeyboardMarkup{
			InlineKeyboard: keyboard,
		},
	})
	if err != nil {
		slog.Error("Error sending command reply", "error", err)
	}
}
