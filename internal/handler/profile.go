package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// ProfileCallbackHandler показывает баланс и число покупок пользователя.
func (h Handler) ProfileCallbackHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, b, update)
	chatId, messageId, ok := callbackChat(update)
	if !ok {
		return
	}
	telegramId := update.CallbackQuery.From.ID

	text, keyboard, err := h.buildProfileView(ctx, telegramId)
	if err != nil {
		slog.Error("error building profile", "telegramId", telegramId, "error", err)
		return
	}

	_, err = b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    chatId,
		MessageID: messageId,
		ParseMode: models.ParseModeHTML,
		Text:      text,
		ReplyMarkup: models.InlineKeyboardMarkup{
			InlineKeyboard: keyboard,
		},
	})
	if err != nil {
		slog.Error("Error sending profile", "error", err)
	}
}

func (h Handler) buildProfileView(ctx context.Context, telegramId int64) (string, [][]models.InlineKeyboardButton, error) {
	user, err := h.userRepository.FindByTelegramId(ctx, telegramId)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return "", nil, fmt.Errorf("no user with telegram id %d", telegramId)
	}
	purchases, err := h.purchaseRepository.FindByUserId(ctx, user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load purchases: %w", err)
	}

	name := "пользователь"
	if user.Username != nil {
		name = "@" + *user.Username
	} else if user.FirstName != nil {
		name = *user.FirstName
	}

	text := fmt.Sprintf("<b>Профиль</b>\n\n%s\nБаланс: %s 🪙\nПокупок: %d",
		name, formatCoins(user.Balance), len(purchases))
	keyboard := [][]models.InlineKeyboardButton{
		{{Text: "🛍 Мои покупки", CallbackData: CallbackPurchases}},
		{{Text: "💰 Пополнить баланс", CallbackData: CallbackTopup}},
		{{Text: "⬅️ Назад", CallbackData: CallbackStart}},
	}
	return text, keyboard, nil
}

// PurchasesCallbackHandler показывает историю покупок, новые первыми.
func (h Handler) PurchasesCallbackHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, b, update)
	chatId, messageId, ok := callbackChat(update)
	if !ok {
		return
	}
	telegramId := update.CallbackQuery.From.ID

	text, keyboard, err := h.buildPurchasesView(ctx, telegramId)
	if err != nil {
		slog.Error("error building purchases list", "telegramId", telegramId, "error", err)
		return
	}

	_, err = b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    chatId,
		MessageID: messageId,
		ParseMode: models.ParseModeHTML,
		Text:      text,
		ReplyMarkup: models.InlineKeyboardMarkup{
			InlineKeyboard: keyboard,
		},
	})
	if err != nil {
		slog.Error("Error sending purchases list", "error", err)
	}
}

func (h Handler) buildPurchasesView(ctx context.Context, telegramId int64) (string, [][]models.InlineKeyboardButton, error) {
	user, err := h.userRepository.FindByTelegramId(ctx, telegramId)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return "", nil, fmt.Errorf("no user with telegram id %d", telegramId)
	}
	purchases, err := h.purchaseRepository.FindByUserId(ctx, user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load purchases: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("<b>Мои покупки</b>\n\n")
	if len(purchases) == 0 {
		sb.WriteString("Покупок пока нет.")
	}
	for i, purchase := range purchases {
		sb.WriteString(fmt.Sprintf("%d. %s — %s 🪙 (%s)\n",
			i+1, purchase.ProductTitle, formatCoins(purchase.PurchasePrice),
			purchase.PurchaseDate.Format("02.01.2006")))
	}

	keyboard := [][]models.InlineKeyboardButton{
		{{Text: "⬅️ Назад", CallbackData: CallbackProfile}},
	}
	return sb.String(), keyboard, nil
}
