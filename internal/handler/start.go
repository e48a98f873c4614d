package handler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"coinshop-tg-bot/internal/config"
)

const greetingText = "<b>Добро пожаловать в магазин!</b>\n\n" +
	"Здесь можно купить цифровые товары за монеты.\n" +
	"Монеты начисляются после оплаты криптовалютой через «Пополнить баланс»."

func (h Handler) StartCommandHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	ctxWithTime, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	from := update.Message.From
	user, err := h.userRepository.GetOrCreate(ctxWithTime, from.ID,
		optional(from.Username), optional(from.FirstName), optional(from.LastName))
	if err != nil {
		slog.Error("error finding user by telegram id", "error", err)
		return
	}

	// Сообщение /start обрывает незавершённый диалог мастера.
	if err := h.wizards.Cancel(ctxWithTime, from.ID); err != nil {
		slog.Error("error cancelling wizard session", "error", err)
	}

	_, err = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    update.Message.Chat.ID,
		ParseMode: models.ParseModeHTML,
		ReplyMarkup: models.InlineKeyboardMarkup{
			InlineKeyboard: h.buildStartKeyboard(user.TelegramID),
		},
		Text: greetingText,
	})
	if err != nil {
		slog.Error("Error sending /start message", "error", err)
	}
}

func (h Handler) StartCallbackHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, b, update)
	chatId, messageId, ok := callbackChat(update)
	if !ok {
		return
	}

	_, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    chatId,
		MessageID: messageId,
		ParseMode: models.ParseModeHTML,
		ReplyMarkup: models.InlineKeyboardMarkup{
			InlineKeyboard: h.buildStartKeyboard(update.CallbackQuery.From.ID),
		},
		Text: greetingText,
	})
	if err != nil {
		slog.Error("Error sending start menu", "error", err)
	}
}

func (h Handler) HelpCallbackHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, b, update)
	chatId, messageId, ok := callbackChat(update)
	if !ok {
		return
	}

	text, helpKeyboard := buildHelpView()

	_, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    chatId,
		MessageID: messageId,
		ParseMode: models.ParseModeHTML,
		Text:      text,
		ReplyMarkup: models.InlineKeyboardMarkup{
			InlineKeyboard: helpKeyboard,
		},
	})
	if err != nil {
		slog.Error("Error sending help message", "error", err)
	}
}

// SupportCommandHandler отвечает на /support контактом администратора.
func (h Handler) SupportCommandHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	text := "Свяжитесь с поддержкой: " + config.AdminContact()
	if config.AdminContact() == "" {
		text = "Контакт поддержки не настроен."
	}
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   text,
	})
	if err != nil {
		slog.Error("Error sending support message", "error", err)
	}
}

func buildHelpView() (string, [][]models.InlineKeyboardButton) {
	text := "<b>Как пользоваться магазином</b>\n\n" +
		"1. Пополните баланс через «Пополнить баланс» — оплата криптовалютой.\n" +
		"2. Монеты зачислятся автоматически после подтверждения платежа.\n" +
		"3. Выберите товар в каталоге и оплатите его монетами.\n" +
		"4. Купленные файлы доступны в разделе «Мои покупки»."

	keyboard := [][]models.InlineKeyboardButton{}
	if config.AdminContact() != "" {
		keyboard = append(keyboard, []models.InlineKeyboardButton{
			{Text: "🆘 Поддержка", URL: config.AdminContact()},
		})
	}
	keyboard = append(keyboard, []models.InlineKeyboardButton{
		{Text: "⬅️ Назад", CallbackData: CallbackStart},
	})
	return text, keyboard
}

func (h Handler) buildStartKeyboard(telegramId int64) [][]models.InlineKeyboardButton {
	inlineKeyboard := [][]models.InlineKeyboardButton{
		{{Text: "🛍 Каталог", CallbackData: CallbackCatalog}},
		{
			{Text: "👤 Профиль", CallbackData: CallbackProfile},
			{Text: "💰 Пополнить баланс", CallbackData: CallbackTopup},
		},
		{{Text: "❓ Помощь", CallbackData: CallbackHelp}},
	}
	if config.IsAdmin(telegramId) {
		inlineKeyboard = append(inlineKeyboard, []models.InlineKeyboardButton{
			{Text: "⚙️ Админ-панель", CallbackData: CallbackAdmin},
		})
	}
	return inlineKeyboard
}

func formatCoins(amount float64) string {
	if amount == float64(int64(amount)) {
		return fmt.Sprintf("%d", int64(amount))
	}
	return fmt.Sprintf("%.2f", amount)
}
