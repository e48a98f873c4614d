package handler

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"coinshop-tg-bot/internal/config"
	"coinshop-tg-bot/internal/wizard"
)

// WizardMessageHandler направляет обычные сообщения в активный диалог
// мастера. Сообщения вне диалога игнорируются.
func (h Handler) WizardMessageHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	message := update.Message
	if message == nil || message.From == nil {
		return
	}
	telegramId := message.From.ID

	input := wizard.Input{Text: message.Text}
	if input.Text == "" {
		input.Text = message.Caption
	}
	if len(message.Photo) > 0 {
		// Последний размер — самый крупный.
		input.PhotoID = message.Photo[len(message.Photo)-1].FileID
	}
	if message.Document != nil {
		input.DocumentID = message.Document.FileID
		input.DocumentName = message.Document.FileName
	}

	reply, handled, err := h.wizards.HandleInput(ctx, telegramId, config.IsAdmin(telegramId), input)
	if err != nil {
		slog.Error("wizard input failed", "telegramId", telegramId, "error", err)
		if handled {
			h.sendText(ctx, b, message.Chat.ID, "Что-то пошло не так. Начните действие заново из админ-панели.")
		}
		return
	}
	if !handled || reply == "" {
		return
	}

	h.sendText(ctx, b, message.Chat.ID, reply)
}
