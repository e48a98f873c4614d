package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"coinshop-tg-bot/internal/balance"
	"coinshop-tg-bot/internal/database"
)

// BuyCallbackHandler показывает подтверждение покупки с текущей ценой.
func (h Handler) BuyCallbackHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, b, update)
	chatId, _, ok := callbackChat(update)
	if !ok {
		return
	}

	productId, err := strconv.ParseInt(strings.TrimPrefix(update.CallbackQuery.Data, CallbackBuyPrefix), 10, 64)
	if err != nil {
		slog.Error("malformed buy callback", "data", update.CallbackQuery.Data, "error", err)
		return
	}

	product, err := h.productRepository.FindById(ctx, productId)
	if err != nil {
		slog.Error("error loading product", "productId", productId, "error", err)
		return
	}
	if product == nil || !product.Available {
		h.sendText(ctx, b, chatId, "Этот товар больше недоступен.")
		return
	}

	user, err := h.userRepository.FindByTelegramId(ctx, update.CallbackQuery.From.ID)
	if err != nil || user == nil {
		slog.Error("error loading user before purchase", "error", err)
		return
	}

	text := fmt.Sprintf("Купить <b>%s</b> за %s 🪙?\n\nВаш баланс: %s 🪙",
		product.Title, formatCoins(product.Price), formatCoins(user.Balance))

	_, err = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatId,
		ParseMode: models.ParseModeHTML,
		Text:      text,
		ReplyMarkup: models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{
				{
					{Text: "✅ Подтвердить", CallbackData: CallbackBuyConfirmPrefix + strconv.FormatInt(product.ID, 10)},
					{Text: "❌ Отмена", CallbackData: CallbackCatalog},
				},
			},
		},
	})
	if err != nil {
		slog.Error("Error sending purchase confirmation", "error", err)
	}
}

// BuyConfirmCallbackHandler списывает монеты и выдаёт купленный файл.
// Цена берётся на момент подтверждения, а не показа карточки.
func (h Handler) BuyConfirmCallbackHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, b, update)
	chatId, _, ok := callbackChat(update)
	if !ok {
		return
	}
	telegramId := update.CallbackQuery.From.ID

	productId, err := strconv.ParseInt(strings.TrimPrefix(update.CallbackQuery.Data, CallbackBuyConfirmPrefix), 10, 64)
	if err != nil {
		slog.Error("malformed buy confirm callback", "data", update.CallbackQuery.Data, "error", err)
		return
	}

	purchase, err := h.balanceService.Purchase(ctx, telegramId, productId)
	if err != nil {
		switch {
		case errors.Is(err, balance.ErrProductUnavailable):
			h.sendText(ctx, b, chatId, "Этот товар больше недоступен.")
		case errors.Is(err, database.ErrInsufficientFunds):
			_, sendErr := b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID: chatId,
				Text:   "Недостаточно монет. Пополните баланс и попробуйте снова.",
				ReplyMarkup: models.InlineKeyboardMarkup{
					InlineKeyboard: [][]models.InlineKeyboardButton{
						{{Text: "💰 Пополнить баланс", CallbackData: CallbackTopup}},
					},
				},
			})
			if sendErr != nil {
				slog.Error("Error sending insufficient funds message", "error", sendErr)
			}
		case errors.Is(err, database.ErrUserNotFound):
			h.sendText(ctx, b, chatId, "Отправьте /start, чтобы начать работу с ботом.")
		default:
			slog.Error("error processing purchase", "telegramId", telegramId, "productId", productId, "error", err)
			h.sendText(ctx, b, chatId, "Не удалось оформить покупку. Попробуйте позже.")
		}
		return
	}

	user, err := h.userRepository.FindByTelegramId(ctx, telegramId)
	if err != nil || user == nil {
		slog.Error("error loading user after purchase", "error", err)
		return
	}

	h.sendText(ctx, b, chatId, fmt.Sprintf("Покупка оформлена: <b>%s</b>\nСписано: %s 🪙\nОстаток: %s 🪙",
		purchase.ProductTitle, formatCoins(purchase.PurchasePrice), formatCoins(user.Balance)))

	if purchase.ProductFileID != nil {
		_, err = b.SendDocument(ctx, &bot.SendDocumentParams{
			ChatID:   chatId,
			Document: &models.InputFileString{Data: *purchase.ProductFileID},
			Caption:  purchase.ProductTitle,
		})
		if err != nil {
			slog.Error("error delivering purchased file", "purchaseId", purchase.ID, "error", err)
			h.sendText(ctx, b, chatId, "Файл не отправился. Он остаётся доступен в «Мои покупки».")
		}
	}
}

func (h Handler) sendText(ctx context.Context, b *bot.Bot, chatId int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatId,
		ParseMode: models.ParseModeHTML,
		Text:      text,
	})
	if err != nil {
		slog.Error("Error sending message", "chatId", chatId, "error", err)
	}
}
