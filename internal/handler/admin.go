package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// AdminCallbackHandler показывает админ-панель.
func (h Handler) AdminCallbackHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, b, update)
	chatId, messageId, ok := callbackChat(update)
	if !ok {
		return
	}

	_, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    chatId,
		MessageID: messageId,
		ParseMode: models.ParseModeHTML,
		Text:      "<b>Админ-панель</b>",
		ReplyMarkup: models.InlineKeyboardMarkup{
			InlineKeyboard: adminPanelKeyboard(),
		},
	})
	if err != nil {
		slog.Error("Error sending admin panel", "error", err)
	}
}

func adminPanelKeyboard() [][]models.InlineKeyboardButton {
	return [][]models.InlineKeyboardButton{
		{{Text: "📦 Товары", CallbackData: CallbackAdminProducts}},
		{{Text: "🗂 Категории", CallbackData: CallbackAdminCategories}},
		{{Text: "💰 Начислить монеты", CallbackData: CallbackAdminBalance}},
		{{Text: "📣 Рассылки", CallbackData: CallbackAdminNewsletters}},
		{{Text: "📊 Статистика", CallbackData: CallbackAdminStats}},
		{{Text: "⬅️ Назад", CallbackData: CallbackStart}},
	}
}

// AdminProductsCallbackHandler показывает все товары со статусом доступности.
func (h Handler) AdminProductsCallbackHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, b, update)
	chatId, messageId, ok := callbackChat(update)
	if !ok {
		return
	}

	products, err := h.productRepository.GetAll(ctx)
	if err != nil {
		slog.Error("error loading products", "error", err)
		return
	}

	var inlineKeyboard [][]models.InlineKeyboardButton
	for _, product := range products {
		marker := "🔴"
		if product.Available {
			marker = "🟢"
		}
		inlineKeyboard = append(inlineKeyboard, []models.InlineKeyboardButton{
			{
				Text:         fmt.Sprintf("%s %s — %s 🪙", marker, product.Title, formatCoins(product.Price)),
				CallbackData: CallbackAdminTogglePrefix + strconv.FormatInt(product.ID, 10),
			},
			{
				Text:         "✏️",
				CallbackData: CallbackAdminEditPrefix + strconv.FormatInt(product.ID, 10),
			},
			{
				Text:         "🗑",
				CallbackData: CallbackAdminDeletePrefix + strconv.FormatInt(product.ID, 10),
			},
		})
	}
	inlineKeyboard = append(inlineKeyboard,
		[]models.InlineKeyboardButton{{Text: "➕ Добавить товар", CallbackData: CallbackAdminAddProduct}},
		[]models.InlineKeyboardButton{{Text: "⬅️ Назад", CallbackData: CallbackAdmin}},
	)

	_, err = b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    chatId,
		MessageID: messageId,
		ParseMode: models.ParseModeHTML,
		Text:      "<b>Товары</b>\n\nНажатие на товар переключает его доступность.",
		ReplyMarkup: models.InlineKeyboardMarkup{
			InlineKeyboard: inlineKeyboard,
		},
	})
	if err != nil {
		slog.Error("Error sending admin products", "error", err)
	}
}

// AdminToggleProductCallbackHandler переключает доступность товара.
func (h Handler) AdminToggleProductCallbackHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	productId, err := strconv.ParseInt(strings.TrimPrefix(update.CallbackQuery.Data, CallbackAdminTogglePrefix), 10, 64)
	if err != nil {
		slog.Error("malformed toggle callback", "data", update.CallbackQuery.Data, "error", err)
		return
	}

	product, err := h.productRepository.FindById(ctx, productId)
	if err != nil || product == nil {
		slog.Error("error loading product for toggle", "productId", productId, "error", err)
		return
	}
	if err := h.productRepository.SetAvailable(ctx, productId, !product.Available); err != nil {
		slog.Error("error toggling product", "productId", productId, "error", err)
		return
	}
	slog.Info("product availability toggled", "productId", productId, "available", !product.Available)

	h.AdminProductsCallbackHandler(ctx, b, update)
}

// AdminDeleteProductCallbackHandler удаляет товар. История покупок сохраняется.
func (h Handler) AdminDeleteProductCallbackHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	productId, err := strconv.ParseInt(strings.TrimPrefix(update.CallbackQuery.Data, CallbackAdminDeletePrefix), 10, 64)
	if err != nil {
		slog.Error("malformed delete callback", "data", update.CallbackQuery.Data, "error", err)
		return
	}

	if err := h.productRepository.Delete(ctx, productId); err != nil {
		slog.Error("error deleting product", "productId", productId, "error", err)
		return
	}
	slog.Info("product deleted", "productId", productId)

	h.AdminProductsCallbackHandler(ctx, b, update)
}

// AdminCategoriesCallbackHandler показывает категории с кнопками удаления.
func (h Handler) AdminCategoriesCallbackHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, b, update)
	chatId, messageId, ok := callbackChat(update)
	if !ok {
		return
	}

	categories, err := h.categoryRepository.GetAll(ctx)
	if err != nil {
		slog.Error("error loading categories", "error", err)
		return
	}

	var inlineKeyboard [][]models.InlineKeyboardButton
	for _, category := range categories {
		inlineKeyboard = append(inlineKeyboard, []models.InlineKeyboardButton{
			{Text: category.Name, CallbackData: CallbackAdminCategories},
			{Text: "🗑", CallbackData: CallbackAdminDelCatPrefix + strconv.FormatInt(category.ID, 10)},
		})
	}
	inlineKeyboard = append(inlineKeyboard,
		[]models.InlineKeyboardButton{{Text: "➕ Добавить категорию", CallbackData: CallbackAdminAddCategory}},
		[]models.InlineKeyboardButton{{Text: "⬅️ Назад", CallbackData: CallbackAdmin}},
	)

	_, err = b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    chatId,
		MessageID: messageId,
		ParseMode: models.ParseModeHTML,
		Text:      "<b>Категории</b>\n\nПри удалении категории её товары остаются без категории.",
		ReplyMarkup: models.InlineKeyboardMarkup{
			InlineKeyboard: inlineKeyboard,
		},
	})
	if err != nil {
		slog.Error("Error sending admin categories", "error", err)
	}
}

// AdminDeleteCategoryCallbackHandler удаляет категорию.
func (h Handler) AdminDeleteCategoryCallbackHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	categoryId, err := strconv.ParseInt(strings.TrimPrefix(update.CallbackQuery.Data, CallbackAdminDelCatPrefix), 10, 64)
	if err != nil {
		slog.Error("malformed delete category callback", "data", update.CallbackQuery.Data, "error", err)
		return
	}

	if err := h.categoryRepository.Delete(ctx, categoryId); err != nil {
		slog.Error("error deleting category", "categoryId", categoryId, "error", err)
		return
	}
	slog.Info("category deleted", "categoryId", categoryId)

	h.AdminCategoriesCallbackHandler(ctx, b, update)
}

// AdminAddProductCallbackHandler запускает мастер добавления товара.
func (h Handler) AdminAddProductCallbackHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.startWizardFromCallback(ctx, b, update, flowAddProduct)
}

// AdminEditProductCallbackHandler запускает мастер редактирования товара.
// Диалог стартует с текущими значениями товара: skip оставляет их как есть.
func (h Handler) AdminEditProductCallbackHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, b, update)
	chatId, _, ok := callbackChat(update)
	if !ok {
		return
	}

	productId, err := strconv.ParseInt(strings.TrimPrefix(update.CallbackQuery.Data, CallbackAdminEditPrefix), 10, 64)
	if err != nil {
		slog.Error("malformed edit callback", "data", update.CallbackQuery.Data, "error", err)
		return
	}
	product, err := h.productRepository.FindById(ctx, productId)
	if err != nil || product == nil {
		slog.Error("error loading product for edit", "productId", productId, "error", err)
		return
	}

	prompt, err := h.wizards.StartWith(ctx, update.CallbackQuery.From.ID, flowEditProduct, editProductSeed(product))
	if err != nil {
		slog.Error("error starting edit wizard", "productId", productId, "error", err)
		return
	}

	_, err = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatId,
		ParseMode: models.ParseModeHTML,
		Text:      fmt.Sprintf("Редактирование товара <b>%s</b>.\n\n%s", product.Title, prompt),
		ReplyMarkup: models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{
				{{Text: "❌ Отменить", CallbackData: CallbackWizardCancel}},
			},
		},
	})
	if err != nil {
		slog.Error("Error sending edit wizard prompt", "error", err)
	}
}

// AdminAddCategoryCallbackHandler запускает мастер добавления категории.
func (h Handler) AdminAddCategoryCallbackHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.startWizardFromCallback(ctx, b, update, flowAddCategory)
}

// AdminBalanceCallbackHandler запускает мастер начисления монет.
func (h Handler) AdminBalanceCallbackHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.startWizardFromCallback(ctx, b, update, flowAdjustBalance)
}

func (h Handler) startWizardFromCallback(ctx context.Context, b *bot.Bot, update *models.Update, flowName string) {
	h.answerCallback(ctx, b, update)
	chatId, _, ok := callbackChat(update)
	if !ok {
		return
	}

	prompt, err := h.wizards.Start(ctx, update.CallbackQuery.From.ID, flowName)
	if err != nil {
		slog.Error("error starting wizard", "flow", flowName, "error", err)
		return
	}

	_, err = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatId,
		ParseMode: models.ParseModeHTML,
		Text:      prompt,
		ReplyMarkup: models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{
				{{Text: "❌ Отменить", CallbackData: CallbackWizardCancel}},
			},
		},
	})
	if err != nil {
		slog.Error("Error sending wizard prompt", "error", err)
	}
}

// WizardCancelCallbackHandler прерывает активный мастер.
func (h Handler) WizardCancelCallbackHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, b, update)
	chatId, _, ok := callbackChat(update)
	if !ok {
		return
	}
	if err := h.wizards.Cancel(ctx, update.CallbackQuery.From.ID); err != nil {
		slog.Error("error cancelling wizard", "error", err)
		return
	}
	h.sendText(ctx, b, chatId, "Действие отменено.")
}
