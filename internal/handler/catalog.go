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

// Размер страницы каталога.
const productsPageSize = 5

// CatalogCallbackHandler показывает список категорий.
func (h Handler) CatalogCallbackHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, b, update)
	chatId, messageId, ok := callbackChat(update)
	if !ok {
		return
	}

	text, inlineKeyboard, err := h.buildCatalogView(ctx)
	if err != nil {
		slog.Error("error building catalog", "error", err)
		return
	}

	_, err = b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    chatId,
		MessageID: messageId,
		ParseMode: models.ParseModeHTML,
		Text:      text,
		ReplyMarkup: models.InlineKeyboardMarkup{
			InlineKeyboard: inlineKeyboard,
		},
	})
	if err != nil {
		slog.Error("Error sending catalog", "error", err)
	}
}

func (h Handler) buildCatalogView(ctx context.Context) (string, [][]models.InlineKeyboardButton, error) {
	categories, err := h.categoryRepository.GetAll(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load categories: %w", err)
	}

	var inlineKeyboard [][]models.InlineKeyboardButton
	for _, category := range categories {
		inlineKeyboard = append(inlineKeyboard, []models.InlineKeyboardButton{
			{Text: category.Name, CallbackData: productsCallback(category.ID, 0)},
		})
	}

	// Товары без категории показываются отдельным разделом, если они есть.
	uncategorized, err := h.productRepository.CountAvailableByCategory(ctx, nil)
	if err != nil {
		return "", nil, fmt.Errorf("failed to count uncategorized products: %w", err)
	}
	if uncategorized > 0 {
		inlineKeyboard = append(inlineKeyboard, []models.InlineKeyboardButton{
			{Text: "📦 Прочее", CallbackData: productsCallback(0, 0)},
		})
	}

	text := "<b>Каталог</b>\n\nВыберите категорию:"
	if len(inlineKeyboard) == 0 {
		text = "Каталог пока пуст. Загляните позже."
	}
	inlineKeyboard = append(inlineKeyboard, []models.InlineKeyboardButton{
		{Text: "⬅️ Назад", CallbackData: CallbackStart},
	})
	return text, inlineKeyboard, nil
}

// ProductsPageCallbackHandler показывает страницу товаров категории.
// Формат callback: products:<categoryId>:<page>, нулевая категория — без категории.
func (h Handler) ProductsPageCallbackHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, b, update)
	chatId, messageId, ok := callbackChat(update)
	if !ok {
		return
	}

	categoryId, page, err := parseProductsCallback(update.CallbackQuery.Data)
	if err != nil {
		slog.Error("malformed products callback", "data", update.CallbackQuery.Data, "error", err)
		return
	}

	total, err := h.productRepository.CountAvailableByCategory(ctx, categoryId)
	if err != nil {
		slog.Error("error counting products", "error", err)
		return
	}
	lastPage := 0
	if total > 0 {
		lastPage = (total - 1) / productsPageSize
	}
	if page > lastPage {
		page = lastPage
	}

	products, err := h.productRepository.FindAvailableByCategory(ctx, categoryId,
		productsPageSize, uint64(page*productsPageSize))
	if err != nil {
		slog.Error("error loading products page", "error", err)
		return
	}

	title := "📦 Прочее"
	if categoryId != nil {
		category, err := h.categoryRepository.FindById(ctx, *categoryId)
		if err != nil {
			slog.Error("error loading category", "error", err)
			return
		}
		if category != nil {
			title = category.Name
		}
	}

	var inlineKeyboard [][]models.InlineKeyboardButton
	for _, product := range products {
		inlineKeyboard = append(inlineKeyboard, []models.InlineKeyboardButton{
			{
				Text:         fmt.Sprintf("%s — %s 🪙", product.Title, formatCoins(product.Price)),
				CallbackData: CallbackProductPrefix + strconv.FormatInt(product.ID, 10),
			},
		})
	}

	if navRow := buildPageNav(categoryId, page, lastPage); navRow != nil {
		inlineKeyboard = append(inlineKeyboard, navRow)
	}
	inlineKeyboard = append(inlineKeyboard, []models.InlineKeyboardButton{
		{Text: "⬅️ К категориям", CallbackData: CallbackCatalog},
	})

	text := fmt.Sprintf("<b>%s</b>\n\nСтраница %d из %d", title, page+1, lastPage+1)
	if total == 0 {
		text = fmt.Sprintf("<b>%s</b>\n\nВ этой категории пока нет товаров.", title)
	}

	_, err = b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    chatId,
		MessageID: messageId,
		ParseMode: models.ParseModeHTML,
		Text:      text,
		ReplyMarkup: models.InlineKeyboardMarkup{
			InlineKeyboard: inlineKeyboard,
		},
	})
	if err != nil {
		slog.Error("Error sending products page", "error", err)
	}
}

// ProductCallbackHandler показывает карточку товара с кнопкой покупки.
func (h Handler) ProductCallbackHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, b, update)
	chatId, _, ok := callbackChat(update)
	if !ok {
		return
	}

	productId, err := strconv.ParseInt(strings.TrimPrefix(update.CallbackQuery.Data, CallbackProductPrefix), 10, 64)
	if err != nil {
		slog.Error("malformed product callback", "data", update.CallbackQuery.Data, "error", err)
		return
	}

	product, err := h.productRepository.FindById(ctx, productId)
	if err != nil {
		slog.Error("error loading product", "productId", productId, "error", err)
		return
	}
	if product == nil || !product.Available {
		_, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatId,
			Text:   "Этот товар больше недоступен.",
		})
		if err != nil {
			slog.Error("Error sending unavailable product message", "error", err)
		}
		return
	}

	caption := fmt.Sprintf("<b>%s</b>\n\n", product.Title)
	if product.Description != nil {
		caption += *product.Description + "\n\n"
	}
	caption += fmt.Sprintf("Цена: %s 🪙", formatCoins(product.Price))

	inlineKeyboard := [][]models.InlineKeyboardButton{
		{{Text: "🛒 Купить", CallbackData: CallbackBuyPrefix + strconv.FormatInt(product.ID, 10)}},
		{{Text: "⬅️ Назад", CallbackData: productsCallback(valueOrZero(product.CategoryID), 0)}},
	}

	if product.PreviewImageID != nil {
		_, err = b.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:    chatId,
			Photo:     &models.InputFileString{Data: *product.PreviewImageID},
			Caption:   caption,
			ParseMode: models.ParseModeHTML,
			ReplyMarkup: models.InlineKeyboardMarkup{
				InlineKeyboard: inlineKeyboard,
			},
		})
	} else {
		_, err = b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatId,
			ParseMode: models.ParseModeHTML,
			Text:      caption,
			ReplyMarkup: models.InlineKeyboardMarkup{
				InlineKeyboard: inlineKeyboard,
			},
		})
	}
	if err != nil {
		slog.Error("Error sending product card", "productId", productId, "error", err)
	}
}

func productsCallback(categoryId int64, page int) string {
	return fmt.Sprintf("%s%d:%d", CallbackProductsPrefix, categoryId, page)
}

func parseProductsCallback(data string) (*int64, int, error) {
	parts := strings.Split(strings.TrimPrefix(data, CallbackProductsPrefix), ":")
	if len(parts) != 2 {
		return nil, 0, fmt.Errorf("expected products:<categoryId>:<page>, got %q", data)
	}
	rawCategory, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, 0, err
	}
	page, err := strconv.Atoi(parts[1])
	if err != nil || page < 0 {
		return nil, 0, fmt.Errorf("invalid page in %q", data)
	}
	if rawCategory == 0 {
		return nil, page, nil
	}
	return &rawCategory, page, nil
}

func buildPageNav(categoryId *int64, page, lastPage int) []models.InlineKeyboardButton {
	catId := valueOrZero(categoryId)
	var row []models.InlineKeyboardButton
	if page > 0 {
		row = append(row, models.InlineKeyboardButton{
			Text: "⬅️", CallbackData: productsCallback(catId, page-1),
		})
	}
	if page < lastPage {
		row = append(row, models.InlineKeyboardButton{
			Text: "➡️", CallbackData: productsCallback(catId, page+1),
		})
	}
	return row
}

func valueOrZero(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}
