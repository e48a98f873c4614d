package handler

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"coinshop-tg-bot/internal/balance"
	"coinshop-tg-bot/internal/config"
	"coinshop-tg-bot/internal/cryptocloud"
	"coinshop-tg-bot/internal/database"
	"coinshop-tg-bot/internal/wizard"
)

type Handler struct {
	userRepository       *database.UserRepository
	categoryRepository   *database.CategoryRepository
	productRepository    *database.ProductRepository
	purchaseRepository   *database.PurchaseRepository
	newsletterRepository *database.NewsletterRepository
	invoiceRepository    *database.InvoiceRepository
	balanceService       *balance.Service
	cryptoClient         *cryptocloud.Client
	wizards              *wizard.Engine
}

func NewHandler(
	balanceService *balance.Service,
	userRepository *database.UserRepository,
	categoryRepository *database.CategoryRepository,
	productRepository *database.ProductRepository,
	purchaseRepository *database.PurchaseRepository,
	newsletterRepository *database.NewsletterRepository,
	invoiceRepository *database.InvoiceRepository,
	cryptoClient *cryptocloud.Client,
	wizards *wizard.Engine) *Handler {
	h := &Handler{
		balanceService:       balanceService,
		userRepository:       userRepository,
		categoryRepository:   categoryRepository,
		productRepository:    productRepository,
		purchaseRepository:   purchaseRepository,
		newsletterRepository: newsletterRepository,
		invoiceRepository:    invoiceRepository,
		cryptoClient:         cryptoClient,
		wizards:              wizards,
	}
	h.registerWizards()
	return h
}

// CreateUserIfNotExistMiddleware заводит пользователя при первом обращении
// и освежает отметку активности на каждом обновлении.
func (h Handler) CreateUserIfNotExistMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		from := updateFrom(update)
		if from == nil {
			return
		}
		_, err := h.userRepository.GetOrCreate(ctx, from.ID,
			optional(from.Username), optional(from.FirstName), optional(from.LastName))
		if err != nil {
			slog.Error("error ensuring user exists", "telegramId", from.ID, "error", err)
			return
		}
		next(ctx, b, update)
	}
}

// IsAdminMiddleware пропускает обновление только от администратора.
func IsAdminMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		from := updateFrom(update)
		if from == nil || !config.IsAdmin(from.ID) {
			return
		}
		next(ctx, b, update)
	}
}

func updateFrom(update *models.Update) *models.User {
	if update.Message != nil {
		return update.Message.From
	}
	if update.CallbackQuery != nil {
		return &update.CallbackQuery.From
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (h Handler) answerCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	_, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: update.CallbackQuery.ID,
	})
	if err != nil {
		slog.Error("error answering callback query", "error", err)
	}
}

// callbackChat возвращает чат, в котором была нажата inline-кнопка.
func callbackChat(update *models.Update) (chatId int64, messageId int, ok bool) {
	if update.CallbackQuery == nil || update.CallbackQuery.Message.Message == nil {
		return 0, 0, false
	}
	msg := update.CallbackQuery.Message.Message
	return msg.Chat.ID, msg.ID, true
}
