package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"coinshop-tg-bot/internal/config"
	"coinshop-tg-bot/internal/cryptocloud"
	"coinshop-tg-bot/internal/metrics"
	"coinshop-tg-bot/internal/payment"
)

// TopupCallbackHandler показывает пакеты пополнения.
func (h Handler) TopupCallbackHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, b, update)
	chatId, messageId, ok := callbackChat(update)
	if !ok {
		return
	}

	text, inlineKeyboard := buildTopupView()

	_, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    chatId,
		MessageID: messageId,
		ParseMode: models.ParseModeHTML,
		Text:      text,
		ReplyMarkup: models.InlineKeyboardMarkup{
			InlineKeyboard: inlineKeyboard,
		},
	})
	if err != nil {
		slog.Error("Error sending topup packages", "error", err)
	}
}

func buildTopupView() (string, [][]models.InlineKeyboardButton) {
	if !config.IsCryptoCloudEnabled() {
		return "Пополнение временно недоступно: оплата не настроена.",
			[][]models.InlineKeyboardButton{
				{{Text: "⬅️ Назад", CallbackData: CallbackStart}},
			}
	}

	var inlineKeyboard [][]models.InlineKeyboardButton
	for _, pkg := range payment.Packages {
		inlineKeyboard = append(inlineKeyboard, []models.InlineKeyboardButton{
			{
				Text:         fmt.Sprintf("%s 🪙 — $%s", formatCoins(pkg.Coins), formatCoins(pkg.PriceUSD)),
				CallbackData: CallbackTopupPrefix + formatCoins(pkg.Coins),
			},
		})
	}
	inlineKeyboard = append(inlineKeyboard, []models.InlineKeyboardButton{
		{Text: "⬅️ Назад", CallbackData: CallbackStart},
	})
	return "<b>Пополнение баланса</b>\n\nВыберите пакет монет. Оплата в криптовалюте.", inlineKeyboard
}

// TopupPackageCallbackHandler подтверждает выбранный пакет.
func (h Handler) TopupPackageCallbackHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, b, update)
	chatId, messageId, ok := callbackChat(update)
	if !ok {
		return
	}

	pkg, ok2 := parsePackageCallback(update.CallbackQuery.Data, CallbackTopupPrefix)
	if !ok2 {
		slog.Error("malformed topup callback", "data", update.CallbackQuery.Data)
		return
	}

	_, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    chatId,
		MessageID: messageId,
		ParseMode: models.ParseModeHTML,
		Text: fmt.Sprintf("Пакет: <b>%s 🪙</b>\nК оплате: <b>$%s</b>\n\nВыставить счёт?",
			formatCoins(pkg.Coins), formatCoins(pkg.PriceUSD)),
		ReplyMarkup: models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{
				{
					{Text: "✅ Выставить счёт", CallbackData: CallbackTopupConfirmPrefix + formatCoins(pkg.Coins)},
					{Text: "❌ Отмена", CallbackData: CallbackTopup},
				},
			},
		},
	})
	if err != nil {
		slog.Error("Error sending topup confirmation", "error", err)
	}
}

// TopupInvoiceCallbackHandler выставляет счёт в CryptoCloud и отправляет
// ссылку на оплату. Монеты зачислит вебхук после подтверждения платежа.
func (h Handler) TopupInvoiceCallbackHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, b, update)
	chatId, _, ok := callbackChat(update)
	if !ok {
		return
	}
	telegramId := update.CallbackQuery.From.ID

	pkg, ok2 := parsePackageCallback(update.CallbackQuery.Data, CallbackTopupConfirmPrefix)
	if !ok2 {
		slog.Error("malformed topup confirm callback", "data", update.CallbackQuery.Data)
		return
	}

	ctxWithTime, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	orderId := payment.NewOrderId(telegramId)
	invoice, err := h.cryptoClient.CreateInvoice(ctxWithTime, pkg.PriceUSD, orderId, pkg.Coins)
	if err != nil {
		slog.Error("error creating invoice", "telegramId", telegramId, "orderId", orderId, "error", err)
		h.sendText(ctx, b, chatId, "Не удалось выставить счёт. Попробуйте позже.")
		return
	}
	slog.Info("invoice created", "telegramId", telegramId, "orderId", orderId, "invoiceId", invoice.UUID)

	_, err = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatId,
		ParseMode: models.ParseModeHTML,
		Text: fmt.Sprintf("Счёт на <b>$%s</b> выставлен.\n\nПосле оплаты монеты зачислятся автоматически. "+
			"Если зачисление задерживается, нажмите «Проверить оплату».", formatCoins(pkg.PriceUSD)),
		ReplyMarkup: models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{
				{{Text: "💳 Оплатить", URL: invoice.Link}},
				{{Text: "🔄 Проверить оплату", CallbackData: CallbackCheckPrefix + invoice.UUID}},
			},
		},
	})
	if err != nil {
		slog.Error("Error sending invoice link", "error", err)
	}
}

// CheckPaymentCallbackHandler проверяет счёт вручную. Если оплата прошла,
// а вебхук ещё не дошёл, монеты зачисляются здесь тем же идемпотентным путём.
func (h Handler) CheckPaymentCallbackHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, b, update)
	chatId, _, ok := callbackChat(update)
	if !ok {
		return
	}
	telegramId := update.CallbackQuery.From.ID
	invoiceUUID := strings.TrimPrefix(update.CallbackQuery.Data, CallbackCheckPrefix)

	h.checkInvoice(ctx, b, chatId, telegramId, invoiceUUID)
}

func (h Handler) checkInvoice(ctx context.Context, b *bot.Bot, chatId int64, telegramId int64, invoiceUUID string) {
	processed, err := h.invoiceRepository.IsProcessed(ctx, invoiceUUID)
	if err != nil {
		slog.Error("error checking invoice", "invoiceId", invoiceUUID, "error", err)
		return
	}
	if processed {
		h.sendText(ctx, b, chatId, "Этот платёж уже зачислен. Баланс можно посмотреть в профиле.")
		return
	}

	ctxWithTime, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	status, err := h.cryptoClient.GetInvoiceStatus(ctxWithTime, invoiceUUID)
	if err != nil {
		slog.Error("error fetching invoice status", "invoiceId", invoiceUUID, "error", err)
		h.sendText(ctx, b, chatId, "Не удалось проверить оплату. Попробуйте позже.")
		return
	}

	if !cryptocloud.IsPaidStatus(status.Status) {
		h.sendText(ctx, b, chatId, "Оплата ещё не поступила. Попробуйте проверить через пару минут.")
		return
	}

	// Счёт зачисляется только его владельцу: идентификатор заказа должен
	// разбираться в того же пользователя, который запросил проверку.
	owner, err := invoiceOwner(status.OrderID)
	if err != nil {
		slog.Warn("manual check on invoice with undecodable order id",
			"invoiceId", invoiceUUID, "orderId", status.OrderID, "error", err)
		h.sendText(ctx, b, chatId, "Оплата найдена, зачисление выполнит сервер в течение нескольких минут.")
		return
	}
	if owner != telegramId {
		slog.Warn("manual check on foreign invoice",
			"invoiceId", invoiceUUID, "owner", owner, "requester", telegramId)
		h.sendText(ctx, b, chatId, "Этот счёт выставлен другому пользователю.")
		return
	}

	// Ручная проверка не возвращает add_fields счёта, поэтому число монет
	// восстанавливается по сумме оплаты через таблицу пакетов.
	pkg, ok2 := payment.PackageByUSD(status.Amount)
	if !ok2 {
		h.sendText(ctx, b, chatId, "Оплата найдена, зачисление выполнит сервер в течение нескольких минут.")
		return
	}

	// Тот же резерв, что и у вебхука: начисление происходит только если
	// вставка счёта выиграна, гонка с вебхуком невозможна.
	reserved, err := h.invoiceRepository.Reserve(ctx, invoiceUUID, owner, pkg.Coins)
	if err != nil {
		slog.Error("error reserving invoice", "invoiceId", invoiceUUID, "error", err)
		return
	}
	if !reserved {
		h.sendText(ctx, b, chatId, "Этот платёж уже зачислен. Баланс можно посмотреть в профиле.")
		return
	}

	user, err := h.balanceService.Credit(ctx, owner, pkg.Coins)
	if err != nil {
		slog.Error("error crediting after manual check", "invoiceId", invoiceUUID, "error", err)
		if releaseErr := h.invoiceRepository.Release(ctx, invoiceUUID); releaseErr != nil {
			slog.Error("error releasing invoice reservation", "invoiceId", invoiceUUID, "error", releaseErr)
		}
		return
	}
	metrics.CoinsCredited.Add(pkg.Coins)

	h.sendText(ctx, b, chatId, fmt.Sprintf("Оплата подтверждена! Зачислено %s 🪙.\nВаш баланс: %s 🪙",
		formatCoins(pkg.Coins), formatCoins(user.Balance)))
}

// invoiceOwner возвращает пользователя, которому был выставлен счёт,
// по его идентификатору заказа.
func invoiceOwner(orderId string) (int64, error) {
	order, err := payment.ParseOrderId(orderId)
	if err != nil {
		return 0, err
	}
	return order.TelegramID, nil
}

func parsePackageCallback(data, prefix string) (payment.Package, bool) {
	coins, err := strconv.ParseFloat(strings.TrimPrefix(data, prefix), 64)
	if err != nil {
		return payment.Package{}, false
	}
	return payment.PackageByCoins(coins)
}

