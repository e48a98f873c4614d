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

	"coinshop-tg-bot/internal/broadcast"
	"coinshop-tg-bot/internal/database"
	"coinshop-tg-bot/internal/metrics"
	"coinshop-tg-bot/internal/wizard"
)

func (h *Handler) newsletterFlow() *wizard.Flow {
	return &wizard.Flow{
		Name:      flowNewsletter,
		AdminOnly: true,
		Steps: []wizard.Step{
			{
				Name:   "title",
				Prompt: "Введите название рассылки (видно только администраторам):",
				Apply: func(in wizard.Input, data map[string]string) error {
					title := strings.TrimSpace(in.Text)
					if title == "" {
						return errors.New("Название не может быть пустым.")
					}
					data["title"] = title
					return nil
				},
			},
			{
				Name:   "message",
				Prompt: "Введите текст рассылки:",
				Apply: func(in wizard.Input, data map[string]string) error {
					if strings.TrimSpace(in.Text) == "" {
						return errors.New("Текст не может быть пустым.")
					}
					data["message"] = in.Text
					return nil
				},
			},
			{
				Name:     "photo",
				Prompt:   "Отправьте изображение для рассылки (или skip):",
				Optional: true,
				Apply: func(in wizard.Input, data map[string]string) error {
					if in.PhotoID == "" {
						return errors.New("Нужно отправить изображение.")
					}
					data["photo"] = in.PhotoID
					return nil
				},
			},
			{
				Name:     "file",
				Prompt:   "Отправьте файл-вложение (или skip):",
				Optional: true,
				Apply: func(in wizard.Input, data map[string]string) error {
					if in.DocumentID == "" {
						return errors.New("Нужно отправить файл документом.")
					}
					data["file"] = in.DocumentID
					data["file_name"] = in.DocumentName
					return nil
				},
			},
			{
				Name:     "button",
				Prompt:   "Введите кнопку в формате «Текст | https://ссылка» (или skip):",
				Optional: true,
				Apply: func(in wizard.Input, data map[string]string) error {
					parts := strings.SplitN(in.Text, "|", 2)
					if len(parts) != 2 {
						return errors.New("Формат: Текст | https://ссылка")
					}
					text := strings.TrimSpace(parts[0])
					url := strings.TrimSpace(parts[1])
					if text == "" || !strings.HasPrefix(url, "http") {
						return errors.New("Формат: Текст | https://ссылка")
					}
					data["button_text"] = text
					data["button_url"] = url
					return nil
				},
			},
		},
		OnComplete: func(ctx context.Context, _ int64, data map[string]string) (string, error) {
			n := &database.Newsletter{
				Title:       data["title"],
				MessageText: data["message"],
			}
			if v, ok := data["photo"]; ok {
				n.PhotoID = &v
			}
			if v, ok := data["file"]; ok {
				n.FileID = &v
			}
			if v, ok := data["file_name"]; ok && v != "" {
				n.FileName = &v
			}
			if v, ok := data["button_text"]; ok {
				n.ButtonText = &v
			}
			if v, ok := data["button_url"]; ok {
				n.ButtonURL = &v
			}
			created, err := h.newsletterRepository.Create(ctx, n)
			if err != nil {
				return "", fmt.Errorf("failed to create newsletter: %w", err)
			}
			return fmt.Sprintf("Черновик рассылки <b>%s</b> сохранён (ID %d). "+
				"Запустить её можно из раздела «Рассылки».", created.Title, created.ID), nil
		},
	}
}

// AdminNewslettersCallbackHandler показывает список рассылок.
func (h Handler) AdminNewslettersCallbackHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, b, update)
	chatId, messageId, ok := callbackChat(update)
	if !ok {
		return
	}

	newsletters, err := h.newsletterRepository.GetAll(ctx)
	if err != nil {
		slog.Error("error loading newsletters", "error", err)
		return
	}

	var inlineKeyboard [][]models.InlineKeyboardButton
	for _, n := range newsletters {
		marker := "📝"
		switch n.Status {
		case database.NewsletterStatusSending:
			marker = "📤"
		case database.NewsletterStatusSent:
			marker = "✅"
		}
		inlineKeyboard = append(inlineKeyboard, []models.InlineKeyboardButton{
			{
				Text:         fmt.Sprintf("%s %s", marker, n.Title),
				CallbackData: CallbackNewsletterViewPrefix + strconv.FormatInt(n.ID, 10),
			},
		})
	}
	inlineKeyboard = append(inlineKeyboard,
		[]models.InlineKeyboardButton{{Text: "➕ Создать рассылку", CallbackData: CallbackNewsletterCreate}},
		[]models.InlineKeyboardButton{{Text: "⬅️ Назад", CallbackData: CallbackAdmin}},
	)

	_, err = b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    chatId,
		MessageID: messageId,
		ParseMode: models.ParseModeHTML,
		Text:      "<b>Рассылки</b>",
		ReplyMarkup: models.InlineKeyboardMarkup{
			InlineKeyboard: inlineKeyboard,
		},
	})
	if err != nil {
		slog.Error("Error sending newsletters list", "error", err)
	}
}

// NewsletterCreateCallbackHandler запускает мастер создания рассылки.
func (h Handler) NewsletterCreateCallbackHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.startWizardFromCallback(ctx, b, update, flowNewsletter)
}

// NewsletterViewCallbackHandler показывает карточку рассылки с предпросмотром.
func (h Handler) NewsletterViewCallbackHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, b, update)
	chatId, _, ok := callbackChat(update)
	if !ok {
		return
	}

	newsletterId, err := strconv.ParseInt(strings.TrimPrefix(update.CallbackQuery.Data, CallbackNewsletterViewPrefix), 10, 64)
	if err != nil {
		slog.Error("malformed newsletter view callback", "data", update.CallbackQuery.Data, "error", err)
		return
	}
	n, err := h.newsletterRepository.FindById(ctx, newsletterId)
	if err != nil || n == nil {
		slog.Error("error loading newsletter", "newsletterId", newsletterId, "error", err)
		return
	}

	// Предпросмотр: админ видит рассылку так, как её получит пользователь.
	if err := h.deliverNewsletter(ctx, b, chatId, n); err != nil {
		slog.Error("error sending newsletter preview", "newsletterId", newsletterId, "error", err)
	}

	text := fmt.Sprintf("<b>%s</b>\nСтатус: %s", n.Title, n.Status)
	if n.Status == database.NewsletterStatusSent {
		text += fmt.Sprintf("\n\nПолучателей: %d\nДоставлено: %d\nОшибок: %d\nВремя: %.1f с",
			n.RecipientsCount, n.SuccessCount, n.ErrorCount, n.SendTime)
	}

	inlineKeyboard := [][]models.InlineKeyboardButton{}
	if n.Status == database.NewsletterStatusDraft {
		inlineKeyboard = append(inlineKeyboard, []models.InlineKeyboardButton{
			{Text: "📤 Отправить всем", CallbackData: CallbackNewsletterSendPrefix + strconv.FormatInt(n.ID, 10)},
		})
	}
	inlineKeyboard = append(inlineKeyboard,
		[]models.InlineKeyboardButton{{Text: "🗑 Удалить", CallbackData: CallbackNewsletterDelPrefix + strconv.FormatInt(n.ID, 10)}},
		[]models.InlineKeyboardButton{{Text: "⬅️ Назад", CallbackData: CallbackAdminNewsletters}},
	)

	_, err = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatId,
		ParseMode: models.ParseModeHTML,
		Text:      text,
		ReplyMarkup: models.InlineKeyboardMarkup{
			InlineKeyboard: inlineKeyboard,
		},
	})
	if err != nil {
		slog.Error("Error sending newsletter card", "error", err)
	}
}

// NewsletterDeleteCallbackHandler удаляет рассылку.
func (h Handler) NewsletterDeleteCallbackHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, b, update)
	chatId, _, ok := callbackChat(update)
	if !ok {
		return
	}

	newsletterId, err := strconv.ParseInt(strings.TrimPrefix(update.CallbackQuery.Data, CallbackNewsletterDelPrefix), 10, 64)
	if err != nil {
		slog.Error("malformed newsletter delete callback", "data", update.CallbackQuery.Data, "error", err)
		return
	}
	if err := h.newsletterRepository.Delete(ctx, newsletterId); err != nil {
		slog.Error("error deleting newsletter", "newsletterId", newsletterId, "error", err)
		return
	}
	h.sendText(ctx, b, chatId, "Рассылка удалена.")
}

// NewsletterSendCallbackHandler запускает рассылку. Условный переход статуса
// в БД исключает повторный запуск той же рассылки.
func (h Handler) NewsletterSendCallbackHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, b, update)
	chatId, _, ok := callbackChat(update)
	if !ok {
		return
	}

	newsletterId, err := strconv.ParseInt(strings.TrimPrefix(update.CallbackQuery.Data, CallbackNewsletterSendPrefix), 10, 64)
	if err != nil {
		slog.Error("malformed newsletter send callback", "data", update.CallbackQuery.Data, "error", err)
		return
	}
	n, err := h.newsletterRepository.FindById(ctx, newsletterId)
	if err != nil || n == nil {
		slog.Error("error loading newsletter", "newsletterId", newsletterId, "error", err)
		return
	}

	if err := h.newsletterRepository.MarkSending(ctx, newsletterId); err != nil {
		if errors.Is(err, database.ErrNewsletterConflict) {
			h.sendText(ctx, b, chatId, "Эта рассылка уже отправляется или отправлена.")
			return
		}
		slog.Error("error marking newsletter sending", "newsletterId", newsletterId, "error", err)
		return
	}

	recipients, err := h.userRepository.GetAllTelegramIds(ctx)
	if err != nil {
		slog.Error("error loading recipients", "error", err)
		return
	}

	progressMsg, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatId,
		Text:   fmt.Sprintf("Рассылка начата. Получателей: %d", len(recipients)),
	})
	if err != nil {
		slog.Error("Error sending progress message", "error", err)
	}

	// Рассылка идёт в фоне: бот продолжает обрабатывать обновления.
	go h.runNewsletter(b, chatId, progressMsg, n, recipients)
}

func (h Handler) runNewsletter(b *bot.Bot, adminChatId int64, progressMsg *models.Message, n *database.Newsletter, recipients []int64) {
	ctx := context.Background()

	send := func(ctx context.Context, telegramId int64) error {
		err := h.deliverNewsletter(ctx, b, telegramId, n)
		if err != nil {
			metrics.NewsletterSent.WithLabelValues("error").Inc()
			return err
		}
		metrics.NewsletterSent.WithLabelValues("success").Inc()
		return nil
	}

	progress := func(done, total int) {
		if progressMsg == nil {
			return
		}
		_, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:    adminChatId,
			MessageID: progressMsg.ID,
			Text:      fmt.Sprintf("Рассылка: %d из %d (%d%%)", done, total, done*100/total),
		})
		if err != nil {
			slog.Error("error updating newsletter progress", "error", err)
		}
	}

	stats := broadcast.Fanout(ctx, recipients, send, progress)

	err := h.newsletterRepository.MarkSent(ctx, n.ID, database.NewsletterStats{
		RecipientsCount: stats.Recipients,
		SuccessCount:    stats.Success,
		ErrorCount:      stats.Errors,
		SendTime:        stats.Elapsed.Seconds(),
	})
	if err != nil {
		slog.Error("error marking newsletter sent", "newsletterId", n.ID, "error", err)
	}
	slog.Info("newsletter finished", "newsletterId", n.ID,
		"recipients", stats.Recipients, "success", stats.Success, "errors", stats.Errors,
		"elapsed", stats.Elapsed)

	h.sendText(ctx, b, adminChatId, fmt.Sprintf(
		"Рассылка <b>%s</b> завершена.\n\nПолучателей: %d\nДоставлено: %d\nОшибок: %d\nВремя: %.1f с",
		n.Title, stats.Recipients, stats.Success, stats.Errors, stats.Elapsed.Seconds()))
}

// deliverNewsletter отправляет рассылку одному получателю в зависимости
// от вложений: фото с подписью, документ или обычный текст.
func (h Handler) deliverNewsletter(ctx context.Context, b *bot.Bot, chatId int64, n *database.Newsletter) error {
	var markup models.ReplyMarkup
	if n.ButtonText != nil && n.ButtonURL != nil {
		markup = models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{
				{{Text: *n.ButtonText, URL: *n.ButtonURL}},
			},
		}
	}

	switch {
	case n.PhotoID != nil:
		_, err := b.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:      chatId,
			Photo:       &models.InputFileString{Data: *n.PhotoID},
			Caption:     n.MessageText,
			ParseMode:   models.ParseModeHTML,
			ReplyMarkup: markup,
		})
		return err
	case n.FileID != nil:
		_, err := b.SendDocument(ctx, &bot.SendDocumentParams{
			ChatID:      chatId,
			Document:    &models.InputFileString{Data: *n.FileID},
			Caption:     n.MessageText,
			ParseMode:   models.ParseModeHTML,
			ReplyMarkup: markup,
		})
		return err
	default:
		_, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:      chatId,
			Text:        n.MessageText,
			ParseMode:   models.ParseModeHTML,
			ReplyMarkup: markup,
		})
		return err
	}
}
