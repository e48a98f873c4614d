package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"coinshop-tg-bot/internal/database"
	"coinshop-tg-bot/internal/wizard"
)

const (
	flowAddProduct    = "add_product"
	flowEditProduct   = "edit_product"
	flowAddCategory   = "add_category"
	flowAdjustBalance = "adjust_balance"
	flowNewsletter    = "newsletter"
)

func (h *Handler) registerWizards() {
	h.wizards.Register(h.addProductFlow())
	h.wizards.Register(h.editProductFlow())
	h.wizards.Register(h.addCategoryFlow())
	h.wizards.Register(h.adjustBalanceFlow())
	h.wizards.Register(h.newsletterFlow())
}

func (h *Handler) addProductFlow() *wizard.Flow {
	return &wizard.Flow{
		Name:      flowAddProduct,
		AdminOnly: true,
		Steps: []wizard.Step{
			{
				Name:   "title",
				Prompt: "Введите название товара:",
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
				Name:     "description",
				Prompt:   "Введите описание товара (или skip):",
				Optional: true,
				Apply: func(in wizard.Input, data map[string]string) error {
					data["description"] = strings.TrimSpace(in.Text)
					return nil
				},
			},
			{
				Name:   "price",
				Prompt: "Введите цену в монетах:",
				Apply: func(in wizard.Input, data map[string]string) error {
					price, err := strconv.ParseFloat(strings.TrimSpace(in.Text), 64)
					if err != nil || price <= 0 {
						return errors.New("Цена должна быть положительным числом.")
					}
					data["price"] = strconv.FormatFloat(price, 'f', -1, 64)
					return nil
				},
			},
			{
				Name:     "category",
				Prompt:   "Введите название категории (или skip, чтобы оставить без категории):",
				Optional: true,
				Apply: func(in wizard.Input, data map[string]string) error {
					name := strings.TrimSpace(in.Text)
					if name == "" {
						return errors.New("Название категории не может быть пустым.")
					}
					data["category"] = name
					return nil
				},
			},
			{
				Name:     "preview",
				Prompt:   "Отправьте превью-изображение товара (или skip):",
				Optional: true,
				Apply: func(in wizard.Input, data map[string]string) error {
					if in.PhotoID == "" {
						return errors.New("Нужно отправить изображение.")
					}
					data["preview"] = in.PhotoID
					return nil
				},
			},
			{
				Name:     "file",
				Prompt:   "Отправьте файл товара — его получит покупатель (или skip):",
				Optional: true,
				Apply: func(in wizard.Input, data map[string]string) error {
					if in.DocumentID == "" {
						return errors.New("Нужно отправить файл документом.")
					}
					data["file"] = in.DocumentID
					return nil
				},
			},
			{
				Name:   "available",
				Prompt: "Сделать товар доступным сразу? (да/нет)",
				Apply: func(in wizard.Input, data map[string]string) error {
					switch strings.ToLower(strings.TrimSpace(in.Text)) {
					case "да", "yes":
						data["available"] = "true"
					case "нет", "no":
						data["available"] = "false"
					default:
						return errors.New("Ответьте «да» или «нет».")
					}
					return nil
				},
			},
		},
		OnComplete: func(ctx context.Context, _ int64, data map[string]string) (string, error) {
			price, _ := strconv.ParseFloat(data["price"], 64)
			product := &database.Product{
				Title:     data["title"],
				Price:     price,
				Available: data["available"] == "true",
			}
			if v, ok := data["description"]; ok && v != "" {
				product.Description = &v
			}
			if v, ok := data["preview"]; ok {
				product.PreviewImageID = &v
			}
			if v, ok := data["file"]; ok {
				product.FileID = &v
			}
			if name, ok := data["category"]; ok {
				category, err := h.categoryRepository.FindByName(ctx, name)
				if err != nil {
					return "", err
				}
				if category == nil {
					category, err = h.categoryRepository.Create(ctx, name)
					if err != nil {
						return "", err
					}
				}
				product.CategoryID = &category.ID
			}

			created, err := h.productRepository.Create(ctx, product)
			if err != nil {
				return "", fmt.Errorf("failed to create product: %w", err)
			}
			return fmt.Sprintf("Товар <b>%s</b> сохранён (ID %d).", created.Title, created.ID), nil
		},
	}
}

// editProductFlow повторяет шаги добавления товара, но каждый шаг
// необязательный: skip оставляет текущее значение, заполненное при
// старте диалога из карточки товара.
func (h *Handler) editProductFlow() *wizard.Flow {
	return &wizard.Flow{
		Name:      flowEditProduct,
		AdminOnly: true,
		Steps: []wizard.Step{
			{
				Name:     "title",
				Prompt:   "Введите новое название товара (или skip, чтобы оставить прежнее):",
				Optional: true,
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
				Name:     "description",
				Prompt:   "Введите новое описание (или skip):",
				Optional: true,
				Apply: func(in wizard.Input, data map[string]string) error {
					data["description"] = strings.TrimSpace(in.Text)
					return nil
				},
			},
			{
				Name:     "price",
				Prompt:   "Введите новую цену в монетах (или skip):",
				Optional: true,
				Apply: func(in wizard.Input, data map[string]string) error {
					price, err := strconv.ParseFloat(strings.TrimSpace(in.Text), 64)
					if err != nil || price <= 0 {
						return errors.New("Цена должна быть положительным числом.")
					}
					data["price"] = strconv.FormatFloat(price, 'f', -1, 64)
					return nil
				},
			},
			{
				Name:     "category",
				Prompt:   "Введите новую категорию (или skip):",
				Optional: true,
				Apply: func(in wizard.Input, data map[string]string) error {
					name := strings.TrimSpace(in.Text)
					if name == "" {
						return errors.New("Название категории не может быть пустым.")
					}
					data["category"] = name
					return nil
				},
			},
			{
				Name:     "preview",
				Prompt:   "Отправьте новое превью-изображение (или skip):",
				Optional: true,
				Apply: func(in wizard.Input, data map[string]string) error {
					if in.PhotoID == "" {
						return errors.New("Нужно отправить изображение.")
					}
					data["preview"] = in.PhotoID
					return nil
				},
			},
			{
				Name:     "file",
				Prompt:   "Отправьте новый файл товара (или skip):",
				Optional: true,
				Apply: func(in wizard.Input, data map[string]string) error {
					if in.DocumentID == "" {
						return errors.New("Нужно отправить файл документом.")
					}
					data["file"] = in.DocumentID
					return nil
				},
			},
			{
				Name:     "available",
				Prompt:   "Товар доступен? (да/нет, или skip):",
				Optional: true,
				Apply: func(in wizard.Input, data map[string]string) error {
					switch strings.ToLower(strings.TrimSpace(in.Text)) {
					case "да", "yes":
						data["available"] = "true"
					case "нет", "no":
						data["available"] = "false"
					default:
						return errors.New("Ответьте «да» или «нет».")
					}
					return nil
				},
			},
		},
		OnComplete: func(ctx context.Context, _ int64, data map[string]string) (string, error) {
			productId, err := strconv.ParseInt(data["id"], 10, 64)
			if err != nil {
				return "", fmt.Errorf("malformed product id in session: %w", err)
			}
			product, err := h.productRepository.FindById(ctx, productId)
			if err != nil {
				return "", err
			}
			if product == nil {
				return "Товар уже удалён.", nil
			}

			price, _ := strconv.ParseFloat(data["price"], 64)
			product.Title = data["title"]
			product.Price = price
			product.Available = data["available"] == "true"
			product.Description = nil
			if v, ok := data["description"]; ok && v != "" {
				product.Description = &v
			}
			if v, ok := data["preview"]; ok {
				product.PreviewImageID = &v
			}
			if v, ok := data["file"]; ok {
				product.FileID = &v
			}
			if name, ok := data["category"]; ok {
				category, err := h.categoryRepository.FindByName(ctx, name)
				if err != nil {
					return "", err
				}
				if category == nil {
					category, err = h.categoryRepository.Create(ctx, name)
					if err != nil {
						return "", err
					}
				}
				product.CategoryID = &category.ID
			}

			if err := h.productRepository.Update(ctx, product); err != nil {
				return "", fmt.Errorf("failed to update product: %w", err)
			}
			return fmt.Sprintf("Товар <b>%s</b> обновлён.", product.Title), nil
		},
	}
}

// editProductSeed переносит текущие значения товара в данные диалога,
// чтобы пропущенные шаги оставили их без изменений.
func editProductSeed(product *database.Product) map[string]string {
	seed := map[string]string{
		"id":        strconv.FormatInt(product.ID, 10),
		"title":     product.Title,
		"price":     strconv.FormatFloat(product.Price, 'f', -1, 64),
		"available": strconv.FormatBool(product.Available),
	}
	if product.Description != nil {
		seed["description"] = *product.Description
	}
	if product.PreviewImageID != nil {
		seed["preview"] = *product.PreviewImageID
	}
	if product.FileID != nil {
		seed["file"] = *product.FileID
	}
	if product.CategoryName != nil {
		seed["category"] = *product.CategoryName
	}
	return seed
}

func (h *Handler) addCategoryFlow() *wizard.Flow {
	return &wizard.Flow{
		Name:      flowAddCategory,
		AdminOnly: true,
		Steps: []wizard.Step{
			{
				Name:   "name",
				Prompt: "Введите название новой категории:",
				Apply: func(in wizard.Input, data map[string]string) error {
					name := strings.TrimSpace(in.Text)
					if name == "" {
						return errors.New("Название не может быть пустым.")
					}
					data["name"] = name
					return nil
				},
			},
		},
		OnComplete: func(ctx context.Context, _ int64, data map[string]string) (string, error) {
			existing, err := h.categoryRepository.FindByName(ctx, data["name"])
			if err != nil {
				return "", err
			}
			if existing != nil {
				return fmt.Sprintf("Категория <b>%s</b> уже существует.", existing.Name), nil
			}
			category, err := h.categoryRepository.Create(ctx, data["name"])
			if err != nil {
				return "", fmt.Errorf("failed to create category: %w", err)
			}
			return fmt.Sprintf("Категория <b>%s</b> создана.", category.Name), nil
		},
	}
}

func (h *Handler) adjustBalanceFlow() *wizard.Flow {
	return &wizard.Flow{
		Name:      flowAdjustBalance,
		AdminOnly: true,
		Steps: []wizard.Step{
			{
				Name:   "username",
				Prompt: "Введите username пользователя (без @):",
				Apply: func(in wizard.Input, data map[string]string) error {
					username := strings.TrimPrefix(strings.TrimSpace(in.Text), "@")
					if username == "" {
						return errors.New("Username не может быть пустым.")
					}
					data["username"] = username
					return nil
				},
			},
			{
				Name:   "amount",
				Prompt: "Введите число монет для начисления:",
				Apply: func(in wizard.Input, data map[string]string) error {
					amount, err := strconv.ParseFloat(strings.TrimSpace(in.Text), 64)
					if err != nil || amount <= 0 {
						return errors.New("Число монет должно быть положительным.")
					}
					data["amount"] = strconv.FormatFloat(amount, 'f', -1, 64)
					return nil
				},
			},
		},
		OnComplete: func(ctx context.Context, _ int64, data map[string]string) (string, error) {
			user, err := h.userRepository.FindByUsername(ctx, data["username"])
			if err != nil {
				return "", err
			}
			if user == nil {
				return fmt.Sprintf("Пользователь @%s не найден. Он должен хотя бы раз написать боту.", data["username"]), nil
			}
			amount, _ := strconv.ParseFloat(data["amount"], 64)
			updated, err := h.balanceService.Credit(ctx, user.TelegramID, amount)
			if err != nil {
				return "", fmt.Errorf("failed to credit balance: %w", err)
			}
			return fmt.Sprintf("Начислено %s 🪙 пользователю @%s. Новый баланс: %s 🪙",
				formatCoins(amount), data["username"], formatCoins(updated.Balance)), nil
		},
	}
}
