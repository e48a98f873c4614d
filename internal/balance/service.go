package balance

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"coinshop-tg-bot/internal/database"
	"coinshop-tg-bot/utils"
)

// ErrProductUnavailable возвращается при попытке купить отсутствующий
// или снятый с продажи товар.
var ErrProductUnavailable = errors.New("product unavailable")

const storeTimeout = 5 * time.Second

type moneyStore interface {
	Credit(ctx context.Context, telegramId int64, amount float64) (*database.User, error)
	DebitAndRecord(ctx context.Context, telegramId int64, product *database.Product) (*database.Purchase, error)
}

type productStore interface {
	FindById(ctx context.Context, id int64) (*database.Product, error)
}

// Service отвечает за движение монет: начисление при оплате и списание
// при покупке. Баланс меняется только через этот сервис.
type Service struct {
	money    moneyStore
	products productStore
}

func NewService(money moneyStore, products productStore) *Service {
	return &Service{money: money, products: products}
}

// Credit начисляет монеты пользователю и возвращает его новый баланс.
func (s *Service) Credit(ctx context.Context, telegramId int64, amount float64) (*database.User, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	user, err := s.money.Credit(ctx, telegramId, amount)
	if err != nil {
		return nil, err
	}
	slog.Info("balance credited",
		"telegramId", utils.MaskHalfInt64(telegramId), "amount", amount, "newBalance", user.Balance)
	return user, nil
}

// Purchase списывает цену товара с баланса и создаёт запись о покупке.
// Цена фиксируется на момент списания: правка товара после покупки
// не меняет её историю.
func (s *Service) Purchase(ctx context.Context, telegramId, productId int64) (*database.Purchase, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	product, err := s.products.FindById(ctx, productId)
	if err != nil {
		return nil, err
	}
	if product == nil || !product.Available {
		return nil, ErrProductUnavailable
	}

	purchase, err := s.money.DebitAndRecord(ctx, telegramId, product)
	if err != nil {
		return nil, err
	}
	slog.Info("purchase completed",
		"telegramId", utils.MaskHalfInt64(telegramId), "productId", productId, "price", purchase.PurchasePrice)
	return purchase, nil
}
