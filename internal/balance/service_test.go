package balance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coinshop-tg-bot/internal/database"
)

type fakeStore struct {
	balances  map[int64]float64
	products  map[int64]*database.Product
	purchases []database.Purchase
	nextId    int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		balances: make(map[int64]float64),
		products: make(map[int64]*database.Product),
	}
}

func (f *fakeStore) Credit(_ context.Context, telegramId int64, amount float64) (*database.User, error) {
	if _, ok := f.balances[telegramId]; !ok {
		return nil, database.ErrUserNotFound
	}
	f.balances[telegramId] += amount
	return &database.User{TelegramID: telegramId, Balance: f.balances[telegramId]}, nil
}

func (f *fakeStore) DebitAndRecord(_ context.Context, telegramId int64, product *database.Product) (*database.Purchase, error) {
	balance, ok := f.balances[telegramId]
	if !ok {
		return nil, database.ErrUserNotFound
	}
	if balance < product.Price {
		return nil, database.ErrInsufficientFunds
	}
	f.balances[telegramId] = balance - product.Price
	f.nextId++
	productId := product.ID
	purchase := database.Purchase{
		ID:            f.nextId,
		UserID:        telegramId,
		ProductID:     &productId,
		ProductTitle:  product.Title,
		ProductFileID: product.FileID,
		PurchasePrice: product.Price,
	}
	f.purchases = append(f.purchases, purchase)
	return &purchase, nil
}

func (f *fakeStore) FindById(_ context.Context, id int64) (*database.Product, error) {
	return f.products[id], nil
}

func TestPurchaseInsufficientFunds(t *testing.T) {
	store := newFakeStore()
	store.balances[100] = 0
	store.products[1] = &database.Product{ID: 1, Title: "Гайд", Price: 25, Available: true}
	service := NewService(store, store)

	_, err := service.Purchase(context.Background(), 100, 1)

	assert.ErrorIs(t, err, database.ErrInsufficientFunds)
	assert.Empty(t, store.purchases)
	assert.Equal(t, 0.0, store.balances[100])
}

func TestPurchaseDebitsBalance(t *testing.T) {
	store := newFakeStore()
	store.balances[100] = 100
	store.products[1] = &database.Product{ID: 1, Title: "Гайд", Price: 25, Available: true}
	service := NewService(store, store)

	first, err := service.Purchase(context.Background(), 100, 1)
	require.NoError(t, err)
	second, err := service.Purchase(context.Background(), 100, 1)
	require.NoError(t, err)

	assert.Equal(t, 50.0, store.balances[100])
	assert.Len(t, store.purchases, 2)
	assert.Equal(t, 25.0, first.PurchasePrice)
	assert.Equal(t, 25.0, second.PurchasePrice)
}

func TestPurchaseUnavailableProduct(t *testing.T) {
	store := newFakeStore()
	store.balances[100] = 100
	store.products[1] = &database.Product{ID: 1, Title: "Гайд", Price: 25, Available: false}
	service := NewService(store, store)

	_, err := service.Purchase(context.Background(), 100, 1)
	assert.ErrorIs(t, err, ErrProductUnavailable)

	_, err = service.Purchase(context.Background(), 100, 42)
	assert.ErrorIs(t, err, ErrProductUnavailable)
}

func TestPurchaseKeepsPriceSnapshot(t *testing.T) {
	store := newFakeStore()
	store.balances[100] = 100
	store.products[1] = &database.Product{ID: 1, Title: "Гайд", Price: 25, Available: true}
	service := NewService(store, store)

	purchase, err := service.Purchase(context.Background(), 100, 1)
	require.NoError(t, err)

	store.products[1].Price = 999

	assert.Equal(t, 25.0, purchase.PurchasePrice)
	assert.Equal(t, 25.0, store.purchases[0].PurchasePrice)
}

func TestCreditUnknownUser(t *testing.T) {
	store := newFakeStore()
	service := NewService(store, store)

	_, err := service.Credit(context.Background(), 777, 500)
	assert.ErrorIs(t, err, database.ErrUserNotFound)
}

func TestCreditIncreasesBalance(t *testing.T) {
	store := newFakeStore()
	store.balances[100] = 10
	service := NewService(store, store)

	user, err := service.Credit(context.Background(), 100, 500)
	require.NoError(t, err)
	assert.Equal(t, 510.0, user.Balance)
}
