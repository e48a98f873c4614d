package database

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// BalanceRepository выполняет денежные операции над балансом пользователя.
// Все изменения баланса атомарны: списание проверяет достаточность средств
// тем же UPDATE, которым уменьшает баланс.
type BalanceRepository struct {
	pool *pgxpool.Pool
}

func NewBalanceRepository(pool *pgxpool.Pool) *BalanceRepository {
	return &BalanceRepository{pool: pool}
}

// creditQuery строит UPDATE начисления. Начисление считается активностью
// пользователя, поэтому вместе с балансом обновляется last_active.
func creditQuery(telegramId int64, amount float64) (string, []interface{}, error) {
	return psql.Update("users").
		Set("balance", sq.Expr("balance + ?", amount)).
		Set("last_active", sq.Expr("now()")).
		Where(sq.Eq{"telegram_id": telegramId}).
		Suffix("RETURNING " + userColumns).
		ToSql()
}

// Credit начисляет монеты и возвращает пользователя с новым балансом.
func (r *BalanceRepository) Credit(ctx context.Context, telegramId int64, amount float64) (*User, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("credit amount must be positive, got %f", amount)
	}
	query, args, err := creditQuery(telegramId, amount)
	if err != nil {
		return nil, err
	}
	user, err := scanUser(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// DebitAndRecord списывает цену товара и создаёт запись о покупке в одной
// транзакции. Условие balance >= price входит в сам UPDATE, поэтому две
// конкурентные покупки не могут увести баланс в минус.
func (r *BalanceRepository) DebitAndRecord(ctx context.Context, telegramId int64, product *Product) (*Purchase, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	query, args, err := psql.Update("users").
		Set("balance", sq.Expr("balance - ?", product.Price)).
		Where(sq.Eq{"telegram_id": telegramId}).
		Where(sq.GtOrEq{"balance": product.Price}).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, err
	}
	var userId int64
	err = tx.QueryRow(ctx, query, args...).Scan(&userId)
	if errors.Is(err, pgx.ErrNoRows) {
		// Либо пользователя нет, либо не хватает средств. Уточняем отдельным
		// запросом, чтобы вернуть осмысленную ошибку.
		exists, checkErr := r.userExists(ctx, telegramId)
		if checkErr != nil {
			return nil, checkErr
		}
		if !exists {
			return nil, ErrUserNotFound
		}
		return nil, ErrInsufficientFunds
	}
	if err != nil {
		return nil, err
	}

	purchase := &Purchase{
		UserID:        userId,
		ProductID:     &product.ID,
		ProductTitle:  product.Title,
		ProductFileID: product.FileID,
		PurchasePrice: product.Price,
	}
	if err := insertPurchaseTx(ctx, tx, purchase); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return purchase, nil
}

func (r *BalanceRepository) userExists(ctx context.Context, telegramId int64) (bool, error) {
	query, args, err := psql.Select("COUNT(*)").
		From("users").
		Where(sq.Eq{"telegram_id": telegramId}).
		ToSql()
	if err != nil {
		return false, err
	}
	var count int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
