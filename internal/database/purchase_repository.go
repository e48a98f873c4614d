package database

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

type PurchaseRepository struct {
	pool *pgxpool.Pool
}

func NewPurchaseRepository(pool *pgxpool.Pool) *PurchaseRepository {
	return &PurchaseRepository{pool: pool}
}

func purchaseInsertQuery(purchase *Purchase) (string, []interface{}, error) {
	return psql.Insert("purchases").
		Columns("user_id", "product_id", "product_title", "product_file_id", "purchase_price").
		Values(purchase.UserID, purchase.ProductID, purchase.ProductTitle,
			purchase.ProductFileID, purchase.PurchasePrice).
		Suffix("RETURNING id, purchase_date").
		ToSql()
}

// insertPurchaseTx вставляет запись о покупке в рамках внешней транзакции
// и заполняет её идентификатор и дату. Списание баланса и запись покупки
// идут одной транзакцией в BalanceRepository.DebitAndRecord.
func insertPurchaseTx(ctx context.Context, tx pgx.Tx, purchase *Purchase) error {
	query, args, err := purchaseInsertQuery(purchase)
	if err != nil {
		return err
	}
	return tx.QueryRow(ctx, query, args...).Scan(&purchase.ID, &purchase.PurchaseDate)
}

// FindByUserId возвращает покупки пользователя, новые первыми.
func (r *PurchaseRepository) FindByUserId(ctx context.Context, userId int64) ([]Purchase, error) {
	query, args, err := psql.Select("id", "user_id", "product_id", "product_title",
		"product_file_id", "purchase_price", "purchase_date").
		From("purchases").
		Where(sq.Eq{"user_id": userId}).
		OrderBy("purchase_date DESC").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var purchases []Purchase
	for rows.Next() {
		var p Purchase
		if err := rows.Scan(&p.ID, &p.UserID, &p.ProductID, &p.ProductTitle,
			&p.ProductFileID, &p.PurchasePrice, &p.PurchaseDate); err != nil {
			return nil, err
		}
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}

func (r *PurchaseRepository) CountAll(ctx context.Context) (int, error) {
	query, args, err := psql.Select("COUNT(*)").From("purchases").ToSql()
	if err != nil {
		return 0, err
	}
	var count int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// SumRevenue возвращает сумму всех списаний в монетах.
func (r *PurchaseRepository) SumRevenue(ctx context.Context) (float64, error) {
	query, args, err := psql.Select("COALESCE(SUM(purchase_price), 0)").From("purchases").ToSql()
	if err != nil {
		return 0, err
	}
	var total float64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
