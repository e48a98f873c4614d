package database

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4/pgxpool"
)

// InvoiceRepository хранит идентификаторы обработанных платёжных уведомлений,
// чтобы повторная доставка вебхука не начисляла монеты дважды.
type InvoiceRepository struct {
	pool *pgxpool.Pool
}

func NewInvoiceRepository(pool *pgxpool.Pool) *InvoiceRepository {
	return &InvoiceRepository{pool: pool}
}

func (r *InvoiceRepository) IsProcessed(ctx context.Context, invoiceId string) (bool, error) {
	query, args, err := psql.Select("COUNT(*)").
		From("processed_invoices").
		Where(sq.Eq{"invoice_id": invoiceId}).
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

func reserveQuery(invoiceId string, telegramId int64, coinAmount float64) (string, []interface{}, error) {
	return psql.Insert("processed_invoices").
		Columns("invoice_id", "telegram_id", "coin_amount").
		Values(invoiceId, telegramId, coinAmount).
		Suffix("ON CONFLICT (invoice_id) DO NOTHING").
		ToSql()
}

// Reserve закрепляет счёт за начислением до самого начисления. При гонке
// двух доставок одного уведомления вставка выигрывается ровно одной из них:
// ON CONFLICT по уникальному invoice_id превращает вторую в no-op, и она
// видит false.
func (r *InvoiceRepository) Reserve(ctx context.Context, invoiceId string, telegramId int64, coinAmount float64) (bool, error) {
	query, args, err := reserveQuery(invoiceId, telegramId, coinAmount)
	if err != nil {
		return false, err
	}
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Release снимает резерв, если начисление после него не удалось. Следующая
// доставка уведомления сможет выполнить начисление заново.
func (r *InvoiceRepository) Release(ctx context.Context, invoiceId string) error {
	query, args, err := psql.Delete("processed_invoices").
		Where(sq.Eq{"invoice_id": invoiceId}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, query, args...)
	return err
}
