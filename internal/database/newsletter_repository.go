package database

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ErrNewsletterConflict возвращается при попытке сменить статус рассылки,
// когда другая операция уже перевела её из ожидаемого состояния.
var ErrNewsletterConflict = errors.New("newsletter status conflict")

type NewsletterRepository struct {
	pool *pgxpool.Pool
}

func NewNewsletterRepository(pool *pgxpool.Pool) *NewsletterRepository {
	return &NewsletterRepository{pool: pool}
}

const newsletterColumns = "id, title, message_text, photo_id, file_id, file_name, button_text, button_url, status, created_at, sent_at, recipients_count, success_count, error_count, send_time"

func scanNewsletter(row pgx.Row) (*Newsletter, error) {
	var n Newsletter
	err := row.Scan(&n.ID, &n.Title, &n.MessageText, &n.PhotoID, &n.FileID,
		&n.FileName, &n.ButtonText, &n.ButtonURL, &n.Status, &n.CreatedAt,
		&n.SentAt, &n.RecipientsCount, &n.SuccessCount, &n.ErrorCount, &n.SendTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NewsletterRepository) Create(ctx context.Context, n *Newsletter) (*Newsletter, error) {
	query, args, err := psql.Insert("newsletters").
		Columns("title", "message_text", "photo_id", "file_id", "file_name", "button_text", "button_url", "status").
		Values(n.Title, n.MessageText, n.PhotoID, n.FileID, n.FileName, n.ButtonText, n.ButtonURL, NewsletterStatusDraft).
		Suffix("RETURNING " + newsletterColumns).
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanNewsletter(r.pool.QueryRow(ctx, query, args...))
}

func (r *NewsletterRepository) FindById(ctx context.Context, id int64) (*Newsletter, error) {
	query, args, err := psql.Select(newsletterColumns).
		From("newsletters").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanNewsletter(r.pool.QueryRow(ctx, query, args...))
}

func (r *NewsletterRepository) GetAll(ctx context.Context) ([]Newsletter, error) {
	query, args, err := psql.Select(newsletterColumns).
		From("newsletters").
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var newsletters []Newsletter
	for rows.Next() {
		var n Newsletter
		if err := rows.Scan(&n.ID, &n.Title, &n.MessageText, &n.PhotoID, &n.FileID,
			&n.FileName, &n.ButtonText, &n.ButtonURL, &n.Status, &n.CreatedAt,
			&n.SentAt, &n.RecipientsCount, &n.SuccessCount, &n.ErrorCount, &n.SendTime); err != nil {
			return nil, err
		}
		newsletters = append(newsletters, n)
	}
	return newsletters, rows.Err()
}

// MarkSending переводит черновик в статус отправки. Условный UPDATE
// гарантирует, что рассылку нельзя запустить дважды.
func (r *NewsletterRepository) MarkSending(ctx context.Context, id int64) error {
	query, args, err := psql.Update("newsletters").
		Set("status", NewsletterStatusSending).
		Where(sq.Eq{"id": id, "status": NewsletterStatusDraft}).
		ToSql()
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNewsletterConflict
	}
	return nil
}

// MarkSent фиксирует итоговую статистику рассылки. Статистика записывается
// один раз: повторный вызов для уже отправленной рассылки вернёт конфликт.
func (r *NewsletterRepository) MarkSent(ctx context.Context, id int64, stats NewsletterStats) error {
	query, args, err := psql.Update("newsletters").
		Set("status", NewsletterStatusSent).
		Set("recipients_count", stats.RecipientsCount).
		Set("success_count", stats.SuccessCount).
		Set("error_count", stats.ErrorCount).
		Set("send_time", stats.SendTime).
		Set("sent_at", time.Now().UTC()).
		Where(sq.Eq{"id": id, "status": NewsletterStatusSending}).
		ToSql()
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNewsletterConflict
	}
	return nil
}

func (r *NewsletterRepository) Delete(ctx context.Context, id int64) error {
	query, args, err := psql.Delete("newsletters").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, query, args...)
	return err
}
