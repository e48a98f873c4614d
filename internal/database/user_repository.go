package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const userColumns = "id, telegram_id, username, first_name, last_name, balance, premium, created_at, last_active"

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.TelegramID, &u.Username, &u.FirstName, &u.LastName,
		&u.Balance, &u.Premium, &u.CreatedAt, &u.LastActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) FindByTelegramId(ctx context.Context, telegramId int64) (*User, error) {
	query, args, err := psql.Select(userColumns).
		From("users").
		Where(sq.Eq{"telegram_id": telegramId}).
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanUser(r.pool.QueryRow(ctx, query, args...))
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	query, args, err := psql.Select(userColumns).
		From("users").
		Where(sq.Eq{"username": username}).
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanUser(r.pool.QueryRow(ctx, query, args...))
}

func (r *UserRepository) Create(ctx context.Context, user *User) (*User, error) {
	query, args, err := psql.Insert("users").
		Columns("telegram_id", "username", "first_name", "last_name").
		Values(user.TelegramID, user.Username, user.FirstName, user.LastName).
		Suffix("RETURNING " + userColumns).
		ToSql()
	if err != nil {
		return nil, err
	}
	created, err := scanUser(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return created, nil
}

// GetOrCreate возвращает пользователя, создавая запись при первом обращении.
// Для существующего пользователя обновляются имя и отметка активности.
func (r *UserRepository) GetOrCreate(ctx context.Context, telegramId int64, username, firstName, lastName *string) (*User, error) {
	existing, err := r.FindByTelegramId(ctx, telegramId)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return r.Create(ctx, &User{
			TelegramID: telegramId,
			Username:   username,
			FirstName:  firstName,
			LastName:   lastName,
		})
	}

	query, args, err := psql.Update("users").
		Set("username", username).
		Set("first_name", firstName).
		Set("last_name", lastName).
		Set("last_active", time.Now().UTC()).
		Where(sq.Eq{"telegram_id": telegramId}).
		Suffix("RETURNING " + userColumns).
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanUser(r.pool.QueryRow(ctx, query, args...))
}

// TouchLastActive обновляет отметку последней активности пользователя.
func (r *UserRepository) TouchLastActive(ctx context.Context, telegramId int64) error {
	query, args, err := psql.Update("users").
		Set("last_active", time.Now().UTC()).
		Where(sq.Eq{"telegram_id": telegramId}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, query, args...)
	return err
}

// GetAllTelegramIds возвращает идентификаторы всех пользователей для рассылки.
func (r *UserRepository) GetAllTelegramIds(ctx context.Context) ([]int64, error) {
	query, args, err := psql.Select("telegram_id").
		From("users").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *UserRepository) CountAll(ctx context.Context) (int, error) {
	return r.countWhere(ctx, nil)
}

func (r *UserRepository) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	return r.countWhere(ctx, sq.GtOrEq{"created_at": since})
}

func (r *UserRepository) CountActiveSince(ctx context.Context, since time.Time) (int, error) {
	return r.countWhere(ctx, sq.GtOrEq{"last_active": since})
}

func (r *UserRepository) countWhere(ctx context.Context, pred interface{}) (int, error) {
	builder := psql.Select("COUNT(*)").From("users")
	if pred != nil {
		builder = builder.Where(pred)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return 0, err
	}
	var count int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
