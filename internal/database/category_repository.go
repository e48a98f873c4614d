package database

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

type CategoryRepository struct {
	pool *pgxpool.Pool
}

func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

func (r *CategoryRepository) Create(ctx context.Context, name string) (*Category, error) {
	query, args, err := psql.Insert("categories").
		Columns("name").
		Values(name).
		Suffix("RETURNING id, name").
		ToSql()
	if err != nil {
		return nil, err
	}
	var c Category
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&c.ID, &c.Name); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CategoryRepository) FindById(ctx context.Context, id int64) (*Category, error) {
	query, args, err := psql.Select("id", "name").
		From("categories").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}
	var c Category
	err = r.pool.QueryRow(ctx, query, args...).Scan(&c.ID, &c.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CategoryRepository) FindByName(ctx context.Context, name string) (*Category, error) {
	query, args, err := psql.Select("id", "name").
		From("categories").
		Where(sq.Eq{"name": name}).
		ToSql()
	if err != nil {
		return nil, err
	}
	var c Category
	err = r.pool.QueryRow(ctx, query, args...).Scan(&c.ID, &c.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CategoryRepository) GetAll(ctx context.Context) ([]Category, error) {
	query, args, err := psql.Select("id", "name").
		From("categories").
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// Delete удаляет категорию. Товары категории остаются без категории (FK SET NULL).
func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	query, args, err := psql.Delete("categories").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, query, args...)
	return err
}
