package database

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

type ProductRepository struct {
	pool *pgxpool.Pool
}

func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

const productColumns = "p.id, p.title, p.description, p.price, p.file_id, p.preview_image_id, p.available, p.category_id, c.name, p.created_at"

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Price, &p.FileID,
		&p.PreviewImageID, &p.Available, &p.CategoryID, &p.CategoryName, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepository) selectBuilder() sq.SelectBuilder {
	return psql.Select(productColumns).
		From("products p").
		LeftJoin("categories c ON c.id = p.category_id")
}

func (r *ProductRepository) Create(ctx context.Context, product *Product) (*Product, error) {
	query, args, err := psql.Insert("products").
		Columns("title", "description", "price", "file_id", "preview_image_id", "available", "category_id").
		Values(product.Title, product.Description, product.Price, product.FileID,
			product.PreviewImageID, product.Available, product.CategoryID).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, err
	}
	var id int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return nil, err
	}
	return r.FindById(ctx, id)
}

func (r *ProductRepository) FindById(ctx context.Context, id int64) (*Product, error) {
	query, args, err := r.selectBuilder().
		Where(sq.Eq{"p.id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanProduct(r.pool.QueryRow(ctx, query, args...))
}

// FindAvailableByCategory возвращает страницу доступных товаров категории.
// categoryId == nil означает товары без категории.
func (r *ProductRepository) FindAvailableByCategory(ctx context.Context, categoryId *int64, limit, offset uint64) ([]Product, error) {
	builder := r.selectBuilder().
		Where(sq.Eq{"p.available": true}).
		OrderBy("p.id").
		Limit(limit).
		Offset(offset)
	if categoryId != nil {
		builder = builder.Where(sq.Eq{"p.category_id": *categoryId})
	} else {
		builder = builder.Where("p.category_id IS NULL")
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	return r.queryProducts(ctx, query, args)
}

// CountAvailableByCategory считает доступные товары категории для пагинации.
func (r *ProductRepository) CountAvailableByCategory(ctx context.Context, categoryId *int64) (int, error) {
	builder := psql.Select("COUNT(*)").
		From("products p").
		Where(sq.Eq{"p.available": true})
	if categoryId != nil {
		builder = builder.Where(sq.Eq{"p.category_id": *categoryId})
	} else {
		builder = builder.Where("p.category_id IS NULL")
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

// CountByAvailability возвращает общее число товаров и число доступных.
func (r *ProductRepository) CountByAvailability(ctx context.Context) (total, available int, err error) {
	query, args, err := psql.Select(
		"COUNT(*)",
		"COUNT(*) FILTER (WHERE available)").
		From("products").
		ToSql()
	if err != nil {
		return 0, 0, err
	}
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total, &available); err != nil {
		return 0, 0, err
	}
	return total, available, nil
}

func (r *ProductRepository) GetAll(ctx context.Context) ([]Product, error) {
	query, args, err := r.selectBuilder().
		OrderBy("p.id").
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.queryProducts(ctx, query, args)
}

func (r *ProductRepository) Update(ctx context.Context, product *Product) error {
	query, args, err := psql.Update("products").
		Set("title", product.Title).
		Set("description", product.Description).
		Set("price", product.Price).
		Set("file_id", product.FileID).
		Set("preview_image_id", product.PreviewImageID).
		Set("available", product.Available).
		Set("category_id", product.CategoryID).
		Where(sq.Eq{"id": product.ID}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, query, args...)
	return err
}

func (r *ProductRepository) SetAvailable(ctx context.Context, id int64, available bool) error {
	query, args, err := psql.Update("products").
		Set("available", available).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, query, args...)
	return err
}

// Delete удаляет товар. История покупок не затрагивается: purchases хранит снимок.
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	query, args, err := psql.Delete("products").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, query, args...)
	return err
}

func (r *ProductRepository) queryProducts(ctx context.Context, query string, args []interface{}) ([]Product, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Price, &p.FileID,
			&p.PreviewImageID, &p.Available, &p.CategoryID, &p.CategoryName, &p.CreatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
