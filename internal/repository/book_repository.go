package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/biblioteca-api/internal/models"
)

// BookRepository reads catalog titles from libros.
type BookRepository struct {
	db *sqlx.DB
}

// NewBookRepository constructs the repository.
func NewBookRepository(db *sqlx.DB) *BookRepository {
	return &BookRepository{db: db}
}

// FindByID returns a book or sql.ErrNoRows.
func (r *BookRepository) FindByID(ctx context.Context, id int64) (*models.Book, error) {
	const query = `SELECT id, COALESCE(titulo, '') AS titulo FROM libros WHERE id = $1`
	var book models.Book
	if err := r.db.GetContext(ctx, &book, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find book: %w", err)
	}
	return &book, nil
}

// FindByIDs returns the books that exist among ids, keyed by id.
func (r *BookRepository) FindByIDs(ctx context.Context, ids []int64) (map[int64]models.Book, error) {
	books := make(map[int64]models.Book, len(ids))
	if len(ids) == 0 {
		return books, nil
	}
	const query = `SELECT id, COALESCE(titulo, '') AS titulo FROM libros WHERE id = ANY($1)`
	var rows []models.Book
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find books: %w", err)
	}
	for _, book := range rows {
		books[book.ID] = book
	}
	return books, nil
}
