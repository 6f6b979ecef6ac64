package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/biblioteca-api/internal/models"
	"github.com/noah-isme/biblioteca-api/internal/repository"
)

type bookStore interface {
	FindByID(ctx context.Context, id int64) (*models.Book, error)
	FindByIDs(ctx context.Context, ids []int64) (map[int64]models.Book, error)
}

// bookCache is satisfied by repository.CacheRepository. Any Get error is a miss.
type bookCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type cacheObserver interface {
	ObserveCacheLookup(hit bool)
}

// BookCatalog resolves catalog titles through a read-through cache. Cache
// failures fall back to the store; missing books are never cached.
type BookCatalog struct {
	store   bookStore
	cache   bookCache
	ttl     time.Duration
	metrics cacheObserver
	logger  *zap.Logger
}

// NewBookCatalog wraps store. cache may be nil to disable caching.
func NewBookCatalog(store bookStore, cache bookCache, ttl time.Duration, metrics cacheObserver, logger *zap.Logger) *BookCatalog {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookCatalog{store: store, cache: cache, ttl: ttl, metrics: metrics, logger: logger}
}

func bookCacheKey(id int64) string {
	return fmt.Sprintf("book:%d", id)
}

// FindByID returns a book or sql.ErrNoRows from the store.
func (c *BookCatalog) FindByID(ctx context.Context, id int64) (*models.Book, error) {
	if book, ok := c.cached(ctx, id); ok {
		return &book, nil
	}
	book, err := c.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.remember(ctx, *book)
	return book, nil
}

// FindByIDs returns the books that exist among ids, keyed by id.
func (c *BookCatalog) FindByIDs(ctx context.Context, ids []int64) (map[int64]models.Book, error) {
	books := make(map[int64]models.Book, len(ids))
	var missing []int64
	for _, id := range ids {
		if book, ok := c.cached(ctx, id); ok {
			books[id] = book
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return books, nil
	}

	found, err := c.store.FindByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, book := range found {
		books[id] = book
		c.remember(ctx, book)
	}
	return books, nil
}

func (c *BookCatalog) cached(ctx context.Context, id int64) (models.Book, bool) {
	if c.cache == nil {
		return models.Book{}, false
	}
	var book models.Book
	err := c.cache.Get(ctx, bookCacheKey(id), &book)
	hit := err == nil && book.ID == id
	if c.metrics != nil {
		c.metrics.ObserveCacheLookup(hit)
	}
	if err != nil && !errors.Is(err, repository.ErrCacheMiss) {
		c.logger.Warn("book cache read failed", zap.Int64("book_id", id), zap.Error(err))
	}
	return book, hit
}

func (c *BookCatalog) remember(ctx context.Context, book models.Book) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, bookCacheKey(book.ID), book, c.ttl); err != nil {
		c.logger.Warn("book cache write failed", zap.Int64("book_id", book.ID), zap.Error(err))
	}
}
