package repository

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"sync"

	"github.com/storyloom/storyloom-server/internal/domain"
	domainerrors "github.com/storyloom/storyloom-server/internal/errors"
	"github.com/storyloom/storyloom-server/internal/id"
	"github.com/storyloom/storyloom-server/internal/store"
)

// BooksCollection is the collection key holding every book.
const BooksCollection = "books"

func bookID(b *domain.Book) string { return strconv.FormatInt(b.ID, 10) }

// Books is the book repository.
//
// Every mutation reloads the collection, applies the change and waits for
// the backend to acknowledge the write before returning. Mutations are
// serialized within the process.
type Books struct {
	sync   *Sync
	col    *store.Collection[domain.Book]
	ids    *id.Sequence
	logger *slog.Logger
	mu     sync.Mutex
}

// NewBooks creates a book repository.
func NewBooks(s *Sync, ids *id.Sequence, logger *slog.Logger) *Books {
	return &Books{
		sync:   s,
		col:    store.NewCollection(s.Store(), BooksCollection, bookID),
		ids:    ids,
		logger: logger,
	}
}

// load reads the stored books. A malformed collection is treated as empty
// and undecodable records are dropped; dirty reports either case so the
// next write replaces the stored form. Storage failures are returned.
func (r *Books) load(ctx context.Context) (books []domain.Book, dirty bool, err error) {
	books, skipped, err := r.col.All(ctx)
	if errors.Is(err, store.ErrMalformed) {
		r.logger.Warn("stored books are malformed, treating as empty",
			slog.String("error", err.Error()))
		return []domain.Book{}, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	if len(skipped) > 0 {
		r.logger.Warn("skipping undecodable books",
			slog.Any("record_ids", skipped))
	}

	for i := range books {
		books[i].Normalize()
		r.ids.Observe(books[i].ID)
	}
	return books, len(skipped) > 0, nil
}

// LoadAll returns every stored book. It never returns nil: on failure the
// result is empty and the error says why.
func (r *Books) LoadAll(ctx context.Context) ([]domain.Book, error) {
	books, _, err := r.load(ctx)
	if err != nil {
		r.logger.Error("failed to load books", slog.String("error", err.Error()))
		return []domain.Book{}, err
	}
	return books, nil
}

// Get returns one book.
func (r *Books) Get(ctx context.Context, id int64) (domain.Book, error) {
	books, _, err := r.load(ctx)
	if err != nil {
		return domain.Book{}, err
	}
	i := indexOfBook(books, id)
	if i < 0 {
		return domain.Book{}, domainerrors.NotFoundf("book %d not found", id)
	}
	return books[i], nil
}

// SaveAll replaces the stored collection with books. Books without an id
// get one; if two books share an id the later one wins.
func (r *Books) SaveAll(ctx context.Context, books []domain.Book) ([]domain.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Book, 0, len(books))
	seen := make(map[int64]int, len(books))
	for _, b := range books {
		r.assignID(&b)
		b.Normalize()
		if i, ok := seen[b.ID]; ok {
			out[i] = b
			continue
		}
		seen[b.ID] = len(out)
		out = append(out, b)
	}

	if err := replaceAll(ctx, r.sync, r.col, out); err != nil {
		r.logger.Error("failed to save books", slog.String("error", err.Error()))
		return nil, err
	}
	return out, nil
}

// Add stores a new book, assigning an id when it has none.
func (r *Books) Add(ctx context.Context, book domain.Book) (domain.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	books, dirty, err := r.load(ctx)
	if err != nil {
		return domain.Book{}, err
	}

	r.assignID(&book)
	if indexOfBook(books, book.ID) >= 0 {
		return domain.Book{}, domainerrors.AlreadyExistsf("book %d already exists", book.ID)
	}
	book.Normalize()
	books = append(books, book)

	if err := saveOne(ctx, r.sync, r.col, books, &books[len(books)-1], bookID(&book), dirty); err != nil {
		r.logger.Error("failed to add book", slog.Int64("book_id", book.ID), slog.String("error", err.Error()))
		return domain.Book{}, err
	}

	r.logger.Info("book added", slog.Int64("book_id", book.ID), slog.String("title", book.Title))
	return book, nil
}

// Update replaces the stored book with the same id.
func (r *Books) Update(ctx context.Context, book domain.Book) (domain.Book, error) {
	return r.modify(ctx, book.ID, func(b *domain.Book) error {
		*b = book
		return nil
	})
}

// SaveChapters replaces a book's chapters, leaving every other field as
// stored.
func (r *Books) SaveChapters(ctx context.Context, id int64, chapters []domain.Page) (domain.Book, error) {
	return r.modify(ctx, id, func(b *domain.Book) error {
		b.Chapters = slices.Clone(chapters)
		return nil
	})
}

// AddTag appends a tag to a book.
func (r *Books) AddTag(ctx context.Context, id int64, category domain.TagCategory, name string) (domain.Book, error) {
	return r.modify(ctx, id, func(b *domain.Book) error {
		if err := b.Tags.Add(category, name); err != nil {
			return domainerrors.Validation(err.Error())
		}
		return nil
	})
}

// RemoveTag removes every tag with name from a book's category.
func (r *Books) RemoveTag(ctx context.Context, id int64, category domain.TagCategory, name string) (domain.Book, error) {
	return r.modify(ctx, id, func(b *domain.Book) error {
		b.Tags.Remove(category, name)
		return nil
	})
}

// Remove deletes a book. Removing an unknown id is a no-op.
//
// Books own no state outside their record, so nothing else is deleted.
func (r *Books) Remove(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	books, dirty, err := r.load(ctx)
	if err != nil {
		return err
	}

	i := indexOfBook(books, id)
	if i < 0 {
		if dirty {
			// The id may belong to a record that no longer decodes.
			return deleteOne(ctx, r.sync, r.col, books, strconv.FormatInt(id, 10), true)
		}
		return nil
	}
	books = slices.Delete(books, i, i+1)

	key := strconv.FormatInt(id, 10)
	if err := deleteOne(ctx, r.sync, r.col, books, key, dirty); err != nil {
		r.logger.Error("failed to remove book", slog.Int64("book_id", id), slog.String("error", err.Error()))
		return err
	}

	r.logger.Info("book removed", slog.Int64("book_id", id))
	return nil
}

func (r *Books) modify(ctx context.Context, id int64, fn func(*domain.Book) error) (domain.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	books, dirty, err := r.load(ctx)
	if err != nil {
		return domain.Book{}, err
	}

	i := indexOfBook(books, id)
	if i < 0 {
		return domain.Book{}, domainerrors.NotFoundf("book %d not found", id)
	}

	updated := books[i]
	updated.Tags = cloneTags(updated.Tags)
	if err := fn(&updated); err != nil {
		return domain.Book{}, err
	}
	updated.ID = id
	updated.Normalize()
	books[i] = updated

	if err := saveOne(ctx, r.sync, r.col, books, &books[i], bookID(&updated), dirty); err != nil {
		r.logger.Error("failed to update book", slog.Int64("book_id", id), slog.String("error", err.Error()))
		return domain.Book{}, err
	}
	return updated, nil
}

func (r *Books) assignID(b *domain.Book) {
	if b.ID == 0 {
		b.ID = r.ids.Next()
		return
	}
	r.ids.Observe(b.ID)
}

func indexOfBook(books []domain.Book, id int64) int {
	return slices.IndexFunc(books, func(b domain.Book) bool { return b.ID == id })
}

func cloneTags(ts domain.TagSet) domain.TagSet {
	out := make(domain.TagSet, len(ts))
	for k, v := range ts {
		out[k] = slices.Clone(v)
	}
	return out
}
