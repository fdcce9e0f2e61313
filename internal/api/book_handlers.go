package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/storyloom/storyloom-server/internal/domain"
	domainerrors "github.com/storyloom/storyloom-server/internal/errors"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books",
		Summary:     "List books",
		Description: "Returns every stored book. When storage fails the list is empty and degraded is set",
		Tags:        []string{"Books"},
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createBook",
		Method:        http.MethodPost,
		Path:          "/api/v1/books",
		Summary:       "Create book",
		Description:   "Adds a book. Omitted fields take the new-book defaults",
		Tags:          []string{"Books"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "replaceBooks",
		Method:      http.MethodPut,
		Path:        "/api/v1/books",
		Summary:     "Replace all books",
		Description: "Replaces the whole collection, for imports and bulk saves",
		Tags:        []string{"Books"},
	}, s.handleReplaceBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}",
		Summary:     "Get book",
		Tags:        []string{"Books"},
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateBook",
		Method:      http.MethodPut,
		Path:        "/api/v1/books/{id}",
		Summary:     "Update book",
		Description: "Replaces the stored book with the same id",
		Tags:        []string{"Books"},
	}, s.handleUpdateBook)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteBook",
		Method:        http.MethodDelete,
		Path:          "/api/v1/books/{id}",
		Summary:       "Delete book",
		Description:   "Removes a book. Removing an unknown id succeeds without writing",
		Tags:          []string{"Books"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "saveChapters",
		Method:      http.MethodPut,
		Path:        "/api/v1/books/{id}/chapters",
		Summary:     "Save chapters",
		Description: "Replaces a book's chapters, leaving its other fields untouched",
		Tags:        []string{"Books"},
	}, s.handleSaveChapters)

	huma.Register(s.api, huma.Operation{
		OperationID: "listPages",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}/pages",
		Summary:     "List pages",
		Description: "Returns the chapters with their display numbers",
		Tags:        []string{"Books"},
	}, s.handleListPages)
}

// === DTOs ===

// PageRequest is one chapter in a request body.
type PageRequest struct {
	Text  string `json:"text,omitempty" doc:"Chapter text"`
	Image string `json:"image,omitempty" doc:"Chapter image URL or data URL"`
}

// TagRequest is one tag in a request body. Colors are always derived from
// the name, so a supplied color is ignored.
type TagRequest struct {
	Name  string `json:"name" doc:"Tag name"`
	Color string `json:"color,omitempty" doc:"Ignored; derived from the name"`
}

// BookRequest is the request body for creating or replacing a book.
type BookRequest struct {
	ID           int64                   `json:"id,omitempty" doc:"Book ID; assigned by the server when omitted"`
	Title        string                  `json:"title,omitempty" validate:"runes=20" doc:"Title, at most 20 characters"`
	Author       string                  `json:"author,omitempty" validate:"runes=15" doc:"Author, at most 15 characters"`
	Genre        string                  `json:"genre,omitempty" validate:"runes=12" doc:"Genre, at most 12 characters"`
	Description  string                  `json:"description,omitempty" doc:"Description"`
	CoverImage   string                  `json:"coverImage,omitempty" doc:"Cover image URL or data URL"`
	CoverColor   string                  `json:"coverColor,omitempty" doc:"Cover color"`
	Chapters     []PageRequest           `json:"chapters,omitempty" doc:"Chapters in order"`
	Tags         map[string][]TagRequest `json:"tags,omitempty" doc:"Tags by category; unknown categories are dropped"`
	StartChapter int                     `json:"startChapter,omitempty" minimum:"0" doc:"Display number of the first chapter"`
}

// toDomain builds a book from the request. With defaults set, empty fields
// take the new-book values.
func (r BookRequest) toDomain(defaults bool) domain.Book {
	var b domain.Book
	if defaults {
		b = domain.NewBook()
	}
	b.ID = r.ID
	b.Description = r.Description
	b.CoverImage = r.CoverImage
	b.StartChapter = r.StartChapter
	setNonEmpty(&b.Title, r.Title)
	setNonEmpty(&b.Author, r.Author)
	setNonEmpty(&b.Genre, r.Genre)
	setNonEmpty(&b.CoverColor, r.CoverColor)
	if r.Chapters != nil || !defaults {
		b.Chapters = toPages(r.Chapters)
	}
	b.Tags = toTagSet(r.Tags)
	return b
}

func setNonEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func toPages(in []PageRequest) []domain.Page {
	pages := make([]domain.Page, len(in))
	for i, p := range in {
		pages[i] = domain.Page{Text: p.Text, Image: p.Image}
	}
	return pages
}

func toTagSet(in map[string][]TagRequest) domain.TagSet {
	ts := domain.TagSet{}
	for key, tags := range in {
		category, ok := domain.ParseTagCategory(key)
		if !ok {
			continue
		}
		for _, t := range tags {
			// Category is known valid, so Add cannot fail.
			_ = ts.Add(category, t.Name)
		}
	}
	return ts
}

// BookListResponse contains every stored book.
type BookListResponse struct {
	Books    []domain.Book `json:"books" doc:"Stored books"`
	Degraded bool          `json:"degraded,omitempty" doc:"Set when storage failed and the list may be incomplete"`
}

// BookListOutput wraps the book list for Huma.
type BookListOutput struct {
	Body BookListResponse
}

// BookOutput wraps a single book for Huma.
type BookOutput struct {
	Body domain.Book
}

// BookIDInput identifies a book.
type BookIDInput struct {
	ID int64 `path:"id" doc:"Book ID"`
}

// CreateBookInput wraps the create request for Huma.
type CreateBookInput struct {
	Body BookRequest
}

// ReplaceBooksRequest is the body for replacing every book.
type ReplaceBooksRequest struct {
	Books []BookRequest `json:"books" doc:"The complete collection, in order"`
}

// ReplaceBooksInput wraps the replace request for Huma.
type ReplaceBooksInput struct {
	Body ReplaceBooksRequest
}

// UpdateBookInput wraps the update request for Huma.
type UpdateBookInput struct {
	ID   int64 `path:"id" doc:"Book ID"`
	Body BookRequest
}

// SaveChaptersRequest is the body for replacing a book's chapters.
type SaveChaptersRequest struct {
	Chapters []PageRequest `json:"chapters" doc:"Chapters in order"`
}

// SaveChaptersInput wraps the chapters request for Huma.
type SaveChaptersInput struct {
	ID   int64 `path:"id" doc:"Book ID"`
	Body SaveChaptersRequest
}

// PagesResponse lists a book's numbered pages.
type PagesResponse struct {
	Pages []domain.Page `json:"pages" doc:"Chapters with display numbers"`
}

// PagesOutput wraps the pages response for Huma.
type PagesOutput struct {
	Body PagesResponse
}

// === Handlers ===

func (s *Server) handleListBooks(ctx context.Context, _ *struct{}) (*BookListOutput, error) {
	books, err := s.services.Books.LoadAll(ctx)
	if err != nil && !isStorageFailure(err) {
		return nil, err
	}
	return &BookListOutput{Body: BookListResponse{Books: books, Degraded: err != nil}}, nil
}

func (s *Server) handleCreateBook(ctx context.Context, input *CreateBookInput) (*BookOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	book, err := s.services.Books.Add(ctx, input.Body.toDomain(true))
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleReplaceBooks(ctx context.Context, input *ReplaceBooksInput) (*BookListOutput, error) {
	books := make([]domain.Book, 0, len(input.Body.Books))
	for _, b := range input.Body.Books {
		if err := s.validator.Validate(b); err != nil {
			return nil, err
		}
		books = append(books, b.toDomain(false))
	}

	saved, err := s.services.Books.SaveAll(ctx, books)
	if err != nil {
		return nil, err
	}
	return &BookListOutput{Body: BookListResponse{Books: saved}}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *BookIDInput) (*BookOutput, error) {
	book, err := s.services.Books.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleUpdateBook(ctx context.Context, input *UpdateBookInput) (*BookOutput, error) {
	if input.Body.ID != 0 && input.Body.ID != input.ID {
		return nil, domainerrors.Validationf("body id %d does not match path id %d", input.Body.ID, input.ID)
	}
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	b := input.Body.toDomain(false)
	b.ID = input.ID
	book, err := s.services.Books.Update(ctx, b)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleDeleteBook(ctx context.Context, input *BookIDInput) (*struct{}, error) {
	if err := s.services.Books.Remove(ctx, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleSaveChapters(ctx context.Context, input *SaveChaptersInput) (*BookOutput, error) {
	book, err := s.services.Books.SaveChapters(ctx, input.ID, toPages(input.Body.Chapters))
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleListPages(ctx context.Context, input *BookIDInput) (*PagesOutput, error) {
	book, err := s.services.Books.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &PagesOutput{Body: PagesResponse{Pages: book.NumberedPages()}}, nil
}
