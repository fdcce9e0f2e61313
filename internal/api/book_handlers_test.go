package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyloom/storyloom-server/internal/domain"
	domainerrors "github.com/storyloom/storyloom-server/internal/errors"
)

func createBook(t *testing.T, ts *testServer, body map[string]any) domain.Book {
	t.Helper()

	resp := ts.api.Post("/api/v1/books", body)
	requireStatus(t, http.StatusCreated, resp)
	return decodeEnvelope[domain.Book](t, resp).Data
}

func TestCreateBook_FillsDefaults(t *testing.T) {
	ts := setupTestServer(t)

	book := createBook(t, ts, map[string]any{"title": "The Lantern"})

	assert.NotZero(t, book.ID)
	assert.Equal(t, "The Lantern", book.Title)
	assert.Equal(t, domain.DefaultBookAuthor, book.Author)
	assert.Equal(t, domain.DefaultBookGenre, book.Genre)
	assert.Equal(t, domain.DefaultCoverColor, book.CoverColor)
	assert.Len(t, book.Chapters, 1)
}

func TestCreateBook_RejectsLongTitle(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/books", map[string]any{"title": "A title that is far too long"})
	requireStatus(t, http.StatusBadRequest, resp)

	envelope := decodeEnvelope[any](t, resp)
	assert.False(t, envelope.Success)
	assert.Equal(t, string(domainerrors.CodeValidation), envelope.Code)
	assert.NotNil(t, envelope.Details)
}

func TestCreateBook_LimitsCountRunes(t *testing.T) {
	ts := setupTestServer(t)

	// 12 runes, more than 12 bytes.
	book := createBook(t, ts, map[string]any{"genre": "ÉpopéeÉpopée"})
	assert.Equal(t, "ÉpopéeÉpopée", book.Genre)
}

func TestCreateBook_DuplicateIDConflicts(t *testing.T) {
	ts := setupTestServer(t)

	book := createBook(t, ts, map[string]any{"title": "First"})

	resp := ts.api.Post("/api/v1/books", map[string]any{"id": book.ID, "title": "Second"})
	requireStatus(t, http.StatusConflict, resp)
	assert.Equal(t, string(domainerrors.CodeAlreadyExists), decodeEnvelope[any](t, resp).Code)
}

func TestListBooks(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/books")
	requireStatus(t, http.StatusOK, resp)
	assert.Empty(t, decodeEnvelope[BookListResponse](t, resp).Data.Books)

	createBook(t, ts, map[string]any{"title": "One"})
	createBook(t, ts, map[string]any{"title": "Two"})

	resp = ts.api.Get("/api/v1/books")
	requireStatus(t, http.StatusOK, resp)
	list := decodeEnvelope[BookListResponse](t, resp).Data
	require.Len(t, list.Books, 2)
	assert.Equal(t, "One", list.Books[0].Title)
	assert.Equal(t, "Two", list.Books[1].Title)
	assert.False(t, list.Degraded)
}

func TestListBooks_StorageFailureIsDegraded(t *testing.T) {
	ts := setupTestServer(t)
	createBook(t, ts, map[string]any{"title": "One"})
	require.NoError(t, ts.backend.Close())

	resp := ts.api.Get("/api/v1/books")
	requireStatus(t, http.StatusOK, resp)

	list := decodeEnvelope[BookListResponse](t, resp).Data
	assert.True(t, list.Degraded)
	assert.Empty(t, list.Books)
}

func TestCreateBook_StorageFailureIsReported(t *testing.T) {
	ts := setupTestServer(t)
	require.NoError(t, ts.backend.Close())

	resp := ts.api.Post("/api/v1/books", map[string]any{"title": "One"})
	assert.GreaterOrEqual(t, resp.Code, http.StatusInternalServerError, resp.Body.String())
	assert.False(t, decodeEnvelope[any](t, resp).Success)
}

func TestGetBook(t *testing.T) {
	ts := setupTestServer(t)
	book := createBook(t, ts, map[string]any{"title": "Found"})

	resp := ts.api.Get(fmt.Sprintf("/api/v1/books/%d", book.ID))
	requireStatus(t, http.StatusOK, resp)
	assert.Equal(t, "Found", decodeEnvelope[domain.Book](t, resp).Data.Title)

	resp = ts.api.Get("/api/v1/books/12345")
	requireStatus(t, http.StatusNotFound, resp)
}

func TestUpdateBook(t *testing.T) {
	ts := setupTestServer(t)
	book := createBook(t, ts, map[string]any{"title": "Draft"})

	resp := ts.api.Put(fmt.Sprintf("/api/v1/books/%d", book.ID), map[string]any{
		"title":  "Final",
		"author": "Ada",
		"genre":  "Fable",
		"tags":   map[string]any{"mood": []map[string]any{{"name": "calm"}}, "flavour": []map[string]any{{"name": "x"}}},
	})
	requireStatus(t, http.StatusOK, resp)

	updated := decodeEnvelope[domain.Book](t, resp).Data
	assert.Equal(t, book.ID, updated.ID)
	assert.Equal(t, "Final", updated.Title)
	assert.Equal(t, []string{"calm"}, updated.Tags.Names(domain.TagMood))
	assert.NotContains(t, updated.Tags, domain.TagCategory("flavour"))
}

func TestUpdateBook_MismatchedID(t *testing.T) {
	ts := setupTestServer(t)
	book := createBook(t, ts, map[string]any{"title": "Draft"})

	resp := ts.api.Put(fmt.Sprintf("/api/v1/books/%d", book.ID), map[string]any{"id": book.ID + 1, "title": "x"})
	requireStatus(t, http.StatusBadRequest, resp)
}

func TestUpdateBook_Unknown(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Put("/api/v1/books/77", map[string]any{"title": "x"})
	requireStatus(t, http.StatusNotFound, resp)
}

func TestReplaceBooks(t *testing.T) {
	ts := setupTestServer(t)
	createBook(t, ts, map[string]any{"title": "Old"})

	resp := ts.api.Put("/api/v1/books", map[string]any{
		"books": []map[string]any{
			{"id": 1, "title": "Imported A"},
			{"title": "Imported B"},
		},
	})
	requireStatus(t, http.StatusOK, resp)

	saved := decodeEnvelope[BookListResponse](t, resp).Data.Books
	require.Len(t, saved, 2)
	assert.Equal(t, int64(1), saved[0].ID)
	assert.NotZero(t, saved[1].ID)

	resp = ts.api.Get("/api/v1/books")
	titles := []string{}
	for _, b := range decodeEnvelope[BookListResponse](t, resp).Data.Books {
		titles = append(titles, b.Title)
	}
	assert.Equal(t, []string{"Imported A", "Imported B"}, titles)
}

func TestDeleteBook(t *testing.T) {
	ts := setupTestServer(t)
	book := createBook(t, ts, map[string]any{"title": "Doomed"})

	resp := ts.api.Delete(fmt.Sprintf("/api/v1/books/%d", book.ID))
	requireStatus(t, http.StatusNoContent, resp)

	resp = ts.api.Get(fmt.Sprintf("/api/v1/books/%d", book.ID))
	requireStatus(t, http.StatusNotFound, resp)

	// Removing an absent book is not an error.
	resp = ts.api.Delete(fmt.Sprintf("/api/v1/books/%d", book.ID))
	requireStatus(t, http.StatusNoContent, resp)
}

func TestSaveChaptersAndPages(t *testing.T) {
	ts := setupTestServer(t)
	book := createBook(t, ts, map[string]any{"title": "Paged", "author": "Ada"})

	resp := ts.api.Put(fmt.Sprintf("/api/v1/books/%d/chapters", book.ID), map[string]any{
		"chapters": []map[string]any{{"text": "one"}, {"text": "two"}, {"text": "three"}},
	})
	requireStatus(t, http.StatusOK, resp)
	saved := decodeEnvelope[domain.Book](t, resp).Data
	assert.Equal(t, "Ada", saved.Author, "other fields untouched")
	require.Len(t, saved.Chapters, 3)

	resp = ts.api.Get(fmt.Sprintf("/api/v1/books/%d/pages", book.ID))
	requireStatus(t, http.StatusOK, resp)
	pages := decodeEnvelope[PagesResponse](t, resp).Data.Pages
	require.Len(t, pages, 3)
	for i, p := range pages {
		assert.Equal(t, i+1, p.Number)
	}
	assert.Equal(t, "three", pages[2].Text)
}
