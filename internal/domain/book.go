// Package domain contains the records Storyloom persists: books with their
// tags and pages, category slides with nested stages, and drawing snapshots.
package domain

import "strings"

// DefaultCoverColor is used when a book has no cover color of its own.
const DefaultCoverColor = "#4a90e2"

// Defaults for books created without user input.
const (
	DefaultBookTitle  = "New Book"
	DefaultBookAuthor = "Unknown"
	DefaultBookGenre  = "None"
)

// Book is a user's book. IDs are time-derived integers assigned once at
// creation.
//
// Chapters never include the synthetic front-cover page shown by readers.
type Book struct {
	Tags         TagSet `json:"tags"`
	Title        string `json:"title"`
	Author       string `json:"author"`
	Genre        string `json:"genre"`
	Description  string `json:"description"`
	CoverImage   string `json:"coverImage,omitempty"`
	CoverColor   string `json:"coverColor"`
	Chapters     []Page `json:"chapters"`
	ID           int64  `json:"id"`
	StartChapter int    `json:"startChapter,omitempty"`
}

// NewBook returns a book carrying the defaults of the Add-Book flow: a
// placeholder title, author and genre plus one empty chapter.
func NewBook() Book {
	return Book{
		Title:      DefaultBookTitle,
		Author:     DefaultBookAuthor,
		Genre:      DefaultBookGenre,
		CoverColor: DefaultCoverColor,
		Tags:       TagSet{},
		Chapters:   []Page{{}},
	}
}

// Normalize fills defaults and strips derived values so the book can be
// persisted. It is safe to call repeatedly.
func (b *Book) Normalize() {
	b.Title = strings.TrimSpace(b.Title)
	b.Author = strings.TrimSpace(b.Author)
	b.Genre = strings.TrimSpace(b.Genre)
	if b.CoverColor == "" {
		b.CoverColor = DefaultCoverColor
	}
	if b.Tags == nil {
		b.Tags = TagSet{}
	}
	b.Tags.Normalize()
	if b.Chapters == nil {
		b.Chapters = []Page{}
	}
	for i := range b.Chapters {
		b.Chapters[i].Number = 0
	}
}

// FirstPageNumber returns the ordinal shown for the first chapter.
func (b *Book) FirstPageNumber() int {
	if b.StartChapter > 0 {
		return b.StartChapter
	}
	return 1
}

// NumberedPages returns a copy of the chapters with display numbers filled
// in from their position. Reordering or deleting a page renumbers the pages
// after it.
func (b *Book) NumberedPages() []Page {
	start := b.FirstPageNumber()
	pages := make([]Page, len(b.Chapters))
	for i, p := range b.Chapters {
		p.Number = i + start
		pages[i] = p
	}
	return pages
}
