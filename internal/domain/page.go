package domain

// Page is one chapter of a book.
type Page struct {
	Text  string `json:"text"`
	Image string `json:"image"`
	// Number is the display ordinal, filled at read time. It is not an
	// identity and is never stored.
	Number int `json:"number,omitempty"`
}
