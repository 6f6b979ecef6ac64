package models

import (
	"fmt"
	"strings"
)

// Book is the slice of the catalog the loan workflow reads.
type Book struct {
	ID     int64  `db:"id" json:"id"`
	Titulo string `db:"titulo" json:"titulo"`
}

// BookDisplayTitle picks the catalog title, then the snapshot taken at request
// time, then a placeholder built from the book id.
func BookDisplayTitle(book *Book, snapshot string, bookID int64) string {
	if book != nil {
		if title := strings.TrimSpace(book.Titulo); title != "" {
			return title
		}
	}
	if title := strings.TrimSpace(snapshot); title != "" {
		return title
	}
	if bookID > 0 {
		return fmt.Sprintf("Book #%d", bookID)
	}
	return "Book #s/n"
}
