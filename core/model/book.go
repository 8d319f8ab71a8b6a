package model

import (
	"github.com/shelfd-tech/shelfd/core/csql"
	"github.com/shelfd-tech/shelfd/core/errs"
	"github.com/shelfd-tech/shelfd/core/include"
)

// Book is a book owned by a school. Form is the grade level the book is
// used in.
type Book struct {
	ID      int64   `json:"id"`
	ISBN    string  `json:"isbn"`
	Title   string  `json:"title"`
	Form    string  `json:"form"`
	Aliases []Alias `json:"aliases,omitempty"`
}

// Books is the tenant-scoped model for the book resource.
type Books struct {
	db *csql.DB
}

// NewBooks creates the book model on the given database.
func NewBooks(db *csql.DB) *Books {
	return &Books{db: db}
}

// Name returns the entity name used in not-found errors.
func (m *Books) Name() string { return "Book" }

// FindByID fetches one book of the given school.
func (m *Books) FindByID(id, schoolID int64, inc include.Set) (Book, error) {
	var book Book
	if err := include.Validate(inc, include.Aliases); err != nil {
		return book, err
	}
	err := m.db.QueryRow(`SELECT id, isbn, title, form FROM `+m.db.Schema+`.books WHERE id = $1 AND school_id = $2;`,
		id, schoolID).Scan(&book.ID, &book.ISBN, &book.Title, &book.Form)
	if err == csql.ErrNoRows {
		return book, errs.NotFound(m.Name())
	}
	if err != nil {
		return book, errs.Internal("querying book", err)
	}
	if book.ID != id {
		return book, errs.NotFound(m.Name())
	}
	if err := m.loadRelations(&book, inc); err != nil {
		return book, err
	}
	return book, nil
}

// FindAll fetches all books of the given school.
func (m *Books) FindAll(schoolID int64, inc include.Set) ([]Book, error) {
	if err := include.Validate(inc, include.Aliases); err != nil {
		return nil, err
	}
	rows, err := m.db.Query(`SELECT id, isbn, title, form FROM `+m.db.Schema+`.books WHERE school_id = $1;`, schoolID)
	if err != nil {
		return nil, errs.Internal("querying books", err)
	}
	defer rows.Close()

	books := []Book{}
	for rows.Next() {
		var book Book
		if err := rows.Scan(&book.ID, &book.ISBN, &book.Title, &book.Form); err != nil {
			return nil, errs.Internal("scanning book", err)
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Internal("querying books", err)
	}
	for i := range books {
		if err := m.loadRelations(&books[i], inc); err != nil {
			return nil, err
		}
	}
	return books, nil
}

// Save updates the book identified by existingID, or inserts a new one.
func (m *Books) Save(existingID *int64, schoolID int64, in Book) (Book, error) {
	if existingID != nil {
		res, err := m.db.Exec(`UPDATE `+m.db.Schema+`.books SET isbn = $2, title = $3, form = $4
WHERE id = $1 AND school_id = $5;`, *existingID, in.ISBN, in.Title, in.Form, schoolID)
		if err != nil {
			return in, errs.Internal("updating book", err)
		}
		count, err := res.RowsAffected()
		if err != nil {
			return in, errs.Internal("updating book", err)
		}
		if count != 1 {
			return in, errs.NotFound(m.Name())
		}
		in.ID = *existingID
		return in, nil
	}

	err := m.db.QueryRow(`INSERT INTO `+m.db.Schema+`.books (school_id, isbn, title, form)
VALUES ($1, $2, $3, $4) RETURNING id;`, schoolID, in.ISBN, in.Title, in.Form).Scan(&in.ID)
	if err != nil {
		return in, errs.Internal("inserting book", err)
	}
	return in, nil
}

// Delete removes one book of the given school.
func (m *Books) Delete(id, schoolID int64) error {
	res, err := m.db.Exec(`DELETE FROM `+m.db.Schema+`.books WHERE id = $1 AND school_id = $2;`, id, schoolID)
	if err != nil {
		return errs.Internal("deleting book", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return errs.Internal("deleting book", err)
	}
	if count != 1 {
		return errs.NotFound(m.Name())
	}
	return nil
}

func (m *Books) loadRelations(book *Book, inc include.Set) error {
	if !inc.Contains(include.Aliases) {
		return nil
	}
	rows, err := m.db.Query(`SELECT id, book_id, name FROM `+m.db.Schema+`.aliases WHERE book_id = $1;`, book.ID)
	if err != nil {
		return errs.Internal("querying aliases", err)
	}
	defer rows.Close()

	aliases := []Alias{}
	for rows.Next() {
		var alias Alias
		if err := rows.Scan(&alias.ID, &alias.BookID, &alias.Name); err != nil {
			return errs.Internal("scanning alias", err)
		}
		aliases = append(aliases, alias)
	}
	if err := rows.Err(); err != nil {
		return errs.Internal("querying aliases", err)
	}
	book.Aliases = aliases
	return nil
}
