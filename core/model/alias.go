package model

import (
	"github.com/shelfd-tech/shelfd/core/csql"
	"github.com/shelfd-tech/shelfd/core/errs"
	"github.com/shelfd-tech/shelfd/core/include"
)

// Alias is an alternate lookup name for a book.
type Alias struct {
	ID     int64  `json:"id"`
	BookID int64  `json:"book_id"`
	Name   string `json:"name"`
}

// Aliases is the tenant-scoped model for the alias resource. Aliases have
// no school column of their own; they are scoped through their book.
type Aliases struct {
	db    *csql.DB
	books *Books
}

// NewAliases creates the alias model on the given database.
func NewAliases(db *csql.DB) *Aliases {
	return &Aliases{db: db, books: NewBooks(db)}
}

// Name returns the entity name used in not-found errors.
func (m *Aliases) Name() string { return "Alias" }

// FindByID fetches one alias whose book belongs to the given school.
func (m *Aliases) FindByID(id, schoolID int64, inc include.Set) (Alias, error) {
	var alias Alias
	if err := include.Validate(inc); err != nil {
		return alias, err
	}
	err := m.db.QueryRow(`SELECT a.id, a.book_id, a.name FROM `+m.db.Schema+`.aliases a
JOIN `+m.db.Schema+`.books b ON b.id = a.book_id
WHERE a.id = $1 AND b.school_id = $2;`, id, schoolID).Scan(&alias.ID, &alias.BookID, &alias.Name)
	if err == csql.ErrNoRows {
		return alias, errs.NotFound(m.Name())
	}
	if err != nil {
		return alias, errs.Internal("querying alias", err)
	}
	if alias.ID != id {
		return alias, errs.NotFound(m.Name())
	}
	return alias, nil
}

// FindAll fetches the aliases of all books of the given school.
func (m *Aliases) FindAll(schoolID int64, inc include.Set) ([]Alias, error) {
	if err := include.Validate(inc); err != nil {
		return nil, err
	}
	rows, err := m.db.Query(`SELECT a.id, a.book_id, a.name FROM `+m.db.Schema+`.aliases a
JOIN `+m.db.Schema+`.books b ON b.id = a.book_id
WHERE b.school_id = $1;`, schoolID)
	if err != nil {
		return nil, errs.Internal("querying aliases", err)
	}
	defer rows.Close()

	aliases := []Alias{}
	for rows.Next() {
		var alias Alias
		if err := rows.Scan(&alias.ID, &alias.BookID, &alias.Name); err != nil {
			return nil, errs.Internal("scanning alias", err)
		}
		aliases = append(aliases, alias)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Internal("querying aliases", err)
	}
	return aliases, nil
}

// Save updates the alias identified by existingID, or inserts a new one.
// The referenced book must belong to the acting school; a cross-tenant
// book reference surfaces as book-not-found before anything is written.
func (m *Aliases) Save(existingID *int64, schoolID int64, in Alias) (Alias, error) {
	if _, err := m.books.FindByID(in.BookID, schoolID, nil); err != nil {
		return in, err
	}

	if existingID != nil {
		res, err := m.db.Exec(`UPDATE `+m.db.Schema+`.aliases SET book_id = $2, name = $3
WHERE id = $1 AND EXISTS (SELECT 1 FROM `+m.db.Schema+`.books b WHERE b.id = aliases.book_id AND b.school_id = $4);`,
			*existingID, in.BookID, in.Name, schoolID)
		if err != nil {
			return in, errs.Internal("updating alias", err)
		}
		count, err := res.RowsAffected()
		if err != nil {
			return in, errs.Internal("updating alias", err)
		}
		if count != 1 {
			return in, errs.NotFound(m.Name())
		}
		in.ID = *existingID
		return in, nil
	}

	err := m.db.QueryRow(`INSERT INTO `+m.db.Schema+`.aliases (book_id, name) VALUES ($1, $2) RETURNING id;`,
		in.BookID, in.Name).Scan(&in.ID)
	if err != nil {
		return in, errs.Internal("inserting alias", err)
	}
	return in, nil
}

// Delete removes one alias whose book belongs to the given school.
func (m *Aliases) Delete(id, schoolID int64) error {
	res, err := m.db.Exec(`DELETE FROM `+m.db.Schema+`.aliases
WHERE id = $1 AND EXISTS (SELECT 1 FROM `+m.db.Schema+`.books b WHERE b.id = aliases.book_id AND b.school_id = $2);`,
		id, schoolID)
	if err != nil {
		return errs.Internal("deleting alias", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return errs.Internal("deleting alias", err)
	}
	if count != 1 {
		return errs.NotFound(m.Name())
	}
	return nil
}
