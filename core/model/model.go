/*Package model implements the tenant-scoped resource models of the shelfd
backend.

Every model is constructed with the database handle and exposes operations
that always filter by the owning school. A query that matches no row is
reported as not-found; whether the row does not exist or belongs to another
school is deliberately indistinguishable.
*/
package model

import (
	"time"

	"github.com/shelfd-tech/shelfd/core/csql"
	"github.com/shelfd-tech/shelfd/core/include"
)

// Finder is implemented by models whose resources can be read.
type Finder[T any] interface {
	Name() string
	FindByID(id, schoolID int64, inc include.Set) (T, error)
	FindAll(schoolID int64, inc include.Set) ([]T, error)
}

// Saver is implemented by models whose resources can be created or
// updated. Save with a non-nil existingID performs a tenant-scoped update
// of exactly one row; without it, parent references are validated against
// the same tenant before the insert.
type Saver[T any] interface {
	Name() string
	Save(existingID *int64, schoolID int64, in T) (T, error)
}

// Deleter is implemented by models whose resources can be deleted.
// Delete affects exactly one row or fails with not-found.
type Deleter interface {
	Name() string
	Delete(id, schoolID int64) error
}

// LentBook is a book currently lent to a person, embedded into student and
// teacher responses when the lendings relation is included.
type LentBook struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Book      Book      `json:"book"`
}

// BaseSetBook is a book permanently assigned to a student, embedded into
// student responses when the basesets relation is included.
type BaseSetBook struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Book      Book      `json:"book"`
}

func lentBooks(db *csql.DB, personType PersonType, personID int64) ([]LentBook, error) {
	rows, err := db.Query(`SELECT l.id, l.created_at, b.id, b.isbn, b.title, b.form
FROM `+db.Schema+`.lendings l JOIN `+db.Schema+`.books b ON b.id = l.book_id
WHERE l.person_type = $1 AND l.person_id = $2;`, string(personType), personID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []LentBook
	for rows.Next() {
		var lent LentBook
		err := rows.Scan(&lent.ID, &lent.CreatedAt, &lent.Book.ID, &lent.Book.ISBN, &lent.Book.Title, &lent.Book.Form)
		if err != nil {
			return nil, err
		}
		result = append(result, lent)
	}
	return result, rows.Err()
}

func baseSetBooks(db *csql.DB, studentID int64) ([]BaseSetBook, error) {
	rows, err := db.Query(`SELECT s.id, s.created_at, b.id, b.isbn, b.title, b.form
FROM `+db.Schema+`.base_sets s JOIN `+db.Schema+`.books b ON b.id = s.book_id
WHERE s.student_id = $1;`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []BaseSetBook
	for rows.Next() {
		var set BaseSetBook
		err := rows.Scan(&set.ID, &set.CreatedAt, &set.Book.ID, &set.Book.ISBN, &set.Book.Title, &set.Book.Form)
		if err != nil {
			return nil, err
		}
		result = append(result, set)
	}
	return result, rows.Err()
}
