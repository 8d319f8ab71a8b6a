package model

import (
	"time"

	"github.com/shelfd-tech/shelfd/core/csql"
	"github.com/shelfd-tech/shelfd/core/errs"
)

// BaseSet is a book permanently assigned to a student, as opposed to a
// temporary lending.
type BaseSet struct {
	ID        int64     `json:"id"`
	StudentID int64     `json:"student_id"`
	BookID    int64     `json:"book_id"`
	CreatedAt time.Time `json:"created_at"`
}

// BaseSets is the tenant-scoped model for the base set resource.
type BaseSets struct {
	db       *csql.DB
	books    *Books
	students *Students
}

// NewBaseSets creates the base set model on the given database.
func NewBaseSets(db *csql.DB) *BaseSets {
	return &BaseSets{db: db, books: NewBooks(db), students: NewStudents(db)}
}

// Name returns the entity name used in not-found errors.
func (m *BaseSets) Name() string { return "BaseSet" }

// Save inserts a new base set assignment. Base sets cannot be updated, so
// existingID must be nil. Both the book and the student are validated to
// belong to the acting school before the insert.
func (m *BaseSets) Save(existingID *int64, schoolID int64, in BaseSet) (BaseSet, error) {
	if existingID != nil {
		panic("base sets cannot be updated")
	}

	if _, err := m.books.FindByID(in.BookID, schoolID, nil); err != nil {
		return in, err
	}
	if _, err := m.students.FindByID(in.StudentID, schoolID, nil); err != nil {
		return in, err
	}

	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
	}
	err := m.db.QueryRow(`INSERT INTO `+m.db.Schema+`.base_sets (student_id, book_id, created_at)
VALUES ($1, $2, $3) RETURNING id;`, in.StudentID, in.BookID, in.CreatedAt).Scan(&in.ID)
	if err != nil {
		return in, errs.Internal("inserting base set", err)
	}
	return in, nil
}

// Delete removes one base set whose book belongs to the given school.
func (m *BaseSets) Delete(id, schoolID int64) error {
	res, err := m.db.Exec(`DELETE FROM `+m.db.Schema+`.base_sets
WHERE id = $1 AND EXISTS (SELECT 1 FROM `+m.db.Schema+`.books b WHERE b.id = base_sets.book_id AND b.school_id = $2);`,
		id, schoolID)
	if err != nil {
		return errs.Internal("deleting base set", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return errs.Internal("deleting base set", err)
	}
	if count != 1 {
		return errs.NotFound(m.Name())
	}
	return nil
}
