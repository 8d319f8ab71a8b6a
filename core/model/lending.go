package model

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/shelfd-tech/shelfd/core/csql"
	"github.com/shelfd-tech/shelfd/core/errs"
)

// PersonType discriminates the person a book is lent to.
type PersonType string

// the two kinds of borrowers
const (
	PersonStudent PersonType = "student"
	PersonTeacher PersonType = "teacher"
)

// UnmarshalJSON is a custom JSON unmarshaller enforcing the closed set of
// person types.
func (p *PersonType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*p = PersonType(s)
	switch *p {
	case PersonStudent, PersonTeacher:
		return nil
	default:
		return fmt.Errorf("person_type must be either 'student' or 'teacher', got %q", s)
	}
}

// Lending is a book currently lent to a student or teacher. The person is
// a tagged union of the two, discriminated by person_type.
type Lending struct {
	ID         int64      `json:"id"`
	PersonType PersonType `json:"person_type"`
	PersonID   int64      `json:"person_id"`
	BookID     int64      `json:"book_id"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Lendings is the tenant-scoped model for the lending resource. Lendings
// are write-only through the API: created and returned, never listed.
type Lendings struct {
	db       *csql.DB
	books    *Books
	students *Students
	teachers *Teachers
}

// NewLendings creates the lending model on the given database.
func NewLendings(db *csql.DB) *Lendings {
	return &Lendings{db: db, books: NewBooks(db), students: NewStudents(db), teachers: NewTeachers(db)}
}

// Name returns the entity name used in not-found errors.
func (m *Lendings) Name() string { return "Lending" }

// Save inserts a new lending. Lendings cannot be updated, so existingID
// must be nil. The borrower and the book are both validated to belong to
// the acting school before the insert; a cross-tenant reference surfaces
// as not-found on the referenced entity.
func (m *Lendings) Save(existingID *int64, schoolID int64, in Lending) (Lending, error) {
	if existingID != nil {
		panic("lendings cannot be updated")
	}

	switch in.PersonType {
	case PersonStudent:
		if _, err := m.students.FindByID(in.PersonID, schoolID, nil); err != nil {
			return in, err
		}
	case PersonTeacher:
		if _, err := m.teachers.FindByID(in.PersonID, schoolID, nil); err != nil {
			return in, err
		}
	default:
		return in, errs.BadRequest("person_type must be either 'student' or 'teacher'")
	}
	if _, err := m.books.FindByID(in.BookID, schoolID, nil); err != nil {
		return in, err
	}

	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
	}
	err := m.db.QueryRow(`INSERT INTO `+m.db.Schema+`.lendings (person_type, person_id, book_id, created_at)
VALUES ($1, $2, $3, $4) RETURNING id;`, string(in.PersonType), in.PersonID, in.BookID, in.CreatedAt).Scan(&in.ID)
	if err != nil {
		return in, errs.Internal("inserting lending", err)
	}
	return in, nil
}

// Delete removes one lending whose book belongs to the given school.
func (m *Lendings) Delete(id, schoolID int64) error {
	res, err := m.db.Exec(`DELETE FROM `+m.db.Schema+`.lendings
WHERE id = $1 AND EXISTS (SELECT 1 FROM `+m.db.Schema+`.books b WHERE b.id = lendings.book_id AND b.school_id = $2);`,
		id, schoolID)
	if err != nil {
		return errs.Internal("deleting lending", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return errs.Internal("deleting lending", err)
	}
	if count != 1 {
		return errs.NotFound(m.Name())
	}
	return nil
}
