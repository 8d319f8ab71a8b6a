package model

import (
	"github.com/shelfd-tech/shelfd/core/csql"
	"github.com/shelfd-tech/shelfd/core/errs"
	"github.com/shelfd-tech/shelfd/core/include"
)

// Student is a pupil of a school. The lent_books and base_sets relations
// are only present when requested via include.
type Student struct {
	ID             int64         `json:"id"`
	Name           string        `json:"name"`
	ClassLetter    string        `json:"class_letter"`
	GraduationYear int           `json:"graduation_year"`
	LentBooks      []LentBook    `json:"lent_books,omitempty"`
	BaseSets       []BaseSetBook `json:"base_sets,omitempty"`
}

// Students is the tenant-scoped model for the student resource.
type Students struct {
	db *csql.DB
}

// NewStudents creates the student model on the given database.
func NewStudents(db *csql.DB) *Students {
	return &Students{db: db}
}

// Name returns the entity name used in not-found errors.
func (m *Students) Name() string { return "Student" }

// FindByID fetches one student of the given school.
func (m *Students) FindByID(id, schoolID int64, inc include.Set) (Student, error) {
	var student Student
	if err := include.Validate(inc, include.LentBooks, include.BaseSetBooks); err != nil {
		return student, err
	}
	err := m.db.QueryRow(`SELECT id, name, class_letter, graduation_year FROM `+m.db.Schema+`.students
WHERE id = $1 AND school_id = $2;`, id, schoolID).
		Scan(&student.ID, &student.Name, &student.ClassLetter, &student.GraduationYear)
	if err == csql.ErrNoRows {
		return student, errs.NotFound(m.Name())
	}
	if err != nil {
		return student, errs.Internal("querying student", err)
	}
	// guards against a driver handing back the wrong row
	if student.ID != id {
		return student, errs.NotFound(m.Name())
	}
	if err := m.loadRelations(&student, inc); err != nil {
		return student, err
	}
	return student, nil
}

// FindAll fetches all students of the given school. An empty school is a
// success, not an error.
func (m *Students) FindAll(schoolID int64, inc include.Set) ([]Student, error) {
	if err := include.Validate(inc, include.LentBooks, include.BaseSetBooks); err != nil {
		return nil, err
	}
	rows, err := m.db.Query(`SELECT id, name, class_letter, graduation_year FROM `+m.db.Schema+`.students
WHERE school_id = $1;`, schoolID)
	if err != nil {
		return nil, errs.Internal("querying students", err)
	}
	defer rows.Close()

	students := []Student{}
	for rows.Next() {
		var student Student
		if err := rows.Scan(&student.ID, &student.Name, &student.ClassLetter, &student.GraduationYear); err != nil {
			return nil, errs.Internal("scanning student", err)
		}
		students = append(students, student)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Internal("querying students", err)
	}
	for i := range students {
		if err := m.loadRelations(&students[i], inc); err != nil {
			return nil, err
		}
	}
	return students, nil
}

// Save updates the student identified by existingID, or inserts a new one.
// The id of an inserted student is assigned by storage.
func (m *Students) Save(existingID *int64, schoolID int64, in Student) (Student, error) {
	if existingID != nil {
		res, err := m.db.Exec(`UPDATE `+m.db.Schema+`.students SET name = $2, class_letter = $3, graduation_year = $4
WHERE id = $1 AND school_id = $5;`, *existingID, in.Name, in.ClassLetter, in.GraduationYear, schoolID)
		if err != nil {
			return in, errs.Internal("updating student", err)
		}
		count, err := res.RowsAffected()
		if err != nil {
			return in, errs.Internal("updating student", err)
		}
		if count != 1 {
			return in, errs.NotFound(m.Name())
		}
		in.ID = *existingID
		return in, nil
	}

	err := m.db.QueryRow(`INSERT INTO `+m.db.Schema+`.students (school_id, name, class_letter, graduation_year)
VALUES ($1, $2, $3, $4) RETURNING id;`, schoolID, in.Name, in.ClassLetter, in.GraduationYear).Scan(&in.ID)
	if err != nil {
		return in, errs.Internal("inserting student", err)
	}
	return in, nil
}

// Delete removes one student of the given school. Deleting an already
// deleted student reports not-found.
func (m *Students) Delete(id, schoolID int64) error {
	res, err := m.db.Exec(`DELETE FROM `+m.db.Schema+`.students WHERE id = $1 AND school_id = $2;`, id, schoolID)
	if err != nil {
		return errs.Internal("deleting student", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return errs.Internal("deleting student", err)
	}
	if count != 1 {
		return errs.NotFound(m.Name())
	}
	return nil
}

func (m *Students) loadRelations(student *Student, inc include.Set) error {
	if inc.Contains(include.LentBooks) {
		lent, err := lentBooks(m.db, PersonStudent, student.ID)
		if err != nil {
			return errs.Internal("querying lent books", err)
		}
		student.LentBooks = lent
	}
	if inc.Contains(include.BaseSetBooks) {
		sets, err := baseSetBooks(m.db, student.ID)
		if err != nil {
			return errs.Internal("querying base set books", err)
		}
		student.BaseSets = sets
	}
	return nil
}
