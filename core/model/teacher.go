package model

import (
	"github.com/shelfd-tech/shelfd/core/csql"
	"github.com/shelfd-tech/shelfd/core/errs"
	"github.com/shelfd-tech/shelfd/core/include"
)

// Teacher is a teacher of a school.
type Teacher struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	LentBooks []LentBook `json:"lent_books,omitempty"`
}

// Teachers is the tenant-scoped model for the teacher resource.
type Teachers struct {
	db *csql.DB
}

// NewTeachers creates the teacher model on the given database.
func NewTeachers(db *csql.DB) *Teachers {
	return &Teachers{db: db}
}

// Name returns the entity name used in not-found errors.
func (m *Teachers) Name() string { return "Teacher" }

// FindByID fetches one teacher of the given school.
func (m *Teachers) FindByID(id, schoolID int64, inc include.Set) (Teacher, error) {
	var teacher Teacher
	if err := include.Validate(inc, include.LentBooks); err != nil {
		return teacher, err
	}
	err := m.db.QueryRow(`SELECT id, name FROM `+m.db.Schema+`.teachers WHERE id = $1 AND school_id = $2;`,
		id, schoolID).Scan(&teacher.ID, &teacher.Name)
	if err == csql.ErrNoRows {
		return teacher, errs.NotFound(m.Name())
	}
	if err != nil {
		return teacher, errs.Internal("querying teacher", err)
	}
	if teacher.ID != id {
		return teacher, errs.NotFound(m.Name())
	}
	if err := m.loadRelations(&teacher, inc); err != nil {
		return teacher, err
	}
	return teacher, nil
}

// FindAll fetches all teachers of the given school.
func (m *Teachers) FindAll(schoolID int64, inc include.Set) ([]Teacher, error) {
	if err := include.Validate(inc, include.LentBooks); err != nil {
		return nil, err
	}
	rows, err := m.db.Query(`SELECT id, name FROM `+m.db.Schema+`.teachers WHERE school_id = $1;`, schoolID)
	if err != nil {
		return nil, errs.Internal("querying teachers", err)
	}
	defer rows.Close()

	teachers := []Teacher{}
	for rows.Next() {
		var teacher Teacher
		if err := rows.Scan(&teacher.ID, &teacher.Name); err != nil {
			return nil, errs.Internal("scanning teacher", err)
		}
		teachers = append(teachers, teacher)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Internal("querying teachers", err)
	}
	for i := range teachers {
		if err := m.loadRelations(&teachers[i], inc); err != nil {
			return nil, err
		}
	}
	return teachers, nil
}

// Save updates the teacher identified by existingID, or inserts a new one.
func (m *Teachers) Save(existingID *int64, schoolID int64, in Teacher) (Teacher, error) {
	if existingID != nil {
		res, err := m.db.Exec(`UPDATE `+m.db.Schema+`.teachers SET name = $2 WHERE id = $1 AND school_id = $3;`,
			*existingID, in.Name, schoolID)
		if err != nil {
			return in, errs.Internal("updating teacher", err)
		}
		count, err := res.RowsAffected()
		if err != nil {
			return in, errs.Internal("updating teacher", err)
		}
		if count != 1 {
			return in, errs.NotFound(m.Name())
		}
		in.ID = *existingID
		return in, nil
	}

	err := m.db.QueryRow(`INSERT INTO `+m.db.Schema+`.teachers (school_id, name) VALUES ($1, $2) RETURNING id;`,
		schoolID, in.Name).Scan(&in.ID)
	if err != nil {
		return in, errs.Internal("inserting teacher", err)
	}
	return in, nil
}

// Delete removes one teacher of the given school.
func (m *Teachers) Delete(id, schoolID int64) error {
	res, err := m.db.Exec(`DELETE FROM `+m.db.Schema+`.teachers WHERE id = $1 AND school_id = $2;`, id, schoolID)
	if err != nil {
		return errs.Internal("deleting teacher", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return errs.Internal("deleting teacher", err)
	}
	if count != 1 {
		return errs.NotFound(m.Name())
	}
	return nil
}

func (m *Teachers) loadRelations(teacher *Teacher, inc include.Set) error {
	if inc.Contains(include.LentBooks) {
		lent, err := lentBooks(m.db, PersonTeacher, teacher.ID)
		if err != nil {
			return errs.Internal("querying lent books", err)
		}
		teacher.LentBooks = lent
	}
	return nil
}
