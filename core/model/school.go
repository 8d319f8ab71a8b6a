package model

import (
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/shelfd-tech/shelfd/core/csql"
	"github.com/shelfd-tech/shelfd/core/errs"
)

// AuthData is the signup and login payload of a school. The name is
// stored and looked up lower-cased.
type AuthData struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Schools is the model for the school resource itself, the unit of
// tenant isolation. Schools are not reachable through the generic engine;
// the dedicated school routes drive this model directly.
type Schools struct {
	db *csql.DB
}

// NewSchools creates the school model on the given database.
func NewSchools(db *csql.DB) *Schools {
	return &Schools{db: db}
}

// Name returns the entity name used in not-found errors. The error
// translation treats this entity specially: a missing school presents as
// unauthorized, so failed logins and wrong passwords are identical to the
// client.
func (m *Schools) Name() string { return "School" }

// Create inserts a new school with a bcrypt-hashed password and returns
// the storage-assigned id.
func (m *Schools) Create(auth AuthData) (int64, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(auth.Password), bcrypt.DefaultCost)
	if err != nil {
		return 0, errs.Internal("hashing school password", err)
	}
	var id int64
	err = m.db.QueryRow(`INSERT INTO `+m.db.Schema+`.schools (name, encrypted_password) VALUES ($1, $2) RETURNING id;`,
		strings.ToLower(auth.Name), string(hashed)).Scan(&id)
	if err != nil {
		return 0, errs.Internal("inserting school", err)
	}
	return id, nil
}

// Login verifies name and password and returns the school id. A missing
// school and a wrong password both end up as 401 on the wire.
func (m *Schools) Login(auth AuthData) (int64, error) {
	var id int64
	var hashed string
	err := m.db.QueryRow(`SELECT id, encrypted_password FROM `+m.db.Schema+`.schools WHERE name = $1;`,
		strings.ToLower(auth.Name)).Scan(&id, &hashed)
	if err == csql.ErrNoRows {
		return 0, errs.NotFound(m.Name())
	}
	if err != nil {
		return 0, errs.Internal("querying school", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hashed), []byte(auth.Password)) != nil {
		return 0, errs.Unauthorized()
	}
	return id, nil
}

// ChangePassword verifies the old password and stores a hash of the new
// one.
func (m *Schools) ChangePassword(id int64, oldPassword, newPassword string) error {
	if err := m.checkPassword(id, oldPassword); err != nil {
		return err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return errs.Internal("hashing school password", err)
	}
	res, err := m.db.Exec(`UPDATE `+m.db.Schema+`.schools SET encrypted_password = $2 WHERE id = $1;`, id, string(hashed))
	if err != nil {
		return errs.Internal("updating school password", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return errs.Internal("updating school password", err)
	}
	if count != 1 {
		return errs.NotFound(m.Name())
	}
	return nil
}

// Rename changes the school's name.
func (m *Schools) Rename(id int64, name string) error {
	res, err := m.db.Exec(`UPDATE `+m.db.Schema+`.schools SET name = $2 WHERE id = $1;`, id, strings.ToLower(name))
	if err != nil {
		return errs.Internal("updating school name", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return errs.Internal("updating school name", err)
	}
	if count != 1 {
		return errs.NotFound(m.Name())
	}
	return nil
}

// Delete removes the school after confirming its password. All resources
// of the school go with it through the cascading foreign keys.
func (m *Schools) Delete(id int64, password string) error {
	if err := m.checkPassword(id, password); err != nil {
		return err
	}
	res, err := m.db.Exec(`DELETE FROM `+m.db.Schema+`.schools WHERE id = $1;`, id)
	if err != nil {
		return errs.Internal("deleting school", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return errs.Internal("deleting school", err)
	}
	if count != 1 {
		return errs.NotFound(m.Name())
	}
	return nil
}

func (m *Schools) checkPassword(id int64, password string) error {
	var hashed string
	err := m.db.QueryRow(`SELECT encrypted_password FROM `+m.db.Schema+`.schools WHERE id = $1;`, id).Scan(&hashed)
	if err == csql.ErrNoRows {
		return errs.NotFound(m.Name())
	}
	if err != nil {
		return errs.Internal("querying school", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) != nil {
		return errs.Unauthorized()
	}
	return nil
}
