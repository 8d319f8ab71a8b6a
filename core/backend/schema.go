package backend

import (
	"fmt"

	"github.com/shelfd-tech/shelfd/core/logger"
)

// createTables creates the relational schema if it does not exist yet.
// Tables are created in dependency order so the foreign keys can be
// declared right away; every child of a school cascades on delete.
func (b *Backend) createTables() {
	schema := b.db.Schema
	create := ""
	for _, ddl := range []string{
		`CREATE TABLE IF NOT EXISTS %[1]s.schools (
id serial PRIMARY KEY,
name varchar NOT NULL UNIQUE,
encrypted_password varchar NOT NULL);`,

		`CREATE TABLE IF NOT EXISTS %[1]s.authentication_tokens (
id bigint PRIMARY KEY,
hashed_secret varchar NOT NULL,
school_id integer NOT NULL REFERENCES %[1]s.schools (id) ON DELETE CASCADE,
created_at timestamptz NOT NULL);`,

		`CREATE TABLE IF NOT EXISTS %[1]s.students (
id serial PRIMARY KEY,
school_id integer NOT NULL REFERENCES %[1]s.schools (id) ON DELETE CASCADE,
name varchar NOT NULL,
class_letter varchar NOT NULL,
graduation_year integer NOT NULL);`,

		`CREATE TABLE IF NOT EXISTS %[1]s.teachers (
id serial PRIMARY KEY,
school_id integer NOT NULL REFERENCES %[1]s.schools (id) ON DELETE CASCADE,
name varchar NOT NULL);`,

		`CREATE TABLE IF NOT EXISTS %[1]s.books (
id serial PRIMARY KEY,
school_id integer NOT NULL REFERENCES %[1]s.schools (id) ON DELETE CASCADE,
isbn varchar NOT NULL,
title varchar NOT NULL,
form varchar NOT NULL);`,

		`CREATE TABLE IF NOT EXISTS %[1]s.aliases (
id serial PRIMARY KEY,
book_id integer NOT NULL REFERENCES %[1]s.books (id) ON DELETE CASCADE,
name varchar NOT NULL);`,

		`CREATE TABLE IF NOT EXISTS %[1]s.lendings (
id serial PRIMARY KEY,
person_type varchar NOT NULL,
person_id integer NOT NULL,
book_id integer NOT NULL REFERENCES %[1]s.books (id) ON DELETE CASCADE,
created_at timestamptz NOT NULL);`,

		`CREATE TABLE IF NOT EXISTS %[1]s.base_sets (
id serial PRIMARY KEY,
student_id integer NOT NULL REFERENCES %[1]s.students (id) ON DELETE CASCADE,
book_id integer NOT NULL REFERENCES %[1]s.books (id) ON DELETE CASCADE,
created_at timestamptz NOT NULL);`,

		`CREATE INDEX IF NOT EXISTS search_index_tokens_created_at ON %[1]s.authentication_tokens (created_at);`,
		`CREATE INDEX IF NOT EXISTS search_index_lendings_person ON %[1]s.lendings (person_type, person_id);`,
		`CREATE INDEX IF NOT EXISTS search_index_base_sets_student ON %[1]s.base_sets (student_id);`,
	} {
		create += fmt.Sprintf(ddl, schema) + "\n"
	}

	if _, err := b.db.Exec(create); err != nil {
		logger.Default().WithError(err).Errorln("error while creating schema")
		panic(fmt.Sprintf("invalid schema: %v", err))
	}
}
