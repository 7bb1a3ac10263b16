// Package sqlite provides the SQLite-backed implementation of the
// storage.Courses and storage.Students tables using Go's standard
// database/sql package.
//
// SQLite stores the whole cache in a single file on the device. There is
// no server process; the driver is all that is needed.
//
// The blank import below registers the sqlite3 driver with database/sql.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/moviles/coursedesk/internal/config"

	// Blank import: side-effect only (registers the "sqlite3" driver).
	_ "github.com/mattn/go-sqlite3"
)

// SQLite owns the database handle and the two cached tables.
// A single *sql.DB is safe for concurrent use by multiple goroutines.
type SQLite struct {
	Db *sql.DB

	courses  *CourseTable
	students *StudentTable
}

// New opens the SQLite database at cfg.StoragePath, creates the tables
// if they do not exist yet, and returns a ready-to-use *SQLite.
func New(cfg *config.Config) (*SQLite, error) {
	db, err := sql.Open("sqlite3", cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	// One connection: ":memory:" databases are per-connection, and the
	// tables already serialize their writers.
	db.SetMaxOpenConns(1)

	// CREATE TABLE IF NOT EXISTS is idempotent, so it runs on every
	// startup.
	//
	// Schema (the flattened row shape; optional values stored as ''):
	//   courses : keyed by the server-assigned id
	//   students: keyed by id, indexed by course_id for per-course lookups
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS courses (
			id          INTEGER PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT NOT NULL,
			image_url   TEXT NOT NULL DEFAULT '',
			schedule    TEXT NOT NULL,
			professor   TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS students (
			id        INTEGER PRIMARY KEY,
			name      TEXT    NOT NULL,
			email     TEXT    NOT NULL,
			phone     TEXT    NOT NULL DEFAULT '',
			course_id INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_students_course_id ON students (course_id);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.New: create tables: %w", err)
	}

	s := &SQLite{Db: db}
	s.students = newStudentTable(db)
	s.courses, err = newCourseTable(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.New: %w", err)
	}

	return s, nil
}

// Courses returns the cached course table.
func (s *SQLite) Courses() *CourseTable {
	return s.courses
}

// Students returns the cached student table.
func (s *SQLite) Students() *StudentTable {
	return s.students
}

// Close ends all live subscriptions and closes the database.
func (s *SQLite) Close() error {
	s.courses.close()
	s.students.close()
	return s.Db.Close()
}

// inTx runs fn inside a transaction, rolling back if fn fails.
func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
