package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/moviles/coursedesk/internal/pubsub"
	"github.com/moviles/coursedesk/internal/storage"
	"github.com/moviles/coursedesk/internal/types"
)

const upsertStudentSQL = `INSERT OR REPLACE INTO students
	(id, name, email, phone, course_id)
	VALUES (?, ?, ?, ?, ?)`

// StudentTable implements storage.Students.
//
// Live queries are per course: one publisher per course id that is being
// observed. After any write every such publisher gets a fresh snapshot,
// since writes by student id do not say which course they touched.
// Publishers whose subscribers have all closed are dropped on the next
// observe or write.
type StudentTable struct {
	db   *sql.DB
	mu   sync.Mutex
	pubs map[int64]*pubsub.Publisher[[]types.StudentRow]
}

var _ storage.Students = (*StudentTable)(nil)

func newStudentTable(db *sql.DB) *StudentTable {
	return &StudentTable{
		db:   db,
		pubs: make(map[int64]*pubsub.Publisher[[]types.StudentRow]),
	}
}

// GetByCourse returns the cached students of one course ordered by id.
func (t *StudentTable) GetByCourse(ctx context.Context, courseID int64) ([]types.StudentRow, error) {
	rows, err := t.db.QueryContext(ctx,
		"SELECT id, name, email, phone, course_id FROM students WHERE course_id = ? ORDER BY id",
		courseID,
	)
	if err != nil {
		return nil, fmt.Errorf("GetByCourse students: query: %w", err)
	}
	defer rows.Close()

	students := make([]types.StudentRow, 0)
	for rows.Next() {
		var s types.StudentRow
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.Phone, &s.CourseID); err != nil {
			return nil, fmt.Errorf("GetByCourse students: scan row: %w", err)
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetByCourse students: rows iteration: %w", err)
	}

	return students, nil
}

// ObserveByCourse subscribes to the students of courseID.
func (t *StudentTable) ObserveByCourse(ctx context.Context, courseID int64) (*pubsub.Subscription[[]types.StudentRow], error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.prune()
	pub, ok := t.pubs[courseID]
	if !ok {
		snapshot, err := t.GetByCourse(ctx, courseID)
		if err != nil {
			return nil, fmt.Errorf("ObserveByCourse: %w", err)
		}
		pub = pubsub.New(snapshot)
		t.pubs[courseID] = pub
	}
	return pub.Subscribe(), nil
}

// GetByID fetches exactly one student by primary key.
func (t *StudentTable) GetByID(ctx context.Context, id int64) (types.StudentRow, error) {
	var s types.StudentRow
	err := t.db.QueryRowContext(ctx,
		"SELECT id, name, email, phone, course_id FROM students WHERE id = ? LIMIT 1",
		id,
	).Scan(&s.ID, &s.Name, &s.Email, &s.Phone, &s.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.StudentRow{}, fmt.Errorf("student %d: %w", id, storage.ErrNotFound)
		}
		return types.StudentRow{}, fmt.Errorf("GetByID student: scan: %w", err)
	}
	return s, nil
}

func (t *StudentTable) Upsert(ctx context.Context, row types.StudentRow) error {
	return t.write(ctx, "Upsert student", func(tx *sql.Tx) error {
		return upsertStudents(ctx, tx, []types.StudentRow{row})
	})
}

func (t *StudentTable) UpsertAll(ctx context.Context, rows []types.StudentRow) error {
	return t.write(ctx, "UpsertAll students", func(tx *sql.Tx) error {
		return upsertStudents(ctx, tx, rows)
	})
}

func (t *StudentTable) DeleteByID(ctx context.Context, id int64) error {
	return t.write(ctx, "DeleteByID student", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "DELETE FROM students WHERE id = ?", id)
		return err
	})
}

func (t *StudentTable) DeleteByCourse(ctx context.Context, courseID int64) error {
	return t.write(ctx, "DeleteByCourse students", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "DELETE FROM students WHERE course_id = ?", courseID)
		return err
	})
}

func (t *StudentTable) Clear(ctx context.Context) error {
	return t.write(ctx, "Clear students", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "DELETE FROM students")
		return err
	})
}

// ReplaceByCourse clears the students of courseID and inserts rows in
// one transaction. Rows are expected to belong to courseID.
func (t *StudentTable) ReplaceByCourse(ctx context.Context, courseID int64, rows []types.StudentRow) error {
	return t.write(ctx, "ReplaceByCourse students", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM students WHERE course_id = ?", courseID); err != nil {
			return err
		}
		return upsertStudents(ctx, tx, rows)
	})
}

func (t *StudentTable) write(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := inTx(ctx, t.db, fn); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	// The write is committed. A failed snapshot only leaves that course's
	// observers one write behind.
	t.prune()
	for courseID, pub := range t.pubs {
		snapshot, err := t.GetByCourse(context.Background(), courseID)
		if err != nil {
			slog.Error("cannot snapshot cached students",
				slog.String("op", op), slog.Int64("course_id", courseID), slog.String("error", err.Error()))
			continue
		}
		pub.Publish(snapshot)
	}
	return nil
}

// prune drops the publishers nobody listens to. New subscriptions are
// only made under t.mu, so a count of zero here stays zero.
func (t *StudentTable) prune() {
	for courseID, pub := range t.pubs {
		if pub.Subscribers() == 0 {
			pub.Close()
			delete(t.pubs, courseID)
		}
	}
}

func (t *StudentTable) close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for courseID, pub := range t.pubs {
		pub.Close()
		delete(t.pubs, courseID)
	}
}

func upsertStudents(ctx context.Context, tx *sql.Tx, rows []types.StudentRow) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, upsertStudentSQL)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, s := range rows {
		if _, err := stmt.ExecContext(ctx, s.ID, s.Name, s.Email, s.Phone, s.CourseID); err != nil {
			return fmt.Errorf("exec id %d: %w", s.ID, err)
		}
	}
	return nil
}
