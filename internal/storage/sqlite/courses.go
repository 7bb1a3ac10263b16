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

const upsertCourseSQL = `INSERT OR REPLACE INTO courses
	(id, name, description, image_url, schedule, professor)
	VALUES (?, ?, ?, ?, ?, ?)`

// CourseTable implements storage.Courses.
//
// mu serializes writers. Every write publishes the new snapshot before
// releasing mu, which is what keeps live queries in write order.
type CourseTable struct {
	db  *sql.DB
	mu  sync.Mutex
	pub *pubsub.Publisher[[]types.CourseRow]
}

var _ storage.Courses = (*CourseTable)(nil)

func newCourseTable(db *sql.DB) (*CourseTable, error) {
	t := &CourseTable{db: db}
	rows, err := t.GetAll(context.Background())
	if err != nil {
		return nil, err
	}
	t.pub = pubsub.New(rows)
	return t, nil
}

// GetAll returns every cached course ordered by id.
func (t *CourseTable) GetAll(ctx context.Context) ([]types.CourseRow, error) {
	// Explicitly list columns so Scan's ordering never drifts.
	rows, err := t.db.QueryContext(ctx,
		"SELECT id, name, description, image_url, schedule, professor FROM courses ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("GetAll courses: query: %w", err)
	}
	defer rows.Close()

	// Non-nil empty slice: an empty table is still a valid snapshot.
	courses := make([]types.CourseRow, 0)
	for rows.Next() {
		var c types.CourseRow
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.ImageURL, &c.Schedule, &c.Professor); err != nil {
			return nil, fmt.Errorf("GetAll courses: scan row: %w", err)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetAll courses: rows iteration: %w", err)
	}

	return courses, nil
}

// ObserveAll subscribes to the course table. The returned subscription
// yields the current snapshot first.
func (t *CourseTable) ObserveAll(_ context.Context) (*pubsub.Subscription[[]types.CourseRow], error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pub.Subscribe(), nil
}

// GetByID fetches exactly one course by primary key.
func (t *CourseTable) GetByID(ctx context.Context, id int64) (types.CourseRow, error) {
	var c types.CourseRow
	err := t.db.QueryRowContext(ctx,
		"SELECT id, name, description, image_url, schedule, professor FROM courses WHERE id = ? LIMIT 1",
		id,
	).Scan(&c.ID, &c.Name, &c.Description, &c.ImageURL, &c.Schedule, &c.Professor)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.CourseRow{}, fmt.Errorf("course %d: %w", id, storage.ErrNotFound)
		}
		return types.CourseRow{}, fmt.Errorf("GetByID course: scan: %w", err)
	}
	return c, nil
}

// Upsert inserts or replaces one course.
func (t *CourseTable) Upsert(ctx context.Context, row types.CourseRow) error {
	return t.write(ctx, "Upsert course", func(tx *sql.Tx) error {
		return upsertCourses(ctx, tx, []types.CourseRow{row})
	})
}

// UpsertAll inserts or replaces every given course in one transaction.
func (t *CourseTable) UpsertAll(ctx context.Context, rows []types.CourseRow) error {
	return t.write(ctx, "UpsertAll courses", func(tx *sql.Tx) error {
		return upsertCourses(ctx, tx, rows)
	})
}

// DeleteByID removes one course. Deleting a missing id is not an error.
func (t *CourseTable) DeleteByID(ctx context.Context, id int64) error {
	return t.write(ctx, "DeleteByID course", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "DELETE FROM courses WHERE id = ?", id)
		return err
	})
}

// Clear removes every cached course.
func (t *CourseTable) Clear(ctx context.Context) error {
	return t.write(ctx, "Clear courses", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "DELETE FROM courses")
		return err
	})
}

// ReplaceAll swaps the table contents for rows. Subscribers see either
// the old snapshot or the new one, never an empty table in between.
func (t *CourseTable) ReplaceAll(ctx context.Context, rows []types.CourseRow) error {
	return t.write(ctx, "ReplaceAll courses", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM courses"); err != nil {
			return err
		}
		return upsertCourses(ctx, tx, rows)
	})
}

// write applies fn in a transaction under the table lock, then publishes
// the new snapshot before unlocking.
func (t *CourseTable) write(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := inTx(ctx, t.db, fn); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	// The write is committed; take the snapshot even if ctx has expired.
	snapshot, err := t.GetAll(context.Background())
	if err != nil {
		slog.Error("cannot snapshot cached courses", slog.String("op", op), slog.String("error", err.Error()))
		return nil
	}
	t.pub.Publish(snapshot)
	return nil
}

func (t *CourseTable) close() {
	t.pub.Close()
}

func upsertCourses(ctx context.Context, tx *sql.Tx, rows []types.CourseRow) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, upsertCourseSQL)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, c := range rows {
		if _, err := stmt.ExecContext(ctx, c.ID, c.Name, c.Description, c.ImageURL, c.Schedule, c.Professor); err != nil {
			return fmt.Errorf("exec id %d: %w", c.ID, err)
		}
	}
	return nil
}
