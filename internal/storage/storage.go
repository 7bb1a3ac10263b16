// Package storage defines the local cache contract, the on-device
// mirror of the remote API that the reconcilers read from when offline.
//
// Two independent tables are exposed, one interface each. Any backend
// that implements them works with the reconcilers; the SQLite one lives
// in storage/sqlite.
//
// LIVE QUERIES
// ────────────
// Observe* methods return a subscription that immediately yields the
// current snapshot and then a new snapshot after every completed write
// to that table. Snapshots are published while the table's write lock is
// held, so a subscriber never sees a half-applied write and emissions
// follow write order.
package storage

import (
	"context"
	"errors"

	"github.com/moviles/coursedesk/internal/pubsub"
	"github.com/moviles/coursedesk/internal/types"
)

// ErrNotFound is returned by GetByID when no row has the given id.
var ErrNotFound = errors.New("row not found")

// Courses is the cached course table, keyed by id.
type Courses interface {
	// GetAll returns every cached course, ordered by id.
	GetAll(ctx context.Context) ([]types.CourseRow, error)

	// ObserveAll subscribes to the whole table.
	ObserveAll(ctx context.Context) (*pubsub.Subscription[[]types.CourseRow], error)

	// GetByID returns one course or ErrNotFound.
	GetByID(ctx context.Context, id int64) (types.CourseRow, error)

	// Upsert inserts the row, replacing any row with the same id.
	Upsert(ctx context.Context, row types.CourseRow) error

	// UpsertAll upserts every row in a single transaction.
	UpsertAll(ctx context.Context, rows []types.CourseRow) error

	// DeleteByID removes the row with the given id, if present.
	DeleteByID(ctx context.Context, id int64) error

	// Clear removes every row.
	Clear(ctx context.Context) error

	// ReplaceAll clears the table and inserts rows as one atomic write.
	ReplaceAll(ctx context.Context, rows []types.CourseRow) error
}

// Students is the cached student table, keyed by id with a secondary
// lookup by course id.
type Students interface {
	// GetByCourse returns the students of one course, ordered by id.
	GetByCourse(ctx context.Context, courseID int64) ([]types.StudentRow, error)

	// ObserveByCourse subscribes to the students of one course.
	ObserveByCourse(ctx context.Context, courseID int64) (*pubsub.Subscription[[]types.StudentRow], error)

	// GetByID returns one student or ErrNotFound.
	GetByID(ctx context.Context, id int64) (types.StudentRow, error)

	Upsert(ctx context.Context, row types.StudentRow) error
	UpsertAll(ctx context.Context, rows []types.StudentRow) error
	DeleteByID(ctx context.Context, id int64) error

	// DeleteByCourse removes every student of the given course.
	DeleteByCourse(ctx context.Context, courseID int64) error

	Clear(ctx context.Context) error

	// ReplaceByCourse swaps the students of one course for rows as one
	// atomic write. Students of other courses are untouched.
	ReplaceByCourse(ctx context.Context, courseID int64, rows []types.StudentRow) error
}
