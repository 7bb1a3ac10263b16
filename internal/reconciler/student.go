package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/moviles/coursedesk/internal/apperrors"
	"github.com/moviles/coursedesk/internal/connectivity"
	"github.com/moviles/coursedesk/internal/pubsub"
	"github.com/moviles/coursedesk/internal/storage"
	"github.com/moviles/coursedesk/internal/types"
)

// StudentReconciler is the course reconciler's counterpart for the
// students of one course at a time. The course in scope is the one named
// by the latest FetchByCourse.
type StudentReconciler struct {
	api      StudentAPI
	store    storage.Students
	probe    connectivity.Probe
	log      *slog.Logger
	validate *validator.Validate

	students *pubsub.Publisher[[]types.Student]
	origin   *pubsub.Publisher[Origin]

	// mu guards the scope: which course is watched and through which
	// store subscription.
	mu       sync.Mutex
	courseID int64
	storeSub *pubsub.Subscription[[]types.StudentRow]
	wg       sync.WaitGroup
}

// NewStudentReconciler wires a reconciler to its collaborators. Nothing
// is watched until the first FetchByCourse.
func NewStudentReconciler(api StudentAPI, store storage.Students, probe connectivity.Probe, log *slog.Logger) *StudentReconciler {
	return &StudentReconciler{
		api:      api,
		store:    store,
		probe:    probe,
		log:      log.With(slog.String("component", "student_reconciler")),
		validate: validator.New(),
		students: pubsub.New([]types.Student{}),
		origin:   pubsub.New(OriginLocal),
	}
}

// Students subscribes to the student list of the course in scope.
func (r *StudentReconciler) Students() *pubsub.Subscription[[]types.Student] {
	return r.students.Subscribe()
}

// Origin subscribes to the data origin.
func (r *StudentReconciler) Origin() *pubsub.Subscription[Origin] {
	return r.origin.Subscribe()
}

// Snapshot returns the student list last published.
func (r *StudentReconciler) Snapshot() []types.Student {
	return r.students.Current()
}

// CurrentOrigin returns the origin last published.
func (r *StudentReconciler) CurrentOrigin() Origin {
	return r.origin.Current()
}

// CourseID returns the course in scope, or 0 before the first fetch.
func (r *StudentReconciler) CourseID() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.courseID
}

// Cached reads the students of the course in scope straight from the
// store.
func (r *StudentReconciler) Cached(ctx context.Context) ([]types.Student, error) {
	rows, err := r.store.GetByCourse(ctx, r.CourseID())
	if err != nil {
		return nil, fmt.Errorf("cached students: %w", err)
	}
	return types.StudentModels(rows), nil
}

// FetchByCourse scopes the reconciler to courseID and reloads its
// students: online, the course's cached students are replaced by the
// API's answer; offline or on failure they are left as they are.
func (r *StudentReconciler) FetchByCourse(ctx context.Context, courseID int64) error {
	if err := r.watch(ctx, courseID); err != nil {
		r.log.Error("error observing cached students", slog.Int64("course_id", courseID), slog.String("error", err.Error()))
		return fmt.Errorf("fetch students of course %d: %w", courseID, err)
	}

	if !r.probe.IsOnline(ctx) {
		r.log.Info("no network, serving cached students", slog.Int64("course_id", courseID))
		r.origin.Publish(OriginLocal)
		return nil
	}

	students, err := r.api.ListStudentsByCourse(ctx, courseID)
	if err != nil {
		logAPIError(r.log, "error fetching students", err)
		r.origin.Publish(OriginLocal)
		return fmt.Errorf("fetch students of course %d: %w", courseID, err)
	}
	r.log.Info("fetched students from API", slog.Int64("course_id", courseID), slog.Int("count", len(students)))

	if err := r.store.ReplaceByCourse(ctx, courseID, types.StudentRows(students)); err != nil {
		r.log.Error("error caching students", slog.Int64("course_id", courseID), slog.String("error", err.Error()))
		r.origin.Publish(OriginLocal)
		return fmt.Errorf("fetch students of course %d: %w", courseID, err)
	}
	r.origin.Publish(OriginAPI)
	return nil
}

// Create enrolls a new student, then refreshes the student's course.
func (r *StudentReconciler) Create(ctx context.Context, s types.Student) (types.Student, error) {
	if err := validate(r.validate, s); err != nil {
		r.log.Error("invalid student", slog.String("error", err.Error()))
		return types.Student{}, fmt.Errorf("create student: %w", err)
	}
	if err := requireOnline(ctx, r.probe, r.log, "create student"); err != nil {
		return types.Student{}, fmt.Errorf("create student: %w", err)
	}

	created, err := r.api.CreateStudent(ctx, s)
	if err != nil {
		logAPIError(r.log, "error adding student", err)
		return types.Student{}, fmt.Errorf("create student: %w", err)
	}
	if err := r.cache(ctx, created); err != nil {
		return created, fmt.Errorf("create student: %w", err)
	}
	r.log.Info("student added", slog.Int64("id", *created.ID), slog.Int64("course_id", created.CourseID))

	// Failures are logged by FetchByCourse; the write itself is cached.
	_ = r.FetchByCourse(ctx, created.CourseID)
	return created, nil
}

// Update replaces a student. The student must already have an id.
func (r *StudentReconciler) Update(ctx context.Context, s types.Student) (types.Student, error) {
	if !s.Persisted() {
		r.log.Error("cannot update student without id")
		return types.Student{}, fmt.Errorf("update student: %w",
			apperrors.NewPreconditionError("student has no id"))
	}
	if err := validate(r.validate, s); err != nil {
		r.log.Error("invalid student", slog.String("error", err.Error()))
		return types.Student{}, fmt.Errorf("update student: %w", err)
	}

	id := *s.ID
	if err := requireOnline(ctx, r.probe, r.log, "update student"); err != nil {
		return types.Student{}, fmt.Errorf("update student %d: %w", id, err)
	}
	updated, err := r.api.UpdateStudent(ctx, id, s)
	if err != nil {
		logAPIError(r.log, "error updating student", err)
		return types.Student{}, fmt.Errorf("update student %d: %w", id, err)
	}
	if err := r.cache(ctx, updated); err != nil {
		return updated, fmt.Errorf("update student %d: %w", id, err)
	}
	r.log.Info("student updated", slog.Int64("id", id))

	_ = r.FetchByCourse(ctx, updated.CourseID)
	return updated, nil
}

// Delete removes a student on the server, then from the cache, then
// refreshes courseID. If the server call fails the cached row stays.
func (r *StudentReconciler) Delete(ctx context.Context, id, courseID int64) error {
	if err := requireOnline(ctx, r.probe, r.log, "delete student"); err != nil {
		return fmt.Errorf("delete student %d: %w", id, err)
	}
	if err := r.api.DeleteStudent(ctx, id); err != nil {
		logAPIError(r.log, "error deleting student", err)
		return fmt.Errorf("delete student %d: %w", id, err)
	}
	if err := r.store.DeleteByID(ctx, id); err != nil {
		r.log.Error("error removing cached student", slog.Int64("id", id), slog.String("error", err.Error()))
		return fmt.Errorf("delete student %d: %w", id, err)
	}
	r.log.Info("student deleted from API and cache", slog.Int64("id", id))

	_ = r.FetchByCourse(ctx, courseID)
	return nil
}

// Close stops watching the store and closes all subscriptions.
func (r *StudentReconciler) Close() {
	r.mu.Lock()
	if r.storeSub != nil {
		r.storeSub.Close()
		r.storeSub = nil
	}
	r.mu.Unlock()

	r.wg.Wait()
	r.students.Close()
	r.origin.Close()
}

// watch points the published list at the cached students of courseID.
// Re-fetching the course already in scope keeps the current subscription.
func (r *StudentReconciler) watch(ctx context.Context, courseID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.storeSub != nil && r.courseID == courseID {
		return nil
	}

	sub, err := r.store.ObserveByCourse(ctx, courseID)
	if err != nil {
		return err
	}
	if r.storeSub != nil {
		r.storeSub.Close()
	}
	r.courseID = courseID
	r.storeSub = sub

	r.wg.Add(1)
	go r.forward(sub)
	return nil
}

// forward republishes sub's snapshots for as long as sub is the one in
// scope, so a late snapshot of a previous course is never shown.
func (r *StudentReconciler) forward(sub *pubsub.Subscription[[]types.StudentRow]) {
	defer r.wg.Done()
	for rows := range sub.C {
		r.mu.Lock()
		if r.storeSub == sub {
			r.students.Publish(types.StudentModels(rows))
		}
		r.mu.Unlock()
	}
}

func (r *StudentReconciler) cache(ctx context.Context, s types.Student) error {
	if !s.Persisted() {
		r.log.Error("server returned student without id", slog.String("name", s.Name))
		return fmt.Errorf("server returned student without id")
	}
	if err := r.store.Upsert(ctx, s.Row()); err != nil {
		r.log.Error("error caching student", slog.Int64("id", *s.ID), slog.String("error", err.Error()))
		return err
	}
	return nil
}
