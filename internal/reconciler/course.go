package reconciler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/moviles/coursedesk/internal/apperrors"
	"github.com/moviles/coursedesk/internal/connectivity"
	"github.com/moviles/coursedesk/internal/pubsub"
	"github.com/moviles/coursedesk/internal/storage"
	"github.com/moviles/coursedesk/internal/types"
)

// CourseReconciler keeps the cached course list in step with the API
// and publishes it, together with its origin, to subscribers.
type CourseReconciler struct {
	api      CourseAPI
	store    storage.Courses
	students storage.Students
	probe    connectivity.Probe
	log      *slog.Logger
	validate *validator.Validate

	courses  *pubsub.Publisher[[]types.Course]
	origin   *pubsub.Publisher[Origin]
	storeSub *pubsub.Subscription[[]types.CourseRow]
	done     chan struct{}
}

// NewCourseReconciler wires a reconciler to its collaborators and starts
// mirroring the store's course table. students is only written to: a
// deleted course takes its cached students with it. Call Close when done.
func NewCourseReconciler(ctx context.Context, api CourseAPI, store storage.Courses, students storage.Students, probe connectivity.Probe, log *slog.Logger) (*CourseReconciler, error) {
	sub, err := store.ObserveAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewCourseReconciler: %w", err)
	}

	r := &CourseReconciler{
		api:      api,
		store:    store,
		students: students,
		probe:    probe,
		log:      log.With(slog.String("component", "course_reconciler")),
		validate: validator.New(),
		courses:  pubsub.New([]types.Course{}),
		origin:   pubsub.New(OriginLocal),
		storeSub: sub,
		done:     make(chan struct{}),
	}
	go r.mirror()
	return r, nil
}

func (r *CourseReconciler) mirror() {
	defer close(r.done)
	for rows := range r.storeSub.C {
		r.courses.Publish(types.CourseModels(rows))
		r.log.Debug("courses loaded from cache", slog.Int("count", len(rows)))
	}
}

// Courses subscribes to the course list.
func (r *CourseReconciler) Courses() *pubsub.Subscription[[]types.Course] {
	return r.courses.Subscribe()
}

// Origin subscribes to the data origin.
func (r *CourseReconciler) Origin() *pubsub.Subscription[Origin] {
	return r.origin.Subscribe()
}

// Snapshot returns the course list last published.
func (r *CourseReconciler) Snapshot() []types.Course {
	return r.courses.Current()
}

// CurrentOrigin returns the origin last published.
func (r *CourseReconciler) CurrentOrigin() Origin {
	return r.origin.Current()
}

// Cached reads the course list straight from the store, for callers that
// need the post-write state without waiting on a subscription.
func (r *CourseReconciler) Cached(ctx context.Context) ([]types.Course, error) {
	rows, err := r.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("cached courses: %w", err)
	}
	return types.CourseModels(rows), nil
}

// Refresh reloads the course list. Online, the cache is replaced by the
// API's answer; offline or on failure the cache is left untouched and
// the origin becomes LOCAL.
func (r *CourseReconciler) Refresh(ctx context.Context) error {
	if !r.probe.IsOnline(ctx) {
		r.log.Info("no network, serving cached courses")
		r.origin.Publish(OriginLocal)
		return nil
	}

	r.log.Debug("network available, fetching courses from API")
	courses, err := r.api.ListCourses(ctx)
	if err != nil {
		r.log.Error("error fetching courses", slog.String("error", err.Error()))
		r.origin.Publish(OriginLocal)
		return fmt.Errorf("refresh courses: %w", err)
	}
	r.log.Info("fetched courses from API", slog.Int("count", len(courses)))

	if err := r.store.ReplaceAll(ctx, types.CourseRows(courses)); err != nil {
		r.log.Error("error caching courses", slog.String("error", err.Error()))
		r.origin.Publish(OriginLocal)
		return fmt.Errorf("refresh courses: %w", err)
	}
	r.origin.Publish(OriginAPI)
	return nil
}

// Get returns one course, from the API when online (caching the answer)
// and from the cache otherwise.
func (r *CourseReconciler) Get(ctx context.Context, id int64) (types.Course, error) {
	if r.probe.IsOnline(ctx) {
		course, err := r.api.GetCourse(ctx, id)
		if err == nil {
			if err := r.store.Upsert(ctx, course.Row()); err != nil {
				r.log.Error("error caching course", slog.Int64("id", id), slog.String("error", err.Error()))
			}
			return course, nil
		}
		r.log.Error("error fetching course, falling back to cache",
			slog.Int64("id", id), slog.String("error", err.Error()))
	}

	row, err := r.store.GetByID(ctx, id)
	if err != nil {
		return types.Course{}, fmt.Errorf("get course %d: %w", id, err)
	}
	return row.Model(), nil
}

// Create uploads a new course. An image is mandatory: without one the
// call fails with a precondition error before any network or cache work.
func (r *CourseReconciler) Create(ctx context.Context, fields types.CourseFields, image *types.Image) (types.Course, error) {
	if image.Empty() {
		r.log.Error("image file is missing or empty", slog.String("name", fields.Name))
		return types.Course{}, fmt.Errorf("create course: %w",
			apperrors.NewPreconditionError("an image file is required"))
	}
	if err := validate(r.validate, fields); err != nil {
		r.log.Error("invalid course", slog.String("error", err.Error()))
		return types.Course{}, fmt.Errorf("create course: %w", err)
	}
	if err := requireOnline(ctx, r.probe, r.log, "create course"); err != nil {
		return types.Course{}, fmt.Errorf("create course: %w", err)
	}

	r.log.Info("adding course", slog.String("name", fields.Name), slog.String("image", image.Filename))
	created, err := r.api.CreateCourse(ctx, fields, image)
	if err != nil {
		logAPIError(r.log, "error adding course", err)
		return types.Course{}, fmt.Errorf("create course: %w", err)
	}

	if err := r.cache(ctx, created); err != nil {
		return created, fmt.Errorf("create course: %w", err)
	}
	r.log.Info("course added", slog.Int64("id", *created.ID))

	// Failures are logged by Refresh; the write itself is already cached.
	_ = r.Refresh(ctx)
	return created, nil
}

// Update sends the course's fields (and a new image, if any). The course
// must already have an id.
func (r *CourseReconciler) Update(ctx context.Context, course types.Course, image *types.Image) (types.Course, error) {
	if !course.Persisted() {
		r.log.Error("cannot update course without id")
		return types.Course{}, fmt.Errorf("update course: %w",
			apperrors.NewPreconditionError("course has no id"))
	}
	if err := validate(r.validate, course.Fields()); err != nil {
		r.log.Error("invalid course", slog.String("error", err.Error()))
		return types.Course{}, fmt.Errorf("update course: %w", err)
	}

	id := *course.ID
	if err := requireOnline(ctx, r.probe, r.log, "update course"); err != nil {
		return types.Course{}, fmt.Errorf("update course %d: %w", id, err)
	}
	r.log.Info("updating course", slog.Int64("id", id), slog.Bool("new_image", !image.Empty()))
	if image.Empty() {
		image = nil
	}
	updated, err := r.api.UpdateCourse(ctx, id, course.Fields(), image)
	if err != nil {
		logAPIError(r.log, "error updating course", err)
		return types.Course{}, fmt.Errorf("update course %d: %w", id, err)
	}

	if err := r.cache(ctx, updated); err != nil {
		return updated, fmt.Errorf("update course %d: %w", id, err)
	}
	r.log.Info("course updated", slog.Int64("id", id))

	_ = r.Refresh(ctx)
	return updated, nil
}

// Delete removes a course on the server and then from the cache, along
// with its cached students. If the server call fails nothing is removed.
func (r *CourseReconciler) Delete(ctx context.Context, id int64) error {
	if err := requireOnline(ctx, r.probe, r.log, "delete course"); err != nil {
		return fmt.Errorf("delete course %d: %w", id, err)
	}
	r.log.Info("deleting course", slog.Int64("id", id))
	if err := r.api.DeleteCourse(ctx, id); err != nil {
		logAPIError(r.log, "error deleting course", err)
		return fmt.Errorf("delete course %d: %w", id, err)
	}

	if err := r.store.DeleteByID(ctx, id); err != nil {
		r.log.Error("error removing cached course", slog.Int64("id", id), slog.String("error", err.Error()))
		return fmt.Errorf("delete course %d: %w", id, err)
	}
	// The server drops a course's students with it.
	if err := r.students.DeleteByCourse(ctx, id); err != nil {
		r.log.Error("error removing cached students of course", slog.Int64("id", id), slog.String("error", err.Error()))
		return fmt.Errorf("delete course %d: %w", id, err)
	}
	r.log.Info("course deleted from API and cache", slog.Int64("id", id))

	_ = r.Refresh(ctx)
	return nil
}

// Close stops mirroring the store and closes all subscriptions.
func (r *CourseReconciler) Close() {
	r.storeSub.Close()
	<-r.done
	r.courses.Close()
	r.origin.Close()
}

// cache upserts a record the server just confirmed.
func (r *CourseReconciler) cache(ctx context.Context, c types.Course) error {
	if !c.Persisted() {
		r.log.Error("server returned course without id", slog.String("name", c.Name))
		return fmt.Errorf("server returned course without id")
	}
	if err := r.store.Upsert(ctx, c.Row()); err != nil {
		r.log.Error("error caching course", slog.Int64("id", *c.ID), slog.String("error", err.Error()))
		return err
	}
	return nil
}
