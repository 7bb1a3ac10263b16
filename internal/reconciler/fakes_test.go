package reconciler

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/moviles/coursedesk/internal/apperrors"
	"github.com/moviles/coursedesk/internal/config"
	"github.com/moviles/coursedesk/internal/storage/sqlite"
	"github.com/moviles/coursedesk/internal/types"
)

func newStore(t *testing.T) *sqlite.SQLite {
	t.Helper()
	db, err := sqlite.New(&config.Config{StoragePath: filepath.Join(t.TempDir(), "cache.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

var errServer = &apperrors.APIError{StatusCode: 500, Message: "boom"}

// fakeCourseAPI is an in-memory server. Setting err makes every call
// fail with it.
type fakeCourseAPI struct {
	mu      sync.Mutex
	courses map[int64]types.Course
	nextID  int64
	err     error
	calls   []string
	images  []*types.Image
}

func newFakeCourseAPI(courses ...types.Course) *fakeCourseAPI {
	f := &fakeCourseAPI{courses: make(map[int64]types.Course), nextID: 100}
	for _, c := range courses {
		f.courses[*c.ID] = c
	}
	return f
}

func (f *fakeCourseAPI) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeCourseAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeCourseAPI) ListCourses(ctx context.Context) ([]types.Course, error) {
	if err := f.record("list"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.Course, 0, len(f.courses))
	for _, c := range f.courses {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].ID < *out[j].ID })
	return out, nil
}

func (f *fakeCourseAPI) GetCourse(ctx context.Context, id int64) (types.Course, error) {
	if err := f.record(fmt.Sprintf("get %d", id)); err != nil {
		return types.Course{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.courses[id]
	if !ok {
		return types.Course{}, &apperrors.APIError{StatusCode: 404}
	}
	return c, nil
}

func (f *fakeCourseAPI) CreateCourse(ctx context.Context, fields types.CourseFields, image *types.Image) (types.Course, error) {
	if err := f.record("create"); err != nil {
		return types.Course{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images = append(f.images, image)
	f.nextID++
	c := courseWith(f.nextID, fields)
	c.ImageURL = types.String("/images/" + image.Filename)
	f.courses[f.nextID] = c
	return c, nil
}

func (f *fakeCourseAPI) UpdateCourse(ctx context.Context, id int64, fields types.CourseFields, image *types.Image) (types.Course, error) {
	if err := f.record(fmt.Sprintf("update %d", id)); err != nil {
		return types.Course{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images = append(f.images, image)
	old, ok := f.courses[id]
	if !ok {
		return types.Course{}, &apperrors.APIError{StatusCode: 404}
	}
	c := courseWith(id, fields)
	c.ImageURL = old.ImageURL
	if image != nil {
		c.ImageURL = types.String("/images/" + image.Filename)
	}
	f.courses[id] = c
	return c, nil
}

func (f *fakeCourseAPI) DeleteCourse(ctx context.Context, id int64) error {
	if err := f.record(fmt.Sprintf("delete %d", id)); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.courses[id]; !ok {
		return &apperrors.APIError{StatusCode: 404}
	}
	delete(f.courses, id)
	return nil
}

// fakeStudentAPI mirrors fakeCourseAPI for students.
type fakeStudentAPI struct {
	mu       sync.Mutex
	students map[int64]types.Student
	nextID   int64
	err      error
	calls    []string
}

func newFakeStudentAPI(students ...types.Student) *fakeStudentAPI {
	f := &fakeStudentAPI{students: make(map[int64]types.Student), nextID: 100}
	for _, s := range students {
		f.students[*s.ID] = s
	}
	return f
}

func (f *fakeStudentAPI) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeStudentAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeStudentAPI) ListStudentsByCourse(ctx context.Context, courseID int64) ([]types.Student, error) {
	if err := f.record(fmt.Sprintf("list %d", courseID)); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.Student, 0)
	for _, s := range f.students {
		if s.CourseID == courseID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].ID < *out[j].ID })
	return out, nil
}

func (f *fakeStudentAPI) CreateStudent(ctx context.Context, s types.Student) (types.Student, error) {
	if err := f.record("create"); err != nil {
		return types.Student{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	s.ID = types.Int64(f.nextID)
	f.students[f.nextID] = s
	return s, nil
}

func (f *fakeStudentAPI) UpdateStudent(ctx context.Context, id int64, s types.Student) (types.Student, error) {
	if err := f.record(fmt.Sprintf("update %d", id)); err != nil {
		return types.Student{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s.ID = types.Int64(id)
	f.students[id] = s
	return s, nil
}

func (f *fakeStudentAPI) DeleteStudent(ctx context.Context, id int64) error {
	if err := f.record(fmt.Sprintf("delete %d", id)); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.students, id)
	return nil
}

func courseWith(id int64, fields types.CourseFields) types.Course {
	return types.Course{
		ID:          types.Int64(id),
		Name:        fields.Name,
		Description: fields.Description,
		Schedule:    fields.Schedule,
		Professor:   fields.Professor,
	}
}

func testCourse(id int64, name string) types.Course {
	c := courseWith(id, types.CourseFields{Name: name, Description: "d", Schedule: "Mon", Professor: "Ada"})
	c.ImageURL = types.String(fmt.Sprintf("/images/%d.png", id))
	return c
}

func testStudent(id, courseID int64, name string) types.Student {
	return types.Student{ID: types.Int64(id), Name: name, Email: name + "@uni.edu", CourseID: courseID}
}
