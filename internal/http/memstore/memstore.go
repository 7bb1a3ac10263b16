// Package memstore is the in-memory backend of the mock course API.
// It plays the server's role: it assigns ids, keeps uploaded images and
// answers the handlers' queries. Everything is lost on restart.
package memstore

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/moviles/coursedesk/internal/types"
)

var (
	ErrCourseNotFound  = errors.New("course not found")
	ErrStudentNotFound = errors.New("student not found")
)

// ImagePrefix is the server-relative path images are served under.
const ImagePrefix = "/images/"

// Store holds courses, students and images behind a single mutex.
type Store struct {
	mu            sync.Mutex
	nextCourseID  int64
	nextStudentID int64
	courses       map[int64]types.Course
	students      map[int64]types.Student
	images        map[string][]byte
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		courses:  make(map[int64]types.Course),
		students: make(map[int64]types.Student),
		images:   make(map[string][]byte),
	}
}

// ListCourses returns every course ordered by id.
func (s *Store) ListCourses() []types.Course {
	s.mu.Lock()
	defer s.mu.Unlock()

	courses := make([]types.Course, 0, len(s.courses))
	for _, c := range s.courses {
		courses = append(courses, c)
	}
	sort.Slice(courses, func(i, j int) bool { return *courses[i].ID < *courses[j].ID })
	return courses
}

// GetCourse returns one course with its students attached.
func (s *Store) GetCourse(id int64) (types.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.courses[id]
	if !ok {
		return types.Course{}, fmt.Errorf("%w: %d", ErrCourseNotFound, id)
	}
	c.Students = s.studentsOf(id)
	return c, nil
}

// CreateCourse stores a new course whose image lives at imageURL.
func (s *Store) CreateCourse(fields types.CourseFields, imageURL string) types.Course {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextCourseID++
	c := types.Course{
		ID:          types.Int64(s.nextCourseID),
		Name:        fields.Name,
		Description: fields.Description,
		ImageURL:    types.String(imageURL),
		Schedule:    fields.Schedule,
		Professor:   fields.Professor,
	}
	s.courses[*c.ID] = c
	return c
}

// UpdateCourse replaces a course's text fields. A nil imageURL keeps the
// current image.
func (s *Store) UpdateCourse(id int64, fields types.CourseFields, imageURL *string) (types.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.courses[id]
	if !ok {
		return types.Course{}, fmt.Errorf("%w: %d", ErrCourseNotFound, id)
	}
	c.Name = fields.Name
	c.Description = fields.Description
	c.Schedule = fields.Schedule
	c.Professor = fields.Professor
	if imageURL != nil {
		c.ImageURL = imageURL
	}
	s.courses[id] = c
	return c, nil
}

// DeleteCourse removes a course together with its students.
func (s *Store) DeleteCourse(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.courses[id]; !ok {
		return fmt.Errorf("%w: %d", ErrCourseNotFound, id)
	}
	delete(s.courses, id)
	for sid, st := range s.students {
		if st.CourseID == id {
			delete(s.students, sid)
		}
	}
	return nil
}

// StudentsByCourse returns the students of one course ordered by id. An
// unknown course simply has no students.
func (s *Store) StudentsByCourse(courseID int64) []types.Student {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.studentsOf(courseID)
}

// CreateStudent enrolls a student in an existing course.
func (s *Store) CreateStudent(st types.Student) (types.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.courses[st.CourseID]; !ok {
		return types.Student{}, fmt.Errorf("%w: %d", ErrCourseNotFound, st.CourseID)
	}
	s.nextStudentID++
	st.ID = types.Int64(s.nextStudentID)
	s.students[*st.ID] = st
	return st, nil
}

// UpdateStudent replaces a student. The new course must exist.
func (s *Store) UpdateStudent(id int64, st types.Student) (types.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.students[id]; !ok {
		return types.Student{}, fmt.Errorf("%w: %d", ErrStudentNotFound, id)
	}
	if _, ok := s.courses[st.CourseID]; !ok {
		return types.Student{}, fmt.Errorf("%w: %d", ErrCourseNotFound, st.CourseID)
	}
	st.ID = types.Int64(id)
	s.students[id] = st
	return st, nil
}

// DeleteStudent removes a student.
func (s *Store) DeleteStudent(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.students[id]; !ok {
		return fmt.Errorf("%w: %d", ErrStudentNotFound, id)
	}
	delete(s.students, id)
	return nil
}

// SaveImage keeps an uploaded image under a unique name and returns the
// server-relative URL it is served from.
func (s *Store) SaveImage(filename string, data []byte) string {
	name := uuid.New().String() + filepath.Ext(filename)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.images[name] = data
	return ImagePrefix + name
}

// Image returns the bytes of a saved image.
func (s *Store) Image(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.images[name]
	return data, ok
}

// studentsOf must be called with mu held.
func (s *Store) studentsOf(courseID int64) []types.Student {
	students := make([]types.Student, 0)
	for _, st := range s.students {
		if st.CourseID == courseID {
			students = append(students, st)
		}
	}
	sort.Slice(students, func(i, j int) bool { return *students[i].ID < *students[j].ID })
	return students
}
