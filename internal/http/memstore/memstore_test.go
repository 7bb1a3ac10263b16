package memstore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moviles/coursedesk/internal/types"
)

var fields = types.CourseFields{Name: "A", Description: "d", Schedule: "s", Professor: "p"}

func TestCourses(t *testing.T) {
	s := New()

	first := s.CreateCourse(fields, "/images/a.png")
	second := s.CreateCourse(fields, "/images/b.png")
	assert.Equal(t, int64(1), *first.ID)
	assert.Equal(t, int64(2), *second.ID)
	assert.Equal(t, []types.Course{first, second}, s.ListCourses())

	renamed := fields
	renamed.Name = "B"
	updated, err := s.UpdateCourse(1, renamed, nil)
	require.NoError(t, err)
	assert.Equal(t, "B", updated.Name)
	assert.Equal(t, "/images/a.png", *updated.ImageURL)

	updated, err = s.UpdateCourse(1, renamed, types.String("/images/c.png"))
	require.NoError(t, err)
	assert.Equal(t, "/images/c.png", *updated.ImageURL)

	_, err = s.UpdateCourse(9, renamed, nil)
	assert.ErrorIs(t, err, ErrCourseNotFound)
	_, err = s.GetCourse(9)
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestDeleteCourse_CascadesToStudents(t *testing.T) {
	s := New()
	c := s.CreateCourse(fields, "/images/a.png")
	other := s.CreateCourse(fields, "/images/b.png")

	_, err := s.CreateStudent(types.Student{Name: "x", Email: "x@y.z", CourseID: *c.ID})
	require.NoError(t, err)
	kept, err := s.CreateStudent(types.Student{Name: "y", Email: "y@y.z", CourseID: *other.ID})
	require.NoError(t, err)

	got, err := s.GetCourse(*c.ID)
	require.NoError(t, err)
	assert.Len(t, got.Students, 1)

	require.NoError(t, s.DeleteCourse(*c.ID))
	assert.Empty(t, s.StudentsByCourse(*c.ID))
	assert.Equal(t, []types.Student{kept}, s.StudentsByCourse(*other.ID))
	assert.ErrorIs(t, s.DeleteCourse(*c.ID), ErrCourseNotFound)
}

func TestStudents(t *testing.T) {
	s := New()
	c := s.CreateCourse(fields, "/images/a.png")

	_, err := s.CreateStudent(types.Student{Name: "x", Email: "x@y.z", CourseID: 42})
	assert.ErrorIs(t, err, ErrCourseNotFound)

	st, err := s.CreateStudent(types.Student{Name: "x", Email: "x@y.z", CourseID: *c.ID})
	require.NoError(t, err)

	st.Name = "renamed"
	updated, err := s.UpdateStudent(*st.ID, st)
	require.NoError(t, err)
	assert.Equal(t, st, updated)

	_, err = s.UpdateStudent(99, st)
	assert.ErrorIs(t, err, ErrStudentNotFound)

	require.NoError(t, s.DeleteStudent(*st.ID))
	assert.ErrorIs(t, s.DeleteStudent(*st.ID), ErrStudentNotFound)
	assert.NotNil(t, s.StudentsByCourse(*c.ID))
}

func TestImages(t *testing.T) {
	s := New()

	url := s.SaveImage("photo.JPG", []byte("jpeg"))
	require.True(t, strings.HasPrefix(url, ImagePrefix))
	assert.True(t, strings.HasSuffix(url, ".JPG"))

	data, ok := s.Image(strings.TrimPrefix(url, ImagePrefix))
	require.True(t, ok)
	assert.Equal(t, []byte("jpeg"), data)

	_, ok = s.Image("nope.png")
	assert.False(t, ok)
}
