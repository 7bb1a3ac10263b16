// Package types holds all shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles:
// the API client, the local store and the reconcilers can all import
// types without depending on each other.
//
// There are two shapes per entity:
//
//  1. The model (Course, Student): what the API speaks. Fields the
//     server may omit are pointers, and a nil ID means "not yet
//     persisted": the server assigns IDs on create.
//
//  2. The row (CourseRow, StudentRow): the fixed shape stored in the
//     local cache. Every column is required; absent optional values are
//     flattened to "".
package types

// Course represents a course as returned by the remote API.
//
// Struct tags:
//
//  1. json:"..."     : wire names used by the course API (camelCase).
//  2. validate:"..." : rules checked by go-playground/validator before
//     a write is sent to the network.
type Course struct {
	ID          *int64    `json:"id,omitempty"`
	Name        string    `json:"name"        validate:"required"`
	Description string    `json:"description" validate:"required"`
	ImageURL    *string   `json:"imageUrl,omitempty"`
	Schedule    string    `json:"schedule"    validate:"required"`
	Professor   string    `json:"professor"   validate:"required"`
	Students    []Student `json:"students,omitempty"`
}

// Persisted reports whether the server has assigned this course an ID.
func (c Course) Persisted() bool {
	return c.ID != nil
}

// Fields returns the editable text fields of the course, i.e. the parts
// of a multipart create/update request.
func (c Course) Fields() CourseFields {
	return CourseFields{
		Name:        c.Name,
		Description: c.Description,
		Schedule:    c.Schedule,
		Professor:   c.Professor,
	}
}

// CourseFields are the four text fields sent on course create/update.
type CourseFields struct {
	Name        string `validate:"required"`
	Description string `validate:"required"`
	Schedule    string `validate:"required"`
	Professor   string `validate:"required"`
}

// Student represents an enrolled student. CourseID always refers to an
// existing course: a student cannot exist without its parent.
type Student struct {
	ID       *int64  `json:"id,omitempty"`
	Name     string  `json:"name"     validate:"required"`
	Email    string  `json:"email"    validate:"required,email"`
	Phone    *string `json:"phone,omitempty"`
	CourseID int64   `json:"courseId" validate:"required,gt=0"`
}

// Persisted reports whether the server has assigned this student an ID.
func (s Student) Persisted() bool {
	return s.ID != nil
}

// CourseRow is the persisted form of a Course, keyed by ID.
type CourseRow struct {
	ID          int64
	Name        string
	Description string
	ImageURL    string
	Schedule    string
	Professor   string
}

// StudentRow is the persisted form of a Student, keyed by ID and looked
// up by CourseID.
type StudentRow struct {
	ID       int64
	Name     string
	Email    string
	Phone    string
	CourseID int64
}

// Int64 returns a pointer to v. Handy for building models in literals.
func Int64(v int64) *int64 { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }
