package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/moviles/coursedesk/internal/types"
)

// ListStudentsByCourse fetches the students enrolled in one course.
func (c *Client) ListStudentsByCourse(ctx context.Context, courseID int64) ([]types.Student, error) {
	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("/api/students/byCourse/%d", courseID), nil)
	if err != nil {
		return nil, err
	}
	students := make([]types.Student, 0)
	if err := c.do(req, &students); err != nil {
		return nil, err
	}
	return students, nil
}

// CreateStudent posts a new student; the server assigns the id.
func (c *Client) CreateStudent(ctx context.Context, s types.Student) (types.Student, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/api/students", s)
	if err != nil {
		return types.Student{}, err
	}
	var created types.Student
	if err := c.do(req, &created); err != nil {
		return types.Student{}, err
	}
	return created, nil
}

// UpdateStudent replaces the student with the given id.
func (c *Client) UpdateStudent(ctx context.Context, id int64, s types.Student) (types.Student, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPut, fmt.Sprintf("/api/students/%d", id), s)
	if err != nil {
		return types.Student{}, err
	}
	var updated types.Student
	if err := c.do(req, &updated); err != nil {
		return types.Student{}, err
	}
	return updated, nil
}

// DeleteStudent removes a student.
func (c *Client) DeleteStudent(ctx context.Context, id int64) error {
	req, err := c.newRequest(ctx, http.MethodDelete, fmt.Sprintf("/api/students/%d", id), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}
