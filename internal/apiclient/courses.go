package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/moviles/coursedesk/internal/types"
)

// ImageField is the multipart part name the server reads the image from.
const ImageField = "ImageFile"

// ListCourses fetches every course.
func (c *Client) ListCourses(ctx context.Context) ([]types.Course, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/courses", nil)
	if err != nil {
		return nil, err
	}
	courses := make([]types.Course, 0)
	if err := c.do(req, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

// GetCourse fetches one course.
func (c *Client) GetCourse(ctx context.Context, id int64) (types.Course, error) {
	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("/api/courses/%d", id), nil)
	if err != nil {
		return types.Course{}, err
	}
	var course types.Course
	if err := c.do(req, &course); err != nil {
		return types.Course{}, err
	}
	return course, nil
}

// CreateCourse uploads a new course with its image. The server assigns
// the id and the image URL and returns the full record.
func (c *Client) CreateCourse(ctx context.Context, fields types.CourseFields, image *types.Image) (types.Course, error) {
	return c.sendCourse(ctx, http.MethodPost, "/api/courses", fields, image)
}

// UpdateCourse replaces the text fields of a course. With a nil image an
// empty image part is sent and the server keeps the current image.
func (c *Client) UpdateCourse(ctx context.Context, id int64, fields types.CourseFields, image *types.Image) (types.Course, error) {
	return c.sendCourse(ctx, http.MethodPut, fmt.Sprintf("/api/courses/%d", id), fields, image)
}

// DeleteCourse removes a course.
func (c *Client) DeleteCourse(ctx context.Context, id int64) error {
	req, err := c.newRequest(ctx, http.MethodDelete, fmt.Sprintf("/api/courses/%d", id), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) sendCourse(ctx context.Context, method, path string, fields types.CourseFields, image *types.Image) (types.Course, error) {
	body, contentType, err := courseForm(fields, image)
	if err != nil {
		return types.Course{}, err
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return types.Course{}, err
	}
	req.Header.Set("Content-Type", contentType)

	var course types.Course
	if err := c.do(req, &course); err != nil {
		return types.Course{}, err
	}
	return course, nil
}

// courseForm encodes the four text fields and the image part.
func courseForm(fields types.CourseFields, image *types.Image) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range []struct{ name, value string }{
		{"name", fields.Name},
		{"description", fields.Description},
		{"schedule", fields.Schedule},
		{"professor", fields.Professor},
	} {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f.name, err)
		}
	}

	filename := ""
	var data []byte
	if image != nil {
		filename = image.Filename
		data = image.Data
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, ImageField, filename))
	if len(data) > 0 {
		h.Set("Content-Type", "image/*")
	}
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create image part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("write image part: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
