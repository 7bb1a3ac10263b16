// Package course contains the mock API's HTTP handlers for the Course
// resource.
//
// Handlers use the closure / factory pattern: a factory receives the
// backend once at startup and returns the func(w, r) the router calls
// on every request.
//
//	router.HandleFunc("POST /api/courses", course.New(store))
//
// Create and update are multipart forms: four text fields (name,
// description, schedule, professor) plus the image part "ImageFile".
package course

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/moviles/coursedesk/internal/http/memstore"
	"github.com/moviles/coursedesk/internal/types"
	"github.com/moviles/coursedesk/internal/utils/response"
)

const (
	imageField    = "ImageFile"
	maxFormMemory = 10 << 20
)

// New handles POST /api/courses
// Creates a course; the image part is required.
//
// Success response (201 Created): the full course, with id and imageUrl.
//
// Error responses:
//
//	400 Bad Request : malformed form, failed validation or missing image
func New(store *memstore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("creating a course")

		fields, ok := readFields(w, r)
		if !ok {
			return
		}

		name, data, err := readImage(r)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}
		if len(data) == 0 {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("field ImageFile is required")))
			return
		}

		created := store.CreateCourse(fields, store.SaveImage(name, data))

		slog.Info("course created", slog.Int64("id", *created.ID))
		response.WriteJSON(w, http.StatusCreated, created)
	}
}

// GetByID handles GET /api/courses/{id}
// Returns the course with its students.
//
// Error responses:
//
//	400 Bad Request : id is not a valid integer
//	404 Not Found   : no such course
func GetByID(store *memstore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		slog.Info("getting a course", slog.Int64("id", id))

		c, err := store.GetCourse(id)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, c)
	}
}

// GetList handles GET /api/courses
// Returns an empty array [] (not null) when there are no courses.
func GetList(store *memstore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("getting all courses")
		response.WriteJSON(w, http.StatusOK, store.ListCourses())
	}
}

// Update handles PUT /api/courses/{id}
// Replaces the text fields. An empty image part keeps the current image.
func Update(store *memstore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		slog.Info("updating a course", slog.Int64("id", id))

		fields, ok := readFields(w, r)
		if !ok {
			return
		}

		name, data, err := readImage(r)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}
		var imageURL *string
		if len(data) > 0 {
			imageURL = types.String(store.SaveImage(name, data))
		}

		updated, err := store.UpdateCourse(id, fields, imageURL)
		if err != nil {
			writeStoreError(w, err)
			return
		}

		slog.Info("course updated", slog.Int64("id", id))
		response.WriteJSON(w, http.StatusOK, updated)
	}
}

// Delete handles DELETE /api/courses/{id}
// Success response: 204 No Content.
func Delete(store *memstore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		slog.Info("deleting a course", slog.Int64("id", id))

		if err := store.DeleteCourse(id); err != nil {
			writeStoreError(w, err)
			return
		}

		slog.Info("course deleted", slog.Int64("id", id))
		w.WriteHeader(http.StatusNoContent)
	}
}

// Image handles GET /images/{name}
func Image(store *memstore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, ok := store.Image(r.PathValue("name"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", http.DetectContentType(data))
		w.Write(data)
	}
}

// readFields parses the multipart form and validates the text fields,
// writing a 400 and returning false on failure.
func readFields(w http.ResponseWriter, r *http.Request) (types.CourseFields, bool) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		return types.CourseFields{}, false
	}

	fields := types.CourseFields{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Schedule:    r.FormValue("schedule"),
		Professor:   r.FormValue("professor"),
	}
	if err := validator.New().Struct(fields); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(verrs))
		} else {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		}
		return types.CourseFields{}, false
	}
	return fields, true
}

// readImage returns the uploaded image, or empty data when the part is
// missing or was sent without a filename.
func readImage(r *http.Request) (string, []byte, error) {
	file, header, err := r.FormFile(imageField)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, err
	}
	return header.Filename, data, nil
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest,
			response.GeneralError(errors.New("invalid id: must be an integer")))
		return 0, false
	}
	return id, true
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, memstore.ErrCourseNotFound) || errors.Is(err, memstore.ErrStudentNotFound) {
		response.WriteJSON(w, http.StatusNotFound, response.GeneralError(err))
		return
	}
	slog.Error("error handling course request", slog.String("error", err.Error()))
	response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
}
