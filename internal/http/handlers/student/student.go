// Package student contains the mock API's HTTP handlers for the Student
// resource. Same closure / factory pattern as package course:
//
//	router.HandleFunc("POST /api/students", student.New(store))
package student

import (
	"encoding/json"
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

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /api/students
// Enrolls a new student from the JSON request body.
//
// Request body (JSON):
//
//	{ "name": "Rakesh", "email": "rakesh@test.com", "phone": "555", "courseId": 1 }
//
// Success response (201 Created): the student with its new id.
//
// Error responses:
//
//	400 Bad Request : empty body, malformed JSON, or failed validation
//	404 Not Found   : the course does not exist
//
// ─────────────────────────────────────────────────────────────────────────────
func New(store *memstore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("creating a student")

		student, ok := decode(w, r)
		if !ok {
			return
		}

		created, err := store.CreateStudent(student)
		if err != nil {
			writeStoreError(w, err)
			return
		}

		slog.Info("student created", slog.Int64("id", *created.ID))
		response.WriteJSON(w, http.StatusCreated, created)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetByCourse handles GET /api/students/byCourse/{courseId}
// Returns a JSON array of the course's students; [] when there are none.
// ─────────────────────────────────────────────────────────────────────────────
func GetByCourse(store *memstore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID, ok := pathInt(w, r, "courseId")
		if !ok {
			return
		}
		slog.Info("getting students of course", slog.Int64("course_id", courseID))

		response.WriteJSON(w, http.StatusOK, store.StudentsByCourse(courseID))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles PUT /api/students/{id}
// Replaces ALL fields of an existing student.
// ─────────────────────────────────────────────────────────────────────────────
func Update(store *memstore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathInt(w, r, "id")
		if !ok {
			return
		}
		slog.Info("updating a student", slog.Int64("id", id))

		student, ok := decode(w, r)
		if !ok {
			return
		}

		updated, err := store.UpdateStudent(id, student)
		if err != nil {
			writeStoreError(w, err)
			return
		}

		slog.Info("student updated", slog.Int64("id", id))
		response.WriteJSON(w, http.StatusOK, updated)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete handles DELETE /api/students/{id}
// Success response: 204 No Content.
// ─────────────────────────────────────────────────────────────────────────────
func Delete(store *memstore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathInt(w, r, "id")
		if !ok {
			return
		}
		slog.Info("deleting a student", slog.Int64("id", id))

		if err := store.DeleteStudent(id); err != nil {
			writeStoreError(w, err)
			return
		}

		slog.Info("student deleted", slog.Int64("id", id))
		w.WriteHeader(http.StatusNoContent)
	}
}

// decode reads and validates a Student body, writing a 400 and
// returning false on failure.
func decode(w http.ResponseWriter, r *http.Request) (types.Student, bool) {
	var student types.Student

	err := json.NewDecoder(r.Body).Decode(&student)
	if errors.Is(err, io.EOF) {
		response.WriteJSON(w, http.StatusBadRequest,
			response.GeneralError(errors.New("request body is empty")))
		return types.Student{}, false
	}
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		return types.Student{}, false
	}

	if err := validator.New().Struct(student); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(verrs))
		} else {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		}
		return types.Student{}, false
	}
	return student, true
}

func pathInt(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest,
			response.GeneralError(errors.New("invalid "+name+": must be an integer")))
		return 0, false
	}
	return v, true
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, memstore.ErrCourseNotFound) || errors.Is(err, memstore.ErrStudentNotFound) {
		response.WriteJSON(w, http.StatusNotFound, response.GeneralError(err))
		return
	}
	slog.Error("error handling student request", slog.String("error", err.Error()))
	response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
}
