// Package handlers assembles the mock course API's route table.
package handlers

import (
	"net/http"

	"github.com/moviles/coursedesk/internal/http/handlers/course"
	"github.com/moviles/coursedesk/internal/http/handlers/student"
	"github.com/moviles/coursedesk/internal/http/memstore"
)

// NewRouter registers every endpoint against store.
//
// Route table:
//
//	GET    /api/courses                    → list courses
//	GET    /api/courses/{id}               → one course with its students
//	POST   /api/courses                    → create (multipart, image required)
//	PUT    /api/courses/{id}               → update (multipart, image optional)
//	DELETE /api/courses/{id}               → delete course and its students
//	GET    /api/students/byCourse/{courseId}
//	POST   /api/students
//	PUT    /api/students/{id}
//	DELETE /api/students/{id}
//	GET    /images/{name}                  → uploaded course images
func NewRouter(store *memstore.Store) *http.ServeMux {
	router := http.NewServeMux()

	router.HandleFunc("GET /api/courses", course.GetList(store))
	router.HandleFunc("GET /api/courses/{id}", course.GetByID(store))
	router.HandleFunc("POST /api/courses", course.New(store))
	router.HandleFunc("PUT /api/courses/{id}", course.Update(store))
	router.HandleFunc("DELETE /api/courses/{id}", course.Delete(store))

	router.HandleFunc("GET /api/students/byCourse/{courseId}", student.GetByCourse(store))
	router.HandleFunc("POST /api/students", student.New(store))
	router.HandleFunc("PUT /api/students/{id}", student.Update(store))
	router.HandleFunc("DELETE /api/students/{id}", student.Delete(store))

	router.HandleFunc("GET "+memstore.ImagePrefix+"{name}", course.Image(store))

	return router
}
