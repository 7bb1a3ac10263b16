// Package reconciler holds the fetch-or-serve-cached logic that sits
// between the presentation layer and the data sources.
//
// HOW A RECONCILER WORKS
// ──────────────────────
//  1. Reads: ask the connectivity probe. Online → call the API and
//     replace the cached rows with the answer. Offline (or the call
//     failed) → leave the cache alone and mark the data as LOCAL.
//  2. Writes: call the API first. Only a confirmed write touches the
//     cache, followed by a full refresh so the cache mirrors the server.
//     Offline, the cache is read-only: writes fail with
//     apperrors.ErrNetworkUnavailable and nothing is sent or stored.
//  3. The observable list is never assigned directly: it mirrors the
//     store's live query, so whatever is shown is whatever is cached.
//
// Errors are logged and returned for diagnostics; none of them leave the
// observable state anywhere but its last good value.
package reconciler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/moviles/coursedesk/internal/apperrors"
	"github.com/moviles/coursedesk/internal/connectivity"
	"github.com/moviles/coursedesk/internal/types"
	"github.com/moviles/coursedesk/internal/utils/response"
)

// Origin tells where the data currently on display came from.
type Origin string

const (
	OriginAPI   Origin = "API"
	OriginLocal Origin = "LOCAL"
)

// CourseAPI is the part of the API client the course reconciler uses.
type CourseAPI interface {
	ListCourses(ctx context.Context) ([]types.Course, error)
	GetCourse(ctx context.Context, id int64) (types.Course, error)
	CreateCourse(ctx context.Context, fields types.CourseFields, image *types.Image) (types.Course, error)
	UpdateCourse(ctx context.Context, id int64, fields types.CourseFields, image *types.Image) (types.Course, error)
	DeleteCourse(ctx context.Context, id int64) error
}

// StudentAPI is the part of the API client the student reconciler uses.
type StudentAPI interface {
	ListStudentsByCourse(ctx context.Context, courseID int64) ([]types.Student, error)
	CreateStudent(ctx context.Context, s types.Student) (types.Student, error)
	UpdateStudent(ctx context.Context, id int64, s types.Student) (types.Student, error)
	DeleteStudent(ctx context.Context, id int64) error
}

// validate checks v's validate:"..." tags and turns failures into a
// precondition error with one readable sentence per field.
func validate(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.NewPreconditionError("%s", response.ValidationError(verrs).Error)
	}
	return apperrors.NewPreconditionError("%s", err.Error())
}

// logAPIError logs a failed API call, with the HTTP status when the
// server answered.
func logAPIError(log *slog.Logger, msg string, err error) {
	if code := apperrors.StatusCode(err); code != 0 {
		log.Error(msg, slog.Int("status", code), slog.String("error", err.Error()))
		return
	}
	log.Error(msg, slog.String("error", err.Error()))
}

// requireOnline refuses a write when the probe says there is no network.
func requireOnline(ctx context.Context, probe connectivity.Probe, log *slog.Logger, op string) error {
	if probe.IsOnline(ctx) {
		return nil
	}
	log.Warn("no network, write refused", slog.String("op", op))
	return apperrors.ErrNetworkUnavailable
}
