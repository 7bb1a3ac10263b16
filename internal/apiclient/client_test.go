package apiclient

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moviles/coursedesk/internal/apperrors"
	"github.com/moviles/coursedesk/internal/config"
	"github.com/moviles/coursedesk/internal/http/handlers"
	"github.com/moviles/coursedesk/internal/http/memstore"
	"github.com/moviles/coursedesk/internal/logger"
	"github.com/moviles/coursedesk/internal/types"
)

var algebra = types.CourseFields{
	Name:        "Algebra",
	Description: "Vectors and matrices",
	Schedule:    "Mon 10:00",
	Professor:   "Noether",
}

func newMockAPI(t *testing.T) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handlers.NewRouter(memstore.New()))
	t.Cleanup(srv.Close)
	return New(config.API{BaseURL: srv.URL}, srv.Client(), logger.Discard()), srv
}

func pngImage() *types.Image {
	return &types.Image{Filename: "cover.png", Data: []byte("\x89PNG\r\n\x1a\nfake")}
}

func TestCourses_CRUD(t *testing.T) {
	ctx := context.Background()
	client, srv := newMockAPI(t)

	empty, err := client.ListCourses(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	created, err := client.CreateCourse(ctx, algebra, pngImage())
	require.NoError(t, err)
	require.True(t, created.Persisted())
	require.NotNil(t, created.ImageURL)
	assert.Equal(t, algebra, created.Fields())
	assert.Regexp(t, `^/images/[0-9a-f-]{36}\.png$`, *created.ImageURL)

	// The uploaded bytes are served back under the returned URL.
	resp, err := srv.Client().Get(client.ResolveImageURL(*created.ImageURL))
	require.NoError(t, err)
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, pngImage().Data, data)

	// Updating without an image keeps the current one.
	renamed := algebra
	renamed.Name = "Linear Algebra"
	updated, err := client.UpdateCourse(ctx, *created.ID, renamed, nil)
	require.NoError(t, err)
	assert.Equal(t, "Linear Algebra", updated.Name)
	assert.Equal(t, *created.ImageURL, *updated.ImageURL)

	// A new image replaces it.
	replaced, err := client.UpdateCourse(ctx, *created.ID, renamed, &types.Image{Filename: "new.jpg", Data: []byte("jpeg")})
	require.NoError(t, err)
	assert.NotEqual(t, *created.ImageURL, *replaced.ImageURL)

	got, err := client.GetCourse(ctx, *created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Linear Algebra", got.Name)

	list, err := client.ListCourses(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, *created.ID, *list[0].ID)

	require.NoError(t, client.DeleteCourse(ctx, *created.ID))
	list, err = client.ListCourses(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateCourse_MissingImageRejectedByServer(t *testing.T) {
	client, _ := newMockAPI(t)

	_, err := client.CreateCourse(context.Background(), algebra, nil)

	var apiErr *apperrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "field ImageFile is required", apiErr.Message)
}

func TestCreateCourse_ValidationMessage(t *testing.T) {
	client, _ := newMockAPI(t)

	fields := algebra
	fields.Professor = ""
	_, err := client.CreateCourse(context.Background(), fields, pngImage())

	var apiErr *apperrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "field Professor is required", apiErr.Message)
}

func TestGetCourse_NotFound(t *testing.T) {
	client, _ := newMockAPI(t)

	_, err := client.GetCourse(context.Background(), 404)

	assert.Equal(t, http.StatusNotFound, apperrors.StatusCode(err))
	var apiErr *apperrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "course not found: 404", apiErr.Message)
}

func TestStudents_CRUD(t *testing.T) {
	ctx := context.Background()
	client, _ := newMockAPI(t)

	course, err := client.CreateCourse(ctx, algebra, pngImage())
	require.NoError(t, err)
	courseID := *course.ID

	ana, err := client.CreateStudent(ctx, types.Student{Name: "Ana", Email: "ana@uni.edu", CourseID: courseID})
	require.NoError(t, err)
	require.True(t, ana.Persisted())
	assert.Nil(t, ana.Phone)

	bo, err := client.CreateStudent(ctx, types.Student{Name: "Bo", Email: "bo@uni.edu", Phone: types.String("555"), CourseID: courseID})
	require.NoError(t, err)

	list, err := client.ListStudentsByCourse(ctx, courseID)
	require.NoError(t, err)
	assert.Equal(t, []types.Student{ana, bo}, list)

	ana.Email = "ana@college.edu"
	updated, err := client.UpdateStudent(ctx, *ana.ID, ana)
	require.NoError(t, err)
	assert.Equal(t, ana, updated)

	require.NoError(t, client.DeleteStudent(ctx, *bo.ID))
	list, err = client.ListStudentsByCourse(ctx, courseID)
	require.NoError(t, err)
	assert.Equal(t, []types.Student{updated}, list)

	err = client.DeleteStudent(ctx, *bo.ID)
	assert.Equal(t, http.StatusNotFound, apperrors.StatusCode(err))
}

func TestCreateStudent_UnknownCourse(t *testing.T) {
	client, _ := newMockAPI(t)

	_, err := client.CreateStudent(context.Background(), types.Student{Name: "Ana", Email: "ana@uni.edu", CourseID: 9})

	assert.Equal(t, http.StatusNotFound, apperrors.StatusCode(err))
}

func TestListStudents_EmptyCourse(t *testing.T) {
	client, _ := newMockAPI(t)

	list, err := client.ListStudentsByCourse(context.Background(), 9)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestCourseForm_EmptyImagePart(t *testing.T) {
	var gotHeader, gotFilename string
	var gotData []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if !assert.NoError(t, err) {
			return
		}
		mr := multipart.NewReader(r.Body, params["boundary"])
		for {
			p, err := mr.NextPart()
			if errors.Is(err, io.EOF) {
				break
			}
			if !assert.NoError(t, err) {
				return
			}
			if p.FormName() == ImageField {
				gotHeader = p.Header.Get("Content-Disposition")
				gotFilename = p.FileName()
				gotData, _ = io.ReadAll(p)
			}
		}
		w.Write([]byte(`{"id":1,"name":"Algebra","description":"d","schedule":"s","professor":"p"}`))
	}))
	defer srv.Close()

	client := New(config.API{BaseURL: srv.URL}, srv.Client(), logger.Discard())
	_, err := client.UpdateCourse(context.Background(), 1, algebra, nil)
	require.NoError(t, err)

	assert.Contains(t, gotHeader, `name="ImageFile"`)
	assert.Empty(t, gotFilename)
	assert.Empty(t, gotData)
}

func TestRequestHeaders(t *testing.T) {
	ids := make(chan string, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		ids <- r.Header.Get("X-Request-ID")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := New(config.API{BaseURL: srv.URL + "/"}, srv.Client(), logger.Discard())
	for i := 0; i < 2; i++ {
		_, err := client.ListCourses(context.Background())
		require.NoError(t, err)
	}

	first, second := <-ids, <-ids
	assert.Len(t, first, 36)
	assert.NotEqual(t, first, second)
}

func TestErrorBodyWithoutEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := New(config.API{BaseURL: srv.URL}, srv.Client(), logger.Discard())
	_, err := client.ListCourses(context.Background())

	var apiErr *apperrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Empty(t, apiErr.Message)
	assert.Contains(t, apiErr.Body, "upstream down")
}

func TestMalformedSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	client := New(config.API{BaseURL: srv.URL}, srv.Client(), logger.Discard())
	_, err := client.GetCourse(context.Background(), 1)

	var transportErr *apperrors.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "GET /api/courses/1", transportErr.Op)
}

func TestUnreachableServer(t *testing.T) {
	// Grab a free port, then close it so nothing is listening.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	client := New(config.API{BaseURL: "http://" + addr}, nil, logger.Discard())
	_, err = client.ListCourses(context.Background())

	assert.ErrorIs(t, err, apperrors.ErrNetworkUnavailable)
}

func TestResolveImageURL(t *testing.T) {
	tests := []struct {
		name      string
		imageBase string
		in        string
		want      string
	}{
		{"relative with leading slash", "", "/images/a.png", "http://api.test:5000/images/a.png"},
		{"relative without slash", "", "images/a.png", "http://api.test:5000/images/a.png"},
		{"empty", "", "", ""},
		{"already absolute", "", "https://cdn.test/a.png", "https://cdn.test/a.png"},
		{"separate image host", "https://cdn.test/static", "/images/a.png", "https://cdn.test/static/images/a.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := New(config.API{BaseURL: "http://api.test:5000", ImageBaseURL: tt.imageBase}, nil, logger.Discard())
			assert.Equal(t, tt.want, client.ResolveImageURL(tt.in))
		})
	}
}
