// Package apiclient is the typed client for the remote course API.
//
// Every method maps to one REST endpoint:
//
//	GET    /api/courses                     ListCourses
//	GET    /api/courses/{id}                GetCourse
//	POST   /api/courses          multipart  CreateCourse
//	PUT    /api/courses/{id}     multipart  UpdateCourse
//	DELETE /api/courses/{id}                DeleteCourse
//	GET    /api/students/byCourse/{id}      ListStudentsByCourse
//	POST   /api/students         JSON       CreateStudent
//	PUT    /api/students/{id}    JSON       UpdateStudent
//	DELETE /api/students/{id}               DeleteStudent
//
// Failures come back as apperrors values: *APIError for non-2xx answers,
// ErrNetworkUnavailable when the server cannot be reached at all, and
// *TransportError for anything else that breaks mid-request.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/moviles/coursedesk/internal/apperrors"
	"github.com/moviles/coursedesk/internal/config"
	"github.com/moviles/coursedesk/internal/utils/response"
)

// maxErrorBody caps how much of a failed response is kept on APIError.
const maxErrorBody = 64 << 10

// Client talks to the course API. It holds no state besides its
// configuration and is safe for concurrent use.
type Client struct {
	baseURL      string
	imageBaseURL string
	httpClient   *http.Client
	log          *slog.Logger
}

// New builds a Client from cfg. A nil httpClient gets a default one with
// cfg.Timeout.
func New(cfg config.API, httpClient *http.Client, log *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	imageBase := cfg.ImageBaseURL
	if imageBase == "" {
		imageBase = cfg.BaseURL
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		imageBaseURL: imageBase,
		httpClient:   httpClient,
		log:          log.With(slog.String("component", "apiclient")),
	}
}

// ResolveImageURL turns the server-relative image path stored on a
// course into an absolute URL. Absolute URLs and "" pass through.
func (c *Client) ResolveImageURL(rel string) string {
	if rel == "" {
		return ""
	}
	ref, err := url.Parse(rel)
	if err != nil || ref.IsAbs() {
		return rel
	}
	base, err := url.Parse(c.imageBaseURL)
	if err != nil {
		return rel
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	return base.ResolveReference(&url.URL{Path: strings.TrimLeft(ref.Path, "/"), RawQuery: ref.RawQuery}).String()
}

// newRequest builds a request for path with the standard headers set.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

// newJSONRequest builds a request whose body is v encoded as JSON.
func (c *Client) newJSONRequest(ctx context.Context, method, path string, v any) (*http.Request, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal body: %w", err)
	}
	req, err := c.newRequest(ctx, method, path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do sends req and, on a 2xx answer, decodes the body into out (when out
// is non-nil). Everything else is mapped to the apperrors taxonomy.
func (c *Client) do(req *http.Request, out any) error {
	op := req.Method + " " + req.URL.Path
	log := c.log.With(
		slog.String("op", op),
		slog.String("request_id", req.Header.Get("X-Request-ID")),
	)
	log.Debug("sending request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isUnreachable(err) {
			log.Debug("server unreachable", slog.String("error", err.Error()))
			return fmt.Errorf("%s: %w", op, apperrors.ErrNetworkUnavailable)
		}
		return &apperrors.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &apperrors.APIError{StatusCode: resp.StatusCode, Body: string(body)}
		if msg, ok := response.ParseError(body); ok {
			apiErr.Message = msg
		}
		log.Debug("request failed", slog.Int("status", resp.StatusCode))
		return apiErr
	}

	if out == nil {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &apperrors.TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	log.Debug("request succeeded", slog.Int("status", resp.StatusCode))
	return nil
}

// isUnreachable reports whether err means the request never reached the
// server: DNS failures and refused or unroutable dials.
func isUnreachable(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}
