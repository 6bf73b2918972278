// Package apiclient talks to the student/course REST API backing the dashboard.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/student-dashboard/internal/models"
	appErrors "github.com/noah-isme/student-dashboard/pkg/errors"
)

// RequestObserver receives timing information for every upstream call.
type RequestObserver interface {
	ObserveUpstreamRequest(method, path string, status int, duration time.Duration)
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger attaches a zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver attaches a request observer such as the metrics service.
func WithObserver(observer RequestObserver) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

// Client performs fire-once requests against the configured base URL.
type Client struct {
	baseURL  *url.URL
	http     *http.Client
	logger   *zap.Logger
	observer RequestObserver
}

// New constructs a Client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	raw := strings.TrimSpace(baseURL)
	if raw == "" {
		return nil, fmt.Errorf("api base url is required")
	}
	parsed, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("api base url %q must be absolute", raw)
	}
	c := &Client{
		baseURL: parsed,
		http:    &http.Client{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured upstream base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// GetStudents issues GET /students.
func (c *Client) GetStudents(ctx context.Context) ([]models.Student, error) {
	var students []models.Student
	if err := c.do(ctx, http.MethodGet, "/students", nil, "", &students); err != nil {
		return nil, err
	}
	if students == nil {
		students = []models.Student{}
	}
	return students, nil
}

// GetCourses issues GET /courses.
func (c *Client) GetCourses(ctx context.Context) ([]models.Course, error) {
	var courses []models.Course
	if err := c.do(ctx, http.MethodGet, "/courses", nil, "", &courses); err != nil {
		return nil, err
	}
	if courses == nil {
		courses = []models.Course{}
	}
	return courses, nil
}

// AddStudent issues POST /students, as multipart when an image is attached and JSON otherwise.
func (c *Client) AddStudent(ctx context.Context, req models.CreateStudentRequest) (*models.Student, error) {
	var (
		body        []byte
		contentType string
		err         error
	)
	if req.Image != nil {
		body, contentType, err = encodeMultipart(req)
	} else {
		body, contentType, err = encodeJSON(createBody(req))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	var student models.Student
	if err := c.do(ctx, http.MethodPost, "/students", body, contentType, &student); err != nil {
		return nil, err
	}
	return &student, nil
}

// UpdateStudent issues PUT /students/{id} with a JSON body.
func (c *Client) UpdateStudent(ctx context.Context, id models.ID, req models.UpdateStudentRequest) (*models.Student, error) {
	body, contentType, err := encodeJSON(req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	var student models.Student
	if err := c.do(ctx, http.MethodPut, studentPath(id), body, contentType, &student); err != nil {
		return nil, err
	}
	return &student, nil
}

// DeleteStudent issues DELETE /students/{id}. Any response body is ignored.
func (c *Client) DeleteStudent(ctx context.Context, id models.ID) error {
	return c.do(ctx, http.MethodDelete, studentPath(id), nil, "", nil)
}

func studentPath(id models.ID) string {
	return "/students/" + url.PathEscape(id.String())
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.baseURL.String(), "/") + path
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, contentType string, dest interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), reader)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build upstream request")
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.observe(method, path, 0, duration)
		c.logger.Warn("upstream request failed", zap.String("method", method), zap.String("path", path), zap.Duration("latency", duration), zap.Error(err))
		return appErrors.Network(err)
	}
	defer resp.Body.Close() //nolint:errcheck

	c.observe(method, path, resp.StatusCode, duration)
	c.logger.Debug("upstream request", zap.String("method", method), zap.String("path", path), zap.Int("status", resp.StatusCode), zap.Duration("latency", duration))

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return appErrors.Network(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return appErrors.FromStatus(resp.StatusCode, extractMessage(payload))
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrParse.Code, appErrors.ErrParse.Status, appErrors.GenericMessage)
	}
	return nil
}

func (c *Client) observe(method, path string, status int, duration time.Duration) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveUpstreamRequest(method, routeLabel(path), status, duration)
}

// routeLabel collapses ids so metrics keep a bounded label set.
func routeLabel(path string) string {
	if strings.HasPrefix(path, "/students/") {
		return "/students/:id"
	}
	return path
}

// extractMessage reads {"error": "..."} or {"error": {"message": "..."}}.
func extractMessage(payload []byte) string {
	var body struct {
		Error json.RawMessage `json:"error"`
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return ""
	}
	if err := json.Unmarshal(payload, &body); err != nil || len(body.Error) == 0 {
		return ""
	}
	var msg string
	if err := json.Unmarshal(body.Error, &msg); err == nil {
		return strings.TrimSpace(msg)
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body.Error, &nested); err == nil {
		return strings.TrimSpace(nested.Message)
	}
	return ""
}

type createPayload struct {
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	Cohort    string        `json:"cohort"`
	Status    models.Status `json:"status,omitempty"`
	CourseIDs []models.ID   `json:"courseIds"`
}

func createBody(req models.CreateStudentRequest) createPayload {
	ids := req.CourseIDs
	if ids == nil {
		ids = []models.ID{}
	}
	return createPayload{
		Name:      req.Name,
		Email:     req.Email,
		Cohort:    req.Cohort,
		Status:    req.Status,
		CourseIDs: ids,
	}
}

func encodeJSON(v interface{}) ([]byte, string, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, "", fmt.Errorf("marshal request body: %w", err)
	}
	return body, "application/json", nil
}

func encodeMultipart(req models.CreateStudentRequest) ([]byte, string, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	fields := [][2]string{
		{"name", req.Name},
		{"email", req.Email},
		{"cohort", req.Cohort},
	}
	if req.Status != "" {
		fields = append(fields, [2]string{"status", string(req.Status)})
	}
	for _, f := range fields {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f[0], err)
		}
	}
	for _, id := range req.CourseIDs {
		if err := writer.WriteField("courses[]", id.String()); err != nil {
			return nil, "", fmt.Errorf("write course field: %w", err)
		}
	}

	filename := req.Image.Filename
	if filename == "" {
		filename = "image"
	}
	contentType := req.Image.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(req.Image.Data)
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create image part: %w", err)
	}
	if _, err := part.Write(req.Image.Data); err != nil {
		return nil, "", fmt.Errorf("write image part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}
