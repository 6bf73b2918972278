package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-dashboard/internal/dto"
	"github.com/noah-isme/student-dashboard/internal/models"
	appErrors "github.com/noah-isme/student-dashboard/pkg/errors"
)

type responseEnvelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func bytesBuffer(s string) *bytes.Buffer {
	return bytes.NewBufferString(s)
}

func newTestContext(method, target string, body *bytes.Buffer, contentType string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	if body == nil {
		body = &bytes.Buffer{}
	}
	c.Request = httptest.NewRequest(method, target, body)
	if contentType != "" {
		c.Request.Header.Set("Content-Type", contentType)
	}
	return c, rec
}

type fakeStudentSrv struct {
	list       dto.StudentList
	courses    dto.CourseList
	lastFilter dto.StudentFilter
	created    *models.CreateStudentRequest
	updatedID  models.ID
	updated    *models.UpdateStudentRequest
	deletedID  models.ID
	err        error
}

func (f *fakeStudentSrv) List(_ context.Context, filter dto.StudentFilter) dto.StudentList {
	f.lastFilter = filter
	return f.list
}

func (f *fakeStudentSrv) Courses(context.Context) dto.CourseList { return f.courses }

func (f *fakeStudentSrv) Create(_ context.Context, req models.CreateStudentRequest) (*models.Student, error) {
	f.created = &req
	if f.err != nil {
		return nil, f.err
	}
	return &models.Student{ID: "42", Name: req.Name, Email: req.Email, Courses: []models.CourseAssociation{}}, nil
}

func (f *fakeStudentSrv) Update(_ context.Context, id models.ID, req models.UpdateStudentRequest) (*models.Student, error) {
	f.updatedID = id
	f.updated = &req
	if f.err != nil {
		return nil, f.err
	}
	return &models.Student{ID: id, Courses: []models.CourseAssociation{}}, nil
}

func (f *fakeStudentSrv) Delete(_ context.Context, id models.ID) error {
	f.deletedID = id
	return f.err
}

func TestStudentHandlerListPassesFilterAndMeta(t *testing.T) {
	srv := &fakeStudentSrv{list: dto.StudentList{
		Students: []models.Student{{ID: "1", Name: "Ada", Courses: []models.CourseAssociation{}}},
		Total:    1,
		Error:    "Network Error",
		Version:  4,
	}}
	h := NewStudentHandler(srv)
	c, rec := newTestContext(http.MethodGet, "/students?q=ada&status=Active&courseId=2", nil, "")

	h.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dto.StudentFilter{Query: "ada", Status: "Active", CourseID: "2"}, srv.lastFilter)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "Network Error", env.Meta["error"])
	assert.Equal(t, float64(4), env.Meta["version"])
	assert.Equal(t, false, env.Meta["loading"])
	var students []models.Student
	require.NoError(t, json.Unmarshal(env.Data, &students))
	assert.Equal(t, "Ada", students[0].Name)
}

func TestStudentHandlerCreateJSON(t *testing.T) {
	srv := &fakeStudentSrv{}
	h := NewStudentHandler(srv)
	body := bytes.NewBufferString(`{"name":"Jane","email":"jane@x.com","cohort":"AY 2024-25","courseIds":[1,"2"]}`)
	c, rec := newTestContext(http.MethodPost, "/students", body, "application/json")

	h.Create(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, srv.created)
	assert.Equal(t, []models.ID{"1", "2"}, srv.created.CourseIDs)
	assert.Nil(t, srv.created.Image)
}

func TestStudentHandlerCreateJSONCoursesField(t *testing.T) {
	srv := &fakeStudentSrv{}
	h := NewStudentHandler(srv)
	body := bytes.NewBufferString(`{"name":"Jane Doe","email":"jane@x.com","cohort":"AY 2024-25","courses":[1]}`)
	c, rec := newTestContext(http.MethodPost, "/students", body, "application/json")

	h.Create(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, srv.created)
	assert.Equal(t, []models.ID{"1"}, srv.created.CourseIDs)
}

func TestStudentHandlerUpdateJSONCoursesField(t *testing.T) {
	srv := &fakeStudentSrv{}
	h := NewStudentHandler(srv)
	c, rec := newTestContext(http.MethodPut, "/students/3", bytes.NewBufferString(`{"courses":[2,"4"]}`), "application/json")
	c.Params = gin.Params{{Key: "id", Value: "3"}}

	h.Update(c)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, srv.updated)
	assert.Equal(t, []models.ID{"2", "4"}, srv.updated.CourseIDs)
	assert.Nil(t, srv.updated.Status)
}

func TestStudentHandlerCreateMultipart(t *testing.T) {
	srv := &fakeStudentSrv{}
	h := NewStudentHandler(srv)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("name", "Jane"))
	require.NoError(t, writer.WriteField("email", "jane@x.com"))
	require.NoError(t, writer.WriteField("status", "active"))
	require.NoError(t, writer.WriteField("courses[]", "1"))
	require.NoError(t, writer.WriteField("courses[]", "3"))
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="image"; filename="jane.png"`)
	header.Set("Content-Type", "image/png")
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG fake"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	c, rec := newTestContext(http.MethodPost, "/students", body, writer.FormDataContentType())
	h.Create(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, srv.created)
	assert.Equal(t, "Jane", srv.created.Name)
	assert.Equal(t, models.Status("active"), srv.created.Status)
	assert.Equal(t, []models.ID{"1", "3"}, srv.created.CourseIDs)
	require.NotNil(t, srv.created.Image)
	assert.Equal(t, "jane.png", srv.created.Image.Filename)
	assert.Equal(t, "image/png", srv.created.Image.ContentType)
	assert.Equal(t, []byte("\x89PNG fake"), srv.created.Image.Data)
}

func TestStudentHandlerCreatePropagatesUpstreamStatus(t *testing.T) {
	srv := &fakeStudentSrv{err: appErrors.FromStatus(http.StatusConflict, "Email already exists")}
	h := NewStudentHandler(srv)
	c, rec := newTestContext(http.MethodPost, "/students", bytes.NewBufferString(`{"name":"Jane","email":"jane@x.com"}`), "application/json")

	h.Create(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "Email already exists", env.Error.Message)
}

func TestStudentHandlerCreateRejectsMalformedJSON(t *testing.T) {
	h := NewStudentHandler(&fakeStudentSrv{})
	c, rec := newTestContext(http.MethodPost, "/students", bytes.NewBufferString(`{"name":`), "application/json")

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStudentHandlerUpdateAndDelete(t *testing.T) {
	srv := &fakeStudentSrv{}
	h := NewStudentHandler(srv)

	c, rec := newTestContext(http.MethodPut, "/students/7", bytes.NewBufferString(`{"status":"Inactive","courseIds":[]}`), "application/json")
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	h.Update(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ID("7"), srv.updatedID)
	require.NotNil(t, srv.updated.Status)
	assert.Equal(t, models.StatusInactive, *srv.updated.Status)
	assert.NotNil(t, srv.updated.CourseIDs)

	c, rec = newTestContext(http.MethodDelete, "/students/7", nil, "")
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	h.Delete(c)
	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, models.ID("7"), srv.deletedID)

	srv.err = appErrors.FromStatus(http.StatusNotFound, "Student not found")
	c, rec = newTestContext(http.MethodDelete, "/students/8", nil, "")
	c.Params = gin.Params{{Key: "id", Value: "8"}}
	h.Delete(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStudentHandlerCourses(t *testing.T) {
	srv := &fakeStudentSrv{courses: dto.CourseList{Courses: []models.Course{{ID: "1", Name: "Physics"}}, Version: 2}}
	h := NewStudentHandler(srv)
	c, rec := newTestContext(http.MethodGet, "/courses", nil, "")

	h.Courses(c)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.NotContains(t, env.Meta, "error")
	var courses []models.Course
	require.NoError(t, json.Unmarshal(env.Data, &courses))
	assert.Equal(t, "Physics", courses[0].Name)
}
