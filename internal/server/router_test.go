package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/student-dashboard/internal/dto"
	"github.com/noah-isme/student-dashboard/internal/fixtures"
	"github.com/noah-isme/student-dashboard/internal/handler"
	"github.com/noah-isme/student-dashboard/internal/models"
	"github.com/noah-isme/student-dashboard/internal/service"
	"github.com/noah-isme/student-dashboard/internal/store"
	"github.com/noah-isme/student-dashboard/pkg/config"
	"github.com/noah-isme/student-dashboard/pkg/storage"
)

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
	Meta map[string]interface{} `json:"meta"`
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dataset, err := fixtures.Load()
	require.NoError(t, err)
	logr := zap.NewNop()
	metrics := service.NewMetricsService()
	st := store.New(fixtures.NewSource(dataset), store.WithLogger(logr))
	st.Subscribe(metrics.ObserveStoreState)

	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Minute)

	cfg := &config.Config{Env: config.EnvDevelopment, APIPrefix: "/api"}
	return NewRouter(cfg, logr, metrics, Handlers{
		Students:  handler.NewStudentHandler(service.NewStudentService(st, validator.New(), logr)),
		Chapters:  handler.NewChapterHandler(service.NewChapterService(st, dataset, logr)),
		State:     handler.NewStateHandler(st),
		Dashboard: handler.NewDashboardHandler(service.NewDashboardService(service.DashboardServiceParams{Store: st, Trend: dataset, Logger: logr})),
		Reports:   handler.NewReportHandler(service.NewReportService(st, dataset, logr)),
		Exports:   handler.NewExportHandler(service.NewExportService(st, files, signer, metrics, service.ExportConfig{APIPrefix: cfg.APIPrefix}, logr)),
		Health:    handler.NewHealthHandler(metrics, nil),
	})
}

func do(t *testing.T, r *gin.Engine, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	var env envelope
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestRouterStudentLifecycle(t *testing.T) {
	r := newTestRouter(t)

	rec, env := do(t, r, http.MethodGet, "/api/students", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var students []models.Student
	require.NoError(t, json.Unmarshal(env.Data, &students))
	assert.Len(t, students, 5)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec, env = do(t, r, http.MethodPost, "/api/students", `{"name":"Jane Doe","email":"jane@x.com","cohort":"AY 2024-25","courseIds":[3]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.Student
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, models.ID("6"), created.ID)
	assert.Equal(t, "Mathematics", created.Courses[0].CourseName)

	rec, env = do(t, r, http.MethodPost, "/api/students", `{"name":"Dup","email":"jane@x.com"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "Email already exists", env.Error.Message)

	rec, _ = do(t, r, http.MethodPut, "/api/students/6", `{"status":"inactive"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, r, http.MethodDelete, "/api/students/6", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, env = do(t, r, http.MethodDelete, "/api/students/6", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Student not found", env.Error.Message)

	rec, env = do(t, r, http.MethodGet, "/api/state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var state store.State
	require.NoError(t, json.Unmarshal(env.Data, &state))
	assert.Equal(t, "Student not found", state.Error)
	assert.Equal(t, store.PhaseFailed, state.Operations[store.OpDeleteStudent])
	assert.Len(t, state.Students, 5)

	rec, _ = do(t, r, http.MethodDelete, "/api/state/error", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, env = do(t, r, http.MethodGet, "/api/state", "")
	require.NoError(t, json.Unmarshal(env.Data, &state))
	assert.Empty(t, state.Error)
}

func TestRouterDashboardReportsAndChapters(t *testing.T) {
	r := newTestRouter(t)

	rec, env := do(t, r, http.MethodGet, "/api/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary dto.DashboardSummary
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, 5, summary.TotalStudents)
	assert.Equal(t, 4, summary.TotalCourses)
	assert.Equal(t, false, env.Meta["cache_hit"])

	rec, env = do(t, r, http.MethodGet, "/api/reports?type=performance&range=quarter", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var report dto.ReportResponse
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, "Performance Analysis (This Quarter)", report.Title)
	assert.Len(t, report.Chart.Data, 4)

	rec, _ = do(t, r, http.MethodGet, "/api/reports?type=revenue", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = do(t, r, http.MethodGet, "/api/courses/1/chapters", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var chapters dto.ChapterList
	require.NoError(t, json.Unmarshal(env.Data, &chapters))
	assert.Equal(t, "Physics", chapters.Course.Name)

	rec, _ = do(t, r, http.MethodGet, "/api/courses/999/chapters", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouterExportRoundTrip(t *testing.T) {
	r := newTestRouter(t)

	rec, env := do(t, r, http.MethodPost, "/api/exports?status=Active", `{"format":"csv"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var export dto.ExportResponse
	require.NoError(t, json.Unmarshal(env.Data, &export))
	assert.Equal(t, 3, export.Rows)

	link, err := url.Parse(export.DownloadURL)
	require.NoError(t, err)
	rec, _ = do(t, r, http.MethodGet, link.RequestURI(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".csv")
	assert.Contains(t, rec.Body.String(), "Anshuman Kashyap")
	assert.NotContains(t, rec.Body.String(), "Chandrika Valotia")
}

func TestRouterObservability(t *testing.T) {
	r := newTestRouter(t)

	rec, _ := do(t, r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(t, r, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	do(t, r, http.MethodGet, "/api/students", "")
	rec, _ = do(t, r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `store_students 5`)
	assert.Contains(t, rec.Body.String(), `path="/api/students"`)
}
