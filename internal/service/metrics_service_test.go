package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-dashboard/internal/dto"
	"github.com/noah-isme/student-dashboard/internal/models"
	"github.com/noah-isme/student-dashboard/internal/store"
)

// metricValue sums every sample of the named counter or gauge.
func metricValue(t *testing.T, m *MetricsService, name string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	var total float64
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			total += metric.GetCounter().GetValue() + metric.GetGauge().GetValue()
		}
	}
	return total
}

func TestMetricsServiceSnapshot(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/students", http.StatusOK, 20*time.Millisecond)
	m.ObserveHTTPRequest(http.MethodGet, "/api/students", http.StatusOK, 40*time.Millisecond)
	m.ObserveUpstreamRequest(http.MethodGet, "/students", http.StatusOK, 10*time.Millisecond)
	m.ObserveUpstreamRequest(http.MethodPost, "/students", 0, 10*time.Millisecond)
	m.ObserveUpstreamRequest(http.MethodPost, "/students", http.StatusConflict, 10*time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.RequestsTotal)
	assert.InDelta(t, 30, snap.AverageRequestDurationMs, 0.001)
	assert.Equal(t, uint64(3), snap.UpstreamRequests)
	assert.Equal(t, uint64(2), snap.UpstreamFailures)
	assert.Equal(t, uint64(2), snap.CacheHits)
	assert.Equal(t, uint64(1), snap.CacheMisses)
	assert.InDelta(t, 2.0/3.0, snap.CacheHitRatio, 0.0001)
	assert.Positive(t, snap.Goroutines)

	assert.Equal(t, float64(3), metricValue(t, m, "upstream_requests_total"))
}

func TestMetricsServiceStoreAndExports(t *testing.T) {
	m := NewMetricsService()
	m.ObserveStoreState(store.State{
		Students: []models.Student{{ID: "1"}, {ID: "2"}},
		Courses:  []models.Course{{ID: "1"}},
		Version:  7,
	})
	m.RecordExport(dto.ExportFormatPDF)
	m.RecordExport(dto.ExportFormatCSV)

	assert.Equal(t, float64(2), metricValue(t, m, "store_students"))
	assert.Equal(t, float64(1), metricValue(t, m, "store_courses"))
	assert.Equal(t, float64(7), metricValue(t, m, "store_version"))
	assert.Equal(t, float64(2), metricValue(t, m, "exports_total"))
}

func TestMetricsServiceIgnoresStaleStoreSnapshots(t *testing.T) {
	m := NewMetricsService()
	m.ObserveStoreState(store.State{Students: []models.Student{{ID: "1"}, {ID: "2"}}, Version: 9})
	m.ObserveStoreState(store.State{Students: []models.Student{{ID: "1"}}, Version: 8})

	assert.Equal(t, float64(9), metricValue(t, m, "store_version"))
	assert.Equal(t, float64(2), metricValue(t, m, "store_students"))

	m.ObserveStoreState(store.State{Version: 10})
	assert.Equal(t, float64(10), metricValue(t, m, "store_version"))
	assert.Equal(t, float64(0), metricValue(t, m, "store_students"))
}

func TestMetricsServiceHandlerAndNilSafety(t *testing.T) {
	m := NewMetricsService()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "goroutines_total")

	var nilMetrics *MetricsService
	assert.NotPanics(t, func() {
		nilMetrics.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
		nilMetrics.ObserveStoreState(store.State{})
		nilMetrics.RecordExport(dto.ExportFormatCSV)
		nilMetrics.RecordCacheOperation(true, time.Millisecond)
		_ = nilMetrics.Snapshot()
	})
	rec = httptest.NewRecorder()
	nilMetrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
