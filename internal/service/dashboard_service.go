package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/noah-isme/student-dashboard/internal/dto"
	"github.com/noah-isme/student-dashboard/internal/fixtures"
	"github.com/noah-isme/student-dashboard/internal/models"
	"github.com/noah-isme/student-dashboard/internal/store"
)

const recentActivityLimit = 5

type trendProvider interface {
	EnrollmentSeries() fixtures.Series
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
	// Instance distinguishes gateway processes sharing one Redis.
	Instance string
}

// DashboardService composes the overview payload from the store snapshot.
type DashboardService struct {
	store  dashboardStore
	trend  trendProvider
	cache  *CacheService
	logger *zap.Logger
	now    func() time.Time
	cfg    DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Store  dashboardStore
	Trend  trendProvider
	Cache  *CacheService
	Logger *zap.Logger
	Config DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		store:  params.Store,
		trend:  params.Trend,
		cache:  params.Cache,
		logger: logger,
		now:    time.Now,
		cfg:    cfg,
	}
}

// Summary returns the dashboard overview and whether it was served from cache.
// Lists that were never loaded are fetched first.
func (s *DashboardService) Summary(ctx context.Context) (*dto.DashboardSummary, bool, error) {
	state := ensureLoaded(ctx, s.store)

	cacheKey := s.cacheKey(state.Version)
	var cached dto.DashboardSummary
	if s.cache.Get(ctx, cacheKey, &cached) {
		return &cached, true, nil
	}

	summary := s.compose(state)
	if err := s.cache.Set(ctx, cacheKey, summary, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", cacheKey), zap.Error(err))
	}
	return summary, false, nil
}

// cacheKey scopes summaries to the store version and, when set, to the process instance.
func (s *DashboardService) cacheKey(version uint64) string {
	if s.cfg.Instance == "" {
		return fmt.Sprintf("dash:summary:v%d", version)
	}
	return fmt.Sprintf("dash:summary:%s:v%d", s.cfg.Instance, version)
}

// ensureLoaded fetches the lists that were never requested and returns the resulting snapshot.
func ensureLoaded(ctx context.Context, st dashboardStore) store.State {
	state := st.Snapshot()
	if idle(state.Operations[store.OpFetchStudents]) {
		st.FetchStudents(ctx)
	}
	if idle(state.Operations[store.OpFetchCourses]) {
		st.FetchCourses(ctx)
	}
	return st.Snapshot()
}

func idle(phase store.Phase) bool {
	return phase == "" || phase == store.PhaseIdle
}

func (s *DashboardService) compose(state store.State) *dto.DashboardSummary {
	students := state.Students
	summary := &dto.DashboardSummary{
		Version:            state.Version,
		TotalStudents:      len(students),
		TotalCourses:       len(state.Courses),
		CourseDistribution: make([]dto.CourseCount, 0, len(state.Courses)),
		StatusBreakdown:    make([]dto.StatusCount, 0, len(models.Statuses)),
		RecentActivity:     make([]dto.RecentStudentItem, 0, recentActivityLimit),
		GeneratedAt:        s.now().UTC(),
	}

	var enrollments int
	statusCounts := make(map[models.Status]int, len(models.Statuses))
	for _, st := range students {
		enrollments += len(st.Courses)
		statusCounts[st.Status]++
	}
	summary.ActiveStudents = statusCounts[models.StatusActive]
	if len(students) > 0 {
		summary.AverageCourses = math.Round(float64(enrollments)/float64(len(students))*10) / 10
	}

	for _, status := range models.Statuses {
		summary.StatusBreakdown = append(summary.StatusBreakdown, dto.StatusCount{Status: status, Count: statusCounts[status]})
	}

	for _, course := range state.Courses {
		count := 0
		for _, st := range students {
			if st.HasCourse(course.ID) {
				count++
			}
		}
		summary.CourseDistribution = append(summary.CourseDistribution, dto.CourseCount{
			CourseID:   course.ID,
			CourseName: course.Name,
			Students:   count,
		})
	}

	for i := len(students) - 1; i >= 0 && len(summary.RecentActivity) < recentActivityLimit; i-- {
		st := students[i]
		summary.RecentActivity = append(summary.RecentActivity, dto.RecentStudentItem{
			StudentID:   st.ID,
			Name:        st.Name,
			Initial:     initial(st.Name),
			CourseCount: len(st.Courses),
			DateJoined:  st.DateJoined,
		})
	}

	summary.EnrollmentTrend = s.enrollmentTrend(len(students))
	return summary
}

// enrollmentTrend appends the live student total to the historical monthly series.
func (s *DashboardService) enrollmentTrend(total int) dto.Series {
	series := dto.Series{Label: "New Students", Labels: []string{}, Data: []int{}}
	if s.trend != nil {
		historic := s.trend.EnrollmentSeries()
		if historic.Label != "" {
			series.Label = historic.Label
		}
		series.Labels = append(series.Labels, historic.Labels...)
		series.Data = append(series.Data, historic.Data...)
	}
	series.Data = append(series.Data, total)
	return series
}

func initial(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "?"
	}
	r, _ := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r))
}
