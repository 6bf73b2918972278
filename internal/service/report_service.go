package service

import (
	"context"
	"fmt"
	"hash/fnv"

	"go.uber.org/zap"

	"github.com/noah-isme/student-dashboard/internal/dto"
	"github.com/noah-isme/student-dashboard/internal/fixtures"
	"github.com/noah-isme/student-dashboard/internal/models"
	"github.com/noah-isme/student-dashboard/internal/store"
	appErrors "github.com/noah-isme/student-dashboard/pkg/errors"
)

// Score bands for the mock course metrics.
const (
	scoreFloor      = 70
	scoreSpan       = 30
	completionFloor = 60
	completionSpan  = 40
	attendanceFloor = 75
	attendanceSpan  = 25
)

var reportTypes = []dto.Option{
	{ID: string(dto.ReportTypeEnrollment), Name: "Enrollment Analytics"},
	{ID: string(dto.ReportTypePerformance), Name: "Performance Analysis"},
	{ID: string(dto.ReportTypeAttendance), Name: "Attendance Report"},
	{ID: string(dto.ReportTypeProgress), Name: "Course Progress"},
}

var dateRanges = []dto.Option{
	{ID: string(dto.DateRangeWeek), Name: "This Week"},
	{ID: string(dto.DateRangeMonth), Name: "This Month"},
	{ID: string(dto.DateRangeQuarter), Name: "This Quarter"},
	{ID: string(dto.DateRangeYear), Name: "This Year"},
}

type weeklyProvider interface {
	WeeklySeries() fixtures.Series
}

// ReportService builds the analytics views of the reports page.
type ReportService struct {
	store  dashboardStore
	weekly weeklyProvider
	logger *zap.Logger
}

// NewReportService constructs a ReportService.
func NewReportService(st dashboardStore, weekly weeklyProvider, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{store: st, weekly: weekly, logger: logger}
}

// Generate returns the report catalog together with the selected report.
// Type defaults to enrollment and range to month.
func (s *ReportService) Generate(ctx context.Context, req dto.ReportRequest) (*dto.ReportResponse, error) {
	if req.Type == "" {
		req.Type = dto.ReportTypeEnrollment
	}
	if req.Range == "" {
		req.Range = dto.DateRangeMonth
	}
	typeName, ok := optionName(reportTypes, string(req.Type))
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported report type %q", req.Type))
	}
	rangeName, ok := optionName(dateRanges, string(req.Range))
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported date range %q", req.Range))
	}

	state := ensureLoaded(ctx, s.store)

	resp := &dto.ReportResponse{
		Type:          req.Type,
		Range:         req.Range,
		ReportTypes:   append([]dto.Option(nil), reportTypes...),
		DateRanges:    append([]dto.Option(nil), dateRanges...),
		Title:         fmt.Sprintf("%s (%s)", typeName, rangeName),
		TotalStudents: len(state.Students),
		TotalCourses:  len(state.Courses),
		Statistics:    courseStatistics(state),
	}
	resp.Chart = s.chart(req.Type, state.Courses)

	s.logger.Debug("report generated", zap.String("type", string(req.Type)), zap.String("range", string(req.Range)))
	return resp, nil
}

func (s *ReportService) chart(kind dto.ReportType, courses []models.Course) dto.Series {
	switch kind {
	case dto.ReportTypePerformance:
		return courseSeries("Average Score", courses, func(id models.ID) int { return mockMetric(id, "score", scoreFloor, scoreSpan) })
	case dto.ReportTypeAttendance:
		return courseSeries("Attendance Rate", courses, func(id models.ID) int { return mockMetric(id, "attendance", attendanceFloor, attendanceSpan) })
	case dto.ReportTypeProgress:
		return courseSeries("Completion Rate", courses, func(id models.ID) int { return mockMetric(id, "completion", completionFloor, completionSpan) })
	default:
		series := dto.Series{Label: "Student Enrollments", Labels: []string{}, Data: []int{}}
		if s.weekly != nil {
			weekly := s.weekly.WeeklySeries()
			if weekly.Label != "" {
				series.Label = weekly.Label
			}
			series.Labels = append(series.Labels, weekly.Labels...)
			series.Data = append(series.Data, weekly.Data...)
		}
		return series
	}
}

func courseSeries(label string, courses []models.Course, metric func(models.ID) int) dto.Series {
	series := dto.Series{Label: label, Labels: make([]string, 0, len(courses)), Data: make([]int, 0, len(courses))}
	for _, course := range courses {
		series.Labels = append(series.Labels, course.Name)
		series.Data = append(series.Data, metric(course.ID))
	}
	return series
}

func courseStatistics(state store.State) []dto.CourseStatistic {
	stats := make([]dto.CourseStatistic, 0, len(state.Courses))
	for _, course := range state.Courses {
		count := 0
		for _, st := range state.Students {
			if st.HasCourse(course.ID) {
				count++
			}
		}
		stats = append(stats, dto.CourseStatistic{
			CourseID:     course.ID,
			CourseName:   course.Name,
			Students:     count,
			AverageScore: mockMetric(course.ID, "score", scoreFloor, scoreSpan),
			Completion:   mockMetric(course.ID, "completion", completionFloor, completionSpan),
		})
	}
	return stats
}

// mockMetric derives a stable value in [floor, floor+span) from the course id.
func mockMetric(courseID models.ID, metric string, floor, span int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(courseID.String() + ":" + metric))
	return floor + int(h.Sum32()%uint32(span))
}

func optionName(options []dto.Option, id string) (string, bool) {
	for _, opt := range options {
		if opt.ID == id {
			return opt.Name, true
		}
	}
	return "", false
}
