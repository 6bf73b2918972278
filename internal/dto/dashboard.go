package dto

import (
	"time"

	"github.com/noah-isme/student-dashboard/internal/models"
)

// DashboardSummary captures the aggregated overview payload.
type DashboardSummary struct {
	Version            uint64              `json:"version"`
	TotalStudents      int                 `json:"totalStudents"`
	TotalCourses       int                 `json:"totalCourses"`
	ActiveStudents     int                 `json:"activeStudents"`
	AverageCourses     float64             `json:"averageCoursesPerStudent"`
	EnrollmentTrend    Series              `json:"enrollmentTrend"`
	CourseDistribution []CourseCount       `json:"courseDistribution"`
	StatusBreakdown    []StatusCount       `json:"statusBreakdown"`
	RecentActivity     []RecentStudentItem `json:"recentActivity"`
	GeneratedAt        time.Time           `json:"generatedAt"`
}

// Series is a labelled sequence of chart points.
type Series struct {
	Label  string   `json:"label"`
	Labels []string `json:"labels"`
	Data   []int    `json:"data"`
}

// CourseCount denotes how many students are associated with a course.
type CourseCount struct {
	CourseID   models.ID `json:"courseId"`
	CourseName string    `json:"courseName"`
	Students   int       `json:"students"`
}

// StatusCount is one slice of the status breakdown.
type StatusCount struct {
	Status models.Status `json:"status"`
	Count  int           `json:"count"`
}

// RecentStudentItem is a single row of the recent activity feed.
type RecentStudentItem struct {
	StudentID   models.ID `json:"studentId"`
	Name        string    `json:"name"`
	Initial     string    `json:"initial"`
	CourseCount int       `json:"courseCount"`
	DateJoined  time.Time `json:"dateJoined"`
}

// MetricsSnapshot summarises gateway instrumentation for the JSON metrics endpoint.
type MetricsSnapshot struct {
	CacheHitRatio             float64   `json:"cacheHitRatio"`
	CacheHits                 uint64    `json:"cacheHits"`
	CacheMisses               uint64    `json:"cacheMisses"`
	RequestsTotal             uint64    `json:"requestsTotal"`
	AverageRequestDurationMs  float64   `json:"averageRequestDurationMs"`
	UpstreamRequests          uint64    `json:"upstreamRequests"`
	UpstreamFailures          uint64    `json:"upstreamFailures"`
	AverageUpstreamDurationMs float64   `json:"averageUpstreamDurationMs"`
	Goroutines                int       `json:"goroutines"`
	GeneratedAt               time.Time `json:"generatedAt"`
}
