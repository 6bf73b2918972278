package dto

import (
	"time"

	"github.com/noah-isme/student-dashboard/internal/models"
)

// ReportType enumerates the report views offered by the dashboard.
type ReportType string

const (
	ReportTypeEnrollment  ReportType = "enrollment"
	ReportTypePerformance ReportType = "performance"
	ReportTypeAttendance  ReportType = "attendance"
	ReportTypeProgress    ReportType = "progress"
)

// DateRange enumerates the report windows.
type DateRange string

const (
	DateRangeWeek    DateRange = "week"
	DateRangeMonth   DateRange = "month"
	DateRangeQuarter DateRange = "quarter"
	DateRangeYear    DateRange = "year"
)

// Option is a selectable id/name pair.
type Option struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ReportRequest captures GET /reports query parameters.
type ReportRequest struct {
	Type  ReportType `form:"type"`
	Range DateRange  `form:"range"`
}

// ReportResponse bundles the catalog with the selected report.
type ReportResponse struct {
	Type          ReportType        `json:"type"`
	Range         DateRange         `json:"range"`
	ReportTypes   []Option          `json:"reportTypes"`
	DateRanges    []Option          `json:"dateRanges"`
	Title         string            `json:"title"`
	TotalStudents int               `json:"totalStudents"`
	TotalCourses  int               `json:"totalCourses"`
	Chart         Series            `json:"chart"`
	Statistics    []CourseStatistic `json:"statistics"`
}

// CourseStatistic is one row of the detailed statistics table.
type CourseStatistic struct {
	CourseID     models.ID `json:"courseId"`
	CourseName   string    `json:"courseName"`
	Students     int       `json:"students"`
	AverageScore int       `json:"averageScore"`
	Completion   int       `json:"completion"`
}

// ExportFormat enumerates student table export formats.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatPDF  ExportFormat = "pdf"
	ExportFormatXLSX ExportFormat = "xlsx"
)

// ExportRequest captures POST /exports payload.
type ExportRequest struct {
	Format ExportFormat `json:"format" validate:"required,oneof=csv pdf xlsx"`
}

// ExportResponse points at a rendered export.
type ExportResponse struct {
	ID          string       `json:"id"`
	Format      ExportFormat `json:"format"`
	Filename    string       `json:"filename"`
	Rows        int          `json:"rows"`
	DownloadURL string       `json:"downloadUrl"`
	ExpiresAt   time.Time    `json:"expiresAt"`
}
