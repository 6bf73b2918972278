package dto

import "github.com/noah-isme/student-dashboard/internal/models"

// StudentFilter narrows GET /students. Empty fields match everything.
type StudentFilter struct {
	Query    string        `form:"q"`
	Status   models.Status `form:"status"`
	Cohort   string        `form:"cohort"`
	CourseID models.ID     `form:"courseId"`
}

// StudentList is the student table payload together with the store flags it was read under.
type StudentList struct {
	Students []models.Student `json:"students"`
	Total    int              `json:"total"`
	Loading  bool             `json:"loading"`
	Error    string           `json:"error,omitempty"`
	Version  uint64           `json:"version"`
}

// CourseList is the course catalog payload.
type CourseList struct {
	Courses []models.Course `json:"courses"`
	Error   string          `json:"error,omitempty"`
	Version uint64          `json:"version"`
}

// ChapterList is the chapter manager payload for one course.
type ChapterList struct {
	Course   models.Course    `json:"course"`
	Chapters []models.Chapter `json:"chapters"`
}
