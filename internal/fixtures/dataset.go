// Package fixtures holds the embedded dataset backing mock mode and the canned analytics series.
package fixtures

import (
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/student-dashboard/internal/models"
)

//go:embed dataset.yaml
var embedded []byte

// Series is a labelled sequence of chart points.
type Series struct {
	Label  string   `yaml:"label"`
	Labels []string `yaml:"labels"`
	Data   []int    `yaml:"data"`
}

func (s Series) clone() Series {
	return Series{
		Label:  s.Label,
		Labels: append([]string(nil), s.Labels...),
		Data:   append([]int(nil), s.Data...),
	}
}

type studentRecord struct {
	ID         string     `yaml:"id"`
	Name       string     `yaml:"name"`
	Email      string     `yaml:"email"`
	Cohort     string     `yaml:"cohort"`
	Status     string     `yaml:"status"`
	DateJoined time.Time  `yaml:"dateJoined"`
	LastLogin  *time.Time `yaml:"lastLogin"`
	Courses    []string   `yaml:"courses"`
}

// Dataset is the parsed YAML document.
type Dataset struct {
	Courses           []models.Course             `yaml:"courses"`
	Students          []studentRecord             `yaml:"students"`
	EnrollmentTrend   Series                      `yaml:"enrollmentTrend"`
	WeeklyEnrollments Series                      `yaml:"weeklyEnrollments"`
	Chapters          map[string][]models.Chapter `yaml:"chapters"`
}

// Load parses the embedded dataset.
func Load() (*Dataset, error) {
	return Parse(embedded)
}

// Parse decodes a dataset document.
func Parse(data []byte) (*Dataset, error) {
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}
	if ds.Chapters == nil {
		ds.Chapters = map[string][]models.Chapter{}
	}
	return &ds, nil
}

// StudentList converts the seed records into canonical students with course names resolved.
func (d *Dataset) StudentList() []models.Student {
	names := d.courseNames()
	out := make([]models.Student, 0, len(d.Students))
	for _, rec := range d.Students {
		status, ok := models.ParseStatus(rec.Status)
		if !ok {
			status = models.StatusPending
		}
		student := models.Student{
			ID:         models.ID(rec.ID),
			Name:       rec.Name,
			Email:      rec.Email,
			Cohort:     rec.Cohort,
			Status:     status,
			DateJoined: rec.DateJoined,
			Courses:    make([]models.CourseAssociation, 0, len(rec.Courses)),
		}
		if rec.LastLogin != nil {
			last := *rec.LastLogin
			student.LastLogin = &last
		}
		for _, id := range rec.Courses {
			student.Courses = append(student.Courses, models.CourseAssociation{
				CourseID:   models.ID(id),
				CourseName: names[models.ID(id)],
			})
		}
		out = append(out, student)
	}
	return out
}

// EnrollmentSeries returns a copy of the monthly enrollment trend.
func (d *Dataset) EnrollmentSeries() Series {
	return d.EnrollmentTrend.clone()
}

// WeeklySeries returns a copy of the weekly enrollment series.
func (d *Dataset) WeeklySeries() Series {
	return d.WeeklyEnrollments.clone()
}

// CourseList returns a copy of the seeded courses.
func (d *Dataset) CourseList() []models.Course {
	return append(make([]models.Course, 0, len(d.Courses)), d.Courses...)
}

// ChaptersFor returns the chapters of courseID and whether the course has any entry.
func (d *Dataset) ChaptersFor(courseID models.ID) ([]models.Chapter, bool) {
	chapters, ok := d.Chapters[courseID.String()]
	if !ok {
		return nil, false
	}
	return append(make([]models.Chapter, 0, len(chapters)), chapters...), true
}

func (d *Dataset) courseNames() map[models.ID]string {
	names := make(map[models.ID]string, len(d.Courses))
	for _, c := range d.Courses {
		names[c.ID] = c.Name
	}
	return names
}
