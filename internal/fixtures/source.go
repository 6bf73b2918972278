package fixtures

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/student-dashboard/internal/models"
	appErrors "github.com/noah-isme/student-dashboard/pkg/errors"
)

const studentNotFound = "Student not found"

// Source is an in-memory stand-in for the upstream REST API.
type Source struct {
	mu       sync.RWMutex
	students []models.Student
	courses  []models.Course
	nextID   int
	now      func() time.Time
}

// NewSource seeds a Source from ds.
func NewSource(ds *Dataset) *Source {
	s := &Source{
		students: ds.StudentList(),
		courses:  ds.CourseList(),
		now:      time.Now,
	}
	for _, st := range s.students {
		if n, err := strconv.Atoi(st.ID.String()); err == nil && n > s.nextID {
			s.nextID = n
		}
	}
	s.nextID++
	return s
}

// GetStudents returns every student.
func (s *Source) GetStudents(ctx context.Context) ([]models.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, appErrors.Network(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Student, len(s.students))
	for i, st := range s.students {
		out[i] = st.Clone()
	}
	return out, nil
}

// GetCourses returns every course.
func (s *Source) GetCourses(ctx context.Context) ([]models.Course, error) {
	if err := ctx.Err(); err != nil {
		return nil, appErrors.Network(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append(make([]models.Course, 0, len(s.courses)), s.courses...), nil
}

// AddStudent stores a new student and returns the stored record.
func (s *Source) AddStudent(ctx context.Context, req models.CreateStudentRequest) (*models.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, appErrors.Network(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" {
		return nil, appErrors.FromStatus(http.StatusBadRequest, "Name and email are required")
	}
	for _, st := range s.students {
		if strings.EqualFold(st.Email, req.Email) {
			return nil, appErrors.FromStatus(http.StatusConflict, "Email already exists")
		}
	}
	courses, err := s.associate(req.CourseIDs)
	if err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = models.StatusPending
	}
	student := models.Student{
		ID:         models.ID(strconv.Itoa(s.nextID)),
		Name:       req.Name,
		Email:      req.Email,
		Cohort:     req.Cohort,
		Status:     status,
		DateJoined: s.now().UTC(),
		Courses:    courses,
	}
	if req.Image != nil && req.Image.Filename != "" {
		student.ImageURL = "/uploads/" + req.Image.Filename
	}
	s.nextID++
	s.students = append(s.students, student)

	out := student.Clone()
	return &out, nil
}

// UpdateStudent applies the non-nil fields of req to the student with id.
func (s *Source) UpdateStudent(ctx context.Context, id models.ID, req models.UpdateStudentRequest) (*models.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, appErrors.Network(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return nil, appErrors.FromStatus(http.StatusNotFound, studentNotFound)
	}
	student := s.students[idx].Clone()
	if req.Name != nil {
		student.Name = *req.Name
	}
	if req.Email != nil {
		for i, st := range s.students {
			if i != idx && strings.EqualFold(st.Email, *req.Email) {
				return nil, appErrors.FromStatus(http.StatusConflict, "Email already exists")
			}
		}
		student.Email = *req.Email
	}
	if req.Cohort != nil {
		student.Cohort = *req.Cohort
	}
	if req.Status != nil {
		student.Status = *req.Status
	}
	if req.ImageURL != nil {
		student.ImageURL = *req.ImageURL
	}
	if req.CourseIDs != nil {
		courses, err := s.associate(req.CourseIDs)
		if err != nil {
			return nil, err
		}
		student.Courses = courses
	}
	s.students[idx] = student

	out := student.Clone()
	return &out, nil
}

// DeleteStudent removes the student with id.
func (s *Source) DeleteStudent(ctx context.Context, id models.ID) error {
	if err := ctx.Err(); err != nil {
		return appErrors.Network(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return appErrors.FromStatus(http.StatusNotFound, studentNotFound)
	}
	s.students = append(s.students[:idx], s.students[idx+1:]...)
	return nil
}

func (s *Source) indexOf(id models.ID) int {
	for i, st := range s.students {
		if st.ID == id {
			return i
		}
	}
	return -1
}

func (s *Source) associate(ids []models.ID) ([]models.CourseAssociation, error) {
	out := make([]models.CourseAssociation, 0, len(ids))
	for _, id := range ids {
		var found *models.Course
		for i := range s.courses {
			if s.courses[i].ID == id {
				found = &s.courses[i]
				break
			}
		}
		if found == nil {
			return nil, appErrors.FromStatus(http.StatusBadRequest, fmt.Sprintf("Course %s not found", id))
		}
		out = append(out, models.CourseAssociation{CourseID: found.ID, CourseName: found.Name})
	}
	return out, nil
}
