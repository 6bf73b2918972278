package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/student-dashboard/internal/dto"
	"github.com/noah-isme/student-dashboard/internal/models"
	"github.com/noah-isme/student-dashboard/internal/store"
	appErrors "github.com/noah-isme/student-dashboard/pkg/errors"
)

// dashboardStore is the slice of the store the services depend on.
type dashboardStore interface {
	Snapshot() store.State
	FetchStudents(ctx context.Context)
	FetchCourses(ctx context.Context)
	AddStudent(ctx context.Context, req models.CreateStudentRequest) (*models.Student, error)
	UpdateStudent(ctx context.Context, id models.ID, req models.UpdateStudentRequest) (*models.Student, error)
	DeleteStudent(ctx context.Context, id models.ID) error
}

// StudentService handles student and course use-cases on top of the store.
type StudentService struct {
	store     dashboardStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(st dashboardStore, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{store: st, validator: validate, logger: logger}
}

// List refreshes the student list and returns the filtered snapshot.
// A failed refresh still returns the previous list with Error set.
func (s *StudentService) List(ctx context.Context, filter dto.StudentFilter) dto.StudentList {
	s.store.FetchStudents(ctx)
	state := s.store.Snapshot()

	students := filterStudents(state.Students, filter)
	return dto.StudentList{
		Students: students,
		Total:    len(students),
		Loading:  state.Loading,
		Error:    state.Error,
		Version:  state.Version,
	}
}

// Courses refreshes and returns the course catalog.
func (s *StudentService) Courses(ctx context.Context) dto.CourseList {
	s.store.FetchCourses(ctx)
	state := s.store.Snapshot()
	return dto.CourseList{Courses: state.Courses, Error: state.Error, Version: state.Version}
}

// State returns the full store snapshot.
func (s *StudentService) State() store.State {
	return s.store.Snapshot()
}

// Create validates the request and adds the student through the store.
func (s *StudentService) Create(ctx context.Context, req models.CreateStudentRequest) (*models.Student, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Cohort = strings.TrimSpace(req.Cohort)
	if req.Status != "" {
		status, err := parseStatus(req.Status)
		if err != nil {
			return nil, err
		}
		req.Status = status
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if req.CourseIDs == nil {
		req.CourseIDs = []models.ID{}
	}
	req.CourseIDs = uniqueIDs(req.CourseIDs)

	student, err := s.store.AddStudent(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info("student created", zap.String("student_id", student.ID.String()))
	return student, nil
}

// Update validates the partial update and applies it through the store.
func (s *StudentService) Update(ctx context.Context, id models.ID, req models.UpdateStudentRequest) (*models.Student, error) {
	if id.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if req.Status != nil {
		status, err := parseStatus(*req.Status)
		if err != nil {
			return nil, err
		}
		req.Status = &status
	}
	if req.CourseIDs != nil {
		req.CourseIDs = uniqueIDs(req.CourseIDs)
	}

	student, err := s.store.UpdateStudent(ctx, id, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info("student updated", zap.String("student_id", id.String()))
	return student, nil
}

// Delete removes the student through the store.
func (s *StudentService) Delete(ctx context.Context, id models.ID) error {
	if id.IsZero() {
		return appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	if err := s.store.DeleteStudent(ctx, id); err != nil {
		return err
	}
	s.logger.Info("student deleted", zap.String("student_id", id.String()))
	return nil
}

// parseStatus canonicalises a client-supplied status, rejecting values outside the known set.
func parseStatus(raw models.Status) (models.Status, error) {
	status, ok := models.ParseStatus(string(raw))
	if !ok {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("status must be one of: %s, %s, %s",
			models.StatusActive, models.StatusInactive, models.StatusPending))
	}
	return status, nil
}

func filterStudents(students []models.Student, filter dto.StudentFilter) []models.Student {
	query := strings.ToLower(strings.TrimSpace(filter.Query))
	status, statusOK := models.ParseStatus(string(filter.Status))
	out := make([]models.Student, 0, len(students))
	for _, st := range students {
		if query != "" && !strings.Contains(strings.ToLower(st.Name), query) && !strings.Contains(strings.ToLower(st.Email), query) {
			continue
		}
		if statusOK && st.Status != status {
			continue
		}
		if filter.Cohort != "" && !strings.EqualFold(st.Cohort, strings.TrimSpace(filter.Cohort)) {
			continue
		}
		if !filter.CourseID.IsZero() && !st.HasCourse(filter.CourseID) {
			continue
		}
		out = append(out, st)
	}
	return out
}

func uniqueIDs(ids []models.ID) []models.ID {
	seen := make(map[models.ID]struct{}, len(ids))
	out := make([]models.ID, 0, len(ids))
	for _, id := range ids {
		if id.IsZero() {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// validationError turns validator output into a VALIDATION_ERROR naming the first offending field.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, appErrors.ErrValidation.Message)
	}
	fe := fieldErrs[0]
	field := strings.ToLower(fe.Field())
	var msg string
	switch fe.Tag() {
	case "required":
		msg = fmt.Sprintf("%s is required", field)
	case "email":
		msg = fmt.Sprintf("%s must be a valid email address", field)
	case "oneof":
		msg = fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "min":
		msg = fmt.Sprintf("%s must not be empty", field)
	default:
		msg = fmt.Sprintf("%s is invalid", field)
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, msg)
}
