package store

import "github.com/noah-isme/student-dashboard/internal/models"

// Operation names a store method for phase tracking.
type Operation string

const (
	OpFetchStudents Operation = "fetchStudents"
	OpFetchCourses  Operation = "fetchCourses"
	OpAddStudent    Operation = "addStudent"
	OpUpdateStudent Operation = "updateStudent"
	OpDeleteStudent Operation = "deleteStudent"
)

// Operations lists every tracked operation.
var Operations = []Operation{OpFetchStudents, OpFetchCourses, OpAddStudent, OpUpdateStudent, OpDeleteStudent}

// Phase is the lifecycle position of the latest call to an operation.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseInFlight  Phase = "in_flight"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
)

// State is an immutable snapshot of the store.
type State struct {
	Students   []models.Student    `json:"students"`
	Courses    []models.Course     `json:"courses"`
	Loading    bool                `json:"loading"`
	Error      string              `json:"error,omitempty"`
	Operations map[Operation]Phase `json:"operations"`
	Version    uint64              `json:"version"`
}

// HasError reports whether the most recent operation failed.
func (s State) HasError() bool {
	return s.Error != ""
}

// Student looks up a student by id.
func (s State) Student(id models.ID) (models.Student, bool) {
	for _, st := range s.Students {
		if st.ID == id {
			return st, true
		}
	}
	return models.Student{}, false
}

func newState() State {
	ops := make(map[Operation]Phase, len(Operations))
	for _, op := range Operations {
		ops[op] = PhaseIdle
	}
	return State{
		Students:   []models.Student{},
		Courses:    []models.Course{},
		Operations: ops,
	}
}

func (s State) clone() State {
	out := s
	out.Students = make([]models.Student, len(s.Students))
	for i, st := range s.Students {
		out.Students[i] = st.Clone()
	}
	out.Courses = append(make([]models.Course, 0, len(s.Courses)), s.Courses...)
	out.Operations = make(map[Operation]Phase, len(s.Operations))
	for op, phase := range s.Operations {
		out.Operations[op] = phase
	}
	return out
}
