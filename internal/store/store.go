// Package store keeps the dashboard's in-memory snapshot of students and courses.
//
// Every mutation goes through the API and is committed only after the server
// answers. Concurrent calls are not serialised against each other: whichever
// response is committed last wins.
package store

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/student-dashboard/internal/models"
	appErrors "github.com/noah-isme/student-dashboard/pkg/errors"
)

// API is the upstream surface the store depends on.
type API interface {
	GetStudents(ctx context.Context) ([]models.Student, error)
	GetCourses(ctx context.Context) ([]models.Course, error)
	AddStudent(ctx context.Context, req models.CreateStudentRequest) (*models.Student, error)
	UpdateStudent(ctx context.Context, id models.ID, req models.UpdateStudentRequest) (*models.Student, error)
	DeleteStudent(ctx context.Context, id models.ID) error
}

// Listener is notified with a fresh snapshot after every commit.
// Concurrent commits may deliver snapshots out of Version order; listeners that
// keep derived state should compare Version and drop older snapshots.
type Listener func(State)

// Option customises a Store.
type Option func(*Store)

// WithLogger attaches a zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store mediates all reads and writes of the students/courses snapshot.
type Store struct {
	api    API
	logger *zap.Logger

	mu    sync.RWMutex
	state State

	subMu     sync.RWMutex
	listeners map[int]Listener
	nextSub   int
}

// New constructs an empty store backed by api.
func New(api API, opts ...Option) *Store {
	s := &Store{
		api:       api,
		logger:    zap.NewNop(),
		state:     newState(),
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.listeners, id)
			s.subMu.Unlock()
		})
	}
}

// SetError records msg as the current error.
func (s *Store) SetError(msg string) {
	s.commit(func(st *State) {
		st.Error = msg
	})
}

// ClearError empties the current error.
func (s *Store) ClearError() {
	s.SetError("")
}

// FetchStudents replaces the student list. Failures are recorded in State.Error
// and leave the previous list in place.
func (s *Store) FetchStudents(ctx context.Context) {
	s.commit(func(st *State) {
		st.Loading = true
		st.Error = ""
		st.Operations[OpFetchStudents] = PhaseInFlight
	})

	students, err := s.api.GetStudents(ctx)
	if err != nil {
		s.logger.Error("fetch students failed", zap.Error(err))
		s.commit(func(st *State) {
			st.Loading = false
			st.Error = appErrors.MessageOf(err)
			st.Operations[OpFetchStudents] = PhaseFailed
		})
		return
	}

	s.commit(func(st *State) {
		st.Students = cloneStudents(students)
		st.Loading = false
		st.Error = ""
		st.Operations[OpFetchStudents] = PhaseSucceeded
	})
}

// FetchCourses replaces the course list. It never touches Loading.
func (s *Store) FetchCourses(ctx context.Context) {
	s.commit(func(st *State) {
		st.Error = ""
		st.Operations[OpFetchCourses] = PhaseInFlight
	})

	courses, err := s.api.GetCourses(ctx)
	if err != nil {
		s.logger.Error("fetch courses failed", zap.Error(err))
		s.commit(func(st *State) {
			st.Error = appErrors.MessageOf(err)
			st.Operations[OpFetchCourses] = PhaseFailed
		})
		return
	}

	s.commit(func(st *State) {
		st.Courses = append(make([]models.Course, 0, len(courses)), courses...)
		st.Error = ""
		st.Operations[OpFetchCourses] = PhaseSucceeded
	})
}

// AddStudent creates a student upstream and appends the server's record.
func (s *Store) AddStudent(ctx context.Context, req models.CreateStudentRequest) (*models.Student, error) {
	s.begin(OpAddStudent)

	created, err := s.api.AddStudent(ctx, req)
	if err != nil {
		s.fail(OpAddStudent, "add student failed", err)
		return nil, err
	}

	record := created.Clone()
	s.commit(func(st *State) {
		st.Students = append(st.Students, record)
		st.Error = ""
		st.Operations[OpAddStudent] = PhaseSucceeded
	})
	out := record.Clone()
	return &out, nil
}

// UpdateStudent updates a student upstream and replaces the matching local entry.
func (s *Store) UpdateStudent(ctx context.Context, id models.ID, req models.UpdateStudentRequest) (*models.Student, error) {
	s.begin(OpUpdateStudent)

	updated, err := s.api.UpdateStudent(ctx, id, req)
	if err != nil {
		s.fail(OpUpdateStudent, "update student failed", err)
		return nil, err
	}

	record := updated.Clone()
	s.commit(func(st *State) {
		for i := range st.Students {
			if st.Students[i].ID == id {
				st.Students[i] = record.Clone()
			}
		}
		st.Error = ""
		st.Operations[OpUpdateStudent] = PhaseSucceeded
	})
	out := record.Clone()
	return &out, nil
}

// DeleteStudent deletes a student upstream and drops the matching local entry.
func (s *Store) DeleteStudent(ctx context.Context, id models.ID) error {
	s.begin(OpDeleteStudent)

	if err := s.api.DeleteStudent(ctx, id); err != nil {
		s.fail(OpDeleteStudent, "delete student failed", err)
		return err
	}

	s.commit(func(st *State) {
		kept := st.Students[:0]
		for _, student := range st.Students {
			if student.ID != id {
				kept = append(kept, student)
			}
		}
		st.Students = kept
		st.Error = ""
		st.Operations[OpDeleteStudent] = PhaseSucceeded
	})
	return nil
}

func (s *Store) begin(op Operation) {
	s.commit(func(st *State) {
		st.Error = ""
		st.Operations[op] = PhaseInFlight
	})
}

func (s *Store) fail(op Operation, msg string, err error) {
	s.logger.Error(msg, zap.String("operation", string(op)), zap.Error(err))
	s.commit(func(st *State) {
		st.Error = appErrors.MessageOf(err)
		st.Operations[op] = PhaseFailed
	})
}

// commit applies mutate under the lock and then notifies listeners outside it.
func (s *Store) commit(mutate func(*State)) {
	s.mu.Lock()
	mutate(&s.state)
	s.state.Version++
	snapshot := s.state.clone()
	s.mu.Unlock()

	s.notify(snapshot)
}

func (s *Store) notify(snapshot State) {
	s.subMu.RLock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.subMu.RUnlock()

	for _, fn := range listeners {
		fn(snapshot.clone())
	}
}

func cloneStudents(in []models.Student) []models.Student {
	out := make([]models.Student, len(in))
	for i, st := range in {
		out[i] = st.Clone()
	}
	return out
}
