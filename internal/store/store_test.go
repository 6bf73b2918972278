package store

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-dashboard/internal/models"
	appErrors "github.com/noah-isme/student-dashboard/pkg/errors"
)

type fakeAPI struct {
	mu        sync.Mutex
	students  []models.Student
	courses   []models.Course
	listErr   error
	courseErr error
	addErr    error
	updateErr error
	deleteErr map[models.ID]error
	nextID    int
	deleted   []models.ID
	lastAdd   models.CreateStudentRequest
	onList    func()
}

func (f *fakeAPI) GetStudents(context.Context) ([]models.Student, error) {
	if f.onList != nil {
		f.onList()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.Student(nil), f.students...), nil
}

func (f *fakeAPI) GetCourses(context.Context) ([]models.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.courseErr != nil {
		return nil, f.courseErr
	}
	return append([]models.Course(nil), f.courses...), nil
}

func (f *fakeAPI) AddStudent(_ context.Context, req models.CreateStudentRequest) (*models.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastAdd = req
	if f.addErr != nil {
		return nil, f.addErr
	}
	if f.nextID == 0 {
		f.nextID = 42
	}
	student := models.Student{ID: models.ID(strconv.Itoa(f.nextID)), Name: req.Name, Email: req.Email, Cohort: req.Cohort, Status: models.StatusPending}
	for _, id := range req.CourseIDs {
		student.Courses = append(student.Courses, models.CourseAssociation{CourseID: id})
	}
	f.nextID++
	f.students = append(f.students, student)
	return &student, nil
}

func (f *fakeAPI) UpdateStudent(_ context.Context, id models.ID, req models.UpdateStudentRequest) (*models.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	for i := range f.students {
		if f.students[i].ID == id {
			if req.Name != nil {
				f.students[i].Name = *req.Name
			}
			updated := f.students[i]
			return &updated, nil
		}
	}
	return nil, appErrors.FromStatus(http.StatusNotFound, "Student not found")
}

func (f *fakeAPI) DeleteStudent(_ context.Context, id models.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.deleteErr[id]; ok {
		return err
	}
	for i := range f.students {
		if f.students[i].ID == id {
			f.students = append(f.students[:i], f.students[i+1:]...)
			f.deleted = append(f.deleted, id)
			return nil
		}
	}
	return appErrors.FromStatus(http.StatusNotFound, "Student not found")
}

func seededAPI() *fakeAPI {
	return &fakeAPI{
		students: []models.Student{
			{ID: "1", Name: "Ada", Status: models.StatusActive, Courses: []models.CourseAssociation{{CourseID: "1"}}},
			{ID: "2", Name: "Grace", Status: models.StatusInactive, Courses: []models.CourseAssociation{}},
		},
		courses: []models.Course{{ID: "1", Name: "Algebra I"}},
	}
}

func TestNewStoreStartsEmpty(t *testing.T) {
	s := New(&fakeAPI{})
	state := s.Snapshot()
	assert.Empty(t, state.Students)
	assert.Empty(t, state.Courses)
	assert.False(t, state.Loading)
	assert.False(t, state.HasError())
	for _, op := range Operations {
		assert.Equal(t, PhaseIdle, state.Operations[op])
	}
}

func TestFetchStudentsSuccess(t *testing.T) {
	api := seededAPI()
	s := New(api)
	s.SetError("stale error")

	var loadingDuringCall bool
	api.onList = func() { loadingDuringCall = s.Snapshot().Loading }

	s.FetchStudents(context.Background())

	state := s.Snapshot()
	assert.True(t, loadingDuringCall)
	assert.Equal(t, api.students, state.Students)
	assert.False(t, state.Loading)
	assert.Empty(t, state.Error)
	assert.Equal(t, PhaseSucceeded, state.Operations[OpFetchStudents])
}

func TestFetchStudentsFailureKeepsStaleList(t *testing.T) {
	api := seededAPI()
	s := New(api)
	s.FetchStudents(context.Background())
	before := s.Snapshot().Students

	api.listErr = errors.New("connection refused")
	s.FetchStudents(context.Background())

	state := s.Snapshot()
	assert.Equal(t, before, state.Students)
	assert.False(t, state.Loading)
	assert.Equal(t, "connection refused", state.Error)
	assert.Equal(t, PhaseFailed, state.Operations[OpFetchStudents])
}

func TestFetchCoursesDoesNotToggleLoading(t *testing.T) {
	api := seededAPI()
	s := New(api)

	var seen []bool
	unsubscribe := s.Subscribe(func(st State) { seen = append(seen, st.Loading) })
	defer unsubscribe()

	s.FetchCourses(context.Background())

	state := s.Snapshot()
	assert.Equal(t, []models.Course{{ID: "1", Name: "Algebra I"}}, state.Courses)
	for _, loading := range seen {
		assert.False(t, loading)
	}

	api.courseErr = appErrors.FromStatus(http.StatusInternalServerError, "")
	s.FetchCourses(context.Background())
	state = s.Snapshot()
	assert.Equal(t, appErrors.GenericMessage, state.Error)
	assert.Len(t, state.Courses, 1)
}

func TestAddStudentAppendsServerRecord(t *testing.T) {
	api := seededAPI()
	s := New(api)
	s.FetchStudents(context.Background())
	before := len(s.Snapshot().Students)

	created, err := s.AddStudent(context.Background(), models.CreateStudentRequest{
		Name:      "Jane Doe",
		Email:     "jane@x.com",
		Cohort:    "AY 2024-25",
		CourseIDs: []models.ID{"1"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.ID("42"), created.ID)

	state := s.Snapshot()
	require.Len(t, state.Students, before+1)
	assert.Equal(t, *created, state.Students[len(state.Students)-1])
	assert.Equal(t, PhaseSucceeded, state.Operations[OpAddStudent])
}

func TestAddStudentFailureRecordsAndReturnsError(t *testing.T) {
	api := seededAPI()
	api.addErr = appErrors.FromStatus(http.StatusConflict, "Email already exists")
	s := New(api)
	s.FetchStudents(context.Background())

	_, err := s.AddStudent(context.Background(), models.CreateStudentRequest{Name: "Ada", Email: "ada@x.com"})
	require.Error(t, err)
	assert.Equal(t, "Email already exists", err.Error())

	state := s.Snapshot()
	assert.Equal(t, "Email already exists", state.Error)
	assert.Len(t, state.Students, 2)
	assert.Equal(t, PhaseFailed, state.Operations[OpAddStudent])
	assert.False(t, state.Loading)
}

func TestUpdateStudentReplacesMatchingEntry(t *testing.T) {
	api := seededAPI()
	s := New(api)
	s.FetchStudents(context.Background())

	name := "Ada Lovelace"
	updated, err := s.UpdateStudent(context.Background(), "1", models.UpdateStudentRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", updated.Name)

	state := s.Snapshot()
	assert.Equal(t, "Ada Lovelace", state.Students[0].Name)
	assert.Equal(t, "Grace", state.Students[1].Name)
}

func TestUpdateStudentFailure(t *testing.T) {
	api := seededAPI()
	s := New(api)
	s.FetchStudents(context.Background())

	name := "Nobody"
	_, err := s.UpdateStudent(context.Background(), "404", models.UpdateStudentRequest{Name: &name})
	require.Error(t, err)
	assert.Equal(t, "Student not found", s.Snapshot().Error)
}

func TestDeleteStudentTwice(t *testing.T) {
	api := seededAPI()
	s := New(api)
	s.FetchStudents(context.Background())

	require.NoError(t, s.DeleteStudent(context.Background(), "1"))
	state := s.Snapshot()
	require.Len(t, state.Students, 1)
	assert.Equal(t, models.ID("2"), state.Students[0].ID)
	assert.Empty(t, state.Error)

	err := s.DeleteStudent(context.Background(), "1")
	require.Error(t, err)
	state = s.Snapshot()
	require.Len(t, state.Students, 1)
	assert.Equal(t, models.ID("2"), state.Students[0].ID)
	assert.Equal(t, "Student not found", state.Error)
}

func TestDeleteNotFoundLeavesStudentsUnchanged(t *testing.T) {
	api := seededAPI()
	api.deleteErr = map[models.ID]error{"42": appErrors.FromStatus(http.StatusNotFound, "Student not found")}
	s := New(api)
	s.FetchStudents(context.Background())
	before := s.Snapshot().Students

	err := s.DeleteStudent(context.Background(), "42")
	require.Error(t, err)

	state := s.Snapshot()
	assert.Equal(t, "Student not found", state.Error)
	assert.Equal(t, before, state.Students)
}

func TestSuccessfulOperationClearsError(t *testing.T) {
	api := seededAPI()
	api.listErr = errors.New("boom")
	s := New(api)
	s.FetchStudents(context.Background())
	require.Equal(t, "boom", s.Snapshot().Error)

	s.FetchCourses(context.Background())
	assert.Empty(t, s.Snapshot().Error)
}

func TestSnapshotIsIsolated(t *testing.T) {
	s := New(seededAPI())
	s.FetchStudents(context.Background())

	snap := s.Snapshot()
	snap.Students[0].Name = "mutated"
	snap.Operations[OpFetchStudents] = PhaseIdle

	fresh := s.Snapshot()
	assert.Equal(t, "Ada", fresh.Students[0].Name)
	assert.Equal(t, PhaseSucceeded, fresh.Operations[OpFetchStudents])
}

func TestSubscribeReceivesCommitsUntilUnsubscribed(t *testing.T) {
	s := New(seededAPI())

	var versions []uint64
	unsubscribe := s.Subscribe(func(st State) { versions = append(versions, st.Version) })

	s.FetchStudents(context.Background())
	require.Len(t, versions, 2)
	assert.Less(t, versions[0], versions[1])

	unsubscribe()
	unsubscribe()
	s.FetchCourses(context.Background())
	assert.Len(t, versions, 2)
}

func TestConcurrentMutationsDoNotLoseEntries(t *testing.T) {
	api := seededAPI()
	s := New(api)
	s.FetchStudents(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AddStudent(context.Background(), models.CreateStudentRequest{Name: "Student", Email: "s@x.com"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	state := s.Snapshot()
	assert.Len(t, state.Students, 7)
	assert.Equal(t, PhaseSucceeded, state.Operations[OpAddStudent])
}
