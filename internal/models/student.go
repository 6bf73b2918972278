package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ID identifies students and courses. Upstream services send either JSON numbers or strings.
type ID string

// String returns the raw identifier.
func (id ID) String() string {
	return string(id)
}

// IsZero reports whether the identifier is unset.
func (id ID) IsZero() bool {
	return id == ""
}

// MarshalJSON writes numeric identifiers as numbers and everything else as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.numeric() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts numbers, strings and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*id = ID(strings.TrimSpace(raw))
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*id = ID(num.String())
	return nil
}

func (id ID) numeric() bool {
	if id == "" {
		return false
	}
	for i, r := range id {
		if r == '-' && i == 0 && len(id) > 1 {
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Status is the closed set of student lifecycle states.
type Status string

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
	StatusPending  Status = "Pending"
)

// Statuses lists every known status in display order.
var Statuses = []Status{StatusActive, StatusInactive, StatusPending}

// ParseStatus matches raw against the known statuses ignoring case.
func ParseStatus(raw string) (Status, bool) {
	for _, s := range Statuses {
		if strings.EqualFold(strings.TrimSpace(raw), string(s)) {
			return s, true
		}
	}
	return "", false
}

// UnmarshalJSON normalises any casing; empty or unknown values become Pending.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = StatusPending
		return nil
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode status: %w", err)
	}
	parsed, ok := ParseStatus(raw)
	if !ok {
		parsed = StatusPending
	}
	*s = parsed
	return nil
}

// CourseAssociation links a student to a course.
type CourseAssociation struct {
	CourseID   ID     `json:"courseId"`
	CourseName string `json:"courseName,omitempty"`
}

// UnmarshalJSON accepts {courseId}, {course:{id,name}}, a bare course object or a scalar id.
func (a *CourseAssociation) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		var id ID
		if err := json.Unmarshal(data, &id); err != nil {
			return fmt.Errorf("decode course association: %w", err)
		}
		*a = CourseAssociation{CourseID: id}
		return nil
	}

	var wire struct {
		CourseID   ID      `json:"courseId"`
		CourseName string  `json:"courseName"`
		Course     *Course `json:"course"`
		ID         ID      `json:"id"`
		Name       string  `json:"name"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("decode course association: %w", err)
	}

	assoc := CourseAssociation{CourseID: wire.CourseID, CourseName: wire.CourseName}
	if wire.Course != nil {
		if assoc.CourseID.IsZero() {
			assoc.CourseID = wire.Course.ID
		}
		if assoc.CourseName == "" {
			assoc.CourseName = wire.Course.Name
		}
	}
	if assoc.CourseID.IsZero() {
		assoc.CourseID = wire.ID
		if assoc.CourseName == "" {
			assoc.CourseName = wire.Name
		}
	}
	*a = assoc
	return nil
}

// Student is the canonical student record used across the dashboard.
type Student struct {
	ID         ID                  `json:"id"`
	Name       string              `json:"name"`
	Email      string              `json:"email"`
	Cohort     string              `json:"cohort"`
	Status     Status              `json:"status"`
	DateJoined time.Time           `json:"dateJoined"`
	LastLogin  *time.Time          `json:"lastLogin,omitempty"`
	ImageURL   string              `json:"imageUrl,omitempty"`
	Courses    []CourseAssociation `json:"courses"`
}

// UnmarshalJSON adapts the upstream variants into the canonical shape.
func (s *Student) UnmarshalJSON(data []byte) error {
	type plain Student
	var wire struct {
		plain
		DateJoined looseTime `json:"dateJoined"`
		LastLogin  looseTime `json:"lastLogin"`
		CourseIDs  []ID      `json:"courseIds"`
		Image      string    `json:"image"`
		CreatedAt  looseTime `json:"createdAt"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("decode student: %w", err)
	}

	student := Student(wire.plain)
	if len(student.Courses) == 0 && len(wire.CourseIDs) > 0 {
		student.Courses = associations(wire.CourseIDs)
	}
	if student.Courses == nil {
		student.Courses = []CourseAssociation{}
	}
	if student.ImageURL == "" {
		student.ImageURL = wire.Image
	}
	student.DateJoined = wire.DateJoined.Time
	if student.DateJoined.IsZero() {
		student.DateJoined = wire.CreatedAt.Time
	}
	if !wire.LastLogin.IsZero() {
		last := wire.LastLogin.Time
		student.LastLogin = &last
	}
	if student.Status == "" {
		student.Status = StatusPending
	}
	*s = student
	return nil
}

// timeLayouts are tried in order when decoding upstream timestamps.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// looseTime decodes RFC3339, zone-less and date-only strings as well as epoch milliseconds.
// Empty, null and unrecognised values decode to the zero time.
type looseTime struct {
	time.Time
}

func (t *looseTime) UnmarshalJSON(data []byte) error {
	t.Time = time.Time{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] != '"' {
		var ms json.Number
		if err := json.Unmarshal(data, &ms); err != nil {
			return fmt.Errorf("decode timestamp: %w", err)
		}
		if n, err := ms.Int64(); err == nil {
			t.Time = time.UnixMilli(n).UTC()
		}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode timestamp: %w", err)
	}
	t.Time = ParseTime(raw)
	return nil
}

// ParseTime parses raw with the accepted upstream layouts, returning the zero time when none match.
func ParseTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

func associations(ids []ID) []CourseAssociation {
	out := make([]CourseAssociation, 0, len(ids))
	for _, id := range ids {
		out = append(out, CourseAssociation{CourseID: id})
	}
	return out
}

// HasCourse reports whether the student is associated with courseID.
func (s Student) HasCourse(courseID ID) bool {
	for _, c := range s.Courses {
		if c.CourseID == courseID {
			return true
		}
	}
	return false
}

// CourseNames lists associated course names, falling back to the id when the name is unknown.
func (s Student) CourseNames() []string {
	names := make([]string, 0, len(s.Courses))
	for _, c := range s.Courses {
		if c.CourseName != "" {
			names = append(names, c.CourseName)
			continue
		}
		names = append(names, c.CourseID.String())
	}
	return names
}

// Clone returns a copy that shares no slices or pointers with s.
func (s Student) Clone() Student {
	clone := s
	if s.Courses != nil {
		clone.Courses = make([]CourseAssociation, len(s.Courses))
		copy(clone.Courses, s.Courses)
	}
	if s.LastLogin != nil {
		last := *s.LastLogin
		clone.LastLogin = &last
	}
	return clone
}

// ImageUpload carries an optional student picture for multipart submission.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// CreateStudentRequest holds the payload for creating students.
type CreateStudentRequest struct {
	Name      string       `json:"name" form:"name" validate:"required"`
	Email     string       `json:"email" form:"email" validate:"required,email"`
	Cohort    string       `json:"cohort" form:"cohort"`
	Status    Status       `json:"status,omitempty" form:"status"`
	CourseIDs []ID         `json:"courseIds" form:"-"`
	Image     *ImageUpload `json:"-" form:"-"`
}

// UnmarshalJSON keeps status verbatim for validation and reads courses when courseIds is absent.
func (r *CreateStudentRequest) UnmarshalJSON(data []byte) error {
	type plain CreateStudentRequest
	var wire struct {
		plain
		Status  string              `json:"status"`
		Courses []CourseAssociation `json:"courses"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("decode create student request: %w", err)
	}
	req := CreateStudentRequest(wire.plain)
	req.Status = Status(strings.TrimSpace(wire.Status))
	req.CourseIDs = selectedCourses(req.CourseIDs, wire.Courses)
	*r = req
	return nil
}

// UpdateStudentRequest holds a partial update. Nil fields are left untouched upstream.
type UpdateStudentRequest struct {
	Name      *string `json:"name,omitempty" validate:"omitempty,min=1"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	Cohort    *string `json:"cohort,omitempty"`
	Status    *Status `json:"status,omitempty"`
	ImageURL  *string `json:"imageUrl,omitempty"`
	CourseIDs []ID    `json:"courseIds,omitempty"`
}

// UnmarshalJSON mirrors CreateStudentRequest: raw status, courses as a fallback for courseIds.
func (r *UpdateStudentRequest) UnmarshalJSON(data []byte) error {
	var wire struct {
		Name      *string             `json:"name"`
		Email     *string             `json:"email"`
		Cohort    *string             `json:"cohort"`
		Status    *string             `json:"status"`
		ImageURL  *string             `json:"imageUrl"`
		CourseIDs []ID                `json:"courseIds"`
		Courses   []CourseAssociation `json:"courses"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("decode update student request: %w", err)
	}
	req := UpdateStudentRequest{
		Name:      wire.Name,
		Email:     wire.Email,
		Cohort:    wire.Cohort,
		ImageURL:  wire.ImageURL,
		CourseIDs: selectedCourses(wire.CourseIDs, wire.Courses),
	}
	if wire.Status != nil {
		status := Status(strings.TrimSpace(*wire.Status))
		req.Status = &status
	}
	*r = req
	return nil
}

// selectedCourses prefers explicit ids and falls back to the ids of courses.
// A nil result means neither field was sent.
func selectedCourses(ids []ID, courses []CourseAssociation) []ID {
	if ids != nil || courses == nil {
		return ids
	}
	out := make([]ID, 0, len(courses))
	for _, c := range courses {
		out = append(out, c.CourseID)
	}
	return out
}

// MarshalJSON sends courseIds whenever a list was supplied, including an empty one.
func (r UpdateStudentRequest) MarshalJSON() ([]byte, error) {
	body := make(map[string]interface{}, 6)
	if r.Name != nil {
		body["name"] = *r.Name
	}
	if r.Email != nil {
		body["email"] = *r.Email
	}
	if r.Cohort != nil {
		body["cohort"] = *r.Cohort
	}
	if r.Status != nil {
		body["status"] = *r.Status
	}
	if r.ImageURL != nil {
		body["imageUrl"] = *r.ImageURL
	}
	if r.CourseIDs != nil {
		body["courseIds"] = r.CourseIDs
	}
	return json.Marshal(body)
}
