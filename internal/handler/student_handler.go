package handler

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-dashboard/internal/dto"
	"github.com/noah-isme/student-dashboard/internal/models"
	appErrors "github.com/noah-isme/student-dashboard/pkg/errors"
	"github.com/noah-isme/student-dashboard/pkg/response"
)

const maxImageSize = 5 << 20

type studentService interface {
	List(ctx context.Context, filter dto.StudentFilter) dto.StudentList
	Courses(ctx context.Context) dto.CourseList
	Create(ctx context.Context, req models.CreateStudentRequest) (*models.Student, error)
	Update(ctx context.Context, id models.ID, req models.UpdateStudentRequest) (*models.Student, error)
	Delete(ctx context.Context, id models.ID) error
}

// StudentHandler exposes student and course endpoints.
type StudentHandler struct {
	students studentService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students studentService) *StudentHandler {
	return &StudentHandler{students: students}
}

// List godoc
// @Summary List students
// @Description Refreshes the store from the upstream API and returns the (optionally filtered) student table. Stale data is returned when the refresh fails.
// @Tags Students
// @Produce json
// @Param q query string false "Search by name or email"
// @Param status query string false "Filter by status"
// @Param cohort query string false "Filter by cohort"
// @Param courseId query string false "Filter by associated course"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	var filter dto.StudentFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	list := h.students.List(c.Request.Context(), filter)
	meta := map[string]interface{}{
		"total":   list.Total,
		"loading": list.Loading,
		"version": list.Version,
	}
	if list.Error != "" {
		meta["error"] = list.Error
	}
	response.JSON(c, http.StatusOK, list.Students, meta)
}

// Create godoc
// @Summary Create student
// @Description Accepts JSON or multipart/form-data. Multipart requests may carry an image file and repeated courses[] fields.
// @Tags Students
// @Accept json
// @Accept mpfd
// @Produce json
// @Param payload body models.CreateStudentRequest false "Student payload"
// @Param image formData file false "Profile image"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var (
		req models.CreateStudentRequest
		err error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		req, err = bindMultipartStudent(c)
	} else {
		err = c.ShouldBindJSON(&req)
	}
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid student payload"))
		return
	}

	student, err := h.students.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Update godoc
// @Summary Update student
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body models.UpdateStudentRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	var req models.UpdateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid student payload"))
		return
	}
	student, err := h.students.Update(c.Request.Context(), models.ID(c.Param("id")), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student)
}

// Delete godoc
// @Summary Delete student
// @Tags Students
// @Param id path string true "Student ID"
// @Success 204 "No Content"
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	if err := h.students.Delete(c.Request.Context(), models.ID(c.Param("id"))); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Courses godoc
// @Summary List courses
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *StudentHandler) Courses(c *gin.Context) {
	list := h.students.Courses(c.Request.Context())
	meta := map[string]interface{}{"version": list.Version}
	if list.Error != "" {
		meta["error"] = list.Error
	}
	response.JSON(c, http.StatusOK, list.Courses, meta)
}

func bindMultipartStudent(c *gin.Context) (models.CreateStudentRequest, error) {
	var req models.CreateStudentRequest
	if err := c.ShouldBind(&req); err != nil {
		return req, err
	}
	form, err := c.MultipartForm()
	if err != nil {
		return req, err
	}
	req.CourseIDs = []models.ID{}
	for _, key := range []string{"courses[]", "courses", "courseIds"} {
		for _, raw := range form.Value[key] {
			if id := strings.TrimSpace(raw); id != "" {
				req.CourseIDs = append(req.CourseIDs, models.ID(id))
			}
		}
	}
	if files := form.File["image"]; len(files) > 0 {
		image, err := readImage(files[0])
		if err != nil {
			return req, err
		}
		req.Image = image
	}
	return req, nil
}

func readImage(header *multipart.FileHeader) (*models.ImageUpload, error) {
	if header.Size > maxImageSize {
		return nil, fmt.Errorf("image exceeds %d bytes", maxImageSize)
	}
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxImageSize+1))
	if err != nil {
		return nil, err
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return &models.ImageUpload{Filename: header.Filename, ContentType: contentType, Data: data}, nil
}
