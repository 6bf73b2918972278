package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-dashboard/internal/dto"
	"github.com/noah-isme/student-dashboard/internal/models"
	"github.com/noah-isme/student-dashboard/pkg/response"
)

type chapterService interface {
	List(ctx context.Context, courseID models.ID) (*dto.ChapterList, error)
}

// ChapterHandler serves the chapter manager.
type ChapterHandler struct {
	chapters chapterService
}

// NewChapterHandler constructs ChapterHandler.
func NewChapterHandler(chapters chapterService) *ChapterHandler {
	return &ChapterHandler{chapters: chapters}
}

// List godoc
// @Summary List course chapters
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/chapters [get]
func (h *ChapterHandler) List(c *gin.Context) {
	list, err := h.chapters.List(c.Request.Context(), models.ID(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list)
}
