package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/student-dashboard/internal/dto"
	"github.com/noah-isme/student-dashboard/internal/models"
	appErrors "github.com/noah-isme/student-dashboard/pkg/errors"
)

type chapterCatalog interface {
	CourseList() []models.Course
	ChaptersFor(courseID models.ID) ([]models.Chapter, bool)
}

// ChapterService serves the chapter manager of a course.
type ChapterService struct {
	store   dashboardStore
	catalog chapterCatalog
	logger  *zap.Logger
}

// NewChapterService constructs a ChapterService.
func NewChapterService(st dashboardStore, catalog chapterCatalog, logger *zap.Logger) *ChapterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChapterService{store: st, catalog: catalog, logger: logger}
}

// List returns the chapters of courseID. Courses known to the store without
// seeded chapters yield an empty list.
func (s *ChapterService) List(ctx context.Context, courseID models.ID) (*dto.ChapterList, error) {
	if courseID.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course id is required")
	}
	state := ensureLoaded(ctx, s.store)

	course, ok := findCourse(state.Courses, courseID)
	if !ok {
		course, ok = findCourse(s.catalog.CourseList(), courseID)
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "Course not found")
	}

	chapters, found := s.catalog.ChaptersFor(courseID)
	if !found {
		s.logger.Debug("no chapters seeded for course", zap.String("course_id", courseID.String()))
		chapters = []models.Chapter{}
	}
	return &dto.ChapterList{Course: course, Chapters: chapters}, nil
}

func findCourse(courses []models.Course, id models.ID) (models.Course, bool) {
	for _, c := range courses {
		if c.ID == id {
			return c, true
		}
	}
	return models.Course{}, false
}
