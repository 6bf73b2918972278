package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/student-dashboard/internal/dto"
	"github.com/noah-isme/student-dashboard/internal/models"
	"github.com/noah-isme/student-dashboard/internal/store"
	appErrors "github.com/noah-isme/student-dashboard/pkg/errors"
	"github.com/noah-isme/student-dashboard/pkg/export"
	"github.com/noah-isme/student-dashboard/pkg/storage"
)

const exportTimeLayout = "2006-01-02 15:04"

var studentExportHeaders = []string{"Student Name", "Email", "Cohort", "Courses", "Date Joined", "Last Login", "Status"}

var (
	errInvalidDownload = appErrors.New("INVALID_DOWNLOAD", http.StatusForbidden, "invalid download link")
	errExpiredDownload = appErrors.New("DOWNLOAD_EXPIRED", http.StatusGone, "download link expired")
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// Download is an opened export ready to be streamed.
type Download struct {
	File        *os.File
	Filename    string
	ContentType string
}

// ExportService renders the student table and persists the documents behind signed links.
type ExportService struct {
	store     dashboardStore
	storage   fileStorage
	signer    *storage.SignedURLSigner
	renderers map[dto.ExportFormat]export.Renderer
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService constructs an ExportService with the CSV, PDF and XLSX renderers.
func NewExportService(st dashboardStore, files fileStorage, signer *storage.SignedURLSigner, metrics *MetricsService, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = signer.TTL()
	}
	return &ExportService{
		store:   st,
		storage: files,
		signer:  signer,
		renderers: map[dto.ExportFormat]export.Renderer{
			dto.ExportFormatCSV:  export.NewCSVExporter(),
			dto.ExportFormatPDF:  export.NewPDFExporter(),
			dto.ExportFormatXLSX: export.NewXLSXExporter("Students"),
		},
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Generate renders the students matching filter in the requested format.
func (s *ExportService) Generate(ctx context.Context, format dto.ExportFormat, filter dto.StudentFilter) (*dto.ExportResponse, error) {
	format = dto.ExportFormat(strings.ToLower(string(format)))
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	state := ensureLoaded(ctx, s.store)
	if state.Operations[store.OpFetchStudents] == store.PhaseFailed && len(state.Students) == 0 {
		return nil, appErrors.FromStatus(http.StatusBadGateway, state.Error)
	}
	students := filterStudents(state.Students, filter)
	dataset := studentDataset(students)

	payload, err := renderer.Render(dataset, "Student List")
	if err != nil {
		return nil, fmt.Errorf("render %s export: %w", format, err)
	}

	id := uuid.NewString()
	timestamp := s.now().UTC().Format("20060102_150405")
	stored := fmt.Sprintf("students_%s_%s.%s", timestamp, id[:8], renderer.Extension())
	relPath, err := s.storage.Save(stored, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(id, relPath)
	if err != nil {
		return nil, err
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	s.metrics.RecordExport(format)
	s.logger.Info("student export generated",
		zap.String("export_id", id),
		zap.String("format", string(format)),
		zap.Int("rows", len(students)),
	)

	return &dto.ExportResponse{
		ID:          id,
		Format:      format,
		Filename:    fmt.Sprintf("students_%s.%s", timestamp, renderer.Extension()),
		Rows:        len(students),
		DownloadURL: fmt.Sprintf("%s/exports/download?token=%s", prefix, url.QueryEscape(token)),
		ExpiresAt:   expiresAt,
	}, nil
}

// Open validates token and returns the referenced export.
func (s *ExportService) Open(token string) (*Download, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	switch {
	case errors.Is(err, storage.ErrTokenExpired):
		return nil, errExpiredDownload
	case err != nil:
		return nil, errInvalidDownload
	}

	file, err := s.storage.Open(relPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
		}
		return nil, err
	}

	ext := strings.TrimPrefix(path.Ext(relPath), ".")
	download := &Download{File: file, Filename: downloadName(relPath), ContentType: "application/octet-stream"}
	for _, renderer := range s.renderers {
		if renderer.Extension() == ext {
			download.ContentType = renderer.ContentType()
			break
		}
	}
	return download, nil
}

// Cleanup removes exports older than ttl, defaulting to the configured result TTL.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

// StartCleanup sweeps expired exports every interval until ctx is done.
func (s *ExportService) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := s.Cleanup(0)
				if err != nil {
					s.logger.Warn("export cleanup failed", zap.Error(err))
					continue
				}
				if len(removed) > 0 {
					s.logger.Info("expired exports removed", zap.Int("count", len(removed)))
				}
			}
		}
	}()
}

func studentDataset(students []models.Student) export.Dataset {
	rows := make([]map[string]string, 0, len(students))
	for _, st := range students {
		lastLogin := "Never"
		if st.LastLogin != nil {
			lastLogin = st.LastLogin.UTC().Format(exportTimeLayout)
		}
		joined := ""
		if !st.DateJoined.IsZero() {
			joined = st.DateJoined.UTC().Format("2006-01-02")
		}
		rows = append(rows, map[string]string{
			"Student Name": st.Name,
			"Email":        st.Email,
			"Cohort":       st.Cohort,
			"Courses":      strings.Join(st.CourseNames(), ", "),
			"Date Joined":  joined,
			"Last Login":   lastLogin,
			"Status":       string(st.Status),
		})
	}
	return export.Dataset{Headers: append([]string(nil), studentExportHeaders...), Rows: rows}
}

// downloadName strips the export id suffix from a stored file name.
func downloadName(relPath string) string {
	base := path.Base(relPath)
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if idx := strings.LastIndex(stem, "_"); idx > 0 && strings.Count(stem, "_") > 2 {
		stem = stem[:idx]
	}
	return stem + ext
}
