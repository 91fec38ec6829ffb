package service

import (
	"context"
	"fmt"
	"mime"
	"time"

	"github.com/google/uuid"

	"github.com/cloo-solutions/orderdesk/internal/domain"
	"github.com/cloo-solutions/orderdesk/internal/telemetry"
)

// ObjectStore is where archived reports are kept.
type ObjectStore interface {
	PutObject(ctx context.Context, key, contentType string, data []byte) error
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// ReportService archives files produced by the API.
type ReportService struct {
	api     API
	store   ObjectStore
	uuidGen UUIDGenerator
	now     func() time.Time
}

// NewReportService returns a service whose Archive fails with
// ErrArchiveNotConfigured when store is nil.
func NewReportService(api API, store ObjectStore) *ReportService {
	return &ReportService{
		api:     api,
		store:   store,
		uuidGen: &DefaultUUIDGenerator{},
		now:     time.Now,
	}
}

type ArchivedReport struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
}

// Archive downloads the file at path and stores it, returning a link.
func (s *ReportService) Archive(ctx context.Context, path string) (*ArchivedReport, error) {
	if s.store == nil {
		return nil, domain.ErrArchiveNotConfigured
	}

	ctx, span := telemetry.StartSpan(ctx, "ReportService.Archive", telemetry.SpanAttributes{
		Path:      path,
		Operation: "archive",
	})
	defer span.End()

	blob, err := s.api.Download(ctx, path)
	if err != nil {
		return nil, err
	}

	key := s.objectKey(blob.ContentType)
	if err := s.store.PutObject(ctx, key, blob.ContentType, blob.Data); err != nil {
		span.SetError(err)
		return nil, err
	}

	url, err := s.store.GenerateDownloadURL(ctx, key)
	if err != nil {
		return nil, err
	}

	return &ArchivedReport{
		Key:         key,
		URL:         url,
		ContentType: blob.ContentType,
		Size:        len(blob.Data),
	}, nil
}

// objectKey is reports/YYYY/MM/<uuid><ext>.
func (s *ReportService) objectKey(contentType string) string {
	ext := ""
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		ext = exts[0]
	}
	now := s.now().UTC()
	return fmt.Sprintf("reports/%04d/%02d/%s%s", now.Year(), int(now.Month()), s.uuidGen.NewString(), ext)
}
