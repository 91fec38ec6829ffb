package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/cloo-solutions/orderdesk/internal/api"
	"github.com/cloo-solutions/orderdesk/internal/service"
)

type ReportArchiver interface {
	Archive(ctx context.Context, path string) (*service.ArchivedReport, error)
}

var _ ReportArchiver = (*service.ReportService)(nil)

type ReportHandler struct {
	reports ReportArchiver
}

func NewReportHandler(reports ReportArchiver) *ReportHandler {
	return &ReportHandler{reports: reports}
}

type ArchiveRequest struct {
	Path string `json:"path"`
}

// Archive downloads a report from the API and stores it in object storage.
func (h *ReportHandler) Archive(w http.ResponseWriter, r *http.Request) {
	var req ArchiveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	path := strings.TrimPrefix(strings.TrimSpace(req.Path), "/")
	if path == "" {
		api.Error(w, http.StatusBadRequest, "path is required")
		return
	}

	report, err := h.reports.Archive(r.Context(), path)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusCreated, report)
}
