package service

import (
	"context"
	"log"
	"time"

	"github.com/cloo-solutions/orderdesk/internal/search"
)

// SearchLogEntry records one search request against the API.
type SearchLogEntry struct {
	ID          string    `json:"id"`
	Domain      string    `json:"domain"`
	Query       string    `json:"query"`
	Page        int       `json:"page"`
	Uncache     bool      `json:"uncache"`
	ResultCount int       `json:"resultCount"`
	TotalCount  int       `json:"totalCount"`
	DurationMs  int       `json:"durationMs"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// SearchLogRepository persists search logs.
type SearchLogRepository interface {
	CreateSearchLog(ctx context.Context, entry SearchLogEntry) (string, error)
	RecentByDomain(ctx context.Context, domain string, limit int) ([]SearchLogEntry, error)
}

const searchLogTimeout = 5 * time.Second

// SearchLogger writes every search cache fetch to the repository. Writes
// happen in the background and failures are only logged.
type SearchLogger struct {
	repo SearchLogRepository
}

func NewSearchLogger(repo SearchLogRepository) *SearchLogger {
	return &SearchLogger{repo: repo}
}

var _ search.Recorder = (*SearchLogger)(nil)

func (l *SearchLogger) Record(_ context.Context, ev search.Evaluation) {
	entry := SearchLogEntry{
		Domain:      ev.Name,
		Query:       ev.Query,
		Page:        ev.Page,
		Uncache:     ev.Uncache,
		ResultCount: ev.Results,
		TotalCount:  ev.Count,
		DurationMs:  int(ev.Duration.Milliseconds()),
	}
	if ev.Err != nil {
		entry.Error = ev.Err.Error()
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), searchLogTimeout)
		defer cancel()
		if _, err := l.repo.CreateSearchLog(ctx, entry); err != nil {
			log.Printf("search log: failed to record %s search: %v", entry.Domain, err)
		}
	}()
}

func (l *SearchLogger) Recent(ctx context.Context, domain string, limit int) ([]SearchLogEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return l.repo.RecentByDomain(ctx, domain, limit)
}
