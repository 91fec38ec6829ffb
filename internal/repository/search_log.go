package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/orderdesk/internal/service"
)

// SearchLogRepository stores one row per search cache fetch.
type SearchLogRepository struct {
	pool *pgxpool.Pool
}

func NewSearchLogRepository(pool *pgxpool.Pool) *SearchLogRepository {
	return &SearchLogRepository{pool: pool}
}

var _ service.SearchLogRepository = (*SearchLogRepository)(nil)

func (r *SearchLogRepository) CreateSearchLog(ctx context.Context, entry service.SearchLogEntry) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx,
		`INSERT INTO search_logs (domain, query, page, uncache, result_count, total_count, duration_ms, error)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		entry.Domain,
		entry.Query,
		entry.Page,
		entry.Uncache,
		entry.ResultCount,
		entry.TotalCount,
		entry.DurationMs,
		nullableString(entry.Error),
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// RecentByDomain returns the newest entries for a domain, newest first.
func (r *SearchLogRepository) RecentByDomain(ctx context.Context, domain string, limit int) ([]service.SearchLogEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, domain, query, page, uncache, result_count, total_count, duration_ms, COALESCE(error, ''), created_at
		 FROM search_logs
		 WHERE domain = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		domain, limit,
	)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (service.SearchLogEntry, error) {
		var e service.SearchLogEntry
		err := row.Scan(&e.ID, &e.Domain, &e.Query, &e.Page, &e.Uncache, &e.ResultCount, &e.TotalCount, &e.DurationMs, &e.Error, &e.CreatedAt)
		return e, err
	})
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
