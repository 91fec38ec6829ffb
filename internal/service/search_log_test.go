package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/orderdesk/internal/pagination"
	"github.com/cloo-solutions/orderdesk/internal/search"
)

func TestSearchLogger_RecordWritesEntry(t *testing.T) {
	repo := new(MockSearchLogRepository)
	logger := NewSearchLogger(repo)

	written := make(chan SearchLogEntry, 1)
	repo.On("CreateSearchLog", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		written <- args.Get(1).(SearchLogEntry)
	}).Return("log-1", nil).Once()

	logger.Record(context.Background(), search.Evaluation{
		Name:     "doctor",
		Query:    "smith",
		Page:     2,
		Results:  10,
		Count:    25,
		Duration: 42 * time.Millisecond,
		Err:      errors.New("timeout"),
	})

	select {
	case entry := <-written:
		assert.Equal(t, "doctor", entry.Domain)
		assert.Equal(t, "smith", entry.Query)
		assert.Equal(t, 2, entry.Page)
		assert.Equal(t, 25, entry.TotalCount)
		assert.Equal(t, 42, entry.DurationMs)
		assert.Equal(t, "timeout", entry.Error)
	case <-time.After(time.Second):
		t.Fatal("search log not written")
	}
}

func TestSearchLogger_RecentClampsLimit(t *testing.T) {
	repo := new(MockSearchLogRepository)
	logger := NewSearchLogger(repo)

	repo.On("RecentByDomain", mock.Anything, "patient", 20).Return([]SearchLogEntry{{Domain: "patient"}}, nil).Once()

	entries, err := logger.Recent(context.Background(), "patient", 1000)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	repo.AssertExpectations(t)
}

func TestSearchLogger_WithSearchState(t *testing.T) {
	repo := new(MockSearchLogRepository)
	logger := NewSearchLogger(repo)

	done := make(chan struct{}, 1)
	repo.On("CreateSearchLog", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		done <- struct{}{}
	}).Return("log-2", nil)

	api := new(MockAPI)
	api.On("Post", mock.Anything, "demo/search/patients/1", "ng").Return(map[string]any{"count": 0, "list": []any{}}, nil)

	svc := NewOrderService(api)
	defer svc.Close()
	state := search.NewState[string, json.RawMessage]("patient", func(ctx context.Context, q string, page int, uncache bool) (pagination.Page[json.RawMessage], error) {
		return svc.Search(ctx, "patient", q, page, uncache)
	}, search.WithRecorder(logger))
	defer state.Close()

	require.NoError(t, state.Evaluate(context.Background(), "ng"))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("search log not written")
	}
}
