package service

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/stretchr/testify/mock"

	"github.com/cloo-solutions/orderdesk/internal/remote"
)

// MockAPI is a mock implementation of API. The first return value, when not
// nil, is JSON-copied into the call's out argument.
type MockAPI struct {
	mock.Mock
}

func fill(out any, v any) {
	if out == nil || v == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		panic(err)
	}
}

func (m *MockAPI) Get(ctx context.Context, path string, out any) error {
	args := m.Called(ctx, path)
	fill(out, args.Get(0))
	return args.Error(1)
}

func (m *MockAPI) GetNoAuth(ctx context.Context, path string, out any) error {
	args := m.Called(ctx, path)
	fill(out, args.Get(0))
	return args.Error(1)
}

func (m *MockAPI) Post(ctx context.Context, path string, body any, out any) error {
	args := m.Called(ctx, path, body)
	fill(out, args.Get(0))
	return args.Error(1)
}

func (m *MockAPI) PostForm(ctx context.Context, path string, fields url.Values, out any) error {
	args := m.Called(ctx, path, fields)
	fill(out, args.Get(0))
	return args.Error(1)
}

func (m *MockAPI) Download(ctx context.Context, path string) (*remote.Blob, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*remote.Blob), args.Error(1)
}

type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) PutObject(ctx context.Context, key, contentType string, data []byte) error {
	args := m.Called(ctx, key, contentType, data)
	return args.Error(0)
}

func (m *MockObjectStore) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

type MockSearchLogRepository struct {
	mock.Mock
}

func (m *MockSearchLogRepository) CreateSearchLog(ctx context.Context, entry SearchLogEntry) (string, error) {
	args := m.Called(ctx, entry)
	return args.String(0), args.Error(1)
}

func (m *MockSearchLogRepository) RecentByDomain(ctx context.Context, domain string, limit int) ([]SearchLogEntry, error) {
	args := m.Called(ctx, domain, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]SearchLogEntry), args.Error(1)
}

type MockCRMStore struct {
	mock.Mock
}

func (m *MockCRMStore) LoadCRMID() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *MockCRMStore) SaveCRMID(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

type fixedUUID string

func (f fixedUUID) NewString() string { return string(f) }
