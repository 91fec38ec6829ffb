package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/orderdesk/internal/domain"
	"github.com/cloo-solutions/orderdesk/internal/pagination"
)

type MockAdminDesk struct {
	mock.Mock
}

func (m *MockAdminDesk) raw(args mock.Arguments) (json.RawMessage, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockAdminDesk) GetOrderSet(ctx context.Context, id int64) (*domain.OrderSet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OrderSet), args.Error(1)
}

func (m *MockAdminDesk) SaveOrderSet(ctx context.Context, set *domain.OrderSet) (json.RawMessage, error) {
	return m.raw(m.Called(ctx, set))
}

func (m *MockAdminDesk) DeleteOrderSet(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockAdminDesk) GetProfileTests(ctx context.Context, testID int64) ([]domain.OrderTest, error) {
	args := m.Called(ctx, testID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.OrderTest), args.Error(1)
}

func (m *MockAdminDesk) GetResultTests(ctx context.Context, panels []domain.OrderPanel) ([]domain.OrderSetResult, error) {
	args := m.Called(ctx, panels)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.OrderSetResult), args.Error(1)
}

func (m *MockAdminDesk) GetOrderResults(ctx context.Context, hostCode string) ([]domain.OrderSetResult, error) {
	args := m.Called(ctx, hostCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.OrderSetResult), args.Error(1)
}

func (m *MockAdminDesk) GetMedSet(ctx context.Context, id int64) (*domain.MedicationSet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MedicationSet), args.Error(1)
}

func (m *MockAdminDesk) SaveMedSet(ctx context.Context, set *domain.MedicationSet) (json.RawMessage, error) {
	return m.raw(m.Called(ctx, set))
}

func (m *MockAdminDesk) DeleteMedSet(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockAdminDesk) SearchTestPatients(ctx context.Context, query string, page int) (pagination.Page[domain.TestPatient], error) {
	args := m.Called(ctx, query, page)
	return args.Get(0).(pagination.Page[domain.TestPatient]), args.Error(1)
}

func (m *MockAdminDesk) GetTestPatient(ctx context.Context, id int64) (*domain.TestPatient, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TestPatient), args.Error(1)
}

func (m *MockAdminDesk) CreateTestPatient(ctx context.Context, p *domain.TestPatient) (json.RawMessage, error) {
	return m.raw(m.Called(ctx, p))
}

func (m *MockAdminDesk) UpdateTestPatient(ctx context.Context, p *domain.TestPatient) (json.RawMessage, error) {
	return m.raw(m.Called(ctx, p))
}

func (m *MockAdminDesk) SearchScheduledOrders(ctx context.Context, q domain.OrderQuery, page int, uncache bool) (pagination.Page[domain.ScheduledOrder], error) {
	args := m.Called(ctx, q, page, uncache)
	return args.Get(0).(pagination.Page[domain.ScheduledOrder]), args.Error(1)
}

func (m *MockAdminDesk) LoadScheduledOrder(ctx context.Context, id int64) (*domain.ScheduledOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScheduledOrder), args.Error(1)
}

func (m *MockAdminDesk) SaveScheduledOrder(ctx context.Context, order *domain.ScheduledOrder) (json.RawMessage, error) {
	return m.raw(m.Called(ctx, order))
}

func (m *MockAdminDesk) DeleteScheduledOrder(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockAdminDesk) SearchTests(ctx context.Context, query string, page int) (pagination.Page[domain.OrderPanel], error) {
	args := m.Called(ctx, query, page)
	return args.Get(0).(pagination.Page[domain.OrderPanel]), args.Error(1)
}

func (m *MockAdminDesk) SearchProfiles(ctx context.Context, query string, page int) (pagination.Page[domain.OrderPanel], error) {
	args := m.Called(ctx, query, page)
	return args.Get(0).(pagination.Page[domain.OrderPanel]), args.Error(1)
}

func (m *MockAdminDesk) SearchResults(ctx context.Context, query string, page int) (pagination.Page[domain.OrderSetResult], error) {
	args := m.Called(ctx, query, page)
	return args.Get(0).(pagination.Page[domain.OrderSetResult]), args.Error(1)
}

func (m *MockAdminDesk) SearchTdTests(ctx context.Context, query string, page int) (pagination.Page[domain.OrderTdPanel], error) {
	args := m.Called(ctx, query, page)
	return args.Get(0).(pagination.Page[domain.OrderTdPanel]), args.Error(1)
}

func TestAdminHandler_GetOrderSet(t *testing.T) {
	m := new(MockAdminDesk)
	m.On("GetOrderSet", mock.Anything, int64(4)).Return(&domain.OrderSet{ID: 4, Name: "Chem"}, nil)

	req := withURLParams(httptest.NewRequest(http.MethodGet, "/admin/order-sets/4", nil), map[string]string{"id": "4"})
	w := httptest.NewRecorder()
	NewAdminHandler(m).GetOrderSet(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var set domain.OrderSet
	decodeData(t, w, &set)
	assert.Equal(t, "Chem", set.Name)
}

func TestAdminHandler_SaveOrderSet_NameRequired(t *testing.T) {
	m := new(MockAdminDesk)
	m.On("SaveOrderSet", mock.Anything, mock.AnythingOfType("*domain.OrderSet")).Return(nil, domain.ErrOrderSetNameRequired)

	w := httptest.NewRecorder()
	NewAdminHandler(m).SaveOrderSet(w, httptest.NewRequest(http.MethodPost, "/admin/order-sets", strings.NewReader(`{"name":""}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "name for the order set")
}

func TestAdminHandler_DeleteMedSet(t *testing.T) {
	m := new(MockAdminDesk)
	m.On("DeleteMedSet", mock.Anything, int64(3)).Return(nil)

	req := withURLParams(httptest.NewRequest(http.MethodDelete, "/admin/med-sets/3", nil), map[string]string{"id": "3"})
	w := httptest.NewRecorder()
	NewAdminHandler(m).DeleteMedSet(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	m.AssertExpectations(t)
}

func TestAdminHandler_ResultTests(t *testing.T) {
	m := new(MockAdminDesk)
	panels := []domain.OrderPanel{{ID: "1", Name: "CBC"}}
	m.On("GetResultTests", mock.Anything, panels).Return([]domain.OrderSetResult{{ID: "r1", Result: "WBC"}}, nil)

	w := httptest.NewRecorder()
	NewAdminHandler(m).ResultTests(w, httptest.NewRequest(http.MethodPost, "/admin/order-sets/result-tests", strings.NewReader(`[{"id":"1","name":"CBC"}]`)))

	require.Equal(t, http.StatusOK, w.Code)
	var results []domain.OrderSetResult
	decodeData(t, w, &results)
	assert.Equal(t, "WBC", results[0].Result)
}

func TestAdminHandler_UpdatePatient_UsesPathID(t *testing.T) {
	m := new(MockAdminDesk)
	m.On("UpdateTestPatient", mock.Anything, mock.MatchedBy(func(p *domain.TestPatient) bool {
		return p.ID == 8 && p.LastName == "Doe"
	})).Return(json.RawMessage(`true`), nil)

	req := withURLParams(httptest.NewRequest(http.MethodPut, "/admin/patients/8", strings.NewReader(`{"id":99,"last_name":"Doe"}`)),
		map[string]string{"id": "8"})
	w := httptest.NewRecorder()
	NewAdminHandler(m).UpdatePatient(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	m.AssertExpectations(t)
}

func TestAdminHandler_SearchPatients(t *testing.T) {
	m := new(MockAdminDesk)
	m.On("SearchTestPatients", mock.Anything, "doe", 2).Return(pagination.Page[domain.TestPatient]{Count: 11, List: []domain.TestPatient{{ID: 1}}}, nil)

	w := httptest.NewRecorder()
	NewAdminHandler(m).SearchPatients(w, httptest.NewRequest(http.MethodGet, "/admin/patients?query=doe&page=2", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var page pagination.Page[domain.TestPatient]
	decodeData(t, w, &page)
	assert.Equal(t, 11, page.Count)
}

func TestAdminHandler_SearchScheduled(t *testing.T) {
	m := new(MockAdminDesk)
	q := domain.OrderQuery{SearchBy: "patient", Term: "Doe"}
	m.On("SearchScheduledOrders", mock.Anything, q, 1, true).Return(pagination.Page[domain.ScheduledOrder]{Count: 0}, nil)

	w := httptest.NewRecorder()
	NewAdminHandler(m).SearchScheduled(w, httptest.NewRequest(http.MethodGet, "/admin/scheduled-orders?searchBy=patient&term=Doe&uncache=true", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	m.AssertExpectations(t)
}

func TestAdminHandler_SaveScheduled_Invalid(t *testing.T) {
	m := new(MockAdminDesk)
	m.On("SaveScheduledOrder", mock.Anything, mock.MatchedBy(func(o *domain.ScheduledOrder) bool {
		return o.Period == domain.PeriodWeekly
	})).Return(nil, domain.ErrIncompleteOrder)

	w := httptest.NewRecorder()
	NewAdminHandler(m).SaveScheduled(w, httptest.NewRequest(http.MethodPost, "/admin/scheduled-orders", strings.NewReader(`{"hour":9}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	m.AssertExpectations(t)
}

func TestAdminHandler_Catalog(t *testing.T) {
	m := new(MockAdminDesk)
	m.On("SearchProfiles", mock.Anything, "lipid", 1).Return(pagination.Page[domain.OrderPanel]{Count: 1, List: []domain.OrderPanel{{ID: "5", Name: "Lipid"}}}, nil)

	req := withURLParams(httptest.NewRequest(http.MethodGet, "/admin/catalog/profiles?query=lipid", nil), map[string]string{"kind": "profiles"})
	w := httptest.NewRecorder()
	NewAdminHandler(m).Catalog(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	req = withURLParams(httptest.NewRequest(http.MethodGet, "/admin/catalog/planets", nil), map[string]string{"kind": "planets"})
	w = httptest.NewRecorder()
	NewAdminHandler(m).Catalog(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
