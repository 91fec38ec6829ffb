package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloo-solutions/orderdesk/internal/domain"
	"github.com/cloo-solutions/orderdesk/internal/pagination"
)

// AdminService maintains order sets, medication sets, test patients and
// scheduled orders.
type AdminService struct {
	api API
}

func NewAdminService(api API) *AdminService {
	return &AdminService{api: api}
}

// orderSetPayload mirrors demo/orderSets/view, where panel collections may be
// keyed objects instead of arrays.
type orderSetPayload struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Panels   json.RawMessage `json:"panels"`
	TdPanels json.RawMessage `json:"tdPanels"`
	Results  json.RawMessage `json:"results"`
}

func (s *AdminService) GetOrderSet(ctx context.Context, id int64) (*domain.OrderSet, error) {
	var raw orderSetPayload
	if err := s.api.Get(ctx, fmt.Sprintf("demo/orderSets/view/%d", id), &raw); err != nil {
		return nil, err
	}

	set := &domain.OrderSet{ID: raw.ID, Name: raw.Name}
	var err error
	if set.Panels, err = decodeList[domain.OrderPanel](raw.Panels); err != nil {
		return nil, fmt.Errorf("failed to decode order set panels: %w", err)
	}
	if set.TdPanels, err = decodeList[domain.OrderTdPanel](raw.TdPanels); err != nil {
		return nil, fmt.Errorf("failed to decode order set td panels: %w", err)
	}
	if set.Results, err = decodeList[domain.OrderSetResult](raw.Results); err != nil {
		return nil, fmt.Errorf("failed to decode order set results: %w", err)
	}
	return set, nil
}

func (s *AdminService) SaveOrderSet(ctx context.Context, set *domain.OrderSet) (json.RawMessage, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}
	var out json.RawMessage
	if err := s.api.Post(ctx, "demo/orderSets/savePanels", set, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *AdminService) DeleteOrderSet(ctx context.Context, id int64) error {
	return s.api.Get(ctx, fmt.Sprintf("demo/orderSets/delete/%d", id), nil)
}

// GetProfileTests lists the tests making up a profile.
func (s *AdminService) GetProfileTests(ctx context.Context, testID int64) ([]domain.OrderTest, error) {
	var tests []domain.OrderTest
	if err := s.api.Get(ctx, fmt.Sprintf("demo/orderSets/getProfileTests/%d", testID), &tests); err != nil {
		return nil, err
	}
	return tests, nil
}

// GetResultTests maps panels to the result tests they produce.
func (s *AdminService) GetResultTests(ctx context.Context, panels []domain.OrderPanel) ([]domain.OrderSetResult, error) {
	var raw json.RawMessage
	if err := s.api.Post(ctx, "demo/orderSets/transformCopiaTests", panels, &raw); err != nil {
		return nil, err
	}
	return decodeList[domain.OrderSetResult](raw)
}

func (s *AdminService) GetOrderResults(ctx context.Context, hostCode string) ([]domain.OrderSetResult, error) {
	var raw json.RawMessage
	if err := s.api.Get(ctx, "demo/orderSets/getOrderResults/"+hostCode, &raw); err != nil {
		return nil, err
	}
	return decodeList[domain.OrderSetResult](raw)
}

func (s *AdminService) GetMedSet(ctx context.Context, id int64) (*domain.MedicationSet, error) {
	var set domain.MedicationSet
	if err := s.api.Get(ctx, fmt.Sprintf("demo/medSets/view/%d", id), &set); err != nil {
		return nil, err
	}
	return &set, nil
}

func (s *AdminService) SaveMedSet(ctx context.Context, set *domain.MedicationSet) (json.RawMessage, error) {
	if set.Name == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "please enter a name for the med set")
	}
	var out json.RawMessage
	if err := s.api.Post(ctx, "demo/medSets/save", set, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *AdminService) DeleteMedSet(ctx context.Context, id int64) error {
	return s.api.Get(ctx, fmt.Sprintf("demo/medSets/delete/%d", id), nil)
}

func (s *AdminService) SearchTestPatients(ctx context.Context, query string, page int) (pagination.Page[domain.TestPatient], error) {
	return Search[domain.TestPatient](ctx, s.api, domain.SearchTestPatients, query, page, false)
}

func (s *AdminService) GetTestPatient(ctx context.Context, id int64) (*domain.TestPatient, error) {
	var p domain.TestPatient
	if err := s.api.Get(ctx, fmt.Sprintf("demo/testPatients/search/%d", id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *AdminService) CreateTestPatient(ctx context.Context, p *domain.TestPatient) (json.RawMessage, error) {
	var out json.RawMessage
	if err := s.api.Post(ctx, "demo/testPatients/create", p, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *AdminService) UpdateTestPatient(ctx context.Context, p *domain.TestPatient) (json.RawMessage, error) {
	var out json.RawMessage
	if err := s.api.Post(ctx, "demo/testPatients/edit", p, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *AdminService) SearchScheduledOrders(ctx context.Context, q domain.OrderQuery, page int, uncache bool) (pagination.Page[domain.ScheduledOrder], error) {
	if page < 1 {
		return pagination.Page[domain.ScheduledOrder]{}, pagination.ErrInvalidPage
	}
	return searchPage[domain.ScheduledOrder](ctx, s.api, withUncache(fmt.Sprintf("demo/scheduledOrders/search/%d", page), uncache), q)
}

func (s *AdminService) LoadScheduledOrder(ctx context.Context, id int64) (*domain.ScheduledOrder, error) {
	var order domain.ScheduledOrder
	if err := s.api.Get(ctx, fmt.Sprintf("demo/scheduledOrders/view/%d", id), &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *AdminService) SaveScheduledOrder(ctx context.Context, order *domain.ScheduledOrder) (json.RawMessage, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	var out json.RawMessage
	if err := s.api.Post(ctx, "demo/scheduledOrders/save", order, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *AdminService) DeleteScheduledOrder(ctx context.Context, id int64) error {
	return s.api.Get(ctx, fmt.Sprintf("demo/scheduledOrders/delete/%d", id), nil)
}

func (s *AdminService) SearchTests(ctx context.Context, query string, page int) (pagination.Page[domain.OrderPanel], error) {
	return Search[domain.OrderPanel](ctx, s.api, domain.SearchTests, query, page, false)
}

func (s *AdminService) SearchProfiles(ctx context.Context, query string, page int) (pagination.Page[domain.OrderPanel], error) {
	return Search[domain.OrderPanel](ctx, s.api, domain.SearchProfiles, query, page, false)
}

func (s *AdminService) SearchResults(ctx context.Context, query string, page int) (pagination.Page[domain.OrderSetResult], error) {
	return Search[domain.OrderSetResult](ctx, s.api, domain.SearchResults, query, page, false)
}

func (s *AdminService) SearchTdTests(ctx context.Context, query string, page int) (pagination.Page[domain.OrderTdPanel], error) {
	return Search[domain.OrderTdPanel](ctx, s.api, domain.SearchTdTests, query, page, false)
}
