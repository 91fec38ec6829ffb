package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/orderdesk/internal/domain"
	"github.com/cloo-solutions/orderdesk/internal/pagination"
)

func TestAdminService_GetOrderSetPanelShapes(t *testing.T) {
	tests := []struct {
		name   string
		panels any
	}{
		{"array", []map[string]any{{"id": "CBC", "name": "Blood count"}, {"id": "LIP", "name": "Lipids"}}},
		{"keyed object", map[string]any{"0": map[string]any{"id": "CBC", "name": "Blood count"}, "1": map[string]any{"id": "LIP", "name": "Lipids"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := new(MockAPI)
			svc := NewAdminService(api)

			api.On("Get", mock.Anything, "demo/orderSets/view/3").Return(map[string]any{
				"id":       3,
				"name":     "Cardiac",
				"panels":   tt.panels,
				"tdPanels": map[string]any{},
			}, nil)

			set, err := svc.GetOrderSet(context.Background(), 3)
			require.NoError(t, err)
			assert.Equal(t, "Cardiac", set.Name)
			assert.Equal(t, []domain.OrderPanel{{ID: "CBC", Name: "Blood count"}, {ID: "LIP", Name: "Lipids"}}, set.Panels)
			assert.Empty(t, set.TdPanels)
		})
	}
}

func TestAdminService_SaveOrderSetRequiresName(t *testing.T) {
	api := new(MockAPI)
	svc := NewAdminService(api)

	_, err := svc.SaveOrderSet(context.Background(), &domain.OrderSet{})
	assert.ErrorIs(t, err, domain.ErrOrderSetNameRequired)
	api.AssertNotCalled(t, "Post", mock.Anything, mock.Anything, mock.Anything)

	set := &domain.OrderSet{Name: "Renal"}
	api.On("Post", mock.Anything, "demo/orderSets/savePanels", set).Return(12, nil).Once()
	out, err := svc.SaveOrderSet(context.Background(), set)
	require.NoError(t, err)
	assert.JSONEq(t, `12`, string(out))
}

func TestAdminService_DeleteUsesGet(t *testing.T) {
	api := new(MockAPI)
	svc := NewAdminService(api)
	ctx := context.Background()

	api.On("Get", mock.Anything, "demo/orderSets/delete/1").Return(true, nil).Once()
	api.On("Get", mock.Anything, "demo/medSets/delete/2").Return(true, nil).Once()
	api.On("Get", mock.Anything, "demo/scheduledOrders/delete/3").Return(true, nil).Once()

	require.NoError(t, svc.DeleteOrderSet(ctx, 1))
	require.NoError(t, svc.DeleteMedSet(ctx, 2))
	require.NoError(t, svc.DeleteScheduledOrder(ctx, 3))
	api.AssertExpectations(t)
}

func TestAdminService_SearchScheduledOrders(t *testing.T) {
	api := new(MockAPI)
	svc := NewAdminService(api)

	q := domain.OrderQuery{SearchBy: "patient", Term: "lee"}
	api.On("Post", mock.Anything, "demo/scheduledOrders/search/2?uncache=1", q).Return(map[string]any{
		"count": 11,
		"list":  []map[string]any{{"id": 40, "period": 2, "day": 15, "hour": 8, "enabled": true}},
	}, nil).Once()

	page, err := svc.SearchScheduledOrders(context.Background(), q, 2, true)
	require.NoError(t, err)
	assert.Equal(t, 11, page.Count)
	require.Len(t, page.List, 1)
	assert.Equal(t, domain.PeriodMonthly, page.List[0].Period)

	_, err = svc.SearchScheduledOrders(context.Background(), q, 0, false)
	assert.ErrorIs(t, err, pagination.ErrInvalidPage)
}

func TestAdminService_SaveScheduledOrderValidates(t *testing.T) {
	api := new(MockAPI)
	svc := NewAdminService(api)

	_, err := svc.SaveScheduledOrder(context.Background(), domain.NewScheduledOrder())
	assert.ErrorIs(t, err, domain.ErrIncompleteOrder)
}

func TestAdminService_SearchTypedDomains(t *testing.T) {
	api := new(MockAPI)
	svc := NewAdminService(api)
	ctx := context.Background()

	api.On("Post", mock.Anything, "demo/search/results/1", "glu").Return(map[string]any{
		"count": 1,
		"list":  []map[string]any{{"id": "GLU", "result": "", "priority": 1}},
	}, nil).Once()
	api.On("Post", mock.Anything, "demo/search/tdTests/1", "tox").Return(map[string]any{
		"count": 0,
		"list":  []map[string]any{},
	}, nil).Once()

	results, err := svc.SearchResults(ctx, "glu", 1)
	require.NoError(t, err)
	assert.Equal(t, "GLU", results.List[0].ID)

	td, err := svc.SearchTdTests(ctx, "tox", 1)
	require.NoError(t, err)
	assert.Empty(t, td.List)
	api.AssertExpectations(t)
}
