package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/orderdesk/internal/domain"
)

func TestMedicationService_TemplateMergesAndSorts(t *testing.T) {
	api := new(MockAPI)
	svc := NewMedicationService(api)

	api.On("Get", mock.Anything, "meds/generic/list").Return(map[string]any{
		"1": map[string]any{"ID": "1", "name": "warfarin", "templates": []string{"1", "2"}, "is_med": "Y"},
		"2": map[string]any{"ID": "2", "name": "Aspirin", "templates": []string{"1"}, "is_med": "Y"},
		"3": map[string]any{"ID": "3", "name": "Saline", "templates": []string{"1"}, "is_med": "N"},
	}, nil)
	api.On("Get", mock.Anything, "meds/brand/list").Return([]map[string]any{
		{"id": 10, "name": "Coumadin", "templates": []int{1}},
		{"id": 11, "name": "Bayer", "templates": []int{3}},
	}, nil)

	require.NoError(t, svc.Load(context.Background()))

	generics, brands := svc.Counts()
	assert.Equal(t, 2, generics)
	assert.Equal(t, 2, brands)

	meds := svc.Template(domain.TemplateCardSR)
	var names []string
	for _, m := range meds {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"Aspirin", "Coumadin", "warfarin"}, names)
	assert.Equal(t, domain.MedicationBrand, meds[1].Type)
	assert.Equal(t, domain.MedicationGeneric, meds[0].Type)

	assert.Len(t, svc.Template(domain.TemplateSAMM), 1)
}

func TestMedicationService_LoadError(t *testing.T) {
	api := new(MockAPI)
	svc := NewMedicationService(api)

	api.On("Get", mock.Anything, "meds/generic/list").Return(nil, assert.AnError)

	assert.ErrorIs(t, svc.Load(context.Background()), assert.AnError)
	assert.Empty(t, svc.Template(domain.TemplateCardRX))
}
