package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cloo-solutions/orderdesk/internal/domain"
)

// MedicationService holds the generic and brand catalogues.
type MedicationService struct {
	api API

	mu       sync.RWMutex
	generics []domain.Medication
	brands   []domain.Medication
}

func NewMedicationService(api API) *MedicationService {
	return &MedicationService{api: api}
}

// Load fetches both catalogues. Generic entries that are not medications
// (is_med other than "Y") are skipped.
func (s *MedicationService) Load(ctx context.Context) error {
	generics, err := s.fetch(ctx, "meds/generic/list", domain.MedicationGeneric)
	if err != nil {
		return err
	}
	brands, err := s.fetch(ctx, "meds/brand/list", domain.MedicationBrand)
	if err != nil {
		return err
	}

	filtered := generics[:0]
	for _, med := range generics {
		if med.IsMed == "Y" {
			filtered = append(filtered, med)
		}
	}

	s.mu.Lock()
	s.generics = filtered
	s.brands = brands
	s.mu.Unlock()
	return nil
}

func (s *MedicationService) fetch(ctx context.Context, path string, typ domain.MedicationType) ([]domain.Medication, error) {
	var raw json.RawMessage
	if err := s.api.Get(ctx, path, &raw); err != nil {
		return nil, err
	}
	meds, err := decodeList[domain.Medication](raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	for i := range meds {
		meds[i].Type = typ
	}
	return meds, nil
}

// Template returns the generics then brands offered for t, sorted by name
// ignoring case.
func (s *MedicationService) Template(t domain.MedicationChoiceTemplate) []domain.Medication {
	s.mu.RLock()
	var meds []domain.Medication
	for _, group := range [][]domain.Medication{s.generics, s.brands} {
		for _, med := range group {
			if med.HasTemplate(t) {
				meds = append(meds, med)
			}
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(meds, func(i, j int) bool {
		return strings.ToLower(meds[i].Name) < strings.ToLower(meds[j].Name)
	})
	return meds
}

func (s *MedicationService) Counts() (generics, brands int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.generics), len(s.brands)
}
