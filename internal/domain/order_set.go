package domain

// OrderSet is a reusable template of panels and expected results.
type OrderSet struct {
	ID       int64            `json:"id,omitempty"`
	Name     string           `json:"name"`
	Panels   []OrderPanel     `json:"panels,omitempty"`
	TdPanels []OrderTdPanel   `json:"tdPanels,omitempty"`
	Results  []OrderSetResult `json:"results,omitempty"`
}

type OrderPanel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type OrderTdPanel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type OrderSetResult struct {
	ID       string `json:"id"`
	Result   string `json:"result"`
	Priority int    `json:"priority"`
}

type OrderProfile struct {
	Name        string      `json:"name"`
	ProfileCode string      `json:"profileCode"`
	TestID      int64       `json:"testId,omitempty"`
	Tests       []OrderTest `json:"tests,omitempty"`
}

type OrderTest struct {
	Name     string `json:"name"`
	HostCode string `json:"hostCode"`
	Result   string `json:"result"`
}

func (s *OrderSet) Validate() error {
	if s.Name == "" {
		return ErrOrderSetNameRequired
	}
	return nil
}

// AddPanel appends p unless a panel with the same id is already selected.
func (s *OrderSet) AddPanel(p OrderPanel) error {
	for _, existing := range s.Panels {
		if existing.ID == p.ID {
			return ErrDuplicatePanel
		}
	}
	s.Panels = append(s.Panels, p)
	return nil
}

func (s *OrderSet) AddTdPanel(p OrderTdPanel) error {
	for _, existing := range s.TdPanels {
		if existing.ID == p.ID {
			return ErrDuplicatePanel
		}
	}
	s.TdPanels = append(s.TdPanels, p)
	return nil
}

func (s *OrderSet) AddResult(r OrderSetResult) error {
	for _, existing := range s.Results {
		if existing.ID == r.ID {
			return ErrDuplicateResult
		}
	}
	s.Results = append(s.Results, r)
	return nil
}

// MergeResults adds the results whose id is not yet present, keeping order.
func (s *OrderSet) MergeResults(results []OrderSetResult) {
	seen := make(map[string]struct{}, len(s.Results))
	for _, r := range s.Results {
		seen[r.ID] = struct{}{}
	}
	for _, r := range results {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		s.Results = append(s.Results, r)
	}
}

// RemovePanel drops the panel at index and returns it.
func (s *OrderSet) RemovePanel(index int) (OrderPanel, error) {
	if index < 0 || index >= len(s.Panels) {
		return OrderPanel{}, ErrPanelNotFound
	}
	p := s.Panels[index]
	s.Panels = append(s.Panels[:index], s.Panels[index+1:]...)
	return p, nil
}

// RemoveResults drops every result whose id is in ids.
func (s *OrderSet) RemoveResults(ids []string) {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := s.Results[:0]
	for _, r := range s.Results {
		if _, ok := drop[r.ID]; !ok {
			kept = append(kept, r)
		}
	}
	s.Results = kept
}
