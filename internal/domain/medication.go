package domain

import (
	"encoding/json"
	"strconv"
)

type MedicationType int

const (
	MedicationGeneric MedicationType = iota
	MedicationBrand
)

type MedicationChoiceTemplate int

const (
	TemplateCardSR MedicationChoiceTemplate = 1
	TemplateCardRX MedicationChoiceTemplate = 2
	TemplateSAMM   MedicationChoiceTemplate = 3
)

type MedicationSource int

const (
	SourcePrescription    MedicationSource = 1
	SourceSelfReported    MedicationSource = 2
	SourcePrescriptionPRN MedicationSource = 3
)

type ReportTemplate string

const (
	ReportCard ReportTemplate = "R1A"
	ReportSAMM ReportTemplate = "R1P"
)

type Medication struct {
	ID        int64                      `json:"id"`
	Name      string                     `json:"name"`
	Type      MedicationType             `json:"type"`
	Templates []MedicationChoiceTemplate `json:"templates,omitempty"`
	Source    MedicationSource           `json:"source,omitempty"`
	IsMed     string                     `json:"-"`
}

// rawMedication mirrors the catalogue rows: the id may arrive as "ID" (string) or
// "id", and templates as strings or numbers.
type rawMedication struct {
	UpperID   json.RawMessage   `json:"ID"`
	ID        json.RawMessage   `json:"id"`
	Name      string            `json:"name"`
	Source    MedicationSource  `json:"source"`
	Templates []json.RawMessage `json:"templates"`
	IsMed     string            `json:"is_med"`
	Type      *MedicationType   `json:"type"`
}

func (m *Medication) UnmarshalJSON(data []byte) error {
	var raw rawMedication
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	m.ID = flexibleInt(raw.UpperID)
	if m.ID == 0 {
		m.ID = flexibleInt(raw.ID)
	}
	m.Name = raw.Name
	m.Source = raw.Source
	m.IsMed = raw.IsMed
	if raw.Type != nil {
		m.Type = *raw.Type
	}
	m.Templates = m.Templates[:0]
	for _, t := range raw.Templates {
		if v := flexibleInt(t); v != 0 {
			m.Templates = append(m.Templates, MedicationChoiceTemplate(v))
		}
	}
	return nil
}

func (m *Medication) HasTemplate(t MedicationChoiceTemplate) bool {
	for _, candidate := range m.Templates {
		if candidate == t {
			return true
		}
	}
	return false
}

func flexibleInt(raw json.RawMessage) int64 {
	if len(raw) == 0 {
		return 0
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		v, _ := strconv.ParseInt(s, 10, 64)
		return v
	}
	return 0
}

type MedicationSet struct {
	ID       int64          `json:"id,omitempty"`
	Name     string         `json:"name"`
	Template ReportTemplate `json:"template,omitempty"`
	Meds     []Medication   `json:"meds,omitempty"`
	New      bool           `json:"new,omitempty"`
}

// TagMedications stamps each group with its source and concatenates them
// prescriptions first, then self-reported, then PRN.
func TagMedications(rx, sr, prn []Medication) []Medication {
	meds := make([]Medication, 0, len(rx)+len(sr)+len(prn))
	for _, group := range []struct {
		meds   []Medication
		source MedicationSource
	}{
		{rx, SourcePrescription},
		{sr, SourceSelfReported},
		{prn, SourcePrescriptionPRN},
	} {
		for _, med := range group.meds {
			med.Source = group.source
			meds = append(meds, med)
		}
	}
	return meds
}
