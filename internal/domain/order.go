package domain

import "time"

// Order is a laboratory order as returned by the remote API.
type Order struct {
	ID          int64           `json:"id"`
	AccessionID int64           `json:"accessionId,omitempty"`
	SampleID    string          `json:"sampleId,omitempty"`
	Created     *time.Time      `json:"created,omitempty"`
	Status      *OrderStatus    `json:"status,omitempty"`
	Location    *OrderLocation  `json:"location,omitempty"`
	Doctor      *OrderDoctor    `json:"doctor,omitempty"`
	Patient     *OrderPatient   `json:"patient,omitempty"`
	OrderSet    *OrderSet       `json:"orderSet,omitempty"`
	MedSet      *MedicationSet  `json:"medSet,omitempty"`
	Events      []OrderEvent    `json:"events,omitempty"`
	Missing     []MissingResult `json:"missing,omitempty"`
	Received    []OrderResult   `json:"received,omitempty"`
	Validation  []OrderResult   `json:"validation,omitempty"`
	Orders      []OrderPanel    `json:"orders,omitempty"`
}

type OrderStatus struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type OrderLocation struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Template string `json:"template,omitempty"`
}

type OrderDoctor struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type OrderPatient struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type OrderEvent struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Time       *time.Time `json:"time,omitempty"`
	Active     bool       `json:"active,omitempty"`
	ActionName string     `json:"actionName,omitempty"`
	Message    string     `json:"message,omitempty"`
	Skipped    bool       `json:"skipped,omitempty"`
}

// OrderQuery is the structured search used by the orders and scheduled-orders lists.
// It is comparable so that repeated identical queries can be suppressed.
type OrderQuery struct {
	SearchBy   string `json:"searchBy"`
	Term       string `json:"term"`
	ExactMatch bool   `json:"exactMatch"`
}

// DefaultOrderQuery searches by order id with no term.
func DefaultOrderQuery() OrderQuery {
	return OrderQuery{SearchBy: "id"}
}

// DateQuery bounds are formatted YYYY-MM-DD so lexical order is date order.
type DateQuery struct {
	FromDate string `json:"fromDate"`
	ToDate   string `json:"toDate"`
}

func (q DateQuery) Validate() error {
	if q.FromDate == "" || q.ToDate == "" {
		return ErrDateRangeIncomplete
	}
	if q.FromDate > q.ToDate {
		return ErrDateRangeInverted
	}
	return nil
}

type MissingResult struct {
	Code      string `json:"code"`
	HostCode  string `json:"host_code,omitempty"`
	Name      string `json:"name"`
	Result    string `json:"result"`
	Submitted bool   `json:"submitted,omitempty"`
}

type OrderResult struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Result string `json:"result"`
}

// StatusFromEvents returns the latest reached event: events are ordered and only
// those with a timestamp have happened.
func StatusFromEvents(events []OrderEvent) *OrderStatus {
	reached := 0
	for _, e := range events {
		if e.Time != nil {
			reached++
		}
	}
	if reached == 0 {
		return nil
	}
	last := events[reached-1]
	return &OrderStatus{ID: last.ID, Name: last.Name}
}

// Validate checks that an order carries every reference needed to create it.
func (o *Order) Validate() error {
	if o.Location == nil || o.Doctor == nil || o.Patient == nil || o.OrderSet == nil || o.MedSet == nil {
		return ErrIncompleteOrder
	}
	return nil
}

// CreateOrderInput is the payload of demo/actions/create.
type CreateOrderInput struct {
	LocationID int64 `json:"location_id"`
	DoctorID   int64 `json:"doctor_id"`
	PatientID  int64 `json:"patient_id"`
	OrderSetID int64 `json:"order_set_id"`
	MedSetID   int64 `json:"med_set_id"`
}

func (o *Order) CreateInput() (CreateOrderInput, error) {
	if err := o.Validate(); err != nil {
		return CreateOrderInput{}, err
	}
	return CreateOrderInput{
		LocationID: o.Location.ID,
		DoctorID:   o.Doctor.ID,
		PatientID:  o.Patient.ID,
		OrderSetID: o.OrderSet.ID,
		MedSetID:   o.MedSet.ID,
	}, nil
}

// OrderUpdate is the combined payload of demo/order/update/{id}.
type OrderUpdate struct {
	Summary Order        `json:"summary"`
	Events  []OrderEvent `json:"events"`
	Results struct {
		Received   []OrderResult   `json:"received"`
		Missing    []MissingResult `json:"missing"`
		Validation []OrderResult   `json:"validation"`
	} `json:"results"`
	Orders []OrderPanel `json:"orders"`
}

// Merge folds an update into prev. Med set, order set and the missing results the
// user may be editing survive unless the number of missing results changed.
func (u *OrderUpdate) Merge(prev *Order) *Order {
	merged := u.Summary
	merged.MedSet = prev.MedSet
	merged.OrderSet = prev.OrderSet
	merged.Missing = prev.Missing

	merged.Events = u.Events
	merged.Status = StatusFromEvents(u.Events)
	if merged.Missing == nil || len(merged.Missing) != len(u.Results.Missing) {
		merged.Missing = u.Results.Missing
	}
	merged.Validation = u.Results.Validation
	merged.Received = u.Results.Received
	merged.Orders = u.Orders
	return &merged
}
