package domain

type ScheduledOrderPeriod int

const (
	PeriodWeekly  ScheduledOrderPeriod = 1
	PeriodMonthly ScheduledOrderPeriod = 2
)

func (p ScheduledOrderPeriod) String() string {
	switch p {
	case PeriodWeekly:
		return "weekly"
	case PeriodMonthly:
		return "monthly"
	default:
		return "unknown"
	}
}

// ScheduledOrder creates an order on a recurring weekly or monthly slot.
type ScheduledOrder struct {
	ID       int64                `json:"id,omitempty"`
	Location *OrderLocation       `json:"location,omitempty"`
	Doctor   *OrderDoctor         `json:"doctor,omitempty"`
	Patient  *OrderPatient        `json:"patient,omitempty"`
	OrderSet *OrderSet            `json:"orderSet,omitempty"`
	MedSet   *MedicationSet       `json:"medSet,omitempty"`
	Period   ScheduledOrderPeriod `json:"period"`
	Day      int                  `json:"day"`
	Hour     int                  `json:"hour"`
	Enabled  bool                 `json:"enabled"`
}

// NewScheduledOrder returns a disabled weekly schedule.
func NewScheduledOrder() *ScheduledOrder {
	return &ScheduledOrder{Period: PeriodWeekly}
}

func (s *ScheduledOrder) Validate() error {
	if s.Location == nil || s.Doctor == nil || s.Patient == nil || s.OrderSet == nil || s.MedSet == nil {
		return ErrIncompleteOrder
	}
	if s.Period != PeriodWeekly && s.Period != PeriodMonthly {
		return NewDomainError(ErrCodeValidation, "period must be weekly or monthly")
	}
	if s.Hour < 0 || s.Hour > 23 {
		return NewDomainError(ErrCodeValidation, "hour must be between 0 and 23")
	}
	return nil
}
