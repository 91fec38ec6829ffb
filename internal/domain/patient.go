package domain

// TestPatient is a synthetic patient used to exercise order flows. Fields beyond
// the identity are kept opaque.
type TestPatient struct {
	ID        int64          `json:"id,omitempty"`
	FirstName string         `json:"first_name,omitempty"`
	LastName  string         `json:"last_name,omitempty"`
	DOB       string         `json:"dob,omitempty"`
	Gender    string         `json:"gender,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}
