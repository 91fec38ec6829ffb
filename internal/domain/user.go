package domain

import "regexp"

var crmIDPattern = regexp.MustCompile(`[A-Z0-9]{12}`)

// ValidCRMID reports whether id contains a CRM identifier (twelve upper-case
// alphanumerics).
func ValidCRMID(id string) bool {
	return crmIDPattern.MatchString(id)
}

// TokenBundle is returned by user/token.
type TokenBundle struct {
	Token    string         `json:"token"`
	UserInfo map[string]any `json:"user_info"`
}
