package model

// PrisonerEligibilitySnapshot is the subset of prisoner data eligibility is
// decided on. Location is nil when the prisoner has no known housing.
type PrisonerEligibilitySnapshot struct {
	PrisonerID     string    `json:"prisoner_id"`
	PrisonCode     string    `json:"prison_code"`
	Location       *Location `json:"location,omitempty"`
	Category       string    `json:"category,omitempty"`
	IncentiveLevel string    `json:"incentive_level,omitempty"`
}
