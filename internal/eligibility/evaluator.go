package eligibility

import "visitscheduler/pkg/model"

type Dimension string

const (
	DimensionNone      Dimension = ""
	DimensionLocation  Dimension = "location"
	DimensionCategory  Dimension = "category"
	DimensionIncentive Dimension = "incentive_level"
)

type Decision struct {
	Eligible bool
	Failed   Dimension
}

// Evaluate checks location, then category, then incentive level and stops at
// the first dimension that rejects. A nil snapshot passes only dimensions the
// template leaves unrestricted.
func Evaluate(tpl *model.SessionTemplate, snapshot *model.PrisonerEligibilitySnapshot) Decision {
	var (
		loc       *model.Location
		category  string
		incentive string
	)
	if snapshot != nil {
		loc = snapshot.Location
		category = snapshot.Category
		incentive = snapshot.IncentiveLevel
	}

	if !LocationEligible(tpl, loc) {
		return Decision{Failed: DimensionLocation}
	}
	if !CategoryEligible(tpl.PermittedCategories(), category) {
		return Decision{Failed: DimensionCategory}
	}
	if !IncentiveEligible(tpl.PermittedIncentiveLevels(), incentive) {
		return Decision{Failed: DimensionIncentive}
	}
	return Decision{Eligible: true}
}

func IsEligible(tpl *model.SessionTemplate, snapshot *model.PrisonerEligibilitySnapshot) bool {
	return Evaluate(tpl, snapshot).Eligible
}

// EligibleTemplates filters templates down to those the snapshot is eligible for.
func EligibleTemplates(templates []*model.SessionTemplate, snapshot *model.PrisonerEligibilitySnapshot) []*model.SessionTemplate {
	out := make([]*model.SessionTemplate, 0, len(templates))
	for _, tpl := range templates {
		if IsEligible(tpl, snapshot) {
			out = append(out, tpl)
		}
	}
	return out
}
