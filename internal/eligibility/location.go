package eligibility

import "visitscheduler/pkg/model"

type LocationMatch int

const (
	NoMatch LocationMatch = iota
	Exact
	// LeftLower means the candidate is more specific than the permitted location.
	LeftLower
	// LeftHigher means the permitted location is more specific than the candidate.
	LeftHigher
)

func (m LocationMatch) String() string {
	switch m {
	case Exact:
		return "EXACT"
	case LeftLower:
		return "LEFT_LOWER"
	case LeftHigher:
		return "LEFT_HIGHER"
	default:
		return "NO_MATCH"
	}
}

// CompareLocations compares a candidate location against a permitted one,
// level by level. Any level specified on both sides with different codes is
// NoMatch. When the permitted side specifies a level the candidate leaves
// open the result is LeftHigher, even if the candidate is more specific at
// another level.
func CompareLocations(permitted, candidate model.Location) LocationMatch {
	p, c := permitted.Levels(), candidate.Levels()
	permittedMore, candidateMore := false, false
	for i := range p {
		switch {
		case p[i] != "" && c[i] != "":
			if p[i] != c[i] {
				return NoMatch
			}
		case p[i] != "":
			permittedMore = true
		case c[i] != "":
			candidateMore = true
		}
	}
	switch {
	case permittedMore:
		return LeftHigher
	case candidateMore:
		return LeftLower
	default:
		return Exact
	}
}

func anyLevelMatch(p, c model.Location) bool {
	return CompareLocations(p, c) != NoMatch
}

func lowerOrEqualMatch(p, c model.Location) bool {
	m := CompareLocations(p, c)
	return m == Exact || m == LeftLower
}

// HasAnyLocationMatch reports whether some candidate is related to some permitted location.
func HasAnyLocationMatch(permitted, candidates []model.Location) bool {
	return AnyMatchFunc(permitted, candidates, anyLevelMatch)
}

// HasAllLocationMatch reports whether every candidate is related to a permitted location.
func HasAllLocationMatch(permitted, candidates []model.Location) bool {
	return AllMatchFunc(permitted, candidates, anyLevelMatch)
}

// HasAllLowerOrEqualLocationMatch reports whether every candidate sits at or
// beneath some permitted location.
func HasAllLowerOrEqualLocationMatch(permitted, candidates []model.Location) bool {
	return AllMatchFunc(permitted, candidates, lowerOrEqualMatch)
}

// LocationEligible applies a template's location groups to a prisoner's
// housing. A template whose groups hold no locations admits everyone, the
// same reading PermittedLocations gives migration checks.
func LocationEligible(tpl *model.SessionTemplate, loc *model.Location) bool {
	permitted := tpl.PermittedLocations()
	if len(permitted) == 0 {
		return true
	}
	if loc == nil {
		return false
	}
	matched := HasAnyLocationMatch(permitted, []model.Location{*loc})
	if tpl.IncludeLocationGroupType {
		return matched
	}
	return !matched
}
