package sanitizer

import (
	"regexp"
	"strings"

	"visitscheduler/pkg/model"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var (
	reWhitespace   = regexp.MustCompile(`\s+`)
	reCodeAllowed  = regexp.MustCompile(`[^A-Z0-9_\-]+`)
	reMultiHyphens = regexp.MustCompile(`-+`)
)

func trim(s string) string {
	return strings.TrimSpace(s)
}

func collapseWhitespace(s string) string {
	return reWhitespace.ReplaceAllString(s, " ")
}

func upper(s string) string {
	return strings.ToUpper(s)
}

func dropWhitespace(s string) string {
	return reWhitespace.ReplaceAllString(s, "")
}

func keepCodeChars(s string) string {
	return reCodeAllowed.ReplaceAllString(s, "")
}

func collapseHyphens(s string) string {
	s = reMultiHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// NormalizeCode normalizes prison, category and incentive level codes and
// template references.
func NormalizeCode(input string) string {
	p := Pipeline{
		trim,
		dropWhitespace,
		upper,
		keepCodeChars,
		collapseHyphens,
	}
	return p.Apply(input)
}

// NormalizeID trims and upper-cases prisoner identifiers.
func NormalizeID(input string) string {
	return Pipeline{trim, dropWhitespace, upper}.Apply(input)
}

func NormalizeName(input string) string {
	return Pipeline{trim, collapseWhitespace}.Apply(input)
}

// NormalizeCodes normalizes each code, dropping empties and duplicates while
// keeping first-seen order. The result is never nil.
func NormalizeCodes(codes []string) []string {
	out := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		n := NormalizeCode(code)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// NormalizeLocation normalizes every level. A nil location stays nil.
func NormalizeLocation(loc *model.Location) *model.Location {
	if loc == nil {
		return nil
	}
	return &model.Location{
		LevelOneCode:   NormalizeCode(loc.LevelOneCode),
		LevelTwoCode:   NormalizeCode(loc.LevelTwoCode),
		LevelThreeCode: NormalizeCode(loc.LevelThreeCode),
		LevelFourCode:  NormalizeCode(loc.LevelFourCode),
	}
}

func NormalizeLocations(locs []model.Location) []model.Location {
	out := make([]model.Location, 0, len(locs))
	seen := make(map[model.Location]struct{}, len(locs))
	for i := range locs {
		n := *NormalizeLocation(&locs[i])
		if n == (model.Location{}) {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
