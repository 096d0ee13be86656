package model

import "strings"

// Location is a housing location of up to four levels, most specific last.
// An empty level is unspecified and acts as a wildcard when matching.
type Location struct {
	LevelOneCode   string `json:"level_one_code" bson:"level_one_code" validate:"required,max=20"`
	LevelTwoCode   string `json:"level_two_code,omitempty" bson:"level_two_code,omitempty" validate:"omitempty,max=20"`
	LevelThreeCode string `json:"level_three_code,omitempty" bson:"level_three_code,omitempty" validate:"omitempty,max=20"`
	LevelFourCode  string `json:"level_four_code,omitempty" bson:"level_four_code,omitempty" validate:"omitempty,max=20"`
}

func (l Location) Levels() [4]string {
	return [4]string{l.LevelOneCode, l.LevelTwoCode, l.LevelThreeCode, l.LevelFourCode}
}

// HasGap reports whether a level is set below an unset one, as in "A--014".
func (l Location) HasGap() bool {
	unset := false
	for _, lvl := range l.Levels() {
		if lvl == "" {
			unset = true
		} else if unset {
			return true
		}
	}
	return false
}

// ParseLocation splits a dash separated housing code such as "A-2-014".
func ParseLocation(code string) Location {
	var levels [4]string
	for i, part := range strings.SplitN(strings.TrimSpace(code), "-", 4) {
		levels[i] = part
	}
	return Location{
		LevelOneCode:   levels[0],
		LevelTwoCode:   levels[1],
		LevelThreeCode: levels[2],
		LevelFourCode:  levels[3],
	}
}

func (l Location) String() string {
	parts := make([]string, 0, 4)
	for _, lvl := range l.Levels() {
		if lvl == "" {
			lvl = "*"
		}
		parts = append(parts, lvl)
	}
	return strings.TrimRight(strings.Join(parts, "-"), "-*")
}
