package sanitizer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"visitscheduler/pkg/model"
)

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "lower case prison code", input: "mdi", want: "MDI"},
		{name: "surrounding whitespace", input: "  b-wi ", want: "B-WI"},
		{name: "inner whitespace dropped", input: "enh anced", want: "ENHANCED"},
		{name: "punctuation removed", input: "std!", want: "STD"},
		{name: "hyphen runs collapse", input: "--a--1-", want: "A-1"},
		{name: "underscore kept", input: "cat_a", want: "CAT_A"},
		{name: "empty", input: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeCode(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, NormalizeCode(got), "must be idempotent")
		})
	}
}

func TestNormalizeID(t *testing.T) {
	assert.Equal(t, "A1234BC", NormalizeID(" a1234 bc "))
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "Monday Morning", NormalizeName("  Monday \t\n Morning "))
	assert.Equal(t, "", NormalizeName(" \t "))
}

func TestNormalizeCodes(t *testing.T) {
	assert.Equal(t, []string{"A", "B"}, NormalizeCodes([]string{"a", " A ", "", "b"}))
	assert.Equal(t, []string{}, NormalizeCodes(nil))
}

func TestNormalizeLocation(t *testing.T) {
	assert.Nil(t, NormalizeLocation(nil))

	got := NormalizeLocation(&model.Location{LevelOneCode: " a ", LevelTwoCode: "1"})
	assert.Equal(t, &model.Location{LevelOneCode: "A", LevelTwoCode: "1"}, got)
}

func TestNormalizeLocations(t *testing.T) {
	in := []model.Location{
		{LevelOneCode: "a"},
		{LevelOneCode: "A "},
		{},
		{LevelOneCode: "b", LevelTwoCode: "2"},
	}
	assert.Equal(t, []model.Location{
		{LevelOneCode: "A"},
		{LevelOneCode: "B", LevelTwoCode: "2"},
	}, NormalizeLocations(in))
}
