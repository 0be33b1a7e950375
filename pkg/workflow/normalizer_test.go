package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "plain name", raw: "analyzing_problem", want: "analyzing_problem"},
		{name: "trailing index stripped", raw: "analyzing_problem_1", want: "analyzing_problem"},
		{name: "higher index stripped", raw: "analyzing_problem_12", want: "analyzing_problem"},
		{name: "lowercased", raw: "Check_Complexity", want: "check_complexity"},
		{name: "invalid chars stripped", raw: "step-a!", want: "stepa"},
		{name: "spaces stripped", raw: "resolve testcases", want: "resolvetestcases"},
		{name: "index only strips last suffix", raw: "phase_2_fix_3", want: "phase_2_fix"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw))
		})
	}
}

func TestTitleOf(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "analyzing_problem", want: "Analyzing Problem"},
		{raw: "analyzing_problem_2", want: "Analyzing Problem"},
		{raw: "check_complexity", want: "Check Complexity"},
		{raw: "done_checking", want: "Done Checking"},
		{raw: "fix", want: "Fix"},
		{raw: "étape_finale", want: "Étape Finale"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TitleOf(tt.raw))
	}
}

func TestIsFullCode(t *testing.T) {
	assert.True(t, IsFullCode("full_code"))
	assert.True(t, IsFullCode("Full Code"))
	assert.True(t, IsFullCode("FULL_CODE"))
	assert.True(t, IsFullCode("  full code  "))
	assert.False(t, IsFullCode("full_code_review"))
	assert.False(t, IsFullCode("analyzing_problem"))
}
