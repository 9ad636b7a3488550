package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindingBuilder(t *testing.T) {
	finding := NewFindingBuilder().
		WithRunUUID("run-9").
		WithStrategy("parallel").
		WithType("speedup_saturation").
		WithSeverity(SeverityWarn).
		WithMessage("speedup flat beyond p=4").
		WithCase("random-1m").
		WithDetails(map[string]float64{"p4": 3.1, "p8": 3.2}).
		Build()

	assert.Equal(t, "run-9", finding.RunUUID)
	assert.Equal(t, "parallel", finding.Strategy)
	assert.Equal(t, "speedup_saturation", finding.Type)
	assert.Equal(t, SeverityWarn, finding.Severity)
	assert.Equal(t, "random-1m", finding.CaseName)
	assert.False(t, finding.IsEmpty())
	assert.False(t, finding.CreatedAt.IsZero())

	var details map[string]float64
	require.NoError(t, json.Unmarshal(finding.Details, &details))
	assert.Equal(t, 3.2, details["p8"])
}

func TestFindingBuilderDefaults(t *testing.T) {
	finding := NewFindingBuilder().Build()

	assert.Equal(t, SeverityInfo, finding.Severity)
	assert.True(t, finding.IsEmpty())
	assert.Nil(t, finding.Details)
}

func TestFindingCategory(t *testing.T) {
	tests := []struct {
		findingType string
		want        string
	}{
		{"speedup_saturation", "Timing"},
		{"timing_variance", "Timing"},
		{"small_input_overhead", "Timing"},
		{"alloc_regression", "Memory"},
		{"memory_pressure", "Memory"},
		{"goroutine_bound_exceeded", "Concurrency"},
		{"depth_budget_unused", "Concurrency"},
		{"verify_failed", "Correctness"},
		{"something_else", "Other"},
	}

	for _, tt := range tests {
		t.Run(tt.findingType, func(t *testing.T) {
			f := Finding{Type: tt.findingType}
			assert.Equal(t, tt.want, f.Category())
		})
	}
}

func TestSuiteFindingsGrouping(t *testing.T) {
	suite := NewSuiteFindings()

	suite.AddFindingGroup("Timing", FindingGroup{Findings: []Finding{{Message: "a"}}})
	suite.AddFindingGroup("Memory", FindingGroup{Findings: []Finding{{Message: "b"}}})
	suite.AddFindingGroup("Concurrency", FindingGroup{Findings: []Finding{{Message: "c"}}})
	suite.AddFindingGroup("Correctness", FindingGroup{Findings: []Finding{{Message: "d"}}})
	suite.AddFindingGroup("Nonsense", FindingGroup{Findings: []Finding{{Message: "e"}}})

	assert.Len(t, suite.Timing, 1)
	assert.Len(t, suite.Memory, 1)
	assert.Len(t, suite.Concurrency, 1)
	assert.Len(t, suite.Correctness, 1)
}
