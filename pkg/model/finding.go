package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Finding represents an observation the advisor derived from a run.
type Finding struct {
	ID        int64           `json:"id,omitempty" db:"id"`
	RunUUID   string          `json:"rid" db:"rid"`
	Strategy  string          `json:"strategy,omitempty" db:"strategy"`
	Type      string          `json:"type,omitempty"`
	Severity  string          `json:"severity,omitempty"`
	Message   string          `json:"message" db:"message"`
	CaseName  string          `json:"case,omitempty" db:"case_name"`
	Details   json.RawMessage `json:"details,omitempty" db:"details"`
	CreatedAt time.Time       `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at,omitempty" db:"updated_at"`
}

// Finding severities.
const (
	SeverityInfo     = "info"
	SeverityWarn     = "warn"
	SeverityCritical = "critical"
)

// FindingRule represents a threshold rule for generating findings.
type FindingRule struct {
	ID         int64   `json:"id" db:"id"`
	Type       string  `json:"type" db:"type"`
	Operation  string  `json:"operation" db:"operation"`
	Target     string  `json:"target" db:"target"`
	TargetType string  `json:"target_type" db:"target_type"`
	Threshold  float64 `json:"threshold" db:"threshold"`
	Message    string  `json:"message" db:"message"`
}

// FindingBuilder helps build findings with a fluent interface.
type FindingBuilder struct {
	finding Finding
}

// NewFindingBuilder creates a new FindingBuilder.
func NewFindingBuilder() *FindingBuilder {
	return &FindingBuilder{
		finding: Finding{
			Severity:  SeverityInfo,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		},
	}
}

// WithRunUUID sets the run UUID.
func (b *FindingBuilder) WithRunUUID(runUUID string) *FindingBuilder {
	b.finding.RunUUID = runUUID
	return b
}

// WithStrategy sets the strategy name.
func (b *FindingBuilder) WithStrategy(strategy string) *FindingBuilder {
	b.finding.Strategy = strategy
	return b
}

// WithType sets the finding type.
func (b *FindingBuilder) WithType(findingType string) *FindingBuilder {
	b.finding.Type = findingType
	return b
}

// WithSeverity sets the severity.
func (b *FindingBuilder) WithSeverity(severity string) *FindingBuilder {
	b.finding.Severity = severity
	return b
}

// WithMessage sets the finding message.
func (b *FindingBuilder) WithMessage(message string) *FindingBuilder {
	b.finding.Message = message
	return b
}

// WithCase sets the case name.
func (b *FindingBuilder) WithCase(caseName string) *FindingBuilder {
	b.finding.CaseName = caseName
	return b
}

// WithDetails marshals and attaches structured details.
func (b *FindingBuilder) WithDetails(details interface{}) *FindingBuilder {
	if details != nil {
		data, err := json.Marshal(details)
		if err == nil {
			b.finding.Details = data
		}
	}
	return b
}

// Build returns the built Finding.
func (b *FindingBuilder) Build() Finding {
	return b.finding
}

// IsEmpty returns true if the finding message is empty.
func (f *Finding) IsEmpty() bool {
	return f.Message == ""
}

// Category maps the finding type to a report category.
func (f *Finding) Category() string {
	switch {
	case strings.HasPrefix(f.Type, "speedup"), strings.HasPrefix(f.Type, "timing"), strings.HasPrefix(f.Type, "small_input"):
		return "Timing"
	case strings.HasPrefix(f.Type, "alloc"), strings.HasPrefix(f.Type, "memory"):
		return "Memory"
	case strings.HasPrefix(f.Type, "goroutine"), strings.HasPrefix(f.Type, "depth"):
		return "Concurrency"
	case strings.HasPrefix(f.Type, "verify"):
		return "Correctness"
	default:
		return "Other"
	}
}

// SuiteFindings holds findings grouped by category for suite jobs.
type SuiteFindings struct {
	Timing      []FindingGroup `json:"Timing"`
	Memory      []FindingGroup `json:"Memory"`
	Concurrency []FindingGroup `json:"Concurrency"`
	Correctness []FindingGroup `json:"Correctness"`
}

// FindingGroup represents the findings from one strategy.
type FindingGroup struct {
	Findings []Finding `json:"findings"`
}

// NewSuiteFindings creates a new SuiteFindings instance.
func NewSuiteFindings() *SuiteFindings {
	return &SuiteFindings{
		Timing:      make([]FindingGroup, 0),
		Memory:      make([]FindingGroup, 0),
		Concurrency: make([]FindingGroup, 0),
		Correctness: make([]FindingGroup, 0),
	}
}

// AddFindingGroup adds a finding group to the appropriate category.
func (s *SuiteFindings) AddFindingGroup(category string, group FindingGroup) {
	switch category {
	case "Timing":
		s.Timing = append(s.Timing, group)
	case "Memory":
		s.Memory = append(s.Memory, group)
	case "Concurrency":
		s.Concurrency = append(s.Concurrency, group)
	case "Correctness":
		s.Correctness = append(s.Correctness, group)
	}
}
