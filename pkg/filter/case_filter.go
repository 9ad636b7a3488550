// Package filter provides benchmark case selection and classification.
// It decides which cases a run executes and how reports group them.
package filter

import (
	"strconv"
	"strings"
	"sync"
)

// CaseCategory represents the category of a benchmark case.
type CaseCategory int

const (
	// CategoryUnknown indicates the case category is unknown.
	CategoryUnknown CaseCategory = iota
	// CategorySmoke indicates tiny sizes run for correctness rather than timing.
	CategorySmoke
	// CategoryStandard indicates mid-range sizes on random data.
	CategoryStandard
	// CategoryStress indicates sizes large enough to expose memory pressure.
	CategoryStress
	// CategoryAdversarial indicates input shapes chosen to defeat the sorter
	// (presorted, reversed, duplicate-heavy, sawtooth).
	CategoryAdversarial
)

// String returns the string representation of the category.
func (c CaseCategory) String() string {
	switch c {
	case CategorySmoke:
		return "smoke"
	case CategoryStandard:
		return "standard"
	case CategoryStress:
		return "stress"
	case CategoryAdversarial:
		return "adversarial"
	default:
		return "unknown"
	}
}

// CaseFilter selects and classifies benchmark cases.
// It is safe for concurrent use.
type CaseFilter struct {
	mu sync.RWMutex

	// Classification thresholds. Sizes at or below SmokeMaxSize are
	// smoke cases regardless of shape; sizes at or above StressMinSize
	// are stress cases unless the shape is adversarial.
	smokeMaxSize  int
	stressMinSize int

	// Dataset kinds whose shape is adversarial for a merge sort.
	adversarialKinds map[string]bool

	// Selection rules applied to case names.
	includePrefixes []string
	excludeNames    map[string]bool
	excludePrefixes []string
	excludeSuffixes []string
	excludeContains []string

	// Cases hidden from report summary tables.
	summaryExcludedNames    map[string]bool
	summaryExcludedSuffixes []string
	summaryExcludedContains []string

	// Cache for frequently classified cases.
	categoryCache     map[string]CaseCategory
	categoryCacheSize int
}

// NewCaseFilter creates a new CaseFilter with default rules.
func NewCaseFilter() *CaseFilter {
	f := &CaseFilter{
		excludeNames:         make(map[string]bool),
		summaryExcludedNames: make(map[string]bool),
		categoryCache:        make(map[string]CaseCategory),
		categoryCacheSize:    1024,
	}
	f.initDefaults()
	return f
}

func (f *CaseFilter) initDefaults() {
	f.smokeMaxSize = 1 << 10
	f.stressMinSize = 1 << 22

	f.adversarialKinds = map[string]bool{
		"sorted":     true,
		"reversed":   true,
		"sawtooth":   true,
		"duplicates": true,
	}

	// Sizes below 64k are dominated by fixed overhead; summary tables
	// hide them so speedup columns stay meaningful.
	f.summaryExcludedSuffixes = []string{
		"-1k",
		"-4k",
		"-16k",
	}

	f.summaryExcludedContains = []string{
		"-smoke",
	}
}

// Classify returns the category of a case given its dataset kind and size.
// Size wins below the smoke threshold, shape wins next, and the stress
// threshold applies only to non-adversarial shapes.
func (f *CaseFilter) Classify(kind string, size int) CaseCategory {
	if kind == "" || size < 0 {
		return CategoryUnknown
	}

	key := cacheKey(kind, size)

	f.mu.RLock()
	if cat, ok := f.categoryCache[key]; ok {
		f.mu.RUnlock()
		return cat
	}
	f.mu.RUnlock()

	cat := f.classifyUncached(kind, size)

	f.mu.Lock()
	if len(f.categoryCache) < f.categoryCacheSize {
		f.categoryCache[key] = cat
	}
	f.mu.Unlock()

	return cat
}

func (f *CaseFilter) classifyUncached(kind string, size int) CaseCategory {
	f.mu.RLock()
	smokeMax := f.smokeMaxSize
	stressMin := f.stressMinSize
	adversarial := f.adversarialKinds[kind]
	f.mu.RUnlock()

	if size <= smokeMax {
		return CategorySmoke
	}
	if adversarial {
		return CategoryAdversarial
	}
	if size >= stressMin {
		return CategoryStress
	}
	return CategoryStandard
}

// IsSmoke returns true if the case is a smoke case.
func (f *CaseFilter) IsSmoke(kind string, size int) bool {
	return f.Classify(kind, size) == CategorySmoke
}

// IsStress returns true if the case is a stress case.
func (f *CaseFilter) IsStress(kind string, size int) bool {
	return f.Classify(kind, size) == CategoryStress
}

// IsAdversarial returns true if the case uses an adversarial input shape.
func (f *CaseFilter) IsAdversarial(kind string, size int) bool {
	return f.Classify(kind, size) == CategoryAdversarial
}

// Match returns true if the named case passes the selection rules.
// Exclusions win over inclusions; an empty include list admits every
// case that no exclusion rejects.
func (f *CaseFilter) Match(name string) bool {
	if name == "" {
		return false
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.excludeNames[name] {
		return false
	}
	for _, prefix := range f.excludePrefixes {
		if strings.HasPrefix(name, prefix) {
			return false
		}
	}
	for _, suffix := range f.excludeSuffixes {
		if strings.HasSuffix(name, suffix) {
			return false
		}
	}
	for _, substr := range f.excludeContains {
		if strings.Contains(name, substr) {
			return false
		}
	}

	if len(f.includePrefixes) == 0 {
		return true
	}
	for _, prefix := range f.includePrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// ShouldExcludeFromSummary returns true if the named case should be
// hidden from report summary tables.
func (f *CaseFilter) ShouldExcludeFromSummary(name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.summaryExcludedNames[name] {
		return true
	}
	for _, suffix := range f.summaryExcludedSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	for _, substr := range f.summaryExcludedContains {
		if strings.Contains(name, substr) {
			return true
		}
	}
	return false
}

// AddIncludePrefix restricts selection to cases whose names match one of
// the added prefixes.
func (f *CaseFilter) AddIncludePrefix(prefix string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, p := range f.includePrefixes {
		if p == prefix {
			return
		}
	}
	f.includePrefixes = append(f.includePrefixes, prefix)
}

// AddIncludePrefixes adds multiple include prefixes.
func (f *CaseFilter) AddIncludePrefixes(prefixes []string) {
	for _, prefix := range prefixes {
		f.AddIncludePrefix(prefix)
	}
}

// IncludePrefixes returns the current list of include prefixes.
func (f *CaseFilter) IncludePrefixes() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	result := make([]string, len(f.includePrefixes))
	copy(result, f.includePrefixes)
	return result
}

// AddExcludeName excludes a case by exact name.
func (f *CaseFilter) AddExcludeName(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.excludeNames[name] = true
}

// AddExcludePrefix excludes cases whose names start with the prefix.
func (f *CaseFilter) AddExcludePrefix(prefix string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.excludePrefixes = append(f.excludePrefixes, prefix)
}

// AddExcludeSuffix excludes cases whose names end with the suffix.
func (f *CaseFilter) AddExcludeSuffix(suffix string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.excludeSuffixes = append(f.excludeSuffixes, suffix)
}

// AddExcludeContains excludes cases whose names contain the substring.
func (f *CaseFilter) AddExcludeContains(substr string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.excludeContains = append(f.excludeContains, substr)
}

// AddSummaryExcludedName hides a case from summary tables by exact name.
func (f *CaseFilter) AddSummaryExcludedName(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.summaryExcludedNames[name] = true
}

// AddAdversarialKind marks a dataset kind as adversarial.
// Registering a new generator kind calls this when its shape is hostile
// to a merge sort.
func (f *CaseFilter) AddAdversarialKind(kind string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.adversarialKinds[kind] = true
	f.categoryCache = make(map[string]CaseCategory)
}

// SetSmokeMaxSize sets the size at or below which cases are smoke cases.
func (f *CaseFilter) SetSmokeMaxSize(size int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.smokeMaxSize = size
	f.categoryCache = make(map[string]CaseCategory)
}

// SetStressMinSize sets the size at or above which cases are stress cases.
func (f *CaseFilter) SetStressMinSize(size int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stressMinSize = size
	f.categoryCache = make(map[string]CaseCategory)
}

// ClearCache clears the classification cache.
func (f *CaseFilter) ClearCache() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.categoryCache = make(map[string]CaseCategory)
}

// CacheStats returns cache statistics.
func (f *CaseFilter) CacheStats() (size int, maxSize int) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return len(f.categoryCache), f.categoryCacheSize
}

// SetCacheSize sets the maximum cache size.
func (f *CaseFilter) SetCacheSize(size int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.categoryCacheSize = size
	if len(f.categoryCache) > size {
		f.categoryCache = make(map[string]CaseCategory)
	}
}

func cacheKey(kind string, size int) string {
	return kind + "/" + strconv.Itoa(size)
}

// DefaultFilter is the default global filter instance.
var DefaultFilter = NewCaseFilter()

// Classify classifies a case using the default filter.
func Classify(kind string, size int) CaseCategory {
	return DefaultFilter.Classify(kind, size)
}

// Match checks a case name against the default filter.
func Match(name string) bool {
	return DefaultFilter.Match(name)
}

// IsSmoke checks if a case is a smoke case using the default filter.
func IsSmoke(kind string, size int) bool {
	return DefaultFilter.IsSmoke(kind, size)
}

// IsAdversarial checks if a case is adversarial using the default filter.
func IsAdversarial(kind string, size int) bool {
	return DefaultFilter.IsAdversarial(kind, size)
}

// ShouldExcludeFromSummary checks summary exclusion using the default filter.
func ShouldExcludeFromSummary(name string) bool {
	return DefaultFilter.ShouldExcludeFromSummary(name)
}
