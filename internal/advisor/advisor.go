// Package advisor derives findings from benchmark results: places where
// the parallel sort underperforms, over-allocates, or breaks its fork
// bound.
package advisor

import (
	"fmt"
	"time"

	"github.com/sortbench/internal/benchmark"
	"github.com/sortbench/internal/dataset"
	"github.com/sortbench/pkg/filter"
	"github.com/sortbench/pkg/mergesort"
	"github.com/sortbench/pkg/model"
)

// Default rule thresholds.
const (
	// saturationFraction of the parallel bound a speedup must reach
	// before the saturation rule stays quiet.
	saturationFraction = 0.45

	// noGainThreshold is the speedup under which presorted input is
	// considered to gain nothing from parallelism.
	noGainThreshold = 1.05

	// allocRatioThreshold is the allocation multiple over the baseline
	// that counts as a regression.
	allocRatioThreshold = 1.5

	// goroutineSlack allows for runtime and harness goroutines on top
	// of the 2^depth fork bound.
	goroutineSlack = 16

	// smallSizeCutoff is the size at or below which a slower parallel
	// sort is reported as expected fork overhead.
	smallSizeCutoff = 1 << 16
)

// Advisor generates findings from a completed run.
type Advisor struct {
	rules []Rule
}

// Rule represents one finding rule.
type Rule struct {
	Type        string
	Name        string
	Description string
	Threshold   float64
	Check       RuleCheckFunc
}

// RuleCheckFunc checks one rule against a run.
type RuleCheckFunc func(ctx *RuleContext) []model.Finding

// RuleContext provides context for rule checking. Baseline names the
// strategy speedups were computed against; Parallelism and DepthBudget
// mirror the runner config the results came from.
type RuleContext struct {
	Result      *model.RunResult
	Baseline    string
	Parallelism int
	DepthBudget int
}

// NewAdvisor creates an Advisor with the default rules.
func NewAdvisor() *Advisor {
	return &Advisor{rules: defaultRules()}
}

// NewAdvisorWithRules creates an Advisor with custom rules.
func NewAdvisorWithRules(rules []Rule) *Advisor {
	return &Advisor{rules: rules}
}

// NewAdvisorWithStoredRules appends rules loaded from the rule table to
// the defaults. The daemon refreshes these periodically.
func NewAdvisorWithStoredRules(stored []model.FindingRule) *Advisor {
	return &Advisor{rules: append(defaultRules(), RulesFromModels(stored)...)}
}

// Advise runs every rule against the context and collects findings.
func (a *Advisor) Advise(ctx *RuleContext) []model.Finding {
	findings := make([]model.Finding, 0)
	if ctx == nil || ctx.Result == nil {
		return findings
	}

	for _, rule := range a.rules {
		if rule.Check != nil {
			findings = append(findings, rule.Check(ctx)...)
		}
	}
	return findings
}

// defaultRules returns the built-in rule set.
func defaultRules() []Rule {
	return []Rule{
		{
			Type:        "speedup_saturation",
			Name:        "speedup_saturation",
			Description: "Parallel speedup far below the parallelism bound",
			Threshold:   saturationFraction,
			Check:       checkSpeedupSaturation,
		},
		{
			Type:        "speedup_no_gain_presorted",
			Name:        "no_gain_on_presorted",
			Description: "Presorted input gains nothing from forking",
			Threshold:   noGainThreshold,
			Check:       checkNoGainOnPresorted,
		},
		{
			Type:        "alloc_regression",
			Name:        "alloc_regression",
			Description: "Strategy allocates a multiple of the baseline",
			Threshold:   allocRatioThreshold,
			Check:       checkAllocRegression,
		},
		{
			Type:        "goroutine_bound_exceeded",
			Name:        "goroutine_bound",
			Description: "Goroutine peak exceeds the 2^depth fork bound",
			Threshold:   goroutineSlack,
			Check:       checkGoroutineBound,
		},
		{
			Type:        "small_input_overhead",
			Name:        "sequential_faster_below_size",
			Description: "Parallel sort slower than baseline on small inputs",
			Threshold:   smallSizeCutoff,
			Check:       checkSmallInputOverhead,
		},
	}
}

// forkDepth returns the fork depth the run effectively used.
func forkDepth(ctx *RuleContext) int {
	if ctx.DepthBudget > 0 {
		return ctx.DepthBudget
	}
	p := ctx.Parallelism
	if p <= 0 {
		p = ctx.Result.Machine.GOMAXPROCS
	}
	return mergesort.DepthBudget(p)
}

// parallelBound returns the speedup ceiling for the run: no more
// concurrent tasks than 2^depth, no more useful ones than CPUs.
func parallelBound(ctx *RuleContext) int {
	p := ctx.Parallelism
	if p <= 0 {
		p = ctx.Result.Machine.GOMAXPROCS
	}
	if p < 1 {
		p = 1
	}
	bound := 1 << forkDepth(ctx)
	if bound > p {
		bound = p
	}
	return bound
}

func checkSpeedupSaturation(ctx *RuleContext) []model.Finding {
	findings := make([]model.Finding, 0)

	sr, ok := ctx.Result.Result[benchmark.StrategyParallel]
	if !ok {
		return findings
	}
	bound := parallelBound(ctx)
	if bound < 2 {
		return findings
	}

	for _, c := range sr.Cases {
		category := filter.Classify(c.Kind, c.Size)
		if category != filter.CategoryStandard && category != filter.CategoryStress {
			continue
		}
		// Small inputs are the small-input rule's business.
		if c.Size <= smallSizeCutoff {
			continue
		}
		if c.Speedup <= 0 || c.Speedup >= saturationFraction*float64(bound) {
			continue
		}
		findings = append(findings, model.NewFindingBuilder().
			WithType("speedup_saturation").
			WithSeverity(model.SeverityWarn).
			WithStrategy(benchmark.StrategyParallel).
			WithCase(c.Case).
			WithMessage(fmt.Sprintf(
				"case %s: speedup %.2fx is under %.0f%% of the parallel bound %d, deeper fork budgets are unlikely to help",
				c.Case, c.Speedup, saturationFraction*100, bound)).
			WithDetails(map[string]interface{}{
				"speedup": c.Speedup,
				"bound":   bound,
			}).
			Build())
	}
	return findings
}

func checkNoGainOnPresorted(ctx *RuleContext) []model.Finding {
	findings := make([]model.Finding, 0)

	sr, ok := ctx.Result.Result[benchmark.StrategyParallel]
	if !ok {
		return findings
	}

	for _, c := range sr.Cases {
		if c.Kind != dataset.KindSorted {
			continue
		}
		if c.Speedup <= 0 || c.Speedup >= noGainThreshold {
			continue
		}
		findings = append(findings, model.NewFindingBuilder().
			WithType("speedup_no_gain_presorted").
			WithSeverity(model.SeverityInfo).
			WithStrategy(benchmark.StrategyParallel).
			WithCase(c.Case).
			WithMessage(fmt.Sprintf(
				"case %s: parallel sort gains only %.2fx over %s on presorted input",
				c.Case, c.Speedup, ctx.Baseline)).
			Build())
	}
	return findings
}

func checkAllocRegression(ctx *RuleContext) []model.Finding {
	findings := make([]model.Finding, 0)

	base, ok := ctx.Result.Result[ctx.Baseline]
	if !ok {
		return findings
	}
	baseAllocs := make(map[string]int64, len(base.Cases))
	for _, c := range base.Cases {
		if c.AllocBytes > 0 {
			baseAllocs[c.Case] = c.AllocBytes
		}
	}

	for name, sr := range ctx.Result.Result {
		if name == ctx.Baseline {
			continue
		}
		for _, c := range sr.Cases {
			baseBytes, ok := baseAllocs[c.Case]
			if !ok {
				continue
			}
			ratio := float64(c.AllocBytes) / float64(baseBytes)
			if ratio <= allocRatioThreshold {
				continue
			}
			findings = append(findings, model.NewFindingBuilder().
				WithType("alloc_regression").
				WithSeverity(model.SeverityWarn).
				WithStrategy(name).
				WithCase(c.Case).
				WithMessage(fmt.Sprintf(
					"case %s: strategy %s allocates %d bytes per trial, %.1fx the %s baseline",
					c.Case, name, c.AllocBytes, ratio, ctx.Baseline)).
				WithDetails(map[string]interface{}{
					"alloc_bytes":    c.AllocBytes,
					"baseline_bytes": baseBytes,
				}).
				Build())
		}
	}
	return findings
}

func checkGoroutineBound(ctx *RuleContext) []model.Finding {
	findings := make([]model.Finding, 0)

	sr, ok := ctx.Result.Result[benchmark.StrategyParallel]
	if !ok {
		return findings
	}
	bound := (1 << forkDepth(ctx)) + goroutineSlack

	for _, c := range sr.Cases {
		if c.GoroutinePeak <= bound {
			continue
		}
		findings = append(findings, model.NewFindingBuilder().
			WithType("goroutine_bound_exceeded").
			WithSeverity(model.SeverityCritical).
			WithStrategy(benchmark.StrategyParallel).
			WithCase(c.Case).
			WithMessage(fmt.Sprintf(
				"case %s: goroutine peak %d exceeds the 2^%d fork bound (%d with slack)",
				c.Case, c.GoroutinePeak, forkDepth(ctx), bound)).
			Build())
	}
	return findings
}

func checkSmallInputOverhead(ctx *RuleContext) []model.Finding {
	findings := make([]model.Finding, 0)

	sr, ok := ctx.Result.Result[benchmark.StrategyParallel]
	if !ok {
		return findings
	}

	for _, c := range sr.Cases {
		if c.Size > smallSizeCutoff {
			continue
		}
		if c.Speedup <= 0 || c.Speedup >= 1.0 {
			continue
		}
		findings = append(findings, model.NewFindingBuilder().
			WithType("small_input_overhead").
			WithSeverity(model.SeverityInfo).
			WithStrategy(benchmark.StrategyParallel).
			WithCase(c.Case).
			WithMessage(fmt.Sprintf(
				"case %s: parallel sort is slower than %s (%.2fx) at %d elements, fork overhead dominates below this size",
				c.Case, ctx.Baseline, c.Speedup, c.Size)).
			Build())
	}
	return findings
}

// RulesFromModels converts stored threshold rules into checkable rules.
// A stored rule fires when the targeted metric crosses its threshold on
// any case of the targeted strategy (or all strategies when TargetType
// is empty).
func RulesFromModels(stored []model.FindingRule) []Rule {
	rules := make([]Rule, 0, len(stored))
	for _, r := range stored {
		rules = append(rules, ruleFromModel(r))
	}
	return rules
}

func ruleFromModel(stored model.FindingRule) Rule {
	return Rule{
		Type:        stored.Type,
		Name:        stored.Type,
		Description: stored.Message,
		Threshold:   stored.Threshold,
		Check: func(ctx *RuleContext) []model.Finding {
			findings := make([]model.Finding, 0)
			for name, sr := range ctx.Result.Result {
				if stored.TargetType != "" && stored.TargetType != name {
					continue
				}
				for _, c := range sr.Cases {
					value, ok := caseMetric(c, stored.Target)
					if !ok || !thresholdCrossed(value, stored.Operation, stored.Threshold) {
						continue
					}
					findings = append(findings, model.NewFindingBuilder().
						WithType(stored.Type).
						WithSeverity(model.SeverityWarn).
						WithStrategy(name).
						WithCase(c.Case).
						WithMessage(fmt.Sprintf("%s (case %s: %s %.2f, threshold %s %.2f)",
							stored.Message, c.Case, stored.Target, value, stored.Operation, stored.Threshold)).
						Build())
				}
			}
			return findings
		},
	}
}

// caseMetric extracts the metric a stored rule targets.
func caseMetric(c model.CaseResult, target string) (float64, bool) {
	switch target {
	case "speedup":
		return c.Speedup, c.Speedup > 0
	case "mean_ms":
		return float64(c.Timing.Mean) / float64(time.Millisecond), c.Timing.Mean > 0
	case "p95_ms":
		return float64(c.Timing.P95) / float64(time.Millisecond), c.Timing.P95 > 0
	case "alloc_bytes":
		return float64(c.AllocBytes), true
	case "allocs":
		return float64(c.Allocs), true
	case "goroutine_peak":
		return float64(c.GoroutinePeak), true
	default:
		return 0, false
	}
}

func thresholdCrossed(value float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return value > threshold
	case ">=":
		return value >= threshold
	case "<":
		return value < threshold
	case "<=":
		return value <= threshold
	default:
		return false
	}
}
