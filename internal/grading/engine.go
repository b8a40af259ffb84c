package grading

import (
	"github.com/mind-engage/pcbuild-assess/internal/assessment"
)

// Outcome tags a Result.
type Outcome string

const (
	Computed              Outcome = "computed"
	RequiresManualGrading Outcome = "requires_manual_grading"
)

// Result is the outcome of scoring one submission.
type Result struct {
	Outcome Outcome  `json:"outcome"`
	PerItem []bool   `json:"perItem,omitempty"` // Computed only
	Total   int      `json:"total"`
	Max     int      `json:"max"`
	Notes   []string `json:"notes,omitempty"` // advisory for the grader
}

// Strategy scores every submission of one assessment type. Implementations
// must be pure: same inputs, same Result.
type Strategy interface {
	Score(a assessment.Assessment, sub assessment.Submission) Result
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(a assessment.Assessment, sub assessment.Submission) Result

func (f StrategyFunc) Score(a assessment.Assessment, sub assessment.Submission) Result {
	return f(a, sub)
}

// Grader routes by assessment type to the correct Strategy.
type Grader interface {
	Score(a assessment.Assessment, sub assessment.Submission) Result
}

type defaultGrader struct {
	strategies map[assessment.Type]Strategy
}

func (g *defaultGrader) Score(a assessment.Assessment, sub assessment.Submission) Result {
	s, ok := g.strategies[a.Type]
	if !ok {
		return Result{Outcome: RequiresManualGrading, Max: len(a.Items), Notes: []string{"no strategy available"}}
	}
	return s.Score(a, sub)
}

type Option func(*config)

type config struct {
	overrides map[assessment.Type]Strategy
}

// WithStrategy replaces the built-in strategy for one type.
func WithStrategy(t assessment.Type, s Strategy) Option {
	return func(c *config) { c.overrides[t] = s }
}

// NewDefaultGrader installs built-in strategies.
func NewDefaultGrader(opts ...Option) Grader {
	cfg := &config{overrides: map[assessment.Type]Strategy{}}
	for _, o := range opts {
		o(cfg)
	}
	g := &defaultGrader{
		strategies: map[assessment.Type]Strategy{
			assessment.TypeQuiz:          quizStrategy{},
			assessment.TypeCompatibility: compatibilityStrategy{},
			assessment.TypePartPicker:    partPickerStrategy{},
			assessment.TypeFinalBuild:    finalBuildStrategy{},
		},
	}
	for t, s := range cfg.overrides {
		g.strategies[t] = s
	}
	return g
}

// ManualTotal sums facilitator judgments: true entries over the item count.
// Entries for indices that no longer exist are ignored.
func ManualTotal(perItem map[int]bool, items int) (total, max int) {
	for i, ok := range perItem {
		if ok && i >= 0 && i < items {
			total++
		}
	}
	return total, items
}
