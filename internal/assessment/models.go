package assessment

import (
	"encoding/json"
	"strings"
	"time"
)

type Type string

const (
	TypeQuiz          Type = "quiz"
	TypeCompatibility Type = "compatibility"
	TypePartPicker    Type = "part_picker"
	TypeFinalBuild    Type = "final_build"
)

// Types lists every assessment type in display order.
var Types = []Type{TypeQuiz, TypeCompatibility, TypePartPicker, TypeFinalBuild}

var typeMeta = map[Type]struct {
	namespace string
	idPrefix  string
}{
	TypeQuiz:          {"DEPLOYED_QUIZ", "quiz"},
	TypeCompatibility: {"DEPLOYED_COMPATIBILITY", "comp"},
	TypePartPicker:    {"DEPLOYED_PART_PICKER", "part"},
	TypeFinalBuild:    {"DEPLOYED_FINAL_ASSESSMENT", "final"},
}

func (t Type) Valid() bool {
	_, ok := typeMeta[t]
	return ok
}

// Namespace is the document key holding every assessment of this type.
func (t Type) Namespace() string { return typeMeta[t].namespace }

// IDPrefix is prepended to generated ids, e.g. "comp_<uuid>".
func (t Type) IDPrefix() string { return typeMeta[t].idPrefix }

// TypeFromID recovers the type encoded in an id prefix.
func TypeFromID(id string) (Type, bool) {
	prefix, _, ok := strings.Cut(id, "_")
	if !ok {
		return "", false
	}
	for t, m := range typeMeta {
		if m.idPrefix == prefix {
			return t, true
		}
	}
	return "", false
}

// ParseType accepts the canonical names plus a few spellings used by older
// clients ("partpicker", "final").
func ParseType(s string) (Type, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "quiz":
		return TypeQuiz, true
	case "compatibility", "comp":
		return TypeCompatibility, true
	case "part_picker", "partpicker", "part-picker":
		return TypePartPicker, true
	case "final_build", "finalbuild", "final", "final_assessment":
		return TypeFinalBuild, true
	}
	return "", false
}

type Status string

const (
	StatusDraft    Status = "draft"
	StatusDeployed Status = "deployed"
)

type Assessment struct {
	ID          string                `json:"id"`
	Type        Type                  `json:"type"`
	Title       string                `json:"title,omitempty"`
	AuthorID    string                `json:"authorId,omitempty"`
	CreatedAt   time.Time             `json:"createdAt"`
	Status      Status                `json:"status"`
	DeployedAt  *time.Time            `json:"deployedAt,omitempty"`
	Constraints json.RawMessage       `json:"constraints,omitempty"`
	Items       []Item                `json:"items"`
	Submissions map[string]Submission `json:"submissions"`
}

// UnmarshalJSON accepts documents written by older clients that kept
// submissions under "results".
func (a *Assessment) UnmarshalJSON(b []byte) error {
	type plain Assessment
	var aux struct {
		plain
		Results map[string]Submission `json:"results"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*a = Assessment(aux.plain)
	if a.Submissions == nil && aux.Results != nil {
		a.Submissions = aux.Results
	}
	if a.Status == "" {
		a.Status = StatusDeployed // legacy records were only ever written on deploy
	}
	return nil
}

func (a Assessment) Deployed() bool { return a.Status == StatusDeployed }

// Clone returns a deep copy so callers never alias stored state.
func (a Assessment) Clone() Assessment {
	out := a
	if a.DeployedAt != nil {
		t := *a.DeployedAt
		out.DeployedAt = &t
	}
	if a.Constraints != nil {
		out.Constraints = append(json.RawMessage(nil), a.Constraints...)
	}
	out.Items = make([]Item, len(a.Items))
	for i, it := range a.Items {
		out.Items[i] = it.Clone()
	}
	out.Submissions = make(map[string]Submission, len(a.Submissions))
	for k, s := range a.Submissions {
		out.Submissions[k] = s.Clone()
	}
	return out
}

type Submission struct {
	ParticipantID string    `json:"participantId"`
	SubmittedAt   time.Time `json:"submittedAt"`
	Answers       Answers   `json:"answers"`
	Grading       Grading   `json:"grading"`
}

func (s Submission) Clone() Submission {
	out := s
	out.Answers = s.Answers.Clone()
	out.Grading = s.Grading.Clone()
	return out
}

type GradingKind string

const (
	GradingUngraded GradingKind = "ungraded"
	GradingAuto     GradingKind = "auto"
	GradingManual   GradingKind = "manual"
)

type Grading struct {
	Kind     GradingKind  `json:"kind"`
	Score    int          `json:"score"`
	MaxScore int          `json:"maxScore"`
	PerItem  map[int]bool `json:"perItemCorrectness,omitempty"`
	GradedBy string       `json:"gradedBy,omitempty"`
	GradedAt *time.Time   `json:"gradedAt,omitempty"`
	Notes    []string     `json:"notes,omitempty"`
}

func (g Grading) Clone() Grading {
	out := g
	if g.PerItem != nil {
		out.PerItem = make(map[int]bool, len(g.PerItem))
		for k, v := range g.PerItem {
			out.PerItem[k] = v
		}
	}
	if g.GradedAt != nil {
		t := *g.GradedAt
		out.GradedAt = &t
	}
	if g.Notes != nil {
		out.Notes = append([]string(nil), g.Notes...)
	}
	return out
}

// Complete reports whether the grading covers an assessment with n items.
func (g Grading) Complete(n int) bool {
	switch g.Kind {
	case GradingAuto:
		return true
	case GradingManual:
		for i := 0; i < n; i++ {
			if _, ok := g.PerItem[i]; !ok {
				return false
			}
		}
		return true
	}
	return false
}

// Missing lists item indices below n without a correctness entry.
func (g Grading) Missing(n int) []int {
	if g.Kind == GradingAuto {
		return nil
	}
	var out []int
	for i := 0; i < n; i++ {
		if _, ok := g.PerItem[i]; !ok {
			out = append(out, i)
		}
	}
	return out
}
