package results

import (
	"context"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/mind-engage/pcbuild-assess/internal/assessment"
	"github.com/mind-engage/pcbuild-assess/internal/grading"
)

type Status string

const (
	NotSubmitted Status = "not_submitted"
	Submitted    Status = "submitted"
	Graded       Status = "graded"
)

type Summary struct {
	AssessmentID  string                 `json:"assessmentId"`
	ParticipantID string                 `json:"participantId"`
	Score         int                    `json:"score"`
	Max           int                    `json:"max"`
	Percentage    float64                `json:"percentage"`
	Status        Status                 `json:"status"`
	Grading       assessment.GradingKind `json:"grading,omitempty"`
	SubmittedAt   *time.Time             `json:"submittedAt,omitempty"`
	Display       string                 `json:"display"`
}

// Render formats the score the way results tables show it: "3/5", or "-/5"
// while nothing has been graded.
func (s Summary) Render() string {
	if s.Status == NotSubmitted || s.Grading == assessment.GradingUngraded {
		return "-/" + strconv.Itoa(s.Max)
	}
	return strconv.Itoa(s.Score) + "/" + strconv.Itoa(s.Max)
}

// Source reads assessments; satisfied by the store and the controller.
type Source interface {
	Get(ctx context.Context, id string) (assessment.Assessment, error)
}

type Aggregator struct {
	src Source
}

func New(src Source) *Aggregator { return &Aggregator{src: src} }

func (g *Aggregator) ParticipantSummary(ctx context.Context, id, participantID string) (Summary, error) {
	a, err := g.src.Get(ctx, id)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(a, participantID), nil
}

// AssessmentSummary covers every participant who submitted, in submission
// order with ties broken by participant id.
func (g *Aggregator) AssessmentSummary(ctx context.Context, id string) ([]Summary, error) {
	a, err := g.src.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(a.Submissions))
	for pid := range a.Submissions {
		out = append(out, Summarize(a, pid))
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := *out[i].SubmittedAt, *out[j].SubmittedAt
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return out[i].ParticipantID < out[j].ParticipantID
	})
	return out, nil
}

// Summarize derives one participant's summary from the record. Manual
// totals are recomputed against the current item count, so items appended
// after grading count toward max and keep the submission ungraded until
// judged.
func Summarize(a assessment.Assessment, participantID string) Summary {
	n := len(a.Items)
	s := Summary{AssessmentID: a.ID, ParticipantID: participantID, Max: n, Status: NotSubmitted}
	sub, ok := a.Submissions[participantID]
	if ok {
		at := sub.SubmittedAt
		s.SubmittedAt = &at
		s.Grading = sub.Grading.Kind
		if s.Grading == "" {
			s.Grading = assessment.GradingUngraded
		}
		s.Status = Submitted
		switch sub.Grading.Kind {
		case assessment.GradingAuto:
			s.Score, s.Max = sub.Grading.Score, sub.Grading.MaxScore
		case assessment.GradingManual:
			s.Score, s.Max = grading.ManualTotal(sub.Grading.PerItem, n)
		}
		if sub.Grading.Complete(n) {
			s.Status = Graded
		}
	}
	if s.Max > 0 {
		s.Percentage = math.Round(float64(s.Score)/float64(s.Max)*10000) / 100
	}
	s.Display = s.Render()
	return s
}
