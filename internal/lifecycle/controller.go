package lifecycle

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/mind-engage/pcbuild-assess/internal/assessment"
	"github.com/mind-engage/pcbuild-assess/internal/grading"
	"github.com/mind-engage/pcbuild-assess/internal/logger"
	"github.com/mind-engage/pcbuild-assess/internal/store"
	syncx "github.com/mind-engage/pcbuild-assess/internal/sync"
)

// EventSink receives lifecycle events after a successful write.
type EventSink interface {
	Append(ctx context.Context, e syncx.Event) error
}

// Controller is the single entry point for assessment mutations. It keeps
// state transitions and scoring in order and inside one store transaction.
type Controller struct {
	store  *store.Store
	grader grading.Grader
	events EventSink
	log    *logger.Logger
}

type Option func(*Controller)

func WithGrader(g grading.Grader) Option {
	return func(c *Controller) { c.grader = g }
}

// WithEvents sends lifecycle events to e after each committed write.
func WithEvents(e EventSink) Option {
	return func(c *Controller) { c.events = e }
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

func New(s *store.Store, opts ...Option) *Controller {
	c := &Controller{
		store:  s,
		grader: grading.NewDefaultGrader(),
		log:    logger.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Controller) Create(ctx context.Context, in store.NewAssessment) (assessment.Assessment, error) {
	a, err := c.store.Create(ctx, in)
	if err != nil {
		return c.fail("create", "", err)
	}
	c.log.Info("assessment created", "assessment_id", a.ID, "type", a.Type, "items", len(a.Items))
	c.emit(ctx, syncx.AssessmentCreated, a.ID, map[string]any{"type": a.Type, "authorId": a.AuthorID})
	return a, nil
}

func (c *Controller) Get(ctx context.Context, id string) (assessment.Assessment, error) {
	return c.store.Get(ctx, id)
}

func (c *Controller) ListByType(ctx context.Context, t assessment.Type) ([]assessment.Assessment, error) {
	return c.store.ListByType(ctx, t)
}

// AddItem appends an item; allowed before and after deploy.
func (c *Controller) AddItem(ctx context.Context, id string, it assessment.Item) (assessment.Assessment, error) {
	return c.edit(ctx, id, "add item", func(a *assessment.Assessment) error { return a.AddItem(it) })
}

func (c *Controller) ReplaceItem(ctx context.Context, id string, index int, it assessment.Item) (assessment.Assessment, error) {
	return c.edit(ctx, id, "replace item", func(a *assessment.Assessment) error { return a.ReplaceItem(index, it) })
}

func (c *Controller) RemoveItem(ctx context.Context, id string, index int) (assessment.Assessment, error) {
	return c.edit(ctx, id, "remove item", func(a *assessment.Assessment) error { return a.RemoveItem(index) })
}

func (c *Controller) MoveItem(ctx context.Context, id string, from, to int) (assessment.Assessment, error) {
	return c.edit(ctx, id, "move item", func(a *assessment.Assessment) error { return a.MoveItem(from, to) })
}

func (c *Controller) SetConstraints(ctx context.Context, id string, raw json.RawMessage) (assessment.Assessment, error) {
	return c.edit(ctx, id, "set constraints", func(a *assessment.Assessment) error { return a.SetConstraints(raw) })
}

func (c *Controller) edit(ctx context.Context, id, op string, fn func(*assessment.Assessment) error) (assessment.Assessment, error) {
	a, err := c.store.Mutate(ctx, id, op, fn)
	if err != nil {
		return c.fail(op, id, err)
	}
	c.log.Debug("assessment edited", "assessment_id", id, "op", op, "items", len(a.Items))
	return a, nil
}

// Deploy makes a draft visible to participants. It is not idempotent.
func (c *Controller) Deploy(ctx context.Context, id string) (assessment.Assessment, error) {
	a, err := c.store.Deploy(ctx, id)
	if err != nil {
		return c.fail("deploy", id, err)
	}
	c.log.Info("assessment deployed", "assessment_id", id, "type", a.Type, "items", len(a.Items))
	c.emit(ctx, syncx.AssessmentDeployed, id, map[string]any{"type": a.Type, "items": len(a.Items)})
	return a, nil
}

// Delete removes the assessment and all of its submissions.
func (c *Controller) Delete(ctx context.Context, id string) error {
	if err := c.store.Delete(ctx, id); err != nil {
		_, err = c.fail("delete", id, err)
		return err
	}
	c.log.Info("assessment deleted", "assessment_id", id)
	c.emit(ctx, syncx.AssessmentDeleted, id, nil)
	return nil
}

// SubmitAnswers records the participant's answers, replacing any earlier
// submission, and scores them in the same transaction. Objective types come
// back auto-graded; the rest are ungraded until a facilitator acts. Answers
// addressing items or slots that do not exist are dropped.
func (c *Controller) SubmitAnswers(ctx context.Context, id, participantID string, answers assessment.Answers) (assessment.Submission, error) {
	participantID = strings.TrimSpace(participantID)
	if participantID == "" {
		return assessment.Submission{}, assessment.Errf(assessment.KindInvalidItem, "submit", id, "participant id required")
	}
	now := c.store.Now()
	a, err := c.store.Mutate(ctx, id, "submit", func(a *assessment.Assessment) error {
		if !a.Deployed() {
			return assessment.Errf(assessment.KindNotDeployed, "submit", a.ID, "assessment is not deployed")
		}
		sub := assessment.Submission{
			ParticipantID: participantID,
			SubmittedAt:   now,
			Answers:       answers.Within(a.Items),
		}
		sub.Grading = gradingFor(c.grader.Score(*a, sub), now)
		return a.PutSubmission(sub)
	})
	if err != nil {
		_, err = c.fail("submit", id, err)
		return assessment.Submission{}, err
	}
	sub := a.Submissions[participantID]
	c.log.Info("submission recorded",
		"assessment_id", id, "participant_id", participantID, "type", a.Type,
		"grading", sub.Grading.Kind, "score", sub.Grading.Score, "max", sub.Grading.MaxScore)
	c.emit(ctx, syncx.SubmissionRecorded, id, map[string]any{
		"participantId": participantID, "grading": sub.Grading.Kind, "score": sub.Grading.Score, "maxScore": sub.Grading.MaxScore,
	})
	return sub, nil
}

func gradingFor(res grading.Result, now time.Time) assessment.Grading {
	if res.Outcome != grading.Computed {
		return assessment.Grading{Kind: assessment.GradingUngraded, MaxScore: res.Max, Notes: res.Notes}
	}
	per := make(map[int]bool, len(res.PerItem))
	for i, ok := range res.PerItem {
		per[i] = ok
	}
	return assessment.Grading{
		Kind:     assessment.GradingAuto,
		Score:    res.Total,
		MaxScore: res.Max,
		PerItem:  per,
		GradedAt: &now,
		Notes:    res.Notes,
	}
}

// GradeItem records a facilitator's judgment for one item.
func (c *Controller) GradeItem(ctx context.Context, id, participantID string, itemIndex int, isCorrect bool) (assessment.Submission, error) {
	return c.GradeItems(ctx, id, participantID, map[int]bool{itemIndex: isCorrect}, "")
}

// GradeItems records several judgments at once and recomputes the total.
// Auto-scored submissions are rejected with NotManuallyGradable.
func (c *Controller) GradeItems(ctx context.Context, id, participantID string, marks map[int]bool, gradedBy string) (assessment.Submission, error) {
	now := c.store.Now()
	a, err := c.store.Mutate(ctx, id, "grade", func(a *assessment.Assessment) error {
		sub, ok := a.Submissions[participantID]
		if !ok {
			return assessment.Errf(assessment.KindNoSubmission, "grade", a.ID, "participant %q has not submitted", participantID)
		}
		if a.Type == assessment.TypeQuiz || sub.Grading.Kind == assessment.GradingAuto {
			return assessment.Errf(assessment.KindNotManuallyGradable, "grade", a.ID, "%s submissions are scored automatically", a.Type)
		}
		g := sub.Grading.Clone()
		if g.PerItem == nil {
			g.PerItem = map[int]bool{}
		}
		for idx, correct := range marks {
			if idx < 0 || idx >= len(a.Items) {
				return assessment.Errf(assessment.KindInvalidItem, "grade", a.ID, "item index %d out of range", idx)
			}
			g.PerItem[idx] = correct
		}
		g.Kind = assessment.GradingManual
		g.Score, g.MaxScore = grading.ManualTotal(g.PerItem, len(a.Items))
		g.GradedAt = &now
		if gradedBy != "" {
			g.GradedBy = gradedBy
		}
		return a.SetGrading(participantID, g)
	})
	if err != nil {
		_, err = c.fail("grade", id, err)
		return assessment.Submission{}, err
	}
	sub := a.Submissions[participantID]
	c.log.Info("submission graded",
		"assessment_id", id, "participant_id", participantID,
		"score", sub.Grading.Score, "max", sub.Grading.MaxScore, "complete", sub.Grading.Complete(len(a.Items)))
	c.emit(ctx, syncx.SubmissionGraded, id, map[string]any{
		"participantId": participantID, "score": sub.Grading.Score, "maxScore": sub.Grading.MaxScore, "gradedBy": gradedBy,
	})
	return sub, nil
}

// Readiness says whether a submission's grading is complete.
type Readiness struct {
	Ready   bool               `json:"ready"`
	Missing []int              `json:"missing,omitempty"` // item indices without a judgment
	Grading assessment.Grading `json:"grading"`
}

// FinalizeGrading is a derived check, not a state change: a manual grading is
// final once every current item has a correctness entry.
func (c *Controller) FinalizeGrading(ctx context.Context, id, participantID string) (Readiness, error) {
	a, err := c.store.Get(ctx, id)
	if err != nil {
		return Readiness{}, err
	}
	sub, ok := a.Submissions[participantID]
	if !ok {
		return Readiness{}, assessment.Errf(assessment.KindNoSubmission, "finalize grading", id, "participant %q has not submitted", participantID)
	}
	n := len(a.Items)
	return Readiness{
		Ready:   sub.Grading.Complete(n),
		Missing: sub.Grading.Missing(n),
		Grading: sub.Grading,
	}, nil
}

func (c *Controller) fail(op, id string, err error) (assessment.Assessment, error) {
	if assessment.KindOf(err) == assessment.KindStorageUnavailable {
		c.log.Error("storage failure", "op", op, "assessment_id", id, "error", err)
	} else {
		c.log.Debug("operation rejected", "op", op, "assessment_id", id, "kind", assessment.KindOf(err), "error", err)
	}
	return assessment.Assessment{}, err
}

// emit appends an event; failures are logged and never fail the caller,
// whose write already committed.
func (c *Controller) emit(ctx context.Context, typ, id string, data any) {
	if c.events == nil {
		return
	}
	ev, err := syncx.NewEvent(typ, id, data)
	if err == nil {
		err = c.events.Append(ctx, ev)
	}
	if err != nil {
		c.log.Warn("event log append failed", "type", typ, "assessment_id", id, "error", err)
	}
}
