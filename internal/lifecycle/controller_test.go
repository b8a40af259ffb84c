package lifecycle

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/mind-engage/pcbuild-assess/internal/assessment"
	"github.com/mind-engage/pcbuild-assess/internal/store"
	syncx "github.com/mind-engage/pcbuild-assess/internal/sync"
)

type recordingSink struct {
	mu     sync.Mutex
	events []syncx.Event
	err    error
}

func (r *recordingSink) Append(_ context.Context, e syncx.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, e)
	return nil
}

func (r *recordingSink) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func newController(t *testing.T) (*Controller, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	return New(store.New(store.NewMemoryBackend()), WithEvents(sink)), sink
}

func deployed(t *testing.T, c *Controller, in store.NewAssessment) assessment.Assessment {
	t.Helper()
	ctx := context.Background()
	a, err := c.Create(ctx, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	a, err = c.Deploy(ctx, a.ID)
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	return a
}

func quiz() store.NewAssessment {
	return store.NewAssessment{
		Type: assessment.TypeQuiz,
		Items: []assessment.Item{
			{Question: &assessment.Question{Prompt: "Pick B", Kind: assessment.KindMultipleChoice, Choices: []string{"A", "B", "C"}, CorrectAnswer: "B"}},
			{Question: &assessment.Question{Prompt: "RAM is volatile", Kind: assessment.KindTrueFalse, CorrectAnswer: "TRUE"}},
		},
	}
}

func compat(pairs int) store.NewAssessment {
	in := store.NewAssessment{Type: assessment.TypeCompatibility}
	for i := 0; i < pairs; i++ {
		in.Items = append(in.Items, assessment.Item{Pair: &assessment.Pair{
			LeftComponentLabel: "CPU", LeftHardwareLabel: "Ryzen 5", RightComponentLabel: "Motherboard",
		}})
	}
	return in
}

func TestQuizSubmissionAutoScored(t *testing.T) {
	ctx := context.Background()
	c, sink := newController(t)
	a := deployed(t, c, quiz())

	sub, err := c.SubmitAnswers(ctx, a.ID, "p1", assessment.Answers{assessment.At(0): "B", assessment.At(1): "TRUE"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	g := sub.Grading
	if g.Kind != assessment.GradingAuto || g.Score != 2 || g.MaxScore != 2 {
		t.Fatalf("grading = %+v", g)
	}
	if !reflect.DeepEqual(g.PerItem, map[int]bool{0: true, 1: true}) {
		t.Fatalf("per item = %v", g.PerItem)
	}

	sub, err = c.SubmitAnswers(ctx, a.ID, "p1", assessment.Answers{assessment.At(0): "A"})
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if sub.Grading.Score != 0 || sub.Grading.MaxScore != 2 {
		t.Fatalf("resubmission grading = %+v", sub.Grading)
	}
	got, _ := c.Get(ctx, a.ID)
	if len(got.Submissions) != 1 {
		t.Fatalf("want one submission, got %d", len(got.Submissions))
	}
	if v, _ := got.Submissions["p1"].Answers.Get(0); v != "A" {
		t.Fatalf("stored answers = %v", got.Submissions["p1"].Answers)
	}

	want := []string{syncx.AssessmentCreated, syncx.AssessmentDeployed, syncx.SubmissionRecorded, syncx.SubmissionRecorded}
	if !reflect.DeepEqual(sink.types(), want) {
		t.Fatalf("events = %v", sink.types())
	}
}

func TestSubmitRequiresDeploy(t *testing.T) {
	ctx := context.Background()
	c, _ := newController(t)
	a, _ := c.Create(ctx, quiz())
	if _, err := c.SubmitAnswers(ctx, a.ID, "p1", nil); !errors.Is(err, assessment.ErrNotDeployed) {
		t.Fatalf("draft submit: got %v", err)
	}
	if _, err := c.SubmitAnswers(ctx, "quiz_missing", "p1", nil); !errors.Is(err, assessment.ErrNotFound) {
		t.Fatalf("missing submit: got %v", err)
	}
	if _, err := c.SubmitAnswers(ctx, a.ID, "  ", nil); !errors.Is(err, assessment.ErrInvalidItem) {
		t.Fatalf("blank participant: got %v", err)
	}
}

func TestCompatibilityManualGrading(t *testing.T) {
	ctx := context.Background()
	c, sink := newController(t)
	a := deployed(t, c, compat(1))

	sub, err := c.SubmitAnswers(ctx, a.ID, "p1", assessment.Answers{assessment.At(0): "B550"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sub.Grading.Kind != assessment.GradingUngraded {
		t.Fatalf("want ungraded, got %s", sub.Grading.Kind)
	}
	r, _ := c.FinalizeGrading(ctx, a.ID, "p1")
	if r.Ready || !reflect.DeepEqual(r.Missing, []int{0}) {
		t.Fatalf("readiness before grading = %+v", r)
	}

	sub, err = c.GradeItem(ctx, a.ID, "p1", 0, true)
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if sub.Grading.Kind != assessment.GradingManual || sub.Grading.Score != 1 || sub.Grading.MaxScore != 1 || sub.Grading.GradedAt == nil {
		t.Fatalf("grading = %+v", sub.Grading)
	}
	r, err = c.FinalizeGrading(ctx, a.ID, "p1")
	if err != nil || !r.Ready || len(r.Missing) != 0 {
		t.Fatalf("readiness after grading = %+v, %v", r, err)
	}
	if ts := sink.types(); ts[len(ts)-1] != syncx.SubmissionGraded {
		t.Fatalf("last event = %v", ts)
	}
}

func TestGradeItemsBatchAndRegrade(t *testing.T) {
	ctx := context.Background()
	c, _ := newController(t)
	a := deployed(t, c, compat(3))
	if _, err := c.SubmitAnswers(ctx, a.ID, "p1", nil); err != nil {
		t.Fatalf("submit: %v", err)
	}
	sub, err := c.GradeItems(ctx, a.ID, "p1", map[int]bool{0: true, 2: true}, "fac-1")
	if err != nil {
		t.Fatalf("grade items: %v", err)
	}
	if sub.Grading.Score != 2 || sub.Grading.MaxScore != 3 || sub.Grading.GradedBy != "fac-1" {
		t.Fatalf("grading = %+v", sub.Grading)
	}
	r, _ := c.FinalizeGrading(ctx, a.ID, "p1")
	if r.Ready || !reflect.DeepEqual(r.Missing, []int{1}) {
		t.Fatalf("partial readiness = %+v", r)
	}

	sub, err = c.GradeItem(ctx, a.ID, "p1", 0, false)
	if err != nil {
		t.Fatalf("regrade: %v", err)
	}
	if sub.Grading.Score != 1 || sub.Grading.GradedBy != "fac-1" {
		t.Fatalf("regrade grading = %+v", sub.Grading)
	}

	if _, err := c.GradeItems(ctx, a.ID, "p1", map[int]bool{1: true, 7: true}, ""); !errors.Is(err, assessment.ErrInvalidItem) {
		t.Fatalf("out of range: got %v", err)
	}
	got, _ := c.Get(ctx, a.ID)
	if _, ok := got.Submissions["p1"].Grading.PerItem[1]; ok {
		t.Fatalf("rejected batch partially applied")
	}
}

func TestGradeErrors(t *testing.T) {
	ctx := context.Background()
	c, _ := newController(t)
	q := deployed(t, c, quiz())
	if _, err := c.SubmitAnswers(ctx, q.ID, "p1", nil); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := c.GradeItem(ctx, q.ID, "p1", 0, true); !errors.Is(err, assessment.ErrNotManuallyGradable) {
		t.Fatalf("quiz grade: got %v", err)
	}
	cp := deployed(t, c, compat(1))
	if _, err := c.GradeItem(ctx, cp.ID, "ghost", 0, true); !errors.Is(err, assessment.ErrNoSubmission) {
		t.Fatalf("no submission: got %v", err)
	}
	if _, err := c.FinalizeGrading(ctx, cp.ID, "ghost"); !errors.Is(err, assessment.ErrNoSubmission) {
		t.Fatalf("finalize no submission: got %v", err)
	}
	r, err := c.FinalizeGrading(ctx, q.ID, "p1")
	if err != nil || !r.Ready {
		t.Fatalf("auto readiness = %+v, %v", r, err)
	}
}

func TestDoubleDeploy(t *testing.T) {
	ctx := context.Background()
	c, sink := newController(t)
	a := deployed(t, c, quiz())
	_, err := c.Deploy(ctx, a.ID)
	if !errors.Is(err, assessment.ErrAlreadyDeployed) || !errors.Is(err, assessment.ErrInvalidState) {
		t.Fatalf("second deploy: got %v", err)
	}
	if n := len(sink.types()); n != 2 {
		t.Fatalf("failed deploy emitted an event: %v", sink.types())
	}
}

func TestAppendOnlyAfterDeploy(t *testing.T) {
	ctx := context.Background()
	c, _ := newController(t)
	a := deployed(t, c, quiz())
	before, err := c.SubmitAnswers(ctx, a.ID, "p1", assessment.Answers{assessment.At(0): "B", assessment.At(1): "TRUE"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	item := assessment.Item{Question: &assessment.Question{Prompt: "SSD has no moving parts", Kind: assessment.KindTrueFalse, CorrectAnswer: "true"}}
	if _, err := c.ReplaceItem(ctx, a.ID, 0, item); !errors.Is(err, assessment.ErrInvalidState) {
		t.Fatalf("replace: got %v", err)
	}
	if _, err := c.RemoveItem(ctx, a.ID, 0); !errors.Is(err, assessment.ErrInvalidState) {
		t.Fatalf("remove: got %v", err)
	}
	if _, err := c.MoveItem(ctx, a.ID, 0, 1); !errors.Is(err, assessment.ErrInvalidState) {
		t.Fatalf("move: got %v", err)
	}
	if _, err := c.SetConstraints(ctx, a.ID, []byte(`{"costLimit":900}`)); !errors.Is(err, assessment.ErrInvalidState) {
		t.Fatalf("constraints: got %v", err)
	}

	got, err := c.AddItem(ctx, a.ID, item)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(got.Items) != 3 {
		t.Fatalf("items = %d", len(got.Items))
	}
	after := got.Submissions["p1"].Grading
	if after.Score != before.Grading.Score || after.MaxScore != before.Grading.MaxScore {
		t.Fatalf("append changed score: %+v -> %+v", before.Grading, after)
	}
}

func TestDraftEditing(t *testing.T) {
	ctx := context.Background()
	c, _ := newController(t)
	a, err := c.Create(ctx, store.NewAssessment{Type: assessment.TypePartPicker, Title: "Budget build"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, label := range []string{"Motherboard", "Processor", "Memory"} {
		if _, err := c.AddItem(ctx, a.ID, assessment.Item{Part: &assessment.Part{PartLabel: label}}); err != nil {
			t.Fatalf("add %s: %v", label, err)
		}
	}
	if _, err := c.ReplaceItem(ctx, a.ID, 2, assessment.Item{Part: &assessment.Part{PartLabel: "Memory", SlotCount: 2}}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if _, err := c.MoveItem(ctx, a.ID, 2, 0); err != nil {
		t.Fatalf("move: %v", err)
	}
	got, err := c.RemoveItem(ctx, a.ID, 1)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(got.Items) != 2 || got.Items[0].Part.PartLabel != "Memory" || got.Items[0].Part.SlotCount != 2 || got.Items[1].Part.PartLabel != "Processor" {
		t.Fatalf("items after edits: %+v", got.Items)
	}
	if _, err := c.RemoveItem(ctx, a.ID, 5); !errors.Is(err, assessment.ErrInvalidItem) {
		t.Fatalf("remove out of range: got %v", err)
	}
	if _, err := c.AddItem(ctx, a.ID, assessment.Item{Part: &assessment.Part{PartLabel: "Processor", SlotCount: 2}}); !errors.Is(err, assessment.ErrInvalidItem) {
		t.Fatalf("multi-slot processor: got %v", err)
	}
	got, err = c.SetConstraints(ctx, a.ID, []byte(` {"costLimit": 800, "currency": "USD"} `))
	if err != nil {
		t.Fatalf("constraints: %v", err)
	}
	if string(got.Constraints) != `{"costLimit":800,"currency":"USD"}` {
		t.Fatalf("constraints = %s", got.Constraints)
	}
}

func TestFinalBuildSubmissionNotes(t *testing.T) {
	ctx := context.Background()
	c, _ := newController(t)
	a := deployed(t, c, store.NewAssessment{
		Type:        assessment.TypeFinalBuild,
		Constraints: []byte(`{"requiredBrand":"AMD"}`),
		Items: []assessment.Item{
			{Part: &assessment.Part{PartLabel: "Processor"}},
			{Part: &assessment.Part{PartLabel: "Memory", SlotCount: 2}},
		},
	})
	sub, err := c.SubmitAnswers(ctx, a.ID, "p1", assessment.Answers{
		{Item: 0}:          "Intel Core i5-12400",
		{Item: 1}:          "16GB DDR4",
		{Item: 7}:          "ignored",
		{Item: 1, Slot: 9}: "ignored",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sub.Grading.Kind != assessment.GradingUngraded || sub.Grading.MaxScore != 2 || len(sub.Grading.Notes) != 2 {
		t.Fatalf("grading = %+v", sub.Grading)
	}
}

func TestDeleteCascades(t *testing.T) {
	ctx := context.Background()
	c, sink := newController(t)
	a := deployed(t, c, compat(1))
	if _, err := c.SubmitAnswers(ctx, a.ID, "p1", nil); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := c.Delete(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.GradeItem(ctx, a.ID, "p1", 0, true); !errors.Is(err, assessment.ErrNotFound) {
		t.Fatalf("grade after delete: got %v", err)
	}
	if ts := sink.types(); ts[len(ts)-1] != syncx.AssessmentDeleted {
		t.Fatalf("events = %v", ts)
	}
}

func TestEventFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{err: errors.New("event log down")}
	c := New(store.New(store.NewMemoryBackend()), WithEvents(sink))
	a, err := c.Create(ctx, quiz())
	if err != nil {
		t.Fatalf("create with failing sink: %v", err)
	}
	if _, err := c.Get(ctx, a.ID); err != nil {
		t.Fatalf("record not written: %v", err)
	}
}
