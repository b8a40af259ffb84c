package assessment

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func quizQ(prompt string, kind QuestionKind, answer string, choices ...string) Item {
	return Item{Question: &Question{Prompt: prompt, Kind: kind, Choices: choices, CorrectAnswer: answer}}
}

func TestErrorKindsMatch(t *testing.T) {
	err := Errf(KindAlreadyDeployed, "deploy", "quiz_1", "already deployed")
	if !errors.Is(err, ErrAlreadyDeployed) {
		t.Fatalf("expected AlreadyDeployed match")
	}
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("AlreadyDeployed should also be an InvalidState")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("unexpected NotFound match")
	}
	wrapped := StorageErr("load", errors.New("disk gone"))
	if KindOf(wrapped) != KindStorageUnavailable {
		t.Fatalf("got kind %q", KindOf(wrapped))
	}
	if StorageErr("load", err) != error(err) {
		t.Fatalf("typed errors should pass through StorageErr")
	}
	if KindOf(errors.New("plain")) != "" {
		t.Fatalf("foreign errors have no kind")
	}
}

func TestValidateItemShapes(t *testing.T) {
	cases := []struct {
		name string
		typ  Type
		item Item
		ok   bool
	}{
		{"quiz mc", TypeQuiz, quizQ("Which socket?", KindMultipleChoice, "b", "AM4", "LGA1700"), true},
		{"quiz mc answer missing", TypeQuiz, quizQ("Which socket?", KindMultipleChoice, "AM5", "AM4", "LGA1700"), false},
		{"quiz fill", TypeQuiz, quizQ("The brain of the PC", KindFillBlank, "CPU"), true},
		{"quiz tf", TypeQuiz, quizQ("RAM is volatile", KindTrueFalse, "true"), true},
		{"quiz tf bad", TypeQuiz, quizQ("RAM is volatile", KindTrueFalse, "maybe"), false},
		{"quiz empty prompt", TypeQuiz, quizQ("  ", KindFillBlank, "x"), false},
		{"pair on quiz", TypeQuiz, Item{Pair: &Pair{"CPU", "Ryzen 5", "Motherboard"}}, false},
		{"pair", TypeCompatibility, Item{Pair: &Pair{"CPU", "Ryzen 5", "Motherboard"}}, true},
		{"pair missing label", TypeCompatibility, Item{Pair: &Pair{"CPU", "", "Motherboard"}}, false},
		{"part", TypePartPicker, Item{Part: &Part{PartLabel: "Processor"}}, true},
		{"memory slots", TypeFinalBuild, Item{Part: &Part{PartLabel: "Random Access Memory", SlotCount: 4}}, true},
		{"slots on non memory", TypeFinalBuild, Item{Part: &Part{PartLabel: "Storage", SlotCount: 2}}, false},
		{"two members", TypePartPicker, Item{Part: &Part{PartLabel: "Case"}, Pair: &Pair{"a", "b", "c"}}, false},
		{"empty", TypePartPicker, Item{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateItem(tc.typ, tc.item)
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidItem) {
				t.Fatalf("expected InvalidItem, got %v", err)
			}
		})
	}
}

func TestValidateItemNormalizes(t *testing.T) {
	it, err := ValidateItem(TypeQuiz, quizQ("Which socket?", KindMultipleChoice, "B", "AM4", "LGA1700"))
	if err != nil {
		t.Fatal(err)
	}
	if it.Question.CorrectAnswer != "LGA1700" {
		t.Fatalf("letter answer should resolve to choice text, got %q", it.Question.CorrectAnswer)
	}
	tf, err := ValidateItem(TypeQuiz, quizQ("SSDs have moving parts", KindTrueFalse, "false"))
	if err != nil {
		t.Fatal(err)
	}
	if tf.Question.CorrectAnswer != "FALSE" || len(tf.Question.Choices) != 2 {
		t.Fatalf("tf not normalized: %+v", tf.Question)
	}
}

func TestAddressText(t *testing.T) {
	for in, want := range map[string]Address{"0": {0, 0}, "3": {3, 0}, "5.2": {5, 2}, "-1": {-1, 0}, "1.-2": {1, -2}} {
		got, err := ParseAddress(in)
		if err != nil || got != want {
			t.Fatalf("ParseAddress(%q) = %v, %v", in, got, err)
		}
		if in != "0" && got.String() != in {
			t.Fatalf("String() = %q, want %q", got.String(), in)
		}
	}
	for _, bad := range []string{"", "x", "1.a", "1.", "-"} {
		if _, err := ParseAddress(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}

	ans := Answers{At(0): "B", {Item: 2, Slot: 1}: "DDR4 8GB"}
	b, err := json.Marshal(ans)
	if err != nil {
		t.Fatal(err)
	}
	var back Answers
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if v, _ := back.Slot(2, 1); v != "DDR4 8GB" {
		t.Fatalf("slot answer lost: %s", b)
	}
}

func TestAnswersWithin(t *testing.T) {
	items := []Item{
		{Part: &Part{PartLabel: "Processor"}},
		{Part: &Part{PartLabel: "RAM", SlotCount: 2}},
	}
	ans := Answers{At(0): "a", {Item: 0, Slot: 1}: "x", {Item: 1, Slot: 1}: "b", At(7): "stray", At(-1): "neg", {Item: 1, Slot: -1}: "neg slot"}
	got := ans.Within(items)
	if len(got) != 2 {
		t.Fatalf("expected 2 in-range answers, got %v", got)
	}
}

func TestDeployedItemsAreAppendOnly(t *testing.T) {
	a := Assessment{ID: "quiz_1", Type: TypeQuiz, Status: StatusDraft}
	if err := a.AddItem(quizQ("q1", KindFillBlank, "a")); err != nil {
		t.Fatal(err)
	}
	if err := a.AddItem(quizQ("q2", KindFillBlank, "b")); err != nil {
		t.Fatal(err)
	}
	if err := a.MoveItem(1, 0); err != nil {
		t.Fatal(err)
	}
	if a.Items[0].Question.Prompt != "q2" {
		t.Fatalf("move did not reorder: %+v", a.Items)
	}
	if err := a.Deploy(time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := a.Deploy(time.Now()); !errors.Is(err, ErrAlreadyDeployed) {
		t.Fatalf("second deploy: %v", err)
	}
	if err := a.RemoveItem(0); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("remove after deploy: %v", err)
	}
	if err := a.MoveItem(0, 1); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("move after deploy: %v", err)
	}
	if err := a.ReplaceItem(0, quizQ("q3", KindFillBlank, "c")); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("replace after deploy: %v", err)
	}
	if err := a.SetConstraints(json.RawMessage(`{"costLimit":1}`)); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("constraints after deploy: %v", err)
	}
	if err := a.AddItem(quizQ("q3", KindFillBlank, "c")); err != nil {
		t.Fatalf("append after deploy: %v", err)
	}
	if len(a.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(a.Items))
	}
}

func TestSetGradingMovesForward(t *testing.T) {
	a := Assessment{ID: "comp_1", Type: TypeCompatibility, Status: StatusDeployed}
	if err := a.SetGrading("p1", Grading{Kind: GradingManual}); !errors.Is(err, ErrNoSubmission) {
		t.Fatalf("expected NoSubmission, got %v", err)
	}
	if err := a.PutSubmission(Submission{ParticipantID: "p1", Grading: Grading{Kind: GradingUngraded}}); err != nil {
		t.Fatal(err)
	}
	if err := a.SetGrading("p1", Grading{Kind: GradingManual, PerItem: map[int]bool{0: true}, Score: 1, MaxScore: 1}); err != nil {
		t.Fatal(err)
	}
	if err := a.SetGrading("p1", Grading{Kind: GradingUngraded}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("downgrade should fail, got %v", err)
	}

	draft := Assessment{ID: "comp_2", Type: TypeCompatibility, Status: StatusDraft}
	if err := draft.PutSubmission(Submission{ParticipantID: "p1"}); !errors.Is(err, ErrNotDeployed) {
		t.Fatalf("expected NotDeployed, got %v", err)
	}
}

func TestParticipantViewStripsKeys(t *testing.T) {
	a := Assessment{
		ID: "quiz_1", Type: TypeQuiz, Status: StatusDeployed,
		Items: []Item{quizQ("q", KindFillBlank, "CPU")},
		Submissions: map[string]Submission{
			"p1": {ParticipantID: "p1"},
			"p2": {ParticipantID: "p2"},
		},
	}
	v := a.ParticipantView("p1")
	if v.Items[0].Question.CorrectAnswer != "" {
		t.Fatalf("answer key leaked")
	}
	if len(v.Submissions) != 1 {
		t.Fatalf("other submissions leaked: %v", v.Submissions)
	}
	if a.Items[0].Question.CorrectAnswer != "CPU" {
		t.Fatalf("view mutated the original")
	}
}

func TestLegacyResultsDecode(t *testing.T) {
	doc := `{"id":"comp_1712345","createdAt":"2024-04-05T10:00:00Z","items":[],"results":{"p1":{"participantId":"p1","answers":{"0":"B450"},"grading":{"kind":"ungraded"}}}}`
	var a Assessment
	if err := json.Unmarshal([]byte(doc), &a); err != nil {
		t.Fatal(err)
	}
	if _, ok := a.Submissions["p1"]; !ok {
		t.Fatalf("results not mapped to submissions: %+v", a)
	}
	if !a.Deployed() {
		t.Fatalf("legacy records default to deployed")
	}
	if typ, ok := TypeFromID(a.ID); !ok || typ != TypeCompatibility {
		t.Fatalf("TypeFromID = %v %v", typ, ok)
	}
}

func TestGradingCompleteness(t *testing.T) {
	g := Grading{Kind: GradingManual, PerItem: map[int]bool{0: true, 2: false}}
	if g.Complete(3) {
		t.Fatalf("item 1 is missing")
	}
	if m := g.Missing(3); len(m) != 1 || m[0] != 1 {
		t.Fatalf("Missing = %v", m)
	}
	if !(Grading{Kind: GradingAuto}).Complete(5) {
		t.Fatalf("auto is always complete")
	}
	if (Grading{Kind: GradingUngraded}).Complete(0) {
		t.Fatalf("ungraded is never complete")
	}
}
