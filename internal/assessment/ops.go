package assessment

import (
	"encoding/json"
	"time"
)

// AddItem appends a validated item. Appending is the one item mutation
// allowed after deploy.
func (a *Assessment) AddItem(it Item) error {
	v, err := ValidateItem(a.Type, it)
	if err != nil {
		return withID(err, "add item", a.ID)
	}
	a.Items = append(a.Items, v)
	return nil
}

// ReplaceItem overwrites the item at index. Draft only.
func (a *Assessment) ReplaceItem(index int, it Item) error {
	if a.Deployed() {
		return Errf(KindInvalidState, "replace item", a.ID, "items of a deployed assessment are append-only")
	}
	if index < 0 || index >= len(a.Items) {
		return Errf(KindInvalidItem, "replace item", a.ID, "item index %d out of range", index)
	}
	v, err := ValidateItem(a.Type, it)
	if err != nil {
		return withID(err, "replace item", a.ID)
	}
	a.Items[index] = v
	return nil
}

// RemoveItem deletes the item at index, shifting later items down. Draft only.
func (a *Assessment) RemoveItem(index int) error {
	if a.Deployed() {
		return Errf(KindInvalidState, "remove item", a.ID, "items of a deployed assessment are append-only")
	}
	if index < 0 || index >= len(a.Items) {
		return Errf(KindInvalidItem, "remove item", a.ID, "item index %d out of range", index)
	}
	a.Items = append(a.Items[:index], a.Items[index+1:]...)
	return nil
}

// MoveItem reorders the item at from to position to. Draft only.
func (a *Assessment) MoveItem(from, to int) error {
	if a.Deployed() {
		return Errf(KindInvalidState, "move item", a.ID, "items of a deployed assessment are append-only")
	}
	n := len(a.Items)
	if from < 0 || from >= n || to < 0 || to >= n {
		return Errf(KindInvalidItem, "move item", a.ID, "item index out of range (from %d, to %d)", from, to)
	}
	it := a.Items[from]
	a.Items = append(a.Items[:from], a.Items[from+1:]...)
	a.Items = append(a.Items[:to], append([]Item{it}, a.Items[to:]...)...)
	return nil
}

// SetConstraints replaces the constraints document. Draft only.
func (a *Assessment) SetConstraints(raw json.RawMessage) error {
	if a.Deployed() {
		return Errf(KindInvalidState, "set constraints", a.ID, "constraints of a deployed assessment are immutable")
	}
	c, err := ValidateConstraints(raw)
	if err != nil {
		return withID(err, "set constraints", a.ID)
	}
	a.Constraints = c
	return nil
}

// Deploy moves a draft to deployed. A second call is an error.
func (a *Assessment) Deploy(now time.Time) error {
	if a.Deployed() {
		return Errf(KindAlreadyDeployed, "deploy", a.ID, "assessment already deployed")
	}
	a.Status = StatusDeployed
	a.DeployedAt = &now
	return nil
}

// PutSubmission stores sub for its participant, replacing any earlier one.
func (a *Assessment) PutSubmission(sub Submission) error {
	if !a.Deployed() {
		return Errf(KindNotDeployed, "submit", a.ID, "assessment is not deployed")
	}
	if a.Submissions == nil {
		a.Submissions = map[string]Submission{}
	}
	a.Submissions[sub.ParticipantID] = sub
	return nil
}

// SetGrading attaches g to the participant's submission. Grading only moves
// forward; a graded submission cannot be reset to ungraded here.
func (a *Assessment) SetGrading(participantID string, g Grading) error {
	sub, ok := a.Submissions[participantID]
	if !ok {
		return Errf(KindNoSubmission, "record grading", a.ID, "participant %q has not submitted", participantID)
	}
	if g.Kind == "" {
		g.Kind = GradingUngraded
	}
	if g.Kind == GradingUngraded && sub.Grading.Kind != GradingUngraded && sub.Grading.Kind != "" {
		return Errf(KindInvalidState, "record grading", a.ID, "grading cannot move from %s back to ungraded", sub.Grading.Kind)
	}
	if sub.Grading.Kind == GradingAuto && g.Kind == GradingManual {
		return Errf(KindNotManuallyGradable, "record grading", a.ID, "submission is scored automatically")
	}
	sub.Grading = g
	a.Submissions[participantID] = sub
	return nil
}

// ParticipantView strips answer keys and other participants' submissions.
func (a Assessment) ParticipantView(participantID string) Assessment {
	out := a.Clone()
	for i := range out.Items {
		if q := out.Items[i].Question; q != nil {
			q.CorrectAnswer = ""
		}
	}
	subs := map[string]Submission{}
	if s, ok := out.Submissions[participantID]; ok {
		subs[participantID] = s
	}
	out.Submissions = subs
	return out
}

func withID(err error, op, id string) error {
	if e, ok := err.(*Error); ok {
		cp := *e
		cp.Op = op
		cp.ID = id
		return &cp
	}
	return err
}
