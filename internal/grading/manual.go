package grading

import (
	"fmt"
	"strings"

	"github.com/mind-engage/pcbuild-assess/internal/assessment"
)

// Compatibility, part-picker and final-build submissions are judged by a
// facilitator. The strategies only leave advisory notes.

type compatibilityStrategy struct{}

func (compatibilityStrategy) Score(a assessment.Assessment, sub assessment.Submission) Result {
	res := Result{Outcome: RequiresManualGrading, Max: len(a.Items)}
	for i, it := range a.Items {
		if it.Pair == nil {
			continue
		}
		if v, ok := sub.Answers.Get(i); !ok || strings.TrimSpace(v) == "" {
			res.Notes = append(res.Notes, fmt.Sprintf("pair %d (%s): no hardware selected", i, it.Pair.RightComponentLabel))
		}
	}
	return res
}

type partPickerStrategy struct{}

func (partPickerStrategy) Score(a assessment.Assessment, sub assessment.Submission) Result {
	return Result{Outcome: RequiresManualGrading, Max: len(a.Items), Notes: slotNotes(a, sub)}
}

type finalBuildStrategy struct{}

func (finalBuildStrategy) Score(a assessment.Assessment, sub assessment.Submission) Result {
	res := Result{Outcome: RequiresManualGrading, Max: len(a.Items), Notes: slotNotes(a, sub)}
	c := assessment.DecodeBuildConstraints(a.Constraints)
	if c.RequiredBrand == "" {
		return res
	}
	for i, it := range a.Items {
		if it.Part == nil || !isProcessor(it.Part.PartLabel) {
			continue
		}
		v, ok := sub.Answers.Get(i)
		if ok && strings.TrimSpace(v) != "" && !mentions(v, c.RequiredBrand) {
			res.Notes = append(res.Notes, fmt.Sprintf("%s %q does not match required brand %s", it.Part.PartLabel, v, c.RequiredBrand))
		}
	}
	return res
}

// slotNotes lists part slots left empty.
func slotNotes(a assessment.Assessment, sub assessment.Submission) []string {
	var notes []string
	for i, it := range a.Items {
		if it.Part == nil {
			continue
		}
		empty := 0
		for s := 0; s < it.Part.Slots(); s++ {
			if v, ok := sub.Answers.Slot(i, s); !ok || strings.TrimSpace(v) == "" {
				empty++
			}
		}
		switch {
		case empty == 0:
		case it.Part.Slots() == 1:
			notes = append(notes, fmt.Sprintf("%s: no hardware selected", it.Part.PartLabel))
		default:
			notes = append(notes, fmt.Sprintf("%s: %d of %d slots empty", it.Part.PartLabel, empty, it.Part.Slots()))
		}
	}
	return notes
}

func isProcessor(label string) bool {
	l := normalize(label)
	if strings.Contains(l, "fan") || strings.Contains(l, "cool") {
		return false
	}
	return strings.Contains(l, "processor") || l == "cpu"
}
