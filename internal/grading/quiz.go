package grading

import (
	"strconv"
	"strings"

	"github.com/mind-engage/pcbuild-assess/internal/assessment"
)

// matcher decides one quiz question. has is false when the participant
// left the question unanswered.
type matcher func(q assessment.Question, answer string, has bool) bool

var matchers = map[assessment.QuestionKind]matcher{
	assessment.KindMultipleChoice: matchChoice,
	assessment.KindFillBlank:      matchFillBlank,
	assessment.KindTrueFalse:      matchTrueFalse,
}

type quizStrategy struct{}

func (quizStrategy) Score(a assessment.Assessment, sub assessment.Submission) Result {
	res := Result{Outcome: Computed, PerItem: make([]bool, len(a.Items)), Max: len(a.Items)}
	for i, it := range a.Items {
		if it.Question == nil {
			continue
		}
		m, ok := matchers[it.Question.Kind]
		if !ok {
			continue
		}
		ans, has := sub.Answers.Get(i)
		if m(*it.Question, ans, has) {
			res.PerItem[i] = true
			res.Total++
		}
	}
	return res
}

// matchChoice compares choice text, never positions.
func matchChoice(q assessment.Question, answer string, has bool) bool {
	if !has {
		return false
	}
	want, ok := q.CorrectChoice()
	return ok && answer == want
}

func matchFillBlank(q assessment.Question, answer string, has bool) bool {
	if !has {
		return false
	}
	return normalize(answer) == normalize(q.CorrectAnswer)
}

func matchTrueFalse(q assessment.Question, answer string, has bool) bool {
	if !has {
		return false
	}
	got, err := strconv.ParseBool(strings.TrimSpace(answer))
	if err != nil {
		return false
	}
	want, err := strconv.ParseBool(strings.TrimSpace(q.CorrectAnswer))
	return err == nil && got == want
}
