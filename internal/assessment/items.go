package assessment

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

type QuestionKind string

const (
	KindMultipleChoice QuestionKind = "multiple_choice"
	KindFillBlank      QuestionKind = "fill_blank"
	KindTrueFalse      QuestionKind = "true_false"
)

// Question is a quiz item. CorrectAnswer holds the choice text (or letter)
// for multiple choice, the expected text for fill-in-the-blank, and
// "TRUE"/"FALSE" for true/false.
type Question struct {
	Prompt        string       `json:"prompt" yaml:"prompt"`
	Kind          QuestionKind `json:"kind" yaml:"kind"`
	Choices       []string     `json:"choices,omitempty" yaml:"choices,omitempty"`
	CorrectAnswer string       `json:"correctAnswer,omitempty" yaml:"correctAnswer,omitempty"`
}

// Pair is a compatibility item; the right-hand hardware label is what the
// participant supplies.
type Pair struct {
	LeftComponentLabel  string `json:"leftComponentLabel" yaml:"leftComponentLabel"`
	LeftHardwareLabel   string `json:"leftHardwareLabel" yaml:"leftHardwareLabel"`
	RightComponentLabel string `json:"rightComponentLabel" yaml:"rightComponentLabel"`
}

// Part is a part-picker or final-build slot.
type Part struct {
	PartLabel string `json:"partLabel" yaml:"partLabel"`
	SlotCount int    `json:"slotCount,omitempty" yaml:"slotCount,omitempty"`
}

// Slots is the number of addressable selections, at least 1.
func (p Part) Slots() int {
	if p.SlotCount < 1 {
		return 1
	}
	return p.SlotCount
}

// IsMemory reports whether the part models memory modules.
func (p Part) IsMemory() bool {
	l := strings.ToLower(p.PartLabel)
	return strings.Contains(l, "memory") || strings.Contains(l, "ram")
}

// Item carries exactly one of its members, matching the assessment type.
type Item struct {
	Question *Question `json:"question,omitempty" yaml:"question,omitempty"`
	Pair     *Pair     `json:"pair,omitempty" yaml:"pair,omitempty"`
	Part     *Part     `json:"part,omitempty" yaml:"part,omitempty"`
}

func (it Item) Clone() Item {
	var out Item
	if it.Question != nil {
		q := *it.Question
		q.Choices = append([]string(nil), it.Question.Choices...)
		out.Question = &q
	}
	if it.Pair != nil {
		p := *it.Pair
		out.Pair = &p
	}
	if it.Part != nil {
		p := *it.Part
		out.Part = &p
	}
	return out
}

// Slots is how many answer addresses the item accepts.
func (it Item) Slots() int {
	if it.Part != nil {
		return it.Part.Slots()
	}
	return 1
}

// ValidateItem checks that it is well formed for an assessment of type t
// and returns the normalized item.
func ValidateItem(t Type, it Item) (Item, error) {
	set := 0
	for _, present := range []bool{it.Question != nil, it.Pair != nil, it.Part != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return Item{}, Errf(KindInvalidItem, "validate item", "", "item must carry exactly one of question, pair, part")
	}
	it = it.Clone()
	switch t {
	case TypeQuiz:
		if it.Question == nil {
			return Item{}, Errf(KindInvalidItem, "validate item", "", "%s assessment requires question items", t)
		}
		return it, validateQuestion(it.Question)
	case TypeCompatibility:
		if it.Pair == nil {
			return Item{}, Errf(KindInvalidItem, "validate item", "", "%s assessment requires pair items", t)
		}
		p := it.Pair
		p.LeftComponentLabel = strings.TrimSpace(p.LeftComponentLabel)
		p.LeftHardwareLabel = strings.TrimSpace(p.LeftHardwareLabel)
		p.RightComponentLabel = strings.TrimSpace(p.RightComponentLabel)
		if p.LeftComponentLabel == "" || p.LeftHardwareLabel == "" || p.RightComponentLabel == "" {
			return Item{}, Errf(KindInvalidItem, "validate item", "", "pair needs left component, left hardware and right component labels")
		}
		return it, nil
	case TypePartPicker, TypeFinalBuild:
		if it.Part == nil {
			return Item{}, Errf(KindInvalidItem, "validate item", "", "%s assessment requires part items", t)
		}
		p := it.Part
		p.PartLabel = strings.TrimSpace(p.PartLabel)
		if p.PartLabel == "" {
			return Item{}, Errf(KindInvalidItem, "validate item", "", "part label required")
		}
		if p.SlotCount < 0 {
			return Item{}, Errf(KindInvalidItem, "validate item", "", "slot count must not be negative")
		}
		if p.SlotCount > 1 && !p.IsMemory() {
			return Item{}, Errf(KindInvalidItem, "validate item", "", "only memory parts may have multiple slots, got %q", p.PartLabel)
		}
		if p.SlotCount == 1 {
			p.SlotCount = 0
		}
		return it, nil
	}
	return Item{}, Errf(KindInvalidItem, "validate item", "", "unknown assessment type %q", t)
}

func validateQuestion(q *Question) error {
	q.Prompt = strings.TrimSpace(q.Prompt)
	if q.Prompt == "" {
		return Errf(KindInvalidItem, "validate item", "", "question prompt required")
	}
	switch q.Kind {
	case KindMultipleChoice:
		if len(q.Choices) < 2 {
			return Errf(KindInvalidItem, "validate item", "", "multiple choice needs at least two choices")
		}
		c, ok := q.CorrectChoice()
		if !ok {
			return Errf(KindInvalidItem, "validate item", "", "correct answer %q is not one of the choices", q.CorrectAnswer)
		}
		// store the text so reordering choices keeps the key valid
		q.CorrectAnswer = c
	case KindFillBlank:
		if strings.TrimSpace(q.CorrectAnswer) == "" {
			return Errf(KindInvalidItem, "validate item", "", "fill-in-the-blank needs an answer")
		}
		q.Choices = nil
	case KindTrueFalse:
		v, err := strconv.ParseBool(strings.TrimSpace(q.CorrectAnswer))
		if err != nil {
			return Errf(KindInvalidItem, "validate item", "", "true/false answer must be TRUE or FALSE, got %q", q.CorrectAnswer)
		}
		q.CorrectAnswer = FormatBool(v)
		if len(q.Choices) == 0 {
			q.Choices = []string{"TRUE", "FALSE"}
		}
	default:
		return Errf(KindInvalidItem, "validate item", "", "unknown question kind %q", q.Kind)
	}
	return nil
}

// CorrectChoice resolves a multiple-choice answer to its choice text. The
// answer may be the text itself or a letter ("a", "B") naming a position.
func (q Question) CorrectChoice() (string, bool) {
	for _, c := range q.Choices {
		if c == q.CorrectAnswer {
			return c, true
		}
	}
	ans := strings.TrimSpace(q.CorrectAnswer)
	if len(ans) == 1 {
		idx := int(strings.ToLower(ans)[0]) - 'a'
		if idx >= 0 && idx < len(q.Choices) {
			return q.Choices[idx], true
		}
	}
	return "", false
}

// FormatBool renders booleans the way true/false questions store them.
func FormatBool(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}

// ValidateConstraints accepts an empty value or a JSON object.
func ValidateConstraints(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var obj map[string]any
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, &Error{Kind: KindInvalidItem, Op: "validate constraints", Msg: "constraints must be a JSON object", Err: err}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, &Error{Kind: KindInvalidItem, Op: "validate constraints", Msg: "constraints must be a JSON object", Err: err}
	}
	return json.RawMessage(buf.Bytes()), nil
}

// BuildConstraints is the typed view of constraints read by the build
// strategies. Unknown fields are kept in the raw document.
type BuildConstraints struct {
	CostLimit     float64 `json:"costLimit,omitempty"`
	Currency      string  `json:"currency,omitempty"`
	UseCase       string  `json:"useCase,omitempty"`
	PSUWattage    int     `json:"psuWattage,omitempty"`
	RequiredBrand string  `json:"requiredBrand,omitempty"`
}

// DecodeBuildConstraints reads constraints leniently; malformed documents
// yield the zero value.
func DecodeBuildConstraints(raw json.RawMessage) BuildConstraints {
	var c BuildConstraints
	if len(raw) == 0 {
		return c
	}
	_ = json.Unmarshal(raw, &c)
	return c
}
