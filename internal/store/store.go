package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/pcbuild-assess/internal/assessment"
)

// NewAssessment is the authoring input for Create.
type NewAssessment struct {
	Type        assessment.Type
	Title       string
	AuthorID    string
	Constraints json.RawMessage
	Items       []assessment.Item
}

// Store is keyed CRUD over assessment records. Each type lives in its own
// namespace as a JSON array; every mutation is one Backend transaction.
type Store struct {
	backend Backend
	now     func() time.Time
	newID   func(assessment.Type) string
}

type Option func(*Store)

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

func WithIDFunc(fn func(assessment.Type) string) Option { return func(s *Store) { s.newID = fn } }

func New(b Backend, opts ...Option) *Store {
	s := &Store{
		backend: b,
		now:     time.Now,
		newID: func(t assessment.Type) string {
			return t.IDPrefix() + "_" + uuid.NewString()
		},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Now is the store clock in UTC, so records compare equal after a JSON
// round trip.
func (s *Store) Now() time.Time { return s.now().UTC() }

func (s *Store) Create(ctx context.Context, in NewAssessment) (assessment.Assessment, error) {
	if !in.Type.Valid() {
		return assessment.Assessment{}, assessment.Errf(assessment.KindInvalidItem, "create", "", "unknown assessment type %q", in.Type)
	}
	constraints, err := assessment.ValidateConstraints(in.Constraints)
	if err != nil {
		return assessment.Assessment{}, err
	}
	a := assessment.Assessment{
		ID:          s.newID(in.Type),
		Type:        in.Type,
		Title:       in.Title,
		AuthorID:    in.AuthorID,
		CreatedAt:   s.Now(),
		Status:      assessment.StatusDraft,
		Constraints: constraints,
		Items:       make([]assessment.Item, 0, len(in.Items)),
		Submissions: map[string]assessment.Submission{},
	}
	for _, it := range in.Items {
		if err := a.AddItem(it); err != nil {
			return assessment.Assessment{}, err
		}
	}
	err = s.backend.Update(ctx, in.Type.Namespace(), func(doc []byte) ([]byte, error) {
		list, err := decode(doc)
		if err != nil {
			return nil, err
		}
		return encode(append(list, a))
	})
	if err != nil {
		return assessment.Assessment{}, assessment.StorageErr("create", err)
	}
	return a.Clone(), nil
}

func (s *Store) Get(ctx context.Context, id string) (assessment.Assessment, error) {
	for _, t := range s.candidates(id) {
		doc, err := s.backend.Load(ctx, t.Namespace())
		if err != nil {
			return assessment.Assessment{}, assessment.StorageErr("get", err)
		}
		list, err := decode(doc)
		if err != nil {
			return assessment.Assessment{}, assessment.StorageErr("get", err)
		}
		if i := indexOf(list, id); i >= 0 {
			return list[i], nil
		}
	}
	return assessment.Assessment{}, notFound("get", id)
}

// ListByType returns every assessment of t ordered by creation time.
func (s *Store) ListByType(ctx context.Context, t assessment.Type) ([]assessment.Assessment, error) {
	if !t.Valid() {
		return nil, assessment.Errf(assessment.KindInvalidItem, "list", "", "unknown assessment type %q", t)
	}
	doc, err := s.backend.Load(ctx, t.Namespace())
	if err != nil {
		return nil, assessment.StorageErr("list", err)
	}
	list, err := decode(doc)
	if err != nil {
		return nil, assessment.StorageErr("list", err)
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

// Mutate applies fn to the stored record inside one transaction and returns
// the written state. fn may run more than once on optimistic backends and
// must not have side effects beyond the record.
func (s *Store) Mutate(ctx context.Context, id string, op string, fn func(*assessment.Assessment) error) (assessment.Assessment, error) {
	var out assessment.Assessment
	for _, t := range s.candidates(id) {
		err := s.backend.Update(ctx, t.Namespace(), func(doc []byte) ([]byte, error) {
			list, err := decode(doc)
			if err != nil {
				return nil, err
			}
			i := indexOf(list, id)
			if i < 0 {
				return nil, errSkip
			}
			a := list[i]
			if err := fn(&a); err != nil {
				return nil, err
			}
			list[i] = a
			out = a.Clone()
			return encode(list)
		})
		if errors.Is(err, errSkip) {
			continue
		}
		if err != nil {
			return assessment.Assessment{}, assessment.StorageErr(op, err)
		}
		return out, nil
	}
	return assessment.Assessment{}, notFound(op, id)
}

func (s *Store) Deploy(ctx context.Context, id string) (assessment.Assessment, error) {
	now := s.Now()
	return s.Mutate(ctx, id, "deploy", func(a *assessment.Assessment) error {
		return a.Deploy(now)
	})
}

// Delete removes the assessment and, with it, every submission.
func (s *Store) Delete(ctx context.Context, id string) error {
	for _, t := range s.candidates(id) {
		err := s.backend.Update(ctx, t.Namespace(), func(doc []byte) ([]byte, error) {
			list, err := decode(doc)
			if err != nil {
				return nil, err
			}
			i := indexOf(list, id)
			if i < 0 {
				return nil, errSkip
			}
			return encode(append(list[:i], list[i+1:]...))
		})
		if errors.Is(err, errSkip) {
			continue
		}
		if err != nil {
			return assessment.StorageErr("delete", err)
		}
		return nil
	}
	return notFound("delete", id)
}

// UpsertSubmission records answers as an ungraded submission, replacing any
// earlier one from the same participant.
func (s *Store) UpsertSubmission(ctx context.Context, id, participantID string, answers assessment.Answers) (assessment.Submission, error) {
	sub := assessment.Submission{
		ParticipantID: participantID,
		SubmittedAt:   s.Now(),
		Answers:       answers.Clone(),
		Grading:       assessment.Grading{Kind: assessment.GradingUngraded},
	}
	a, err := s.Mutate(ctx, id, "submit", func(a *assessment.Assessment) error {
		return a.PutSubmission(sub)
	})
	if err != nil {
		return assessment.Submission{}, err
	}
	return a.Submissions[participantID], nil
}

func (s *Store) RecordGrading(ctx context.Context, id, participantID string, g assessment.Grading) (assessment.Submission, error) {
	a, err := s.Mutate(ctx, id, "record grading", func(a *assessment.Assessment) error {
		return a.SetGrading(participantID, g)
	})
	if err != nil {
		return assessment.Submission{}, err
	}
	return a.Submissions[participantID], nil
}

// candidates lists namespaces that may hold id: the one named by its prefix,
// or all of them for ids without a known prefix.
func (s *Store) candidates(id string) []assessment.Type {
	if t, ok := assessment.TypeFromID(id); ok {
		return []assessment.Type{t}
	}
	return assessment.Types
}

type skipError struct{}

func (skipError) Error() string { return "store: record not in namespace" }

var errSkip error = skipError{}

func notFound(op, id string) error {
	return assessment.Errf(assessment.KindNotFound, op, id, "assessment not found")
}

func indexOf(list []assessment.Assessment, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

func decode(doc []byte) ([]assessment.Assessment, error) {
	if len(doc) == 0 {
		return nil, nil
	}
	var list []assessment.Assessment
	if err := json.Unmarshal(doc, &list); err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].Submissions == nil {
			list[i].Submissions = map[string]assessment.Submission{}
		}
		if list[i].Items == nil {
			list[i].Items = []assessment.Item{}
		}
	}
	return list, nil
}

func encode(list []assessment.Assessment) ([]byte, error) {
	if list == nil {
		list = []assessment.Assessment{}
	}
	return json.Marshal(list)
}
