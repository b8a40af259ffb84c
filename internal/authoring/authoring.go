// Package authoring loads assessment definitions from YAML files and
// imports them through the lifecycle controller.
package authoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mind-engage/pcbuild-assess/internal/assessment"
	"github.com/mind-engage/pcbuild-assess/internal/lifecycle"
	"github.com/mind-engage/pcbuild-assess/internal/store"
)

type File struct {
	Assessments []Definition `yaml:"assessments"`
}

type Definition struct {
	Type        string            `yaml:"type"`
	Title       string            `yaml:"title"`
	Deploy      bool              `yaml:"deploy"`
	Constraints map[string]any    `yaml:"constraints"`
	Items       []assessment.Item `yaml:"items"`
}

// Parse decodes a definition file. Unknown keys are rejected so typos in
// item fields do not silently drop data.
func Parse(r io.Reader) (File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return File{}, errors.New("authoring: empty definition file")
		}
		return File{}, fmt.Errorf("authoring: parse: %w", err)
	}
	if len(f.Assessments) == 0 {
		return File{}, errors.New("authoring: no assessments defined")
	}
	return f, nil
}

func LoadFile(path string) (File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return File{}, err
	}
	return Parse(bytes.NewReader(b))
}

// Build converts the definition into Create input, validating every item.
func (d Definition) Build(author string) (store.NewAssessment, error) {
	t, ok := assessment.ParseType(d.Type)
	if !ok {
		return store.NewAssessment{}, fmt.Errorf("unknown type %q", d.Type)
	}
	var raw json.RawMessage
	if len(d.Constraints) > 0 {
		b, err := json.Marshal(d.Constraints)
		if err != nil {
			return store.NewAssessment{}, fmt.Errorf("constraints: %w", err)
		}
		raw = b
	}
	for i, it := range d.Items {
		if _, err := assessment.ValidateItem(t, it); err != nil {
			return store.NewAssessment{}, fmt.Errorf("item %d: %w", i, err)
		}
	}
	return store.NewAssessment{
		Type:        t,
		Title:       d.Title,
		AuthorID:    author,
		Constraints: raw,
		Items:       d.Items,
	}, nil
}

type ImportOptions struct {
	Author string
	Deploy bool // deploy every assessment, regardless of per-definition flags
}

// Import validates the whole file first, then creates (and optionally
// deploys) each assessment in order. A failure part-way through returns the
// assessments created so far.
func Import(ctx context.Context, ctl *lifecycle.Controller, f File, opts ImportOptions) ([]assessment.Assessment, error) {
	inputs := make([]store.NewAssessment, len(f.Assessments))
	for i, d := range f.Assessments {
		in, err := d.Build(opts.Author)
		if err != nil {
			return nil, fmt.Errorf("assessment %d (%s): %w", i, d.Title, err)
		}
		inputs[i] = in
	}
	out := make([]assessment.Assessment, 0, len(inputs))
	for i, in := range inputs {
		a, err := ctl.Create(ctx, in)
		if err != nil {
			return out, fmt.Errorf("create %d: %w", i, err)
		}
		if opts.Deploy || f.Assessments[i].Deploy {
			d, err := ctl.Deploy(ctx, a.ID)
			if err != nil {
				return out, fmt.Errorf("deploy %s: %w", a.ID, err)
			}
			a = d
		}
		out = append(out, a)
	}
	return out, nil
}
