// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"encoding/json"
	"fmt"

	"github.com/pdiddy/paperflow/pkg/types"
)

// ValidationError reports a candidate that is not valid JSON or violates a
// schema constraint. It carries both the extractor's candidate and the
// original raw response so operators can see what the recovery passes did.
// Always retryable within the stage budget: a bad sample from a stochastic
// provider, not a permanent defect.
type ValidationError struct {
	Schema    string
	Candidate string
	Raw       string
	Err       error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s response: %v (candidate: %s, raw: %s)",
		e.Schema, e.Err, snippet(e.Candidate), snippet(e.Raw))
}

func (e *ValidationError) Unwrap() error { return e.Err }

func snippet(s string) string {
	const max = 160
	if len(s) > max {
		return fmt.Sprintf("%q...", s[:max])
	}
	return fmt.Sprintf("%q", s)
}

// Schema describes one of the two response shapes the validator accepts.
// Replaces the historical duck-typed model dispatch with an explicit
// descriptor.
type Schema[T any] struct {
	// Name labels the schema in errors.
	Name string

	// Build decodes candidate JSON and enforces field constraints.
	Build func(data []byte) (T, error)
}

// SummarySchema maps candidates onto PaperSummary.
var SummarySchema = Schema[types.PaperSummary]{Name: "summary", Build: buildSummary}

// ClassificationSchema maps candidates onto Classification.
var ClassificationSchema = Schema[types.Classification]{Name: "classification", Build: buildClassification}

// Parse is the terminal point of the parse pipeline: it validates candidate
// against s and wraps any failure with both candidate and raw text.
func Parse[T any](s Schema[T], candidate, raw string) (T, error) {
	record, err := s.Build([]byte(candidate))
	if err != nil {
		var zero T
		return zero, &ValidationError{Schema: s.Name, Candidate: candidate, Raw: raw, Err: err}
	}
	return record, nil
}

// Pointer fields distinguish an absent key from a present-but-zero value.

func buildSummary(data []byte) (types.PaperSummary, error) {
	var p struct {
		Summary   *string  `json:"summary"`
		KeyPoints []string `json:"key_points"`
		Methods   *string  `json:"methods"`
		PaperType *string  `json:"paper_type"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return types.PaperSummary{}, fmt.Errorf("decoding JSON: %w", err)
	}
	if p.Summary == nil || *p.Summary == "" {
		return types.PaperSummary{}, fmt.Errorf("missing summary")
	}
	if len(p.KeyPoints) == 0 {
		return types.PaperSummary{}, fmt.Errorf("key_points must contain at least one entry")
	}
	if p.Methods == nil {
		return types.PaperSummary{}, fmt.Errorf("missing methods")
	}
	if p.PaperType == nil {
		return types.PaperSummary{}, fmt.Errorf("missing paper_type")
	}
	paperType := types.PaperType(*p.PaperType)
	if !types.ValidPaperType(paperType) {
		return types.PaperSummary{}, fmt.Errorf("unknown paper_type %q", *p.PaperType)
	}
	return types.PaperSummary{
		Summary:   *p.Summary,
		KeyPoints: p.KeyPoints,
		Methods:   *p.Methods,
		PaperType: paperType,
	}, nil
}

func buildClassification(data []byte) (types.Classification, error) {
	var p struct {
		Collections []string `json:"collections"`
		Tags        []string `json:"tags"`
		Confidence  *float64 `json:"confidence"`
		Reasoning   *string  `json:"reasoning"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return types.Classification{}, fmt.Errorf("decoding JSON: %w", err)
	}
	if len(p.Collections) == 0 {
		return types.Classification{}, fmt.Errorf("collections must contain at least one entry")
	}
	if p.Confidence == nil {
		return types.Classification{}, fmt.Errorf("missing confidence")
	}
	if *p.Confidence < 0.0 || *p.Confidence > 1.0 {
		return types.Classification{}, fmt.Errorf("confidence %v out of range [0,1]", *p.Confidence)
	}
	if p.Reasoning == nil {
		return types.Classification{}, fmt.Errorf("missing reasoning")
	}
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return types.Classification{
		Collections: p.Collections,
		Tags:        tags,
		Confidence:  *p.Confidence,
		Reasoning:   *p.Reasoning,
	}, nil
}
