// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify summarizes and files papers through an LLM provider:
// prompt construction, the gateway call with retry, tolerant recovery of
// JSON from model output, schema validation, and reconciliation of the
// result against the collection catalog.
// See docs/ARCHITECTURE § Classification.
package classify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pdiddy/paperflow/pkg/types"
)

const defaultPromptsDir = "prompts"

// unknownCollection is filed when the catalog itself is empty.
const unknownCollection = "Unknown"

// backoffBase scales the retry delays (2, 4, 8, ... x base). Tests override
// this to avoid real sleeps.
var backoffBase = time.Second

// ClassifierError is terminal: a stage exhausted its attempt budget. It
// wraps the last underlying GatewayError or ValidationError.
type ClassifierError struct {
	Stage    string
	Attempts int
	Err      error
}

func (e *ClassifierError) Error() string {
	return fmt.Sprintf("%s stage failed after %d attempts: %v", e.Stage, e.Attempts, e.Err)
}

func (e *ClassifierError) Unwrap() error { return e.Err }

// Classifier runs the two LLM stages against a read-only collection and tag
// catalog. Papers are processed one at a time; a Classifier holds no
// per-paper state.
type Classifier struct {
	// Gateway performs the chat-completion round trips.
	Gateway Gateway

	// PromptsDir holds optional summarize.md / classify.md template
	// overrides.
	PromptsDir string

	maxRetries  int
	collections []types.CollectionDef
	tags        []types.TagDef
}

// NewClassifier builds a Classifier backed by an OpenRouterGateway.
func NewClassifier(cfg types.LLMConfig, collections []types.CollectionDef, tags []types.TagDef) *Classifier {
	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 3
	}
	return &Classifier{
		Gateway:     &OpenRouterGateway{Config: cfg},
		PromptsDir:  defaultPromptsDir,
		maxRetries:  maxRetries,
		collections: collections,
		tags:        tags,
	}
}

// Summarize runs the summarize stage for one paper.
func (c *Classifier) Summarize(ctx context.Context, paper types.ParsedPaper) (types.PaperSummary, error) {
	return runStage(ctx, c, "summarize", c.buildSummarizePrompt(paper), SummarySchema)
}

// Classify runs the classify stage on a summary and reconciles the returned
// collections against the catalog.
func (c *Classifier) Classify(ctx context.Context, summary types.PaperSummary) (types.Classification, error) {
	result, err := runStage(ctx, c, "classify", c.buildClassifyPrompt(summary), ClassificationSchema)
	if err != nil {
		return types.Classification{}, err
	}
	result.Collections = c.reconcile(result.Collections)
	return result, nil
}

// Process runs summarize then classify. No partial state is persisted
// between the stages; if classify fails the summary is discarded with it.
func (c *Classifier) Process(ctx context.Context, paper types.ParsedPaper) (types.PaperSummary, types.Classification, error) {
	summary, err := c.Summarize(ctx, paper)
	if err != nil {
		return types.PaperSummary{}, types.Classification{}, err
	}
	classification, err := c.Classify(ctx, summary)
	if err != nil {
		return types.PaperSummary{}, types.Classification{}, err
	}
	return summary, classification, nil
}

// runStage executes one request -> extract -> validate unit under a shared
// retry budget. Gateway and validation failures retry alike: a parse
// failure may just be a bad sample that a fresh call fixes.
func runStage[T any](ctx context.Context, c *Classifier, stage, prompt string, schema Schema[T]) (T, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		raw, err := c.Gateway.Call(ctx, prompt)
		if err == nil {
			record, parseErr := Parse(schema, ExtractJSON(raw), raw)
			if parseErr == nil {
				return record, nil
			}
			err = parseErr
		}
		lastErr = err

		if attempt == c.maxRetries {
			break
		}
		delay := backoffDelay(attempt)
		slog.Warn("stage attempt failed, retrying",
			"stage", stage, "attempt", attempt, "max_retries", c.maxRetries,
			"backoff", delay, "error", err)
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	slog.Error("stage failed", "stage", stage, "attempts", c.maxRetries, "error", lastErr)
	var zero T
	return zero, &ClassifierError{Stage: stage, Attempts: c.maxRetries, Err: lastErr}
}

// backoffDelay returns the sleep before the attempt after this one:
// 2, 4, 8, ... seconds at the default base.
func backoffDelay(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * backoffBase
}

// reconcile filters names down to catalog entries (exact, case-sensitive).
// When nothing survives it substitutes a single fallback: the first catalog
// entry whose name contains "review" (case-insensitive), else the last
// catalog entry, else the Unknown sentinel for an empty catalog.
func (c *Classifier) reconcile(names []string) []string {
	valid := make(map[string]bool, len(c.collections))
	for _, def := range c.collections {
		valid[def.Name] = true
	}

	var kept []string
	for _, name := range names {
		if valid[name] {
			kept = append(kept, name)
		}
	}
	if len(kept) > 0 {
		return kept
	}

	for _, def := range c.collections {
		if strings.Contains(strings.ToLower(def.Name), "review") {
			return []string{def.Name}
		}
	}
	if len(c.collections) > 0 {
		return []string{c.collections[len(c.collections)-1].Name}
	}
	return []string{unknownCollection}
}
