// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline orchestrates one triage pass: fetch inbox items, parse
// their PDFs, classify them, and write collections, tags and a summary
// note back to the library.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/pdiddy/paperflow/internal/zotero"
	"github.com/pdiddy/paperflow/pkg/types"
)

// Library is the subset of the Zotero client the pipeline needs.
type Library interface {
	GetInboxItems(ctx context.Context) ([]types.LibraryItem, error)
	GetItemPDF(ctx context.Context, item types.LibraryItem) ([]byte, error)
	GetOrCreateCollection(ctx context.Context, name string) (string, error)
	AddToCollection(ctx context.Context, itemKey, collectionKey string) error
	AddTags(ctx context.Context, itemKey string, tags ...string) error
	AddNote(ctx context.Context, parentKey, html string) error
	MarkProcessed(ctx context.Context, itemKey string) error
	MarkSkipped(ctx context.Context, itemKey string) error
}

// Parser turns PDF bytes into text.
type Parser interface {
	Parse(pdfBytes []byte, cacheKey string) (types.ParsedPaper, error)
}

// Classifier produces a summary and classification for a parsed paper.
type Classifier interface {
	Process(ctx context.Context, paper types.ParsedPaper) (types.PaperSummary, types.Classification, error)
}

// Recorder persists processing outcomes. The history store implements it.
type Recorder interface {
	Record(result types.ProcessingResult) error
}

// Runner runs triage passes over the inbox.
type Runner struct {
	Library    Library
	Parser     Parser
	Classifier Classifier

	// Store may be nil, in which case outcomes are not persisted.
	Store Recorder

	Processing types.ProcessingConfig

	// Progress receives human-readable per-item lines. Nil discards them.
	Progress io.Writer
}

// RunOnce processes up to BatchSize unhandled inbox items and returns the
// outcome for each item it touched. Per-item failures are recorded and do
// not abort the pass; only inbox listing errors do.
func (r *Runner) RunOnce(ctx context.Context) ([]types.ProcessingResult, error) {
	items, err := r.Library.GetInboxItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing inbox: %w", err)
	}

	batchSize := r.Processing.BatchSize
	if batchSize <= 0 {
		batchSize = 5
	}

	var results []types.ProcessingResult
	for _, item := range items {
		if len(results) >= batchSize {
			break
		}
		if zotero.IsProcessed(item) || zotero.IsSkipped(item) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result := r.processItem(ctx, item)
		results = append(results, result)
		r.record(result)
	}

	slog.Info("pass complete", "touched", len(results), "inbox", len(items))
	return results, nil
}

func (r *Runner) processItem(ctx context.Context, item types.LibraryItem) types.ProcessingResult {
	result := types.ProcessingResult{ItemKey: item.Key, Title: item.Title}
	slog.Info("processing item", "key", item.Key, "title", item.Title)

	if !item.HasPDF {
		result.Status = types.StatusSkipped
		result.Error = "no PDF attachment"
		if !r.Processing.DryRun {
			if err := r.Library.MarkSkipped(ctx, item.Key); err != nil {
				slog.Warn("could not mark item skipped", "key", item.Key, "error", err)
			}
		}
		r.progressf("skip  %s  %s (no PDF)\n", item.Key, item.Title)
		return result
	}

	pdfBytes, err := r.Library.GetItemPDF(ctx, item)
	if err != nil {
		return r.fail(result, fmt.Errorf("downloading PDF: %w", err))
	}

	paper, err := r.Parser.Parse(pdfBytes, item.Key)
	if err != nil {
		return r.fail(result, fmt.Errorf("parsing PDF: %w", err))
	}
	// The library title is usually better than the heuristic one.
	if item.Title != "" {
		paper.Title = item.Title
	}

	summary, classification, err := r.Classifier.Process(ctx, paper)
	if err != nil {
		return r.fail(result, err)
	}
	result.Summary = &summary
	result.Classification = &classification

	if r.Processing.DryRun {
		result.Status = types.StatusCompleted
		r.progressf("dry   %s  %s -> %v %v\n", item.Key, item.Title, classification.Collections, classification.Tags)
		return result
	}

	if err := r.applyClassification(ctx, item, summary, classification); err != nil {
		return r.fail(result, err)
	}

	result.Status = types.StatusCompleted
	r.progressf("done  %s  %s -> %v\n", item.Key, item.Title, classification.Collections)
	return result
}

// applyClassification writes collections, tags and the summary note back
// to the library and marks the item processed.
func (r *Runner) applyClassification(ctx context.Context, item types.LibraryItem, summary types.PaperSummary, classification types.Classification) error {
	for _, name := range classification.Collections {
		key, err := r.Library.GetOrCreateCollection(ctx, name)
		if err != nil {
			return fmt.Errorf("resolving collection %q: %w", name, err)
		}
		if err := r.Library.AddToCollection(ctx, item.Key, key); err != nil {
			return fmt.Errorf("filing into %q: %w", name, err)
		}
	}

	if len(classification.Tags) > 0 {
		if err := r.Library.AddTags(ctx, item.Key, classification.Tags...); err != nil {
			return fmt.Errorf("tagging: %w", err)
		}
	}

	if r.Processing.AddSummaryNote {
		note := FormatNote(summary, classification)
		if err := r.Library.AddNote(ctx, item.Key, note); err != nil {
			return fmt.Errorf("attaching note: %w", err)
		}
	}

	if err := r.Library.MarkProcessed(ctx, item.Key); err != nil {
		return fmt.Errorf("marking processed: %w", err)
	}
	return nil
}

func (r *Runner) fail(result types.ProcessingResult, err error) types.ProcessingResult {
	result.Status = types.StatusFailed
	result.Error = err.Error()
	slog.Error("item failed", "key", result.ItemKey, "error", err)
	r.progressf("fail  %s  %s: %v\n", result.ItemKey, result.Title, err)
	return result
}

func (r *Runner) record(result types.ProcessingResult) {
	if r.Store == nil {
		return
	}
	if err := r.Store.Record(result); err != nil {
		slog.Warn("could not record result", "key", result.ItemKey, "error", err)
	}
}

func (r *Runner) progressf(format string, args ...any) {
	if r.Progress == nil {
		return
	}
	fmt.Fprintf(r.Progress, format, args...)
}
