// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/pdiddy/paperflow/internal/zotero"
	"github.com/pdiddy/paperflow/pkg/types"
)

type fakeLibrary struct {
	items       []types.LibraryItem
	listErr     error
	pdfErr      error
	collections map[string]string

	added     []string // "itemKey->collectionKey"
	tagged    map[string][]string
	notes     map[string]string
	processed []string
	skipped   []string
}

func newFakeLibrary(items ...types.LibraryItem) *fakeLibrary {
	return &fakeLibrary{
		items:       items,
		collections: map[string]string{},
		tagged:      map[string][]string{},
		notes:       map[string]string{},
	}
}

func (f *fakeLibrary) GetInboxItems(context.Context) ([]types.LibraryItem, error) {
	return f.items, f.listErr
}

func (f *fakeLibrary) GetItemPDF(_ context.Context, item types.LibraryItem) ([]byte, error) {
	if f.pdfErr != nil {
		return nil, f.pdfErr
	}
	return []byte("%PDF " + item.Key), nil
}

func (f *fakeLibrary) GetOrCreateCollection(_ context.Context, name string) (string, error) {
	if key, ok := f.collections[name]; ok {
		return key, nil
	}
	key := fmt.Sprintf("KEY%d", len(f.collections)+1)
	f.collections[name] = key
	return key, nil
}

func (f *fakeLibrary) AddToCollection(_ context.Context, itemKey, collectionKey string) error {
	f.added = append(f.added, itemKey+"->"+collectionKey)
	return nil
}

func (f *fakeLibrary) AddTags(_ context.Context, itemKey string, tags ...string) error {
	f.tagged[itemKey] = append(f.tagged[itemKey], tags...)
	return nil
}

func (f *fakeLibrary) AddNote(_ context.Context, parentKey, html string) error {
	f.notes[parentKey] = html
	return nil
}

func (f *fakeLibrary) MarkProcessed(_ context.Context, itemKey string) error {
	f.processed = append(f.processed, itemKey)
	return nil
}

func (f *fakeLibrary) MarkSkipped(_ context.Context, itemKey string) error {
	f.skipped = append(f.skipped, itemKey)
	return nil
}

type fakeParser struct {
	err  error
	keys []string
}

func (f *fakeParser) Parse(_ []byte, cacheKey string) (types.ParsedPaper, error) {
	f.keys = append(f.keys, cacheKey)
	if f.err != nil {
		return types.ParsedPaper{}, f.err
	}
	return types.ParsedPaper{Title: "heuristic title", FullText: "body"}, nil
}

type fakeClassifier struct {
	err    error
	papers []types.ParsedPaper
}

func (f *fakeClassifier) Process(_ context.Context, paper types.ParsedPaper) (types.PaperSummary, types.Classification, error) {
	f.papers = append(f.papers, paper)
	if f.err != nil {
		return types.PaperSummary{}, types.Classification{}, f.err
	}
	return types.PaperSummary{Summary: "s", KeyPoints: []string{"k"}, PaperType: types.PaperEmpirical},
		types.Classification{Collections: []string{"ML / Deep Learning"}, Tags: []string{"foundational"}, Confidence: 0.9},
		nil
}

type fakeRecorder struct {
	recorded []types.ProcessingResult
}

func (f *fakeRecorder) Record(r types.ProcessingResult) error {
	f.recorded = append(f.recorded, r)
	return nil
}

func pdfItem(key, title string) types.LibraryItem {
	return types.LibraryItem{Key: key, Title: title, HasPDF: true, PDFAttachmentKey: key + "-PDF"}
}

func testRunner(lib *fakeLibrary) (*Runner, *fakeRecorder) {
	rec := &fakeRecorder{}
	return &Runner{
		Library:    lib,
		Parser:     &fakeParser{},
		Classifier: &fakeClassifier{},
		Store:      rec,
		Processing: types.ProcessingConfig{BatchSize: 5, AddSummaryNote: true},
	}, rec
}

func TestRunOnceProcessesItem(t *testing.T) {
	lib := newFakeLibrary(pdfItem("ITEM1", "Attention Is All You Need"))
	r, rec := testRunner(lib)
	classifier := &fakeClassifier{}
	r.Classifier = classifier

	results, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Status != types.StatusCompleted {
		t.Fatalf("results = %+v", results)
	}

	// Library title overrides the heuristic one before classification.
	if classifier.papers[0].Title != "Attention Is All You Need" {
		t.Errorf("classified title = %q", classifier.papers[0].Title)
	}

	if len(lib.added) != 1 || lib.added[0] != "ITEM1->KEY1" {
		t.Errorf("collection writes = %v", lib.added)
	}
	if got := lib.tagged["ITEM1"]; len(got) != 1 || got[0] != "foundational" {
		t.Errorf("tags = %v", got)
	}
	if _, ok := lib.notes["ITEM1"]; !ok {
		t.Error("summary note not attached")
	}
	if len(lib.processed) != 1 || lib.processed[0] != "ITEM1" {
		t.Errorf("processed = %v", lib.processed)
	}
	if len(rec.recorded) != 1 || rec.recorded[0].Status != types.StatusCompleted {
		t.Errorf("recorded = %+v", rec.recorded)
	}
}

func TestRunOnceSkipsHandledItems(t *testing.T) {
	lib := newFakeLibrary(
		types.LibraryItem{Key: "DONE", HasPDF: true, Tags: []string{zotero.ProcessedTag}},
		types.LibraryItem{Key: "SKIP", HasPDF: true, Tags: []string{zotero.SkippedTag}},
		pdfItem("FRESH", "New Paper"),
	)
	r, _ := testRunner(lib)

	results, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ItemKey != "FRESH" {
		t.Errorf("results = %+v", results)
	}
}

func TestRunOnceNoPDF(t *testing.T) {
	lib := newFakeLibrary(types.LibraryItem{Key: "NOPDF", Title: "Scanned Book"})
	r, rec := testRunner(lib)

	results, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Status != types.StatusSkipped {
		t.Errorf("status = %s", results[0].Status)
	}
	if len(lib.skipped) != 1 || lib.skipped[0] != "NOPDF" {
		t.Errorf("skipped = %v", lib.skipped)
	}
	if rec.recorded[0].Error != "no PDF attachment" {
		t.Errorf("recorded error = %q", rec.recorded[0].Error)
	}
}

func TestRunOnceDryRun(t *testing.T) {
	lib := newFakeLibrary(pdfItem("ITEM1", "Paper"), types.LibraryItem{Key: "NOPDF"})
	r, _ := testRunner(lib)
	r.Processing.DryRun = true

	results, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Status != types.StatusCompleted {
		t.Errorf("status = %s", results[0].Status)
	}
	if results[0].Classification == nil {
		t.Error("dry run should still classify")
	}

	if len(lib.added)+len(lib.tagged)+len(lib.notes)+len(lib.processed)+len(lib.skipped) != 0 {
		t.Errorf("dry run wrote to library: added=%v tagged=%v notes=%v processed=%v skipped=%v",
			lib.added, lib.tagged, lib.notes, lib.processed, lib.skipped)
	}
}

func TestRunOnceBatchLimit(t *testing.T) {
	lib := newFakeLibrary(pdfItem("A", ""), pdfItem("B", ""), pdfItem("C", ""))
	r, _ := testRunner(lib)
	r.Processing.BatchSize = 2

	results, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("processed %d items, want 2", len(results))
	}
}

func TestRunOnceClassifierFailureContinues(t *testing.T) {
	lib := newFakeLibrary(pdfItem("BAD", "Broken"), pdfItem("GOOD", "Fine"))
	r, rec := testRunner(lib)

	failing := &fakeClassifier{}
	r.Classifier = classifierFunc(func(ctx context.Context, paper types.ParsedPaper) (types.PaperSummary, types.Classification, error) {
		if paper.Title == "Broken" {
			return types.PaperSummary{}, types.Classification{}, errors.New("model exploded")
		}
		return failing.Process(ctx, paper)
	})

	results, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %+v", results)
	}
	if results[0].Status != types.StatusFailed || !strings.Contains(results[0].Error, "model exploded") {
		t.Errorf("first result = %+v", results[0])
	}
	if results[1].Status != types.StatusCompleted {
		t.Errorf("second result = %+v", results[1])
	}
	if len(rec.recorded) != 2 {
		t.Errorf("recorded %d results", len(rec.recorded))
	}
	// The failed item stays untouched so a later run can retry it.
	if len(lib.processed) != 1 || lib.processed[0] != "GOOD" {
		t.Errorf("processed = %v", lib.processed)
	}
}

type classifierFunc func(context.Context, types.ParsedPaper) (types.PaperSummary, types.Classification, error)

func (f classifierFunc) Process(ctx context.Context, paper types.ParsedPaper) (types.PaperSummary, types.Classification, error) {
	return f(ctx, paper)
}

func TestRunOnceNoteDisabled(t *testing.T) {
	lib := newFakeLibrary(pdfItem("ITEM1", "Paper"))
	r, _ := testRunner(lib)
	r.Processing.AddSummaryNote = false

	if _, err := r.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(lib.notes) != 0 {
		t.Errorf("note attached despite add_summary_note=false: %v", lib.notes)
	}
}

func TestRunOnceListError(t *testing.T) {
	lib := newFakeLibrary()
	lib.listErr = errors.New("API down")
	r, _ := testRunner(lib)

	_, err := r.RunOnce(context.Background())
	if err == nil || !strings.Contains(err.Error(), "API down") {
		t.Errorf("err = %v", err)
	}
}
