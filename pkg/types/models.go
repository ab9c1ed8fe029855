// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds the records and configuration structs shared across
// paperflow stages. See docs/ARCHITECTURE § Data Model.
package types

// PaperType classifies the methodological genre of a paper.
type PaperType string

const (
	PaperEmpirical   PaperType = "empirical"
	PaperTheoretical PaperType = "theoretical"
	PaperReview      PaperType = "review"
	PaperMethods     PaperType = "methods"
	PaperCommentary  PaperType = "commentary"
)

// ValidPaperType reports whether t is one of the five accepted genres.
func ValidPaperType(t PaperType) bool {
	switch t {
	case PaperEmpirical, PaperTheoretical, PaperReview, PaperMethods, PaperCommentary:
		return true
	}
	return false
}

// PaperSummary is the structured summary the model produces for one paper.
// Immutable once the summarize stage returns it.
type PaperSummary struct {
	// Summary is a 2-3 sentence description of the paper.
	Summary string `json:"summary" yaml:"summary"`

	// KeyPoints lists the main findings or contributions, at least one.
	KeyPoints []string `json:"key_points" yaml:"key_points"`

	// Methods describes the methodology or approach used.
	Methods string `json:"methods" yaml:"methods"`

	// PaperType is the methodological genre.
	PaperType PaperType `json:"paper_type" yaml:"paper_type"`
}

// Classification is the model's placement of a paper into the library.
// Collections may be rewritten by reconciliation; the other fields pass
// through untouched.
type Classification struct {
	// Collections names the collections to file the paper under, at least one.
	Collections []string `json:"collections" yaml:"collections"`

	// Tags lists tag names to apply, possibly empty.
	Tags []string `json:"tags" yaml:"tags"`

	// Confidence is the model's self-reported confidence in [0,1].
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// Reasoning is a brief free-text explanation.
	Reasoning string `json:"reasoning" yaml:"reasoning"`
}

// ParsedPaper is the text content extracted from a PDF attachment.
type ParsedPaper struct {
	// Title is the paper title, empty when the heuristics found none.
	Title string `json:"title" yaml:"title"`

	// Abstract is the abstract text, empty when not located.
	Abstract string `json:"abstract" yaml:"abstract"`

	// FullText is the extracted plain text.
	FullText string `json:"full_text" yaml:"full_text"`

	// PageCount is the number of pages in the source document.
	PageCount int `json:"page_count" yaml:"page_count"`

	// Truncated reports whether extraction stopped at the page limit.
	Truncated bool `json:"truncated" yaml:"truncated"`
}

// LibraryItem is a top-level item in the Zotero library.
type LibraryItem struct {
	// Key is the Zotero item key.
	Key string `json:"key" yaml:"key"`

	// Title is the item title.
	Title string `json:"title" yaml:"title"`

	// Creators lists formatted author names in source order.
	Creators []string `json:"creators" yaml:"creators"`

	// ItemType is the Zotero item type (journalArticle, preprint, ...).
	ItemType string `json:"item_type" yaml:"item_type"`

	// Collections lists the keys of collections the item belongs to.
	Collections []string `json:"collections" yaml:"collections"`

	// Tags lists the item's existing tag names.
	Tags []string `json:"tags" yaml:"tags"`

	// HasPDF reports whether a PDF child attachment exists.
	HasPDF bool `json:"has_pdf" yaml:"has_pdf"`

	// PDFAttachmentKey is the key of the PDF attachment, empty when none.
	PDFAttachmentKey string `json:"pdf_attachment_key,omitempty" yaml:"pdf_attachment_key,omitempty"`
}

// ProcessingStatus is the outcome of one item's processing run.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
	StatusSkipped    ProcessingStatus = "skipped"
)

// ProcessingResult records how a single inbox item was handled.
type ProcessingResult struct {
	// ItemKey is the Zotero key of the processed item.
	ItemKey string `json:"item_key" yaml:"item_key"`

	// Title is the item title at processing time.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Status is the outcome.
	Status ProcessingStatus `json:"status" yaml:"status"`

	// Summary is the generated summary, nil unless completed.
	Summary *PaperSummary `json:"summary,omitempty" yaml:"summary,omitempty"`

	// Classification is the reconciled classification, nil unless completed.
	Classification *Classification `json:"classification,omitempty" yaml:"classification,omitempty"`

	// Error holds the failure or skip reason.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}
