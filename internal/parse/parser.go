// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package parse extracts text content from PDF attachments and caches the
// result per item so repeated runs do not re-parse the same paper.
package parse

import (
	"bytes"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/pdiddy/paperflow/pkg/types"
)

// ParseError reports a PDF that could not be read or yielded no text.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parsing PDF: %v", e.Err) }

func (e *ParseError) Unwrap() error { return e.Err }

// Parser extracts text from PDF bytes with a page limit and a flat
// key->file cache.
type Parser struct {
	cfg   types.ParserConfig
	cache *cache
}

// NewParser builds a Parser and ensures the cache directory exists.
func NewParser(cfg types.ParserConfig) (*Parser, error) {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 10
	}
	c, err := newCache(cfg.CacheDir)
	if err != nil {
		return nil, err
	}
	return &Parser{cfg: cfg, cache: c}, nil
}

// Parse extracts text from pdfBytes. When cacheKey is non-empty a cached
// result is returned if present, and a fresh result is stored on success.
func (p *Parser) Parse(pdfBytes []byte, cacheKey string) (types.ParsedPaper, error) {
	if cacheKey != "" {
		if paper, ok := p.cache.get(cacheKey); ok {
			slog.Debug("parse cache hit", "key", cacheKey)
			return paper, nil
		}
	}

	paper, err := extractText(pdfBytes, p.cfg.MaxPages)
	if err != nil {
		return types.ParsedPaper{}, &ParseError{Err: err}
	}

	paper.Title = extractTitle(paper.FullText)
	paper.Abstract = extractAbstract(paper.FullText)

	if cacheKey != "" {
		if err := p.cache.put(cacheKey, paper); err != nil {
			slog.Warn("parse cache write failed", "key", cacheKey, "error", err)
		}
	}
	return paper, nil
}

func extractText(data []byte, maxPages int) (types.ParsedPaper, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return types.ParsedPaper{}, fmt.Errorf("opening PDF: %w", err)
	}

	pageCount := reader.NumPage()
	if pageCount == 0 {
		return types.ParsedPaper{}, fmt.Errorf("PDF has no pages")
	}

	limit := pageCount
	if limit > maxPages {
		limit = maxPages
	}

	var b strings.Builder
	for i := 1; i <= limit; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Unreadable pages are skipped, not fatal: scanned or
			// malformed pages are common in preprint PDFs.
			slog.Debug("skipping unreadable page", "page", i, "error", err)
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	fullText := strings.TrimSpace(b.String())
	if fullText == "" {
		return types.ParsedPaper{}, fmt.Errorf("no extractable text")
	}

	return types.ParsedPaper{
		FullText:  fullText,
		PageCount: pageCount,
		Truncated: pageCount > maxPages,
	}, nil
}

// extractTitle takes the first non-empty line that looks like a heading
// rather than a running header or page number.
func extractTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < 4 || len(line) > 300 {
			continue
		}
		if !strings.ContainsAny(line, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ") {
			continue
		}
		return line
	}
	return ""
}

var abstractEndRE = regexp.MustCompile(`(?i)\b(?:1\s*\.?\s*)?introduction\b`)

// extractAbstract takes the text following the first "abstract" marker, up
// to the introduction heading or a fixed length cap.
func extractAbstract(text string) string {
	const maxLen = 2000

	lower := strings.ToLower(text)
	idx := strings.Index(lower, "abstract")
	if idx < 0 {
		return ""
	}
	rest := text[idx+len("abstract"):]
	rest = strings.TrimLeft(rest, " \t\n\r:.-")

	if loc := abstractEndRE.FindStringIndex(rest); loc != nil {
		rest = rest[:loc[0]]
	}
	if len(rest) > maxLen {
		rest = rest[:maxLen]
	}
	return strings.TrimSpace(rest)
}
