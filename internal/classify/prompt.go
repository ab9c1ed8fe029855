// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/paperflow/pkg/types"
)

// maxPromptText caps the full-text portion of the summarize prompt.
const maxPromptText = 10000

// Prompt templates use literal placeholder replacement, not a templating
// language. Templates are loaded from <PromptsDir>/<stage>.md when present,
// otherwise the embedded defaults below apply.

const defaultSummarizePrompt = `You are a research assistant helping organize an academic paper library.

Given the following paper content, extract:

1. Summary (2-3 sentences): What is this paper about? What problem does it address?
2. Key Points (3-5 bullets): Main findings, contributions, or arguments
3. Methods (1-2 sentences): What methodology or approach was used?
4. Paper Type: One of [empirical, theoretical, review, methods, commentary]

## Paper Content

{content}

## Output Format

Respond with a single JSON object and no text outside it:
{"summary": "...", "key_points": ["...", "..."], "methods": "...", "paper_type": "..."}
`

const defaultClassifyPrompt = `You are a research librarian classifying papers into a personal collection.

Given the paper summary and the available collections/tags, determine:
1. Which collection(s) this paper belongs to (1-2 max)
2. Which tags apply

## Paper Summary

{summary}

## Available Collections

{collections}

## Available Tags

{tags}

## Output Format

Respond with a single JSON object and no text outside it:
{"collections": ["Collection Name"], "tags": ["tag1", "tag2"], "confidence": 0.85, "reasoning": "Brief explanation"}
`

func (c *Classifier) loadPrompt(name string) string {
	if c.PromptsDir != "" {
		if data, err := os.ReadFile(filepath.Join(c.PromptsDir, name+".md")); err == nil {
			return string(data)
		}
	}
	switch name {
	case "summarize":
		return defaultSummarizePrompt
	case "classify":
		return defaultClassifyPrompt
	}
	return ""
}

// buildSummarizePrompt renders the summarize template with the paper's
// title, abstract, and the first maxPromptText characters of full text.
// Missing optional fields are omitted from the rendered block.
func (c *Classifier) buildSummarizePrompt(paper types.ParsedPaper) string {
	var parts []string
	if paper.Title != "" {
		parts = append(parts, "Title: "+paper.Title)
	}
	if paper.Abstract != "" {
		parts = append(parts, "Abstract: "+paper.Abstract)
	}
	text := paper.FullText
	if len(text) > maxPromptText {
		text = text[:maxPromptText]
	}
	parts = append(parts, "Full text:\n"+text)

	return strings.ReplaceAll(c.loadPrompt("summarize"), "{content}", strings.Join(parts, "\n\n"))
}

// buildClassifyPrompt renders the classify template with the summary block
// and the collection and tag catalogs.
func (c *Classifier) buildClassifyPrompt(summary types.PaperSummary) string {
	var b strings.Builder
	b.WriteString("Summary: " + summary.Summary + "\n")
	b.WriteString("Key Points:\n")
	for _, p := range summary.KeyPoints {
		b.WriteString("- " + p + "\n")
	}
	b.WriteString("Methods: " + summary.Methods + "\n")
	b.WriteString("Paper Type: " + string(summary.PaperType))

	collections := make([]string, 0, len(c.collections))
	for _, def := range c.collections {
		line := fmt.Sprintf("- **%s**: %s", def.Name, def.Description)
		if len(def.Keywords) > 0 {
			line += " (keywords: " + strings.Join(def.Keywords, ", ") + ")"
		}
		collections = append(collections, line)
	}
	tags := make([]string, 0, len(c.tags))
	for _, def := range c.tags {
		tags = append(tags, fmt.Sprintf("- **%s**: %s", def.Name, def.Description))
	}

	prompt := c.loadPrompt("classify")
	prompt = strings.ReplaceAll(prompt, "{summary}", b.String())
	prompt = strings.ReplaceAll(prompt, "{collections}", strings.Join(collections, "\n"))
	prompt = strings.ReplaceAll(prompt, "{tags}", strings.Join(tags, "\n"))
	return prompt
}
