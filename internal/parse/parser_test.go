package parse

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdiddy/paperflow/pkg/types"
)

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "first substantial line",
			text: "Attention Is All You Need\nAshish Vaswani et al.\nAbstract ...",
			want: "Attention Is All You Need",
		},
		{
			name: "skips page numbers",
			text: "1\n\nDeep Residual Learning\nbody",
			want: "Deep Residual Learning",
		},
		{
			name: "skips overlong lines",
			text: strings.Repeat("x", 400) + "\nA Short Title\nbody",
			want: "A Short Title",
		},
		{
			name: "no candidate",
			text: "1\n2\n3",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractTitle(tt.text); got != tt.want {
				t.Errorf("extractTitle = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractAbstract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "bounded by introduction",
			text: "Title\nAbstract: We study attention mechanisms.\n1. Introduction\nThe field...",
			want: "We study attention mechanisms.",
		},
		{
			name: "case-insensitive marker",
			text: "Title\nABSTRACT\nShort and sweet.",
			want: "Short and sweet.",
		},
		{
			name: "no marker",
			text: "Title\nJust body text.",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractAbstract(tt.text); got != tt.want {
				t.Errorf("extractAbstract = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c, err := newCache(dir)
	if err != nil {
		t.Fatal(err)
	}

	paper := types.ParsedPaper{
		Title:     "T",
		Abstract:  "A",
		FullText:  "body",
		PageCount: 12,
		Truncated: true,
	}
	if err := c.put("ABCD1234", paper); err != nil {
		t.Fatal(err)
	}

	got, ok := c.get("ABCD1234")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got != paper {
		t.Errorf("got %+v, want %+v", got, paper)
	}

	if _, ok := c.get("other-key"); ok {
		t.Error("unexpected hit for different key")
	}
}

func TestCacheCorruptEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	c, err := newCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(c.path("k"), []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.get("k"); ok {
		t.Error("corrupt entry should read as a miss")
	}
}

func TestCacheKeyHashing(t *testing.T) {
	c := &cache{dir: "d"}
	p := c.path("weird/key with spaces")
	if filepath.Dir(p) != "d" {
		t.Errorf("path escaped cache dir: %s", p)
	}
	if !strings.HasSuffix(p, ".json") {
		t.Errorf("path = %s, want .json suffix", p)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	p, err := NewParser(types.ParserConfig{CacheDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	_, err = p.Parse([]byte("not a pdf"), "")
	if err == nil {
		t.Fatal("expected error for non-PDF bytes")
	}
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Errorf("error is %T, want *ParseError", err)
	}
}
