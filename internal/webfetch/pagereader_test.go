package webfetch

import (
	"context"
	"strings"
	"testing"
)

func TestFormatArticleIncludesMetadataAndTruncates(t *testing.T) {
	got := formatArticle("My Title", "Jane Doe", "Example Site", "Body text here.", "https://example.com/a", 1000)
	for _, want := range []string{"Title: My Title", "Author: Jane Doe", "Site: Example Site", "URL: https://example.com/a", "Body text here."} {
		if !strings.Contains(got, want) {
			t.Errorf("formatArticle() missing %q in output:\n%s", want, got)
		}
	}
}

func TestFormatArticleOmitsBlankMetadata(t *testing.T) {
	got := formatArticle("Title Only", "", "", "Body.", "https://example.com", 1000)
	if strings.Contains(got, "Author:") || strings.Contains(got, "Site:") {
		t.Errorf("formatArticle() should omit blank Author/Site lines, got:\n%s", got)
	}
}

func TestFormatArticleTruncatesLongContent(t *testing.T) {
	longText := strings.Repeat("x", 500)
	got := formatArticle("T", "", "", longText, "https://example.com", 50)
	if len(got) > 50+len("\n\n[Content truncated...]")+100 {
		t.Errorf("formatArticle() output length %d, want truncated near maxLen", len(got))
	}
	if !strings.Contains(got, "[Content truncated...]") {
		t.Error("formatArticle() should mark truncated content")
	}
}

func TestReadRejectsUnsafeURL(t *testing.T) {
	r := NewReader(DefaultConfig())
	if _, err := r.Read(context.Background(), "http://169.254.169.254/latest/meta-data", 0); err == nil {
		t.Error("Read() of a cloud metadata URL should be rejected before any network call")
	}
}

func TestReadManyPreservesOrderOnFailure(t *testing.T) {
	r := NewReader(DefaultConfig())
	urls := []string{"http://localhost/a", "http://169.254.169.254/b"}
	out := r.ReadMany(context.Background(), urls, 0)
	if len(out) != 2 {
		t.Fatalf("ReadMany() returned %d entries, want 2", len(out))
	}
	for i, o := range out {
		if !strings.Contains(o, "failed to read") {
			t.Errorf("ReadMany()[%d] = %q, want a failure marker since both URLs are blocked", i, o)
		}
	}
}
