package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	assert.Equal(t, "hello-world-2026", Slugify("Héllo, World! 2026"))
	assert.Equal(t, "nasal-spray", Slugify("  Nasal   Spray  "))
	assert.Equal(t, "", Slugify("!!!"))
}

func TestPlainText_StripsMarkup(t *testing.T) {
	in := "## Title\n\n<p>Hello <b>there</b></p> see [docs](http://x) ![alt](a.png)"
	assert.Equal(t, "Title Hello there see docs", PlainText(in))
}

func TestReadingTimeMinutes(t *testing.T) {
	assert.Equal(t, 1, ReadingTimeMinutes(""))
	assert.Equal(t, 1, ReadingTimeMinutes(strings.Repeat("word ", 200)))
	assert.Equal(t, 3, ReadingTimeMinutes(strings.Repeat("word ", 450)))
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short text", Excerpt("short text", 160))
	assert.Equal(t, "one two...", Excerpt("one two three four", 9))
}

func TestCountSyllables(t *testing.T) {
	assert.Equal(t, 1, CountSyllables("cat"))
	assert.Equal(t, 2, CountSyllables("table"))
	assert.Equal(t, 1, CountSyllables("make"))
	assert.Equal(t, 1, CountSyllables("rhythm"))
}

func TestReadability(t *testing.T) {
	assert.Equal(t, 0.0, Readability(""))
	// 短い単音節の文は上限に丸められる
	assert.Equal(t, 100.0, Readability("The cat sat on the mat."))
}

func TestAuditSEO_AllChecksPass(t *testing.T) {
	body := "Our nasal spray guide explains everything.\n\n" +
		"## Why it matters\n\n" +
		strings.Repeat("word ", 300) +
		"\n\nSee [our shop](https://example.com) and ![nasal spray bottle](img.png). Try nasal spray today."

	r := AuditSEO(SEOInput{
		Title:           "The Complete Nasal Spray Guide for Allergy Season",
		Slug:            "complete-nasal-spray-guide",
		MetaDescription: "nasal spray tips " + strings.Repeat("a", 110),
		FocusKeyword:    "Nasal Spray",
		Content:         body,
	})

	for _, c := range r.Checks {
		assert.True(t, c.Passed, "check %s failed: %s", c.Name, c.Message)
	}
	assert.Equal(t, 100, r.Score)
	assert.Equal(t, 317, r.WordCount)
	assert.InDelta(t, 1.26, r.KeywordDensity, 0.01)
}

func TestAuditSEO_EmptyPost(t *testing.T) {
	r := AuditSEO(SEOInput{})
	assert.Equal(t, 0, r.Score)

	total := 0
	for _, c := range r.Checks {
		total += c.Weight
		assert.False(t, c.Passed)
	}
	assert.Equal(t, 100, total)
}

func TestAuditSEO_MissingKeyword(t *testing.T) {
	r := AuditSEO(SEOInput{Title: "A title that is long enough to pass check"})
	for _, c := range r.Checks {
		if strings.HasPrefix(c.Name, "keyword") {
			assert.Equal(t, "focus keyword not set", c.Message)
		}
	}
	assert.Equal(t, 10, r.Score)
}
