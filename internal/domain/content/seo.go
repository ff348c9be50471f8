package content

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	reHeading   = regexp.MustCompile(`(?m)^#{2,6}\s+\S|<h[2-6][\s>]`)
	reImgAlt    = regexp.MustCompile(`!\[[^\]\s][^\]]*\]\([^)]+\)|<img[^>]+alt="[^"]+"`)
	reLink      = regexp.MustCompile(`(^|[^!])\[[^\]]+\]\([^)]+\)|<a\s[^>]*href=`)
	reParagraph = regexp.MustCompile(`\n\s*\n`)
)

type SEOInput struct {
	Title           string
	Slug            string
	MetaDescription string
	FocusKeyword    string
	Content         string
}

type SEOCheck struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Weight  int    `json:"weight"`
	Message string `json:"message"`
}

type SEOReport struct {
	Score            int        `json:"score"`
	WordCount        int        `json:"word_count"`
	KeywordDensity   float64    `json:"keyword_density"`
	ReadabilityScore float64    `json:"readability_score"`
	Checks           []SEOCheck `json:"checks"`
}

// 各チェックの重みの合計は100
func AuditSEO(in SEOInput) SEOReport {
	text := PlainText(in.Content)
	words := Words(text)
	kw := strings.ToLower(strings.TrimSpace(in.FocusKeyword))
	density := keywordDensity(words, kw)

	var checks []SEOCheck
	add := func(name string, weight int, ok bool, pass, fail string) {
		msg := fail
		if ok {
			msg = pass
		}
		checks = append(checks, SEOCheck{Name: name, Passed: ok, Weight: weight, Message: msg})
	}

	tl := len([]rune(strings.TrimSpace(in.Title)))
	add("title_length", 10, tl >= 30 && tl <= 60,
		"title length is good",
		fmt.Sprintf("title should be 30-60 characters (now %d)", tl))

	ml := len([]rune(strings.TrimSpace(in.MetaDescription)))
	add("meta_description_length", 10, ml >= 120 && ml <= 160,
		"meta description length is good",
		fmt.Sprintf("meta description should be 120-160 characters (now %d)", ml))

	if kw == "" {
		for _, c := range []struct {
			name   string
			weight int
		}{
			{"keyword_in_title", 15},
			{"keyword_in_meta_description", 10},
			{"keyword_in_first_paragraph", 10},
			{"keyword_in_slug", 5},
			{"keyword_density", 10},
		} {
			add(c.name, c.weight, false, "", "focus keyword not set")
		}
	} else {
		add("keyword_in_title", 15, strings.Contains(strings.ToLower(in.Title), kw),
			"focus keyword appears in title", "add the focus keyword to the title")
		add("keyword_in_meta_description", 10, strings.Contains(strings.ToLower(in.MetaDescription), kw),
			"focus keyword appears in meta description", "add the focus keyword to the meta description")
		add("keyword_in_first_paragraph", 10, strings.Contains(strings.ToLower(firstParagraph(in.Content)), kw),
			"focus keyword appears in the first paragraph", "use the focus keyword in the first paragraph")
		add("keyword_in_slug", 5, strings.Contains(in.Slug, Slugify(kw)),
			"focus keyword appears in slug", "add the focus keyword to the slug")
		add("keyword_density", 10, density >= 0.5 && density <= 2.5,
			fmt.Sprintf("keyword density %.1f%% is good", density),
			fmt.Sprintf("keyword density should be 0.5-2.5%% (now %.1f%%)", density))
	}

	add("content_length", 15, len(words) >= 300,
		"content length is good",
		fmt.Sprintf("content should be at least 300 words (now %d)", len(words)))
	add("subheadings", 5, reHeading.MatchString(in.Content),
		"content has subheadings", "add at least one subheading")
	add("image_alt", 5, reImgAlt.MatchString(in.Content),
		"content has an image with alt text", "add an image with alt text")
	add("links", 5, reLink.MatchString(in.Content),
		"content has links", "add at least one link")

	score := 0
	for _, c := range checks {
		if c.Passed {
			score += c.Weight
		}
	}

	return SEOReport{
		Score:            score,
		WordCount:        len(words),
		KeywordDensity:   density,
		ReadabilityScore: Readability(in.Content),
		Checks:           checks,
	}
}

func firstParagraph(body string) string {
	for _, p := range reParagraph.Split(strings.TrimSpace(body), -1) {
		if strings.TrimSpace(PlainText(p)) == "" || reHeading.MatchString(p) {
			continue
		}
		return PlainText(p)
	}
	return ""
}

// キーワード（複数語可）の出現語数 / 総語数 * 100
func keywordDensity(words []string, kw string) float64 {
	if kw == "" || len(words) == 0 {
		return 0
	}
	kwWords := Words(kw)
	if len(kwWords) == 0 {
		return 0
	}

	hits := 0
	for i := 0; i+len(kwWords) <= len(words); i++ {
		match := true
		for j, k := range kwWords {
			if !strings.EqualFold(words[i+j], k) {
				match = false
				break
			}
		}
		if match {
			hits++
		}
	}
	d := float64(hits*len(kwWords)) / float64(len(words)) * 100
	return float64(int(d*100+0.5)) / 100
}
