package content

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const wordsPerMinute = 200

var (
	reHTMLTag     = regexp.MustCompile(`<[^>]*>`)
	reMdImage     = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	reMdLink      = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	reMdSymbols   = regexp.MustCompile("[#*_`>~]+")
	reSpaces      = regexp.MustCompile(`\s+`)
	reSentenceEnd = regexp.MustCompile(`[.!?]+`)
	reNonSlug     = regexp.MustCompile(`[^a-z0-9]+`)
)

// タイトルなどからURL用のslugを作る（アクセント記号は落とす）
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	slug := reNonSlug.ReplaceAllString(strings.ToLower(folded), "-")
	return strings.Trim(slug, "-")
}

// HTMLタグとMarkdown記号を落としたプレーンテキスト
func PlainText(body string) string {
	s := reHTMLTag.ReplaceAllString(body, " ")
	s = reMdImage.ReplaceAllString(s, " ")
	s = reMdLink.ReplaceAllString(s, "$1")
	s = reMdSymbols.ReplaceAllString(s, " ")
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func Words(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func WordCount(body string) int {
	return len(Words(PlainText(body)))
}

// 200語/分で切り上げ、最低1分
func ReadingTimeMinutes(body string) int {
	n := WordCount(body)
	m := int(math.Ceil(float64(n) / wordsPerMinute))
	if m < 1 {
		return 1
	}
	return m
}

// 本文の先頭から最大max文字。語の途中では切らない。
func Excerpt(body string, max int) string {
	text := PlainText(body)
	r := []rune(text)
	if len(r) <= max {
		return text
	}
	cut := string(r[:max])
	if i := strings.LastIndexAny(cut, " \t\n"); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "..."
}

// Flesch reading ease（0〜100に丸める）
func Readability(body string) float64 {
	text := PlainText(body)
	words := Words(text)
	if len(words) == 0 {
		return 0
	}

	sentences := len(reSentenceEnd.FindAllStringIndex(text, -1))
	if sentences == 0 {
		sentences = 1
	}

	syllables := 0
	for _, w := range words {
		syllables += CountSyllables(w)
	}

	wc := float64(len(words))
	score := 206.835 - 1.015*(wc/float64(sentences)) - 84.6*(float64(syllables)/wc)
	score = math.Max(0, math.Min(100, score))
	return math.Round(score*10) / 10
}

// 母音のまとまりを数える簡易版。語末のeは数えない。
func CountSyllables(word string) int {
	w := strings.ToLower(word)
	count := 0
	prevVowel := false
	for _, r := range w {
		v := strings.ContainsRune("aeiouy", r)
		if v && !prevVowel {
			count++
		}
		prevVowel = v
	}
	if strings.HasSuffix(w, "e") && !strings.HasSuffix(w, "le") && count > 1 {
		count--
	}
	if count == 0 {
		return 1
	}
	return count
}
