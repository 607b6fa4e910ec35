package contentmatch

import (
	"bytes"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/pemistahl/lingua-go"
	"golang.org/x/net/html"
)

const (
	maxTextChars = 8000
	maxKeyTerms  = 50
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	keyTerm    = regexp.MustCompile(`^[a-zàèéíòóúçñ]{4,}$`)
)

// dateMetas are tried in order; the first with content wins.
var dateMetas = []string{
	`meta[property="article:published_time"]`,
	`meta[name="publish_date"]`,
	`meta[name="date"]`,
	`meta[property="og:updated_time"]`,
}

// pageText is the visible text of a page, without scripts or page chrome,
// whitespace-collapsed and cut to maxTextChars.
func pageText(doc *goquery.Document) string {
	clone := goquery.CloneDocument(doc)
	clone.Find("script, style, nav, header, footer").Remove()

	var sb strings.Builder
	for _, n := range clone.Nodes {
		collectText(n, &sb)
	}
	text := whitespace.ReplaceAllString(sb.String(), " ")
	return truncateRunes(strings.TrimSpace(text), maxTextChars)
}

func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		if t := strings.TrimSpace(n.Data); t != "" {
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(t)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// pageMetadata returns the first h1 (else <title>) and the first published
// date meta of the page.
func pageMetadata(doc *goquery.Document) (title, date string) {
	if h1 := doc.Find("h1").First(); h1.Length() > 0 {
		title = cleanText(h1.Text())
	} else if t := doc.Find("title").First(); t.Length() > 0 {
		title = cleanText(t.Text())
	}
	for _, sel := range dateMetas {
		if v, ok := doc.Find(sel).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
			date = strings.TrimSpace(v)
			break
		}
	}
	return title, date
}

func cleanText(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

func parseHTML(body []byte) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(body))
}

// commonWords are dropped from key terms whatever the language.
var commonWords = setOf(
	"para", "este", "esta", "desde", "hasta", "como", "pero", "porque",
	"sobre", "entre", "contra", "todas", "estos", "estas", "otros",
	"mateix", "aquest", "aquesta", "tots", "totes", "altres",
)

var stopwords = map[lingua.Language]map[string]bool{
	lingua.Spanish: setOf(
		"también", "según", "cuando", "donde", "mientras", "durante", "tiene",
		"tienen", "había", "sido", "será", "están", "puede", "pueden", "todo",
		"toda", "todos", "otra", "otro", "cada", "mismo", "misma", "solo",
		"años", "parte", "después", "antes", "ahora", "sino", "aunque",
	),
	lingua.Catalan: setOf(
		"també", "segons", "quan", "mentre", "durant", "però", "perquè",
		"havia", "estat", "serà", "poden", "pot", "tota", "altre", "altra",
		"cada", "només", "anys", "després", "abans", "ara", "sobre", "entre",
		"aquests", "aquestes", "amb", "dels", "seva", "seus", "seves",
	),
	lingua.English: setOf(
		"that", "this", "with", "from", "have", "been", "were", "will",
		"would", "there", "their", "which", "about", "after", "before",
		"also", "into", "than", "them", "they", "what", "when", "where",
		"while", "more", "most", "such", "some", "other", "over", "only",
	),
}

func setOf(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

var languageDetector = sync.OnceValue(func() lingua.LanguageDetector {
	return lingua.NewLanguageDetectorBuilder().
		FromLanguages(lingua.Spanish, lingua.Catalan, lingua.English, lingua.French, lingua.Portuguese, lingua.Italian, lingua.German).
		Build()
})

// detectLanguage returns the language of text, or lingua.Unknown.
func detectLanguage(text string) lingua.Language {
	if strings.TrimSpace(text) == "" {
		return lingua.Unknown
	}
	lang, ok := languageDetector().DetectLanguageOf(text)
	if !ok {
		return lingua.Unknown
	}
	return lang
}

func isoCode(lang lingua.Language) string {
	if lang == lingua.Unknown {
		return ""
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}

// keyTerms returns up to maxKeyTerms distinct lower-case words of at least
// four letters, in order of first appearance, minus stopwords.
func keyTerms(text string, lang lingua.Language) map[string]bool {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	langStop := stopwords[lang]
	terms := make(map[string]bool)
	for _, w := range words {
		if len(terms) >= maxKeyTerms {
			break
		}
		if !keyTerm.MatchString(w) || commonWords[w] || langStop[w] {
			continue
		}
		terms[w] = true
	}
	return terms
}

// overlap is the share of common terms relative to the larger set.
func overlap(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	common := 0
	for w := range a {
		if b[w] {
			common++
		}
	}
	return float64(common) / float64(max(len(a), len(b)))
}
