// Package blocks parses WordPress Gutenberg block markup into a tree of
// blocks and serialises it back byte for byte.
//
// Edits are made on the parsed blocks and the document is rebuilt with
// String, so no character offsets have to be kept in sync.
package blocks

import (
	"regexp"
	"strings"
)

var (
	delimiterPattern = regexp.MustCompile(`(?s)<!--\s*(/)?wp:([a-z][a-z0-9_-]*(?:/[a-z][a-z0-9_-]*)?)(\s+\{.*?\})?\s*(/)?-->`)
	paragraphPattern = regexp.MustCompile(`(?is)^(\s*<p(?:\s[^>]*)?>)(.*)(</p>\s*)$`)
)

const (
	ParagraphOpen  = "<!-- wp:paragraph -->"
	ParagraphClose = "<!-- /wp:paragraph -->"
)

// Block is one node. Freeform text between blocks has an empty Name and only
// Inner set. A container block holding other blocks has Children, which then
// replace Inner when serialising.
type Block struct {
	Name     string
	Attrs    string // raw JSON attributes, "" when absent
	Open     string // opening delimiter, verbatim
	Inner    string
	Close    string // closing delimiter, "" for self-closing and freeform nodes
	Children *Document
}

// IsFreeform reports whether b is text outside any block delimiter.
func (b *Block) IsFreeform() bool {
	return b.Name == ""
}

// IsParagraph matches only the bare paragraph delimiters. Paragraphs carrying
// attributes (alignment, colours) are left alone.
func (b *Block) IsParagraph() bool {
	return b.Open == ParagraphOpen && b.Close == ParagraphClose
}

func (b *Block) String() string {
	if b.Children != nil {
		return b.Open + b.Children.String() + b.Close
	}
	return b.Open + b.Inner + b.Close
}

// ParagraphBody returns the HTML between <p> and </p>.
// ok is false when the block's inner markup is not a single <p> element.
func (b *Block) ParagraphBody() (string, bool) {
	m := paragraphPattern.FindStringSubmatch(b.Inner)
	if m == nil {
		return "", false
	}
	return m[2], true
}

// SetParagraphBody replaces the HTML between <p> and </p>, keeping the
// surrounding whitespace and the <p> attributes.
func (b *Block) SetParagraphBody(body string) bool {
	m := paragraphPattern.FindStringSubmatch(b.Inner)
	if m == nil {
		return false
	}
	b.Inner = m[1] + body + m[3]
	return true
}

// NewParagraph builds a paragraph block in the canonical layout.
func NewParagraph(html string) *Block {
	return &Block{
		Name:  "paragraph",
		Open:  ParagraphOpen,
		Inner: "\n<p>" + html + "</p>\n",
		Close: ParagraphClose,
	}
}

type Document struct {
	Blocks []*Block
}

// Parse splits content into blocks, descending into container blocks. An
// opener without a matching closer is kept as freeform text and parsing
// carries on after it.
func Parse(content string) *Document {
	doc := &Document{}
	tokens := delimiterPattern.FindAllStringSubmatchIndex(content, -1)
	text := 0 // start of pending freeform text

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok[2] >= 0 { // stray closer
			continue
		}
		name := content[tok[4]:tok[5]]
		attrs := ""
		if tok[6] >= 0 {
			attrs = strings.TrimSpace(content[tok[6]:tok[7]])
		}

		if tok[8] >= 0 { // self-closing
			doc.addText(content[text:tok[0]])
			doc.Blocks = append(doc.Blocks, &Block{Name: name, Attrs: attrs, Open: content[tok[0]:tok[1]]})
			text = tok[1]
			continue
		}

		closer := matchingCloser(content, tokens, i)
		if closer < 0 {
			continue
		}
		c := tokens[closer]
		doc.addText(content[text:tok[0]])
		b := &Block{
			Name:  name,
			Attrs: attrs,
			Open:  content[tok[0]:tok[1]],
			Inner: content[tok[1]:c[0]],
			Close: content[c[0]:c[1]],
		}
		if name != "paragraph" && closer > i+1 {
			b.Children = Parse(b.Inner)
		}
		doc.Blocks = append(doc.Blocks, b)
		text = c[1]
		i = closer
	}
	doc.addText(content[text:])
	return doc
}

// matchingCloser returns the index of the closer with the same block name
// balancing tokens[open], or -1.
func matchingCloser(content string, tokens [][]int, open int) int {
	name := content[tokens[open][4]:tokens[open][5]]
	depth := 0
	for j := open; j < len(tokens); j++ {
		t := tokens[j]
		if t[8] >= 0 || content[t[4]:t[5]] != name {
			continue
		}
		if t[2] >= 0 {
			depth--
		} else {
			depth++
		}
		if depth == 0 {
			return j
		}
	}
	return -1
}

func (d *Document) addText(s string) {
	if s != "" {
		d.Blocks = append(d.Blocks, &Block{Inner: s})
	}
}

// String serialises the document.
func (d *Document) String() string {
	var sb strings.Builder
	for _, b := range d.Blocks {
		sb.WriteString(b.String())
	}
	return sb.String()
}

// Paragraphs returns the paragraph blocks at any depth, in document order.
func (d *Document) Paragraphs() []*Block {
	var out []*Block
	for _, b := range d.Blocks {
		switch {
		case b.IsParagraph():
			out = append(out, b)
		case b.Children != nil:
			out = append(out, b.Children.Paragraphs()...)
		}
	}
	return out
}

// Append adds b at the end of the document, separated from the existing
// content by one blank line and followed by a newline.
func (d *Document) Append(b *Block) {
	for len(d.Blocks) > 0 {
		last := d.Blocks[len(d.Blocks)-1]
		if !last.IsFreeform() {
			break
		}
		last.Inner = strings.TrimRight(last.Inner, " \t\r\n")
		if last.Inner != "" {
			break
		}
		d.Blocks = d.Blocks[:len(d.Blocks)-1]
	}
	d.addText("\n\n")
	d.Blocks = append(d.Blocks, b)
	d.addText("\n")
}
