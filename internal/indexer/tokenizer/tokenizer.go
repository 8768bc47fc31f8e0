// Package tokenizer turns a document field into a lazy sequence of
// normalised terms. Input is lower-cased and split according to the
// configured mode; terms in the exclusion set, pure punctuation and terms
// shorter than the minimum length are dropped, and surviving terms are
// optionally stemmed.
package tokenizer

import (
	"iter"
	"strings"
	"unicode"
	"unicode/utf8"

	bleveunicode "github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/kljensen/snowball/english"
)

// Split modes.
const (
	ModeWhitespace = "whitespace"
	ModeWords      = "words"
	ModeUnicode    = "unicode"
)

// Options controls how raw text is split and normalised.
type Options struct {
	Mode          string
	Stem          bool
	MinTermLength int
}

// Tokenizer is safe for concurrent use; it holds only read-only state.
type Tokenizer struct {
	opts    Options
	exclude ExclusionSet
	unicode *bleveunicode.UnicodeTokenizer
}

// New returns a Tokenizer sharing the given exclusion set.
func New(opts Options, exclude ExclusionSet) *Tokenizer {
	if opts.Mode == "" {
		opts.Mode = ModeWhitespace
	}
	if exclude == nil {
		exclude = ExclusionSet{}
	}
	t := &Tokenizer{opts: opts, exclude: exclude}
	if opts.Mode == ModeUnicode {
		t.unicode = bleveunicode.NewUnicodeTokenizer()
	}
	return t
}

// Terms yields the normalised terms of text in order of appearance.
// Repeated terms are yielded every time they occur.
func (t *Tokenizer) Terms(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for raw := range t.split(strings.ToLower(text)) {
			term, ok := t.normalize(raw)
			if !ok {
				continue
			}
			if !yield(term) {
				return
			}
		}
	}
}

// Tokenize collects Terms into a slice.
func (t *Tokenizer) Tokenize(text string) []string {
	terms := make([]string, 0, 8)
	for term := range t.Terms(text) {
		terms = append(terms, term)
	}
	return terms
}

func (t *Tokenizer) split(text string) iter.Seq[string] {
	switch t.opts.Mode {
	case ModeWords:
		return strings.FieldsFuncSeq(text, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
	case ModeUnicode:
		return func(yield func(string) bool) {
			for _, tok := range t.unicode.Tokenize([]byte(text)) {
				if !yield(string(tok.Term)) {
					return
				}
			}
		}
	default:
		return strings.FieldsSeq(text)
	}
}

func (t *Tokenizer) normalize(raw string) (string, bool) {
	if raw == "" || isPunctuation(raw) {
		return "", false
	}
	if utf8.RuneCountInString(raw) < t.opts.MinTermLength {
		return "", false
	}
	if t.exclude.Contains(raw) {
		return "", false
	}
	if !t.opts.Stem {
		return raw, true
	}
	stemmed := english.Stem(raw, false)
	if stemmed == "" || t.exclude.Contains(stemmed) {
		return "", false
	}
	return stemmed, true
}

// isPunctuation reports whether s consists only of punctuation and symbols.
func isPunctuation(s string) bool {
	for _, r := range s {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
			return false
		}
	}
	return true
}
