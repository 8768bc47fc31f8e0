package tokenizer

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
)

// Exclusion sources understood by LoadExclusions. Any other value is read as
// a file with one term per line; '#' and '|' start comments.
const (
	SourceEnglish     = "builtin:english"
	SourcePunctuation = "builtin:punctuation"
	SourceNone        = "none"
)

// asciiPunctuation matches Python's string.punctuation.
const asciiPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// ExclusionSet holds normalised terms that never become index keys. It is
// built once per process and then shared read-only by every worker.
type ExclusionSet map[string]struct{}

// Contains reports whether term is excluded.
func (s ExclusionSet) Contains(term string) bool {
	_, ok := s[term]
	return ok
}

// Add inserts the lower-cased form of each term.
func (s ExclusionSet) Add(terms ...string) {
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" {
			s[term] = struct{}{}
		}
	}
}

// LoadExclusions builds the union of every listed source.
func LoadExclusions(sources []string) (ExclusionSet, error) {
	set := make(ExclusionSet)
	for _, src := range sources {
		src = strings.TrimSpace(src)
		switch src {
		case "", SourceNone:
		case SourceEnglish:
			tm := analysis.NewTokenMap()
			if err := tm.LoadBytes(en.EnglishStopWords); err != nil {
				return nil, fmt.Errorf("loading english stop words: %w", err)
			}
			set.addTokenMap(tm)
		case SourcePunctuation:
			for _, r := range asciiPunctuation {
				set.Add(string(r))
			}
		default:
			tm := analysis.NewTokenMap()
			if err := tm.LoadFile(src); err != nil {
				return nil, fmt.Errorf("loading exclusion file %s: %w", src, err)
			}
			set.addTokenMap(tm)
		}
	}
	return set, nil
}

func (s ExclusionSet) addTokenMap(tm analysis.TokenMap) {
	for term := range tm {
		s.Add(term)
	}
}
